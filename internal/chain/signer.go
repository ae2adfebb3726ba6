package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is a signing identity loaded once at startup and shared by
// reference. The key never leaves this type.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewSigner(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

func (s *Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.key
}

// String never prints key material.
func (s *Signer) String() string {
	return "signer(" + s.address.Hex() + ")"
}
