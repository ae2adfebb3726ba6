// Package commitment binds a secret age to a random salt so the age can be
// committed on-chain before bets open and verified by the contract on reveal.
//
// The hash is keccak256(toString(age) ++ salt), the same preimage the
// contract's computeHash(uint256,string) builds with abi.encodePacked.
package commitment

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/sha3"
)

// SaltBytes is the entropy of a generated salt.
const SaltBytes = 32

var (
	ErrInvalidAge  = errors.New("age must be a non-negative integer")
	ErrInvalidSalt = errors.New("salt must not be empty")
)

// Salt is the 0x-prefixed lower-case hex encoding of SaltBytes random bytes.
type Salt string

func (s Salt) String() string {
	return string(s)
}

// Hash is a keccak256 digest.
type Hash [32]byte

// Hex returns the 0x-prefixed hex form expected by createGame's bytes32 argument.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// ParseHash decodes a 0x-prefixed 32-byte hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("decode hash: want %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// GenerateSalt reads SaltBytes from crypto/rand.
func GenerateSalt() (Salt, error) {
	buf := make([]byte, SaltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random salt: %w", err)
	}
	return Salt("0x" + hex.EncodeToString(buf)), nil
}

// Commit returns keccak256(decimal(age) ++ salt).
func Commit(age int, salt Salt) (Hash, error) {
	if age < 0 {
		return Hash{}, fmt.Errorf("%w: %d", ErrInvalidAge, age)
	}
	if salt == "" {
		return Hash{}, ErrInvalidSalt
	}

	var h Hash
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(strconv.Itoa(age)))
	d.Write([]byte(salt))
	d.Sum(h[:0])
	return h, nil
}

// MustCommit is Commit for inputs known to be valid.
func MustCommit(age int, salt Salt) Hash {
	h, err := Commit(age, salt)
	if err != nil {
		panic(err)
	}
	return h
}

// Verify reports whether hash commits to (age, salt).
func Verify(hash Hash, age int, salt Salt) bool {
	got, err := Commit(age, salt)
	if err != nil {
		return false
	}
	return got == hash
}
