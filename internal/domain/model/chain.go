package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ChainID is an EVM chain identifier. Only the chains listed in
// SupportedChains are accepted anywhere in the service.
type ChainID int64

const (
	ChainZetaMainnet ChainID = 7000
	ChainZetaTestnet ChainID = 7001
)

// SupportedChains is the closed set of chains the game runs on.
var SupportedChains = []ChainID{ChainZetaMainnet, ChainZetaTestnet}

func (c ChainID) String() string {
	switch c {
	case ChainZetaMainnet:
		return "zetachain-mainnet"
	case ChainZetaTestnet:
		return "zetachain-testnet"
	default:
		return "chain-" + strconv.FormatInt(int64(c), 10)
	}
}

// Label is the metric/log label value for the chain.
func (c ChainID) Label() string {
	return strconv.FormatInt(int64(c), 10)
}

func (c ChainID) Supported() bool {
	switch c {
	case ChainZetaMainnet, ChainZetaTestnet:
		return true
	default:
		return false
	}
}

// ErrUnsupportedChain is returned by ParseChainID and ValidateChainID.
type ErrUnsupportedChain struct {
	Value string
}

func (e *ErrUnsupportedChain) Error() string {
	return fmt.Sprintf("unsupported chain id %q: must be one of %s", e.Value, supportedList())
}

// ValidateChainID rejects identifiers outside SupportedChains.
func ValidateChainID(c ChainID) error {
	if !c.Supported() {
		return &ErrUnsupportedChain{Value: strconv.FormatInt(int64(c), 10)}
	}
	return nil
}

// ParseChainID parses a decimal chain id and validates it.
func ParseChainID(raw string) (ChainID, error) {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ErrUnsupportedChain{Value: raw}
	}
	c := ChainID(v)
	if err := ValidateChainID(c); err != nil {
		return 0, err
	}
	return c, nil
}

func supportedList() string {
	parts := make([]string, 0, len(SupportedChains))
	for _, c := range SupportedChains {
		parts = append(parts, c.Label())
	}
	return strings.Join(parts, ", ")
}
