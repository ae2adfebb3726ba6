package airdrop

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

const weiDecimals = 18

// ParseAmount converts a decimal ether quantity ("0.01") into wei.
func ParseAmount(ether string) (*big.Int, error) {
	d, err := decimal.NewFromString(ether)
	if err != nil {
		return nil, fmt.Errorf("parse airdrop amount %q: %w", ether, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("airdrop amount %q must be positive", ether)
	}
	wei := d.Shift(weiDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("airdrop amount %q has more than %d decimals", ether, weiDecimals)
	}
	return wei.BigInt(), nil
}

// FormatAmount renders wei as a decimal ether string for logs.
func FormatAmount(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}

// Amounts is the fixed transfer amount per chain, in wei.
type Amounts map[model.ChainID]*big.Int

// NewAmounts parses one ether amount per chain.
func NewAmounts(perChain map[model.ChainID]string) (Amounts, error) {
	out := make(Amounts, len(perChain))
	for chainID, raw := range perChain {
		wei, err := ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", chainID, err)
		}
		out[chainID] = wei
	}
	return out, nil
}

func (a Amounts) For(chainID model.ChainID) (*big.Int, error) {
	wei, ok := a[chainID]
	if !ok {
		return nil, fmt.Errorf("no airdrop amount configured for %s", chainID)
	}
	return new(big.Int).Set(wei), nil
}
