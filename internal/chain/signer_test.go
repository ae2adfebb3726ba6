package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (anvil/hardhat account #0).
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewSigner(t *testing.T) {
	s, err := NewSigner(devKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address().Hex())
	assert.NotNil(t, s.PrivateKey())
	assert.NotContains(t, s.String(), devKey[2:])

	same, err := NewSigner(devKey[2:])
	require.NoError(t, err)
	assert.Equal(t, s.Address(), same.Address())
}

func TestNewSigner_Invalid(t *testing.T) {
	_, err := NewSigner("")
	require.Error(t, err)

	_, err = NewSigner("0xnothex")
	require.Error(t, err)
}
