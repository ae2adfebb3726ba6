package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(model.ChainZetaTestnet, "https://testnet.example", testContract))

	ep, err := r.Lookup(model.ChainZetaTestnet)
	require.NoError(t, err)
	assert.Equal(t, "https://testnet.example", ep.RPCURL)
	assert.Equal(t, testContract, ep.ContractAddress.Hex())
	assert.Equal(t, []model.ChainID{model.ChainZetaTestnet}, r.Chains())
}

func TestRegistry_UnconfiguredChainFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(model.ChainZetaTestnet, "https://testnet.example", testContract))

	_, err := r.Lookup(model.ChainZetaMainnet)
	var unsupported *model.ErrUnsupportedChain
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "7000", unsupported.Value)

	_, err = r.Lookup(model.ChainID(1))
	require.True(t, errors.As(err, &unsupported))
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(model.ChainID(1), "https://x", testContract)
	var unsupported *model.ErrUnsupportedChain
	require.True(t, errors.As(err, &unsupported))

	require.Error(t, r.Register(model.ChainZetaMainnet, "  ", testContract))
	require.Error(t, r.Register(model.ChainZetaMainnet, "https://x", "0x123"))
	assert.Empty(t, r.Chains())
}
