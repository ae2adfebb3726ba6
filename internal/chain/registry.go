package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/owentar/zeta-hackathon/internal/domain/model"
)

// Endpoint is where a chain's RPC and game contract live.
type Endpoint struct {
	RPCURL          string
	ContractAddress common.Address
}

// Registry is the static chain table. Lookups of anything else fail.
type Registry struct {
	endpoints map[model.ChainID]Endpoint
}

func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[model.ChainID]Endpoint)}
}

// Register adds a supported chain. Empty URLs are rejected so a missing env
// var surfaces at startup instead of at the first request.
func (r *Registry) Register(chainID model.ChainID, rpcURL, contract string) error {
	if err := model.ValidateChainID(chainID); err != nil {
		return err
	}
	if strings.TrimSpace(rpcURL) == "" {
		return fmt.Errorf("chain %s: rpc url is required", chainID)
	}
	if !common.IsHexAddress(contract) {
		return fmt.Errorf("chain %s: invalid contract address %q", chainID, contract)
	}
	r.endpoints[chainID] = Endpoint{
		RPCURL:          rpcURL,
		ContractAddress: common.HexToAddress(contract),
	}
	return nil
}

func (r *Registry) Lookup(chainID model.ChainID) (Endpoint, error) {
	ep, ok := r.endpoints[chainID]
	if !ok {
		return Endpoint{}, &model.ErrUnsupportedChain{Value: chainID.Label()}
	}
	return ep, nil
}

// Chains lists registered chains in ascending id order.
func (r *Registry) Chains() []model.ChainID {
	out := make([]model.ChainID, 0, len(r.endpoints))
	for _, id := range model.SupportedChains {
		if _, ok := r.endpoints[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
