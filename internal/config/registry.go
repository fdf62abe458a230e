package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gabesan21/trading-web3/internal/types"
)

// LoadStablecoins returns the fixed candidate set for a network, validating
// every entry's address shape and decimal count. A malformed entry fails
// the whole load: a bad token list is a startup bug, not a runtime
// condition.
func (c *Config) LoadStablecoins(network string) ([]types.Token, error) {
	net, ok := c.Networks[network]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	if len(net.Stablecoins) == 0 {
		return nil, fmt.Errorf("network %q has no stablecoins configured", network)
	}

	tokens := make([]types.Token, 0, len(net.Stablecoins))
	for _, tc := range net.Stablecoins {
		cs, err := toChecksumAddress(tc.Address)
		if err != nil {
			return nil, fmt.Errorf("stablecoin %s: bad address %q: %w", tc.Symbol, tc.Address, err)
		}
		if tc.Decimals <= 0 {
			return nil, fmt.Errorf("stablecoin %s: non-positive decimals %d", tc.Symbol, tc.Decimals)
		}
		if tc.Symbol == "" {
			return nil, fmt.Errorf("stablecoin %s: empty symbol", tc.Address)
		}
		tokens = append(tokens, types.Token{
			Address:  common.HexToAddress(cs),
			Decimals: tc.Decimals,
			Symbol:   tc.Symbol,
			ChainID:  net.ChainID,
		})
	}
	return tokens, nil
}

// LoadProviders returns the provider names eligible for a network, in
// configured order.
func (c *Config) LoadProviders(network string) ([]string, error) {
	net, ok := c.Networks[network]
	if !ok {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	if len(net.Providers) == 0 {
		return nil, fmt.Errorf("network %q has no providers configured", network)
	}
	return append([]string(nil), net.Providers...), nil
}

// ChainID returns the chain id of the configured network.
func (c *Config) ChainID(network string) (int64, error) {
	net, ok := c.Networks[network]
	if !ok {
		return 0, fmt.Errorf("unknown network %q", network)
	}
	return net.ChainID, nil
}
