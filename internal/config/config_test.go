package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
network: arbitrum
chain:
  rpc_http: http://localhost:8545
engine:
  min_profit_bps: 200
  dry_run: true
  min_balance_threshold: "1000000"
networks:
  arbitrum:
    chain_id: 42161
    stablecoins:
      - {symbol: USDT, address: "0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", decimals: 6}
      - {symbol: DAI, address: "0xda10009cbd5d07dd0cecc66161fc93d7c9000da1", decimals: 18}
    providers: [uniswap_v3, openocean, cowswap]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(200), cfg.Engine.MinProfitBps, "explicit value wins")
	assert.Equal(t, int64(50), cfg.Engine.MaxSlippageBps, "default")
	assert.Equal(t, int64(300), cfg.Engine.DeadlineSeconds, "default")
	assert.Equal(t, 3, cfg.Retry.MaxAttempts, "default")
	assert.True(t, cfg.Engine.DryRun)

	thr, err := cfg.MinBalanceThreshold()
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), thr.Int64())
}

func TestLoadStablecoins(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	tokens, err := cfg.LoadStablecoins("arbitrum")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "USDT", tokens[0].Symbol)
	assert.Equal(t, 6, tokens[0].Decimals)
	assert.Equal(t, int64(42161), tokens[0].ChainID)
	// Lowercase config input comes back checksummed.
	assert.Equal(t, "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", tokens[0].Address.Hex())
}

func TestLoadStablecoins_FailsFastOnMalformedEntry(t *testing.T) {
	bad := `
networks:
  arbitrum:
    chain_id: 42161
    stablecoins:
      - {symbol: USDT, address: "0x123", decimals: 6}
    providers: [uniswap_v3]
`
	cfg, err := Load(writeConfig(t, bad))
	require.NoError(t, err)

	_, err = cfg.LoadStablecoins("arbitrum")
	assert.Error(t, err)

	bad2 := `
networks:
  arbitrum:
    chain_id: 42161
    stablecoins:
      - {symbol: USDT, address: "0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9", decimals: 0}
    providers: [uniswap_v3]
`
	cfg, err = Load(writeConfig(t, bad2))
	require.NoError(t, err)
	_, err = cfg.LoadStablecoins("arbitrum")
	assert.Error(t, err)
}

func TestLoadProviders(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	providers, err := cfg.LoadProviders("arbitrum")
	require.NoError(t, err)
	assert.Equal(t, []string{"uniswap_v3", "openocean", "cowswap"}, providers)

	_, err = cfg.LoadProviders("mainnet")
	assert.Error(t, err)
}

func TestChecksumAddress(t *testing.T) {
	cs, err := toChecksumAddress("0xda10009cbd5d07dd0cecc66161fc93d7c9000da1")
	require.NoError(t, err)
	assert.Equal(t, "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", cs)

	_, err = toChecksumAddress("")
	assert.Error(t, err)
	_, err = toChecksumAddress("0xzz10009cbd5d07dd0cecc66161fc93d7c9000da1")
	assert.Error(t, err)
}
