package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type EngineCfg struct {
	MinProfitBps        int64  `yaml:"min_profit_bps"`
	MaxSlippageBps      int64  `yaml:"max_slippage_bps"`
	DeadlineSeconds     int64  `yaml:"deadline_seconds"`
	CheckGasCost        bool   `yaml:"check_gas_cost"`
	MinBalanceThreshold string `yaml:"min_balance_threshold"` // smallest units, decimal string
	DryRun              bool   `yaml:"dry_run"`
	// NativePriceInOutput converts gas cost into output-token smallest
	// units: output units per 1e18 wei. Where it comes from is out of
	// scope; it is consumed as a plain value.
	NativePriceInOutput string `yaml:"native_price_in_output"`
}

type RetryCfg struct {
	BaseDelayMs      int     `yaml:"base_delay_ms"`
	RateLimitDelayMs int     `yaml:"rate_limit_delay_ms"`
	Multiplier       float64 `yaml:"multiplier"`
	MaxDelayMs       int     `yaml:"max_delay_ms"`
	MaxAttempts      int     `yaml:"max_attempts"`
}

type TokenCfg struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

type NetworkCfg struct {
	ChainID     int64      `yaml:"chain_id"`
	Stablecoins []TokenCfg `yaml:"stablecoins"`
	Providers   []string   `yaml:"providers"`
}

type Config struct {
	Network string `yaml:"network"`

	Chain struct {
		RPCHTTP   string `yaml:"rpc_http"`
		Multicall string `yaml:"multicall"`
		WalletPK  string `yaml:"wallet_pk"` // usually injected via WALLET_PK env
	} `yaml:"chain"`

	Engine EngineCfg `yaml:"engine"`
	Retry  RetryCfg  `yaml:"retry"`

	DEX struct {
		UniswapV3 struct {
			QuoterV2     string   `yaml:"quoter_v2"`
			Router       string   `yaml:"router"`
			FeeTiers     []uint32 `yaml:"fee_tiers"`
			GasLimitSwap uint64   `yaml:"gas_limit_swap"`
		} `yaml:"uniswap_v3"`

		OpenOcean struct {
			BaseURL           string  `yaml:"base_url"`
			APIKey            string  `yaml:"api_key"`
			Exchange          string  `yaml:"exchange"` // approval spender contract
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			GasLimitSwap      uint64  `yaml:"gas_limit_swap"`
		} `yaml:"openocean"`

		CowSwap struct {
			BaseURL        string `yaml:"base_url"`
			Settlement     string `yaml:"settlement"`
			VaultRelayer   string `yaml:"vault_relayer"`
			PollIntervalMs int    `yaml:"poll_interval_ms"`
			PollTimeoutS   int    `yaml:"poll_timeout_s"`
			AppData        string `yaml:"app_data"`
		} `yaml:"cowswap"`
	} `yaml:"dex"`

	Networks map[string]NetworkCfg `yaml:"networks"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Stream   string `yaml:"stream"`
	} `yaml:"redis"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if pk := os.Getenv("WALLET_PK"); pk != "" {
		c.Chain.WalletPK = pk
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.MinProfitBps == 0 {
		c.Engine.MinProfitBps = 30
	}
	if c.Engine.MaxSlippageBps == 0 {
		c.Engine.MaxSlippageBps = 50
	}
	if c.Engine.DeadlineSeconds == 0 {
		c.Engine.DeadlineSeconds = 300
	}
	if c.Retry.BaseDelayMs == 0 {
		c.Retry.BaseDelayMs = 200
	}
	if c.Retry.RateLimitDelayMs == 0 {
		c.Retry.RateLimitDelayMs = 1000
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2.0
	}
	if c.Retry.MaxDelayMs == 0 {
		c.Retry.MaxDelayMs = 5000
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if len(c.DEX.UniswapV3.FeeTiers) == 0 {
		c.DEX.UniswapV3.FeeTiers = []uint32{100, 500, 3000}
	}
	if c.DEX.UniswapV3.GasLimitSwap == 0 {
		c.DEX.UniswapV3.GasLimitSwap = 350_000
	}
	if c.DEX.OpenOcean.GasLimitSwap == 0 {
		c.DEX.OpenOcean.GasLimitSwap = 500_000
	}
	if c.DEX.OpenOcean.RequestsPerSecond == 0 {
		c.DEX.OpenOcean.RequestsPerSecond = 1
	}
	if c.DEX.CowSwap.PollIntervalMs == 0 {
		c.DEX.CowSwap.PollIntervalMs = 3000
	}
	if c.DEX.CowSwap.PollTimeoutS == 0 {
		c.DEX.CowSwap.PollTimeoutS = 180
	}
}

// MinBalanceThreshold parses the configured dust floor; nil means no floor.
func (c *Config) MinBalanceThreshold() (*big.Int, error) {
	if c.Engine.MinBalanceThreshold == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(c.Engine.MinBalanceThreshold, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("bad min_balance_threshold %q", c.Engine.MinBalanceThreshold)
	}
	return v, nil
}

// NativePriceInOutput parses the gas-conversion ratio; nil when unset.
func (c *Config) NativePriceInOutput() (*big.Int, error) {
	if c.Engine.NativePriceInOutput == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(c.Engine.NativePriceInOutput, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("bad native_price_in_output %q", c.Engine.NativePriceInOutput)
	}
	return v, nil
}

func (c *Config) CowSwapPollInterval() time.Duration {
	return time.Duration(c.DEX.CowSwap.PollIntervalMs) * time.Millisecond
}

func (c *Config) CowSwapPollTimeout() time.Duration {
	return time.Duration(c.DEX.CowSwap.PollTimeoutS) * time.Second
}

// RetryPolicy converts the yaml knobs into the shared backoff policy.
func (c *Config) RetryPolicy() (base, rateLimit, max time.Duration, multiplier float64, attempts int) {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond,
		time.Duration(c.Retry.RateLimitDelayMs) * time.Millisecond,
		time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
		c.Retry.Multiplier,
		c.Retry.MaxAttempts
}
