package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gabesan21/trading-web3/internal/balance"
	"github.com/gabesan21/trading-web3/internal/config"
	"github.com/gabesan21/trading-web3/internal/dex/core"
	"github.com/gabesan21/trading-web3/internal/dex/cowswap"
	"github.com/gabesan21/trading-web3/internal/dex/openocean"
	"github.com/gabesan21/trading-web3/internal/dex/univ3"
	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/engine"
	"github.com/gabesan21/trading-web3/internal/metrics"
	"github.com/gabesan21/trading-web3/internal/multicall"
	"github.com/gabesan21/trading-web3/internal/quote"
	"github.com/gabesan21/trading-web3/internal/report"
	"github.com/gabesan21/trading-web3/internal/swap"
	"github.com/gabesan21/trading-web3/internal/wallet"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "find opportunities but never execute")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if *dryRun {
		cfg.Engine.DryRun = true
	}

	network := cfg.Network
	chainID, err := cfg.ChainID(network)
	if err != nil {
		logger.Fatal("bad network", zap.Error(err))
	}
	stablecoins, err := cfg.LoadStablecoins(network)
	if err != nil {
		logger.Fatal("stablecoin config invalid", zap.Error(err))
	}
	providers, err := cfg.LoadProviders(network)
	if err != nil {
		logger.Fatal("provider config invalid", zap.Error(err))
	}

	if cfg.Chain.WalletPK == "" {
		logger.Fatal("no wallet key configured: set WALLET_PK or chain.wallet_pk")
	}
	key, err := wallet.FromHex(cfg.Chain.WalletPK)
	if err != nil {
		logger.Fatal("wallet key invalid", zap.Error(err))
	}

	ec, err := ethclient.Dial(cfg.Chain.RPCHTTP)
	if err != nil {
		logger.Fatal("rpc dial failed", zap.String("rpc", cfg.Chain.RPCHTTP), zap.Error(err))
	}
	defer ec.Close()

	var mc multicall.IClient
	if cfg.Chain.Multicall != "" {
		mc, err = multicall.New(ec, common.HexToAddress(cfg.Chain.Multicall))
		if err != nil {
			logger.Fatal("multicall init failed", zap.Error(err))
		}
	}

	inspector, err := balance.NewInspector(ec, mc, logger)
	if err != nil {
		logger.Fatal("balance inspector init failed", zap.Error(err))
	}

	sender := swap.NewSender(ec, chainID, logger)
	approver, err := swap.NewApprover(ec, sender, logger)
	if err != nil {
		logger.Fatal("approver init failed", zap.Error(err))
	}

	base, rateLimit, maxDelay, multiplier, attempts := cfg.RetryPolicy()
	policy := dexerr.Policy{
		BaseDelay:      base,
		RateLimitDelay: rateLimit,
		Multiplier:     multiplier,
		MaxDelay:       maxDelay,
		MaxAttempts:    attempts,
	}

	registry := core.NewRegistry()
	aggregator := quote.NewAggregator(logger)
	registerVenues(cfg, providers, policy, ec, sender, approver, registry, aggregator, logger)

	minBalance, err := cfg.MinBalanceThreshold()
	if err != nil {
		logger.Fatal("engine config invalid", zap.Error(err))
	}
	nativePrice, err := cfg.NativePriceInOutput()
	if err != nil {
		logger.Fatal("engine config invalid", zap.Error(err))
	}
	params := engine.Params{
		MinProfitBps:        cfg.Engine.MinProfitBps,
		MaxSlippageBps:      cfg.Engine.MaxSlippageBps,
		DeadlineSeconds:     cfg.Engine.DeadlineSeconds,
		CheckGasCost:        cfg.Engine.CheckGasCost,
		DryRun:              cfg.Engine.DryRun,
		MinBalanceThreshold: minBalance,
		NativePriceInOutput: nativePrice,
		ChainID:             chainID,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	publisher := report.NewPublisher(cfg)
	defer publisher.Close()

	eng := engine.New(params, inspector, aggregator, registry, ec, logger)

	logger.Info("run starting",
		zap.String("network", network),
		zap.String("wallet", key.Address().Hex()),
		zap.Strings("providers", aggregator.Providers()),
		zap.Bool("dry_run", params.DryRun),
	)

	res := eng.Run(ctx, key.Address(), key, stablecoins)

	fields := []zap.Field{
		zap.Bool("attempted", res.Attempted),
		zap.Bool("success", res.Success),
		zap.String("reason", res.Reason),
	}
	if res.TxID != "" {
		fields = append(fields, zap.String("tx", res.TxID))
	}
	if res.Opportunity != nil {
		fields = append(fields,
			zap.String("provider", res.Opportunity.Provider),
			zap.String("pair", res.Opportunity.TokenIn.Symbol+"/"+res.Opportunity.TokenOut.Symbol),
			zap.Int64("profit_bps", res.Opportunity.ProfitBps),
		)
	}
	logger.Info("run finished", fields...)

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := publisher.Publish(pubCtx, res); err != nil {
		logger.Warn("result publish failed", zap.Error(err))
	}

	if res.Attempted && !res.Success {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// registerVenues wires one source/executor pair per configured provider.
// A provider listed for the network but missing its backend config is a
// startup failure, not a silent skip.
func registerVenues(
	cfg *config.Config,
	providers []string,
	policy dexerr.Policy,
	ec *ethclient.Client,
	sender *swap.Sender,
	approver *swap.Approver,
	registry *core.Registry,
	aggregator *quote.Aggregator,
	logger *zap.Logger,
) {
	for _, name := range providers {
		id := core.Normalize(name)
		switch id {
		case core.VenueUniswapV3:
			u := cfg.DEX.UniswapV3
			src, err := univ3.NewSource(ec, common.HexToAddress(u.QuoterV2), u.FeeTiers, policy, logger)
			if err != nil {
				logger.Fatal("uniswap v3 source init failed", zap.Error(err))
			}
			ex, err := univ3.NewExecutor(ec, sender, approver, common.HexToAddress(u.Router), u.GasLimitSwap, logger)
			if err != nil {
				logger.Fatal("uniswap v3 executor init failed", zap.Error(err))
			}
			registry.Register(&core.Venue{ID: id, Source: src, Executor: ex})
			aggregator.AddProvider(src)

		case core.VenueOpenOcean:
			o := cfg.DEX.OpenOcean
			src, err := openocean.NewSource(o.BaseURL, o.APIKey, o.RequestsPerSecond, policy, logger)
			if err != nil {
				logger.Fatal("openocean source init failed", zap.Error(err))
			}
			ex, err := openocean.NewExecutor(o.BaseURL, o.APIKey, o.RequestsPerSecond, sender, approver,
				common.HexToAddress(o.Exchange), o.GasLimitSwap, logger)
			if err != nil {
				logger.Fatal("openocean executor init failed", zap.Error(err))
			}
			registry.Register(&core.Venue{ID: id, Source: src, Executor: ex})
			aggregator.AddProvider(src)

		case core.VenueCowSwap:
			c := cfg.DEX.CowSwap
			src, err := cowswap.NewSource(c.BaseURL, policy, logger)
			if err != nil {
				logger.Fatal("cowswap source init failed", zap.Error(err))
			}
			ex, err := cowswap.NewExecutor(c.BaseURL, approver,
				common.HexToAddress(c.Settlement), common.HexToAddress(c.VaultRelayer),
				common.HexToHash(c.AppData),
				cfg.CowSwapPollInterval(), cfg.CowSwapPollTimeout(), logger)
			if err != nil {
				logger.Fatal("cowswap executor init failed", zap.Error(err))
			}
			registry.Register(&core.Venue{ID: id, Source: src, Executor: ex})
			aggregator.AddProvider(src)

		default:
			logger.Fatal("unknown provider in config", zap.String("provider", name))
		}
	}
}
