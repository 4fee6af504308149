// Command trendwatch turns live exchange trades into candles, runs a trend following
// trading method on them and emits advice, optionally executing it as orders.
// It supports Binance, Bybit, a paper wallet fed by Binance trades and offline replay
// of a trades file, configured via a YAML file, command-line arguments or the setup wizard.
//
// Usage:
//
//	trendwatch --config config.yaml
//	trendwatch --setup
//	trendwatch --platform simulate --pair BTC_USDT --method ppo_rsi
//
// Required environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/trendwatch/config"
	"github.com/vadiminshakov/trendwatch/internal"
	"github.com/vadiminshakov/trendwatch/internal/clients"
	"github.com/vadiminshakov/trendwatch/internal/metrics"
	"github.com/vadiminshakov/trendwatch/internal/setup"
)

func main() {
	opts, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(opts.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if opts.Setup {
		if err := setup.RunTUI(setup.DefaultFile); err != nil {
			logger.Fatal("setup failed", zap.Error(err))
		}
		opts.ConfigPath = setup.DefaultFile
	}

	configs, err := config.Get(opts)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if opts.MetricsAddr != "" {
		m = metrics.New()
		srv := metrics.NewServer(opts.MetricsAddr, m, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Error("failed to stop metrics server", zap.Error(err))
			}
		}()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, conf := range configs {
		client, err := newClient(conf)
		if err != nil {
			logger.Fatal("failed to create exchange client", zap.String("pair", conf.Pair.String()), zap.Error(err))
		}

		bot, err := internal.NewTradingBot(conf, client, internal.Deps{Logger: logger, Metrics: m})
		if err != nil {
			logger.Fatal("failed to create trading bot", zap.String("pair", conf.Pair.String()), zap.Error(err))
		}

		g.Go(func() error {
			defer bot.Close()
			if err := bot.Run(ctx); err != nil {
				return fmt.Errorf("bot %s: %w", conf.Pair, err)
			}
			return nil
		})
	}

	logger.Info("trendwatch started", zap.Int("instances", len(configs)))
	if err := g.Wait(); err != nil {
		logger.Error("trading bot stopped with error", zap.Error(err))
		return
	}
	logger.Info("trendwatch stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	return cfg.Build()
}

func newClient(conf config.Config) (any, error) {
	switch conf.Platform {
	case config.PlatformBinance:
		apiKey := os.Getenv("BINANCE_API_KEY")
		apiSecret := os.Getenv("BINANCE_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			return nil, fmt.Errorf("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
		}
		return clients.NewBinanceClient(apiKey, apiSecret), nil
	case config.PlatformBybit:
		apiKey := os.Getenv("BYBIT_API_KEY")
		apiSecret := os.Getenv("BYBIT_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			return nil, fmt.Errorf("BYBIT_API_KEY and BYBIT_API_SECRET environment variables must be set")
		}
		return clients.NewBybitClient(apiKey, apiSecret), nil
	case config.PlatformSimulate:
		return clients.NewSimulateClient(), nil
	case config.PlatformFile:
		return clients.NewFileClient(conf.TradesFile), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", conf.Platform)
	}
}
