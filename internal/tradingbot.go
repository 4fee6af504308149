package internal

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendwatch/config"
	"github.com/vadiminshakov/trendwatch/internal/events"
	"github.com/vadiminshakov/trendwatch/internal/metrics"
	"github.com/vadiminshakov/trendwatch/internal/services/aggregator"
	"github.com/vadiminshakov/trendwatch/internal/services/source"
	"github.com/vadiminshakov/trendwatch/internal/services/strategy"
	"github.com/vadiminshakov/trendwatch/internal/services/trader"
	"github.com/vadiminshakov/trendwatch/internal/storage/advices"
	"github.com/vadiminshakov/trendwatch/pkg/retrier"
)

const defaultJournalDir = "./wal"

// Deps process wide collaborators shared by all bots.
type Deps struct {
	Logger *zap.Logger
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// TradingBot represents a single trading instance: one pair, one method, one trade source.
type TradingBot struct {
	Config config.Config

	bus        *events.Bus
	source     source.TradeSource
	aggregator *aggregator.Aggregator
	advisor    *strategy.Advisor
	executor   *trader.Executor
	journal    *advices.WALStore
	logger     *zap.Logger
}

// NewTradingBot creates a new trading bot instance and wires its pipeline.
func NewTradingBot(conf config.Config, client any, deps Deps) (*TradingBot, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("pair", conf.Pair.String()), zap.String("platform", conf.Platform))

	platformSource, err := NewTradeSource(conf, client, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trade source")
	}

	var (
		recorder  *metrics.Recorder
		aggOpts   []aggregator.Option
		advOpts   []strategy.AdvisorOption
		execStats trader.Stats
	)
	retryOpts := []retrier.Option{
		retrier.WithInitialInterval(conf.RetryDelay),
		retrier.WithLogger(logger),
	}
	if conf.MaxRetries > 0 {
		retryOpts = append(retryOpts, retrier.WithMaxRetries(conf.MaxRetries))
	}
	if deps.Metrics != nil {
		recorder = deps.Metrics.Pair(conf.Pair)
		aggOpts = append(aggOpts, aggregator.WithStats(recorder))
		advOpts = append(advOpts, strategy.WithAdvisorStats(recorder))
		execStats = recorder
		retryOpts = append(retryOpts, retrier.WithOnRetry(recorder.OnRetry), retrier.WithOnAbandon(recorder.OnAbandon))
	}
	src := source.NewRetrying(platformSource, retrier.New(retryOpts...))

	bus := events.NewBus(logger)

	method, err := strategy.New(conf.Method, conf.Settings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trading method")
	}
	advisor, err := strategy.NewAdvisor(method, bus, strategy.AdvisorConfig{
		Pair:       conf.Pair,
		PriceField: conf.PriceField,
		Portfolio:  conf.Portfolio,
	}, logger, advOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create advisor")
	}

	agg, err := aggregator.New(src, bus, aggregator.Config{
		Interval:      conf.Interval,
		SmallInterval: conf.SmallInterval,
		PollInterval:  conf.PollInterval,
		SampleWindow:  conf.SampleWindow,
		From:          conf.From,
	}, logger, aggOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create candle aggregator")
	}

	journal, err := advices.NewWALStore(journalDir(conf))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open advice journal")
	}

	bot := &TradingBot{
		Config:     conf,
		bus:        bus,
		source:     src,
		aggregator: agg,
		advisor:    advisor,
		journal:    journal,
		logger:     logger,
	}

	var subs []events.Subscription
	if conf.Trade {
		bot.executor, err = trader.NewExecutor(src, conf.Pair, logger, execStats)
		if err != nil {
			journal.Close()
			return nil, errors.Wrap(err, "failed to create order executor")
		}
		// orders of the previous candle settle before the advisor sees the new one
		subs = append(subs, events.OnCandle("executor", bot.executor))
	}
	mon := &monitor{logger: logger, stats: recorder}
	subs = append(subs,
		events.OnHistory("advisor", advisor),
		events.OnCandle("advisor", advisor),
		events.OnSmallCandle("monitor", mon),
		events.OnAdvice("journal", journal),
		events.OnSoftAdvice("monitor", mon),
	)
	if bot.executor != nil {
		subs = append(subs, events.OnAdvice("executor", bot.executor))
	}
	if err := bus.Subscribe(subs...); err != nil {
		journal.Close()
		return nil, errors.Wrap(err, "failed to subscribe consumers")
	}
	bus.Seal()

	return bot, nil
}

func journalDir(conf config.Config) string {
	base := conf.JournalDir
	if base == "" {
		base = defaultJournalDir
	}
	name := strings.ToLower(conf.Platform + "_" + conf.Pair.String() + "_" + conf.Method)
	return filepath.Join(base, "advices", name)
}

// Journal returns the advice journal of the bot.
func (b *TradingBot) Journal() *advices.WALStore {
	return b.journal
}

// Subscribers returns consumer names of a route in delivery order.
func (b *TradingBot) Subscribers(emitter events.Emitter, topic events.Topic) []string {
	return b.bus.Subscribers(emitter, topic)
}

// Poll runs a single fetch-and-emit cycle.
func (b *TradingBot) Poll(ctx context.Context) error {
	return b.aggregator.Poll(ctx)
}

// Close closes the trading bot
func (b *TradingBot) Close() error {
	return b.journal.Close()
}

// Run polls the trade source until ctx is done.
func (b *TradingBot) Run(ctx context.Context) error {
	if portfolio, err := b.source.GetPortfolio(ctx); err != nil {
		b.logger.Warn("failed to read portfolio", zap.Error(err))
	} else {
		b.logger.Info("starting trading bot",
			zap.String("method", b.Config.Method),
			zap.Duration("interval", b.Config.Interval),
			zap.Bool("trade", b.Config.Trade),
			zap.Stringer("portfolio", portfolio))
	}

	return b.aggregator.Run(ctx)
}
