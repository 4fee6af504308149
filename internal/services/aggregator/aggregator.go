// Package aggregator turns polled exchange trades into contiguous fixed-interval candles.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/events"
	"github.com/vadiminshakov/trendwatch/internal/services/source"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 20 * time.Second
	defaultInterval     = time.Hour
)

// Stats receives aggregation counters.
type Stats interface {
	ObserveTrades(n int)
	ObserveLateTrades(n int)
	ObserveCandle(topic string, synthetic bool)
}

type nopStats struct{}

func (nopStats) ObserveTrades(int)          {}
func (nopStats) ObserveLateTrades(int)      {}
func (nopStats) ObserveCandle(string, bool) {}

// Config aggregation settings.
type Config struct {
	// Interval width of the main candle series.
	Interval time.Duration
	// SmallInterval width of the small candle series, zero disables it.
	SmallInterval time.Duration
	// PollInterval period between trade fetches.
	PollInterval time.Duration
	// SampleWindow span after the first trade of an interval averaged into the sample price.
	SampleWindow time.Duration
	// From start of history, zero starts from the current interval.
	From time.Time
}

// Aggregator polls a trade source and publishes candles on the market routes.
type Aggregator struct {
	src    source.TradeSource
	bus    events.Publisher
	logger *zap.Logger
	stats  Stats
	now    func() time.Time

	pollInterval time.Duration
	sampleWindow time.Duration
	interval     time.Duration

	// polling guards a single in-flight poll
	polling sync.Mutex

	// fields below are only touched while polling is held
	cursor       time.Time
	primed       bool
	historyFired bool
	candles      *series
	small        *series
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithStats sets the aggregation counters sink.
func WithStats(s Stats) Option {
	return func(a *Aggregator) {
		a.stats = s
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New creates an Aggregator.
func New(src source.TradeSource, bus events.Publisher, cfg Config, logger *zap.Logger, opts ...Option) (*Aggregator, error) {
	if src == nil {
		return nil, errors.New("trade source is required")
	}
	if bus == nil {
		return nil, errors.New("event publisher is required")
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Interval < time.Millisecond || cfg.Interval%time.Millisecond != 0 {
		return nil, errors.Errorf("invalid candle interval %s", cfg.Interval)
	}
	if cfg.SmallInterval < 0 || cfg.SmallInterval%time.Millisecond != 0 {
		return nil, errors.Errorf("invalid small candle interval %s", cfg.SmallInterval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Aggregator{
		src:          src,
		bus:          bus,
		logger:       logger,
		stats:        nopStats{},
		now:          time.Now,
		pollInterval: cfg.PollInterval,
		sampleWindow: cfg.SampleWindow,
		interval:     cfg.Interval,
		candles:      newSeries(string(events.TopicCandle), cfg.Interval),
	}
	if cfg.SmallInterval > 0 {
		a.small = newSeries(string(events.TopicSmallCandle), cfg.SmallInterval)
	}
	for _, opt := range opts {
		opt(a)
	}

	if !cfg.From.IsZero() {
		// start at the boundary so the first candle covers a whole interval
		a.cursor = a.candles.bucket(cfg.From).Add(-time.Millisecond)
		a.primed = true
	}

	return a, nil
}

// Run polls the source every poll interval until ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Every(a.pollInterval).SingletonMode().Do(func() {
		if err := a.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("candle poll failed", zap.Error(err))
		}
	})
	if err != nil {
		return errors.Wrap(err, "schedule candle polling")
	}

	a.logger.Info("candle aggregator started",
		zap.Duration("interval", a.interval),
		zap.Duration("poll_interval", a.pollInterval),
		zap.Time("cursor", a.cursor))

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	a.logger.Info("candle aggregator stopped")
	return nil
}

// Poll fetches trades newer than the cursor and publishes every interval they close.
// A poll started while another one is in flight returns immediately.
func (a *Aggregator) Poll(ctx context.Context) error {
	if !a.polling.TryLock() {
		a.logger.Debug("poll already in flight, skipping")
		return nil
	}
	defer a.polling.Unlock()

	q := source.TradeQuery{Since: a.cursor, Until: a.now().Add(a.interval)}
	trades, err := a.src.GetTrades(ctx, q)
	if err != nil {
		if errors.Is(err, source.ErrNoData) {
			a.logger.Warn("no usable trade data, waiting for next poll", zap.Error(err))
			return nil
		}
		return errors.Wrap(err, "fetch trades")
	}
	if len(trades) == 0 {
		a.logger.Debug("no new trades", zap.Time("since", a.cursor))
		return nil
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})
	a.stats.ObserveTrades(len(trades))

	if !a.primed {
		a.prime(trades[len(trades)-1].Timestamp)
		return nil
	}

	fresh := trades[:0:0]
	late := 0
	for _, t := range trades {
		if !t.Timestamp.After(a.cursor) {
			late++
			continue
		}
		fresh = append(fresh, t)
	}
	if late > 0 {
		a.stats.ObserveLateTrades(late)
		a.logger.Warn("dropped late trades", zap.Int("count", late), zap.Time("cursor", a.cursor))
	}

	closed := a.candles.advance(fresh, a.sampleWindow)
	var small []domain.Candle
	if a.small != nil {
		small = a.small.advance(fresh, a.sampleWindow)
	}

	a.emit(ctx, a.small, small)
	a.emit(ctx, a.candles, closed)
	a.moveCursor()

	return nil
}

// prime starts the series at the interval of the newest trade. The trades before it may not
// cover their interval completely, so nothing is emitted until the next poll refetches from the boundary.
func (a *Aggregator) prime(newest time.Time) {
	a.candles.prime(newest)
	if a.small != nil {
		a.small.prime(newest)
	}
	a.primed = true
	a.moveCursor()

	a.logger.Info("candle aggregator primed", zap.Time("open_interval", a.candles.open))
}

// moveCursor points the cursor at the last instant before the earliest open interval.
func (a *Aggregator) moveCursor() {
	open := a.candles.open
	if a.small != nil && !a.small.open.IsZero() && a.small.open.Before(open) {
		open = a.small.open
	}
	if open.IsZero() {
		return
	}
	if next := open.Add(-time.Millisecond); next.After(a.cursor) {
		a.cursor = next
	}
}

// emit publishes closed candles in order. A failing consumer is logged and the candle is not redelivered.
func (a *Aggregator) emit(ctx context.Context, s *series, candles []domain.Candle) {
	if s == nil {
		return
	}

	for _, c := range candles {
		if s == a.candles && !a.historyFired {
			a.historyFired = true
			a.publish(ctx, events.TopicHistory, c)
		}

		a.stats.ObserveCandle(s.topic, c.Synthetic)
		a.publish(ctx, events.Topic(s.topic), c)
	}
}

func (a *Aggregator) publish(ctx context.Context, topic events.Topic, c domain.Candle) {
	a.logger.Debug("publishing candle", zap.String("topic", string(topic)), zap.Stringer("candle", c))

	if err := a.bus.Publish(ctx, events.EmitterMarket, topic, c); err != nil {
		a.logger.Error("candle consumer failed",
			zap.String("topic", string(topic)),
			zap.Time("start", c.Start),
			zap.Error(err))
	}
}

// Cursor returns the timestamp after which the next poll fetches trades.
func (a *Aggregator) Cursor() time.Time {
	a.polling.Lock()
	defer a.polling.Unlock()
	return a.cursor
}
