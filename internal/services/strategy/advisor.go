package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/events"
	"github.com/vadiminshakov/trendwatch/pkg/indicators"
	"go.uber.org/zap"
)

// Stats receives advisor counters and indicator readings.
type Stats interface {
	ObserveAdvice(method string, rec domain.Recommendation)
	ObserveReadings(method string, readings map[string]float64)
}

type nopStats struct{}

func (nopStats) ObserveAdvice(string, domain.Recommendation) {}
func (nopStats) ObserveReadings(string, map[string]float64)  {}

// AdvisorConfig advisor settings.
type AdvisorConfig struct {
	Pair domain.Pair
	// PriceField candle value fed into the indicators.
	PriceField domain.PriceField
	// Portfolio allocation fraction attached to advice.
	Portfolio decimal.Decimal
}

// Advisor runs a trading method on every candle and publishes its advice.
type Advisor struct {
	method          Method
	updater         Updater
	reporter        Reporter
	registry        *indicators.Registry
	requiredHistory int
	age             int

	cfg    AdvisorConfig
	bus    events.Publisher
	logger *zap.Logger
	stats  Stats
	now    func() time.Time
}

// AdvisorOption configures the Advisor.
type AdvisorOption func(*Advisor)

// WithAdvisorStats sets the advisor counters sink.
func WithAdvisorStats(s Stats) AdvisorOption {
	return func(a *Advisor) {
		a.stats = s
	}
}

// WithAdvisorClock replaces time.Now used for advice timestamps.
func WithAdvisorClock(now func() time.Time) AdvisorOption {
	return func(a *Advisor) {
		a.now = now
	}
}

// NewAdvisor initializes method and builds its indicators.
func NewAdvisor(method Method, bus events.Publisher, cfg AdvisorConfig, logger *zap.Logger, opts ...AdvisorOption) (*Advisor, error) {
	if method == nil {
		return nil, errors.New("trading method is required")
	}
	if bus == nil {
		return nil, errors.New("event publisher is required")
	}
	if cfg.Portfolio.IsNegative() || cfg.Portfolio.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.Errorf("portfolio allocation must be in [0,1], got %s", cfg.Portfolio)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := indicators.NewRegistry()
	required, err := method.Init(registry)
	if err != nil {
		return nil, errors.Wrapf(err, "init trading method %s", method.Name())
	}

	a := &Advisor{
		method:          method,
		registry:        registry,
		requiredHistory: required,
		cfg:             cfg,
		bus:             bus,
		logger:          logger.With(zap.String("method", method.Name())),
		stats:           nopStats{},
		now:             time.Now,
	}
	a.updater, _ = method.(Updater)
	a.reporter, _ = method.(Reporter)
	for _, opt := range opts {
		opt(a)
	}

	a.logger.Info("trading method initialized",
		zap.Strings("indicators", registry.Names()),
		zap.Int("required_history", required),
		zap.String("price_field", cfg.PriceField.String()))

	return a, nil
}

// InitHistory marks the start of the candle stream.
func (a *Advisor) InitHistory(_ context.Context, first domain.Candle) error {
	a.logger.Info("candle history started",
		zap.Time("first_candle", first.Start),
		zap.Int("warmup_candles", a.requiredHistory))
	return nil
}

// ProcessCandle updates the indicators with candle and, once warmed up, checks the method.
func (a *Advisor) ProcessCandle(ctx context.Context, candle domain.Candle) error {
	a.age++
	price := candle.Price(a.cfg.PriceField)
	a.registry.Update(price)

	if a.updater != nil {
		a.updater.Update(candle)
	}

	if a.age < a.requiredHistory {
		a.logger.Debug("warming up", zap.Int("age", a.age), zap.Int("required", a.requiredHistory))
		return nil
	}

	rec := a.method.Check(candle)
	a.report()

	advice := domain.Advice{
		Recommendation: rec,
		Portfolio:      a.cfg.Portfolio,
		Pair:           a.cfg.Pair.String(),
		Method:         a.method.Name(),
		Price:          price,
		CandleStart:    candle.Start,
		EmittedAt:      a.now().UTC(),
	}
	a.stats.ObserveAdvice(a.method.Name(), rec)

	topic := events.TopicSoftAdvice
	if !advice.IsSoft() {
		topic = events.TopicAdvice
		a.logger.Info("advice", zap.Stringer("advice", advice))
	}

	if err := a.bus.Publish(ctx, events.EmitterAdvisor, topic, advice); err != nil {
		return errors.Wrapf(err, "publish %s", topic)
	}

	return nil
}

// report logs the indicator readings and trend state at debug level.
func (a *Advisor) report() {
	if a.reporter == nil {
		return
	}
	readings := a.reporter.Readings()
	a.stats.ObserveReadings(a.method.Name(), readings)

	if ce := a.logger.Check(zap.DebugLevel, "indicator readings"); ce != nil {
		keys := make([]string, 0, len(readings))
		for k := range readings {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]zap.Field, 0, len(keys)+2)
		for _, k := range keys {
			fields = append(fields, zap.Float64(k, readings[k]))
		}
		if t, ok := a.method.(interface{ TrendState() domain.TrendState }); ok {
			state := t.TrendState()
			fields = append(fields, zap.String("trend", string(state.Direction)), zap.Int("trend_duration", state.Duration))
		}
		ce.Write(fields...)
	}
}

// Age returns the number of candles processed.
func (a *Advisor) Age() int {
	return a.age
}
