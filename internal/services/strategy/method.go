// Package strategy holds the trading methods and the advisor that runs them candle by candle.
package strategy

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/indicators"
)

// ErrUnknownMethod is returned for a method name that is not registered.
var ErrUnknownMethod = errors.New("unknown trading method")

const (
	MethodPPORSI  = "ppo_rsi"
	MethodEMADiff = "ema_diff"
	MethodMACD    = "macd"
)

// Method per-candle decision logic built on registered indicators.
type Method interface {
	Name() string
	// Init registers the method's indicators and returns the number of candles
	// required before Check is called.
	Init(reg *indicators.Registry) (requiredHistory int, err error)
	// Check decides on a candle after indicators were updated with it.
	// RecommendationNone means no new decision.
	Check(candle domain.Candle) domain.Recommendation
}

// Updater is implemented by methods doing bookkeeping on every candle, including warm-up ones.
type Updater interface {
	Update(candle domain.Candle)
}

// Reporter exposes the latest indicator readings for logs and metrics.
type Reporter interface {
	Readings() map[string]float64
}

// Settings tunables shared by the methods. Zero integers and nil floats fall back
// to the method defaults, an explicit zero float is kept.
type Settings struct {
	ShortPeriod          int
	LongPeriod           int
	SignalPeriod         int
	BuyThreshold         *float64
	SellThreshold        *float64
	PersistenceThreshold int
	RSIPeriod            int
	RSILow               *float64
	RSIHigh              *float64
	PPOWeightLow         *float64
	PPOWeightHigh        *float64
	// RequiredHistory overrides the warm-up length, zero uses the long period.
	RequiredHistory int
}

// Float returns a pointer to v, for the optional Settings fields.
func Float(v float64) *float64 {
	return &v
}

// params resolved settings a method runs with.
type params struct {
	ShortPeriod          int
	LongPeriod           int
	SignalPeriod         int
	BuyThreshold         float64
	SellThreshold        float64
	PersistenceThreshold int
	RSIPeriod            int
	RSILow               float64
	RSIHigh              float64
	PPOWeightLow         float64
	PPOWeightHigh        float64
	RequiredHistory      int
}

// DefaultSettings returns the defaults of the named method.
func DefaultSettings(name string) (Settings, error) {
	switch name {
	case MethodPPORSI:
		return Settings{
			ShortPeriod:          12,
			LongPeriod:           26,
			SignalPeriod:         9,
			PersistenceThreshold: 2,
			RSIPeriod:            14,
			RSILow:               Float(30),
			RSIHigh:              Float(70),
			PPOWeightLow:         Float(120),
			PPOWeightHigh:        Float(-120),
		}, nil
	case MethodEMADiff:
		return Settings{
			ShortPeriod:          10,
			LongPeriod:           21,
			BuyThreshold:         Float(0.25),
			SellThreshold:        Float(-0.25),
			PersistenceThreshold: 1,
		}, nil
	case MethodMACD:
		return Settings{
			ShortPeriod:          10,
			LongPeriod:           21,
			SignalPeriod:         9,
			BuyThreshold:         Float(0.025),
			SellThreshold:        Float(-0.025),
			PersistenceThreshold: 1,
		}, nil
	default:
		return Settings{}, errors.Wrapf(ErrUnknownMethod, "%q", name)
	}
}

// withDefaults resolves s, taking unset fields from d.
func (s Settings) withDefaults(d Settings) params {
	intOr := func(v, def int) int {
		if v == 0 {
			return def
		}
		return v
	}
	floatOr := func(v, def *float64) float64 {
		switch {
		case v != nil:
			return *v
		case def != nil:
			return *def
		default:
			return 0
		}
	}

	p := params{
		ShortPeriod:          intOr(s.ShortPeriod, d.ShortPeriod),
		LongPeriod:           intOr(s.LongPeriod, d.LongPeriod),
		SignalPeriod:         intOr(s.SignalPeriod, d.SignalPeriod),
		PersistenceThreshold: intOr(s.PersistenceThreshold, d.PersistenceThreshold),
		RSIPeriod:            intOr(s.RSIPeriod, d.RSIPeriod),
		BuyThreshold:         floatOr(s.BuyThreshold, d.BuyThreshold),
		SellThreshold:        floatOr(s.SellThreshold, d.SellThreshold),
		RSILow:               floatOr(s.RSILow, d.RSILow),
		RSIHigh:              floatOr(s.RSIHigh, d.RSIHigh),
		PPOWeightLow:         floatOr(s.PPOWeightLow, d.PPOWeightLow),
		PPOWeightHigh:        floatOr(s.PPOWeightHigh, d.PPOWeightHigh),
		RequiredHistory:      s.RequiredHistory,
	}
	if p.RequiredHistory == 0 {
		p.RequiredHistory = p.LongPeriod
	}

	return p
}

// New creates the named method. Unknown names fail with ErrUnknownMethod.
func New(name string, s Settings) (Method, error) {
	d, err := DefaultSettings(name)
	if err != nil {
		return nil, err
	}
	p := s.withDefaults(d)
	if p.PersistenceThreshold < 1 {
		return nil, errors.Errorf("persistence threshold must be at least 1, got %d", p.PersistenceThreshold)
	}
	if p.RequiredHistory < 0 {
		return nil, errors.Errorf("required history must not be negative, got %d", p.RequiredHistory)
	}

	switch name {
	case MethodPPORSI:
		return newPPORSI(p), nil
	case MethodEMADiff:
		return newEMADiff(p), nil
	default:
		return newMACD(p), nil
	}
}

// recommend maps a confirmed trend direction to a recommendation.
func recommend(dir domain.TrendDirection) domain.Recommendation {
	switch dir {
	case domain.TrendDirectionUp:
		return domain.RecommendationLong
	case domain.TrendDirectionDown:
		return domain.RecommendationShort
	default:
		return domain.RecommendationNone
	}
}
