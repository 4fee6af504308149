package strategy

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/indicators"
)

// emaDiff rides the trend given by the percentage gap between a short and a long EMA.
type emaDiff struct {
	*Trend
	s    params
	dema *indicators.DEMA
}

func newEMADiff(s params) *emaDiff {
	return &emaDiff{Trend: newTrend(s.PersistenceThreshold), s: s}
}

func (m *emaDiff) Name() string { return MethodEMADiff }

func (m *emaDiff) Init(reg *indicators.Registry) (int, error) {
	if _, err := reg.Add("dema", indicators.KindDEMA, indicators.Params{
		Short: m.s.ShortPeriod,
		Long:  m.s.LongPeriod,
	}); err != nil {
		return 0, errors.Wrap(err, "add dema indicator")
	}

	var err error
	if m.dema, err = indicators.As[*indicators.DEMA](reg, "dema"); err != nil {
		return 0, err
	}

	return m.s.RequiredHistory, nil
}

func (m *emaDiff) Check(domain.Candle) domain.Recommendation {
	diff := m.dema.Result()

	switch {
	case diff > m.s.BuyThreshold:
		return m.Observe(domain.TrendDirectionUp)
	case diff < m.s.SellThreshold:
		return m.Observe(domain.TrendDirectionDown)
	default:
		return m.Observe(domain.TrendDirectionNone)
	}
}

func (m *emaDiff) Readings() map[string]float64 {
	return map[string]float64{
		"ema_short": m.dema.Short(),
		"ema_long":  m.dema.Long(),
		"ema_diff":  m.dema.Result(),
	}
}
