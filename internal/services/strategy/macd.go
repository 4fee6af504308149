package strategy

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/indicators"
)

// macdMethod follows the MACD histogram crossing fixed up and down thresholds.
type macdMethod struct {
	*Trend
	s    params
	macd *indicators.MACD
}

func newMACD(s params) *macdMethod {
	return &macdMethod{Trend: newTrend(s.PersistenceThreshold), s: s}
}

func (m *macdMethod) Name() string { return MethodMACD }

func (m *macdMethod) Init(reg *indicators.Registry) (int, error) {
	if _, err := reg.Add("macd", indicators.KindMACD, indicators.Params{
		Short:  m.s.ShortPeriod,
		Long:   m.s.LongPeriod,
		Signal: m.s.SignalPeriod,
	}); err != nil {
		return 0, errors.Wrap(err, "add macd indicator")
	}

	var err error
	if m.macd, err = indicators.As[*indicators.MACD](reg, "macd"); err != nil {
		return 0, err
	}

	return m.s.RequiredHistory, nil
}

func (m *macdMethod) Check(domain.Candle) domain.Recommendation {
	hist := m.macd.Result()

	switch {
	case hist > m.s.BuyThreshold:
		return m.Observe(domain.TrendDirectionUp)
	case hist < m.s.SellThreshold:
		return m.Observe(domain.TrendDirectionDown)
	default:
		return m.Observe(domain.TrendDirectionNone)
	}
}

func (m *macdMethod) Readings() map[string]float64 {
	return map[string]float64{
		"macd_short":  m.macd.Short(),
		"macd_long":   m.macd.Long(),
		"macd":        m.macd.Diff(),
		"macd_signal": m.macd.Signal(),
		"macd_hist":   m.macd.Result(),
	}
}
