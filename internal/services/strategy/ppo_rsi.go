package strategy

import (
	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/indicators"
)

// ppoRSI buys when RSI falls under a band shifted by the PPO histogram and sells above it.
type ppoRSI struct {
	*Trend
	s   params
	ppo *indicators.PPO
	rsi *indicators.RSI
}

func newPPORSI(s params) *ppoRSI {
	return &ppoRSI{Trend: newTrend(s.PersistenceThreshold), s: s}
}

func (m *ppoRSI) Name() string { return MethodPPORSI }

func (m *ppoRSI) Init(reg *indicators.Registry) (int, error) {
	if _, err := reg.Add("ppo", indicators.KindPPO, indicators.Params{
		Short:  m.s.ShortPeriod,
		Long:   m.s.LongPeriod,
		Signal: m.s.SignalPeriod,
	}); err != nil {
		return 0, errors.Wrap(err, "add ppo indicator")
	}
	if _, err := reg.Add("rsi", indicators.KindRSI, indicators.Params{Period: m.s.RSIPeriod}); err != nil {
		return 0, errors.Wrap(err, "add rsi indicator")
	}

	var err error
	if m.ppo, err = indicators.As[*indicators.PPO](reg, "ppo"); err != nil {
		return 0, err
	}
	if m.rsi, err = indicators.As[*indicators.RSI](reg, "rsi"); err != nil {
		return 0, err
	}

	return m.s.RequiredHistory, nil
}

// thresholds returns the RSI band adjusted by the PPO histogram.
func (m *ppoRSI) thresholds() (low, high float64) {
	hist := m.ppo.Histogram()
	return m.s.RSILow + hist*m.s.PPOWeightLow, m.s.RSIHigh + hist*m.s.PPOWeightHigh
}

func (m *ppoRSI) Check(domain.Candle) domain.Recommendation {
	low, high := m.thresholds()
	rsi := m.rsi.Result()

	switch {
	case rsi < low:
		return m.Observe(domain.TrendDirectionUp)
	case rsi > high:
		return m.Observe(domain.TrendDirectionDown)
	default:
		return m.Observe(domain.TrendDirectionNone)
	}
}

func (m *ppoRSI) Readings() map[string]float64 {
	low, high := m.thresholds()
	return map[string]float64{
		"ppo_short":          m.ppo.Short(),
		"ppo_long":           m.ppo.Long(),
		"macd":               m.ppo.MACD(),
		"macd_signal":        m.ppo.MACDSignal(),
		"macd_hist":          m.ppo.MACD() - m.ppo.MACDSignal(),
		"ppo":                m.ppo.Result(),
		"ppo_signal":         m.ppo.PPOSignal(),
		"ppo_hist":           m.ppo.Histogram(),
		"rsi":                m.rsi.Result(),
		"rsi_threshold_low":  low,
		"rsi_threshold_high": high,
	}
}
