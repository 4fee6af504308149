package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/indicators"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		required int
		inds     []string
	}{
		{name: MethodPPORSI, required: 26, inds: []string{"ppo", "rsi"}},
		{name: MethodEMADiff, required: 21, inds: []string{"dema"}},
		{name: MethodMACD, required: 21, inds: []string{"macd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.name, Settings{})
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Name())

			reg := indicators.NewRegistry()
			required, err := m.Init(reg)
			require.NoError(t, err)
			assert.Equal(t, tt.required, required)
			assert.Equal(t, tt.inds, reg.Names())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New("martingale", Settings{})
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = New(MethodEMADiff, Settings{PersistenceThreshold: -1})
	assert.Error(t, err)

	m, err := New(MethodMACD, Settings{ShortPeriod: 30, LongPeriod: 20, SignalPeriod: -1})
	require.NoError(t, err)
	_, err = m.Init(indicators.NewRegistry())
	assert.Error(t, err)
}

func TestSettings_WithDefaults(t *testing.T) {
	d, err := DefaultSettings(MethodPPORSI)
	require.NoError(t, err)

	s := Settings{RSILow: Float(25), RequiredHistory: 5}.withDefaults(d)
	assert.Equal(t, 25.0, s.RSILow)
	assert.Equal(t, 70.0, s.RSIHigh)
	assert.Equal(t, 12, s.ShortPeriod)
	assert.Equal(t, 5, s.RequiredHistory)
	assert.Equal(t, -120.0, s.PPOWeightHigh)

	s = Settings{}.withDefaults(d)
	assert.Equal(t, 26, s.RequiredHistory)
}

func TestSettings_ExplicitZeroKept(t *testing.T) {
	d, err := DefaultSettings(MethodEMADiff)
	require.NoError(t, err)

	s := Settings{BuyThreshold: Float(0), SellThreshold: Float(0), RSILow: Float(0)}.withDefaults(d)
	assert.Equal(t, 0.0, s.BuyThreshold)
	assert.Equal(t, 0.0, s.SellThreshold)
	assert.Equal(t, 0.0, s.RSILow)

	s = Settings{}.withDefaults(d)
	assert.Equal(t, 0.25, s.BuyThreshold)
	assert.Equal(t, -0.25, s.SellThreshold)
}

func TestEMADiff_ZeroThresholds(t *testing.T) {
	// the EMA gap of a slow climb stays well under the default 0.25 percent
	prices := series(100, 0.01, 30)

	tests := []struct {
		name     string
		settings Settings
		advices  []domain.Recommendation
	}{
		{
			name:     "explicit zero",
			settings: Settings{BuyThreshold: Float(0), SellThreshold: Float(0), RequiredHistory: 1},
			advices:  []domain.Recommendation{domain.RecommendationLong},
		},
		{
			name:     "defaults",
			settings: Settings{RequiredHistory: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(MethodEMADiff, tt.settings)
			require.NoError(t, err)
			bus := &adviceBus{}
			a, err := NewAdvisor(m, bus, AdvisorConfig{Portfolio: decimal.NewFromInt(1)}, nil)
			require.NoError(t, err)

			feed(t, a, candles(prices...))

			var got []domain.Recommendation
			for _, advice := range bus.hard() {
				got = append(got, advice.Recommendation)
			}
			assert.Equal(t, tt.advices, got)
		})
	}
}
