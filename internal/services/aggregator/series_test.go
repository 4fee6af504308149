package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

func TestBuildCandle(t *testing.T) {
	trades := []domain.Trade{
		trade("1", t0, "100", "1"),
		trade("2", t0.Add(5*time.Second), "110", "3"),
		trade("3", t0.Add(30*time.Second), "90", "1"),
	}

	c := buildCandle(t0, trades, 10*time.Second)
	assert.Equal(t, domain.Candle{
		Start:  t0,
		Open:   100,
		High:   110,
		Low:    90,
		Close:  90,
		Volume: 5,
		VWP:    104,
		Sample: 105,
		Trades: 3,
	}, c)

	t.Run("no sample window", func(t *testing.T) {
		assert.Equal(t, 90.0, buildCandle(t0, trades, 0).Sample)
	})

	t.Run("zero volume falls back to mean price", func(t *testing.T) {
		c := buildCandle(t0, []domain.Trade{trade("1", t0, "100", "0"), trade("2", t0, "110", "0")}, 0)
		assert.Equal(t, 105.0, c.VWP)
		assert.Zero(t, c.Volume)
	})
}

func TestSeries_Bucket(t *testing.T) {
	s := newSeries("candle", 15*time.Minute)
	assert.Equal(t, t0.Add(15*time.Minute), s.bucket(t0.Add(29*time.Minute+59*time.Second)))
	assert.Equal(t, t0, s.bucket(t0))
	assert.Equal(t, t0.Add(-15*time.Minute), s.bucket(t0.Add(-time.Millisecond)))
}

func TestSeries_KeepsNewestIntervalOpen(t *testing.T) {
	s := newSeries("candle", time.Hour)

	out := s.advance([]domain.Trade{trade("1", t0.Add(time.Minute), "100", "1")}, 0)
	assert.Empty(t, out)
	assert.Equal(t, t0, s.open)

	out = s.advance([]domain.Trade{
		trade("1", t0.Add(time.Minute), "100", "1"),
		trade("2", t0.Add(2*time.Hour), "105", "1"),
	}, 0)
	assert.Len(t, out, 2)
	assert.True(t, out[1].Synthetic)
	assert.Equal(t, t0.Add(2*time.Hour), s.open)
}
