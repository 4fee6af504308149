package indicators

import (
	"math"
	"testing"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var emaPrices = []float64{
	81, 24, 75, 21,
	34, 25, 72, 92,
	99, 2, 86, 80,
	76, 8, 87, 75,
	32, 65, 41, 9,
	13, 26, 56, 28,
	65, 58, 17, 90,
	87, 86, 99, 3,
	70, 1, 27, 9,
	92, 68, 9,
}

var ema10Results = []float64{
	81,
	70.63636363636363,
	71.4297520661157,
	62.26070623591284,
	57.12239601120141,
	51.28196037280115,
	55.04887666865549,
	61.767262728899944,
	68.53685132364541,
	56.43924199207351,
	61.81392526624197,
	65.12048430874341,
	67.09857807079005,
	56.35338205791913,
	61.92549441102474,
	64.30267724538388,
	58.42946320076862,
	59.624106255174325,
	56.2379051178699,
	47.649195096439,
	41.349341442541004,
	38.55855208935173,
	41.72972443674232,
	39.233410902789174,
	43.91824528410023,
	46.47856432335473,
	41.118825355472055,
	50.00631165447713,
	56.73243680820856,
	62.053811933988825,
	68.77130067326358,
	56.81288236903384,
	59.21054012011859,
	48.626805552824294,
	44.69465908867441,
	38.204721072551784,
	47.985680877542364,
	51.62464799071648,
	43.874711992404386,
}

func TestEMA_ReferenceValues(t *testing.T) {
	require.Len(t, ema10Results, len(emaPrices))

	ema := NewEMA(10)
	for i, p := range emaPrices {
		ema.Update(p)
		assert.InDelta(t, ema10Results[i], ema.Result(), 1e-9, "sample %d", i)
	}
	assert.Equal(t, len(emaPrices), ema.Age())
}

func TestEMA_FirstSampleIsPrice(t *testing.T) {
	ema := NewEMA(21)
	ema.Update(123.45)
	assert.InDelta(t, 123.45, ema.Result(), 1e-12)
}

func TestWilderEMA(t *testing.T) {
	ema := NewWilderEMA(4)
	ema.Update(10)
	ema.Update(14)
	// 14/4 + 10*3/4
	assert.InDelta(t, 11.0, ema.Result(), 1e-12)
}

// syntheticSeries returns a long deterministic price path.
func syntheticSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = 100 + 10*math.Sin(x/7) + 3*math.Cos(x/3) + 0.05*x
	}
	return out
}

// After enough samples the seed is forgotten, so the streaming EMA must converge to an
// independent implementation regardless of how that one seeds its first value.
func TestEMA_ConvergesToReference(t *testing.T) {
	prices := syntheticSeries(600)

	ema := NewEMA(10)
	for _, p := range prices {
		ema.Update(p)
	}

	ref := helper.ChanToSlice(trend.NewEmaWithPeriod[float64](10).Compute(helper.SliceToChan(prices)))
	require.NotEmpty(t, ref)
	assert.InDelta(t, ref[len(ref)-1], ema.Result(), 1e-6)
}
