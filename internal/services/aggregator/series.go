package aggregator

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

// series folds sorted trades into contiguous candles of one interval width.
// The newest interval seen stays open until a trade from a later interval proves it closed.
type series struct {
	topic    string
	interval time.Duration
	// open start of the interval still collecting trades, zero before the first trade
	open      time.Time
	lastClose float64
	hasClose  bool
}

func newSeries(topic string, interval time.Duration) *series {
	return &series{topic: topic, interval: interval}
}

// bucket returns the start of the interval containing ts, aligned to the Unix epoch in UTC.
func (s *series) bucket(ts time.Time) time.Time {
	ms := ts.UnixMilli()
	width := s.interval.Milliseconds()
	start := ms - ms%width
	if ms < 0 && ms%width != 0 {
		start -= width
	}
	return time.UnixMilli(start).UTC()
}

// prime makes the interval of ts the open one without emitting anything.
func (s *series) prime(ts time.Time) {
	s.open = s.bucket(ts)
}

// advance consumes trades sorted by timestamp and returns the candles of every interval closed by them,
// synthesizing flat candles for intervals without trades. Trades before the open interval are ignored.
func (s *series) advance(trades []domain.Trade, sampleWindow time.Duration) []domain.Candle {
	if len(trades) == 0 {
		return nil
	}

	newest := s.bucket(trades[len(trades)-1].Timestamp)
	if s.open.IsZero() {
		s.open = s.bucket(trades[0].Timestamp)
	}

	i := 0
	for i < len(trades) && trades[i].Timestamp.Before(s.open) {
		i++
	}

	var out []domain.Candle
	for start := s.open; start.Before(newest); start = start.Add(s.interval) {
		end := start.Add(s.interval)
		j := i
		for j < len(trades) && trades[j].Timestamp.Before(end) {
			j++
		}

		var c domain.Candle
		switch {
		case j > i:
			c = buildCandle(start, trades[i:j], sampleWindow)
		case s.hasClose:
			c = domain.FlatCandle(start, s.lastClose)
		default:
			i = j
			continue
		}
		i = j

		out = append(out, c)
		s.lastClose = c.Close
		s.hasClose = true
	}

	if newest.After(s.open) {
		s.open = newest
	}

	return out
}

// buildCandle computes OHLCV over the trades of one interval.
func buildCandle(start time.Time, trades []domain.Trade, sampleWindow time.Duration) domain.Candle {
	first := trades[0]
	open := first.Price
	high, low := first.Price, first.Price
	volume := decimal.Zero
	notional := decimal.Zero
	priceSum := decimal.Zero

	sampleSum := decimal.Zero
	sampled := 0
	sampleEnd := first.Timestamp.Add(sampleWindow)

	for _, t := range trades {
		if t.Price.GreaterThan(high) {
			high = t.Price
		}
		if t.Price.LessThan(low) {
			low = t.Price
		}
		volume = volume.Add(t.Amount)
		notional = notional.Add(t.Price.Mul(t.Amount))
		priceSum = priceSum.Add(t.Price)

		if sampleWindow > 0 && t.Timestamp.Before(sampleEnd) {
			sampleSum = sampleSum.Add(t.Price)
			sampled++
		}
	}

	count := decimal.NewFromInt(int64(len(trades)))
	closePrice := trades[len(trades)-1].Price

	vwp := priceSum.Div(count)
	if !volume.IsZero() {
		vwp = notional.Div(volume)
	}

	sample := closePrice
	if sampled > 0 {
		sample = sampleSum.Div(decimal.NewFromInt(int64(sampled)))
	}

	return domain.Candle{
		Start:  start,
		Open:   open.InexactFloat64(),
		High:   high.InexactFloat64(),
		Low:    low.InexactFloat64(),
		Close:  closePrice.InexactFloat64(),
		Volume: volume.InexactFloat64(),
		VWP:    vwp.InexactFloat64(),
		Sample: sample.InexactFloat64(),
		Trades: len(trades),
	}
}
