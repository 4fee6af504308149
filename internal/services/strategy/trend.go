package strategy

import "github.com/vadiminshakov/trendwatch/internal/domain"

// Trend tracks how long a direction has held and fires once per persisted trend.
type Trend struct {
	state       domain.TrendState
	persistence int
}

func newTrend(persistence int) *Trend {
	return &Trend{state: domain.NewTrendState(), persistence: persistence}
}

// Observe feeds the direction qualified by the current candle and returns the advice to emit.
// A change of direction discards the previous trend. A neutral direction leaves the trend untouched.
func (t *Trend) Observe(dir domain.TrendDirection) domain.Recommendation {
	if dir == domain.TrendDirectionNone {
		return domain.RecommendationNone
	}

	if t.state.Direction != dir {
		t.state = domain.TrendState{Direction: dir}
	}

	t.state.Duration++
	if t.state.Duration >= t.persistence {
		t.state.Persisted = true
	}

	if t.state.Persisted && !t.state.Adviced {
		t.state.Adviced = true
		return recommend(dir)
	}

	return domain.RecommendationNone
}

// TrendState returns a copy of the current state.
func (t *Trend) TrendState() domain.TrendState {
	return t.state
}
