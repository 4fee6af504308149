package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

const (
	up   = domain.TrendDirectionUp
	down = domain.TrendDirectionDown
	none = domain.TrendDirectionNone
)

func observeAll(tr *Trend, dirs ...domain.TrendDirection) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, tr.Observe(d))
	}
	return out
}

func TestTrend_AdvisesOncePerPersistedTrend(t *testing.T) {
	tr := newTrend(2)
	got := observeAll(tr, up, up, up, up, up)

	assert.Equal(t, []domain.Recommendation{
		domain.RecommendationNone,
		domain.RecommendationLong,
		domain.RecommendationNone,
		domain.RecommendationNone,
		domain.RecommendationNone,
	}, got)
	assert.Equal(t, domain.TrendState{Direction: up, Duration: 5, Persisted: true, Adviced: true}, tr.TrendState())
}

func TestTrend_ResetsOnDirectionChange(t *testing.T) {
	tr := newTrend(2)
	observeAll(tr, up, up, up)

	assert.Equal(t, domain.RecommendationNone, tr.Observe(down))
	assert.Equal(t, domain.TrendState{Direction: down, Duration: 1}, tr.TrendState())

	assert.Equal(t, domain.RecommendationShort, tr.Observe(down))

	// back up after a persisted down trend starts from scratch
	assert.Equal(t, domain.RecommendationNone, tr.Observe(up))
	assert.Equal(t, domain.TrendState{Direction: up, Duration: 1}, tr.TrendState())
}

func TestTrend_NeutralBand(t *testing.T) {
	t.Run("does not reset the trend", func(t *testing.T) {
		tr := newTrend(2)
		got := observeAll(tr, up, up, none, none, up)
		assert.Equal(t, domain.RecommendationLong, got[1])
		assert.Equal(t, domain.RecommendationNone, got[4])
		assert.Equal(t, 3, tr.TrendState().Duration)
	})

	t.Run("opposite direction after band resets", func(t *testing.T) {
		tr := newTrend(2)
		got := observeAll(tr, up, up, none, down, down)
		assert.Equal(t, []domain.Recommendation{
			domain.RecommendationNone,
			domain.RecommendationLong,
			domain.RecommendationNone,
			domain.RecommendationNone,
			domain.RecommendationShort,
		}, got)
	})

	t.Run("initial state", func(t *testing.T) {
		tr := newTrend(1)
		assert.Equal(t, domain.RecommendationNone, tr.Observe(none))
		assert.Equal(t, domain.NewTrendState(), tr.TrendState())
	})
}

func TestTrend_PersistenceOfOneAdvisesImmediately(t *testing.T) {
	tr := newTrend(1)
	assert.Equal(t, []domain.Recommendation{
		domain.RecommendationShort,
		domain.RecommendationNone,
		domain.RecommendationLong,
	}, observeAll(tr, down, down, up))
}
