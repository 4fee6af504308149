package domain

// TrendDirection direction of the trend a method is tracking.
type TrendDirection string

const (
	TrendDirectionNone TrendDirection = "none"
	TrendDirectionUp   TrendDirection = "up"
	TrendDirectionDown TrendDirection = "down"
)

// TrendState per-method trend bookkeeping, mutated only by the method's check step.
type TrendState struct {
	Direction TrendDirection
	// Duration consecutive qualifying candles in Direction.
	Duration int
	// Persisted is set once Duration reached the persistence threshold.
	Persisted bool
	// Adviced is set once a non-neutral advice was emitted for this trend.
	Adviced bool
}

// NewTrendState returns the initial trend state.
func NewTrendState() TrendState {
	return TrendState{Direction: TrendDirectionNone}
}
