package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Advice terminal output of a trading method.
type Advice struct {
	// Recommendation long, short or none for a neutral heartbeat.
	Recommendation Recommendation `json:"recommendation,omitempty"`
	// Portfolio fraction of the portfolio in [0,1] to allocate.
	Portfolio decimal.Decimal `json:"portfolio"`
	// Pair market the advice applies to.
	Pair string `json:"pair"`
	// Method name of the trading method that produced the advice.
	Method string `json:"method"`
	// Price candle price the decision was made on.
	Price float64 `json:"price"`
	// CandleStart start of the candle that triggered the advice.
	CandleStart time.Time `json:"candle_start"`
	// EmittedAt wall clock time of emission.
	EmittedAt time.Time `json:"emitted_at"`
}

// IsSoft reports whether the advice carries no recommendation.
func (a Advice) IsSoft() bool {
	return a.Recommendation == RecommendationNone
}

// String returns a human-readable string representation.
func (a Advice) String() string {
	if a.IsSoft() {
		return fmt.Sprintf("%s %s soft advice @ %.8f", a.Pair, a.Method, a.Price)
	}
	return fmt.Sprintf("%s %s advice %s (portfolio %s) @ %.8f", a.Pair, a.Method, a.Recommendation, a.Portfolio, a.Price)
}

// AdviceRecord bundles a journaled advice with its WAL index.
type AdviceRecord struct {
	Index  uint64
	Advice Advice
}
