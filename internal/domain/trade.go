package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade single executed trade reported by an exchange.
type Trade struct {
	// ID exchange trade identifier.
	ID string
	// Timestamp execution time.
	Timestamp time.Time
	// Price execution price in quote currency.
	Price decimal.Decimal
	// Amount quantity of the base currency.
	Amount decimal.Decimal
}

// String returns a human-readable string representation.
func (t Trade) String() string {
	return fmt.Sprintf("trade %s at %s: %s @ %s", t.ID, t.Timestamp.UTC().Format(time.RFC3339), t.Amount, t.Price)
}
