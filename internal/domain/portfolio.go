package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Portfolio balances of the traded pair.
type Portfolio struct {
	// Asset free balance of the base currency.
	Asset decimal.Decimal
	// Currency free balance of the quote currency.
	Currency decimal.Decimal
}

// String returns a human-readable string representation.
func (p Portfolio) String() string {
	return fmt.Sprintf("asset: %s currency: %s", p.Asset, p.Currency)
}

// OrderSide buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderRequest arguments of a limit order. The client ID makes replays of the same request idempotent.
type OrderRequest struct {
	ClientID string
	Amount   decimal.Decimal
	Price    decimal.Decimal
}

// OrderStatus execution state of a placed order.
type OrderStatus struct {
	ID       string
	Filled   bool
	Open     bool
	Executed decimal.Decimal
}
