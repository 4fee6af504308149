package domain

import (
	"fmt"
	"strings"
	"time"
)

// Candle OHLCV summary of the trades inside one fixed interval.
type Candle struct {
	// Start interval start, UTC, truncated to the interval boundary.
	Start  time.Time `json:"start"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	// VWP volume weighted price.
	VWP float64 `json:"vwp"`
	// Sample mean trade price over the sampling window at the start of the interval.
	Sample float64 `json:"sample"`
	// Trades number of trades aggregated.
	Trades int `json:"trades"`
	// Synthetic is set for flat candles filling intervals without trades.
	Synthetic bool `json:"synthetic,omitempty"`
}

// FlatCandle builds a synthetic candle carrying the previous close.
func FlatCandle(start time.Time, lastClose float64) Candle {
	return Candle{
		Start:     start,
		Open:      lastClose,
		High:      lastClose,
		Low:       lastClose,
		Close:     lastClose,
		VWP:       lastClose,
		Sample:    lastClose,
		Synthetic: true,
	}
}

// Price returns the candle value selected by field.
func (c Candle) Price(field PriceField) float64 {
	switch field {
	case PriceFieldOpen:
		return c.Open
	case PriceFieldHigh:
		return c.High
	case PriceFieldLow:
		return c.Low
	case PriceFieldVWP:
		return c.VWP
	case PriceFieldSample:
		return c.Sample
	default:
		return c.Close
	}
}

// String returns a human-readable string representation.
func (c Candle) String() string {
	return fmt.Sprintf("candle %s o=%.8f h=%.8f l=%.8f c=%.8f v=%.8f vwp=%.8f",
		c.Start.UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume, c.VWP)
}

// PriceField selects which candle value feeds the indicators.
type PriceField int

const (
	PriceFieldClose PriceField = iota
	PriceFieldOpen
	PriceFieldHigh
	PriceFieldLow
	PriceFieldVWP
	PriceFieldSample
)

var priceFieldNames = map[PriceField]string{
	PriceFieldClose:  "close",
	PriceFieldOpen:   "open",
	PriceFieldHigh:   "high",
	PriceFieldLow:    "low",
	PriceFieldVWP:    "vwp",
	PriceFieldSample: "sample",
}

// String returns the string representation of the price field.
func (f PriceField) String() string {
	if name, ok := priceFieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParsePriceField parses a price field name, empty means close.
func ParsePriceField(s string) (PriceField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriceFieldClose, nil
	}
	for field, name := range priceFieldNames {
		if name == s {
			return field, nil
		}
	}
	return PriceFieldClose, fmt.Errorf("unknown price field %q", s)
}
