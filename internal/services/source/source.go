// Package source adapts exchanges to the uniform trade source contract consumed by the pipeline.
package source

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

var (
	// ErrNoData marks an empty or malformed upstream response.
	ErrNoData = errors.New("no data")
	// ErrOrderNotFound is returned when the exchange does not know the order.
	ErrOrderNotFound = errors.New("order not found")
	// ErrReadOnly is returned by sources that cannot place orders.
	ErrReadOnly = errors.New("source does not support orders")
)

// TradeQuery selects trades by execution time.
type TradeQuery struct {
	// Since exclusive lower bound, zero means the most recent trades.
	Since time.Time
	// Until inclusive upper bound, zero means now.
	Until time.Time
	// Descending returns newest trades first.
	Descending bool
}

// TradeSource uniform capability contract of an exchange.
type TradeSource interface {
	GetTrades(ctx context.Context, q TradeQuery) ([]domain.Trade, error)
	GetPortfolio(ctx context.Context) (domain.Portfolio, error)
	// Buy places a limit buy order and returns its identifier.
	Buy(ctx context.Context, req domain.OrderRequest) (string, error)
	// Sell places a limit sell order and returns its identifier.
	Sell(ctx context.Context, req domain.OrderRequest) (string, error)
	CheckOrder(ctx context.Context, id string) (domain.OrderStatus, error)
	CancelOrder(ctx context.Context, id string) error
}

// selectTrades filters trades to the query window and orders them by timestamp.
// Ties keep their arrival order.
func selectTrades(trades []domain.Trade, q TradeQuery, now time.Time) []domain.Trade {
	until := q.Until
	if until.IsZero() {
		until = now
	}

	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if !q.Since.IsZero() && !t.Timestamp.After(q.Since) {
			continue
		}
		if t.Timestamp.After(until) {
			continue
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.Descending {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	return out
}
