package source

import (
	"context"

	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/retrier"
)

// Retrying replays failed source calls through a retrier. Every replay receives the argument
// value of the original call, which keeps order placement idempotent through the client ID.
type Retrying struct {
	next TradeSource
	r    *retrier.Retrier
}

// NewRetrying decorates next with r.
func NewRetrying(next TradeSource, r *retrier.Retrier) *Retrying {
	return &Retrying{next: next, r: r}
}

func (s *Retrying) GetTrades(ctx context.Context, q TradeQuery) ([]domain.Trade, error) {
	return retrier.Invoke(s.r, ctx, "GetTrades", q, s.next.GetTrades)
}

func (s *Retrying) GetPortfolio(ctx context.Context) (domain.Portfolio, error) {
	return retrier.Invoke(s.r, ctx, "GetPortfolio", struct{}{}, func(ctx context.Context, _ struct{}) (domain.Portfolio, error) {
		return s.next.GetPortfolio(ctx)
	})
}

func (s *Retrying) Buy(ctx context.Context, req domain.OrderRequest) (string, error) {
	return retrier.Invoke(s.r, ctx, "Buy", req, s.next.Buy)
}

func (s *Retrying) Sell(ctx context.Context, req domain.OrderRequest) (string, error) {
	return retrier.Invoke(s.r, ctx, "Sell", req, s.next.Sell)
}

func (s *Retrying) CheckOrder(ctx context.Context, id string) (domain.OrderStatus, error) {
	return retrier.Invoke(s.r, ctx, "CheckOrder", id, s.next.CheckOrder)
}

func (s *Retrying) CancelOrder(ctx context.Context, id string) error {
	_, err := retrier.Invoke(s.r, ctx, "CancelOrder", id, func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, s.next.CancelOrder(ctx, id)
	})
	return err
}
