package source

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

type mockTradeSource struct {
	mock.Mock
}

func (m *mockTradeSource) GetTrades(ctx context.Context, q TradeQuery) ([]domain.Trade, error) {
	args := m.Called(ctx, q)
	trades, _ := args.Get(0).([]domain.Trade)
	return trades, args.Error(1)
}

func (m *mockTradeSource) GetPortfolio(ctx context.Context) (domain.Portfolio, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Portfolio), args.Error(1)
}

func (m *mockTradeSource) Buy(ctx context.Context, req domain.OrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockTradeSource) Sell(ctx context.Context, req domain.OrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockTradeSource) CheckOrder(ctx context.Context, id string) (domain.OrderStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.OrderStatus), args.Error(1)
}

func (m *mockTradeSource) CancelOrder(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
