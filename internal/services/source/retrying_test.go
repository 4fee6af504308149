package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/retrier"
)

var errReset = errors.New("read tcp 10.0.0.1:443: connection reset by peer")

func fastRetrier() *retrier.Retrier {
	return retrier.New(retrier.WithInitialInterval(time.Millisecond))
}

func TestRetrying_BuyReplaysSameRequest(t *testing.T) {
	next := &mockTradeSource{}
	req := domain.OrderRequest{
		ClientID: "6f1c1b1e-buy",
		Amount:   decimal.RequireFromString("0.25"),
		Price:    decimal.RequireFromString("30123.5"),
	}

	next.On("Buy", mock.Anything, req).Return("", errReset).Twice()
	next.On("Buy", mock.Anything, req).Return(req.ClientID, nil).Once()

	id, err := NewRetrying(next, fastRetrier()).Buy(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ClientID, id)
	next.AssertNumberOfCalls(t, "Buy", 3)
	next.AssertExpectations(t)
}

func TestRetrying_GetTradesKeepsQuery(t *testing.T) {
	next := &mockTradeSource{}
	q := TradeQuery{Since: time.Unix(1000, 0), Until: time.Unix(2000, 0)}
	trades := []domain.Trade{{ID: "1", Timestamp: time.Unix(1500, 0), Price: decimal.NewFromInt(1), Amount: decimal.NewFromInt(1)}}

	next.On("GetTrades", mock.Anything, q).Return(nil, errReset).Once()
	next.On("GetTrades", mock.Anything, q).Return(trades, nil).Once()

	got, err := NewRetrying(next, fastRetrier()).GetTrades(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, trades, got)
	next.AssertExpectations(t)
}

func TestRetrying_UnrecoverableIsNotReplayed(t *testing.T) {
	next := &mockTradeSource{}
	next.On("CancelOrder", mock.Anything, "x").Return(errors.New("Order does not exist")).Once()

	err := NewRetrying(next, fastRetrier()).CancelOrder(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, retrier.ErrUnrecoverable)
	next.AssertNumberOfCalls(t, "CancelOrder", 1)
}

func TestRetrying_Portfolio(t *testing.T) {
	next := &mockTradeSource{}
	want := domain.Portfolio{Asset: decimal.NewFromInt(2), Currency: decimal.NewFromInt(100)}
	next.On("GetPortfolio", mock.Anything).Return(domain.Portfolio{}, errReset).Once()
	next.On("GetPortfolio", mock.Anything).Return(want, nil).Once()

	got, err := NewRetrying(next, fastRetrier()).GetPortfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
