package source

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

const (
	binanceTradesLimit = 1000
	// aggregated trades accept at most one hour between startTime and endTime
	binanceMaxWindow = time.Hour - time.Millisecond
)

// Binance trade source backed by the Binance spot API.
type Binance struct {
	client *binance.Client
	pair   domain.Pair
	now    func() time.Time
}

// NewBinance creates a Binance trade source for pair.
func NewBinance(client *binance.Client, pair domain.Pair) *Binance {
	return &Binance{client: client, pair: pair, now: time.Now}
}

// GetTrades fetches aggregated trades in windows of at most one hour. A full page is
// followed by trade id until the window end is passed.
func (b *Binance) GetTrades(ctx context.Context, q TradeQuery) ([]domain.Trade, error) {
	now := b.now()
	until := q.Until
	if until.IsZero() || until.After(now) {
		until = now
	}

	if q.Since.IsZero() {
		aggs, err := b.client.NewAggTradesService().
			Symbol(b.pair.Symbol()).
			Limit(binanceTradesLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch recent trades from Binance for %s", b.pair.String())
		}
		trades, err := convertAggTrades(aggs)
		if err != nil {
			return nil, err
		}
		return selectTrades(trades, q, now), nil
	}

	var out []domain.Trade
	start := q.Since.Add(time.Millisecond)
	for !start.After(until) {
		end := start.Add(binanceMaxWindow)
		if end.After(until) {
			end = until
		}

		aggs, err := b.client.NewAggTradesService().
			Symbol(b.pair.Symbol()).
			StartTime(start.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(binanceTradesLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch trades from Binance for %s", b.pair.String())
		}
		trades, err := convertAggTrades(aggs)
		if err != nil {
			return nil, err
		}
		out = append(out, trades...)

		// a full page continues by trade id, many trades can share one millisecond
		for len(aggs) == binanceTradesLimit {
			lastID, ok := lastAggTradeID(aggs)
			if !ok {
				break
			}
			aggs, err = b.client.NewAggTradesService().
				Symbol(b.pair.Symbol()).
				FromID(lastID + 1).
				Limit(binanceTradesLimit).
				Do(ctx)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to fetch trades from Binance for %s after id %d", b.pair.String(), lastID)
			}

			kept := make([]*binance.AggTrade, 0, len(aggs))
			passed := false
			for _, a := range aggs {
				if a == nil {
					continue
				}
				if a.Timestamp > end.UnixMilli() {
					passed = true
					break
				}
				kept = append(kept, a)
			}
			trades, err := convertAggTrades(kept)
			if err != nil {
				return nil, err
			}
			out = append(out, trades...)
			if passed {
				break
			}
		}

		start = end.Add(time.Millisecond)
	}

	return selectTrades(out, q, now), nil
}

func lastAggTradeID(aggs []*binance.AggTrade) (int64, bool) {
	for i := len(aggs) - 1; i >= 0; i-- {
		if aggs[i] != nil {
			return aggs[i].AggTradeID, true
		}
	}
	return 0, false
}

func convertAggTrades(aggs []*binance.AggTrade) ([]domain.Trade, error) {
	trades := make([]domain.Trade, 0, len(aggs))
	for i, a := range aggs {
		if a == nil {
			continue
		}
		price, err := decimal.NewFromString(a.Price)
		if err != nil {
			return nil, errors.Wrapf(ErrNoData, "failed to parse trade price at index %d: %v", i, err)
		}
		amount, err := decimal.NewFromString(a.Quantity)
		if err != nil {
			return nil, errors.Wrapf(ErrNoData, "failed to parse trade quantity at index %d: %v", i, err)
		}
		trades = append(trades, domain.Trade{
			ID:        strconv.FormatInt(a.AggTradeID, 10),
			Timestamp: time.UnixMilli(a.Timestamp).UTC(),
			Price:     price,
			Amount:    amount,
		})
	}
	return trades, nil
}

// GetPortfolio returns free spot balances of the pair's asset and currency.
func (b *Binance) GetPortfolio(ctx context.Context) (domain.Portfolio, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return domain.Portfolio{}, errors.Wrap(err, "failed to get binance account balance")
	}

	var p domain.Portfolio
	for _, balance := range account.Balances {
		switch balance.Asset {
		case b.pair.From:
			if p.Asset, err = decimal.NewFromString(balance.Free); err != nil {
				return domain.Portfolio{}, errors.Wrap(err, "failed to parse asset balance")
			}
		case b.pair.To:
			if p.Currency, err = decimal.NewFromString(balance.Free); err != nil {
				return domain.Portfolio{}, errors.Wrap(err, "failed to parse currency balance")
			}
		}
	}

	return p, nil
}

func (b *Binance) Buy(ctx context.Context, req domain.OrderRequest) (string, error) {
	return b.placeOrder(ctx, binance.SideTypeBuy, req)
}

func (b *Binance) Sell(ctx context.Context, req domain.OrderRequest) (string, error) {
	return b.placeOrder(ctx, binance.SideTypeSell, req)
}

// placeOrder places a GTC limit order; the client order ID doubles as the order identifier.
func (b *Binance) placeOrder(ctx context.Context, side binance.SideType, req domain.OrderRequest) (string, error) {
	_, err := b.client.NewCreateOrderService().
		Symbol(b.pair.Symbol()).
		Side(side).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(req.Amount.RoundFloor(4).String()).
		Price(req.Price.String()).
		NewClientOrderID(req.ClientID).
		Do(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "failed to place binance %s order", side)
	}

	return req.ClientID, nil
}

func (b *Binance) CheckOrder(ctx context.Context, id string) (domain.OrderStatus, error) {
	order, err := b.client.NewGetOrderService().
		Symbol(b.pair.Symbol()).
		OrigClientOrderID(id).
		Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == -2013 {
			return domain.OrderStatus{}, errors.Wrapf(ErrOrderNotFound, "binance order %s", id)
		}
		return domain.OrderStatus{}, errors.Wrap(err, "failed to query binance order status")
	}

	executed, err := decimal.NewFromString(order.ExecutedQuantity)
	if err != nil {
		return domain.OrderStatus{}, errors.Wrap(err, "failed to parse executed quantity")
	}

	status := domain.OrderStatus{ID: id, Executed: executed}
	switch order.Status {
	case binance.OrderStatusTypeFilled:
		status.Filled = true
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		status.Open = true
	}

	return status, nil
}

func (b *Binance) CancelOrder(ctx context.Context, id string) error {
	_, err := b.client.NewCancelOrderService().
		Symbol(b.pair.Symbol()).
		OrigClientOrderID(id).
		Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && (apiErr.Code == -2011 || apiErr.Code == -2013) {
			return errors.Wrapf(ErrOrderNotFound, "binance order %s", id)
		}
		return errors.Wrapf(err, "failed to cancel binance order %s", id)
	}
	return nil
}
