package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendwatch/internal/domain"
)

// bybit serves the most recent public trades only, there is no time-range query
const bybitTradesLimit = 1000

// Bybit trade source backed by the Bybit V5 spot API.
type Bybit struct {
	client *bybit.Client
	pair   domain.Pair
	now    func() time.Time
	logger *zap.Logger
}

// NewBybit creates a Bybit trade source for pair.
func NewBybit(client *bybit.Client, pair domain.Pair, logger *zap.Logger) *Bybit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bybit{client: client, pair: pair, now: time.Now, logger: logger}
}

// GetTrades fetches the latest public trades and filters them to the query window.
// A full page starting after q.Since means older trades of the window were not
// served, which is logged as a warning.
func (b *Bybit) GetTrades(ctx context.Context, q TradeQuery) ([]domain.Trade, error) {
	limit := bybitTradesLimit
	res, err := b.client.V5().Market().GetPublicTradingHistory(bybit.V5GetPublicTradingHistoryParam{
		Category: "spot",
		Symbol:   bybit.SymbolV5(b.pair.Symbol()),
		Limit:    &limit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch trades from Bybit for %s", b.pair.String())
	}

	trades := make([]domain.Trade, 0, len(res.Result.List))
	for i, item := range res.Result.List {
		ms, err := strconv.ParseInt(item.Time, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrNoData, "failed to parse trade time at index %d: %v", i, err)
		}
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return nil, errors.Wrapf(ErrNoData, "failed to parse trade price at index %d: %v", i, err)
		}
		size, err := decimal.NewFromString(item.Size)
		if err != nil {
			return nil, errors.Wrapf(ErrNoData, "failed to parse trade size at index %d: %v", i, err)
		}
		trades = append(trades, domain.Trade{
			ID:        item.ExecID,
			Timestamp: time.UnixMilli(ms).UTC(),
			Price:     price,
			Amount:    size,
		})
	}

	if gap := coverageGap(trades, q.Since, limit); gap > 0 {
		b.logger.Warn("bybit trade window truncated, older trades are missing",
			zap.String("pair", b.pair.String()),
			zap.Time("since", q.Since),
			zap.Time("oldest", q.Since.Add(gap)),
			zap.Duration("gap", gap))
	}

	return selectTrades(trades, q, b.now()), nil
}

// coverageGap returns how much of the window after since a page of trades fails to
// cover. Only a full page can miss trades.
func coverageGap(trades []domain.Trade, since time.Time, limit int) time.Duration {
	if since.IsZero() || len(trades) < limit {
		return 0
	}

	oldest := trades[0].Timestamp
	for _, t := range trades[1:] {
		if t.Timestamp.Before(oldest) {
			oldest = t.Timestamp
		}
	}
	if !oldest.After(since) {
		return 0
	}

	return oldest.Sub(since)
}

// GetPortfolio returns unified wallet balances of the pair's asset and currency.
func (b *Bybit) GetPortfolio(ctx context.Context) (domain.Portfolio, error) {
	res, err := b.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return domain.Portfolio{}, errors.Wrap(err, "failed to get bybit wallet balance")
	}
	if len(res.Result.List) == 0 {
		return domain.Portfolio{}, errors.Wrap(ErrNoData, "empty bybit wallet balance")
	}

	var p domain.Portfolio
	for _, coin := range res.Result.List[0].Coin {
		switch string(coin.Coin) {
		case b.pair.From:
			if p.Asset, err = decimal.NewFromString(coin.WalletBalance); err != nil {
				return domain.Portfolio{}, errors.Wrap(err, "failed to parse asset balance")
			}
		case b.pair.To:
			if p.Currency, err = decimal.NewFromString(coin.WalletBalance); err != nil {
				return domain.Portfolio{}, errors.Wrap(err, "failed to parse currency balance")
			}
		}
	}

	return p, nil
}

func (b *Bybit) Buy(ctx context.Context, req domain.OrderRequest) (string, error) {
	return b.placeOrder(bybit.SideBuy, req)
}

func (b *Bybit) Sell(ctx context.Context, req domain.OrderRequest) (string, error) {
	return b.placeOrder(bybit.SideSell, req)
}

func (b *Bybit) placeOrder(side bybit.Side, req domain.OrderRequest) (string, error) {
	price := req.Price.String()
	linkID := req.ClientID
	_, err := b.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    "spot",
		Symbol:      bybit.SymbolV5(b.pair.Symbol()),
		Side:        side,
		OrderType:   bybit.OrderTypeLimit,
		Qty:         req.Amount.RoundFloor(4).String(),
		Price:       &price,
		OrderLinkID: &linkID,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to create bybit %s order", side)
	}

	return req.ClientID, nil
}

func (b *Bybit) CheckOrder(ctx context.Context, id string) (domain.OrderStatus, error) {
	symbol := bybit.SymbolV5(b.pair.Symbol())
	linkID := id
	res, err := b.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category:    "spot",
		Symbol:      &symbol,
		OrderLinkID: &linkID,
	})
	if err != nil {
		return domain.OrderStatus{}, errors.Wrap(err, "failed to query bybit order status")
	}
	if len(res.Result.List) == 0 {
		return domain.OrderStatus{}, errors.Wrapf(ErrOrderNotFound, "bybit order %s", id)
	}

	item := res.Result.List[0]
	executed := decimal.Zero
	if item.CumExecQty != "" {
		if executed, err = decimal.NewFromString(item.CumExecQty); err != nil {
			return domain.OrderStatus{}, errors.Wrap(err, "failed to parse executed quantity")
		}
	}

	status := domain.OrderStatus{ID: id, Executed: executed}
	switch string(item.OrderStatus) {
	case "Filled":
		status.Filled = true
	case "New", "PartiallyFilled", "Untriggered":
		status.Open = true
	}

	return status, nil
}

func (b *Bybit) CancelOrder(ctx context.Context, id string) error {
	linkID := id
	_, err := b.client.V5().Order().CancelOrder(bybit.V5CancelOrderParam{
		Category:    "spot",
		Symbol:      bybit.SymbolV5(b.pair.Symbol()),
		OrderLinkID: &linkID,
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "order does not exist") {
			return errors.Wrapf(ErrOrderNotFound, "bybit order %s", id)
		}
		return errors.Wrapf(err, "failed to cancel bybit order %s", id)
	}
	return nil
}
