// Package trader executes advice as limit orders on the trade source.
package trader

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/services/source"
	"go.uber.org/zap"
)

// Stats receives order outcomes.
type Stats interface {
	ObserveOrder(side domain.OrderSide, outcome string)
}

type nopStats struct{}

func (nopStats) ObserveOrder(domain.OrderSide, string) {}

const (
	OutcomePlaced    = "placed"
	OutcomeFilled    = "filled"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

type pendingOrder struct {
	id   string
	side domain.OrderSide
}

// Executor places one limit order per advice at the last close and cancels it
// if it is still open when the next candle arrives.
type Executor struct {
	src    source.TradeSource
	pair   domain.Pair
	logger *zap.Logger
	stats  Stats
	newID  func() string

	mu        sync.Mutex
	lastClose decimal.Decimal
	pending   []pendingOrder
}

// NewExecutor creates an Executor. src is expected to retry transient failures itself.
func NewExecutor(src source.TradeSource, pair domain.Pair, logger *zap.Logger, stats Stats) (*Executor, error) {
	if src == nil {
		return nil, errors.New("trade source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = nopStats{}
	}

	return &Executor{
		src:    src,
		pair:   pair,
		logger: logger,
		stats:  stats,
		newID:  func() string { return uuid.New().String() },
	}, nil
}

// ProcessCandle records the close price and settles orders placed on the previous candle.
func (e *Executor) ProcessCandle(ctx context.Context, candle domain.Candle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastClose = decimal.NewFromFloat(candle.Close)

	pending := e.pending
	e.pending = nil
	for _, o := range pending {
		e.settle(ctx, o)
	}

	return nil
}

// settle checks an order and cancels it when unfilled. Failures are logged and the order is forgotten.
func (e *Executor) settle(ctx context.Context, o pendingOrder) {
	status, err := e.src.CheckOrder(ctx, o.id)
	if err != nil {
		if errors.Is(err, source.ErrOrderNotFound) {
			e.logger.Warn("order not found", zap.String("id", o.id))
			return
		}
		e.logger.Error("failed to check order", zap.String("id", o.id), zap.Error(err))
		return
	}

	if status.Filled {
		e.stats.ObserveOrder(o.side, OutcomeFilled)
		e.logger.Info("order filled", zap.String("id", o.id), zap.String("executed", status.Executed.String()))
		return
	}
	if !status.Open {
		return
	}

	if err := e.src.CancelOrder(ctx, o.id); err != nil && !errors.Is(err, source.ErrOrderNotFound) {
		e.logger.Error("failed to cancel order", zap.String("id", o.id), zap.Error(err))
		return
	}
	e.stats.ObserveOrder(o.side, OutcomeCancelled)
	e.logger.Info("unfilled order cancelled",
		zap.String("id", o.id),
		zap.String("executed", status.Executed.String()))
}

// ProcessAdvice sizes and places an order for a non-neutral advice.
// Long buys with the allocated share of the currency, short sells the allocated share of the asset.
func (e *Executor) ProcessAdvice(ctx context.Context, advice domain.Advice) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	price := e.lastClose
	if price.IsZero() {
		price = decimal.NewFromFloat(advice.Price)
	}
	if !price.IsPositive() {
		return errors.Errorf("no price to place %s order at", advice.Recommendation)
	}

	portfolio, err := e.src.GetPortfolio(ctx)
	if err != nil {
		return errors.Wrap(err, "get portfolio")
	}

	var (
		side   domain.OrderSide
		amount decimal.Decimal
	)
	switch advice.Recommendation {
	case domain.RecommendationLong:
		side = domain.OrderSideBuy
		amount = portfolio.Currency.Mul(advice.Portfolio).Div(price)
	case domain.RecommendationShort:
		side = domain.OrderSideSell
		amount = portfolio.Asset.Mul(advice.Portfolio)
	default:
		return nil
	}

	if !amount.IsPositive() {
		e.logger.Info("nothing to trade",
			zap.String("side", string(side)),
			zap.Stringer("portfolio", portfolio))
		return nil
	}

	req := domain.OrderRequest{ClientID: e.newID(), Amount: amount, Price: price}
	place := e.src.Buy
	if side == domain.OrderSideSell {
		place = e.src.Sell
	}

	id, err := place(ctx, req)
	if err != nil {
		e.stats.ObserveOrder(side, OutcomeFailed)
		return errors.Wrapf(err, "place %s order", side)
	}

	e.pending = append(e.pending, pendingOrder{id: id, side: side})
	e.stats.ObserveOrder(side, OutcomePlaced)
	e.logger.Info("order placed",
		zap.String("id", id),
		zap.String("pair", e.pair.String()),
		zap.String("side", string(side)),
		zap.String("amount", amount.String()),
		zap.String("price", price.String()))

	return nil
}

// Pending returns the identifiers of orders awaiting settlement.
func (e *Executor) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, len(e.pending))
	for i, o := range e.pending {
		ids[i] = o.id
	}
	return ids
}
