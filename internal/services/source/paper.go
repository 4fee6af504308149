package source

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/storage/simstate"
	"go.uber.org/zap"
)

// Paper takes trades from a market feed and fills orders immediately at their limit price
// against a simulated wallet.
type Paper struct {
	mu     sync.RWMutex
	feed   TradeSource
	pair   domain.Pair
	logger *zap.Logger
	wallet domain.Portfolio
	orders map[string]simstate.StoredOrder
	// history keeps fills in placement order for persistence
	history []simstate.StoredOrder
	store   *simstate.Store
}

// NewPaper creates a paper trading source. The wallet is restored from store when it has saved state,
// otherwise it starts with initial.
func NewPaper(feed TradeSource, pair domain.Pair, initial domain.Portfolio, store *simstate.Store, logger *zap.Logger) (*Paper, error) {
	if feed == nil {
		return nil, errors.New("feed is required for paper trading")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Paper{
		feed:   feed,
		pair:   pair,
		logger: logger,
		wallet: initial,
		orders: make(map[string]simstate.StoredOrder),
		store:  store,
	}
	if err := p.restore(); err != nil {
		logger.Warn("failed to restore paper wallet", zap.Error(err))
	}

	logger.Info("paper wallet init",
		zap.String("pair", pair.String()),
		zap.String("asset", p.wallet.Asset.String()),
		zap.String("currency", p.wallet.Currency.String()))

	return p, nil
}

func (p *Paper) restore() error {
	state, err := p.store.Load()
	if err != nil {
		return err
	}
	if state == nil {
		return nil
	}
	if state.Pair != "" && state.Pair != p.pair.String() {
		return errors.Errorf("state belongs to pair %s", state.Pair)
	}

	wallet, err := state.Portfolio()
	if err != nil {
		return err
	}
	p.wallet = wallet
	p.history = append(p.history[:0], state.Orders...)
	for _, o := range state.Orders {
		p.orders[o.ID] = o
	}

	return nil
}

func (p *Paper) persist() {
	if err := p.store.Save(simstate.NewState(p.pair, p.wallet, p.history)); err != nil {
		p.logger.Warn("failed to persist paper wallet", zap.Error(err))
	}
}

func (p *Paper) GetTrades(ctx context.Context, q TradeQuery) ([]domain.Trade, error) {
	return p.feed.GetTrades(ctx, q)
}

func (p *Paper) GetPortfolio(context.Context) (domain.Portfolio, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.wallet, nil
}

func (p *Paper) Buy(_ context.Context, req domain.OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateRequest(req); err != nil {
		return "", err
	}
	if _, ok := p.orders[req.ClientID]; ok {
		return req.ClientID, nil
	}

	cost := req.Amount.Mul(req.Price)
	if p.wallet.Currency.LessThan(cost) {
		return "", errors.Errorf("insufficient %s balance: have %s need %s",
			p.pair.To, p.wallet.Currency.String(), cost.String())
	}
	p.wallet.Currency = p.wallet.Currency.Sub(cost)
	p.wallet.Asset = p.wallet.Asset.Add(req.Amount)
	p.fill(domain.OrderSideBuy, req)

	return req.ClientID, nil
}

func (p *Paper) Sell(_ context.Context, req domain.OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := validateRequest(req); err != nil {
		return "", err
	}
	if _, ok := p.orders[req.ClientID]; ok {
		return req.ClientID, nil
	}

	if p.wallet.Asset.LessThan(req.Amount) {
		return "", errors.Errorf("insufficient %s balance: have %s need %s",
			p.pair.From, p.wallet.Asset.String(), req.Amount.String())
	}
	p.wallet.Asset = p.wallet.Asset.Sub(req.Amount)
	p.wallet.Currency = p.wallet.Currency.Add(req.Amount.Mul(req.Price))
	p.fill(domain.OrderSideSell, req)

	return req.ClientID, nil
}

func validateRequest(req domain.OrderRequest) error {
	if req.ClientID == "" {
		return errors.New("order client id is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.Errorf("order amount must be positive, got %s", req.Amount.String())
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return errors.Errorf("order price must be positive, got %s", req.Price.String())
	}
	return nil
}

// fill records an executed order, the caller holds the lock.
func (p *Paper) fill(side domain.OrderSide, req domain.OrderRequest) {
	o := simstate.StoredOrder{
		ID:       req.ClientID,
		Side:     side,
		Amount:   req.Amount.String(),
		Price:    req.Price.String(),
		FilledAt: time.Now().UTC(),
	}
	p.orders[o.ID] = o
	p.history = append(p.history, o)
	p.persist()

	p.logger.Info("paper order filled",
		zap.String("id", o.ID),
		zap.String("side", string(side)),
		zap.String("amount", o.Amount),
		zap.String("price", o.Price))
}

func (p *Paper) CheckOrder(_ context.Context, id string) (domain.OrderStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	o, ok := p.orders[id]
	if !ok {
		return domain.OrderStatus{}, errors.Wrapf(ErrOrderNotFound, "paper order %s", id)
	}
	executed, err := decimal.NewFromString(o.Amount)
	if err != nil {
		return domain.OrderStatus{}, errors.Wrap(err, "decode paper order amount")
	}

	return domain.OrderStatus{ID: id, Filled: true, Executed: executed}, nil
}

// CancelOrder is a no-op for known orders since paper orders fill on placement.
func (p *Paper) CancelOrder(_ context.Context, id string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.orders[id]; !ok {
		return errors.Wrapf(ErrOrderNotFound, "paper order %s", id)
	}
	return nil
}
