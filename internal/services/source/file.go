package source

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

// File replays trades recorded in a JSON file:
//
//	[{"id":"1","timestamp":1700000000000,"price":"37000.1","amount":"0.01"}, ...]
//
// The file is read lazily on the first query and cached.
type File struct {
	path string
	now  func() time.Time

	once   sync.Once
	trades []domain.Trade
	err    error
}

// NewFile creates a read-only trade source over the recorded trades at path.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

func (f *File) load() {
	payload, err := os.ReadFile(f.path)
	if err != nil {
		f.err = errors.Wrapf(err, "read trades file %s", f.path)
		return
	}
	f.trades, f.err = parseTrades(payload)
}

// parseTrades decodes a JSON array of trades.
func parseTrades(payload []byte) ([]domain.Trade, error) {
	if !gjson.ValidBytes(payload) {
		return nil, errors.Wrap(ErrNoData, "invalid trades JSON")
	}
	root := gjson.ParseBytes(payload)
	if !root.IsArray() {
		return nil, errors.Wrap(ErrNoData, "trades JSON is not an array")
	}

	var (
		trades []domain.Trade
		err    error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		ts := value.Get("timestamp")
		if !ts.Exists() {
			err = errors.Wrapf(ErrNoData, "trade %d has no timestamp", key.Int())
			return false
		}
		price, perr := decimal.NewFromString(value.Get("price").String())
		if perr != nil {
			err = errors.Wrapf(ErrNoData, "trade %d price: %v", key.Int(), perr)
			return false
		}
		amount, aerr := decimal.NewFromString(value.Get("amount").String())
		if aerr != nil {
			err = errors.Wrapf(ErrNoData, "trade %d amount: %v", key.Int(), aerr)
			return false
		}
		trades = append(trades, domain.Trade{
			ID:        value.Get("id").String(),
			Timestamp: time.UnixMilli(ts.Int()).UTC(),
			Price:     price,
			Amount:    amount,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	return trades, nil
}

func (f *File) GetTrades(_ context.Context, q TradeQuery) ([]domain.Trade, error) {
	f.once.Do(f.load)
	if f.err != nil {
		return nil, f.err
	}
	until := q.Until
	if until.IsZero() {
		// recorded data is not bounded by the wall clock
		until = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return selectTrades(f.trades, TradeQuery{Since: q.Since, Until: until, Descending: q.Descending}, f.now()), nil
}

func (f *File) GetPortfolio(context.Context) (domain.Portfolio, error) {
	return domain.Portfolio{}, ErrReadOnly
}

func (f *File) Buy(context.Context, domain.OrderRequest) (string, error) {
	return "", ErrReadOnly
}

func (f *File) Sell(context.Context, domain.OrderRequest) (string, error) {
	return "", ErrReadOnly
}

func (f *File) CheckOrder(context.Context, string) (domain.OrderStatus, error) {
	return domain.OrderStatus{}, ErrReadOnly
}

func (f *File) CancelOrder(context.Context, string) error {
	return ErrReadOnly
}
