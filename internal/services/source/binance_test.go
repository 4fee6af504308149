package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/trendwatch/internal/domain"
)

func TestConvertAggTrades(t *testing.T) {
	trades, err := convertAggTrades([]*binance.AggTrade{
		{AggTradeID: 10, Price: "64000.10", Quantity: "0.002", Timestamp: 1700000000123},
		nil,
		{AggTradeID: 11, Price: "64000.20", Quantity: "0.5", Timestamp: 1700000000456},
	})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "10", trades[0].ID)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), trades[0].Timestamp)
	assert.Equal(t, "64000.1", trades[0].Price.String())
	assert.Equal(t, "0.5", trades[1].Amount.String())

	_, err = convertAggTrades([]*binance.AggTrade{{AggTradeID: 1, Price: "x", Quantity: "1"}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSelectTrades_StableOrder(t *testing.T) {
	ts := time.Unix(100, 0)
	in, err := convertAggTrades([]*binance.AggTrade{
		{AggTradeID: 3, Price: "1", Quantity: "1", Timestamp: ts.Add(time.Second).UnixMilli()},
		{AggTradeID: 1, Price: "1", Quantity: "1", Timestamp: ts.UnixMilli()},
		{AggTradeID: 2, Price: "1", Quantity: "1", Timestamp: ts.UnixMilli()},
	})
	require.NoError(t, err)

	out := selectTrades(in, TradeQuery{}, ts.Add(time.Minute))
	require.Len(t, out, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{out[0].ID, out[1].ID, out[2].ID})

	out = selectTrades(in, TradeQuery{Until: ts}, ts.Add(time.Minute))
	assert.Len(t, out, 2)
}

type aggTradeBook struct {
	trades  []*binance.AggTrade
	byID    int
	windows int
}

// ServeHTTP answers aggTrades requests by time window or from a trade id.
func (b *aggTradeBook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	fromID, byID := int64(0), q.Get("fromId") != ""
	if byID {
		b.byID++
		fromID, _ = strconv.ParseInt(q.Get("fromId"), 10, 64)
	} else {
		b.windows++
	}
	startMs, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
	endMs, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)

	page := make([]*binance.AggTrade, 0, limit)
	for _, t := range b.trades {
		if len(page) == limit {
			break
		}
		if byID && t.AggTradeID < fromID {
			continue
		}
		if !byID && (t.Timestamp < startMs || t.Timestamp > endMs) {
			continue
		}
		page = append(page, t)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(page)
}

func TestBinance_GetTrades_FullPageInOneMillisecond(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	book := &aggTradeBook{}
	add := func(n int, at time.Time) {
		for i := 0; i < n; i++ {
			id := int64(len(book.trades) + 1)
			book.trades = append(book.trades, &binance.AggTrade{
				AggTradeID: id, Price: "100", Quantity: "1", FirstTradeID: id, LastTradeID: id,
				Timestamp: at.UnixMilli(),
			})
		}
	}
	// more trades in a single millisecond than one page holds
	add(1500, since.Add(10*time.Millisecond))
	add(10, since.Add(20*time.Millisecond))
	add(5, since.Add(2*time.Minute))

	srv := httptest.NewServer(book)
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL
	src := NewBinance(client, domain.Pair{From: "BTC", To: "USDT"})
	src.now = func() time.Time { return since.Add(time.Hour) }

	trades, err := src.GetTrades(context.Background(), TradeQuery{Since: since, Until: since.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, trades, 1510)

	seen := make(map[string]struct{}, len(trades))
	for _, tr := range trades {
		seen[tr.ID] = struct{}{}
	}
	assert.Len(t, seen, 1510)
	assert.Equal(t, "1", trades[0].ID)
	assert.Equal(t, "1510", trades[len(trades)-1].ID)
	assert.Equal(t, 1, book.windows)
	assert.Equal(t, 1, book.byID)
}

func TestBinance_GetTrades_PartialPage(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	book := &aggTradeBook{trades: []*binance.AggTrade{
		{AggTradeID: 7, Price: "100", Quantity: "1", Timestamp: since.UnixMilli()},
		{AggTradeID: 8, Price: "101", Quantity: "2", Timestamp: since.Add(time.Second).UnixMilli()},
	}}
	srv := httptest.NewServer(book)
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL
	src := NewBinance(client, domain.Pair{From: "BTC", To: "USDT"})
	src.now = func() time.Time { return since.Add(time.Minute) }

	trades, err := src.GetTrades(context.Background(), TradeQuery{Since: since})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "8", trades[0].ID)
	assert.Equal(t, 0, book.byID)
}
