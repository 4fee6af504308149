package simstate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

func TestStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	pair := domain.Pair{From: "BTC", To: "USDT"}

	store, err := NewStore(dir, pair, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "btc_usdt.json"), store.Path())

	state, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, state, "missing file means no state")

	wallet := domain.Portfolio{Asset: decimal.RequireFromString("0.5"), Currency: decimal.RequireFromString("1200.25")}
	orders := []StoredOrder{{ID: "o-1", Side: domain.OrderSideBuy, Amount: "0.5", Price: "30000", FilledAt: time.Unix(1700000000, 0).UTC()}}
	require.NoError(t, store.Save(NewState(pair, wallet, orders)))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "BTC_USDT", loaded.Pair)
	assert.Equal(t, orders, loaded.Orders)

	got, err := loaded.Portfolio()
	require.NoError(t, err)
	assert.True(t, wallet.Asset.Equal(got.Asset))
	assert.True(t, wallet.Currency.Equal(got.Currency))

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Scope(t *testing.T) {
	store, err := NewStore(t.TempDir(), domain.Pair{From: "ETH", To: "USDT"}, "Paper Run #2")
	require.NoError(t, err)
	assert.Equal(t, "paper_run_2.json", filepath.Base(store.Path()))
}

func TestState_PortfolioRejectsGarbage(t *testing.T) {
	s := State{Asset: "abc", Currency: "1"}
	_, err := s.Portfolio()
	assert.Error(t, err)
}
