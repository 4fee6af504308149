package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendwatch/config"
	"github.com/vadiminshakov/trendwatch/internal/clients"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/events"
	"github.com/vadiminshakov/trendwatch/internal/metrics"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func baseConfig(t *testing.T) config.Config {
	return config.Config{
		Platform:        config.PlatformFile,
		Pair:            domain.Pair{From: "BTC", To: "USDT"},
		Method:          "ema_diff",
		Interval:        time.Minute,
		PollInterval:    time.Second,
		From:            start,
		Portfolio:       decimal.NewFromInt(1),
		RetryDelay:      time.Millisecond,
		MaxRetries:      1,
		JournalDir:      t.TempDir(),
		SimulateBalance: decimal.NewFromInt(10000),
	}
}

// risingTrades writes one trade per minute with the price climbing by one each minute.
func risingTrades(t *testing.T, n int) string {
	t.Helper()
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"id": "%d", "timestamp": %d, "price": "%d", "amount": "1"}`,
			i, start.Add(time.Duration(i)*time.Minute+time.Second).UnixMilli(), 100+i))
	}
	path := filepath.Join(t.TempDir(), "trades.json")
	require.NoError(t, os.WriteFile(path, []byte("["+strings.Join(items, ",\n")+"]"), 0o644))
	return path
}

func TestNewTradingBot(t *testing.T) {
	tests := []struct {
		name             string
		platform         string
		client           any
		expectError      bool
		expectedErrorMsg string
	}{
		{
			name:             "Unsupported Platform",
			platform:         "kraken",
			client:           nil,
			expectError:      true,
			expectedErrorMsg: "unsupported platform: kraken",
		},
		{
			name:     "Valid Binance Platform",
			platform: "binance",
			client:   &binance.Client{},
		},
		{
			name:     "Valid Bybit Platform",
			platform: "bybit",
			client:   &bybit.Client{},
		},
		{
			name:     "Valid Simulate Platform",
			platform: "simulate",
			client:   clients.NewSimulateClient(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := baseConfig(t)
			conf.Platform = tt.platform

			bot, err := NewTradingBot(conf, tt.client, Deps{Logger: zap.NewNop()})
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErrorMsg)
				assert.Nil(t, bot)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, bot)
			assert.Equal(t, conf, bot.Config)
			require.NoError(t, bot.Close())
		})
	}
}

func TestNewTradingBot_UnknownMethod(t *testing.T) {
	conf := baseConfig(t)
	conf.Method = "rsi"

	_, err := NewTradingBot(conf, clients.NewFileClient("unused.json"), Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trading method")
}

func TestNewTradingBot_Subscriptions(t *testing.T) {
	t.Run("advice only", func(t *testing.T) {
		bot, err := NewTradingBot(baseConfig(t), clients.NewFileClient("unused.json"), Deps{})
		require.NoError(t, err)
		defer bot.Close()

		assert.Equal(t, []string{"advisor"}, bot.Subscribers(events.EmitterMarket, events.TopicCandle))
		assert.Equal(t, []string{"advisor"}, bot.Subscribers(events.EmitterMarket, events.TopicHistory))
		assert.Equal(t, []string{"journal"}, bot.Subscribers(events.EmitterAdvisor, events.TopicAdvice))
		assert.Equal(t, []string{"monitor"}, bot.Subscribers(events.EmitterMarket, events.TopicSmallCandle))
		assert.Equal(t, []string{"monitor"}, bot.Subscribers(events.EmitterAdvisor, events.TopicSoftAdvice))
	})

	t.Run("trading", func(t *testing.T) {
		conf := baseConfig(t)
		conf.Trade = true
		bot, err := NewTradingBot(conf, clients.NewFileClient("unused.json"), Deps{})
		require.NoError(t, err)
		defer bot.Close()

		assert.Equal(t, []string{"executor", "advisor"}, bot.Subscribers(events.EmitterMarket, events.TopicCandle))
		assert.Equal(t, []string{"journal", "executor"}, bot.Subscribers(events.EmitterAdvisor, events.TopicAdvice))
	})
}

func TestTradingBot_ReplayPipeline(t *testing.T) {
	conf := baseConfig(t)
	conf.Trade = true
	m := metrics.New()

	bot, err := NewTradingBot(conf, clients.NewFileClient(risingTrades(t, 40)), Deps{Logger: zap.NewNop(), Metrics: m})
	require.NoError(t, err)
	defer bot.Close()

	ctx := context.Background()
	require.NoError(t, bot.Poll(ctx))

	// the newest minute stays open
	assert.Equal(t, 39.0, testutil.ToFloat64(m.CandlesTotal.WithLabelValues("BTC_USDT", "candle", "real")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("BTC_USDT")))

	// a steady climb is a single persisted up trend
	records, err := bot.Journal().EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	advice := records[0].Advice
	assert.Equal(t, domain.RecommendationLong, advice.Recommendation)
	assert.Equal(t, "ema_diff", advice.Method)
	assert.Equal(t, "BTC_USDT", advice.Pair)
	assert.Equal(t, start.Add(20*time.Minute), advice.CandleStart.UTC())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdviceTotal.WithLabelValues("BTC_USDT", "ema_diff", "long")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersTotal.WithLabelValues("BTC_USDT", "buy", "placed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersTotal.WithLabelValues("BTC_USDT", "buy", "filled")))
	// holding candles after the entry reach the monitor as heartbeats
	assert.Positive(t, testutil.ToFloat64(m.LastHeartbeat.WithLabelValues("BTC_USDT", "ema_diff")))
	assert.Empty(t, bot.executor.Pending())

	portfolio, err := bot.source.GetPortfolio(ctx)
	require.NoError(t, err)
	assert.True(t, portfolio.Asset.IsPositive())
	assert.True(t, portfolio.Currency.LessThan(decimal.NewFromInt(1)))

	// nothing new to close
	require.NoError(t, bot.Poll(ctx))
	assert.Equal(t, 39.0, testutil.ToFloat64(m.CandlesTotal.WithLabelValues("BTC_USDT", "candle", "real")))
}

func TestTradingBot_RunStopsWithContext(t *testing.T) {
	bot, err := NewTradingBot(baseConfig(t), clients.NewFileClient(risingTrades(t, 3)), Deps{})
	require.NoError(t, err)
	defer bot.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}
}
