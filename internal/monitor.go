package internal

import (
	"context"

	"go.uber.org/zap"

	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/metrics"
)

// monitor follows the routes no decision depends on: small candles and neutral advice heartbeats.
type monitor struct {
	logger *zap.Logger
	// stats is nil when metrics are disabled.
	stats *metrics.Recorder
}

func (m *monitor) ProcessSmallCandle(_ context.Context, c domain.Candle) error {
	m.logger.Debug("small candle",
		zap.Time("start", c.Start),
		zap.Float64("close", c.Close),
		zap.Float64("volume", c.Volume),
		zap.Int("trades", c.Trades),
		zap.Bool("synthetic", c.Synthetic))
	if m.stats != nil {
		m.stats.ObserveSmallCandle(c)
	}
	return nil
}

func (m *monitor) ProcessSoftAdvice(_ context.Context, a domain.Advice) error {
	m.logger.Debug("holding position",
		zap.String("method", a.Method),
		zap.Time("candle", a.CandleStart),
		zap.Float64("price", a.Price))
	if m.stats != nil {
		m.stats.ObserveHeartbeat(a)
	}
	return nil
}
