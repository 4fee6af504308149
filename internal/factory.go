package internal

import (
	"fmt"
	"path/filepath"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendwatch/config"
	"github.com/vadiminshakov/trendwatch/internal/clients"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/services/source"
	"github.com/vadiminshakov/trendwatch/internal/storage/simstate"
)

// NewTradeSource creates the platform trade source for the given client.
// This is the single point of truth for dispatching to platform-specific implementations.
func NewTradeSource(conf config.Config, client any, logger *zap.Logger) (source.TradeSource, error) {
	switch c := client.(type) {
	case *binance.Client:
		return source.NewBinance(c, conf.Pair), nil
	case *bybit.Client:
		return source.NewBybit(c, conf.Pair, logger), nil
	case *clients.SimulateClient:
		return newPaper(conf, source.NewBinance(c.GetBinanceClient(), conf.Pair), logger)
	case *clients.FileClient:
		return newPaper(conf, source.NewFile(c.Path), logger)
	case source.TradeSource:
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", conf.Platform)
	}
}

func newPaper(conf config.Config, feed source.TradeSource, logger *zap.Logger) (source.TradeSource, error) {
	dir := ""
	if conf.JournalDir != "" {
		dir = filepath.Join(conf.JournalDir, "simulate")
	}

	store, err := simstate.NewStore(dir, conf.Pair, conf.Platform+"_"+conf.Pair.String())
	if err != nil {
		return nil, errors.Wrap(err, "create paper wallet store")
	}

	initial := domain.Portfolio{Currency: conf.SimulateBalance}
	return source.NewPaper(feed, conf.Pair, initial, store, logger)
}
