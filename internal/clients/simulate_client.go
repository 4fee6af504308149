package clients

import (
	"github.com/adshao/go-binance/v2"
)

// SimulateClient feeds a paper wallet with real market trades.
type SimulateClient struct {
	// use Binance public API for real market trades
	binanceClient *binance.Client
}

// NewSimulateClient creates a new simulate client.
func NewSimulateClient() *SimulateClient {
	// create client without API keys for public data only
	client := binance.NewClient("", "")
	return &SimulateClient{
		binanceClient: client,
	}
}

// GetBinanceClient returns the underlying Binance client.
func (c *SimulateClient) GetBinanceClient() *binance.Client {
	return c.binanceClient
}
