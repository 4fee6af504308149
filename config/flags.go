package config

import (
	"flag"
	"fmt"
	"time"
)

// Options process level command line settings.
type Options struct {
	ConfigPath  string
	Setup       bool
	MetricsAddr string
	LogLevel    string

	// single instance fallback used when no config file is given
	instance ConfigTmp
}

// ParseFlags parses command line arguments (without the program name).
func ParseFlags(args []string) (Options, error) {
	var (
		opts     Options
		interval int
		small    int
		sample   int
	)

	fs := flag.NewFlagSet("trendwatch", flag.ContinueOnError)
	fs.StringVar(&opts.ConfigPath, "config", "", "path to yaml config")
	fs.BoolVar(&opts.Setup, "setup", false, "run the interactive configuration wizard")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "address of the prometheus metrics endpoint, e.g. :9090")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	fs.StringVar(&opts.instance.Platform, "platform", PlatformSimulate, "exchange platform: binance, bybit, simulate, file")
	fs.StringVar(&opts.instance.Pair, "pair", "BTC_USDT", "trade pair, example: BTC_USDT")
	fs.StringVar(&opts.instance.Method, "method", "ppo_rsi", "trading method: ppo_rsi, ema_diff, macd")
	fs.IntVar(&interval, "interval", defaultIntervalMinutes, "candle interval in minutes")
	fs.IntVar(&small, "small-interval", defaultSmallIntervalMinutes, "small candle interval in minutes, 0 disables")
	fs.IntVar(&sample, "sample-window", defaultSampleWindowSeconds, "sample price window in seconds")
	fs.DurationVar(&opts.instance.PollInterval, "poll-interval", defaultPollInterval, "trade poll interval")
	fs.StringVar(&opts.instance.From, "from", "", "start of history, RFC3339")
	fs.StringVar(&opts.instance.PriceField, "price-field", "close", "candle price fed into indicators")
	fs.StringVar(&opts.instance.Portfolio, "portfolio", "1", "fraction of the balance an advice allocates")
	fs.BoolVar(&opts.instance.Trade, "trade", false, "execute advice as orders")
	fs.StringVar(&opts.instance.TradesFile, "trades-file", "", "json trades file for the file platform")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	opts.instance.Interval = interval
	opts.instance.SmallInterval = &small
	opts.instance.SampleWindowSeconds = &sample

	return opts, nil
}

// Get returns instance configs from the yaml file or, without one, the single instance
// described by the command line.
func Get(opts Options) ([]Config, error) {
	if opts.ConfigPath != "" {
		return Load(opts.ConfigPath)
	}

	conf, err := opts.instance.ToConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid command line config: %w", err)
	}

	return []Config{conf}, nil
}

// ShutdownTimeout bounds graceful shutdown of the process.
const ShutdownTimeout = 5 * time.Second
