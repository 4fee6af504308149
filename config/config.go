package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/services/strategy"
	"gopkg.in/yaml.v3"
)

const (
	PlatformBinance  = "binance"
	PlatformBybit    = "bybit"
	PlatformSimulate = "simulate"
	PlatformFile     = "file"

	defaultIntervalMinutes      = 60
	defaultSmallIntervalMinutes = 1
	defaultPollInterval         = 20 * time.Second
	defaultSampleWindowSeconds  = 10
	defaultRetryDelay           = 10 * time.Second
	defaultSimulateBalance      = "10000"
)

// Config validated settings of one trading instance.
type Config struct {
	Platform string
	Pair     domain.Pair
	Method   string
	// Settings method tunables, unset fields fall back to the method defaults.
	Settings strategy.Settings

	Interval      time.Duration
	SmallInterval time.Duration
	PollInterval  time.Duration
	SampleWindow  time.Duration
	From          time.Time
	PriceField    domain.PriceField

	// Portfolio fraction of the balance an advice allocates.
	Portfolio decimal.Decimal
	// Trade executes advice as orders.
	Trade bool

	RetryDelay time.Duration
	// MaxRetries caps replays of a failed exchange call, zero means no cap.
	MaxRetries int

	JournalDir      string
	TradesFile      string
	SimulateBalance decimal.Decimal
}

// ConfigTmp raw yaml representation of Config.
type ConfigTmp struct {
	Platform             string        `yaml:"platform"`
	Pair                 string        `yaml:"pair"`
	Method               string        `yaml:"method"`
	Interval             int           `yaml:"interval,omitempty"`
	SmallInterval        *int          `yaml:"small_interval,omitempty"`
	PollInterval         time.Duration `yaml:"poll_interval,omitempty"`
	From                 string        `yaml:"from,omitempty"`
	PriceField           string        `yaml:"price_field,omitempty"`
	ShortPeriod          int           `yaml:"short_period,omitempty"`
	LongPeriod           int           `yaml:"long_period,omitempty"`
	SignalPeriod         int           `yaml:"signal_period,omitempty"`
	SampleWindowSeconds  *int          `yaml:"sample_window_seconds,omitempty"`
	SellThreshold        *float64      `yaml:"sell_threshold,omitempty"`
	BuyThreshold         *float64      `yaml:"buy_threshold,omitempty"`
	PersistenceThreshold int           `yaml:"persistence_threshold,omitempty"`
	RSIPeriod            int           `yaml:"rsi_period,omitempty"`
	RSILow               *float64      `yaml:"rsi_low,omitempty"`
	RSIHigh              *float64      `yaml:"rsi_high,omitempty"`
	PPOWeightLow         *float64      `yaml:"ppo_weight_low,omitempty"`
	PPOWeightHigh        *float64      `yaml:"ppo_weight_high,omitempty"`
	RequiredHistory      int           `yaml:"required_history,omitempty"`
	Portfolio            string        `yaml:"portfolio,omitempty"`
	Trade                bool          `yaml:"trade,omitempty"`
	RetryDelay           time.Duration `yaml:"retry_delay,omitempty"`
	MaxRetries           int           `yaml:"max_retries,omitempty"`
	JournalDir           string        `yaml:"journal_dir,omitempty"`
	TradesFile           string        `yaml:"trades_file,omitempty"`
	SimulateBalance      string        `yaml:"simulate_balance,omitempty"`
}

// Load reads a yaml list of instance configs.
func Load(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return Parse(f)
}

// Parse decodes and validates a yaml list of instance configs.
func Parse(data []byte) ([]Config, error) {
	var configsTmp []ConfigTmp
	if err := yaml.Unmarshal(data, &configsTmp); err != nil {
		return nil, fmt.Errorf("decode yaml config: %w", err)
	}
	if len(configsTmp) == 0 {
		return nil, fmt.Errorf("config contains no instances")
	}

	configs := make([]Config, 0, len(configsTmp))
	seen := make(map[string]struct{}, len(configsTmp))
	for i, c := range configsTmp {
		conf, err := c.ToConfig()
		if err != nil {
			return nil, fmt.Errorf("instance %d (%s): %w", i, c.Pair, err)
		}

		key := conf.Platform + "/" + conf.Pair.String() + "/" + conf.Method
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("instance %d: duplicate %s", i, key)
		}
		seen[key] = struct{}{}

		configs = append(configs, conf)
	}

	return configs, nil
}

// ToConfig applies defaults and validates the raw config.
func (c ConfigTmp) ToConfig() (Config, error) {
	platform := strings.ToLower(strings.TrimSpace(c.Platform))
	switch platform {
	case PlatformBinance, PlatformBybit, PlatformSimulate, PlatformFile:
	case "":
		return Config{}, fmt.Errorf("'platform' is required")
	default:
		return Config{}, fmt.Errorf("unsupported platform: %s", c.Platform)
	}

	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", c.Pair, err)
	}

	method := strings.ToLower(strings.TrimSpace(c.Method))
	if method == "" {
		method = strategy.MethodPPORSI
	}
	if _, err := strategy.DefaultSettings(method); err != nil {
		return Config{}, fmt.Errorf("incorrect 'method' param in yaml config: %w", err)
	}

	conf := Config{
		Platform: platform,
		Pair:     pair,
		Method:   method,
		Settings: strategy.Settings{
			ShortPeriod:          c.ShortPeriod,
			LongPeriod:           c.LongPeriod,
			SignalPeriod:         c.SignalPeriod,
			BuyThreshold:         c.BuyThreshold,
			SellThreshold:        c.SellThreshold,
			PersistenceThreshold: c.PersistenceThreshold,
			RSIPeriod:            c.RSIPeriod,
			RSILow:               c.RSILow,
			RSIHigh:              c.RSIHigh,
			PPOWeightLow:         c.PPOWeightLow,
			PPOWeightHigh:        c.PPOWeightHigh,
			RequiredHistory:      c.RequiredHistory,
		},
		PollInterval: c.PollInterval,
		Trade:        c.Trade,
		RetryDelay:   c.RetryDelay,
		MaxRetries:   c.MaxRetries,
		JournalDir:   c.JournalDir,
		TradesFile:   c.TradesFile,
	}

	if c.Interval < 0 {
		return Config{}, fmt.Errorf("'interval' must be positive, got %d", c.Interval)
	}
	interval := c.Interval
	if interval == 0 {
		interval = defaultIntervalMinutes
	}
	conf.Interval = time.Duration(interval) * time.Minute

	small := defaultSmallIntervalMinutes
	if c.SmallInterval != nil {
		small = *c.SmallInterval
	}
	if small < 0 {
		return Config{}, fmt.Errorf("'small_interval' must not be negative, got %d", small)
	}
	conf.SmallInterval = time.Duration(small) * time.Minute

	if conf.PollInterval == 0 {
		conf.PollInterval = defaultPollInterval
	}
	if conf.PollInterval < 0 {
		return Config{}, fmt.Errorf("'poll_interval' must be positive, got %s", conf.PollInterval)
	}

	sample := defaultSampleWindowSeconds
	if c.SampleWindowSeconds != nil {
		sample = *c.SampleWindowSeconds
	}
	if sample < 0 {
		return Config{}, fmt.Errorf("'sample_window_seconds' must not be negative, got %d", sample)
	}
	conf.SampleWindow = time.Duration(sample) * time.Second

	if c.From != "" {
		from, err := time.Parse(time.RFC3339, c.From)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'from' param in yaml config (RFC3339 expected), error: %w", err)
		}
		conf.From = from.UTC()
	}

	conf.PriceField, err = domain.ParsePriceField(c.PriceField)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'price_field' param in yaml config: %w", err)
	}

	conf.Portfolio = decimal.NewFromInt(1)
	if c.Portfolio != "" {
		conf.Portfolio, err = decimal.NewFromString(c.Portfolio)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'portfolio' param in yaml config (must be a decimal), error: %w", err)
		}
	}
	if conf.Portfolio.IsNegative() || conf.Portfolio.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("'portfolio' must be in [0,1], got %s", conf.Portfolio)
	}

	if conf.RetryDelay == 0 {
		conf.RetryDelay = defaultRetryDelay
	}
	if conf.MaxRetries < 0 {
		return Config{}, fmt.Errorf("'max_retries' must not be negative, got %d", conf.MaxRetries)
	}

	balance := c.SimulateBalance
	if balance == "" {
		balance = defaultSimulateBalance
	}
	conf.SimulateBalance, err = decimal.NewFromString(balance)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'simulate_balance' param in yaml config (must be a decimal), error: %w", err)
	}
	if conf.SimulateBalance.IsNegative() {
		return Config{}, fmt.Errorf("'simulate_balance' must not be negative, got %s", conf.SimulateBalance)
	}

	if platform == PlatformFile && conf.TradesFile == "" {
		return Config{}, fmt.Errorf("'trades_file' is required for the file platform")
	}

	return conf, nil
}

// ToTmp converts a validated config back into its yaml representation.
func (c Config) ToTmp() ConfigTmp {
	small := int(c.SmallInterval / time.Minute)
	sample := int(c.SampleWindow / time.Second)
	tmp := ConfigTmp{
		Platform:             c.Platform,
		Pair:                 c.Pair.String(),
		Method:               c.Method,
		Interval:             int(c.Interval / time.Minute),
		SmallInterval:        &small,
		PollInterval:         c.PollInterval,
		PriceField:           c.PriceField.String(),
		ShortPeriod:          c.Settings.ShortPeriod,
		LongPeriod:           c.Settings.LongPeriod,
		SignalPeriod:         c.Settings.SignalPeriod,
		SampleWindowSeconds:  &sample,
		SellThreshold:        c.Settings.SellThreshold,
		BuyThreshold:         c.Settings.BuyThreshold,
		PersistenceThreshold: c.Settings.PersistenceThreshold,
		RSIPeriod:            c.Settings.RSIPeriod,
		RSILow:               c.Settings.RSILow,
		RSIHigh:              c.Settings.RSIHigh,
		PPOWeightLow:         c.Settings.PPOWeightLow,
		PPOWeightHigh:        c.Settings.PPOWeightHigh,
		RequiredHistory:      c.Settings.RequiredHistory,
		Portfolio:            c.Portfolio.String(),
		Trade:                c.Trade,
		RetryDelay:           c.RetryDelay,
		MaxRetries:           c.MaxRetries,
		JournalDir:           c.JournalDir,
		TradesFile:           c.TradesFile,
		SimulateBalance:      c.SimulateBalance.String(),
	}
	if !c.From.IsZero() {
		tmp.From = c.From.Format(time.RFC3339)
	}

	return tmp
}

// Save writes configs as a yaml list.
func Save(path string, configs []ConfigTmp) error {
	data, err := yaml.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
