package setup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/config"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/internal/services/strategy"
)

// DefaultFile is where the wizard writes the generated config.
const DefaultFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	platform      string
	pair          string
	method        string
	interval      string
	smallInterval string
	pollInterval  string
	priceField    string
	portfolio     string
	trade         bool
	tradesFile    string
	balance       string
}

func defaultAnswers() answers {
	return answers{
		platform:      config.PlatformSimulate,
		pair:          "BTC_USDT",
		method:        strategy.MethodPPORSI,
		interval:      "60",
		smallInterval: "1",
		pollInterval:  "20s",
		priceField:    domain.PriceFieldClose.String(),
		portfolio:     "1",
		balance:       "10000",
	}
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TRENDWATCH CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	if path == "" {
		path = DefaultFile
	}
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("TRENDWATCH CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Trend advice from live trades.\n"))

	fmt.Println(stepStyle.Render("STEP 1: MARKET"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select trade source").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Simulation (paper wallet)", config.PlatformSimulate),
					huh.NewOption("Trades file (replay)", config.PlatformFile),
				).
				Value(&a.platform),
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. BTC_USDT)").
				Value(&a.pair).
				Validate(func(s string) error {
					_, err := domain.ParsePair(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.platform == config.PlatformFile {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Trades file").
					Description("JSON array of {id, timestamp, price, amount}").
					Value(&a.tradesFile).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return fmt.Errorf("path cannot be empty")
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	screen("STEP 2: METHOD")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose trading method").
				Options(
					huh.NewOption("PPO + RSI trend persistence", strategy.MethodPPORSI),
					huh.NewOption("EMA difference", strategy.MethodEMADiff),
					huh.NewOption("MACD histogram", strategy.MethodMACD),
				).
				Value(&a.method),
			huh.NewSelect[string]().
				Title("Candle price fed into indicators").
				Options(
					huh.NewOption("Close", "close"),
					huh.NewOption("Volume weighted", "vwp"),
					huh.NewOption("Sample", "sample"),
					huh.NewOption("Open", "open"),
					huh.NewOption("High", "high"),
					huh.NewOption("Low", "low"),
				).
				Value(&a.priceField),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 3: TIMING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Candle interval, minutes").
				Value(&a.interval).
				Validate(validateMinutes(1)),
			huh.NewInput().
				Title("Small candle interval, minutes").
				Description("0 disables small candles").
				Value(&a.smallInterval).
				Validate(validateMinutes(0)),
			huh.NewInput().
				Title("Poll interval").
				Description("Duration string (e.g. 20s, 1m)").
				Value(&a.pollInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	screen("STEP 4: EXECUTION")
	fields := []huh.Field{
		huh.NewInput().
			Title("Portfolio allocation").
			Description("Fraction of the balance an advice allocates (0-1)").
			Value(&a.portfolio).
			Validate(validateFraction),
		huh.NewConfirm().
			Title("Execute advice as orders?").
			Value(&a.trade),
	}
	if a.platform == config.PlatformSimulate || a.platform == config.PlatformFile {
		fields = append(fields, huh.NewInput().
			Title("Paper wallet balance").
			Description("Quote currency balance of the simulated wallet").
			Value(&a.balance))
	}
	if err = huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	cfgTmp, err := a.toConfigTmp()
	if err != nil {
		return err
	}

	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nPair: %s\nMethod: %s\nInterval: %sm\nPrice: %s\nTrade: %t\n",
		a.platform, a.pair, a.method, a.interval, a.priceField, a.trade,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Save(path, []config.ConfigTmp{cfgTmp}); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting bot...", path)))
	time.Sleep(1500 * time.Millisecond)
	return nil
}

// toConfigTmp converts answers into a validated raw config.
func (a answers) toConfigTmp() (config.ConfigTmp, error) {
	interval, err := strconv.Atoi(a.interval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("interval: %w", err)
	}
	small, err := strconv.Atoi(a.smallInterval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("small interval: %w", err)
	}
	poll, err := time.ParseDuration(a.pollInterval)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("poll interval: %w", err)
	}

	tmp := config.ConfigTmp{
		Platform:      a.platform,
		Pair:          strings.ToUpper(a.pair),
		Method:        a.method,
		Interval:      interval,
		SmallInterval: &small,
		PollInterval:  poll,
		PriceField:    a.priceField,
		Portfolio:     a.portfolio,
		Trade:         a.trade,
		TradesFile:    a.tradesFile,
	}
	if a.platform == config.PlatformSimulate || a.platform == config.PlatformFile {
		tmp.SimulateBalance = a.balance
	}

	if _, err := tmp.ToConfig(); err != nil {
		return config.ConfigTmp{}, err
	}

	return tmp, nil
}

func validateMinutes(lowest int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("must be a whole number of minutes")
		}
		if n < lowest {
			return fmt.Errorf("must be at least %d", lowest)
		}
		return nil
	}
}

func validateFraction(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}
