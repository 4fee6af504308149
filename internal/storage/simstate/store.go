package simstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/trendwatch/internal/domain"
)

const defaultStateDir = "./wal/simulate"

// Store persists the paper wallet per trading pair so restarts keep balances and filled orders.
type Store struct {
	path string
}

func getStateDir() string {
	if stateDir := os.Getenv("TRENDWATCH_SIMULATE_STATE_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultStateDir
}

// NewStore creates a simulator state store for the given pair inside dir (or the default state dir).
func NewStore(dir string, pair domain.Pair, scope string) (*Store, error) {
	if dir == "" {
		dir = getStateDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create simulate state dir")
	}

	storeFileName := sanitizeScope(scope)
	if storeFileName == "" {
		storeFileName = strings.ToLower(pair.String())
	}

	fullName := fmt.Sprintf("%s.json", storeFileName)

	return &Store{path: filepath.Join(dir, fullName)}, nil
}

// State represents all persisted simulator data.
type State struct {
	Pair      string        `json:"pair"`
	Asset     string        `json:"asset"`
	Currency  string        `json:"currency"`
	Orders    []StoredOrder `json:"orders,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StoredOrder is a serializable paper order fill.
type StoredOrder struct {
	ID       string           `json:"id"`
	Side     domain.OrderSide `json:"side"`
	Amount   string           `json:"amount"`
	Price    string           `json:"price"`
	FilledAt time.Time        `json:"filled_at"`
}

// NewState converts a portfolio into its stored representation.
func NewState(pair domain.Pair, p domain.Portfolio, orders []StoredOrder) State {
	return State{
		Pair:      pair.String(),
		Asset:     p.Asset.String(),
		Currency:  p.Currency.String(),
		Orders:    orders,
		UpdatedAt: time.Now().UTC(),
	}
}

// Portfolio reconstructs the wallet from stored data.
func (s *State) Portfolio() (domain.Portfolio, error) {
	asset, err := decimal.NewFromString(s.Asset)
	if err != nil {
		return domain.Portfolio{}, errors.Wrap(err, "decode asset balance")
	}
	currency, err := decimal.NewFromString(s.Currency)
	if err != nil {
		return domain.Portfolio{}, errors.Wrap(err, "decode currency balance")
	}
	return domain.Portfolio{Asset: asset, Currency: currency}, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads simulator state from disk.
func (s *Store) Load() (*State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "read simulate state")
	}

	if len(payload) == 0 {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode simulate state")
	}

	return &state, nil
}

// Save writes simulator state to disk atomically via temp file.
func (s *Store) Save(state State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode simulate state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write simulate state temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist simulate state")
	}

	return nil
}

func sanitizeScope(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}

	var b strings.Builder

	prevUnderscore := false

	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)

			prevUnderscore = false

			continue
		}

		if !prevUnderscore {
			b.WriteByte('_')

			prevUnderscore = true
		}
	}

	return strings.Trim(b.String(), "_")
}
