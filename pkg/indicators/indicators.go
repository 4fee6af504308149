// Package indicators provides streaming technical indicators (EMA, DEMA, MACD, PPO, RSI).
//
// Every indicator consumes one price per candle in O(1) time and memory. Composite indicators
// are built from EMA instances so their outputs stay consistent with each other.
package indicators

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownKind is returned for indicator types outside the supported set.
var ErrUnknownKind = errors.New("unknown indicator type")

// Kind closed set of supported indicator types.
type Kind int

const (
	KindEMA Kind = iota + 1
	KindDEMA
	KindMACD
	KindPPO
	KindRSI
)

var kindNames = map[Kind]string{
	KindEMA:  "EMA",
	KindDEMA: "DEMA",
	KindMACD: "MACD",
	KindPPO:  "PPO",
	KindRSI:  "RSI",
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves an indicator type name.
func ParseKind(s string) (Kind, error) {
	for kind, name := range kindNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return kind, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Indicator stateful transform fed with one price per candle.
type Indicator interface {
	Kind() Kind
	// Update pushes one new sample.
	Update(price float64)
	// Result primary output of the indicator.
	Result() float64
	// Age number of samples consumed.
	Age() int
}

// Params indicator parameters. EMA and RSI use Period, DEMA uses Short and Long,
// MACD and PPO use Short, Long and Signal.
type Params struct {
	Period int
	Short  int
	Long   int
	Signal int
}

// New creates an indicator of the given kind.
func New(kind Kind, p Params) (Indicator, error) {
	switch kind {
	case KindEMA:
		if p.Period <= 0 {
			return nil, fmt.Errorf("EMA period must be positive, got %d", p.Period)
		}
		return NewEMA(p.Period), nil
	case KindDEMA:
		if p.Short <= 0 || p.Long <= 0 {
			return nil, fmt.Errorf("DEMA short and long periods must be positive, got %d/%d", p.Short, p.Long)
		}
		return NewDEMA(p.Short, p.Long), nil
	case KindMACD:
		if err := validateOscillator("MACD", p); err != nil {
			return nil, err
		}
		return NewMACD(p.Short, p.Long, p.Signal), nil
	case KindPPO:
		if err := validateOscillator("PPO", p); err != nil {
			return nil, err
		}
		return NewPPO(p.Short, p.Long, p.Signal), nil
	case KindRSI:
		if p.Period <= 0 {
			return nil, fmt.Errorf("RSI period must be positive, got %d", p.Period)
		}
		return NewRSI(p.Period), nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%s", kind)
	}
}

func validateOscillator(name string, p Params) error {
	if p.Short <= 0 || p.Long <= 0 || p.Signal <= 0 {
		return fmt.Errorf("%s short, long and signal periods must be positive, got %d/%d/%d", name, p.Short, p.Long, p.Signal)
	}
	return nil
}

// Registry named indicators owned by one trading method, updated in registration order.
type Registry struct {
	names []string
	items map[string]Indicator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Indicator)}
}

// Add creates an indicator and registers it under name.
func (r *Registry) Add(name string, kind Kind, p Params) (Indicator, error) {
	if _, exists := r.items[name]; exists {
		return nil, fmt.Errorf("indicator %q already registered", name)
	}
	ind, err := New(kind, p)
	if err != nil {
		return nil, errors.Wrapf(err, "add indicator %q", name)
	}
	r.names = append(r.names, name)
	r.items[name] = ind
	return ind, nil
}

// Update feeds price into every registered indicator.
func (r *Registry) Update(price float64) {
	for _, name := range r.names {
		r.items[name].Update(price)
	}
}

// Get returns the indicator registered under name.
func (r *Registry) Get(name string) (Indicator, bool) {
	ind, ok := r.items[name]
	return ind, ok
}

// Names returns indicator names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered indicators.
func (r *Registry) Len() int {
	return len(r.names)
}

// As returns the indicator registered under name as its concrete type.
func As[T Indicator](r *Registry, name string) (T, error) {
	var zero T
	ind, ok := r.Get(name)
	if !ok {
		return zero, fmt.Errorf("indicator %q is not registered", name)
	}
	typed, ok := ind.(T)
	if !ok {
		return zero, fmt.Errorf("indicator %q is %s, not %T", name, ind.Kind(), zero)
	}
	return typed, nil
}
