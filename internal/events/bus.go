// Package events routes pipeline events from producers to consumers through a static subscription table.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrUnknownRoute is returned when subscribing to or publishing on an undeclared route.
	ErrUnknownRoute = errors.New("unknown event route")
	// ErrSealed is returned when subscribing after the table was sealed.
	ErrSealed = errors.New("subscription table is sealed")
)

// Emitter name of an event producer.
type Emitter string

// Topic name of an event.
type Topic string

const (
	EmitterMarket  Emitter = "market"
	EmitterAdvisor Emitter = "advisor"

	TopicCandle      Topic = "candle"
	TopicSmallCandle Topic = "small candle"
	TopicHistory     Topic = "history"
	TopicAdvice      Topic = "advice"
	TopicSoftAdvice  Topic = "soft advice"
)

// Route producer/topic pair a subscription is bound to.
type Route struct {
	Emitter Emitter
	Topic   Topic
}

func (r Route) String() string {
	return fmt.Sprintf("%s:%s", r.Emitter, r.Topic)
}

var knownRoutes = map[Route]struct{}{
	{EmitterMarket, TopicCandle}:      {},
	{EmitterMarket, TopicSmallCandle}: {},
	{EmitterMarket, TopicHistory}:     {},
	{EmitterAdvisor, TopicAdvice}:     {},
	{EmitterAdvisor, TopicSoftAdvice}: {},
}

// Event a published payload together with its route.
type Event struct {
	Route
	Payload any
}

// Handler consumes one event.
type Handler func(ctx context.Context, ev Event) error

// Subscription binds a named consumer handler to a route.
type Subscription struct {
	Route
	// Name consumer name used in logs and errors.
	Name    string
	Handler Handler
}

// Publisher publishes events on a route.
type Publisher interface {
	Publish(ctx context.Context, emitter Emitter, topic Topic, payload any) error
}

// Bus synchronous event bus. The table is built once at startup and read-only after Seal.
type Bus struct {
	logger *zap.Logger

	mu     sync.Mutex
	sealed bool
	table  map[Route][]Subscription
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger, table: make(map[Route][]Subscription)}
}

// Subscribe appends subscriptions to the table in the given order.
func (b *Bus) Subscribe(subs ...Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return ErrSealed
	}

	for _, s := range subs {
		if _, ok := knownRoutes[s.Route]; !ok {
			return errors.Wrapf(ErrUnknownRoute, "subscribe %q to %s", s.Name, s.Route)
		}
		if s.Handler == nil {
			return fmt.Errorf("subscription %q to %s has no handler", s.Name, s.Route)
		}
	}
	for _, s := range subs {
		b.table[s.Route] = append(b.table[s.Route], s)
		b.logger.Debug("subscribed", zap.String("consumer", s.Name), zap.Stringer("route", s.Route))
	}

	return nil
}

// Seal freezes the subscription table.
func (b *Bus) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// Subscribers returns consumer names subscribed to a route, in delivery order.
func (b *Bus) Subscribers(emitter Emitter, topic Topic) []string {
	subs := b.route(Route{Emitter: emitter, Topic: topic})
	names := make([]string, 0, len(subs))
	for _, s := range subs {
		names = append(names, s.Name)
	}
	return names
}

// Publish delivers the event to every subscriber of the route synchronously, in registration
// order. Delivery stops at the first failing handler and its error is returned.
func (b *Bus) Publish(ctx context.Context, emitter Emitter, topic Topic, payload any) error {
	route := Route{Emitter: emitter, Topic: topic}
	if _, ok := knownRoutes[route]; !ok {
		return errors.Wrapf(ErrUnknownRoute, "publish on %s", route)
	}

	ev := Event{Route: route, Payload: payload}
	for _, s := range b.route(route) {
		if err := s.Handler(ctx, ev); err != nil {
			return errors.Wrapf(err, "%s handler %q", route, s.Name)
		}
	}

	return nil
}

func (b *Bus) route(r Route) []Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return b.table[r]
	}
	return append([]Subscription(nil), b.table[r]...)
}

// CandleProcessor consumes every closed candle.
type CandleProcessor interface {
	ProcessCandle(ctx context.Context, candle domain.Candle) error
}

// SmallCandleProcessor consumes candles of the small interval.
type SmallCandleProcessor interface {
	ProcessSmallCandle(ctx context.Context, candle domain.Candle) error
}

// HistoryInitializer consumes the first candle produced by the market.
type HistoryInitializer interface {
	InitHistory(ctx context.Context, first domain.Candle) error
}

// AdviceProcessor consumes non-neutral advice.
type AdviceProcessor interface {
	ProcessAdvice(ctx context.Context, advice domain.Advice) error
}

// SoftAdviceProcessor consumes neutral advice heartbeats.
type SoftAdviceProcessor interface {
	ProcessSoftAdvice(ctx context.Context, advice domain.Advice) error
}

// OnCandle subscribes p to market candles.
func OnCandle(name string, p CandleProcessor) Subscription {
	return Subscription{
		Route:   Route{EmitterMarket, TopicCandle},
		Name:    name,
		Handler: candleHandler(p.ProcessCandle),
	}
}

// OnSmallCandle subscribes p to market small candles.
func OnSmallCandle(name string, p SmallCandleProcessor) Subscription {
	return Subscription{
		Route:   Route{EmitterMarket, TopicSmallCandle},
		Name:    name,
		Handler: candleHandler(p.ProcessSmallCandle),
	}
}

// OnHistory subscribes p to the one-time first candle event.
func OnHistory(name string, p HistoryInitializer) Subscription {
	return Subscription{
		Route:   Route{EmitterMarket, TopicHistory},
		Name:    name,
		Handler: candleHandler(p.InitHistory),
	}
}

// OnAdvice subscribes p to advisor advice.
func OnAdvice(name string, p AdviceProcessor) Subscription {
	return Subscription{
		Route:   Route{EmitterAdvisor, TopicAdvice},
		Name:    name,
		Handler: adviceHandler(p.ProcessAdvice),
	}
}

// OnSoftAdvice subscribes p to advisor soft advice.
func OnSoftAdvice(name string, p SoftAdviceProcessor) Subscription {
	return Subscription{
		Route:   Route{EmitterAdvisor, TopicSoftAdvice},
		Name:    name,
		Handler: adviceHandler(p.ProcessSoftAdvice),
	}
}

func candleHandler(fn func(context.Context, domain.Candle) error) Handler {
	return func(ctx context.Context, ev Event) error {
		candle, ok := ev.Payload.(domain.Candle)
		if !ok {
			return fmt.Errorf("unexpected payload %T on %s", ev.Payload, ev.Route)
		}
		return fn(ctx, candle)
	}
}

func adviceHandler(fn func(context.Context, domain.Advice) error) Handler {
	return func(ctx context.Context, ev Event) error {
		advice, ok := ev.Payload.(domain.Advice)
		if !ok {
			return fmt.Errorf("unexpected payload %T on %s", ev.Payload, ev.Route)
		}
		return fn(ctx, advice)
	}
}
