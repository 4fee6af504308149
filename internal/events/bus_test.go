package events

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"go.uber.org/zap"
)

type recorder struct {
	name  string
	log   *[]string
	fail  error
	seen  []domain.Candle
	first []domain.Candle
	adv   []domain.Advice
	soft  []domain.Advice
}

func (r *recorder) ProcessCandle(_ context.Context, c domain.Candle) error {
	*r.log = append(*r.log, r.name+":candle")
	r.seen = append(r.seen, c)
	return r.fail
}

func (r *recorder) InitHistory(_ context.Context, c domain.Candle) error {
	*r.log = append(*r.log, r.name+":history")
	r.first = append(r.first, c)
	return nil
}

func (r *recorder) ProcessAdvice(_ context.Context, a domain.Advice) error {
	*r.log = append(*r.log, r.name+":advice")
	r.adv = append(r.adv, a)
	return r.fail
}

func (r *recorder) ProcessSoftAdvice(_ context.Context, a domain.Advice) error {
	*r.log = append(*r.log, r.name+":soft")
	r.soft = append(r.soft, a)
	return nil
}

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	var log []string
	first := &recorder{name: "first", log: &log}
	second := &recorder{name: "second", log: &log}

	bus := NewBus(zap.NewNop())
	require.NoError(t, bus.Subscribe(
		OnCandle("first", first),
		OnHistory("second", second),
		OnCandle("second", second),
		OnAdvice("second", second),
		OnSoftAdvice("first", first),
	))
	bus.Seal()

	candle := domain.Candle{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 10}
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, EmitterMarket, TopicHistory, candle))
	require.NoError(t, bus.Publish(ctx, EmitterMarket, TopicCandle, candle))
	require.NoError(t, bus.Publish(ctx, EmitterAdvisor, TopicAdvice, domain.Advice{Recommendation: domain.RecommendationLong}))
	require.NoError(t, bus.Publish(ctx, EmitterAdvisor, TopicSoftAdvice, domain.Advice{}))

	assert.Equal(t, []string{"second:history", "first:candle", "second:candle", "second:advice", "first:soft"}, log)
	assert.Equal(t, []string{"first", "second"}, bus.Subscribers(EmitterMarket, TopicCandle))
	assert.Len(t, first.seen, 1)
	assert.Len(t, second.first, 1)
	assert.Equal(t, domain.RecommendationLong, second.adv[0].Recommendation)
}

func TestBus_FailingHandlerStopsDelivery(t *testing.T) {
	var log []string
	failing := &recorder{name: "failing", log: &log, fail: errors.New("boom")}
	next := &recorder{name: "next", log: &log}

	bus := NewBus(zap.NewNop())
	require.NoError(t, bus.Subscribe(OnCandle("failing", failing), OnCandle("next", next)))
	bus.Seal()

	err := bus.Publish(context.Background(), EmitterMarket, TopicCandle, domain.Candle{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"failing:candle"}, log)
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Seal()
	assert.NoError(t, bus.Publish(context.Background(), EmitterMarket, TopicSmallCandle, domain.Candle{}))
}

func TestBus_Validation(t *testing.T) {
	var log []string
	r := &recorder{name: "r", log: &log}

	t.Run("unknown route", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		err := bus.Subscribe(Subscription{Route: Route{EmitterAdvisor, TopicCandle}, Name: "r", Handler: OnCandle("r", r).Handler})
		assert.True(t, errors.Is(err, ErrUnknownRoute))

		err = bus.Publish(context.Background(), Emitter("nobody"), TopicCandle, nil)
		assert.True(t, errors.Is(err, ErrUnknownRoute))
	})

	t.Run("nil handler", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		err := bus.Subscribe(Subscription{Route: Route{EmitterMarket, TopicCandle}, Name: "r"})
		assert.Error(t, err)
	})

	t.Run("sealed", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		bus.Seal()
		err := bus.Subscribe(OnCandle("r", r))
		assert.True(t, errors.Is(err, ErrSealed))
	})

	t.Run("wrong payload type", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		require.NoError(t, bus.Subscribe(OnCandle("r", r)))
		bus.Seal()
		err := bus.Publish(context.Background(), EmitterMarket, TopicCandle, "not a candle")
		assert.Error(t, err)
	})
}
