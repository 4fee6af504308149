// Package metrics exposes pipeline counters and indicator readings in the Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/trendwatch/internal/domain"
	"github.com/vadiminshakov/trendwatch/pkg/retrier"
	"go.uber.org/zap"
)

const namespace = "trendwatch"

// Metrics holds all collectors of the process. One instance is shared by every bot, series are
// separated by the pair label.
type Metrics struct {
	registry *prometheus.Registry

	TradesTotal     *prometheus.CounterVec
	LateTradesTotal *prometheus.CounterVec
	CandlesTotal    *prometheus.CounterVec
	AdviceTotal     *prometheus.CounterVec
	OrdersTotal     *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	AbandonedTotal  *prometheus.CounterVec
	Indicator       *prometheus.GaugeVec
	LastAdvice      *prometheus.GaugeVec
	LastPrice       *prometheus.GaugeVec
	LastHeartbeat   *prometheus.GaugeVec
}

// New creates the collectors and registers them on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Total trades fetched from the trade source",
		}, []string{"pair"}),
		LateTradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_trades_total",
			Help:      "Trades dropped because their interval was already emitted",
		}, []string{"pair"}),
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candles_total",
			Help:      "Candles emitted per series, split into real and synthetic",
		}, []string{"pair", "series", "kind"}),
		AdviceTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advice_total",
			Help:      "Advice emitted per trading method and recommendation",
		}, []string{"pair", "method", "recommendation"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders per side and outcome",
		}, []string{"pair", "side", "outcome"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Exchange calls replayed after a recoverable error",
		}, []string{"pair", "method"}),
		AbandonedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abandoned_calls_total",
			Help:      "Exchange calls given up after an unrecoverable error or exhausted retries",
		}, []string{"pair", "method"}),
		Indicator: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indicator_value",
			Help:      "Latest indicator readings of the trading method",
		}, []string{"pair", "method", "name"}),
		LastAdvice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_advice_timestamp_seconds",
			Help:      "Unix time of the latest non-neutral advice",
		}, []string{"pair", "method"}),
		LastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Close of the latest small candle",
		}, []string{"pair"}),
		LastHeartbeat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_heartbeat_timestamp_seconds",
			Help:      "Unix time of the latest neutral advice heartbeat",
		}, []string{"pair", "method"}),
	}

	m.registry.MustRegister(
		m.TradesTotal,
		m.LateTradesTotal,
		m.CandlesTotal,
		m.AdviceTotal,
		m.OrdersTotal,
		m.RetriesTotal,
		m.AbandonedTotal,
		m.Indicator,
		m.LastAdvice,
		m.LastPrice,
		m.LastHeartbeat,
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Pair returns a recorder bound to one trading pair.
func (m *Metrics) Pair(p domain.Pair) *Recorder {
	return &Recorder{m: m, pair: p.String(), now: time.Now}
}

// Recorder records the events of a single bot. It satisfies the stats hooks of the aggregator,
// the advisor and the executor.
type Recorder struct {
	m    *Metrics
	pair string
	now  func() time.Time
}

func (r *Recorder) ObserveTrades(n int) {
	r.m.TradesTotal.WithLabelValues(r.pair).Add(float64(n))
}

func (r *Recorder) ObserveLateTrades(n int) {
	r.m.LateTradesTotal.WithLabelValues(r.pair).Add(float64(n))
}

func (r *Recorder) ObserveCandle(series string, synthetic bool) {
	kind := "real"
	if synthetic {
		kind = "synthetic"
	}
	r.m.CandlesTotal.WithLabelValues(r.pair, series, kind).Inc()
}

func (r *Recorder) ObserveAdvice(method string, rec domain.Recommendation) {
	label := rec.String()
	if rec == domain.RecommendationNone {
		label = "none"
	} else {
		r.m.LastAdvice.WithLabelValues(r.pair, method).Set(float64(r.now().Unix()))
	}
	r.m.AdviceTotal.WithLabelValues(r.pair, method, label).Inc()
}

func (r *Recorder) ObserveReadings(method string, readings map[string]float64) {
	for name, v := range readings {
		r.m.Indicator.WithLabelValues(r.pair, method, name).Set(v)
	}
}

// ObserveSmallCandle tracks the price between regular candles.
func (r *Recorder) ObserveSmallCandle(c domain.Candle) {
	r.m.LastPrice.WithLabelValues(r.pair).Set(c.Close)
}

// ObserveHeartbeat tracks neutral advice, proving the method is alive while it holds.
func (r *Recorder) ObserveHeartbeat(a domain.Advice) {
	r.m.LastHeartbeat.WithLabelValues(r.pair, a.Method).Set(float64(a.EmittedAt.Unix()))
}

func (r *Recorder) ObserveOrder(side domain.OrderSide, outcome string) {
	r.m.OrdersTotal.WithLabelValues(r.pair, string(side), outcome).Inc()
}

// OnRetry is a retrier hook counting replays.
func (r *Recorder) OnRetry(a retrier.Attempt) {
	r.m.RetriesTotal.WithLabelValues(r.pair, a.Method).Inc()
}

// OnAbandon is a retrier hook counting abandoned calls.
func (r *Recorder) OnAbandon(a retrier.Attempt) {
	r.m.AbandonedTotal.WithLabelValues(r.pair, a.Method).Inc()
}

// Server exposes /metrics over HTTP.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a metrics HTTP server listening on addr.
func NewServer(addr string, m *Metrics, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
