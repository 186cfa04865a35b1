package bot

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/EgorLis/bitacbot/internal/config"
)

// Metrics: счётчики бота на собственном реестре. Методы допускают nil.
type Metrics struct {
	Registry *prometheus.Registry

	events           *prometheus.CounterVec
	lookups          *prometheus.CounterVec
	explorerRequests *prometheus.CounterVec
	explorerDuration prometheus.Histogram
	relaysConnected  prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}
	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitacbot",
		Name:      "events_total",
		Help:      "Mentions dispatched to a command",
	}, []string{"command"})
	m.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitacbot",
		Name:      "lookups_total",
		Help:      "Balance lookups by result",
	}, []string{"result"})
	m.explorerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitacbot",
		Name:      "explorer_requests_total",
		Help:      "Explorer requests by status",
	}, []string{"status"})
	m.explorerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bitacbot",
		Name:      "explorer_request_duration_seconds",
		Help:      "Explorer request latency",
		Buckets:   prometheus.DefBuckets,
	})
	m.relaysConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bitacbot",
		Name:      "relays_connected",
		Help:      "Relays with an open connection",
	})
	m.Registry.MustRegister(
		m.events, m.lookups, m.explorerRequests, m.explorerDuration, m.relaysConnected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) event(command string) {
	if m != nil {
		m.events.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) lookup(result string) {
	if m != nil {
		m.lookups.WithLabelValues(result).Inc()
	}
}

// ObserveExplorer подходит как explorer.Config.Observer.
func (m *Metrics) ObserveExplorer(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.explorerRequests.WithLabelValues(status).Inc()
	m.explorerDuration.Observe(took.Seconds())
}

func (m *Metrics) SetRelaysConnected(n int) {
	if m != nil {
		m.relaysConnected.Set(float64(n))
	}
}

// Handler отдаёт /metrics и /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve поднимает HTTP-сервер метрик и гасит его при отмене ctx.
func (m *Metrics) Serve(ctx context.Context, cfg config.Metrics, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      m.Handler(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		IdleTimeout:  cfg.IdleTimeout.Std(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
