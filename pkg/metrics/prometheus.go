package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry           *prometheus.Registry
	transfersProcessed *prometheus.CounterVec
	transfersFailed    *prometheus.CounterVec
	transferDuration   prometheus.Histogram
	transferAmount     prometheus.Histogram
	accountBalance     *prometheus.GaugeVec
	smsDelivered       prometheus.Counter
	smsFailed          prometheus.Counter
	mu                 sync.RWMutex
	logger             *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		transfersProcessed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_processed_total",
			Help: "Total number of successfully processed transactions",
		}, []string{"type"}),
		transfersFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "transfers_failed_total",
			Help: "Total number of failed transactions by rejection reason",
		}, []string{"type", "reason"}),
		transferDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "transfer_processing_duration_seconds",
			Help:    "Time taken to process a transaction",
			Buckets: prometheus.DefBuckets,
		}),
		transferAmount: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "transfer_amount_rupees",
			Help:    "Distribution of transaction amounts",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		}),
		accountBalance: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "account_balance_rupees",
			Help: "Current account balance",
		}, []string{"account_number"}),
		smsDelivered: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "sms_delivered_total",
			Help: "Total number of SMS notifications delivered",
		}),
		smsFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "sms_failed_total",
			Help: "Total number of SMS notifications that failed to send",
		}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) RecordTransfer(txType string, amount float64, duration time.Duration, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if reason == "" {
		m.transfersProcessed.WithLabelValues(txType).Inc()
	} else {
		m.transfersFailed.WithLabelValues(txType, reason).Inc()
	}

	m.transferDuration.Observe(duration.Seconds())
	m.transferAmount.Observe(amount)
}

func (m *MetricsCollector) UpdateAccountBalance(accountNumber string, balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountBalance.WithLabelValues(accountNumber).Set(balance)
}

func (m *MetricsCollector) RecordSMS(delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delivered {
		m.smsDelivered.Inc()
	} else {
		m.smsFailed.Inc()
	}
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
