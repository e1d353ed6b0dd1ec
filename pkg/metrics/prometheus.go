package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"mybank/internal/domain"
)

type MetricsCollector struct {
	registry            *prometheus.Registry
	operationsTotal     *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	largeTransactions   *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	accountBalance      *prometheus.GaugeVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	logger              *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_operations_total",
			Help: "Account operations by type, currency and outcome",
		}, []string{"operation", "currency", "status"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_operation_duration_seconds",
			Help:    "Time taken to apply an account operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		largeTransactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_large_transactions_total",
			Help: "Operations at or above the large-transaction threshold",
		}, []string{"operation", "currency"}),
		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_notifications_total",
			Help: "Notification delivery attempts by sender and outcome",
		}, []string{"sender", "status"}),
		accountBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bank_account_balance",
			Help: "Current account balance",
		}, []string{"account_id", "currency"}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "code"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
		logger: logger,
	}
}

func (m *MetricsCollector) RecordOperation(operation string, currency domain.Currency, duration time.Duration, success bool) {
	m.operationsTotal.WithLabelValues(operation, currency.String(), status(success)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordLargeTransaction(operation string, currency domain.Currency) {
	m.largeTransactions.WithLabelValues(operation, currency.String()).Inc()
}

func (m *MetricsCollector) RecordNotification(sender string, success bool) {
	m.notificationsTotal.WithLabelValues(sender, status(success)).Inc()
}

func (m *MetricsCollector) UpdateAccountBalance(accountID string, currency domain.Currency, balance decimal.Decimal) {
	m.accountBalance.WithLabelValues(accountID, currency.String()).Set(balance.InexactFloat64())
}

func (m *MetricsCollector) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
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

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
