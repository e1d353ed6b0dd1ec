package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mybank/internal/account"
	"mybank/internal/api"
	"mybank/internal/config"
	"mybank/internal/exchange"
	"mybank/internal/service"
	"mybank/pkg/crypto"
	"mybank/pkg/metrics"
)

const (
	appName = "mybank"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("Starting application",
		slog.String("name", appName),
		slog.String("rates_source", cfg.RatesSource))

	metricsCollector := metrics.NewMetricsCollector(logger)
	notificationService := setupNotificationService(cfg, metricsCollector, logger)
	converter := setupConverter(cfg, logger)
	bank := service.NewBank(converter, notificationService, metricsCollector, logger)

	var signer *crypto.Signer
	if cfg.SigningSecret != "" {
		signer = crypto.NewSigner(cfg.SigningSecret, logger)
	} else {
		logger.Warn("SIGNING_SECRET not set, transaction receipts will be unsigned")
	}

	apiHandler := api.NewAPIHandler(bank, metricsCollector, signer, logger, cfg.RequestTimeout)
	metricsServer := metricsCollector.StartMetricsServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg.Port, apiHandler, logger)
	waitForShutdown(logger, httpServer, metricsServer, notificationService)
	logger.Info("Application shutdown complete")
}

func setupLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func setupNotificationService(
	cfg *config.Config,
	recorder service.NotificationRecorder,
	logger *slog.Logger,
) *service.NotificationService {
	senders := []service.Sender{service.NewLogSender(logger)}
	if cfg.WebhookURL != "" {
		senders = append(senders, service.NewWebhookSender(cfg.WebhookURL, 5*time.Second))
	}

	return service.NewNotificationService(
		senders,
		cfg.NotificationWorkers,
		recorder,
		logger,
	)
}

func setupConverter(cfg *config.Config, logger *slog.Logger) account.CurrencyConverter {
	if cfg.RatesSource == config.RatesFrankfurter {
		return exchange.NewFrankfurterClient(cfg.FrankfurterURL, 5*time.Second, logger)
	}
	return exchange.DefaultRateTable()
}

func startHTTPServer(port string, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	router := apiHandler.Router()

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, appName)
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	notificationService *service.NotificationService,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := notificationService.Shutdown(ctx); err != nil {
		logger.Error("Notification service shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}
}
