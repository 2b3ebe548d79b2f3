// Command analytics runs the analytics aggregator on its own. It consumes
// query and index events from Kafka and serves the aggregate at
// GET /api/v1/analytics, for deployments with several searchers.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port; defaults to server.port + 1")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port == 0 {
		*port = cfg.Server.Port + 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting analytics service", "port", *port, "brokers", cfg.Kafka.Brokers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	checker := health.NewChecker()
	for _, topic := range []string{cfg.Kafka.Topics.QueryEvents, cfg.Kafka.Topics.IndexEvents} {
		consumer := kafka.NewConsumer(cfg.Kafka, topic, aggregator.HandleMessage)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "topic", topic, "error", err)
			}
		}()
		checker.Register("kafka:"+topic, func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
		})
	}

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
