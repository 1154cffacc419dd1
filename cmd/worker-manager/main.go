// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cre-workers/internal/analysis"
	"cre-workers/internal/common/aws"
	"cre-workers/internal/common/camunda"
	"cre-workers/internal/common/config"
	"cre-workers/internal/common/database"
	"cre-workers/internal/common/logger"
	"cre-workers/internal/common/observability"
	"cre-workers/internal/leasecalc"

	br "cre-workers/internal/workers/lease/breakeven-rates"
	er "cre-workers/internal/workers/lease/effective-rent"
)

var backendRetry = &camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	opts := analysis.Options{
		Defaults: leasecalc.Convention{
			Compounding: leasecalc.Compounding(cfg.Calculator.Compounding),
			Timing:      leasecalc.Timing(cfg.Calculator.Timing),
		},
		CacheTTL:      cfg.Calculator.CacheTTLDuration(),
		Logger:        log,
		Observability: obs,
	}

	// --- Init Redis with retry ---
	if cfg.Database.Redis.Enabled {
		var redis *database.RedisClient
		err = camunda.Retry(ctx, backendRetry, "redis connect", func(ctx context.Context) error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := redis.Ping(ctx); err != nil {
				redis.Close()
				return err
			}
			return nil
		})
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		opts.Cache = redis
		zapLog.Info("Redis connected successfully")
	}

	// --- Init PostgreSQL with retry ---
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err = camunda.Retry(ctx, backendRetry, "postgres connect", func(ctx context.Context) error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			return nil
		})
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema migration failed", zap.Error(err))
		}
		opts.Store = pg
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry ---
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = camunda.Retry(ctx, backendRetry, "elasticsearch connect", func(ctx context.Context) error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		})
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		opts.Indexer = esClient
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", esClient.Index))
	}

	// --- Init SNS publisher ---
	if cfg.Notifications.SNS.Enabled {
		publisher, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		opts.Notifier = publisher
		zapLog.Info("SNS publisher initialized", zap.String("topic", cfg.Notifications.SNS.TopicARN))
	}

	service := analysis.NewService(opts)
	zapLog.Info("Analysis service ready", zap.Stringer("defaultConvention", service.Defaults()))

	// --- Register workers ---
	effectiveRent, err := er.NewHandler(er.HandlerOptions{
		AppConfig:     cfg,
		Service:       service,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("failed to create effective-rent handler", zap.Error(err))
	}
	effectiveRent.Register(zeebe.GetClient())

	breakeven, err := br.NewHandler(br.HandlerOptions{
		AppConfig:     cfg,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		zapLog.Fatal("failed to create breakeven-rates handler", zap.Error(err))
	}
	breakeven.Register(zeebe.GetClient())

	zapLog.Info("Workers registered",
		zap.Strings("taskTypes", []string{effectiveRent.GetTaskType(), breakeven.GetTaskType()}),
	)

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           newHealthMux(zeebe),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	effectiveRent.Close()
	breakeven.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// newHealthMux serves liveness, broker readiness and prometheus metrics.
func newHealthMux(broker healthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", "")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := broker.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready", "")
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status, reason string) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if reason != "" {
		body["reason"] = reason
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
