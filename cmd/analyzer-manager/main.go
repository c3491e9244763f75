// cmd/analyzer-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/analysis/backend"
	"email-analyzer/internal/analysis/fallback"
	"email-analyzer/internal/cache"
	"email-analyzer/internal/categorization"
	appaws "email-analyzer/internal/common/aws"
	"email-analyzer/internal/common/camunda"
	"email-analyzer/internal/common/config"
	"email-analyzer/internal/common/database"
	"email-analyzer/internal/common/logger"
	"email-analyzer/internal/common/observability"
	"email-analyzer/internal/store"
	ce "email-analyzer/internal/workers/email/categorize-emails"
)

var startupRetry = &camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("Starting analyzer manager...", map[string]interface{}{
		"environment": cfg.App.Environment,
		"backend":     cfg.Analysis.Backend.Mode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New("analyzer-manager")
	defer obs.Shutdown()

	wcfg := config.GetWorkerConfig(cfg, ce.TaskType)

	// --- Storage ---
	var pg *database.PostgresClient
	err = camunda.Retry(ctx, startupRetry, log, "postgres connect", func() error {
		var err error
		if pg == nil {
			if pg, err = database.NewPostgres(cfg.Database.Postgres, wcfg.MaxJobsActive); err != nil {
				return err
			}
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	if err := store.Migrate(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	mailbox := store.NewPostgres(pg.DB)
	sinks := store.MultiSink{mailbox}

	if cfg.Database.Elasticsearch.Enabled {
		esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		if err := camunda.Retry(ctx, startupRetry, log, "elasticsearch ping", func() error {
			return esClient.Ping(ctx)
		}); err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := esClient.EnsureActivityIndex(ctx, cfg.Database.Elasticsearch.ActivityIndex); err != nil {
			zapLog.Fatal("activity index setup failed", zap.Error(err))
		}
		sinks = append(sinks, store.NewElasticsearchActivity(esClient.Client, cfg.Database.Elasticsearch.ActivityIndex))
		log.Info("Elasticsearch activity index enabled", map[string]interface{}{
			"index": cfg.Database.Elasticsearch.ActivityIndex,
		})
	}

	serviceOpts := []analysis.Option{
		analysis.WithObservability(obs),
		analysis.WithTimeout(config.GetDuration(cfg.Analysis.Backend.Timeout)),
	}

	var redisClient *database.RedisClient
	if cfg.Analysis.Cache.Enabled {
		redisClient = database.NewRedis(cfg.Database.Redis, wcfg.MaxJobsActive)
		if err := camunda.Retry(ctx, startupRetry, log, "redis ping", func() error {
			return redisClient.Ping(ctx)
		}); err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()

		ttl := time.Duration(cfg.Analysis.Cache.TTL) * time.Second
		serviceOpts = append(serviceOpts, analysis.WithCache(cache.NewRedis(redisClient.Client, ttl)))
		log.Info("Redis analysis cache enabled", map[string]interface{}{"ttl": ttl.String()})
	}

	var alerter categorization.Alerter
	if cfg.Alerts.SNS.Enabled {
		snsClient, err := appaws.NewSNSClient(ctx, cfg.Alerts.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		alerter = appaws.NewUrgentAlerter(snsClient, cfg.Alerts.SNS.TopicARN, log)
	}

	// --- Analysis ---
	primary, err := newBackend(cfg, log)
	if err != nil {
		zapLog.Fatal("analysis backend setup failed", zap.Error(err))
	}
	service := analysis.NewService(primary, fallback.New(log), log, serviceOpts...)
	categorizer := categorization.NewCategorizer(service, mailbox, sinks, alerter, log)
	health := categorization.NewHealthChecker(service)

	// --- Workers ---
	zeebe, err := camunda.NewClient(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	handler := ce.NewHandler(&ce.Config{Timeout: config.GetDuration(wcfg.Timeout)}, categorizer, log)
	categorizeWorker := camunda.StartWorker(zeebe.GetClient(), ce.TaskType, wcfg, handler, log)

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := health.Check(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"postgres": "ok", "zeebe": "ok"}
		code := http.StatusOK
		if err := pg.Ping(r.Context()); err != nil {
			checks["postgres"], code = err.Error(), http.StatusServiceUnavailable
		}
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			checks["zeebe"], code = err.Error(), http.StatusServiceUnavailable
		}
		if redisClient != nil {
			checks["redis"] = "ok"
			if err := redisClient.Ping(r.Context()); err != nil {
				checks["redis"], code = err.Error(), http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutdown signal received, stopping workers...", nil)

	categorizeWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health/Metrics server shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Analyzer manager stopped", nil)
}

func newBackend(cfg *config.Config, log logger.Logger) (analysis.Backend, error) {
	b := cfg.Analysis.Backend
	switch b.Mode {
	case config.BackendProcess:
		return backend.NewProcess(b.Command, processArgs(cfg), log), nil
	case config.BackendHTTP:
		return backend.NewHTTP(b.BaseURL, &http.Client{}, log), nil
	case config.BackendLocal:
		return backend.NewLocal(backend.NewPipeline(backend.LocalOptions{
			AccuracyThreshold: cfg.Analysis.AccuracyThreshold,
			SecondaryLatency:  config.GetDuration(cfg.Analysis.Secondary.Latency),
			SecondaryTimeout:  config.GetDuration(cfg.Analysis.Secondary.Timeout),
		}, log)), nil
	default:
		return nil, errors.New("unknown analysis backend mode: " + b.Mode)
	}
}

// processArgs forwards the ensemble settings to the child analyzer. Args from
// the backend config come last so they override.
func processArgs(cfg *config.Config) []string {
	a := cfg.Analysis
	args := []string{"--threshold=" + strconv.FormatFloat(a.AccuracyThreshold, 'f', -1, 64)}
	if a.Secondary.Latency > 0 {
		args = append(args, "--secondary-latency="+config.GetDuration(a.Secondary.Latency).String())
	}
	if a.Secondary.Timeout > 0 {
		args = append(args, "--secondary-timeout="+config.GetDuration(a.Secondary.Timeout).String())
	}
	return append(args, a.Backend.Args...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
