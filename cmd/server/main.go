package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotlink/internal/api"
	"slotlink/internal/availability"
	"slotlink/internal/booking"
	"slotlink/internal/config"
	"slotlink/internal/db"
	"slotlink/internal/ics"
	"slotlink/internal/metrics"
	"slotlink/internal/notify"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("SLOTLINK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Server.BaseURL == "" {
		logger.Fatal().Msg("set server.base_url in config; confirmation links need it")
	}

	database, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := ics.NewFetcher(cfg.FeedTimeout(), schemeGuard, &logger)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.FeedCacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		fetcher.UseRedisCache(rdb, cfg.FeedCacheTTL())
	}

	availSvc := availability.NewService(fetcher, &logger)

	var notifier notify.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.OwnerChatID != 0 {
		notifier, err = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.OwnerChatID, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier init failed")
		}
	} else {
		notifier = notify.NewLogNotifier(&logger)
	}

	workflow := booking.NewWorkflow(database, notifier, cfg.PendingTTL(), cfg.PurgeInterval(), cfg.Server.BaseURL, &logger)
	workflow.Start()
	defer workflow.Stop()

	if retention := cfg.BookingRetention(); retention > 0 {
		go startRetentionLoop(ctx, database, retention, &logger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(cfg, availSvc, workflow, database, &logger)
	logger.Info().Int("port", cfg.Server.Port).Int("pages", len(cfg.Pages)).Msg("slotlink started")
	if err := server.Start(ctx, cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
}

// schemeGuard is a stand-in for the deployment's SSRF validator: it
// only rules out non-HTTP schemes. Host filtering belongs to the
// external validator this engine is wired behind.
func schemeGuard(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func startRetentionLoop(ctx context.Context, database *db.DB, retention time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deleted, err := database.DeleteOldBookings(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error().Err(err).Msg("booking retention cleanup failed")
			} else if deleted > 0 {
				logger.Info().Int64("deleted", deleted).Msg("removed old bookings")
			}
		case <-ctx.Done():
			return
		}
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
