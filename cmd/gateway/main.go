package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"summarize-gateway/config"
	"summarize-gateway/middleware/origin"
	"summarize-gateway/middleware/ratelimit"
	"summarize-gateway/middleware/ratelimit/application"
	"summarize-gateway/middleware/ratelimit/domain"
	"summarize-gateway/middleware/ratelimit/infra"
	"summarize-gateway/observability"
	"summarize-gateway/summarize"
	summarizeapp "summarize-gateway/summarize/application"
	summarizeinfra "summarize-gateway/summarize/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		boot := observability.NewLogger("info", "json")
		boot.Fatal().Err(err).Msg("config error")
	}

	log := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry.Enabled)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry init error")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	gemini, err := summarizeinfra.NewGeminiGenerator(summarizeinfra.GeminiConfig{
		APIKey:          cfg.Provider.APIKey,
		Model:           cfg.Provider.Model,
		BaseURL:         cfg.Provider.BaseURL,
		MaxOutputTokens: cfg.Provider.MaxTokens,
		MaxRetries:      cfg.Provider.MaxRetries,
		Timeout:         cfg.Provider.Timeout,
	}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("provider init error")
	}
	generator := summarizeinfra.NewThrottledGenerator(gemini, cfg.Provider.RPS, cfg.Provider.Burst)

	store := infra.NewWindowStore(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window,
		infra.WithMaxKeys(cfg.RateLimit.MaxKeys),
		infra.WithWindowIdleTTL(cfg.RateLimit.IdleTTL),
		infra.WithWindowCleanupEvery(cfg.RateLimit.CleanupEvery),
	)
	store.StartJanitor(ctx)

	stats, memStats, closeStats := initStats(ctx, cfg.Stats, log)
	defer closeStats()

	handler := summarize.NewHandler(summarize.Options{
		Service: summarizeapp.Service{
			Limiter: application.Service{
				Store:  store,
				Limit:  cfg.RateLimit.MaxRequests,
				Window: cfg.RateLimit.Window,
			},
			Generator: generator,
		},
		KeyFn:               ratelimit.DefaultKeyFunc(cfg.RateLimit.KeyHeader, cfg.RateLimit.TrustXFF),
		Stats:               stats,
		MemoryStats:         memStats,
		AddRateLimitHeaders: cfg.RateLimit.AddHeaders,
		Logger:              log,
	})

	guard := origin.New(origin.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
		OnReject: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"origin not allowed"}` + "\n"))
		},
	})

	router := handler.Router(summarize.RouterOptions{
		Origin:             guard,
		ConcurrencyMax:     cfg.Concurrency.Max,
		ConcurrencyTimeout: cfg.Concurrency.Timeout,
	})

	// a geração pode levar até PROVIDER_TIMEOUT por tentativa
	writeTimeout := cfg.Provider.Timeout*time.Duration(cfg.Provider.MaxRetries+1) + 10*time.Second

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       90 * time.Second,
	}

	log.Info().
		Str("addr", cfg.Server.ListenAddr).
		Str("model", gemini.Model()).
		Msg("gateway listening")
	log.Info().
		Int("limit", cfg.RateLimit.MaxRequests).
		Dur("window", cfg.RateLimit.Window).
		Int("max_keys", cfg.RateLimit.MaxKeys).
		Str("key_header", cfg.RateLimit.KeyHeader).
		Bool("trust_xff", cfg.RateLimit.TrustXFF).
		Msg("rate limit")
	log.Info().
		Float64("provider_rps", cfg.Provider.RPS).
		Int("provider_burst", cfg.Provider.Burst).
		Int("concurrency_max", cfg.Concurrency.Max).
		Dur("concurrency_timeout", cfg.Concurrency.Timeout).
		Str("stats_backend", cfg.Stats.Backend).
		Strs("allowed_origins", cfg.CORS.AllowedOrigins).
		Msg("limits")

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		log.Error().Err(err).Msg("listen error")
		return
	}
	if err := serve(ctx, srv, ln, cfg.Server.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
	log.Info().Msg("gateway stopped")
}

// serve atende em ln até ctx ser cancelado e só retorna depois que Shutdown
// terminou de drenar as requisições em voo (ou estourou o timeout). Os defers
// de main (stats, telemetria) dependem disso.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		drained <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-drained; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// initStats devolve o StatsStore configurado e, para o backend em memória,
// a instância concreta exposta em /api/stats.
func initStats(ctx context.Context, cfg config.StatsConfig, log zerolog.Logger) (domain.StatsStore, *infra.MemoryStatsStore, func()) {
	switch cfg.Backend {
	case "memory":
		mem := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.TrackKeys))
		return mem, mem, func() {}

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis stats ping error")
		}

		store := infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Prefix),
			infra.WithStatsTTL(cfg.TTL),
			infra.WithStatsBucket(cfg.Bucket),
			infra.WithStatsTrackKeys(cfg.TrackKeys),
		)
		return store, nil, func() { _ = rdb.Close() }

	default:
		return nil, nil, func() {}
	}
}
