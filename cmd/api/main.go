package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "market_intel/internal/adapters/http_server"
	"market_intel/internal/adapters/observability"
	redisad "market_intel/internal/adapters/redis"
	"market_intel/internal/app"
	"market_intel/internal/domain"
	"market_intel/internal/shared"
	mysqlrepo "market_intel/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	policy, err := shared.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load scoring policy failed")
	}

	// failure log is optional
	var failures domain.FailureLog
	if cfg.MySQLDSN != "" {
		db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("mysql unavailable")
		}
		defer db.Close()
		repo := mysqlrepo.New(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("mysql migrate failed")
		}
		failures = repo
		log.Info().Msg("database connection ok")
	} else {
		log.Info().Msg("MYSQL_DSN empty, provider failure log disabled")
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// searches still work, every read is a miss
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
	}

	var aggOpts []app.AggregatorOption
	if failures != nil {
		aggOpts = append(aggOpts, app.WithFailureLog(failures))
	}
	agg := cfg.Aggregator(aggOpts...)

	q := app.NewQueryService(agg, cache, cfg.CacheTTL)
	if failures != nil {
		q.WithFailureLog(failures)
	}
	analyzer := app.NewMarketAnalyzer(agg, cfg.Geocoder(), policy)

	// http
	srv := server.New(cfg.RequestTimeout())
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, A: analyzer})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Dur("provider_timeout", cfg.ProviderTimeout).
		Bool("fallback", cfg.FallbackEnabled).
		Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	<-stopped
	// flush failure rows from the last requests before the db closes
	agg.Wait()
	log.Info().Msg("API stopped")
}
