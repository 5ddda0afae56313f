package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"jobserver/internal/adapter/repo"
	"jobserver/internal/dispatch"
	"jobserver/internal/govern"
	"jobserver/internal/http/handlers"
	httpapi "jobserver/internal/http/httpapi"
	"jobserver/internal/infra"
	"jobserver/internal/jobs"
	"jobserver/internal/notify"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	jobRepo := repo.NewJobRepository(runner)
	ruleRepo := repo.NewRuleRepository(runner)

	registry := dispatch.NewRegistry()
	invoker := dispatch.NewHTTPInvoker(cfg.WorkerBaseURL, cfg.ServiceToken, cfg.DispatchTimeout)
	dispatcher := dispatch.NewDispatcher(jobRepo, registry, invoker, logger)
	governor := govern.NewGovernor(ruleRepo, jobRepo, dispatcher, nil, logger)
	client := jobs.NewClient(jobRepo, dispatcher, registry, logger)

	// Bridge Postgres job_events notifications into per-owner SSE streams.
	hub := notify.NewHub()
	listener := notify.NewListener(dbpool, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("notify listener stopped")
		}
	}()

	app := &handlers.App{
		Jobs:       client,
		JobsRepo:   jobRepo,
		Dispatcher: dispatcher,
		Governor:   governor,
		Hub:        hub,
		Logger:     logger,
	}
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, cfg.Port, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
