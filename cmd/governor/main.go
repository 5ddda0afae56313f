package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jobserver/internal/adapter/repo"
	"jobserver/internal/dispatch"
	"jobserver/internal/govern"
	"jobserver/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("governor: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobRepo := repo.NewJobRepository(runner)
	ruleRepo := repo.NewRuleRepository(runner)

	registry := dispatch.NewRegistry()
	invoker := dispatch.NewHTTPInvoker(cfg.WorkerBaseURL, cfg.ServiceToken, cfg.DispatchTimeout)
	dispatcher := dispatch.NewDispatcher(jobRepo, registry, invoker, logger)
	governor := govern.NewGovernor(ruleRepo, jobRepo, dispatcher, nil, logger)

	logger.Info().Dur("interval", cfg.GovernorInterval).Msg("governor: started")

	ticker := time.NewTicker(cfg.GovernorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("governor: stopped")
			return
		case <-ticker.C:
		}

		reports, err := governor.RunCycle(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("governor: cycle failed")
			continue
		}
		for _, rep := range reports {
			logger.Info().
				Str("rule", rep.Rule).
				Str("status", rep.Status).
				Int("released", rep.Released).
				Msg("governor: rule evaluated")
		}
	}
}
