package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"jobserver/internal/adapter/repo"
	"jobserver/internal/dispatch"
	"jobserver/internal/infra"
	"jobserver/internal/middleware"
	"jobserver/internal/providers/content"
	"jobserver/internal/worker"
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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobRepo := repo.NewJobRepository(runner)
	registry := dispatch.NewRegistry()

	generators := content.StaticGenerators()
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client := content.NewGeminiClient(content.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Logger:  &logger,
		})
		generators = content.WrapWithGemini(client, generators)
		logger.Info().Str("model", cfg.GeminiModel).Msg("worker: gemini generation enabled")
	} else {
		logger.Warn().Msg("worker: gemini api key missing, using static generation")
	}

	srv := worker.NewServer(jobRepo, registry, generators, logger)
	logger.Info().Int("job_types", len(registry.Types())).Msg("worker: generators registered")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.ServiceToken))
		r.Post("/generators/{name}", srv.HandleGenerate)
	})

	port := getWorkerPort()
	server := infra.NewHTTPServer(cfg, port, r)

	go func() {
		logger.Info().Msgf("worker listening on :%s", port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("worker: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("worker: failed to shutdown server")
	}

	// In-flight generations still own processing rows; let them write their
	// terminal state before the pool closes.
	srv.Wait()
	logger.Info().Msg("worker: stopped")
}

func getWorkerPort() string {
	if v := os.Getenv("WORKER_PORT"); v != "" {
		return v
	}
	return "8081"
}
