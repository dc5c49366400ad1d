package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/learning-platform/internal/catalog"
	"github.com/example/learning-platform/internal/events"
	"github.com/example/learning-platform/internal/handlers"
	"github.com/example/learning-platform/internal/platform/auth"
	"github.com/example/learning-platform/internal/platform/config"
	"github.com/example/learning-platform/internal/platform/db"
	"github.com/example/learning-platform/internal/platform/httpserver"
	"github.com/example/learning-platform/internal/platform/logging"
	"github.com/example/learning-platform/internal/platform/natsconn"
	"github.com/example/learning-platform/internal/platform/run"
	"github.com/example/learning-platform/internal/progress"
	"github.com/example/learning-platform/internal/worker"
)

func main() {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	pool, err := db.Open(context.Background())
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	defer pool.Close()

	store := progress.NewPostgresStore(pool)
	cat := catalog.NewPostgresStore(pool)
	agg := progress.NewStatsAggregator(store, log)

	// NATS is optional: without it completion events fall back to in-process
	// best-effort counter refreshes.
	var js nats.JetStreamContext
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats connect failed, running without event delivery", zap.Error(err))
	} else {
		defer nc.Close()
		js, err = nc.JetStream()
		if err != nil {
			log.Warn("jetstream unavailable", zap.Error(err))
			js = nil
		}
	}
	pub := events.New(js, log)
	svc := progress.NewService(store, cat, agg, pub, log)

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	verifier := auth.JWTVerifier{Secret: cfg.JWTSecret}
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/progress", handlers.ReportProgress(svc))
		r.Get("/v1/progress/{video_id}", handlers.GetProgress(svc))
		r.Put("/v1/playlists/{playlist_id}/videos/{video_id}/completion", handlers.SetPlaylistCompletion(svc))
		r.Get("/v1/stats", handlers.GetLearningStats(agg))
	})

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      r,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if nc != nil {
			worker.StartCounterConsumer(ctx, nc, agg, log)
		}
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
