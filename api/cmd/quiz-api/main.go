package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"quiz-bot/api/internal/app"
	"quiz-bot/api/internal/config"
	"quiz-bot/api/internal/handle"
	"quiz-bot/api/internal/httpserver"
	"quiz-bot/api/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = zl.Sync() }()
	lg := logger.NewZapAdapter(zl).With(map[string]interface{}{"service": "quiz-api"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, lg)
	if err != nil {
		lg.WithError(err).Error("open app", nil)
		os.Exit(1)
	}
	defer a.Close()
	go a.PurgeLoop(ctx)

	h := handle.New(a.Service, cfg.ExtractTimeout, lg)
	router := httpserver.NewRouter(httpserver.Options{
		Health:      a.Health,
		API:         h,
		CORSOrigins: cfg.AllowedOrigins(),
	})

	if err := httpserver.Serve(ctx, ":"+cfg.Port, router, lg); err != nil {
		lg.WithError(err).Error("http server", nil)
		os.Exit(1)
	}
}
