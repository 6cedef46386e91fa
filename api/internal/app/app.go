// Package app wires configuration into the extraction pipeline and its storage.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quiz-bot/api/internal/config"
	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/fetch"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/store"
	"quiz-bot/api/internal/syllabus"
)

type App struct {
	Cfg         *config.Config
	Log         logger.Logger
	DB          *sql.DB
	Service     *extract.Service
	Access      *store.AccessRepo
	Extractions *store.ExtractionRepo
}

// NewService builds the pipeline without any storage. The LLM syllabus strategy
// is appended only when a Gemini key is configured.
func NewService(cfg *config.Config, log logger.Logger) (*extract.Service, error) {
	ts, err := cfg.Timeouts()
	if err != nil {
		return nil, err
	}
	client := fetch.New(log.With(map[string]interface{}{"component": "fetch"})).WithTimeouts(ts)

	strategies := []syllabus.Strategy{syllabus.FromQuestions{}, syllabus.FromDescription{}}
	if cfg.GeminiAPIKey != "" {
		strategies = append(strategies, syllabus.NewLLM(cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	ex := syllabus.NewExtractor(log, strategies...)

	ep := extract.Endpoints{
		Questions: cfg.QuestionsURL,
		Metadata:  cfg.MetadataURL,
		Syllabus:  cfg.SyllabusURL,
	}
	return extract.NewService(client, ep, ex, log), nil
}

// Open connects the database and returns a pipeline that records every extraction.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	svc, err := NewService(cfg, log)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == store.DriverPostgres {
		log.Info("db connected", map[string]interface{}{"dsn": config.SafeDSNSummary(cfg.DatabaseURL)})
	} else {
		log.Info("db connected", map[string]interface{}{"driver": cfg.DBDriver})
	}

	a := &App{
		Cfg:         cfg,
		Log:         log,
		DB:          db,
		Service:     svc,
		Access:      store.NewAccessRepo(db),
		Extractions: store.NewExtractionRepo(db),
	}
	svc.Audit = a.Extractions
	return a, nil
}

func (a *App) Health(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	return nil
}

func (a *App) Close() error { return a.DB.Close() }

// PurgeLoop trims the extraction log once an hour until ctx ends.
// A non-positive retention keeps everything.
func (a *App) PurgeLoop(ctx context.Context) {
	if a.Cfg.AuditRetention <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := a.Extractions.PurgeOlderThan(ctx, a.Cfg.AuditRetention)
		if err != nil {
			a.Log.WithError(err).Warn("extraction log purge failed", nil)
		} else if n > 0 {
			a.Log.Info("extraction log purged", map[string]interface{}{"rows": n})
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
