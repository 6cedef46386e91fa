package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quiz-bot/api/internal/handle"
	"quiz-bot/api/internal/logger"
)

type Options struct {
	// Health is polled by /healthz; nil means always healthy.
	Health func(ctx context.Context) error
	// API mounts /v1 when set.
	API *handle.Handle
	// WebhookPath and Webhook mount the Telegram webhook receiver when both are set.
	WebhookPath string
	Webhook     http.Handler
	CORSOrigins []string
}

// NewRouter builds the chi router shared by the bot and the API binaries.
func NewRouter(o Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if o.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := o.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if o.Webhook != nil && o.WebhookPath != "" {
		r.Post(o.WebhookPath, o.Webhook.ServeHTTP)
	}

	if o.API != nil {
		origins := o.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Route("/v1", func(ar chi.Router) {
			ar.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
				MaxAge:         300,
			}))
			ar.Get("/formats", o.API.Formats)
			ar.Get("/tests/{nid}/info", o.API.Info)
			ar.Get("/tests/{nid}/documents/{variant}", o.API.Document)
		})
	}
	return r
}

// Serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", map[string]interface{}{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
