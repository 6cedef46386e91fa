package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"quiz-bot/api/internal/apperr"
	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/render"
)

// Extractor is the part of extract.Service the handlers use.
type Extractor interface {
	Extract(ctx context.Context, nid string, vs []render.Variant, opt extract.Options) (*extract.Result, error)
	Info(ctx context.Context, nid string) (*quiz.Metadata, error)
}

type Handle struct {
	svc     Extractor
	timeout time.Duration
	log     logger.Logger
}

func New(svc Extractor, timeout time.Duration, log logger.Logger) *Handle {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handle{svc: svc, timeout: timeout, log: log}
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps pipeline failures onto HTTP statuses.
func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidIdentifier:
		return http.StatusBadRequest
	case apperr.CodeNoQuestions:
		return http.StatusNotFound
	case apperr.CodeNotAvailable, apperr.CodeTerminalParse, apperr.CodeRetryableTransport:
		return http.StatusBadGateway
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handle) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= 500 {
		h.log.WithError(err).Warn("request failed", map[string]interface{}{"status": code})
	}
	c := string(apperr.CodeOf(err))
	if c == "" {
		c = "INTERNAL"
	}
	writeJSON(w, code, errorResponse{Code: c, Error: err.Error()})
}
