package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quiz-bot/api/internal/apperr"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/metrics"
)

const maxBody = 32 << 20

// Attempt describes one try: a deadline and the User-Agent to present ("" sends none).
type Attempt struct {
	Timeout   time.Duration
	UserAgent string
}

// DefaultAttempts escalate the timeout and rotate the client identity.
var DefaultAttempts = []Attempt{
	{Timeout: 15 * time.Second},
	{Timeout: 30 * time.Second, UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"},
	{Timeout: 45 * time.Second, UserAgent: "Python-requests/2.28.0"},
}

type Client struct {
	HTTP     *http.Client
	Attempts []Attempt
	// Backoff is the pause after failed attempt i (0-based); never applied after the last attempt.
	Backoff func(i int) time.Duration
	Sleep   func(ctx context.Context, d time.Duration) error
	Log     logger.Logger
	Tracer  trace.Tracer
}

func New(log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		HTTP:     &http.Client{},
		Attempts: DefaultAttempts,
		Backoff:  ExponentialBackoff,
		Sleep:    sleepCtx,
		Log:      log,
		Tracer:   otel.Tracer("quiz-bot/fetch"),
	}
}

// WithTimeouts replaces the attempt deadlines, keeping the User-Agent rotation.
func (c *Client) WithTimeouts(ts []time.Duration) *Client {
	out := make([]Attempt, len(ts))
	for i, t := range ts {
		out[i] = Attempt{Timeout: t}
		if i < len(DefaultAttempts) {
			out[i].UserAgent = DefaultAttempts[i].UserAgent
		}
	}
	c.Attempts = out
	return c
}

// ExponentialBackoff waits 2^i seconds: 1s, 2s, 4s...
func ExponentialBackoff(i int) time.Duration {
	return time.Duration(1<<uint(i)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// URL fills the {nid} placeholder of an endpoint template.
func URL(template, nid string) string {
	return strings.ReplaceAll(template, "{nid}", url.PathEscape(nid))
}

// Fetch GETs rawURL and returns the body once it is valid JSON.
// Transport failures and non-2xx statuses are retried; a non-JSON body is terminal.
// endpoint only labels logs and metrics.
func (c *Client) Fetch(ctx context.Context, endpoint, rawURL string) (json.RawMessage, error) {
	ctx, span := c.Tracer.Start(ctx, "fetch "+endpoint, trace.WithAttributes(attribute.String("http.url", rawURL)))
	defer span.End()

	log := c.Log.With(map[string]interface{}{"endpoint": endpoint, "url": rawURL})
	var lastErr error
	n := len(c.Attempts)
	made := 0

	for i, at := range c.Attempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		started := time.Now()
		made++
		body, err := c.once(ctx, rawURL, at)
		metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())

		if err == nil {
			if !json.Valid(body) {
				perr := apperr.TerminalParse("fetch "+endpoint, fmt.Errorf("%d bytes from %s", len(body), rawURL))
				metrics.FetchAttempts.WithLabelValues(endpoint, "bad_json").Inc()
				log.Error("upstream returned non-JSON body", map[string]interface{}{"attempt": i + 1, "bytes": len(body)})
				span.SetStatus(codes.Error, perr.Error())
				return nil, perr
			}
			metrics.FetchAttempts.WithLabelValues(endpoint, "ok").Inc()
			log.Debug("fetched", map[string]interface{}{"attempt": i + 1, "bytes": len(body)})
			span.SetAttributes(attribute.Int("fetch.attempts", i+1))
			return json.RawMessage(body), nil
		}

		lastErr = err
		metrics.FetchAttempts.WithLabelValues(endpoint, "retryable").Inc()
		log.WithError(err).Warn("fetch attempt failed", map[string]interface{}{
			"attempt": i + 1,
			"of":      n,
			"timeout": at.Timeout.String(),
		})

		if i < n-1 {
			if err := c.Sleep(ctx, c.Backoff(i)); err != nil {
				lastErr = err
				break
			}
		}
	}

	out := apperr.NotAvailable("fetch "+endpoint, made, lastErr)
	span.RecordError(out)
	span.SetStatus(codes.Error, out.Error())
	return nil, out
}

func (c *Client) once(ctx context.Context, rawURL string, at Attempt) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, at.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.Transport("build request", err)
	}
	if at.UserAgent != "" {
		req.Header.Set("User-Agent", at.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Transport("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperr.Transport("request", fmt.Errorf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, apperr.Transport("read body", err)
	}
	return body, nil
}
