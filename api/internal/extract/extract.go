// Package extract runs the whole pipeline for one test: fetch, normalize,
// resolve, build the syllabus and render the requested documents.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quiz-bot/api/internal/apperr"
	"quiz-bot/api/internal/fetch"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/metrics"
	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/render"
	"quiz-bot/api/internal/store"
	"quiz-bot/api/internal/syllabus"
)

// Endpoints are URL templates with a {nid} placeholder.
type Endpoints struct {
	Questions string
	Metadata  string
	Syllabus  string
}

type Fetcher interface {
	Fetch(ctx context.Context, endpoint, url string) (json.RawMessage, error)
}

// Auditor records finished extractions. Optional.
type Auditor interface {
	Record(ctx context.Context, row store.ExtractionRow) error
}

type Service struct {
	Fetcher   Fetcher
	Endpoints Endpoints
	Syllabus  *syllabus.Extractor
	Sections  []render.Section
	Audit     Auditor
	Log       logger.Logger
	Tracer    trace.Tracer
}

func NewService(f Fetcher, ep Endpoints, ex *syllabus.Extractor, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if ex == nil {
		ex = syllabus.NewExtractor(log)
	}
	return &Service{
		Fetcher:   f,
		Endpoints: ep,
		Syllabus:  ex,
		Log:       log,
		Tracer:    otel.Tracer("quiz-bot/extract"),
	}
}

type Options struct {
	// AllowEmpty renders documents even when no question qualifies.
	AllowEmpty bool
	// ChatID tags the audit row; 0 for API and CLI callers.
	ChatID int64
}

type Result struct {
	RequestID string
	NID       string
	Title     string
	Metadata  *quiz.Metadata
	Questions []quiz.Question
	Syllabus  *syllabus.Syllabus
	Documents []*render.Document
}

// ValidateNID trims the identifier and checks it is all digits.
func ValidateNID(nid string) (string, error) {
	nid = strings.TrimSpace(nid)
	if nid == "" {
		return "", apperr.InvalidIdentifier(nid)
	}
	for _, r := range nid {
		if r < '0' || r > '9' {
			return "", apperr.InvalidIdentifier(nid)
		}
	}
	return nid, nil
}

func (s *Service) Extract(ctx context.Context, nid string, vs []render.Variant, opt Options) (res *Result, err error) {
	reqID := uuid.NewString()
	log := s.Log.With(map[string]interface{}{"request_id": reqID, "nid": nid})
	started := time.Now()

	ctx, span := s.Tracer.Start(ctx, "extract", trace.WithAttributes(
		attribute.String("request_id", reqID),
		attribute.String("nid", nid),
	))
	defer span.End()

	defer func() {
		result := "ok"
		if err != nil {
			result = strings.ToLower(string(apperr.CodeOf(err)))
			if result == "" {
				result = "error"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.WithError(err).Warn("extraction failed", nil)
		} else {
			log.Info("extraction done", map[string]interface{}{
				"questions": len(res.Questions),
				"documents": len(res.Documents),
				"took":      time.Since(started).String(),
			})
		}
		metrics.Extractions.WithLabelValues(result).Inc()
		s.audit(ctx, reqID, nid, vs, opt, res, err)
	}()

	nid, err = ValidateNID(nid)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, errors.New("extract: no variants requested")
	}

	meta := s.metadata(ctx, nid, log)

	raw, err := s.Fetcher.Fetch(ctx, "questions", fetch.URL(s.Endpoints.Questions, nid))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", nid, err)
	}
	qs, err := quiz.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", nid, apperr.TerminalParse("normalize", err))
	}
	metrics.QuestionsNormalized.Observe(float64(len(qs)))
	if len(qs) == 0 && !opt.AllowEmpty {
		return nil, apperr.NoQuestions(nid)
	}

	res = &Result{
		RequestID: reqID,
		NID:       nid,
		Title:     meta.TitleOr(nid),
		Metadata:  meta,
		Questions: qs,
	}
	if wantsSyllabus(vs) {
		res.Syllabus = s.Syllabus.Extract(ctx, syllabus.Input{
			Questions: qs,
			Metadata:  meta,
			Blobs:     s.syllabusBlobs(ctx, nid, log),
		})
		log.Debug("syllabus built", map[string]interface{}{"source": string(res.Syllabus.Source)})
	}

	docs, err := render.RenderAll(vs, render.Input{
		NID:       nid,
		Title:     res.Title,
		Questions: qs,
		Syllabus:  res.Syllabus,
		Sections:  s.Sections,
	})
	if err != nil {
		return nil, err
	}
	res.Documents = docs
	span.SetAttributes(attribute.Int("questions", len(qs)))
	return res, nil
}

// Info returns the test metadata on its own.
func (s *Service) Info(ctx context.Context, nid string) (*quiz.Metadata, error) {
	nid, err := ValidateNID(nid)
	if err != nil {
		return nil, err
	}
	raw, err := s.Fetcher.Fetch(ctx, "metadata", fetch.URL(s.Endpoints.Metadata, nid))
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", nid, err)
	}
	meta, err := quiz.ParseMetadata(raw)
	if err != nil {
		return nil, fmt.Errorf("info %s: %w", nid, apperr.TerminalParse("metadata", err))
	}
	if meta == nil {
		return nil, &apperr.Error{Code: apperr.CodeNotAvailable, Op: "info", Message: "no metadata for test " + nid}
	}
	return meta, nil
}

// metadata never fails the extraction; it only costs us the title and the description.
func (s *Service) metadata(ctx context.Context, nid string, log logger.Logger) *quiz.Metadata {
	if s.Endpoints.Metadata == "" {
		return nil
	}
	raw, err := s.Fetcher.Fetch(ctx, "metadata", fetch.URL(s.Endpoints.Metadata, nid))
	if err != nil {
		log.WithError(err).Warn("metadata unavailable", nil)
		return nil
	}
	meta, err := quiz.ParseMetadata(raw)
	if err != nil {
		log.WithError(err).Warn("metadata unreadable", nil)
		return nil
	}
	return meta
}

func (s *Service) syllabusBlobs(ctx context.Context, nid string, log logger.Logger) []string {
	if s.Endpoints.Syllabus == "" {
		return nil
	}
	raw, err := s.Fetcher.Fetch(ctx, "syllabus", fetch.URL(s.Endpoints.Syllabus, nid))
	if err != nil {
		log.WithError(err).Debug("syllabus endpoint unavailable", nil)
		return nil
	}
	return syllabus.BlobsFromPayload(raw)
}

func wantsSyllabus(vs []render.Variant) bool {
	for _, v := range vs {
		if v == render.PrintLayout {
			return true
		}
	}
	return false
}

func (s *Service) audit(ctx context.Context, reqID, nid string, vs []render.Variant, opt Options, res *Result, err error) {
	if s.Audit == nil {
		return
	}
	row := store.ExtractionRow{
		ID:      reqID,
		ChatID:  opt.ChatID,
		NID:     nid,
		Outcome: store.OutcomeOK,
	}
	for _, v := range vs {
		row.Variants = append(row.Variants, string(v))
	}
	if res != nil {
		row.Questions = len(res.Questions)
	}
	if err != nil {
		row.Outcome = store.OutcomeFailed
		row.Error = err.Error()
	}
	// the audit row must not depend on the caller's deadline
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if aerr := s.Audit.Record(actx, row); aerr != nil {
		s.Log.WithError(aerr).Warn("audit record failed", map[string]interface{}{"request_id": reqID})
	}
}
