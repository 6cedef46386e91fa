package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_fetch_attempts_total",
			Help: "Upstream fetch attempts by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizbot_fetch_duration_seconds",
			Help:    "Duration of a single upstream fetch attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"endpoint"},
	)

	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_extractions_total",
			Help: "Extractions by result code",
		},
		[]string{"result"},
	)

	QuestionsNormalized = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quizbot_questions_per_test",
			Help:    "Questions kept after normalization",
			Buckets: []float64{0, 10, 45, 90, 135, 180, 250},
		},
	)

	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizbot_render_duration_seconds",
			Help:    "Document rendering duration by variant",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"variant"},
	)

	SyllabusSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_syllabus_source_total",
			Help: "Which strategy produced the syllabus",
		},
		[]string{"source"},
	)

	DocumentsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizbot_documents_sent_total",
			Help: "Documents delivered by channel and variant",
		},
		[]string{"channel", "variant"},
	)
)
