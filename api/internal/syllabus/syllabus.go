package syllabus

import (
	"context"
	"strings"

	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/metrics"
	"quiz-bot/api/internal/quiz"
)

type Subject string

const (
	Physics   Subject = "Physics"
	Chemistry Subject = "Chemistry"
	Botany    Subject = "Botany"
	Zoology   Subject = "Zoology"
)

// Subjects in exam order.
var Subjects = []Subject{Physics, Chemistry, Botany, Zoology}

// Source records which strategy produced a syllabus.
type Source string

const (
	SourceQuestions   Source = "questions"
	SourceDescription Source = "description"
	SourceLLM         Source = "llm"
	SourceNone        Source = "none"
)

// Syllabus maps each subject to an ordered set of topics.
type Syllabus struct {
	Source Source
	topics map[Subject][]string
	seen   map[Subject]map[string]struct{}
}

func New(src Source) *Syllabus {
	return &Syllabus{
		Source: src,
		topics: make(map[Subject][]string),
		seen:   make(map[Subject]map[string]struct{}),
	}
}

// Add appends topic under subject unless it is blank or already present.
func (s *Syllabus) Add(subject Subject, topic string) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	set, ok := s.seen[subject]
	if !ok {
		set = make(map[string]struct{})
		s.seen[subject] = set
	}
	if _, dup := set[topic]; dup {
		return false
	}
	set[topic] = struct{}{}
	s.topics[subject] = append(s.topics[subject], topic)
	return true
}

func (s *Syllabus) Has(subject Subject) bool {
	return s != nil && len(s.topics[subject]) > 0
}

func (s *Syllabus) Topics(subject Subject) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.topics[subject]...)
}

func (s *Syllabus) Empty() bool {
	if s == nil {
		return true
	}
	for _, sub := range Subjects {
		if s.Has(sub) {
			return false
		}
	}
	return true
}

// Subjects lists the subjects with topics, in exam order.
func (s *Syllabus) Subjects() []Subject {
	var out []Subject
	for _, sub := range Subjects {
		if s.Has(sub) {
			out = append(out, sub)
		}
	}
	return out
}

func (s *Syllabus) Map() map[string][]string {
	out := make(map[string][]string)
	for _, sub := range s.Subjects() {
		out[string(sub)] = s.Topics(sub)
	}
	return out
}

// noSyllabus is the placeholder upstream puts in the syllabus field of tests without one.
const noSyllabus = "no syllabus"

// Input is everything a strategy may look at.
type Input struct {
	Questions []quiz.Question
	Metadata  *quiz.Metadata
	// Blobs are extra free-text sources, typically from the syllabus endpoint.
	Blobs []string
}

// Texts returns the free-text sources in lookup order: the metadata syllabus field
// (or the description when it says there is none), then the extra blobs.
func (in Input) Texts() []string {
	var out []string
	if m := in.Metadata; m != nil {
		syl := strings.TrimSpace(m.Syllabus)
		if syl != "" && strings.ToLower(syl) != noSyllabus {
			out = append(out, syl)
		} else if d := strings.TrimSpace(m.Description); d != "" {
			out = append(out, d)
		}
	}
	for _, b := range in.Blobs {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

type Strategy interface {
	Source() Source
	Extract(ctx context.Context, in Input) (*Syllabus, error)
}

// Extractor runs strategies in order and keeps the first non-empty result.
type Extractor struct {
	Strategies []Strategy
	Log        logger.Logger
}

func NewExtractor(log logger.Logger, strategies ...Strategy) *Extractor {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if len(strategies) == 0 {
		strategies = []Strategy{FromQuestions{}, FromDescription{}}
	}
	return &Extractor{Strategies: strategies, Log: log}
}

func (e *Extractor) Extract(ctx context.Context, in Input) *Syllabus {
	for _, st := range e.Strategies {
		s, err := st.Extract(ctx, in)
		if err != nil {
			e.Log.WithError(err).Warn("syllabus strategy failed", map[string]interface{}{"source": string(st.Source())})
			continue
		}
		if !s.Empty() {
			s.Source = st.Source()
			metrics.SyllabusSource.WithLabelValues(string(s.Source)).Inc()
			return s
		}
	}
	metrics.SyllabusSource.WithLabelValues(string(SourceNone)).Inc()
	return New(SourceNone)
}
