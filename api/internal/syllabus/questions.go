package syllabus

import (
	"context"
	"strings"
)

// FromQuestions builds the syllabus from per-question subject/chapter/topic labels.
type FromQuestions struct{}

func (FromQuestions) Source() Source { return SourceQuestions }

func (FromQuestions) Extract(_ context.Context, in Input) (*Syllabus, error) {
	s := New(SourceQuestions)
	for _, q := range in.Questions {
		sub, ok := subjectOf(q.SubjectLabel())
		if !ok {
			continue
		}
		s.Add(sub, topicLabel(q.ChapterName, q.TopicName))
	}
	return s, nil
}

// subjectOf matches a subject label by case-sensitive containment.
func subjectOf(label string) (Subject, bool) {
	for _, sub := range Subjects {
		if strings.Contains(label, string(sub)) {
			return sub, true
		}
	}
	return "", false
}

func topicLabel(chapter, topic string) string {
	chapter = strings.TrimSpace(chapter)
	topic = strings.TrimSpace(topic)
	switch {
	case chapter != "" && topic != "" && chapter != topic:
		return chapter + ": " + topic
	case chapter != "":
		return chapter
	default:
		return topic
	}
}
