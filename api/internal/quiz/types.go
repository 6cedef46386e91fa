package quiz

import "strings"

// Question is one normalized question in the canonical locale.
// Rich-text fields still carry upstream markup; plain fields are labels.
type Question struct {
	ID string

	Body             string
	Alternatives     []Alternative
	Hint             string
	Solution         string
	DetailedSolution string
	Explanation      string

	Chapter         string
	ChapterName     string
	Subject         string
	SubjectName     string
	Topic           string
	TopicName       string
	Subtopic        string
	SubtopicName    string
	DifficultyLevel string
	BloomTaxonomy   string
	QuestionType    string
}

type Alternative struct {
	Answer string
	// Score is the raw score_if_chosen value rendered as text ("1", "0", "1.0", "").
	Score     string
	IsCorrect bool
}

// MaxAlternatives is the number of alternatives a question can show.
const MaxAlternatives = 4

// SolutionText returns the first non-blank of detailed solution, solution and explanation.
func (q Question) SolutionText() string {
	for _, s := range []string{q.DetailedSolution, q.Solution, q.Explanation} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// SubjectLabel prefers the display name over the raw subject field.
func (q Question) SubjectLabel() string {
	if q.SubjectName != "" {
		return q.SubjectName
	}
	return q.Subject
}
