package render

import (
	"fmt"
	"strings"
)

// Variant names one document flavor. The values double as callback data and API path segments.
type Variant string

const (
	PrintLayout        Variant = "neet_style"
	QuestionsOnly      Variant = "questions_only"
	QuestionsAnswers   Variant = "questions_answers"
	QuestionsSolutions Variant = "questions_solutions"
	SolutionsOnly      Variant = "solutions_only"
)

// AllFormats expands to every variant.
const AllFormats = "all_formats"

var AllVariants = []Variant{PrintLayout, QuestionsOnly, QuestionsAnswers, QuestionsSolutions, SolutionsOnly}

type variantInfo struct {
	label  string
	suffix string
}

var variants = map[Variant]variantInfo{
	PrintLayout:        {"NEET style paper with syllabus", "NEET_Style_with_Syllabus"},
	QuestionsOnly:      {"Questions only", "Questions_Only"},
	QuestionsAnswers:   {"Questions with answers", "Questions_with_Answers"},
	QuestionsSolutions: {"Questions with answers and solutions", "Questions_with_Solutions"},
	SolutionsOnly:      {"Answer key and complete solutions", "Complete_Solutions"},
}

func (v Variant) Valid() bool {
	_, ok := variants[v]
	return ok
}

// Label is the human-readable name shown on buttons and captions.
func (v Variant) Label() string { return variants[v].label }

// Suffix is the filename component for the variant.
func (v Variant) Suffix() string { return variants[v].suffix }

func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown format %q", s)
	}
	return v, nil
}

// ParseVariants accepts a comma separated list; "all_formats" expands to every variant.
// Duplicates are dropped, order is kept.
func ParseVariants(s string) ([]Variant, error) {
	var out []Variant
	seen := map[Variant]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, AllFormats) {
			return append([]Variant(nil), AllVariants...), nil
		}
		v, err := ParseVariant(part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no format given")
	}
	return out, nil
}
