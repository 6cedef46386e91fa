package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"quiz-bot/api/internal/metrics"
	"quiz-bot/api/internal/quiz"
	"quiz-bot/api/internal/sanitize"
	"quiz-bot/api/internal/syllabus"
	"quiz-bot/api/internal/util"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))

const (
	maxTitleLen     = 50
	marksPerCorrect = 4
	paperDuration   = "3 Hours"

	NoSyllabusText = "No structured syllabus data found for Physics, Chemistry, Botany, or Zoology."
	NoSolutionText = "No solution available"
	NotAvailable   = "Not available"
)

// Section is one contiguous band of the printed paper.
type Section struct {
	Name string
	Size int
}

// DefaultSections split a 180-question paper into four subject bands.
var DefaultSections = []Section{
	{Name: "PHYSICS", Size: 45},
	{Name: "CHEMISTRY", Size: 45},
	{Name: "BOTANY", Size: 45},
	{Name: "ZOOLOGY", Size: 45},
}

type Input struct {
	NID       string
	Title     string
	Questions []quiz.Question
	Syllabus  *syllabus.Syllabus
	// Sections override DefaultSections for the print layout.
	Sections []Section
}

type Document struct {
	Variant  Variant
	Filename string
	Content  []byte
}

// Filename builds "<title>_<suffix>_<nid>.html" with a filesystem-safe title.
func Filename(v Variant, title, nid string) string {
	clean := util.SafeFilename(title, "Test_"+nid, maxTitleLen)
	return fmt.Sprintf("%s_%s_%s.html", clean, v.Suffix(), nid)
}

// Render produces one document. It fails only on an unknown variant or a template error.
func Render(v Variant, in Input) (*Document, error) {
	return render(v, in, prepare(in.Questions))
}

// RenderAll renders the variants in order from a single sanitized snapshot of the questions.
func RenderAll(vs []Variant, in Input) ([]*Document, error) {
	prepared := prepare(in.Questions)
	out := make([]*Document, 0, len(vs))
	for _, v := range vs {
		d, err := render(v, in, prepared)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// prepared is a question with its rich text already sanitized.
type prepared struct {
	body         template.HTML
	alternatives []template.HTML
	solution     template.HTML
	resolution   quiz.Resolution
}

func prepare(qs []quiz.Question) []prepared {
	out := make([]prepared, len(qs))
	for i, q := range qs {
		alts := q.Alternatives
		if len(alts) > quiz.MaxAlternatives {
			alts = alts[:quiz.MaxAlternatives]
		}
		p := prepared{
			body:       safe(q.Body),
			solution:   safe(q.SolutionText()),
			resolution: quiz.Resolve(alts),
		}
		for _, a := range alts {
			p.alternatives = append(p.alternatives, safe(a.Answer))
		}
		out[i] = p
	}
	return out
}

func safe(s string) template.HTML {
	return template.HTML(sanitize.HTML(s))
}

type altView struct {
	Label   string
	HTML    template.HTML
	Correct bool
}

type questionView struct {
	Number       int
	Body         template.HTML
	Alternatives []altView
	AnswerLabel  string
	AnswerText   template.HTML
	Answered     bool
	Solution     template.HTML
}

type sectionView struct {
	Name      string
	From, To  int
	Questions []questionView
}

type syllabusLine struct {
	Subject string
	Topics  string
}

type page struct {
	Title   string
	NID     string
	Variant Variant
	Label   string

	Print         bool
	MarkCorrect   bool
	ShowAnswer    bool
	ShowSolutions bool
	AnswerKey     bool

	Questions []questionView
	Sections  []sectionView

	SyllabusLines       []syllabusLine
	SyllabusPlaceholder string

	Duration       string
	TotalQuestions int
	MaxMarks       int
}

func render(v Variant, in Input, qs []prepared) (*Document, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("render: unknown variant %q", v)
	}
	started := time.Now()
	defer func() {
		metrics.RenderDuration.WithLabelValues(string(v)).Observe(time.Since(started).Seconds())
	}()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Test " + in.NID
	}
	p := page{
		Title:         title,
		NID:           in.NID,
		Variant:       v,
		Label:         v.Label(),
		Print:         v == PrintLayout,
		MarkCorrect:   v == QuestionsAnswers || v == QuestionsSolutions,
		ShowAnswer:    v == QuestionsAnswers || v == QuestionsSolutions || v == SolutionsOnly,
		ShowSolutions: v == QuestionsSolutions || v == SolutionsOnly,
		AnswerKey:     v == SolutionsOnly,
	}

	labels := quiz.LettersLabels
	if p.Print {
		labels = quiz.NumericLabels
	}
	views := make([]questionView, len(qs))
	for i, q := range qs {
		views[i] = questionBlock(i+1, q, labels, p.MarkCorrect)
	}

	if p.Print {
		sections := in.Sections
		if len(sections) == 0 {
			sections = DefaultSections
		}
		p.Sections = band(views, sections)
		for _, s := range sections {
			p.TotalQuestions += s.Size
		}
		p.MaxMarks = p.TotalQuestions * marksPerCorrect
		p.Duration = paperDuration
		p.SyllabusLines, p.SyllabusPlaceholder = syllabusBlock(in.Syllabus)
	} else {
		p.Questions = views
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "document", p); err != nil {
		return nil, fmt.Errorf("render %s: %w", v, err)
	}
	return &Document{
		Variant:  v,
		Filename: Filename(v, in.Title, in.NID),
		Content:  buf.Bytes(),
	}, nil
}

func questionBlock(n int, q prepared, labels []string, markCorrect bool) questionView {
	qv := questionView{
		Number:   n,
		Body:     q.body,
		Solution: q.solution,
		Answered: q.resolution.Found(),
	}
	for i, a := range q.alternatives {
		qv.Alternatives = append(qv.Alternatives, altView{
			Label:   labels[i],
			HTML:    a,
			Correct: markCorrect && i == q.resolution.Index,
		})
	}
	if qv.Answered {
		qv.AnswerLabel = q.resolution.Label(labels)
		qv.AnswerText = q.alternatives[q.resolution.Index]
	}
	return qv
}

// band slices questions into sections; questions past the last section are dropped.
func band(qs []questionView, sections []Section) []sectionView {
	var out []sectionView
	offset := 0
	for _, s := range sections {
		if offset >= len(qs) {
			break
		}
		end := offset + s.Size
		if end > len(qs) {
			end = len(qs)
		}
		out = append(out, sectionView{
			Name:      s.Name,
			From:      offset + 1,
			To:        offset + s.Size,
			Questions: qs[offset:end],
		})
		offset += s.Size
	}
	return out
}

func syllabusBlock(s *syllabus.Syllabus) ([]syllabusLine, string) {
	if s.Empty() {
		return nil, NoSyllabusText
	}
	var lines []syllabusLine
	for _, sub := range s.Subjects() {
		lines = append(lines, syllabusLine{
			Subject: string(sub),
			Topics:  strings.Join(s.Topics(sub), ", ") + ".",
		})
	}
	return lines, ""
}
