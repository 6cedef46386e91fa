package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"
)

// CanonicalLocale is the locale key every question is read from.
const CanonicalLocale = "843"

const canonicalLanguageName = "English"

const localeSchema = `{
  "type": "object",
  "required": ["body", "alternatives"],
  "properties": {
    "alternatives": {"type": "array"}
  }
}`

var localeValidator = mustSchema(localeSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("quiz: bad locale schema: %v", err))
	}
	return sc
}

type rawAlternative struct {
	Answer text            `json:"answer"`
	Score  json.RawMessage `json:"score_if_chosen"`
}

type rawLocale struct {
	Body             text              `json:"body"`
	Alternatives     []json.RawMessage `json:"alternatives"`
	Hint             text              `json:"hint"`
	Solution         text              `json:"solution"`
	DetailedSolution text              `json:"detailed_solution"`
	Explanation      text              `json:"explanation"`
	Chapter          text              `json:"chapter"`
	ChapterName      text              `json:"chapter_name"`
	Subject          text              `json:"subject"`
	SubjectName      text              `json:"subject_name"`
	Topic            text              `json:"topic"`
	TopicName        text              `json:"topic_name"`
	Subtopic         text              `json:"subtopic"`
	SubtopicName     text              `json:"subtopic_name"`
	DifficultyLevel  text              `json:"difficulty_level"`
	BloomTaxonomy    text              `json:"bloom_taxonomy"`
	QuestionType     text              `json:"question_type"`
	Language         list              `json:"language"`
	LanguageNames    list              `json:"language_names"`
}

type entry struct {
	key   string
	value json.RawMessage
}

// Normalize turns the raw questions payload into canonical questions, keeping payload order.
// Entries without a qualifying canonical-locale object are skipped. A payload that is not a
// JSON object yields no questions; only a broken JSON stream is an error.
func Normalize(raw json.RawMessage) ([]Question, error) {
	entries, err := orderedEntries(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0, len(entries))
	for _, e := range entries {
		q, ok := normalizeEntry(e)
		if !ok {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// orderedEntries walks the top-level object with the token decoder so key order survives.
func orderedEntries(raw json.RawMessage) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil
	}
	var out []entry
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("normalize: key: %w", err)
		}
		key, _ := kt.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("normalize: value of %q: %w", key, err)
		}
		out = append(out, entry{key: key, value: v})
	}
	return out, nil
}

func normalizeEntry(e entry) (Question, bool) {
	var locales map[string]json.RawMessage
	if err := json.Unmarshal(e.value, &locales); err != nil {
		return Question{}, false
	}
	loc, ok := locales[CanonicalLocale]
	if !ok {
		return Question{}, false
	}
	res, err := localeValidator.Validate(gojsonschema.NewBytesLoader(loc))
	if err != nil || !res.Valid() {
		return Question{}, false
	}
	var rl rawLocale
	if err := json.Unmarshal(loc, &rl); err != nil {
		return Question{}, false
	}
	if !rl.Language.contains(CanonicalLocale) && !rl.LanguageNames.contains(canonicalLanguageName) {
		return Question{}, false
	}

	q := Question{
		ID:               e.key,
		Body:             string(rl.Body),
		Hint:             string(rl.Hint),
		Solution:         string(rl.Solution),
		DetailedSolution: string(rl.DetailedSolution),
		Explanation:      string(rl.Explanation),
		Chapter:          string(rl.Chapter),
		ChapterName:      string(rl.ChapterName),
		Subject:          string(rl.Subject),
		SubjectName:      string(rl.SubjectName),
		Topic:            string(rl.Topic),
		TopicName:        string(rl.TopicName),
		Subtopic:         string(rl.Subtopic),
		SubtopicName:     string(rl.SubtopicName),
		DifficultyLevel:  string(rl.DifficultyLevel),
		BloomTaxonomy:    string(rl.BloomTaxonomy),
		QuestionType:     string(rl.QuestionType),
		Alternatives:     alternatives(rl.Alternatives),
	}
	if r := Resolve(q.Alternatives); r.Found() {
		q.Alternatives[r.Index].IsCorrect = true
	}
	return q, true
}

func alternatives(raw []json.RawMessage) []Alternative {
	if len(raw) > MaxAlternatives {
		raw = raw[:MaxAlternatives]
	}
	out := make([]Alternative, 0, len(raw))
	for _, el := range raw {
		var ra rawAlternative
		if err := json.Unmarshal(el, &ra); err != nil {
			// a bare scalar is the answer text itself
			out = append(out, Alternative{Answer: looseString(el)})
			continue
		}
		out = append(out, Alternative{Answer: string(ra.Answer), Score: scoreString(ra.Score)})
	}
	return out
}

func scoreString(b json.RawMessage) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	if b[0] == '"' {
		var s string
		_ = json.Unmarshal(b, &s)
		return s
	}
	return string(b)
}
