package syllabus

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTopicsLen = 3
	longBlobLen  = 50
)

var (
	reTags          = regexp.MustCompile(`<[^>]*>`)
	reEscapedBreaks = regexp.MustCompile(`\\r\\n|\\n|\\r`)
	reSpace         = regexp.MustCompile(`\s+`)
	reNoise         = regexp.MustCompile(`(?i)\b(?:test|quiz|exam|nid|title|description)\b`)
	reCommas        = regexp.MustCompile(`(?:\s*,\s*)+`)
	reEdges         = regexp.MustCompile(`^[,\s]+|[,\s]+$`)

	// headings match "<Subject> :" with ASCII or full-width colon
	headings = map[Subject]*regexp.Regexp{}
	names    = map[Subject]*regexp.Regexp{}
)

func init() {
	for _, sub := range Subjects {
		headings[sub] = regexp.MustCompile(`(?i)` + string(sub) + `\s*[:\x{FF1A}]\s*`)
		names[sub] = regexp.MustCompile(`(?i)` + string(sub))
	}
}

// FromDescription reads "Subject: topic, topic" windows out of free text.
type FromDescription struct{}

func (FromDescription) Source() Source { return SourceDescription }

func (FromDescription) Extract(_ context.Context, in Input) (*Syllabus, error) {
	s := New(SourceDescription)
	for _, blob := range in.Texts() {
		text := reEscapedBreaks.ReplaceAllString(blob, " ")
		text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
		for _, sub := range Subjects {
			if s.Has(sub) {
				continue
			}
			window, ok := subjectWindow(text, sub)
			if !ok {
				continue
			}
			cleaned := CleanTopics(window)
			if utf8.RuneCountInString(cleaned) <= minTopicsLen {
				continue
			}
			for _, t := range SplitTopics(cleaned) {
				s.Add(sub, t)
			}
		}
	}
	return s, nil
}

// subjectWindow returns the text after the first "<sub>:" heading, up to the next
// mention of any other subject or the end of text.
func subjectWindow(text string, sub Subject) (string, bool) {
	loc := headings[sub].FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	end := len(rest)
	for _, other := range Subjects {
		if other == sub {
			continue
		}
		if l := names[other].FindStringIndex(rest); l != nil && l[0] < end {
			end = l[0]
		}
	}
	return strings.TrimSpace(rest[:end]), true
}

// CleanTopics normalizes a captured topic list: markup, escapes, quotes and noise words
// go away, comma spacing is regularized and words are title-cased (short acronyms kept).
func CleanTopics(s string) string {
	s = reTags.ReplaceAllString(s, "")
	s = reEscapedBreaks.ReplaceAllString(s, " ")
	s = reSpace.ReplaceAllString(s, " ")
	s = strings.NewReplacer(`\`, "", `"`, "", `'`, "").Replace(s)
	s = reNoise.ReplaceAllString(s, "")
	s = reCommas.ReplaceAllString(s, ", ")
	s = reEdges.ReplaceAllString(s, "")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	s = strings.Join(words, " ")
	s = reCommas.ReplaceAllString(s, ", ")
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}

func titleWord(w string) string {
	if strings.Trim(w, ",.;:") == "" {
		return w
	}
	if utf8.RuneCountInString(w) <= 3 && isUpper(w) {
		return w
	}
	r, size := utf8.DecodeRuneInString(w)
	if !unicode.IsLetter(r) {
		return w
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// isUpper reports whether w has a cased letter and no lower-case ones.
func isUpper(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// SplitTopics splits a cleaned list on commas, dropping blanks and trailing periods.
func SplitTopics(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(part), "."))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BlobsFromPayload collects free-text candidates from the syllabus endpoint, which answers
// with either a list or an object.
func BlobsFromPayload(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		var out []string
		for _, it := range items {
			var s string
			if json.Unmarshal(it, &s) == nil {
				if strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
				continue
			}
			out = append(out, objectBlobs(it)...)
		}
		return out
	case '{':
		return objectBlobs(raw)
	}
	return nil
}

func objectBlobs(raw json.RawMessage) []string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	var out []string
	for _, k := range []string{"quiz_desc", "description"} {
		var s string
		if json.Unmarshal(obj[k], &s) == nil && strings.TrimSpace(s) != "" {
			out = append(out, s)
			break
		}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k != "quiz_desc" && k != "description" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		var s string
		if json.Unmarshal(obj[k], &s) != nil || len(s) <= longBlobLen {
			continue
		}
		for _, sub := range Subjects {
			if names[sub].MatchString(s) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
