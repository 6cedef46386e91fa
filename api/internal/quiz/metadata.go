package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Metadata describes a test as reported by the metadata endpoint. Times are Unix seconds.
type Metadata struct {
	Title       string
	Description string
	Syllabus    string
	QuizOpen    int64
	QuizClose   int64
	ShowResults int64
}

type rawMetadata struct {
	Title       text  `json:"title"`
	Description text  `json:"description"`
	Syllabus    text  `json:"syllabus"`
	QuizOpen    epoch `json:"quiz_open"`
	QuizClose   epoch `json:"quiz_close"`
	ShowResults epoch `json:"show_results"`
}

// ParseMetadata reads the first element of a list payload, or a bare object.
// An empty list or null returns (nil, nil).
func ParseMetadata(raw json.RawMessage) (*Metadata, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	obj := raw
	if raw[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		if len(arr) == 0 {
			return nil, nil
		}
		obj = arr[0]
	}
	var rm rawMetadata
	if err := json.Unmarshal(obj, &rm); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return &Metadata{
		Title:       strings.TrimSpace(string(rm.Title)),
		Description: string(rm.Description),
		Syllabus:    string(rm.Syllabus),
		QuizOpen:    int64(rm.QuizOpen),
		QuizClose:   int64(rm.QuizClose),
		ShowResults: int64(rm.ShowResults),
	}, nil
}

// TitleOr returns the title, or "Test <nid>" when metadata is missing or untitled.
func (m *Metadata) TitleOr(nid string) string {
	if m == nil || m.Title == "" {
		return "Test " + nid
	}
	return m.Title
}

// TimeLayout is how schedule timestamps are shown to users.
const TimeLayout = "02 Jan 2006, 03:04 PM"

// FormatEpoch renders a Unix timestamp in loc, or "Not set" for zero.
func FormatEpoch(sec int64, loc *time.Location) string {
	if sec <= 0 {
		return "Not set"
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(sec, 0).In(loc).Format(TimeLayout)
}
