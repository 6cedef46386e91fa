package quiz

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// text accepts strings, numbers, booleans, null, {"content": ...} objects and arrays of those.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	*t = text(looseString(b))
	return nil
}

func looseString(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return ""
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return s
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return ""
		}
		if c, ok := obj["content"]; ok {
			return looseString(c)
		}
		return string(b)
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return ""
		}
		parts := make([]string, 0, len(arr))
		for _, el := range arr {
			if s := looseString(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		// numbers and booleans keep their literal form
		return string(b)
	}
}

// list accepts an array of scalars or a single scalar.
type list []string

func (l *list) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return nil
		}
		out := make([]string, 0, len(arr))
		for _, el := range arr {
			out = append(out, looseString(el))
		}
		*l = out
		return nil
	}
	if s := looseString(b); s != "" {
		*l = list{s}
	}
	return nil
}

func (l list) contains(v string) bool {
	for _, s := range l {
		if strings.TrimSpace(s) == v {
			return true
		}
	}
	return false
}

// epoch accepts a number or a numeric string; anything else is zero.
type epoch int64

func (e *epoch) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(looseString(b))
	if s == "" {
		*e = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*e = epoch(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*e = epoch(int64(f))
		return nil
	}
	*e = 0
	return nil
}
