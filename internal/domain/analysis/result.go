// Package analysis models a résumé analysis round trip: the submission, the
// analyzer's JSON result, the rules for rendering it, and failure reports.
package analysis

import (
	"bytes"
	"encoding/json"
)

// Result is the decoded body of a successful analyzer response.
// Decoding is lenient: values of the wrong JSON type degrade to zero values
// instead of failing the whole response.
type Result struct {
	ATSScore        Percent       `json:"ats_score"`
	SectionScores   SectionScores `json:"section_scores"`
	MissingKeywords TextList      `json:"missing_keywords"`
	Suggestions     TextList      `json:"suggestions"`
	Debug           *Debug        `json:"debug,omitempty"`
	Warning         Text          `json:"warning,omitempty"`
	Error           Flag          `json:"error,omitempty"`
}

// Debug carries the texts the analyzer actually compared.
type Debug struct {
	ResumeText Text `json:"resume_text"`
	JDText     Text `json:"jd_text"`
}

// Percent is a score in [0,100]. Values are coerced the way JavaScript's
// Number() does, with NaN and infinities shown as 0.
type Percent float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percent) UnmarshalJSON(data []byte) error {
	*p = Percent(coerceNumber(data))
	return nil
}

// SectionScore is one named sub-score.
type SectionScore struct {
	Name  string
	Value Percent
}

// SectionScores keeps the key order of the JSON object it was decoded from.
type SectionScores []SectionScore

// UnmarshalJSON implements json.Unmarshaler. Non-object values decode as empty.
func (s *SectionScores) UnmarshalJSON(data []byte) error {
	*s = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}

	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value := Percent(coerceNumber(raw))

		// a repeated key keeps its first position and its last value
		if i, seen := index[key]; seen {
			(*s)[i].Value = value
			continue
		}
		index[key] = len(*s)
		*s = append(*s, SectionScore{Name: key, Value: value})
	}
	_, err = dec.Token()
	return err
}

// Text is a string field that tolerates non-string JSON values.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text(textOf(data))
	return nil
}

// TextList is an ordered list of display strings. Non-array values decode as empty.
type TextList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *TextList) UnmarshalJSON(data []byte) error {
	*l = nil
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil //nolint:nilerr // non-array values render as an empty list
	}
	out := make(TextList, 0, len(items))
	for _, item := range items {
		out = append(out, textOf(item))
	}
	*l = out
	return nil
}

// textOf renders a JSON value as display text: strings verbatim, null as
// empty, everything else as compact JSON.
func textOf(raw []byte) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// Flag holds the raw "error" field of a response.
type Flag struct {
	raw json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	f.raw = append(f.raw[:0], data...)
	return nil
}

// Truthy applies JavaScript truthiness: "", 0, false, null and absent are false.
func (f Flag) Truthy() bool {
	if len(f.raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(f.raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// Message returns the flag's text when it is a string.
func (f Flag) Message() string {
	var s string
	if err := json.Unmarshal(f.raw, &s); err != nil {
		return ""
	}
	return s
}

// DecodeResult parses a 2xx body. A truthy error field becomes an
// application report.
func DecodeResult(body []byte) (*Result, error) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, NewUnexpectedReport("invalid analyzer response", ErrNotAnObject)
	}
	var r Result
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, NewUnexpectedReport("invalid analyzer response", err)
	}
	if r.Error.Truthy() {
		return nil, NewApplicationReport(r.Error.Message())
	}
	return &r, nil
}
