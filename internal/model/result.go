package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// ResultType tags the shape of a Result.
type ResultType string

const (
	ResultStructuredAnswers ResultType = "structured_answers"
	ResultSingleResponse    ResultType = "single_response"
	ResultError             ResultType = "error"
)

// Result is the tagged outcome of the answer and process operations.
// Exactly one of the per-type field groups is populated.
type Result struct {
	Type       ResultType `json:"type" yaml:"type"`
	SourceName string     `json:"source_name,omitempty" yaml:"source_name,omitempty"`

	// structured_answers
	Answers         []Answer       `json:"answers,omitempty" yaml:"answers,omitempty"`
	TotalQuestions  int            `json:"total_questions,omitempty" yaml:"total_questions,omitempty"`
	SectionsSummary SectionSummary `json:"sections_summary,omitempty" yaml:"sections_summary,omitempty"`

	// single_response
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// structured_answers and single_response
	Markdown string `json:"markdown,omitempty" yaml:"markdown,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ErrorResult wraps a failure message into a Result.
func ErrorResult(msg string) Result {
	return Result{Type: ResultError, Error: msg}
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Type == ResultError || r.Error != ""
}

// SectionCount is the number of answers produced for one section.
type SectionCount struct {
	Section string `json:"section" yaml:"section"`
	Count   int    `json:"count" yaml:"count"`
}

// SectionSummary lists per-section answer counts in first-seen section order.
type SectionSummary []SectionCount

// Total sums the per-section counts.
func (s SectionSummary) Total() int {
	n := 0
	for _, c := range s {
		n += c.Count
	}
	return n
}

// Exchange is one recorded user/assistant turn in a source's chat history.
type Exchange struct {
	User      string    `json:"user" yaml:"user"`
	Assistant string    `json:"assistant" yaml:"assistant"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// MarshalJSON encodes the summary as a JSON object whose keys keep section order.
func (s SectionSummary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Section)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(c.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of section counts, preserving key order.
func (s *SectionSummary) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.Errorf("sections_summary: expected object, got %v", tok)
	}
	var out SectionSummary
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var count int
		if err := dec.Decode(&count); err != nil {
			return err
		}
		out = append(out, SectionCount{Section: key, Count: count})
	}
	*s = out
	return nil
}
