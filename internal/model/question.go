package model

import "strings"

// DefaultSection is assigned to questions that appear before any section header.
const DefaultSection = "Uncategorized"

// Question is a single question detected in submitted content.
type Question struct {
	Question       string   `json:"question" yaml:"question" jsonschema_description:"The exact, full text of the question."`
	QuestionNumber string   `json:"question_number" yaml:"question_number" jsonschema_description:"The original numbering of the question from the content (e.g., '1', 'a)', 'V.')."`
	Section        string   `json:"section,omitempty" yaml:"section,omitempty" jsonschema_description:"The section header this question belongs to (e.g., 'Part A - Multiple Choice'). Defaults to 'Uncategorized'."`
	Options        []string `json:"options,omitempty" yaml:"options,omitempty" jsonschema_description:"A list of options for multiple-choice questions, if any."`
}

// Identity is the deduplication key of a question.
type Identity struct {
	Section        string
	QuestionNumber string
	Text           string
}

// Identity returns the (section, number, trimmed text) key used to detect repeats.
func (q Question) Identity() Identity {
	return Identity{
		Section:        q.Section,
		QuestionNumber: q.QuestionNumber,
		Text:           strings.TrimSpace(q.Question),
	}
}

// Normalize fills in the default section.
func (q Question) Normalize() Question {
	if strings.TrimSpace(q.Section) == "" {
		q.Section = DefaultSection
	}
	return q
}

// QuestionRef is the identity-only projection echoed back to the model so it
// can skip questions it already produced.
type QuestionRef struct {
	QuestionNumber string `json:"question_number"`
	Section        string `json:"section"`
	Question       string `json:"question"`
}

// Ref projects the question onto its identity fields.
func (q Question) Ref() QuestionRef {
	return QuestionRef{QuestionNumber: q.QuestionNumber, Section: q.Section, Question: q.Question}
}

// QuestionDetectionOutput is the structured output of one detection round.
type QuestionDetectionOutput struct {
	Questions       []Question `json:"questions" jsonschema_description:"A list of all questions detected in the content."`
	IsMoreQuestions bool       `json:"is_more_questions" jsonschema_description:"Set to true if you believe there are more questions to process in subsequent batches, false otherwise."`
}

// DetectionResult is returned by the detect operation. IsMoreQuestions is
// always false once detection has finished.
type DetectionResult struct {
	Questions       []Question `json:"questions" yaml:"questions"`
	IsMoreQuestions bool       `json:"is_more_questions" yaml:"is_more_questions"`
	Error           string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Sections returns the distinct section labels in first-seen order.
func Sections(questions []Question) []string {
	seen := make(map[string]struct{}, len(questions))
	var out []string
	for _, q := range questions {
		if _, ok := seen[q.Section]; ok {
			continue
		}
		seen[q.Section] = struct{}{}
		out = append(out, q.Section)
	}
	return out
}
