package model

import "fmt"

// Sentinel values carried by answers whose generation failed.
const (
	ErrorSource       = "Error in processing"
	errorAnswerFormat = "Error processing question: %s"
)

// Answer is the generated answer for one question.
type Answer struct {
	QuestionNumber    string  `json:"question_number" yaml:"question_number" jsonschema_description:"The original numbering of the question (e.g., '1', 'a)', 'V.')."`
	Question          string  `json:"question" yaml:"question" jsonschema_description:"The exact, full text of the question being answered."`
	Answer            string  `json:"answer" yaml:"answer" jsonschema_description:"A detailed answer based on the provided source materials."`
	Source            string  `json:"source" yaml:"source" jsonschema_description:"Citations from the source material, formatted as 'Source Chunk {RX}, {RY}'."`
	Section           string  `json:"section" yaml:"section" jsonschema_description:"The section header this question belongs to."`
	QuestionType      string  `json:"question_type" yaml:"question_type" jsonschema_description:"The type of question (e.g., 'Multiple Choice', 'Short Answer')."`
	OptionsWithAnswer *string `json:"options_with_answer" yaml:"options_with_answer" jsonschema_description:"For MCQs, list options with the correct one marked (e.g., 'A) Option1, B) Option2 ✓, C) Option3'). Null otherwise."`
}

// IsError reports whether the answer is a synthesized failure placeholder.
func (a Answer) IsError() bool {
	return a.Source == ErrorSource
}

// SentinelAnswer builds the placeholder answer for a question whose sub-batch
// failed. QuestionType carries the section label.
func SentinelAnswer(q Question, section string, cause error) Answer {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return Answer{
		QuestionNumber: q.QuestionNumber,
		Question:       q.Question,
		Answer:         fmt.Sprintf(errorAnswerFormat, reason),
		Source:         ErrorSource,
		Section:        q.Section,
		QuestionType:   section,
	}
}

// AnswerBatchOutput is the structured output of one answer sub-batch.
type AnswerBatchOutput struct {
	Answers []Answer `json:"answers" jsonschema_description:"A list of all answers generated for the batch of questions."`
}
