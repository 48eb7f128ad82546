// Package structured turns free-form LLM replies into typed values, asking the
// model to reformat its own output once when it does not parse.
package structured

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/model"
)

// Schema describes a structured output the model must emit.
type Schema[T any] struct {
	Name     string
	Validate func(*T) error

	once   sync.Once
	schema string
}

// JSONSchema returns the JSON Schema document for T.
func (s *Schema[T]) JSONSchema() string {
	s.once.Do(func() {
		r := &jsonschema.Reflector{
			DoNotReference: true,
			ExpandedStruct: true,
		}
		var zero T
		data, err := json.MarshalIndent(r.Reflect(&zero), "", "  ")
		if err != nil {
			s.schema = "{}"
			return
		}
		s.schema = string(data)
	})
	return s.schema
}

// FormatInstructions is appended to prompts so the model knows the exact shape.
func (s *Schema[T]) FormatInstructions() string {
	var b strings.Builder
	b.WriteString("The output should be formatted as a JSON instance that conforms to the JSON schema below.\n\n")
	b.WriteString("Here is the output schema:\n```\n")
	b.WriteString(s.JSONSchema())
	b.WriteString("\n```")
	return b.String()
}

// Parse decodes raw model text into T and validates it.
func (s *Schema[T]) Parse(raw string) (*T, error) {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return nil, eris.New("empty model output")
	}
	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, eris.Wrap(err, "decode json")
	}
	if s.Validate != nil {
		if err := s.Validate(&out); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// QuestionDetection is the schema of one detection round.
var QuestionDetection = &Schema[model.QuestionDetectionOutput]{
	Name: "QuestionDetectionOutput",
	Validate: func(out *model.QuestionDetectionOutput) error {
		for i := range out.Questions {
			if strings.TrimSpace(out.Questions[i].Question) == "" {
				return eris.Errorf("questions[%d]: question text is required", i)
			}
			out.Questions[i] = out.Questions[i].Normalize()
		}
		return nil
	},
}

// AnswerBatch is the schema of one answer sub-batch.
var AnswerBatch = &Schema[model.AnswerBatchOutput]{
	Name: "AnswerBatchOutput",
	Validate: func(out *model.AnswerBatchOutput) error {
		for i, a := range out.Answers {
			if strings.TrimSpace(a.Answer) == "" {
				return eris.Errorf("answers[%d]: answer text is required", i)
			}
		}
		return nil
	},
}

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
