package structured

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/llm"
	"github.com/sells-group/homework-assistant/internal/model"
)

const repairPrompt = `Instructions:
--------------
%s
--------------
Completion:
--------------
%s
--------------

Above, the Completion did not satisfy the constraints given in the Instructions.
Error:
--------------
%s
--------------

Please try again. Please only respond with an answer that satisfies the constraints laid out in the Instructions:`

// ValidateOrRepair parses raw against schema. On failure it asks client once
// to reformat raw to match the schema and parses that reply. A reply that
// still does not parse yields a *model.ModelOutputError; a failed repair call
// yields the client's error.
func ValidateOrRepair[T any](ctx context.Context, client llm.Client, raw string, schema *Schema[T]) (*T, error) {
	out, err := schema.Parse(raw)
	if err == nil {
		return out, nil
	}

	zap.L().Debug("structured output invalid, requesting repair",
		zap.String("schema", schema.Name),
		zap.Error(err),
	)

	fixed, callErr := client.Generate(ctx, fmt.Sprintf(repairPrompt, schema.FormatInstructions(), raw, err.Error()))
	if callErr != nil {
		return nil, callErr
	}

	out, err = schema.Parse(fixed)
	if err != nil {
		return nil, &model.ModelOutputError{Schema: schema.Name, Raw: fixed, Err: err}
	}
	return out, nil
}

// Generate sends prompt to client and returns the validated (possibly
// repaired) structured reply.
func Generate[T any](ctx context.Context, client llm.Client, prompt string, schema *Schema[T]) (*T, error) {
	raw, err := client.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ValidateOrRepair(ctx, client, raw, schema)
}
