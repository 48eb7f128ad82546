package detect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/structured"
)

const detectPrompt = `You extract homework questions from study material. Work through the content in batches: every round you return the next questions that have not been extracted yet, never repeating one.

CONTENT:
---
%s
---

CORRECTIONS FROM THE USER (apply them to fix detection mistakes):
---
%s
---

QUESTIONS ALREADY EXTRACTED (never return these again):
---
%s
---

TASK:
Return the next batch of at most %d questions from the content that are not in the already-extracted list.

Before answering:
1. Read the whole content from start to end and note every question, sub-question (a, b, i, ii, ...) and section header in order.
2. Drop every question whose number, section and text match an already-extracted entry.
3. Take the first %d remaining questions in their original order, or all of them if fewer remain.
4. Set is_more_questions to true only if new questions remain after this batch, false otherwise.

RULES:
- Never return an already-extracted question.
- Keep the order of the content.
- Copy question numbers exactly as written ("1.", "Q2", "a)", "iii."). Do not renumber.
- A question belongs to the nearest section header above it. Without a header use "Uncategorized".
- Copy the full question text. For multiple-choice questions put every option in options.
- Rescan the whole content every round before deciding is_more_questions.

Reply with a single JSON object and nothing else.

%s`

// noCorrections is sent when the user gave no corrections.
const noCorrections = "None"

func buildPrompt(content, corrections string, accumulated []model.Question, batchSize int) (string, error) {
	refs := make([]model.QuestionRef, len(accumulated))
	for i, q := range accumulated {
		refs[i] = q.Ref()
	}
	seen, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(corrections) == "" {
		corrections = noCorrections
	}

	return fmt.Sprintf(detectPrompt,
		content,
		corrections,
		string(seen),
		batchSize,
		batchSize,
		structured.QuestionDetection.FormatInstructions(),
	), nil
}
