package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/structured"
)

const answerPrompt = `You answer homework questions for the section: %s.
Answer every question in the list below using only the source context.

SOURCE CONTEXT:
---------------------
%s
---------------------

QUESTIONS (JSON):
---------------------
%s
---------------------

INSTRUCTIONS:
1. Answer each listed question.
2. Base every answer on the source context.
3. Cite the chunks you used with the Source Chunk {R<page_number>} tags shown in the context.
4. For multiple-choice questions fill options_with_answer, marking the correct option with a checkmark (✓).
5. Reply with a single JSON object matching the schema below and nothing else.

%s`

// NoContext replaces the context block when retrieval found nothing.
const NoContext = "No relevant source material could be found for the questions in this batch."

// ContextBlock renders retrieved chunks as citation-tagged lines separated by
// blank lines.
func ContextBlock(chunks []model.Chunk) string {
	if len(chunks) == 0 {
		return NoContext
	}
	lines := make([]string, len(chunks))
	for i, c := range chunks {
		lines[i] = fmt.Sprintf("Source Chunk {R%d}: %s", c.Page, c.Text)
	}
	return strings.Join(lines, "\n\n")
}

func buildPrompt(section string, chunks []model.Chunk, questions []model.Question) (string, error) {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(answerPrompt,
		section,
		ContextBlock(chunks),
		string(data),
		structured.AnswerBatch.FormatInstructions(),
	), nil
}
