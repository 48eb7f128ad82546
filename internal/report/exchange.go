package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/homework-assistant/internal/model"
)

// Preview lengths for the OCR text recorded in chat history.
const (
	AnswerPreviewLen = 300
	AskPreviewLen    = 200
)

// ExchangeInput renders the user side of a history entry: the typed text,
// an OCR preview of at most previewLen runes and any corrections.
func ExchangeInput(text, ocrContent string, previewLen int, corrections string) string {
	var b strings.Builder
	if text != "" {
		fmt.Fprintf(&b, "Text: %s\n", text)
	}
	if ocrContent != "" {
		b.WriteString("OCR Content: ")
		b.WriteString(preview(ocrContent, previewLen))
	}
	if corrections != "" {
		fmt.Fprintf(&b, "\nUser corrections: %s", corrections)
	}
	return b.String()
}

// ExchangeReply renders the assistant side of a history entry.
func ExchangeReply(res model.Result) string {
	switch res.Type {
	case model.ResultStructuredAnswers:
		if res.Markdown != "" {
			return res.Markdown
		}
		parts := make([]string, len(res.SectionsSummary))
		for i, c := range res.SectionsSummary {
			parts[i] = fmt.Sprintf("%s: %d questions", c.Section, c.Count)
		}
		return fmt.Sprintf("Answered %d questions from %s (%s)", res.TotalQuestions, res.SourceName, strings.Join(parts, ", "))
	case model.ResultSingleResponse:
		if res.Markdown != "" {
			return res.Markdown
		}
		if res.Response != "" {
			return res.Response
		}
	}
	return "Generated response"
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
