// Package report assembles answers into the summary counts and the Markdown
// report returned to callers.
package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/homework-assistant/internal/model"
)

// Summarize counts answers per section. Sections with no answers are left
// out; the rest keep the given order.
func Summarize(answers []model.Answer, sections []string) model.SectionSummary {
	counts := make(map[string]int, len(sections))
	for _, a := range answers {
		counts[a.Section]++
	}
	var out model.SectionSummary
	for _, s := range sections {
		if n := counts[s]; n > 0 {
			out = append(out, model.SectionCount{Section: s, Count: n})
		}
	}
	return out
}

// Markdown renders the answers grouped by section. questions is the detected
// list: any question without an answer is rendered as not processed. It may
// be nil, in which case only answered questions appear.
func Markdown(source string, answers []model.Answer, questions []model.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Answers - %s\n\n", source)
	fmt.Fprintf(&b, "**Total Questions Answered:** %d\n\n", len(answers))

	for _, sec := range sectionOrder(answers, questions) {
		entries := sectionEntries(sec, answers, questions)
		if len(entries) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s\n\n", sec)
		answered := 0
		for _, e := range entries {
			if e.answer == nil {
				writeNotProcessed(&b, sec, e.number)
				continue
			}
			answered++
			writeAnswer(&b, e.number, *e.answer)
		}
		fmt.Fprintf(&b, "*Answered %d out of %d questions in this section*\n\n", answered, len(entries))
	}
	return b.String()
}

// SingleResponseMarkdown wraps a free-form reply.
func SingleResponseMarkdown(source, text string) string {
	return fmt.Sprintf("# Response - %s\n\n%s\n\n**Source:** Based on available materials", source, text)
}

type entry struct {
	number string
	answer *model.Answer
}

// sectionOrder lists sections first-seen across the detected questions, then
// any extra sections that only appear on answers.
func sectionOrder(answers []model.Answer, questions []model.Question) []string {
	order := model.Sections(questions)
	known := make(map[string]struct{}, len(order))
	for _, s := range order {
		known[s] = struct{}{}
	}
	for _, a := range answers {
		if _, ok := known[a.Section]; !ok {
			known[a.Section] = struct{}{}
			order = append(order, a.Section)
		}
	}
	return order
}

// sectionEntries pairs the section's answers, in answer order, with any
// detected questions of the section that have no answer.
func sectionEntries(section string, answers []model.Answer, questions []model.Question) []entry {
	var out []entry
	answeredNums := make(map[string]int)
	for i := range answers {
		if answers[i].Section != section {
			continue
		}
		answeredNums[answers[i].QuestionNumber]++
		out = append(out, entry{number: answers[i].QuestionNumber, answer: &answers[i]})
	}
	for _, q := range questions {
		if q.Section != section {
			continue
		}
		if answeredNums[q.QuestionNumber] > 0 {
			answeredNums[q.QuestionNumber]--
			continue
		}
		out = append(out, entry{number: q.QuestionNumber})
	}
	return out
}

func writeAnswer(b *strings.Builder, number string, a model.Answer) {
	question := a.Question
	if strings.TrimSpace(question) == "" {
		question = fmt.Sprintf("Question %s (text not extracted)", number)
	}
	text := a.Answer
	if strings.TrimSpace(text) == "" {
		text = "No answer generated"
	}
	source := a.Source
	if strings.TrimSpace(source) == "" {
		source = "No source cited"
	}

	fmt.Fprintf(b, "### Question %s\n\n", number)
	fmt.Fprintf(b, "**Question:** %s\n\n", question)
	if a.OptionsWithAnswer != nil && strings.TrimSpace(*a.OptionsWithAnswer) != "" {
		fmt.Fprintf(b, "**Options:** %s\n\n", *a.OptionsWithAnswer)
	}
	fmt.Fprintf(b, "**Answer:** %s\n\n", text)
	fmt.Fprintf(b, "**Source:** %s\n\n", source)
	b.WriteString("---\n\n")
}

func writeNotProcessed(b *strings.Builder, section, number string) {
	fmt.Fprintf(b, "### Question %s\n\n", number)
	fmt.Fprintf(b, "**Question:** Question %s from %s (not processed)\n\n", number, section)
	b.WriteString("**Answer:** *Question was detected but not processed due to an error*\n\n")
	b.WriteString("---\n\n")
}
