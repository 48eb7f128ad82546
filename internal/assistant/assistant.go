// Package assistant is the detect, answer and process facade over one
// source's knowledge base.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/answer"
	"github.com/sells-group/homework-assistant/internal/detect"
	"github.com/sells-group/homework-assistant/internal/llm"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/report"
	"github.com/sells-group/homework-assistant/internal/retrieve"
	"github.com/sells-group/homework-assistant/internal/source"
)

// Messages carried by error results.
const (
	MsgNoContent        = "No content provided"
	MsgNoAnswers        = "No answers generated"
	msgFallbackFailed   = "Failed to generate response: %s"
	fallbackSourceLabel = "Source Chunk {R%d} [Page %d]: %s"
)

// IndexBuilder turns a corpus into a searchable index.
type IndexBuilder interface {
	Build(ctx context.Context, source string, corpus []string) (*retrieve.Index, error)
}

// Deps are the collaborators shared by every Assistant.
type Deps struct {
	LLM     llm.Client
	Sources source.Provider
	Indexes IndexBuilder
	Detect  detect.Config
	Answer  answer.Config
	// Timeout bounds each Detect, Answer and Process call. Zero means no limit.
	Timeout time.Duration
}

// Assistant answers homework for one source. Build one per request; the
// corpus and index are loaded once at construction.
type Assistant struct {
	deps   Deps
	source string
	corpus []string
	index  *retrieve.Index
	// loadErr is why the index is missing, if it is.
	loadErr error
	log     *zap.Logger
}

// New loads the source corpus and builds its index. A source without a
// usable knowledge base still yields an Assistant; its operations then
// return error results.
func New(ctx context.Context, deps Deps, sourceName string) *Assistant {
	a := &Assistant{
		deps:   deps,
		source: sourceName,
		log:    zap.L().With(zap.String("source", sourceName)),
	}

	corpus, err := deps.Sources.ReadSources(ctx, sourceName)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			err = model.NoKnowledgeBase(sourceName)
		}
		a.loadErr = err
		a.log.Warn("assistant: load sources", zap.Error(err))
		return a
	}
	a.corpus = corpus

	index, err := deps.Indexes.Build(ctx, sourceName, corpus)
	if err != nil {
		a.loadErr = err
		a.log.Warn("assistant: build index", zap.Error(err))
		return a
	}
	a.index = index
	return a
}

// SourceName returns the source this assistant serves.
func (a *Assistant) SourceName() string { return a.source }

// HasKnowledgeBase reports whether an index was built.
func (a *Assistant) HasKnowledgeBase() bool { return a.index != nil }

// unavailable returns the message for a missing knowledge base.
func (a *Assistant) unavailable() string {
	if a.loadErr == nil || model.IsConfiguration(a.loadErr) {
		return model.MsgNoKnowledgeBase
	}
	return a.loadErr.Error()
}

func (a *Assistant) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.deps.Timeout > 0 {
		return context.WithTimeout(ctx, a.deps.Timeout)
	}
	return context.WithCancel(ctx)
}

// Detect extracts the questions in ocr and text.
func (a *Assistant) Detect(ctx context.Context, ocr, text, corrections string) model.DetectionResult {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.detect(ctx, ocr, text, corrections)
}

func (a *Assistant) detect(ctx context.Context, ocr, text, corrections string) model.DetectionResult {
	if a.index == nil {
		return model.DetectionResult{Questions: []model.Question{}, Error: a.unavailable()}
	}
	content := strings.TrimSpace(ocr + "\n" + text)
	if content == "" {
		return model.DetectionResult{Questions: []model.Question{}, Error: MsgNoContent}
	}
	return detect.New(a.deps.LLM, a.deps.Detect).Detect(ctx, content, corrections)
}

// Answer answers every question of a detection result.
func (a *Assistant) Answer(ctx context.Context, detection model.DetectionResult) model.Result {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.answer(ctx, detection)
}

func (a *Assistant) answer(ctx context.Context, detection model.DetectionResult) model.Result {
	if a.index == nil {
		return model.ErrorResult(a.unavailable())
	}
	if detection.Error != "" {
		return model.ErrorResult(detection.Error)
	}

	questions := make([]model.Question, len(detection.Questions))
	for i, q := range detection.Questions {
		questions[i] = q.Normalize()
	}

	answers, err := answer.New(a.deps.LLM, a.index, a.deps.Answer).AnswerAll(ctx, questions)
	if err != nil {
		return model.ErrorResult(err.Error())
	}
	if len(answers) == 0 {
		return model.ErrorResult(MsgNoAnswers)
	}

	sections := model.Sections(questions)
	a.log.Info("assistant: answered",
		zap.Int("questions", len(questions)),
		zap.Int("sections", len(sections)),
	)
	return model.Result{
		Type:            model.ResultStructuredAnswers,
		SourceName:      a.source,
		Answers:         answers,
		TotalQuestions:  len(answers),
		SectionsSummary: report.Summarize(answers, sections),
		Markdown:        report.Markdown(a.source, answers, questions),
	}
}

// Process detects and answers, falling back to a single free-form reply when
// no questions are found.
func (a *Assistant) Process(ctx context.Context, ocr, text, corrections string) model.Result {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if a.index == nil {
		return model.ErrorResult(a.unavailable())
	}

	detection := a.detect(ctx, ocr, text, corrections)
	if detection.Error != "" {
		return model.ErrorResult(detection.Error)
	}
	a.log.Info("assistant: detected", zap.Int("questions", len(detection.Questions)))

	if len(detection.Questions) == 0 {
		return a.respond(ctx, strings.TrimSpace(ocr+" "+text))
	}
	return a.answer(ctx, detection)
}

// respond answers query as a single conversational turn over the whole corpus.
func (a *Assistant) respond(ctx context.Context, query string) model.Result {
	if query == "" {
		return model.ErrorResult(MsgNoContent)
	}

	blocks := make([]string, len(a.corpus))
	for i, text := range a.corpus {
		blocks[i] = fmt.Sprintf(fallbackSourceLabel, i+1, i+1, text)
	}

	reply, err := a.deps.LLM.Generate(ctx, fmt.Sprintf(fallbackPrompt, strings.Join(blocks, "\n\n"), query))
	if err != nil {
		a.log.Warn("assistant: fallback response failed", zap.Error(err))
		return model.ErrorResult(fmt.Sprintf(msgFallbackFailed, err.Error()))
	}

	return model.Result{
		Type:       model.ResultSingleResponse,
		SourceName: a.source,
		Response:   reply,
		Markdown:   report.SingleResponseMarkdown(a.source, reply),
	}
}

const fallbackPrompt = `Respond to the content below using the source materials.

SOURCE MATERIALS:
%s

CONTENT:
%s

Write a helpful reply grounded in the source materials and cite them with Source Chunk {RX} tags.
If the content is unrelated to the sources, say so and still give your best relevant reply.
If the content is unclear, ask short clarifying questions about what the user wants.`
