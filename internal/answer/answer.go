// Package answer generates one answer per detected question, grouping the
// questions by section and answering each section in small sub-batches with
// retrieved source context.
package answer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/homework-assistant/internal/llm"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/structured"
)

// Defaults for Config.
const (
	DefaultSubBatchSize = 5
	DefaultRetrievalK   = 20
)

// errNoAnswer fills questions the model skipped in an otherwise valid reply.
var errNoAnswer = eris.New("model returned no answer")

// Retriever finds context for a set of questions.
type Retriever interface {
	SearchBatchDedup(ctx context.Context, queries []string, k int) ([]model.Chunk, error)
}

// Config tunes answering.
type Config struct {
	SubBatchSize int
	RetrievalK   int
	// Concurrency is the number of sub-batches answered at once. Values
	// below 2 answer sequentially.
	Concurrency int
}

// Engine answers detected questions.
type Engine struct {
	client    llm.Client
	retriever Retriever
	cfg       Config
}

// New creates an Engine. retriever may be nil when the source has no
// knowledge base, in which case AnswerAll fails.
func New(client llm.Client, retriever Retriever, cfg Config) *Engine {
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = DefaultSubBatchSize
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = DefaultRetrievalK
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Engine{client: client, retriever: retriever, cfg: cfg}
}

type job struct {
	section   string
	questions []model.Question
}

// AnswerAll returns exactly one answer per question, ordered by section
// (first-seen) and then by position within the section. A sub-batch whose
// retrieval or model call fails gets sentinel answers instead of aborting
// the run. The only error is a missing knowledge base.
func (e *Engine) AnswerAll(ctx context.Context, questions []model.Question) ([]model.Answer, error) {
	if e.retriever == nil {
		return nil, &model.ConfigurationError{Msg: model.MsgNoKnowledgeBase}
	}

	jobs := e.plan(questions)
	results := make([][]model.Answer, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = e.answerBatch(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Answer, 0, len(questions))
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// plan partitions questions by section in first-seen order, then splits each
// section into sub-batches.
func (e *Engine) plan(questions []model.Question) []job {
	bySection := make(map[string][]model.Question)
	for _, q := range questions {
		bySection[q.Section] = append(bySection[q.Section], q)
	}

	var jobs []job
	for _, section := range model.Sections(questions) {
		qs := bySection[section]
		for start := 0; start < len(qs); start += e.cfg.SubBatchSize {
			end := min(start+e.cfg.SubBatchSize, len(qs))
			jobs = append(jobs, job{section: section, questions: qs[start:end]})
		}
	}
	return jobs
}

func (e *Engine) answerBatch(ctx context.Context, j job) []model.Answer {
	log := zap.L().With(
		zap.String("section", j.section),
		zap.String("first_question", j.questions[0].QuestionNumber),
		zap.Int("batch_size", len(j.questions)),
	)

	queries := make([]string, len(j.questions))
	for i, q := range j.questions {
		queries[i] = q.Question
	}

	chunks, err := e.retriever.SearchBatchDedup(ctx, queries, e.cfg.RetrievalK)
	if err != nil {
		log.Warn("answer: retrieval failed", zap.Error(err))
		return sentinels(j, err)
	}

	prompt, err := buildPrompt(j.section, chunks, j.questions)
	if err != nil {
		return sentinels(j, eris.Wrap(err, "answer: build prompt"))
	}

	resp, err := structured.Generate(ctx, e.client, prompt, structured.AnswerBatch)
	if err != nil {
		log.Warn("answer: sub-batch failed", zap.Error(err))
		return sentinels(j, err)
	}

	answers := align(j, resp.Answers)
	log.Debug("answer: sub-batch complete",
		zap.Int("context_chunks", len(chunks)),
		zap.Int("returned", len(resp.Answers)),
	)
	return answers
}

// align pairs each question with the model's answer for it. Answers are
// matched by question number, then by question text, and only then are
// leftovers taken in order. Questions that still have no answer get a
// sentinel. Number, section and text always come from the question.
func align(j job, got []model.Answer) []model.Answer {
	used := make([]bool, len(got))
	matched := make([]int, len(j.questions))
	for qi := range matched {
		matched[qi] = -1
	}

	match := func(same func(q model.Question, a model.Answer) bool) {
		for qi, q := range j.questions {
			if matched[qi] >= 0 {
				continue
			}
			for ai, a := range got {
				if !used[ai] && same(q, a) {
					matched[qi], used[ai] = ai, true
					break
				}
			}
		}
	}
	match(func(q model.Question, a model.Answer) bool {
		return strings.TrimSpace(a.QuestionNumber) == strings.TrimSpace(q.QuestionNumber)
	})
	match(func(q model.Question, a model.Answer) bool {
		text := strings.TrimSpace(a.Question)
		return text != "" && strings.EqualFold(text, strings.TrimSpace(q.Question))
	})

	next := 0
	for qi := range j.questions {
		if matched[qi] >= 0 {
			continue
		}
		for next < len(got) && used[next] {
			next++
		}
		if next < len(got) {
			matched[qi], used[next] = next, true
		}
	}

	out := make([]model.Answer, len(j.questions))
	for qi, q := range j.questions {
		if matched[qi] < 0 {
			out[qi] = model.SentinelAnswer(q, j.section, errNoAnswer)
			continue
		}
		a := got[matched[qi]]
		a.QuestionNumber = q.QuestionNumber
		a.Section = q.Section
		a.Question = q.Question
		out[qi] = a
	}
	return out
}
