package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/homework-assistant/internal/answer"
	"github.com/sells-group/homework-assistant/internal/detect"
	"github.com/sells-group/homework-assistant/internal/embed"
	"github.com/sells-group/homework-assistant/internal/llm"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/retrieve"
	"github.com/sells-group/homework-assistant/internal/source"
)

type fakeSources struct {
	corpus map[string][]string
}

func (f fakeSources) ReadSources(_ context.Context, name string) ([]string, error) {
	blocks, ok := f.corpus[name]
	if !ok {
		return nil, source.ErrNotFound
	}
	return blocks, nil
}

// router plays the model: detection prompts get detected, answer prompts
// get answered, anything else gets fallback.
type router struct {
	mu        sync.Mutex
	detected  []model.Question
	fallback  string
	failFinal error
	prompts   []string
}

func (r *router) Generate(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()

	switch {
	case strings.Contains(prompt, "You extract homework questions"):
		data, err := json.Marshal(model.QuestionDetectionOutput{Questions: r.detected})
		return string(data), err
	case strings.Contains(prompt, "You answer homework questions"):
		var out model.AnswerBatchOutput
		for _, q := range r.detected {
			if strings.Contains(prompt, q.Question) {
				out.Answers = append(out.Answers, model.Answer{
					QuestionNumber: q.QuestionNumber,
					Question:       q.Question,
					Answer:         "Because of " + q.Question,
					Source:         "Source Chunk {R1}",
					Section:        q.Section,
					QuestionType:   "Short Answer",
				})
			}
		}
		data, err := json.Marshal(out)
		return string(data), err
	default:
		if r.failFinal != nil {
			return "", r.failFinal
		}
		return r.fallback, nil
	}
}

func (r *router) lastPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prompts[len(r.prompts)-1]
}

var _ llm.Client = (*router)(nil)

func newDeps(t *testing.T, client llm.Client) Deps {
	t.Helper()
	chunker, err := retrieve.NewChunker(200, 20)
	require.NoError(t, err)
	builder, err := retrieve.NewBuilder(chunker, embed.NewHashing(64), 4)
	require.NoError(t, err)

	return Deps{
		LLM: client,
		Sources: fakeSources{corpus: map[string][]string{
			"biology": {
				"Photosynthesis converts light energy into chemical energy.",
				"Mitochondria release energy through cellular respiration.",
			},
			"empty": {},
		}},
		Indexes: builder,
		Detect:  detect.Config{BatchSize: 15, MaxQuestions: 200},
		Answer:  answer.Config{SubBatchSize: 5, RetrievalK: 5, Concurrency: 2},
	}
}

func TestProcess_StructuredAnswers(t *testing.T) {
	r := &router{detected: []model.Question{
		{QuestionNumber: "1", Section: "Part A", Question: "What is photosynthesis?"},
		{QuestionNumber: "2", Section: "Part A", Question: "What do mitochondria do?"},
		{QuestionNumber: "1", Section: "Part B", Question: "Name an energy source."},
	}}
	a := New(context.Background(), newDeps(t, r), "biology")
	require.True(t, a.HasKnowledgeBase())

	res := a.Process(context.Background(), "1. What is photosynthesis?", "", "")
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, model.ResultStructuredAnswers, res.Type)
	assert.Equal(t, "biology", res.SourceName)
	assert.Equal(t, 3, res.TotalQuestions)
	require.Len(t, res.Answers, 3)
	assert.Equal(t, "Part A", res.Answers[0].Section)
	assert.Equal(t, "Part B", res.Answers[2].Section)
	assert.Equal(t, model.SectionSummary{{Section: "Part A", Count: 2}, {Section: "Part B", Count: 1}}, res.SectionsSummary)
	assert.Contains(t, res.Markdown, "## Part A")
	assert.Contains(t, res.Markdown, "Because of Name an energy source.")
}

func TestProcess_FallbackWhenNoQuestions(t *testing.T) {
	r := &router{fallback: "Here is a summary of photosynthesis."}
	a := New(context.Background(), newDeps(t, r), "biology")

	res := a.Process(context.Background(), "Tell me about", "plants", "")
	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, model.ResultSingleResponse, res.Type)
	assert.Equal(t, "Here is a summary of photosynthesis.", res.Response)
	assert.Contains(t, res.Markdown, "Here is a summary of photosynthesis.")

	prompt := r.lastPrompt()
	assert.Contains(t, prompt, "Source Chunk {R1} [Page 1]: Photosynthesis converts")
	assert.Contains(t, prompt, "Source Chunk {R2} [Page 2]: Mitochondria release")
	assert.Contains(t, prompt, "Tell me about plants")
}

func TestProcess_FallbackFailure(t *testing.T) {
	r := &router{failFinal: errors.New("upstream 503")}
	a := New(context.Background(), newDeps(t, r), "biology")

	res := a.Process(context.Background(), "hello", "", "")
	assert.Equal(t, model.ResultError, res.Type)
	assert.Equal(t, "Failed to generate response: upstream 503", res.Error)
}

func TestProcess_NoContent(t *testing.T) {
	a := New(context.Background(), newDeps(t, &router{}), "biology")

	res := a.Process(context.Background(), "  ", "\n", "")
	assert.Equal(t, model.ResultError, res.Type)
	assert.Equal(t, MsgNoContent, res.Error)
}

func TestNoKnowledgeBase(t *testing.T) {
	for _, name := range []string{"empty", "missing"} {
		t.Run(name, func(t *testing.T) {
			r := &router{}
			a := New(context.Background(), newDeps(t, r), name)
			assert.False(t, a.HasKnowledgeBase())

			det := a.Detect(context.Background(), "1. Why?", "", "")
			assert.Equal(t, model.MsgNoKnowledgeBase, det.Error)
			assert.NotNil(t, det.Questions)

			res := a.Process(context.Background(), "1. Why?", "", "")
			assert.Equal(t, model.ResultError, res.Type)
			assert.Equal(t, model.MsgNoKnowledgeBase, res.Error)

			res = a.Answer(context.Background(), model.DetectionResult{Questions: []model.Question{{Question: "Why?"}}})
			assert.Equal(t, model.MsgNoKnowledgeBase, res.Error)
			assert.Empty(t, r.prompts)
		})
	}
}

func TestAnswer_PassesDetectionError(t *testing.T) {
	a := New(context.Background(), newDeps(t, &router{}), "biology")

	res := a.Answer(context.Background(), model.DetectionResult{Error: "detect: first round: boom"})
	assert.Equal(t, model.ResultError, res.Type)
	assert.Equal(t, "detect: first round: boom", res.Error)
}

func TestAnswer_NoQuestions(t *testing.T) {
	a := New(context.Background(), newDeps(t, &router{}), "biology")

	res := a.Answer(context.Background(), model.DetectionResult{Questions: []model.Question{}})
	assert.Equal(t, model.ResultError, res.Type)
	assert.Equal(t, MsgNoAnswers, res.Error)
}

func TestDetect_CombinesOCRAndText(t *testing.T) {
	r := &router{detected: []model.Question{{QuestionNumber: "1", Question: "Why is the sky blue?"}}}
	a := New(context.Background(), newDeps(t, r), "biology")

	det := a.Detect(context.Background(), "from image", "typed text", "number 2 is wrong")
	require.Empty(t, det.Error)
	require.Len(t, det.Questions, 1)
	assert.Contains(t, r.prompts[0], "from image\ntyped text")
	assert.Contains(t, r.prompts[0], "number 2 is wrong")
}

// stallAfter lets the first n calls through to next, then blocks every later
// call until its context is done.
func stallAfter(n int, next llm.Client) llm.Client {
	var mu sync.Mutex
	calls := 0
	return llm.Func(func(ctx context.Context, prompt string) (string, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		if call <= n {
			return next.Generate(ctx, prompt)
		}
		<-ctx.Done()
		return "", ctx.Err()
	})
}

func TestTimeout_DetectAndProcess(t *testing.T) {
	deps := newDeps(t, stallAfter(0, &router{}))
	deps.Timeout = 20 * time.Millisecond
	a := New(context.Background(), deps, "biology")
	require.True(t, a.HasKnowledgeBase())

	det := a.Detect(context.Background(), "1. What is photosynthesis?", "", "")
	assert.Contains(t, det.Error, "detect: first round")
	assert.Contains(t, det.Error, context.DeadlineExceeded.Error())
	assert.Empty(t, det.Questions)

	res := a.Process(context.Background(), "1. What is photosynthesis?", "", "")
	assert.Equal(t, model.ResultError, res.Type)
	assert.Contains(t, res.Error, context.DeadlineExceeded.Error())
}

func TestTimeout_AnswerKeepsOneAnswerPerQuestion(t *testing.T) {
	questions := []model.Question{
		{QuestionNumber: "1", Section: "Part A", Question: "What is photosynthesis?"},
		{QuestionNumber: "2", Section: "Part A", Question: "What do mitochondria do?"},
		{QuestionNumber: "3", Section: "Part A", Question: "Name an energy source."},
	}
	deps := newDeps(t, stallAfter(1, &router{detected: questions}))
	deps.Answer = answer.Config{SubBatchSize: 1, RetrievalK: 5, Concurrency: 1}
	deps.Timeout = 50 * time.Millisecond
	a := New(context.Background(), deps, "biology")

	res := a.Answer(context.Background(), model.DetectionResult{Questions: questions})
	require.Equal(t, model.ResultStructuredAnswers, res.Type, res.Error)
	require.Len(t, res.Answers, len(questions))
	assert.False(t, res.Answers[0].IsError())
	for i, q := range questions {
		assert.Equal(t, q.QuestionNumber, res.Answers[i].QuestionNumber)
	}
	assert.True(t, res.Answers[1].IsError())
	assert.True(t, res.Answers[2].IsError())
}
