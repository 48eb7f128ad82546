package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/homework-assistant/internal/llm/llmtest"
	"github.com/sells-group/homework-assistant/internal/model"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":1}\nHope this helps", `{"a":1}`},
		{"no object", "nothing", "nothing"},
		{"blank", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestQuestionDetection_ParseDefaultsSection(t *testing.T) {
	out, err := QuestionDetection.Parse(`{"questions":[{"question":"What is x?","question_number":"1"}],"is_more_questions":true}`)
	require.NoError(t, err)
	require.Len(t, out.Questions, 1)
	assert.Equal(t, model.DefaultSection, out.Questions[0].Section)
	assert.True(t, out.IsMoreQuestions)
}

func TestQuestionDetection_RejectsBlankQuestion(t *testing.T) {
	_, err := QuestionDetection.Parse(`{"questions":[{"question":" ","question_number":"1"}],"is_more_questions":false}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "questions[0]")
}

func TestAnswerBatch_RejectsBlankAnswer(t *testing.T) {
	_, err := AnswerBatch.Parse(`{"answers":[{"question_number":"1","question":"q","answer":"","source":"","section":"A","question_type":"Short"}]}`)
	require.Error(t, err)
}

func TestJSONSchema_DescribesFields(t *testing.T) {
	s := QuestionDetection.JSONSchema()
	assert.Contains(t, s, `"is_more_questions"`)
	assert.Contains(t, s, `"question_number"`)
	assert.Contains(t, s, "The exact, full text of the question.")

	instr := AnswerBatch.FormatInstructions()
	assert.Contains(t, instr, "JSON schema")
	assert.Contains(t, instr, `"options_with_answer"`)
}

func TestValidateOrRepair_ValidFirstTime(t *testing.T) {
	client := llmtest.NewScripted()
	out, err := ValidateOrRepair(context.Background(), client, `{"answers":[]}`, AnswerBatch)
	require.NoError(t, err)
	assert.Empty(t, out.Answers)
	assert.Zero(t, client.Calls())
}

func TestValidateOrRepair_RepairsOnce(t *testing.T) {
	client := llmtest.NewScripted(llmtest.Text(`{"questions":[{"question":"Q?","question_number":"2","section":"B"}],"is_more_questions":false}`))

	out, err := ValidateOrRepair(context.Background(), client, `questions: Q? (2)`, QuestionDetection)
	require.NoError(t, err)
	require.Len(t, out.Questions, 1)
	assert.Equal(t, "B", out.Questions[0].Section)

	prompts := client.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "questions: Q? (2)")
	assert.Contains(t, prompts[0], "did not satisfy the constraints")
	assert.Contains(t, prompts[0], `"is_more_questions"`)
}

func TestValidateOrRepair_RepairStillInvalid(t *testing.T) {
	client := llmtest.NewScripted(llmtest.Text("still not json"))

	_, err := ValidateOrRepair(context.Background(), client, "garbage", AnswerBatch)
	require.Error(t, err)

	var outErr *model.ModelOutputError
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, "AnswerBatchOutput", outErr.Schema)
	assert.Equal(t, "still not json", outErr.Raw)
	assert.Equal(t, 1, client.Calls())
}

func TestValidateOrRepair_RepairCallFails(t *testing.T) {
	callErr := &model.TransientCallError{Op: "llm", Err: errors.New("503")}
	client := llmtest.NewScripted(llmtest.Fail(callErr))

	_, err := ValidateOrRepair(context.Background(), client, "garbage", AnswerBatch)
	require.Error(t, err)
	assert.True(t, model.IsTransientCall(err))
}

func TestGenerate(t *testing.T) {
	client := llmtest.NewScripted(
		llmtest.Text("```json\n{\"answers\":[{\"question_number\":\"1\",\"question\":\"q\",\"answer\":\"a\",\"source\":\"Source Chunk {R1}\",\"section\":\"S\",\"question_type\":\"Short Answer\",\"options_with_answer\":null}]}\n```"),
	)
	out, err := Generate(context.Background(), client, "prompt", AnswerBatch)
	require.NoError(t, err)
	require.Len(t, out.Answers, 1)
	assert.Equal(t, "a", out.Answers[0].Answer)
	assert.Nil(t, out.Answers[0].OptionsWithAnswer)
}

func TestGenerate_CallError(t *testing.T) {
	client := llmtest.NewScripted(llmtest.Fail(errors.New("boom")))
	_, err := Generate(context.Background(), client, "prompt", AnswerBatch)
	require.EqualError(t, err, "boom")
}
