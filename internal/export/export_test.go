package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/homework-assistant/internal/model"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": JSON, "JSON": JSON, "yaml": YAML, " yml ": YAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.ErrorContains(t, err, `unknown format "csv"`)
}

func TestWrite(t *testing.T) {
	res := model.Result{Type: model.ResultSingleResponse, SourceName: "bio", Response: "a < b"}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, res))
	assert.JSONEq(t, `{"type":"single_response","source_name":"bio","response":"a < b"}`, buf.String())
	assert.Contains(t, buf.String(), "a < b")

	buf.Reset()
	require.NoError(t, Write(&buf, YAML, res))
	assert.Equal(t, "type: single_response\nsource_name: bio\nresponse: a < b\n", buf.String())
}

func TestWriteAnswers_RoundTrip(t *testing.T) {
	opts := "A) 1, B) 2 ✓"
	answers := []model.Answer{
		{Section: "Part A", QuestionNumber: "1", Question: "Pick", QuestionType: "Multiple Choice", OptionsWithAnswer: &opts, Answer: "B", Source: "Source Chunk {R1}"},
		{Section: "Part B", QuestionNumber: "2", Question: "Explain", QuestionType: "Short Answer", Answer: "Because", Source: "Source Chunk {R2}"},
	}
	path := filepath.Join(t.TempDir(), "answers.xlsx")
	require.NoError(t, WriteAnswers(path, answers))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheet[AnswerSheet]
	require.NotNil(t, sheet)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Section", sheet.Rows[0].Cells[0].String())

	back, err := ReadAnswers(path)
	require.NoError(t, err)
	assert.Equal(t, answers, back)
}

func TestReadAnswers_MissingSheet(t *testing.T) {
	f := xlsx.NewFile()
	_, err := f.AddSheet("Other")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "other.xlsx")
	require.NoError(t, f.Save(path))

	_, err = ReadAnswers(path)
	assert.ErrorContains(t, err, `sheet "Answers" not found`)
}
