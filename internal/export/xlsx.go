package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/homework-assistant/internal/model"
)

// AnswerSheet is the sheet name used by WriteAnswers.
const AnswerSheet = "Answers"

var answerHeader = []string{"Section", "Number", "Question", "Type", "Options", "Answer", "Source"}

// WriteAnswers saves answers to a new workbook at path, one row per answer
// under a header row.
func WriteAnswers(path string, answers []model.Answer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(AnswerSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	addRow(sheet, answerHeader)
	for _, a := range answers {
		options := ""
		if a.OptionsWithAnswer != nil {
			options = *a.OptionsWithAnswer
		}
		addRow(sheet, []string{a.Section, a.QuestionNumber, a.Question, a.QuestionType, options, a.Answer, a.Source})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// ReadAnswers loads a workbook written by WriteAnswers.
func ReadAnswers(path string) ([]model.Answer, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, ok := f.Sheet[AnswerSheet]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", AnswerSheet)
	}

	var out []model.Answer
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row, len(answerHeader))
		a := model.Answer{
			Section:        cells[0],
			QuestionNumber: cells[1],
			Question:       cells[2],
			QuestionType:   cells[3],
			Answer:         cells[5],
			Source:         cells[6],
		}
		if cells[4] != "" {
			opts := cells[4]
			a.OptionsWithAnswer = &opts
		}
		out = append(out, a)
	}
	return out, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// rowToStrings pads short rows, since trailing empty cells are not stored.
func rowToStrings(row *xlsx.Row, width int) []string {
	cells := make([]string, max(width, len(row.Cells)))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
