package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/homework-assistant/internal/assistant"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/report"
)

var (
	answerDetection string
	answerText      string
	answerOCR       string
	answerXLSX      string
)

var answerCmd = &cobra.Command{
	Use:   "answer <source>",
	Short: "Answer a saved detection result",
	Long:  "Reads the JSON written by `detect` (use - for stdin) and answers every question in it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		det, err := readDetection(cmd.InOrStdin(), answerDetection)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res := assistant.New(ctx, env.Deps, name).Answer(ctx, *det)
		if res.Failed() {
			_ = printResult(cmd, res)
			return eris.New(res.Error)
		}

		recordExchange(ctx, env.History, name,
			report.ExchangeInput(answerText, answerOCR, report.AnswerPreviewLen, ""), res)
		return finishResult(cmd, res, answerXLSX)
	},
}

// readDetection loads a DetectionResult from path, or from stdin for "-".
func readDetection(stdin io.Reader, path string) (*model.DetectionResult, error) {
	if path == "" {
		return nil, model.NewValidationError("No detection result provided")
	}
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}

	var det model.DetectionResult
	if err := json.NewDecoder(r).Decode(&det); err != nil {
		return nil, eris.Wrap(err, "decode detection result")
	}
	return &det, nil
}

func init() {
	answerCmd.Flags().StringVar(&answerDetection, "detection", "", "detection result JSON file, or - for stdin")
	answerCmd.Flags().StringVar(&answerText, "text", "", "original homework text, recorded in history")
	answerCmd.Flags().StringVar(&answerOCR, "ocr-content", "", "original OCR text, recorded in history")
	answerCmd.Flags().StringVar(&answerXLSX, "xlsx", "", "also write the answers to this XLSX file")
	rootCmd.AddCommand(answerCmd)
}
