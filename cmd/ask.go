package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/assistant"
	"github.com/sells-group/homework-assistant/internal/export"
	"github.com/sells-group/homework-assistant/internal/history"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/report"
)

var (
	askInput inputFlags
	askXLSX  string
)

var askCmd = &cobra.Command{
	Use:   "ask <source>",
	Short: "Detect and answer homework in one step",
	Long:  "Detects the questions in the input and answers them from the source. Input without questions gets a single conversational reply instead.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		hw, err := askInput.resolve(ctx, env.OCR)
		if err != nil {
			return err
		}

		res := assistant.New(ctx, env.Deps, name).Process(ctx, hw.ocrContent, hw.text, hw.corrections)
		if res.Failed() {
			_ = printResult(cmd, res)
			return eris.New(res.Error)
		}

		recordExchange(ctx, env.History, name,
			report.ExchangeInput(hw.text, hw.ocrContent, report.AskPreviewLen, hw.corrections), res)
		return finishResult(cmd, res, askXLSX)
	},
}

// recordExchange appends to chat history. Failures are logged only.
func recordExchange(ctx context.Context, hist *history.Service, name, user string, res model.Result) {
	n, err := hist.Append(ctx, name, user, report.ExchangeReply(res))
	if err != nil {
		zap.L().Warn("record history", zap.String("source", name), zap.Error(err))
		return
	}
	zap.L().Debug("history recorded", zap.String("source", name), zap.Int("length", n))
}

// finishResult prints res and, when xlsxPath is set, saves its answers.
func finishResult(cmd *cobra.Command, res model.Result, xlsxPath string) error {
	if xlsxPath != "" {
		if res.Type != model.ResultStructuredAnswers {
			zap.L().Warn("no structured answers to export", zap.String("type", string(res.Type)))
		} else if err := export.WriteAnswers(xlsxPath, res.Answers); err != nil {
			return err
		}
	}
	return printResult(cmd, res)
}

func init() {
	askInput.register(askCmd)
	askCmd.Flags().StringVar(&askXLSX, "xlsx", "", "also write the answers to this XLSX file")
	rootCmd.AddCommand(askCmd)
}
