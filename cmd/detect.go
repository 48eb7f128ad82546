package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/homework-assistant/internal/assistant"
)

var detectInput inputFlags

var detectCmd = &cobra.Command{
	Use:   "detect <source>",
	Short: "List the questions found in homework text or images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		hw, err := detectInput.resolve(ctx, env.OCR)
		if err != nil {
			return err
		}

		det := assistant.New(ctx, env.Deps, args[0]).Detect(ctx, hw.ocrContent, hw.text, hw.corrections)
		if err := printResult(cmd, det); err != nil {
			return err
		}
		if det.Error != "" {
			return eris.New(det.Error)
		}
		return nil
	},
}

func init() {
	detectInput.register(detectCmd)
	rootCmd.AddCommand(detectCmd)
}
