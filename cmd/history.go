package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/homework-assistant/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear the chat history of a source",
}

var historyShowCmd = &cobra.Command{
	Use:   "show <source>",
	Short: "Print the recorded exchanges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		hist, err := history.New(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer hist.Close() //nolint:errcheck

		exchanges, err := hist.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, map[string]any{
			"source_name":     args[0],
			"history":         exchanges,
			"total_exchanges": len(exchanges),
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <source>",
	Short: "Delete the recorded exchanges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		hist, err := history.New(ctx, cfg.History)
		if err != nil {
			return err
		}
		defer hist.Close() //nolint:errcheck

		if err := hist.Clear(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chat history cleared for source: %s\n", args[0])
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
