package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"source"},
	Short:   "Manage the source image collections answers are drawn from",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources and their images",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _ := initSources()
		list, err := m.List()
		if err != nil {
			return err
		}
		return printResult(cmd, map[string]any{"sources": list})
	},
}

var sourcesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _ := initSources()
		if err := m.Create(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Source created: %s\n", args[0])
		return nil
	},
}

var sourcesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a source and its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _ := initSources()
		if err := m.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Source deleted: %s\n", args[0])
		return nil
	},
}

var sourcesUploadCmd = &cobra.Command{
	Use:   "upload <name> <image>...",
	Short: "Copy images into a source",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _ := initSources()
		name := args[0]
		for _, path := range args[1:] {
			f, err := os.Open(path)
			if err != nil {
				return eris.Wrapf(err, "open %s", path)
			}
			err = m.Upload(name, filepath.Base(path), f)
			f.Close() //nolint:errcheck
			if err != nil {
				return eris.Wrapf(err, "upload %s", path)
			}
			zap.L().Info("uploaded", zap.String("source", name), zap.String("file", filepath.Base(path)))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d files to %s\n", len(args)-1, name)
		return nil
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd, sourcesCreateCmd, sourcesDeleteCmd, sourcesUploadCmd)
	rootCmd.AddCommand(sourcesCmd)
}
