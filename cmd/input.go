package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/homework-assistant/internal/export"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/ocr"
)

// maxImages matches the HTTP API limit.
const maxImages = 10

// inputFlags are the homework inputs shared by detect and ask.
type inputFlags struct {
	text        string
	textFile    string
	corrections string
	images      []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "homework text")
	cmd.Flags().StringVar(&f.textFile, "text-file", "", "read homework text from a file")
	cmd.Flags().StringVar(&f.corrections, "corrections", "", "corrections to a previous detection")
	cmd.Flags().StringSliceVar(&f.images, "image", nil, "homework image to OCR (repeatable)")
}

// homework is the resolved input of one command run.
type homework struct {
	text        string
	ocrContent  string
	corrections string
}

// resolve reads the text file and OCRs the images. It fails when neither
// yields any content.
func (f *inputFlags) resolve(ctx context.Context, ex ocr.Extractor) (*homework, error) {
	if len(f.images) > maxImages {
		return nil, model.NewValidationError(
			fmt.Sprintf("Maximum %d files allowed. You gave %d files.", maxImages, len(f.images)))
	}

	hw := &homework{
		text:        strings.TrimSpace(f.text),
		corrections: strings.TrimSpace(f.corrections),
	}
	if f.textFile != "" {
		data, err := os.ReadFile(f.textFile)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", f.textFile)
		}
		hw.text = strings.TrimSpace(hw.text + "\n" + string(data))
	}

	if len(f.images) > 0 {
		files := make([]ocr.File, len(f.images))
		for i, p := range f.images {
			files[i] = ocr.File{Name: filepath.Base(p), Path: p}
		}
		hw.ocrContent = ocr.CombineFiles(ctx, ex, files, cfg.OCR.Concurrency)
	}

	if hw.text == "" && hw.ocrContent == "" {
		return nil, model.NewValidationError("provide --text, --text-file or at least one --image with readable text")
	}
	return hw, nil
}

// printResult writes v to stdout in the selected format.
func printResult(cmd *cobra.Command, v any) error {
	format, err := export.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return export.Write(cmd.OutOrStdout(), format, v)
}
