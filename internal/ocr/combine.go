package ocr

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OrderNote is prepended to combined text from more than one image.
const OrderNote = "**NOTE: Images may not be in any particular order.**\n\n"

// File is one image to extract, identified by its display name.
type File struct {
	Name string
	Path string
}

// Result is the extracted text of one File. A failed extraction has empty
// Text and a non-nil Err.
type Result struct {
	Name string
	Text string
	Err  error
}

// ExtractAll runs ex over files with at most concurrency extractions in
// flight. Results keep the order of files. Per-file failures are logged and
// reported on the Result, never returned.
func ExtractAll(ctx context.Context, ex Extractor, files []File, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]Result, len(files))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, f := range files {
		g.Go(func() error {
			text, err := ex.ExtractText(ctx, f.Path)
			if err != nil {
				zap.L().Warn("ocr: extraction failed", zap.String("file", f.Name), zap.Error(err))
			} else {
				zap.L().Debug("ocr: extraction complete", zap.String("file", f.Name), zap.Int("chars", len(text)))
			}
			results[i] = Result{Name: f.Name, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Combine joins non-blank results with per-file markers.
func Combine(results []Result) string {
	var b strings.Builder
	for _, r := range results {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- FILE: %s ---\n", r.Name)
		b.WriteString(r.Text)
		fmt.Fprintf(&b, "\n--- END OF %s ---\n", r.Name)
	}
	return strings.TrimSpace(b.String())
}

// CombineFiles extracts and combines files, adding OrderNote when more than
// one file was given.
func CombineFiles(ctx context.Context, ex Extractor, files []File, concurrency int) string {
	text := Combine(ExtractAll(ctx, ex, files, concurrency))
	if len(files) > 1 && text != "" {
		return OrderNote + text
	}
	return text
}
