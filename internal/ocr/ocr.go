// Package ocr extracts text from uploaded homework and source images.
package ocr

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/config"
)

// Extractor extracts text content from an image file.
type Extractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "ocrspace", "":
		if cfg.OCRSpaceKey == "" {
			return nil, eris.New("ocr: ocrspace provider requires ocrspace_api_key")
		}
		return NewOCRSpace(cfg.OCRSpaceKey, cfg.OCRSpaceURL, cfg.Engine), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// Unavailable returns an Extractor that fails every call with err. It stands
// in when OCR is not configured so text-only requests still work.
func Unavailable(err error) Extractor {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) ExtractText(context.Context, string) (string, error) {
	return "", u.err
}

// imageMIME returns the content type for an image path, defaulting to PNG.
func imageMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}
