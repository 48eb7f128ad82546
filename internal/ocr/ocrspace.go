package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/resilience"
)

const (
	ocrSpaceEndpoint   = "https://api.ocr.space/parse/image"
	defaultOCRSpaceEng = 2
)

// OCRSpace extracts text from images using the OCR.space parse API.
type OCRSpace struct {
	apiKey   string
	engine   int
	endpoint string
	client   *http.Client
}

// NewOCRSpace creates an OCRSpace extractor. An empty endpoint or a zero
// engine use the defaults.
func NewOCRSpace(apiKey, endpoint string, engine int) *OCRSpace {
	if endpoint == "" {
		endpoint = ocrSpaceEndpoint
	}
	if engine == 0 {
		engine = defaultOCRSpaceEng
	}
	return &OCRSpace{
		apiKey:   apiKey,
		engine:   engine,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

type ocrSpaceResponse struct {
	ParsedResults         []ocrSpaceResult `json:"ParsedResults"`
	IsErroredOnProcessing bool             `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage  `json:"ErrorMessage"`
}

type ocrSpaceResult struct {
	ParsedText string `json:"ParsedText"`
}

// ExtractText uploads the image and returns the text of the first parsed result.
func (o *OCRSpace) ExtractText(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read image %s", imagePath)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create form file")
	}
	if _, err := part.Write(data); err != nil {
		return "", eris.Wrap(err, "ocr: write form file")
	}
	_ = w.WriteField("apikey", o.apiKey)
	_ = w.WriteField("OCREngine", strconv.Itoa(o.engine))
	if err := w.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, &body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: create ocrspace request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "ocr: ocrspace API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "ocr: read ocrspace response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("ocr: ocrspace API returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var parsed ocrSpaceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", eris.Wrap(err, "ocr: unmarshal ocrspace response")
	}
	if parsed.IsErroredOnProcessing {
		return "", eris.Errorf("ocr: ocrspace processing failed: %s", errorMessage(parsed.ErrorMessage))
	}
	if len(parsed.ParsedResults) == 0 {
		return "", nil
	}
	return parsed.ParsedResults[0].ParsedText, nil
}

// errorMessage flattens ErrorMessage, which OCR.space sends as a string or a
// list of strings.
func errorMessage(raw json.RawMessage) string {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return one
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return strings.Join(many, "; ")
	}
	return string(raw)
}
