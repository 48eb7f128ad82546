package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/assistant"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/ocr"
	"github.com/sells-group/homework-assistant/internal/report"
)

// MaxFiles is the most images one detect or ask request may carry.
const MaxFiles = 10

const msgNoInput = "Please provide either text input or upload image files for OCR processing."

// ocrExts are the image types accepted for request OCR.
var ocrExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff"}

// input is the parsed multipart body of detect and ask.
type input struct {
	text        string
	corrections string
	ocrContent  string
	files       int
}

// readInput parses the form, OCRs its images and rejects empty requests.
// On failure the response has been written and ok is false.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (in input, ok bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && err != http.ErrNotMultipart {
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return in, false
	}
	in.text = strings.TrimSpace(r.FormValue("text"))
	in.corrections = strings.TrimSpace(r.FormValue("user_corrections"))

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) > MaxFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d files allowed. You uploaded %d files.", MaxFiles, len(headers)))
		return in, false
	}
	if len(headers) > 0 && headers[0].Filename != "" {
		in.files = len(headers)
		text, err := s.ocrUploads(r.Context(), headers)
		if err != nil {
			s.log.Error("ocr uploads", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
			return in, false
		}
		in.ocrContent = text
	}

	if in.ocrContent == "" && in.text == "" {
		writeError(w, http.StatusBadRequest, msgNoInput)
		return in, false
	}
	return in, true
}

// ocrUploads saves the accepted images to a temp dir and extracts them in
// upload order.
func (s *Server) ocrUploads(ctx context.Context, headers []*multipart.FileHeader) (string, error) {
	dir, err := os.MkdirTemp("", "assistant-upload-*")
	if err != nil {
		return "", eris.Wrap(err, "api: create upload dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	var files []ocr.File
	for i, fh := range headers {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if fh.Filename == "" || !slices.Contains(ocrExts, ext) {
			continue
		}
		dst := filepath.Join(dir, fmt.Sprintf("%03d%s", i, ext))
		if err := saveUpload(fh, dst); err != nil {
			return "", err
		}
		files = append(files, ocr.File{Name: filepath.Base(fh.Filename), Path: dst})
	}
	if len(files) == 0 {
		return "", nil
	}
	return ocr.CombineFiles(ctx, s.ocr, files, s.opts.OCRConcurrency), nil
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return eris.Wrapf(err, "api: open %s", fh.Filename)
	}
	defer src.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "api: save %s", fh.Filename)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrapf(err, "api: save %s", fh.Filename)
	}
	return eris.Wrapf(out.Close(), "api: save %s", fh.Filename)
}

func (s *Server) newAssistant(ctx context.Context, name string) *assistant.Assistant {
	return assistant.New(ctx, s.deps, name)
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	in, ok := s.readInput(w, r)
	if !ok {
		return
	}

	det := s.newAssistant(r.Context(), name).Detect(r.Context(), in.ocrContent, in.text, in.corrections)
	if det.Error != "" {
		writeJSON(w, http.StatusInternalServerError, det)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":            "questions_detected",
		"result":          det,
		"source_name":     name,
		"ocr_content":     in.ocrContent,
		"text_input":      in.text,
		"files_processed": in.files,
	})
}

type answerRequest struct {
	OCRContent      string          `json:"ocr_content"`
	TextInput       string          `json:"text_input"`
	DetectionResult json.RawMessage `json:"detection_result"`
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req answerRequest
	body, err := io.ReadAll(r.Body)
	if err != nil || len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &req) != nil {
		writeError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	var det model.DetectionResult
	raw := bytes.TrimSpace(req.DetectionResult)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("{}")) {
		writeError(w, http.StatusBadRequest, "No detection result provided")
		return
	}
	if err := json.Unmarshal(raw, &det); err != nil {
		writeError(w, http.StatusBadRequest, "No detection result provided")
		return
	}

	res := s.newAssistant(r.Context(), name).Answer(r.Context(), det)
	if res.Failed() {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}

	n, err := s.history.Append(r.Context(), name,
		report.ExchangeInput(req.TextInput, req.OCRContent, report.AnswerPreviewLen, ""),
		report.ExchangeReply(res),
	)
	if err != nil {
		s.log.Error("record history", zap.String("source", name), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":                res.Type,
		"result":              res,
		"source_name":         name,
		"chat_history_length": n,
	})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	in, ok := s.readInput(w, r)
	if !ok {
		return
	}

	res := s.newAssistant(r.Context(), name).Process(r.Context(), in.ocrContent, in.text, in.corrections)
	if res.Failed() {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}

	n, err := s.history.Append(r.Context(), name,
		report.ExchangeInput(in.text, in.ocrContent, report.AskPreviewLen, in.corrections),
		report.ExchangeReply(res),
	)
	if err != nil {
		s.log.Error("record history", zap.String("source", name), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"type":                res.Type,
		"result":              res,
		"source_name":         name,
		"files_processed":     in.files,
		"chat_history_length": n,
	})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	hist, err := s.history.Get(r.Context(), name)
	if err != nil {
		s.log.Error("get history", zap.String("source", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve chat history: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source_name":     name,
		"history":         hist,
		"total_exchanges": len(hist),
	})
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.history.Clear(r.Context(), name); err != nil {
		s.log.Error("clear history", zap.String("source", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to clear chat history: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared for source: " + name})
}
