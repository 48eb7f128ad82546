package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/source"
)

const maxUploadMemory = 32 << 20

func (s *Server) listSources(w http.ResponseWriter, _ *http.Request) {
	list, err := s.sources.List()
	if err != nil {
		s.log.Error("list sources", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to list sources")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": list})
}

func (s *Server) createSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "Source name is required")
		return
	}

	switch err := s.sources.Create(req.Name); {
	case err == nil:
		writeMessage(w, http.StatusCreated, "Source created successfully")
	case errors.Is(err, source.ErrExists):
		writeMessage(w, http.StatusBadRequest, "Source already exists")
	case errors.Is(err, source.ErrInvalidName):
		writeMessage(w, http.StatusBadRequest, "Invalid source name")
	default:
		s.sourceFailure(w, "create source", err)
	}
}

func (s *Server) getSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.sources.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.sourceFailure(w, "get source", err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) deleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.sources.Delete(chi.URLParam(r, "name")); err != nil {
		s.sourceFailure(w, "delete source", err)
		return
	}
	writeMessage(w, http.StatusOK, "Source deleted successfully")
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.sources.Get(name); err != nil {
		s.sourceFailure(w, "upload", err)
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	fh := files[0]
	if fh.Filename == "" {
		writeMessage(w, http.StatusBadRequest, "No file selected")
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.sourceFailure(w, "upload", err)
		return
	}
	defer f.Close() //nolint:errcheck

	if err := s.sources.Upload(name, fh.Filename, f); err != nil {
		if errors.Is(err, source.ErrInvalidType) {
			writeMessage(w, http.StatusBadRequest, "Invalid file type")
			return
		}
		s.sourceFailure(w, "upload", err)
		return
	}
	writeMessage(w, http.StatusCreated, "File uploaded successfully")
}

func (s *Server) deleteFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileNames []string `json:"fileNames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.sources.DeleteFiles(chi.URLParam(r, "name"), req.FileNames); err != nil {
		s.sourceFailure(w, "delete files", err)
		return
	}
	writeMessage(w, http.StatusOK, "Files deleted successfully")
}

// sourceFailure maps source manager errors onto responses.
func (s *Server) sourceFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, source.ErrNotFound), errors.Is(err, source.ErrInvalidName):
		writeMessage(w, http.StatusNotFound, "Source not found")
	default:
		s.log.Error(op, zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
