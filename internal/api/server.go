// Package api exposes the source and assistant operations over HTTP.
package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/assistant"
	"github.com/sells-group/homework-assistant/internal/history"
	"github.com/sells-group/homework-assistant/internal/ocr"
	"github.com/sells-group/homework-assistant/internal/source"
)

// Options tune request handling.
type Options struct {
	// UploadsDir is served read-only under /uploads/.
	UploadsDir     string
	AllowedOrigins []string
	// OCRConcurrency bounds parallel OCR of one request's files.
	OCRConcurrency int
}

// Server holds the collaborators shared by every handler.
type Server struct {
	sources *source.Manager
	ocr     ocr.Extractor
	history *history.Service
	deps    assistant.Deps
	opts    Options
	log     *zap.Logger
}

// NewServer creates a Server. deps.Sources defaults to sources.
func NewServer(sources *source.Manager, ex ocr.Extractor, hist *history.Service, deps assistant.Deps, opts Options) *Server {
	if deps.Sources == nil {
		deps.Sources = sources
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.OCRConcurrency <= 0 {
		opts.OCRConcurrency = 1
	}
	return &Server{
		sources: sources,
		ocr:     ex,
		history: hist,
		deps:    deps,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "api")),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.opts.UploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(filepath.Clean(s.opts.UploadsDir))))
		r.Get("/uploads/*", func(w http.ResponseWriter, req *http.Request) {
			if strings.HasSuffix(req.URL.Path, "/") {
				http.NotFound(w, req)
				return
			}
			fs.ServeHTTP(w, req)
		})
	}

	r.Route("/source", func(r chi.Router) {
		r.Get("/", s.listSources)
		r.Post("/", s.createSource)
		r.Get("/{name}", s.getSource)
		r.Delete("/{name}", s.deleteSource)
		r.Post("/{name}/upload", s.uploadFile)
		r.Delete("/{name}/files", s.deleteFiles)
	})

	r.Route("/assistant/{name}", func(r chi.Router) {
		r.Post("/detect", s.detect)
		r.Post("/answer", s.answer)
		r.Post("/ask", s.ask)
		r.Get("/history", s.getHistory)
		r.Post("/clear_history", s.clearHistory)
	})

	return r
}
