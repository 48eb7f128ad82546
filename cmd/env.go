package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/answer"
	"github.com/sells-group/homework-assistant/internal/assistant"
	"github.com/sells-group/homework-assistant/internal/detect"
	"github.com/sells-group/homework-assistant/internal/embed"
	"github.com/sells-group/homework-assistant/internal/history"
	"github.com/sells-group/homework-assistant/internal/llm"
	"github.com/sells-group/homework-assistant/internal/ocr"
	"github.com/sells-group/homework-assistant/internal/retrieve"
	"github.com/sells-group/homework-assistant/internal/source"
)

// appEnv holds the clients and services shared by the commands.
type appEnv struct {
	OCR     ocr.Extractor
	Sources *source.Manager
	History *history.Service
	Deps    assistant.Deps
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.History != nil {
		_ = e.History.Close()
	}
}

// initSources builds the source manager. OCR is optional until an image
// without cached text has to be read.
func initSources() (*source.Manager, ocr.Extractor) {
	ex, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		zap.L().Debug("ocr not configured", zap.Error(err))
		ex = ocr.Unavailable(err)
	}
	return source.NewManager(cfg.Sources.Dir, ex), ex
}

// initEnv wires the LLM, retrieval and history stack. Callers should defer
// env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := embed.New(cfg, nil)
	if err != nil {
		return nil, err
	}
	chunker, err := retrieve.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	builder, err := retrieve.NewBuilder(chunker, embedder, cfg.Retrieval.IndexCacheSize)
	if err != nil {
		return nil, err
	}

	hist, err := history.New(ctx, cfg.History)
	if err != nil {
		return nil, eris.Wrap(err, "init history")
	}

	sources, ex := initSources()
	return &appEnv{
		OCR:     ex,
		Sources: sources,
		History: hist,
		Deps: assistant.Deps{
			LLM:     client,
			Sources: sources,
			Indexes: builder,
			Detect: detect.Config{
				BatchSize:    cfg.Detect.BatchSize,
				MaxQuestions: cfg.Detect.MaxQuestions,
			},
			Answer: answer.Config{
				SubBatchSize: cfg.Answer.SubBatchSize,
				RetrievalK:   cfg.Answer.RetrievalK,
				Concurrency:  cfg.Answer.Concurrency,
			},
			Timeout: cfg.Assistant.Timeout(),
		},
	}, nil
}
