// Package detect enumerates the questions in a piece of study material over
// repeated model rounds, each returning a bounded batch of new questions.
package detect

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/llm"
	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/structured"
)

// Defaults for Config.
const (
	DefaultBatchSize    = 15
	DefaultMaxQuestions = 200
)

// StopReason records why the round loop ended.
type StopReason string

const (
	StopModelDone     StopReason = "model_done"
	StopCeiling       StopReason = "ceiling"
	StopNoProgress    StopReason = "no_progress"
	StopRepeatedDupes StopReason = "repeated_duplicates"
	StopError         StopReason = "error"
)

// Config tunes the round loop.
type Config struct {
	BatchSize    int
	MaxQuestions int
}

// Outcome is the result of one detection run.
type Outcome struct {
	Questions []model.Question
	Rounds    int
	Stop      StopReason
	// Err is the round error that ended a run with a partial result.
	Err error
}

// Engine runs detection rounds against an LLM.
type Engine struct {
	client llm.Client
	cfg    Config
}

// New creates an Engine. Zero config values fall back to the defaults.
func New(client llm.Client, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	return &Engine{client: client, cfg: cfg}
}

// Run extracts questions from content until the model reports it is done,
// the ceiling is hit, a round makes no progress, two rounds in a row repeat
// the same duplicates, or a round fails.
//
// A failed round keeps what was accumulated before it. Run only returns an
// error when the first round fails with nothing accumulated.
func (e *Engine) Run(ctx context.Context, content, corrections string) (*Outcome, error) {
	log := zap.L().With(zap.String("component", "detect"))

	var (
		accumulated []model.Question
		seen        = make(map[model.Identity]struct{})
		lastDupes   []model.Identity
		out         = &Outcome{}
	)

	for {
		out.Rounds++

		prompt, err := buildPrompt(content, corrections, accumulated, e.cfg.BatchSize)
		if err != nil {
			return nil, eris.Wrap(err, "detect: build prompt")
		}

		resp, err := structured.Generate(ctx, e.client, prompt, structured.QuestionDetection)
		if err != nil {
			log.Warn("detection round failed",
				zap.Int("round", out.Rounds),
				zap.Int("accumulated", len(accumulated)),
				zap.Error(err),
			)
			if len(accumulated) == 0 {
				return nil, eris.Wrap(err, "detect: first round")
			}
			out.Questions, out.Stop, out.Err = accumulated, StopError, err
			return out, nil
		}

		var fresh []model.Question
		var dupes []model.Identity
		for _, q := range resp.Questions {
			id := q.Identity()
			if _, ok := seen[id]; ok {
				dupes = append(dupes, id)
				continue
			}
			seen[id] = struct{}{}
			fresh = append(fresh, q)
		}

		if len(fresh) == 0 {
			log.Info("detection round found nothing new, stopping",
				zap.Int("round", out.Rounds),
				zap.Int("returned", len(resp.Questions)),
			)
			out.Stop = StopNoProgress
			break
		}

		accumulated = append(accumulated, fresh...)
		log.Debug("detection round complete",
			zap.Int("round", out.Rounds),
			zap.Int("new", len(fresh)),
			zap.Int("total", len(accumulated)),
			zap.Bool("more", resp.IsMoreQuestions),
		)

		if len(accumulated) > e.cfg.MaxQuestions {
			accumulated = accumulated[:e.cfg.MaxQuestions]
		}
		if !resp.IsMoreQuestions {
			out.Stop = StopModelDone
			break
		}
		if len(accumulated) >= e.cfg.MaxQuestions {
			out.Stop = StopCeiling
			break
		}
		if len(dupes) > 0 && sameIdentities(dupes, lastDupes) {
			out.Stop = StopRepeatedDupes
			break
		}
		lastDupes = dupes
	}

	out.Questions = accumulated
	log.Info("detection finished",
		zap.Int("questions", len(accumulated)),
		zap.Int("rounds", out.Rounds),
		zap.String("stop", string(out.Stop)),
	)
	return out, nil
}

// Detect runs detection and folds the outcome into a DetectionResult.
func (e *Engine) Detect(ctx context.Context, content, corrections string) model.DetectionResult {
	out, err := e.Run(ctx, content, corrections)
	if err != nil {
		return model.DetectionResult{Questions: []model.Question{}, Error: err.Error()}
	}
	qs := out.Questions
	if qs == nil {
		qs = []model.Question{}
	}
	return model.DetectionResult{Questions: qs, IsMoreQuestions: false}
}

func sameIdentities(a, b []model.Identity) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(id model.Identity) string {
		return id.Section + "\x00" + id.QuestionNumber + "\x00" + id.Text
	}
	ka := make([]string, len(a))
	kb := make([]string, len(b))
	for i := range a {
		ka[i], kb[i] = key(a[i]), key(b[i])
	}
	slices.Sort(ka)
	slices.Sort(kb)
	return slices.Equal(ka, kb)
}
