package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/resilience"
)

// GuardConfig bounds how hard a provider is driven.
type GuardConfig struct {
	Provider      string
	RatePerSecond float64
	Burst         int
	Retry         resilience.RetryConfig
	Breaker       resilience.BreakerConfig
}

// Guard wraps a Client with rate limiting, retries and a circuit breaker.
// Failures that survive the guard are reported as model.TransientCallError.
type Guard struct {
	next     Client
	provider string
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	retry    resilience.RetryConfig
}

// NewGuard wraps next. A non-positive rate disables limiting.
func NewGuard(next Client, cfg GuardConfig) *Guard {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	retry := cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(cfg.Provider, "generate")
	}
	breaker := cfg.Breaker
	if breaker.OnStateChange == nil {
		breaker.OnStateChange = func(from, to resilience.BreakerState) {
			zap.L().Warn("llm circuit breaker state change",
				zap.String("provider", cfg.Provider),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return &Guard{
		next:     next,
		provider: cfg.Provider,
		limiter:  rate.NewLimiter(limit, burst),
		breaker:  resilience.NewBreaker(breaker),
		retry:    retry,
	}
}

// Generate implements Client.
func (g *Guard) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (string, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return resilience.Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
			return g.next.Generate(ctx, prompt)
		})
	})
	if err != nil {
		return "", &model.TransientCallError{Op: g.provider + ": generate", Err: err}
	}
	return out, nil
}
