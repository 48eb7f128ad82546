package resilience

import (
	"time"

	"github.com/sells-group/homework-assistant/internal/config"
)

// FromConfig converts the retry section of the application config.
func FromConfig(c config.RetryConfig) RetryConfig {
	cfg := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		cfg.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	return cfg
}

// BreakerFromConfig converts the circuit breaker section of the application config.
func BreakerFromConfig(c config.RetryConfig) BreakerConfig {
	return BreakerConfig{
		FailureThreshold: c.BreakerThreshold,
		Cooldown:         time.Duration(c.BreakerCooldownSecs) * time.Second,
	}
}
