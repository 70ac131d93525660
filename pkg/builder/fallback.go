package builder

import "github.com/Egham-7/bedtime-stories/internal/models"

func (b *Builder) WithFallback(cfg models.FallbackConfig) *Builder {
	if cfg.Mode == "" {
		cfg.Mode = models.FallbackModeSequential
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = 30000
	}

	b.cfg.Fallback = cfg
	return b
}

func (b *Builder) WithRetry(attempts, baseDelayMs int) *Builder {
	b.cfg.Retry = models.RetryConfig{
		Attempts:    attempts,
		BaseDelayMs: baseDelayMs,
	}
	return b
}
