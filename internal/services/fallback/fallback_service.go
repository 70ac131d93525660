package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/circuitbreaker"
	"github.com/Egham-7/bedtime-stories/internal/services/metrics"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const textService = "text"

// FallbackService runs a prompt against the configured text providers,
// one after another or all at once, skipping providers whose circuit is open.
type FallbackService struct {
	cfg      models.FallbackConfig
	redis    *redis.Client
	recorder *metrics.Recorder

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewFallbackService creates a new fallback service; redisClient and recorder may be nil
func NewFallbackService(cfg models.FallbackConfig, redisClient *redis.Client, recorder *metrics.Recorder) *FallbackService {
	return &FallbackService{
		cfg:      cfg,
		redis:    redisClient,
		recorder: recorder,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// Breaker returns the circuit breaker guarding a provider
func (fs *FallbackService) Breaker(provider string) *circuitbreaker.CircuitBreaker {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cb, ok := fs.breakers[provider]
	if !ok {
		cb = circuitbreaker.New(fs.redis, provider, circuitbreaker.ConfigFrom(fs.cfg.CircuitBreaker))
		fs.breakers[provider] = cb
	}
	return cb
}

// Execute returns the first successful completion
func (fs *FallbackService) Execute(
	ctx context.Context,
	providers []textgen.Generator,
	prompt string,
	opts textgen.Options,
	requestID string,
) (models.FallbackResult, error) {
	if len(providers) == 0 {
		return models.FallbackResult{}, models.NewNotConfiguredError("text generation")
	}

	if len(providers) == 1 {
		fiberlog.Infof("[%s] Using single provider: %s", requestID, providers[0].Name())
		result := fs.call(ctx, providers[0], prompt, opts, requestID)
		if !result.Success {
			return result, result.Error
		}
		return result, nil
	}

	switch fs.cfg.Mode {
	case models.FallbackModeRace:
		return fs.executeRace(ctx, providers, prompt, opts, requestID)
	case models.FallbackModeSequential, "":
		return fs.executeSequential(ctx, providers, prompt, opts, requestID)
	default:
		fiberlog.Warnf("[%s] Unknown fallback mode %s, using sequential", requestID, fs.cfg.Mode)
		return fs.executeSequential(ctx, providers, prompt, opts, requestID)
	}
}

// call runs one provider behind its circuit breaker and records the outcome
func (fs *FallbackService) call(ctx context.Context, provider textgen.Generator, prompt string, opts textgen.Options, requestID string) models.FallbackResult {
	cb := fs.Breaker(provider.Name())
	if !cb.CanExecute() {
		fiberlog.Warnf("[%s] ⚡ Circuit open for %s, skipping", requestID, provider.Name())
		return models.FallbackResult{
			Provider: provider.Name(),
			Error:    models.NewCircuitBreakerError(provider.Name()),
		}
	}

	start := time.Now()
	text, err := provider.Generate(ctx, prompt, opts)
	duration := time.Since(start)

	if err != nil {
		// A caller that gave up says nothing about the provider's health
		if ctx.Err() == nil {
			cb.RecordFailure()
		}
		fs.recorder.ObserveUpstream(textService, provider.Name(), metrics.OutcomeError, duration)
		return models.FallbackResult{Provider: provider.Name(), Error: err, Duration: duration}
	}

	cb.RecordSuccess()
	fs.recorder.ObserveUpstream(textService, provider.Name(), metrics.OutcomeSuccess, duration)
	return models.FallbackResult{Success: true, Provider: provider.Name(), Text: text, Duration: duration}
}

// executeSequential tries providers one by one until one succeeds
func (fs *FallbackService) executeSequential(
	ctx context.Context,
	providers []textgen.Generator,
	prompt string,
	opts textgen.Options,
	requestID string,
) (models.FallbackResult, error) {
	fiberlog.Infof("[%s] ═══ Sequential Fallback Started (%d providers) ═══", requestID, len(providers))

	var errs []error
	for i, provider := range providers {
		providerType := "alternative"
		if i == 0 {
			providerType = "primary"
		}

		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		fiberlog.Infof("[%s] 🔄 Trying %s provider [%d/%d]: %s",
			requestID, providerType, i+1, len(providers), provider.Name())

		result := fs.call(ctx, provider, prompt, opts, requestID)
		if result.Success {
			fiberlog.Infof("[%s] ✅ SUCCESS with %s provider: %s (%v)",
				requestID, providerType, provider.Name(), result.Duration)
			return result, nil
		}

		fiberlog.Warnf("[%s] ❌ FAILED %s provider %s: %v", requestID, providerType, provider.Name(), result.Error)
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), result.Error))
	}

	fiberlog.Errorf("[%s] 💥 All %d providers failed", requestID, len(providers))
	return models.FallbackResult{}, allFailed(errs)
}

// executeRace runs every provider in parallel and keeps the first success
func (fs *FallbackService) executeRace(
	ctx context.Context,
	providers []textgen.Generator,
	prompt string,
	opts textgen.Options,
	requestID string,
) (models.FallbackResult, error) {
	fiberlog.Infof("[%s] ═══ Race Fallback Started (%d providers) ═══", requestID, len(providers))

	var (
		raceCtx context.Context
		cancel  context.CancelFunc
	)
	if fs.cfg.TimeoutMs > 0 {
		raceCtx, cancel = context.WithTimeout(ctx, time.Duration(fs.cfg.TimeoutMs)*time.Millisecond)
	} else {
		raceCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	resultCh := make(chan models.FallbackResult, len(providers))
	for _, provider := range providers {
		go func(prov textgen.Generator) {
			defer func() {
				if r := recover(); r != nil {
					fiberlog.Errorf("[%s] Panic in race provider %s: %v", requestID, prov.Name(), r)
					resultCh <- models.FallbackResult{Provider: prov.Name(), Error: fmt.Errorf("panic: %v", r)}
				}
			}()

			fiberlog.Infof("[%s] 🏃 Racing provider %s", requestID, prov.Name())
			resultCh <- fs.call(raceCtx, prov, prompt, opts, requestID)
		}(provider)
	}

	var errs []error
	for range providers {
		select {
		case result := <-resultCh:
			if result.Success {
				fiberlog.Infof("[%s] 🏆 RACE WINNER: %s (completed in %v)", requestID, result.Provider, result.Duration)
				return result, nil
			}
			errs = append(errs, fmt.Errorf("%s: %w", result.Provider, result.Error))
		case <-raceCtx.Done():
			fiberlog.Errorf("[%s] ❌ Race timed out: %v", requestID, raceCtx.Err())
			return models.FallbackResult{}, models.NewTimeoutError("text generation race", raceCtx.Err())
		}
	}

	fiberlog.Errorf("[%s] 💥 All %d race providers failed", requestID, len(providers))
	return models.FallbackResult{}, allFailed(errs)
}

func allFailed(errs []error) error {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return models.NewProviderError(textService, "all providers failed: "+strings.Join(msgs, "; "), errors.Join(errs...))
}
