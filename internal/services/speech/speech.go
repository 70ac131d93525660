package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/metrics"
	"github.com/Egham-7/bedtime-stories/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Backend turns resolved parameters into MP3 bytes
type Backend interface {
	Name() string
	Synthesize(ctx context.Context, params Params) ([]byte, error)
}

// Service synthesizes narration with a disk cache in front of the backend
type Service struct {
	backend  Backend
	cache    *DiskCache
	recorder *metrics.Recorder
}

// NewFromConfig builds the configured backend. Missing credentials yield an
// unconfigured service; broken credentials are an error.
func NewFromConfig(cfg models.SpeechProviderConfig, recorder *metrics.Recorder) (*Service, error) {
	cache, err := NewDiskCache(cfg.CacheDir)
	if err != nil {
		fiberlog.Warnf("Speech disk cache disabled: %v", err)
		cache = nil
	}

	if !cfg.IsConfigured() {
		return NewService(nil, cache, recorder), nil
	}

	var backend Backend
	switch cfg.Provider {
	case models.ProviderOpenAI:
		backend = NewOpenAIBackend(cfg)
	case models.ProviderGoogle, "":
		account, err := LoadServiceAccount(cfg.Credentials, cfg.CredentialsB64)
		if err != nil {
			return NewService(nil, cache, recorder), err
		}
		google, err := NewGoogleBackend(account, cfg.ProjectID, cfg.TokenURL, cfg.BaseURL)
		if err != nil {
			return NewService(nil, cache, recorder), err
		}
		backend = google
	default:
		return NewService(nil, cache, recorder), fmt.Errorf("unsupported speech provider: %s (supported: google, openai)", cfg.Provider)
	}

	return NewService(backend, cache, recorder), nil
}

// NewService wires a backend and cache; either may be nil
func NewService(backend Backend, cache *DiskCache, recorder *metrics.Recorder) *Service {
	return &Service{backend: backend, cache: cache, recorder: recorder}
}

// Configured reports whether a backend is available
func (s *Service) Configured() bool {
	return s != nil && s.backend != nil
}

// CacheKey identifies the audio for a set of parameters
func CacheKey(params Params) (string, error) {
	return utils.StableHash(params)
}

// Synthesize returns MP3 bytes for req, serving repeated requests from disk
func (s *Service) Synthesize(ctx context.Context, req models.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, models.NewValidationError("text is required", nil)
	}
	if !s.Configured() {
		return nil, models.NewNotConfiguredError("speech synthesis")
	}

	params := ParamsFor(req)
	key, err := CacheKey(params)
	if err != nil {
		return nil, models.NewInternalError("failed to derive speech cache key", err)
	}

	if s.cache != nil {
		if audio, ok, err := s.cache.Get(key); err != nil {
			fiberlog.Warnf("Speech cache read failed for %s: %v", key, err)
		} else if ok {
			fiberlog.Debugf("Speech cache hit %s", key)
			return audio, nil
		}
	}

	start := time.Now()
	audio, err := s.backend.Synthesize(ctx, params)
	duration := time.Since(start)
	if err != nil {
		s.recorder.ObserveUpstream("speech", s.backend.Name(), metrics.OutcomeError, duration)
		return nil, models.NewProviderError(s.backend.Name(), "speech synthesis failed", err)
	}
	s.recorder.ObserveUpstream("speech", s.backend.Name(), metrics.OutcomeSuccess, duration)

	if s.cache != nil {
		if err := s.cache.Put(key, audio); err != nil {
			fiberlog.Warnf("Speech cache write failed for %s: %v", key, err)
		}
	}
	return audio, nil
}
