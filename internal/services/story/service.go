package story

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/cache"
	"github.com/Egham-7/bedtime-stories/internal/services/catalog"
	"github.com/Egham-7/bedtime-stories/internal/services/fallback"
	"github.com/Egham-7/bedtime-stories/internal/services/metrics"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"
	"github.com/Egham-7/bedtime-stories/internal/utils"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
)

const (
	storyKeyPrefix = "story"
	sceneKeyPrefix = "scenes"

	maxConcurrentImages = 4
)

// ImageRenderer renders one illustration as a data URL
type ImageRenderer interface {
	Configured() bool
	DataURL(ctx context.Context, prompt string) (string, error)
}

// Synthesizer produces narration audio
type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, req models.SpeechRequest) ([]byte, error)
}

// Dependencies wires a Service; Images and Speech may be nil
type Dependencies struct {
	Memo       *cache.Memo
	Fallback   *fallback.FallbackService
	Generators []textgen.Generator
	Images     ImageRenderer
	Speech     Synthesizer
	Retry      models.RetryConfig
	Recorder   *metrics.Recorder
}

// Service orchestrates story text, scene art and narration
type Service struct {
	deps Dependencies
}

func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// Configured reports whether any text provider is available
func (s *Service) Configured() bool {
	return len(s.deps.Generators) > 0
}

// StoryKey is the memo key for a normalized story request
func StoryKey(params models.StoryParams) (string, error) {
	return utils.StableKey(storyKeyPrefix, params)
}

// Story returns the JSON-encoded StoryPayload for req. Repeated requests
// within the freshness window return the identical bytes.
func (s *Service) Story(ctx context.Context, req models.StoryRequest, requestID string) ([]byte, cache.State, error) {
	if !s.Configured() {
		return nil, cache.Absent, models.NewNotConfiguredError("text generation")
	}

	params := NormalizeStoryRequest(req)
	key, err := StoryKey(params)
	if err != nil {
		return nil, cache.Absent, models.NewInternalError("failed to derive story cache key", err)
	}

	payload, state, err := s.deps.Memo.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		raw, err := s.generateText(ctx, BuildStoryPrompt(params), requestID)
		if err != nil {
			return nil, err
		}

		story, ok := ParseStoryPayload(raw, params.Lang)
		if !ok {
			fiberlog.Warnf("[%s] Story output was not valid JSON, serving fallback payload", requestID)
		}
		return json.Marshal(story)
	})
	if err != nil {
		return nil, state, callerError("story generation", err)
	}

	fiberlog.Infof("[%s] Story %s served (%s)", requestID, key, state)
	return payload, state, nil
}

// Generate builds an illustrated, optionally narrated scene story. Only a
// failure of the scene text fails the call; media failures become placeholders.
func (s *Service) Generate(ctx context.Context, req models.SceneRequest, requestID string) (*models.StoryBundle, error) {
	if !s.Configured() {
		return nil, models.NewNotConfiguredError("text generation")
	}

	params := normalizeSceneRequest(req)
	params.PassageRef = catalog.ChoosePassage(params.PassageRef, params.Theme)

	key, err := utils.StableKey(sceneKeyPrefix, params)
	if err != nil {
		return nil, models.NewInternalError("failed to derive scene cache key", err)
	}

	raw, _, err := s.deps.Memo.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		text, err := s.generateText(ctx, BuildScenePrompt(params), requestID)
		return []byte(text), err
	})
	if err != nil {
		return nil, callerError("scene generation", err)
	}

	bundle := &models.StoryBundle{
		PassageRef:  params.PassageRef,
		Age:         params.Age,
		Language:    params.Language,
		Theme:       params.Theme,
		Disclaimers: append([]string(nil), Disclaimers...),
	}

	if draft := parseSceneDraft(string(raw)); draft != nil {
		bundle.Title = draft.Title
		bundle.Summary = draft.Summary
		bundle.Scenes = scenesFromDraft(draft, params.TargetDuration)
	} else {
		fiberlog.Warnf("[%s] Scene output unusable, using templated scenes", requestID)
		bundle.Title = templateTitle
		bundle.Summary = templateSummary
		bundle.Scenes = TemplateScenes(params.TargetDuration)
	}

	bundle.ImageURLs = s.renderImages(ctx, bundle.Scenes, params.PassageRef, req.WithImages, requestID)
	if req.WithAudio {
		bundle.Audio = s.narrate(ctx, bundle.Scenes, params, requestID)
	}

	return bundle, nil
}

// callerError turns a caller's expired or cancelled context into a 504.
// The memo keeps computing for anyone else waiting on the same key.
func callerError(operation string, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewTimeoutError(operation, err)
	}
	return err
}

// generateText runs the provider chain with linear backoff between attempts
func (s *Service) generateText(ctx context.Context, prompt, requestID string) (string, error) {
	attempts := s.deps.Retry.GetAttempts()

	var text string
	err := utils.Retry(ctx, attempts, s.deps.Retry.GetBaseDelay(), func(ctx context.Context, attempt int) error {
		result, err := s.deps.Fallback.Execute(ctx, s.deps.Generators, prompt, textgen.StoryOptions(), requestID)
		if err != nil {
			fiberlog.Warnf("[%s] Text generation attempt %d/%d failed: %v", requestID, attempt, attempts, err)
			return err
		}
		text = result.Text
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", models.NewTimeoutError("story generation", err)
		}
		return "", models.NewProviderError("text", fmt.Sprintf("generation failed after %d attempts", attempts), err)
	}
	return text, nil
}

func (s *Service) renderImages(ctx context.Context, scenes []models.StoryScene, passageRef string, withImages bool, requestID string) []string {
	urls := make([]string, len(scenes))
	for i := range scenes {
		urls[i] = PlaceholderImage(i)
	}

	if !withImages || s.deps.Images == nil || !s.deps.Images.Configured() {
		return urls
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentImages)
	for i, scene := range scenes {
		g.Go(func() error {
			prompt := fmt.Sprintf("%s. Scene from %s, for young children.", scene.ImagePrompt, passageRef)
			url, err := s.deps.Images.DataURL(ctx, prompt)
			if err != nil {
				fiberlog.Warnf("[%s] Scene %d image failed, using placeholder: %v", requestID, i+1, err)
				s.deps.Recorder.ObservePlaceholder("image")
				return nil
			}
			urls[i] = url
			return nil
		})
	}
	_ = g.Wait()

	return urls
}

func (s *Service) narrate(ctx context.Context, scenes []models.StoryScene, params sceneParams, requestID string) *models.AudioRef {
	if s.deps.Speech == nil || !s.deps.Speech.Configured() {
		s.deps.Recorder.ObservePlaceholder("audio")
		return &models.AudioRef{Fallback: true}
	}

	narration := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		narration = append(narration, scene.Narration)
	}

	audio, err := s.deps.Speech.Synthesize(ctx, models.SpeechRequest{
		Text:    strings.Join(narration, "\n\n"),
		Lang:    string(params.Language),
		Minutes: params.TargetDuration,
	})
	if err != nil {
		fiberlog.Warnf("[%s] Narration failed, client will fall back to local speech: %v", requestID, err)
		s.deps.Recorder.ObservePlaceholder("audio")
		return &models.AudioRef{Fallback: true}
	}

	return &models.AudioRef{MP3Base64: base64.StdEncoding.EncodeToString(audio)}
}
