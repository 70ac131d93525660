package story

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/cache"
	"github.com/Egham-7/bedtime-stories/internal/services/fallback"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const danielJSON = `{
  "title": "Daniel and the Quiet Lions",
  "summary": "Daniel keeps praying and God keeps him safe.",
  "story": "Daniel loved to pray...",
  "prayer": "Dear God, help me trust You like Daniel. Amen.",
  "scripture": {"reference": "Daniel 6:22", "verseText": "My God hath sent his angel, and hath shut the lions' mouths."},
  "questions": ["Who kept Daniel safe?", "When do you pray?", "How can you be brave?"]
}`

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     atomic.Int32
	prompts   []string
}

func (g *scriptedGenerator) Name() string { return "gemini" }

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ textgen.Options) (string, error) {
	n := int(g.calls.Add(1)) - 1

	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)

	if n < len(g.errs) && g.errs[n] != nil {
		return "", g.errs[n]
	}
	if len(g.responses) == 0 {
		return "", nil
	}
	if n >= len(g.responses) {
		n = len(g.responses) - 1
	}
	return g.responses[n], nil
}

type stubImages struct {
	failOn string
	calls  atomic.Int32
}

func (s *stubImages) Configured() bool { return true }

func (s *stubImages) DataURL(_ context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	if s.failOn != "" && strings.Contains(prompt, s.failOn) {
		return "", errors.New("safety filter")
	}
	return "data:image/png;base64,AAAA", nil
}

type stubSpeech struct {
	err error
	req models.SpeechRequest
}

func (s *stubSpeech) Configured() bool { return true }

func (s *stubSpeech) Synthesize(_ context.Context, req models.SpeechRequest) ([]byte, error) {
	s.req = req
	return []byte("mp3"), s.err
}

func newTestService(gen textgen.Generator, images ImageRenderer, speech Synthesizer) *Service {
	var generators []textgen.Generator
	if gen != nil {
		generators = []textgen.Generator{gen}
	}
	return NewService(Dependencies{
		Memo:       cache.New(cache.NewMemoryStore(0), 10*time.Minute),
		Fallback:   fallback.NewFallbackService(models.FallbackConfig{}, nil, nil),
		Generators: generators,
		Images:     images,
		Speech:     speech,
		Retry:      models.RetryConfig{Attempts: 3, BaseDelayMs: 1},
	})
}

func TestStory_DanielIsGeneratedOnceAndServedIdentically(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{danielJSON}}
	svc := newTestService(gen, nil, nil)
	req := models.StoryRequest{Topic: "Daniel", Age: "5-8", Minutes: 15, Theme: "Courage", Lang: "en"}

	first, state, err := svc.Story(context.Background(), req, "req-1")
	require.NoError(t, err)
	assert.Equal(t, cache.Absent, state)

	second, state, err := svc.Story(context.Background(), req, "req-2")
	require.NoError(t, err)
	assert.Equal(t, cache.Fresh, state)

	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, first, second)

	var payload models.StoryPayload
	require.NoError(t, json.Unmarshal(first, &payload))
	assert.Equal(t, "Daniel and the Quiet Lions", payload.Title)
	assert.Equal(t, payload.Story, payload.Text)
	assert.Len(t, payload.Questions, 3)
}

func TestStory_EquivalentRequestsShareOneEntry(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{danielJSON}}
	svc := newTestService(gen, nil, nil)

	_, _, err := svc.Story(context.Background(), models.StoryRequest{Topic: "Daniel", Age: "5–8", Minutes: 15, Lang: "ES"}, "a")
	require.NoError(t, err)
	_, state, err := svc.Story(context.Background(), models.StoryRequest{Topic: "Daniel", Age: "5-8", Minutes: 15, Lang: "es", ChildName: "Ana"}, "b")
	require.NoError(t, err)

	assert.Equal(t, cache.Fresh, state)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestStory_InvalidJSONFallsBackAndIsCached(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"\n  Daniel Prays\nOnce upon a time, Daniel prayed by his window."}}
	svc := newTestService(gen, nil, nil)
	req := models.StoryRequest{Topic: "Daniel", Age: "2-4", Minutes: 5}

	body, _, err := svc.Story(context.Background(), req, "req")
	require.NoError(t, err)

	var payload models.StoryPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Daniel Prays", payload.Title)
	assert.Contains(t, payload.Story, "Daniel prayed")
	assert.Equal(t, prayerEN, payload.Prayer)
	assert.Equal(t, "Psalm 4:8", payload.Scripture.Reference)
	assert.NotEmpty(t, payload.Scripture.VerseText)
	assert.Len(t, payload.Questions, 3)

	_, state, err := svc.Story(context.Background(), req, "req")
	require.NoError(t, err)
	assert.Equal(t, cache.Fresh, state)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestStory_EmptyReplyServesLocalizedApology(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{""}}
	svc := newTestService(gen, nil, nil)
	req := models.StoryRequest{Topic: "Ruth", Age: "5-8", Minutes: 10, Lang: "es"}

	body, state, err := svc.Story(context.Background(), req, "req")
	require.NoError(t, err)
	assert.Equal(t, cache.Absent, state)
	assert.Equal(t, int32(1), gen.calls.Load())

	var payload models.StoryPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, fallbackTitle, payload.Title)
	assert.Equal(t, apologyES, payload.Story)
	assert.Equal(t, payload.Story, payload.Text)
	assert.Equal(t, prayerES, payload.Prayer)
	assert.Equal(t, fallbackReference, payload.Scripture.Reference)
	assert.Len(t, payload.Questions, 3)
}

type blockingGenerator struct {
	release chan struct{}
	calls   atomic.Int32
}

func (g *blockingGenerator) Name() string { return "gemini" }

func (g *blockingGenerator) Generate(context.Context, string, textgen.Options) (string, error) {
	g.calls.Add(1)
	<-g.release
	return danielJSON, nil
}

func TestStory_CallerTimeoutIs504AndResultIsStillCached(t *testing.T) {
	gen := &blockingGenerator{release: make(chan struct{})}
	svc := newTestService(gen, nil, nil)
	req := models.StoryRequest{Topic: "Daniel"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := svc.Story(ctx, req, "slow")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeTimeout, appErr.Type)
	assert.Equal(t, 504, appErr.GetStatusCode())

	key, err := StoryKey(NormalizeStoryRequest(req))
	require.NoError(t, err)
	close(gen.release)
	require.Eventually(t, func() bool {
		_, state, err := svc.deps.Memo.Lookup(context.Background(), key)
		return err == nil && state == cache.Fresh
	}, time.Second, 10*time.Millisecond)

	_, state, err := svc.Story(context.Background(), req, "later")
	require.NoError(t, err)
	assert.Equal(t, cache.Fresh, state)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestStory_RetriesThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{"", "", danielJSON},
		errs:      []error{errors.New("503"), errors.New("503")},
	}
	svc := newTestService(gen, nil, nil)

	_, _, err := svc.Story(context.Background(), models.StoryRequest{Topic: "Daniel"}, "req")
	require.NoError(t, err)
	assert.Equal(t, int32(3), gen.calls.Load())
}

func TestStory_ExhaustedRetriesIsProviderErrorAndCachesNothing(t *testing.T) {
	down := errors.New("upstream down")
	gen := &scriptedGenerator{errs: []error{down, down, down, down}}
	svc := newTestService(gen, nil, nil)
	req := models.StoryRequest{Topic: "Jonah"}

	_, _, err := svc.Story(context.Background(), req, "req")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeProvider, appErr.Type)
	assert.Equal(t, 502, appErr.GetStatusCode())
	assert.Equal(t, int32(3), gen.calls.Load())

	key, err := StoryKey(NormalizeStoryRequest(req))
	require.NoError(t, err)
	_, state, err := svc.deps.Memo.Lookup(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, cache.Absent, state)
}

func TestStory_NotConfigured(t *testing.T) {
	svc := newTestService(nil, nil, nil)
	_, _, err := svc.Story(context.Background(), models.StoryRequest{Topic: "x"}, "req")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeNotConfigured, appErr.Type)
}

func TestStoryKey_DistinctInputsDistinctKeys(t *testing.T) {
	base := NormalizeStoryRequest(models.StoryRequest{Topic: "Daniel", Age: "5-8", Minutes: 15})
	baseKey, err := StoryKey(base)
	require.NoError(t, err)
	assert.Regexp(t, `^story:[0-9a-f]{32}$`, baseKey)

	variants := []models.StoryRequest{
		{Topic: "Jonah", Age: "5-8", Minutes: 15},
		{Topic: "Daniel", Age: "2-4", Minutes: 15},
		{Topic: "Daniel", Age: "5-8", Minutes: 30},
		{Topic: "Daniel", Age: "5-8", Minutes: 15, Theme: "Courage"},
		{Topic: "Daniel", Age: "5-8", Minutes: 15, Lang: "es"},
	}
	for _, v := range variants {
		key, err := StoryKey(NormalizeStoryRequest(v))
		require.NoError(t, err)
		assert.NotEqual(t, baseKey, key, "%+v", v)
	}
}

const scenesJSON = `{
  "title": "Daniel Trusts God",
  "summary": "Daniel prays, and God shuts the lions' mouths.",
  "scenes": [
    {"title": "Daniel Prays", "narration": "Daniel knelt by his window.", "imagePrompt": "man praying by a window"},
    {"title": "The Lions", "narration": "The lions lay down quietly.", "imagePrompt": "sleepy lions"},
    {"title": "Morning", "narration": "The king ran to see Daniel safe.", "imagePrompt": "sunrise over Babylon"}
  ]
}`

func TestGenerate_ParsedScenesWithMediaFallbacks(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{scenesJSON}}
	images := &stubImages{failOn: "sleepy lions"}
	speech := &stubSpeech{err: errors.New("quota")}
	svc := newTestService(gen, images, speech)

	bundle, err := svc.Generate(context.Background(), models.SceneRequest{
		PassageRef:     "Daniel 6",
		Theme:          "Prayer",
		Language:       "es",
		TargetDuration: 30,
		WithImages:     true,
		WithAudio:      true,
	}, "req")
	require.NoError(t, err)

	assert.Equal(t, "Daniel 6", bundle.PassageRef)
	assert.Equal(t, models.AgeEarly, bundle.Age)
	assert.Equal(t, models.LanguageSpanish, bundle.Language)
	require.NotNil(t, bundle.Theme)
	assert.Equal(t, models.ThemePrayer, *bundle.Theme)
	assert.Equal(t, "Daniel Trusts God", bundle.Title)
	assert.Len(t, bundle.Disclaimers, 3)

	require.Len(t, bundle.Scenes, 3)
	total := 0
	ids := map[string]bool{}
	for _, s := range bundle.Scenes {
		total += s.ApproxDurationSec
		ids[s.ID] = true
	}
	assert.Equal(t, 180, total)
	assert.Len(t, ids, 3)

	assert.Equal(t, []string{"data:image/png;base64,AAAA", "/images/placeholder/scene-2.jpg", "data:image/png;base64,AAAA"}, bundle.ImageURLs)
	assert.Equal(t, int32(3), images.calls.Load())

	require.NotNil(t, bundle.Audio)
	assert.True(t, bundle.Audio.Fallback)
	assert.Equal(t, 30, speech.req.Minutes)
	assert.Equal(t, "es", speech.req.Lang)
}

func TestGenerate_TemplatedScenesAndThemeSubstitution(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"not json at all"}}
	speech := &stubSpeech{}
	svc := newTestService(gen, nil, speech)

	bundle, err := svc.Generate(context.Background(), models.SceneRequest{
		PassageRef: "Ruth 2",
		Theme:      "courage",
		WithAudio:  true,
	}, "req")
	require.NoError(t, err)

	assert.Equal(t, "1 Samuel 17", bundle.PassageRef)
	assert.Equal(t, templateTitle, bundle.Title)
	require.Len(t, bundle.Scenes, 3)
	assert.Equal(t, []int{25, 35, 30}, []int{
		bundle.Scenes[0].ApproxDurationSec,
		bundle.Scenes[1].ApproxDurationSec,
		bundle.Scenes[2].ApproxDurationSec,
	})
	assert.Equal(t, []string{
		"/images/placeholder/scene-1.jpg",
		"/images/placeholder/scene-2.jpg",
		"/images/placeholder/scene-3.jpg",
	}, bundle.ImageURLs)

	require.NotNil(t, bundle.Audio)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3")), bundle.Audio.MP3Base64)
	assert.Contains(t, gen.prompts[0], "Passage: 1 Samuel 17")
}

func TestGenerate_TextFailureFailsCall(t *testing.T) {
	down := errors.New("down")
	svc := newTestService(&scriptedGenerator{errs: []error{down, down, down}}, nil, nil)

	_, err := svc.Generate(context.Background(), models.SceneRequest{}, "req")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeProvider, appErr.Type)
}
