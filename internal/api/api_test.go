package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/cache"
	"github.com/Egham-7/bedtime-stories/internal/services/database"
	"github.com/Egham-7/bedtime-stories/internal/services/fallback"
	"github.com/Egham-7/bedtime-stories/internal/services/middleware"
	"github.com/Egham-7/bedtime-stories/internal/services/story"
	"github.com/Egham-7/bedtime-stories/internal/services/textgen"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const danielJSON = `{
  "title": "Daniel and the Quiet Lions",
  "summary": "Daniel keeps praying and God keeps him safe.",
  "story": "Daniel loved to pray three times a day...",
  "prayer": "Dear God, help me trust You like Daniel. Amen.",
  "scripture": {"reference": "Daniel 6:22", "verseText": "My God hath sent his angel, and hath shut the lions' mouths."},
  "questions": ["Who kept Daniel safe?", "When do you pray?", "How can you be brave?"]
}`

type fixedGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (g *fixedGenerator) Name() string { return models.ProviderGemini }

func (g *fixedGenerator) Generate(_ context.Context, _ string, _ textgen.Options) (string, error) {
	g.calls.Add(1)
	return g.text, g.err
}

func newStoryService(gen textgen.Generator) *story.Service {
	var generators []textgen.Generator
	if gen != nil {
		generators = []textgen.Generator{gen}
	}
	return story.NewService(story.Dependencies{
		Memo:       cache.New(cache.NewMemoryStore(0), 10*time.Minute),
		Fallback:   fallback.NewFallbackService(models.FallbackConfig{}, nil, nil),
		Generators: generators,
		Retry:      models.RetryConfig{Attempts: 2, BaseDelayMs: 1},
	})
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(models.DatabaseConfig{Type: models.SQLite, FilePath: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestApp mounts routes behind the identity middleware without a token verifier
func newTestApp(register func(app *fiber.App)) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewAuthMiddleware(nil, nil).Identify())
	register(app)
	return app
}

// call sends body (a string is sent verbatim, anything else as JSON) and returns the response and its body
func call(t *testing.T, app *fiber.App, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}
