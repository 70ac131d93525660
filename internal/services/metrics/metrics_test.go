package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	rec := NewRecorder(nil)

	rec.ObserveCacheLookup("fresh")
	rec.ObserveCacheLookup("fresh")
	rec.ObserveCacheLookup("")
	rec.ObserveUpstream("text", "gemini", OutcomeSuccess, 300*time.Millisecond)
	rec.ObservePlaceholder("image")
	rec.ObserveWebhook("stripe", "invoice.paid", "rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.cacheLookups.WithLabelValues("fresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.cacheLookups.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.upstreamCalls.WithLabelValues("text", "gemini", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.mediaPlaceholder.WithLabelValues("image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.webhookEvents.WithLabelValues("stripe", "invoice.paid", "rejected")))
}

func TestRecorderHandlerExposesMetrics(t *testing.T) {
	rec := NewRecorder(nil)
	rec.ObserveCacheLookup("absent")

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `bedtime_cache_lookups_total{state="absent"} 1`))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.ObserveCacheLookup("fresh")
	rec.ObserveUpstream("text", "gemini", OutcomeError, time.Second)
	rec.ObservePlaceholder("audio")
	rec.ObserveWebhook("clerk", "user.deleted", "ok")

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 503, w.Code)
}
