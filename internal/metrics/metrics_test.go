package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boombot/pkg/boombot"
)

func TestObserverCounters(t *testing.T) {
	c, err := New(false)
	require.NoError(t, err)

	c.ObserveSectorCheck(boombot.LayerExact, true)
	c.ObserveSectorCheck(boombot.LayerExact, true)
	c.ObserveSectorCheck(boombot.LayerNone, false)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sectorChecks.WithLabelValues("exact", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sectorChecks.WithLabelValues("none", "invalid")))

	c.ObserveGeneration("gemini", "", 1500*time.Millisecond)
	c.ObserveGeneration("gemini", boombot.ErrCodeUpstreamTimeout, time.Minute)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationTotal.WithLabelValues("gemini", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationTotal.WithLabelValues("gemini", "UPSTREAM_TIMEOUT")))

	c.ObserveParse(3, false)
	c.ObserveParse(0, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseTotal.WithLabelValues("records")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseTotal.WithLabelValues("fallback")))

	c.ObserveTelegramMessage("out", "reply")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.telegramMessages.WithLabelValues("out", "reply")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c, err := New(false)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Method(http.MethodGet, "/metrics", c.Handler())

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		require.Equal(t, http.StatusAccepted, rec.Code)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(c.requestTotal.WithLabelValues(http.MethodGet, "/api/items/{id}", "202")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `boombot_http_requests_total{method="GET",route="/api/items/{id}",status="202"} 3`), string(body))
}

func TestNewWithRuntimeCollectors(t *testing.T) {
	c, err := New(true)
	require.NoError(t, err)
	families, err := c.Registry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}
