package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEngineCall(t *testing.T) {
	c := New()

	c.RecordEngineCall("ollama", "generate", OutcomeSuccess, 20*time.Millisecond)
	c.RecordEngineCall("ollama", "generate", OutcomeError, 30*time.Millisecond)
	c.RecordEngineCall("ollama", "generate", OutcomeRejected, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.engineRequests.WithLabelValues("ollama", "generate", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.engineRequests.WithLabelValues("ollama", "generate", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.engineErrors.WithLabelValues("ollama", "generate")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.engineLatency))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.RecordHTTPRequest("POST /api/v1/models/route", http.StatusOK)
	c.SetBreakerState("gemini", 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "modelrouter_http_requests_total"))
	assert.True(t, strings.Contains(text, `modelrouter_engine_breaker_state{engine="gemini"} 1`))
}
