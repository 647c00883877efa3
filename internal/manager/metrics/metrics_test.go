package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Ingestions.WithLabelValues("created"))
	Ingestions.WithLabelValues("created").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Ingestions.WithLabelValues("created")))
}

func TestObserveStage(t *testing.T) {
	ObserveStage(StageEmbed, time.Now().Add(-time.Second))
	assert.Positive(t, testutil.CollectAndCount(StageDuration))
}

func TestHandler(t *testing.T) {
	Queries.WithLabelValues("valid").Inc()

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "iketube_queries_total")
	assert.Contains(t, string(body), "go_goroutines")
}
