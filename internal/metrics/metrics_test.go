package metrics

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/require"
)

func TestManager_RecordsPlanningSeries(t *testing.T) {
    m := New()
    m.EstimateRecorded(planning.SourceAI)
    m.EstimateRecorded(planning.SourceAI)
    m.EstimateRecorded(planning.SourceFallback)
    m.PointsClamped(domain.TierIntern)
    m.AssignmentsPersisted(3, 1, 1)
    m.RunFinished(true, 2*time.Second)
    m.RunFinished(false, time.Second)

    require.Equal(t, 2.0, testutil.ToFloat64(m.estimates.WithLabelValues("ai")))
    require.Equal(t, 1.0, testutil.ToFloat64(m.estimates.WithLabelValues("fallback")))
    require.Equal(t, 1.0, testutil.ToFloat64(m.clamped.WithLabelValues("intern")))
    require.Equal(t, 3.0, testutil.ToFloat64(m.persisted.WithLabelValues("inserted")))
    require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failure")))
    require.Equal(t, 2, testutil.CollectAndCount(m.runs))
}

func TestManager_HandlerExposesOnlyOwnRegistry(t *testing.T) {
    m := New()
    m.HTTPRequest("/team", http.MethodGet, 200, 5*time.Millisecond)

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    body := rec.Body.String()
    require.Contains(t, body, `sprint_pulse_http_requests_total{method="GET",route="/team",status="200"} 1`)
    require.False(t, strings.Contains(body, "go_goroutines"))
}
