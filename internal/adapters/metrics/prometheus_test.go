package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"tiffsrv/internal/core/domain"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Prometheus) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheus(t *testing.T) {
	p := NewPrometheus()

	p.ObserveConversion(domain.OutcomeOK, false, 2*time.Second)
	p.ObserveConversion(domain.OutcomeOK, true, 0)
	p.ObserveConversion(domain.OutcomeNotFound, false, time.Millisecond)
	p.ObserveDeletion(domain.OutcomeOK)
	p.ObserveDeletion(domain.OutcomeNotFound)
	p.ObserveDeletion(domain.OutcomeNotFound)
	p.ObserveFetch(1024, nil)
	p.ObserveFetch(0, errors.New("boom"))

	body := scrape(t, p)

	tests := []string{
		`tiffsrv_conversions_total{outcome="ok",skipped="false"} 1`,
		`tiffsrv_conversions_total{outcome="ok",skipped="true"} 1`,
		`tiffsrv_conversions_total{outcome="not_found",skipped="false"} 1`,
		`tiffsrv_conversion_duration_seconds_count 1`,
		`tiffsrv_deletions_total{outcome="not_found"} 2`,
		`tiffsrv_deletions_total{outcome="ok"} 1`,
		`tiffsrv_object_fetches_total{result="error"} 1`,
		`tiffsrv_object_fetches_total{result="ok"} 1`,
		`tiffsrv_object_fetch_bytes_total 1024`,
	}

	for _, want := range tests {
		assert.Contains(t, body, want)
	}
}
