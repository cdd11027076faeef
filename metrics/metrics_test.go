package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCheck(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveCheck("postgres", 10*time.Millisecond, nil)
	if got := testutil.ToFloat64(c.up.WithLabelValues("postgres")); got != 1 {
		t.Errorf("dependency_up{postgres} = %v, want 1", got)
	}

	c.ObserveCheck("postgres", 10*time.Millisecond, errors.New("connection refused"))
	if got := testutil.ToFloat64(c.up.WithLabelValues("postgres")); got != 0 {
		t.Errorf("dependency_up{postgres} = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.failures.WithLabelValues("postgres")); got != 1 {
		t.Errorf("failures{postgres} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.duration); got != 1 {
		t.Errorf("expected 1 histogram series, got %d", got)
	}
}

func TestObserveDatabaseAttempt(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ObserveDatabaseAttempt(errors.New("refused"))
	c.ObserveDatabaseAttempt(errors.New("refused"))
	c.ObserveDatabaseAttempt(nil)

	if got := testutil.ToFloat64(c.dbAttempt.WithLabelValues("failure")); got != 2 {
		t.Errorf("failure attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.dbAttempt.WithLabelValues("success")); got != 1 {
		t.Errorf("success attempts = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveCheck("redis", time.Millisecond, nil)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"llmchat_dependency_up", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
