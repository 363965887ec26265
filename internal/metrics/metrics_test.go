package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/api/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/api/posts/1", "/api/posts/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/posts/{id}", "404"))
	if got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.NotificationCreated("follow")
	m.NotificationCreated("follow")
	m.PushFailed("onesignal")
	m.EventProcessed("post_created", nil)
	m.EventProcessed("post_created", errors.New("boom"))

	if got := testutil.ToFloat64(m.notifications.WithLabelValues("follow")); got != 2 {
		t.Errorf("notifications follow = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pushFailures.WithLabelValues("onesignal")); got != 1 {
		t.Errorf("push failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("post_created", "error")); got != 1 {
		t.Errorf("failed events = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.NotificationCreated("follow")
	m.PushFailed("fcm")
	m.EventProcessed("x", nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if h := m.InstrumentHandler(next); h == nil {
		t.Fatal("expected passthrough handler")
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.NotificationCreated("post_like")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `redesocial_notifications_created_total{type="post_like"} 1`) {
		t.Errorf("metrics body missing counter:\n%s", rec.Body.String())
	}
}
