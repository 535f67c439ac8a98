package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMiddlewareAttachesRequestID(t *testing.T) {
	var seen string
	handler := NewMiddleware(nil, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/activities", nil))

	if seen == "" {
		t.Fatal("request id missing from handler context")
	}
	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
}

func TestMiddlewareObservesOutcome(t *testing.T) {
	var (
		gotMethod   string
		gotStatus   int
		gotDuration time.Duration
		calls       int
	)
	observe := func(method string, status int, duration time.Duration) {
		gotMethod, gotStatus, gotDuration = method, status, duration
		calls++
	}

	handler := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, observe).
		Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/logs/l1", nil))

	if calls != 1 {
		t.Fatalf("observer called %d times, want 1", calls)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("method = %q, want DELETE", gotMethod)
	}
	if gotStatus != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", gotStatus)
	}
	if gotDuration < 0 {
		t.Fatalf("duration = %v, want non-negative", gotDuration)
	}
}

func TestGetRequestIDWithoutTrace(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Fatalf("request id = %q, want empty outside traced requests", id)
	}
}
