package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"traccia/internal/auth"
	"traccia/internal/core"
	"traccia/internal/services"
)

// fakeService is a canned ActivityAPI for handler tests.
type fakeService struct {
	createErr error
	deleteErr error

	activities []services.ActivityWithCounts
	detail     *services.ActivityDetail
	detailErr  error

	listCalls int
}

func (f *fakeService) CreateActivity(_ context.Context, userID, name, color string) (core.Activity, services.Invalidations, error) {
	if f.createErr != nil {
		return core.Activity{}, nil, f.createErr
	}
	a := core.Activity{ID: "a1", UserID: userID, Name: name, Color: color, CreatedAt: time.Now()}
	return a, services.Invalidations{services.ViewActivities(userID)}, nil
}

func (f *fakeService) UpdateActivity(_ context.Context, userID, activityID, _, _ string) (services.Invalidations, error) {
	return services.Invalidations{services.ViewActivities(userID), services.ViewActivity(activityID)}, nil
}

func (f *fakeService) DeleteActivity(_ context.Context, userID, activityID string) (services.Invalidations, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return services.Invalidations{services.ViewActivities(userID), services.ViewActivity(activityID)}, nil
}

func (f *fakeService) LogActivity(_ context.Context, userID, activityID string, now time.Time) (core.Log, services.Invalidations, error) {
	l := core.Log{ID: "l1", ActivityID: activityID, Count: 1, OccurredAt: now, CreatedAt: now}
	return l, services.Invalidations{services.ViewActivities(userID), services.ViewActivity(activityID)}, nil
}

func (f *fakeService) DeleteLog(_ context.Context, userID, logID string) (services.Invalidations, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return services.Invalidations{services.ViewActivities(userID)}, nil
}

func (f *fakeService) GetActivity(_ context.Context, _, _ string, _ time.Time) (*services.ActivityDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeService) GetActivities(_ context.Context, _ string, _ time.Time) ([]services.ActivityWithCounts, error) {
	f.listCalls++
	return f.activities, nil
}

func newTestServer(t *testing.T, svc ActivityAPI) *Server {
	t.Helper()
	s := NewServer(Config{Addr: ":0"}, svc, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func authedRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	claims := &auth.Claims{UserID: "u1", Email: "demo@example.com"}
	return r.WithContext(auth.WithClaims(r.Context(), claims))
}

func TestCreateActivityHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		s := newTestServer(t, &fakeService{})
		w := httptest.NewRecorder()
		s.handleActivities(w, authedRequest(http.MethodPost, "/v1/activities", `{"name":"Gym","color":"#ef4444"}`))

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", w.Code)
		}
		var view ActivityView
		if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if view.Name != "Gym" || view.Color != "#ef4444" {
			t.Fatalf("unexpected view: %+v", view)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		s := newTestServer(t, &fakeService{})
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/activities", strings.NewReader(`{"name":"Gym"}`))
		s.handleActivities(w, r)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		s := newTestServer(t, &fakeService{createErr: core.ErrEmptyName})
		w := httptest.NewRecorder()
		s.handleActivities(w, authedRequest(http.MethodPost, "/v1/activities", `{"name":""}`))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", w.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t, &fakeService{})
		w := httptest.NewRecorder()
		s.handleActivities(w, authedRequest(http.MethodPost, "/v1/activities", `{not json`))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", core.ErrNotFound, http.StatusNotFound},
		{"foreign owner", core.ErrUnauthorized, http.StatusForbidden},
		{"validation", core.ErrInvalidColor, http.StatusUnprocessableEntity},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeService{deleteErr: tt.err})
			w := httptest.NewRecorder()
			s.handleActivityByID(w, authedRequest(http.MethodDelete, "/v1/activities/a1", ""))

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestListActivitiesCaching(t *testing.T) {
	svc := &fakeService{
		activities: []services.ActivityWithCounts{
			{Activity: core.Activity{ID: "a1", UserID: "u1", Name: "Gym"}, MonthCount: 3, TodayCount: 1},
		},
	}
	s := newTestServer(t, svc)

	get := func() ActivityListResponse {
		w := httptest.NewRecorder()
		s.handleActivities(w, authedRequest(http.MethodGet, "/v1/activities", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var resp ActivityListResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp
	}

	resp := get()
	if len(resp.Items) != 1 || resp.Items[0].MonthCount != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	get()
	if svc.listCalls != 1 {
		t.Fatalf("second read must be served from cache, service called %d times", svc.listCalls)
	}

	// A mutation invalidates the list view; the next read hits the service.
	w := httptest.NewRecorder()
	s.handleActivities(w, authedRequest(http.MethodPost, "/v1/activities", `{"name":"Read Book"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	get()
	if svc.listCalls != 2 {
		t.Fatalf("read after mutation must bypass cache, service called %d times", svc.listCalls)
	}
}

func TestGetActivityHandler(t *testing.T) {
	now := time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC)
	detail := &services.ActivityDetail{
		Activity: core.Activity{ID: "a1", UserID: "u1", Name: "Gym", Color: "#ef4444"},
		Logs:     []core.Log{{ID: "l1", ActivityID: "a1", Count: 2, OccurredAt: now}},
		Series:   core.DailySeries([]core.Log{{ActivityID: "a1", Count: 2, OccurredAt: now}}, now, 30),
		Heatmap:  core.YearHeatmap([]core.Log{{ActivityID: "a1", Count: 2, OccurredAt: now}}, now),
	}

	t.Run("detail body", func(t *testing.T) {
		s := newTestServer(t, &fakeService{detail: detail})
		w := httptest.NewRecorder()
		s.handleActivityByID(w, authedRequest(http.MethodGet, "/v1/activities/a1", ""))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var view ActivityDetailView
		if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if view.Activity.ID != "a1" || len(view.Logs) != 1 {
			t.Fatalf("unexpected view: %+v", view.Activity)
		}
		if len(view.Series) != 30 || view.Series[29].Date != "2024-01-05" {
			t.Fatalf("series window wrong: len=%d", len(view.Series))
		}
		if view.Heatmap.Year != 2024 || len(view.Heatmap.Weeks) == 0 {
			t.Fatalf("heatmap missing: %+v", view.Heatmap.Year)
		}
	})

	t.Run("absent id", func(t *testing.T) {
		s := newTestServer(t, &fakeService{detail: nil})
		w := httptest.NewRecorder()
		s.handleActivityByID(w, authedRequest(http.MethodGet, "/v1/activities/nope", ""))

		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})

	t.Run("cached detail rechecks owner", func(t *testing.T) {
		s := newTestServer(t, &fakeService{detail: detail})
		w := httptest.NewRecorder()
		s.handleActivityByID(w, authedRequest(http.MethodGet, "/v1/activities/a1", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("warmup status = %d", w.Code)
		}

		r := httptest.NewRequest(http.MethodGet, "/v1/activities/a1", nil)
		r = r.WithContext(auth.WithClaims(r.Context(), &auth.Claims{UserID: "u2"}))
		w = httptest.NewRecorder()
		s.handleActivityByID(w, r)

		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})
}

func TestLogRoutes(t *testing.T) {
	t.Run("log occurrence", func(t *testing.T) {
		s := newTestServer(t, &fakeService{})
		w := httptest.NewRecorder()
		s.handleActivityByID(w, authedRequest(http.MethodPost, "/v1/activities/a1/logs", ""))

		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", w.Code)
		}
		var view LogView
		if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if view.Count != 1 || view.ActivityID != "a1" {
			t.Fatalf("unexpected log view: %+v", view)
		}
	})

	t.Run("delete log", func(t *testing.T) {
		s := newTestServer(t, &fakeService{})
		w := httptest.NewRecorder()
		s.handleLogByID(w, authedRequest(http.MethodDelete, "/v1/logs/l1", ""))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
	})

	t.Run("unsupported method", func(t *testing.T) {
		s := newTestServer(t, &fakeService{})
		w := httptest.NewRecorder()
		s.handleLogByID(w, authedRequest(http.MethodGet, "/v1/logs/l1", ""))

		if w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", w.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeService{})

	w := httptest.NewRecorder()
	handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz status = %d", w.Code)
	}

	failing := NewServer(Config{Addr: ":0"}, &fakeService{}, func(context.Context) error {
		return context.DeadlineExceeded
	})
	w = httptest.NewRecorder()
	failing.handleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing readyz status = %d, want 503", w.Code)
	}
}
