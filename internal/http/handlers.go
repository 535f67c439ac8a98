package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"traccia/internal/auth"
	"traccia/internal/core"
	applog "traccia/internal/log"
	"traccia/internal/middleware/trace"
	"traccia/internal/observability"
	"traccia/internal/services"
)

// ActivityAPI is the service surface the HTTP layer depends on.
type ActivityAPI interface {
	CreateActivity(ctx context.Context, userID, name, color string) (core.Activity, services.Invalidations, error)
	UpdateActivity(ctx context.Context, userID, activityID, name, color string) (services.Invalidations, error)
	DeleteActivity(ctx context.Context, userID, activityID string) (services.Invalidations, error)
	LogActivity(ctx context.Context, userID, activityID string, now time.Time) (core.Log, services.Invalidations, error)
	DeleteLog(ctx context.Context, userID, logID string) (services.Invalidations, error)
	GetActivity(ctx context.Context, userID, activityID string, now time.Time) (*services.ActivityDetail, error)
	GetActivities(ctx context.Context, userID string, now time.Time) ([]services.ActivityWithCounts, error)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listActivities(w, r)
	case http.MethodPost:
		s.createActivity(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (s *Server) handleActivityByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/activities/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	if id, found := strings.CutSuffix(rest, "/logs"); found {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		s.logActivity(w, r, id)
		return
	}

	if strings.ContainsRune(rest, '/') {
		writeError(w, http.StatusNotFound, "not_found", "no such resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getActivity(w, r, rest)
	case http.MethodPut:
		s.updateActivity(w, r, rest)
	case http.MethodDelete:
		s.deleteActivity(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (s *Server) handleLogByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/logs/")
	if id == "" || strings.ContainsRune(id, '/') {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing log id")
		return
	}

	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	s.deleteLog(w, r, id)
}

func (s *Server) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	activity, inv, err := s.service.CreateActivity(r.Context(), claims.UserID, req.Name, req.Color)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidate(inv)
	writeJSON(w, http.StatusCreated, toActivityView(activity))
}

func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	inv, err := s.service.UpdateActivity(r.Context(), claims.UserID, id, req.Name, req.Color)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidate(inv)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "updated"})
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	inv, err := s.service.DeleteActivity(r.Context(), claims.UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidate(inv)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

func (s *Server) logActivity(w http.ResponseWriter, r *http.Request, activityID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	log, inv, err := s.service.LogActivity(r.Context(), claims.UserID, activityID, time.Now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidate(inv)
	writeJSON(w, http.StatusCreated, toLogView(log))
}

func (s *Server) deleteLog(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	inv, err := s.service.DeleteLog(r.Context(), claims.UserID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidate(inv)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	key := services.ViewActivities(claims.UserID)
	if list, found := s.listCache.Get(key); found {
		observability.RecordCacheHit("activities")
		writeJSON(w, http.StatusOK, toActivityListResponse(list))
		return
	}
	observability.RecordCacheMiss("activities")

	list, err := s.service.GetActivities(r.Context(), claims.UserID, time.Now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.listCache.Set(key, list)
	observability.RecordAggregationRead("activities")
	writeJSON(w, http.StatusOK, toActivityListResponse(list))
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	key := services.ViewActivity(id)
	if detail, found := s.detailCache.Get(key); found {
		// Cached details are keyed by activity id; re-check the caller
		// still owns the activity.
		if detail.Activity.UserID != claims.UserID {
			writeError(w, http.StatusForbidden, "forbidden", "activity belongs to another user")
			return
		}
		observability.RecordCacheHit("activity")
		writeJSON(w, http.StatusOK, toActivityDetailView(detail))
		return
	}
	observability.RecordCacheMiss("activity")

	detail, err := s.service.GetActivity(r.Context(), claims.UserID, id, time.Now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
		return
	}

	s.detailCache.Set(key, *detail)
	observability.RecordAggregationRead("activity")
	writeJSON(w, http.StatusOK, toActivityDetailView(*detail))
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such resource")
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", "resource belongs to another user")
	default:
		slog.ErrorContext(r.Context(), "Activity request failed",
			applog.FieldRequestID, trace.GetRequestID(r.Context()),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
