package adminapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthResponse mirrors the teacher's pkg/api.HealthResponse: a plain
// liveness signal, no dependency checks.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse mirrors the teacher's pkg/api.ReadyResponse shape,
// generalized to this engine's single dependency check (the datastore).
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	healthy, results := s.engine.Healthcheck(r.Context())

	checks := make(map[string]string, len(results))
	for _, res := range results {
		if res.Healthy {
			checks[res.Name] = "ok"
		} else {
			checks[res.Name] = res.Message
		}
	}

	status := "ready"
	code := http.StatusOK
	if !healthy {
		status = "not ready"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, ReadyResponse{Status: status, Timestamp: time.Now(), Checks: checks})
}

type subscriptionRequest struct {
	UserID string `json:"user_id"`
	Numero int    `json:"event_numero"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Numero <= 0 {
		writeError(w, http.StatusBadRequest, "event_numero must be positive")
		return
	}

	if err := s.engine.Subscribe(r.Context(), req.UserID, req.Numero); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Numero <= 0 {
		writeError(w, http.StatusBadRequest, "event_numero must be positive")
		return
	}

	removed, err := s.engine.Unsubscribe(r.Context(), req.UserID, req.Numero)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	numero, err := strconv.Atoi(chi.URLParam(r, "numero"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "numero must be an integer")
		return
	}

	ev, ok, err := s.engine.Event(r.Context(), numero)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleQueueDepth(w http.ResponseWriter, r *http.Request) {
	depth, err := s.engine.QueueDepth(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"queue_depth": depth})
}

func (s *Server) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": s.engine.RecentActivity()})
}

type testChannelRequest struct {
	UserID string `json:"user_id"`
}

type testChannelResponse struct {
	OK     bool   `json:"success"`
	Detail string `json:"message,omitempty"`
}

func (s *Server) handleTestPush(w http.ResponseWriter, r *http.Request) {
	var req testChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ok, detail, err := s.engine.TestPush(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, testChannelResponse{OK: ok, Detail: detail})
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	var req testChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ok, detail, err := s.engine.TestEmail(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, testChannelResponse{OK: ok, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
