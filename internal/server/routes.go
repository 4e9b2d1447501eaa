package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okent/rekindle/internal/engine"
	"github.com/okent/rekindle/internal/feed"
	"github.com/okent/rekindle/internal/store"
)

func (s *Server) handleGenerateBatch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	res, err := s.engine.GenerateBatch(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()

	sugs, err := s.engine.ListPending(r.Context(), userID, store.ListFilter{
		Status:      q.Get("status"),
		TriggerType: q.Get("trigger"),
		Kind:        q.Get("kind"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if sugs == nil {
		sugs = []store.Suggestion{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"suggestions": sugs})
}

func (s *Server) handleEventTrigger(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var ev engine.EventInvite
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	sug, err := s.engine.SuggestForEvent(r.Context(), userID, ev)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sug)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	suggestionID := chi.URLParam(r, "suggestionID")

	sug, err := s.engine.Accept(r.Context(), suggestionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sug)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	suggestionID := chi.URLParam(r, "suggestionID")

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	sug, err := s.engine.Dismiss(r.Context(), suggestionID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sug)
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	suggestionID := chi.URLParam(r, "suggestionID")

	var req struct {
		Until time.Time `json:"until"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	sug, err := s.engine.Snooze(r.Context(), suggestionID, req.Until)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sug)
}

func (s *Server) handleBatchAccept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string   `json:"user_id"`
		IDs    []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	accepted, rejections, err := s.engine.BatchAccept(r.Context(), req.UserID, req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if len(rejections) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"accepted_count": 0,
			"rejections":     rejections,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"accepted_count": accepted})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	entries, err := s.db.ListFeedEntries(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if err := feed.WriteICS(w, entries); err != nil {
		// Headers are gone already; nothing useful left to send.
		return
	}
}

// writeError maps engine taxonomy errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case engine.IsInput(err):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrConflict):
		status = http.StatusConflict
	case engine.IsUpstream(err):
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
