package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/mchen/pagewatch/internal/tracker"
	"github.com/mchen/pagewatch/pkg/badge"
)

type targetResponse struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Threshold     int        `json:"threshold"`
	Color         string     `json:"color"`
	Enabled       bool       `json:"enabled"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	LastChangedAt *time.Time `json:"last_changed_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

func toTargetResponse(t tracker.Target) targetResponse {
	return targetResponse{
		ID:            t.ID,
		Name:          t.Name,
		URL:           t.URL,
		Threshold:     t.Threshold,
		Color:         t.Color,
		Enabled:       t.Enabled,
		LastCheckedAt: t.LastCheckedAt,
		LastChangedAt: t.LastChangedAt,
		LastError:     t.LastError,
	}
}

func (s *Server) handleListTargets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targets, err := s.store.ListTargets(r.Context())
		if err != nil {
			s.logger.Error("list targets", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp := make([]targetResponse, 0, len(targets))
		for _, t := range targets {
			resp = append(resp, toTargetResponse(t))
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

type addTargetRequest struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Threshold int    `json:"threshold"`
	Color     string `json:"color"`
}

func (s *Server) handleAddTarget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addTargetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		vr := tracker.ValidateURL(r.Context(), req.URL)
		if !vr.Valid {
			respondError(w, http.StatusBadRequest, vr.Error)
			return
		}

		id, err := s.store.AddTarget(r.Context(), tracker.Target{
			Name:      req.Name,
			URL:       vr.URL,
			Threshold: req.Threshold,
			Color:     req.Color,
		})
		if err != nil {
			s.logger.Error("add target", "error", err)
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		s.logger.Info("target added", "id", id, "url", vr.URL, "user", getUserID(r))

		resp := map[string]interface{}{"id": id}
		if vr.Error != "" {
			resp["warning"] = vr.Error
		}
		respondJSON(w, http.StatusCreated, resp)
	}
}

func (s *Server) handleRemoveTarget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.targetID(w, r)
		if !ok {
			return
		}
		if err := s.store.RemoveTarget(r.Context(), id); err != nil {
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

func (s *Server) handleTimeline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.targetID(w, r)
		if !ok {
			return
		}
		timeline, err := s.store.ChangeTimeline(r.Context(), id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		type entry struct {
			Distance   int       `json:"distance"`
			OldLen     int       `json:"old_len"`
			NewLen     int       `json:"new_len"`
			DetectedAt time.Time `json:"detected_at"`
		}
		resp := make([]entry, 0, len(timeline))
		for _, c := range timeline {
			resp = append(resp, entry{c.Distance, c.OldLen, c.NewLen, c.DetectedAt})
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// handleCompare serves the side-by-side pre/post-change view built from the
// previous and current snapshots.
func (s *Server) handleCompare() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.targetID(w, r)
		if !ok {
			return
		}
		target, err := s.store.GetTarget(r.Context(), id)
		if err != nil || target == nil {
			respondError(w, http.StatusNotFound, "Unknown target")
			return
		}

		cur, err := s.store.GetSnapshot(r.Context(), id, tracker.SnapCurrent)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if cur == nil {
			respondError(w, http.StatusNotFound, "No snapshot captured yet")
			return
		}
		var oldHTML string
		if prev, _ := s.store.GetSnapshot(r.Context(), id, tracker.SnapPrevious); prev != nil {
			oldHTML = prev.HTML
		}

		c := tracker.RenderComparison(oldHTML, cur.HTML, target.Color, "")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(tracker.ComparisonPage(target.Name, c)))
	}
}

func (s *Server) handleBadge() http.HandlerFunc {
	renderer := badge.NewRenderer()
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.targetID(w, r)
		if !ok {
			return
		}
		target, err := s.store.GetTarget(r.Context(), id)
		if err != nil || target == nil {
			respondError(w, http.StatusNotFound, "Unknown target")
			return
		}

		status := badge.StatusUnchanged
		distance := 0
		if timeline, err := s.store.ChangeTimeline(r.Context(), id); err == nil && len(timeline) > 0 {
			status = badge.StatusChanged
			distance = timeline[0].Distance
		}
		if target.LastError != "" {
			status = badge.StatusError
		}

		w.Header().Set("Content-Type", "image/png")
		if err := renderer.Render(w, target.Name, status, distance); err != nil {
			s.logger.Error("render badge", "error", err)
		}
	}
}

func (s *Server) handleScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := s.scanner.ScanAll(r.Context())
		if err != nil {
			s.logger.Error("scan", "error", err)
			respondError(w, http.StatusInternalServerError, "Scan failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"changes": len(events),
		})
	}
}

func (s *Server) targetID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid target id")
		return 0, false
	}
	return id, true
}
