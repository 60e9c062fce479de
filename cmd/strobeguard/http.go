package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"strobeguard/internal/auth"
	"strobeguard/internal/config"
	"strobeguard/internal/database"
	"strobeguard/internal/middleware"
	"strobeguard/internal/monitor"
	"strobeguard/internal/ws"
)

// newHandler builds the HTTP API. Login and health are open; the rest of
// the API and the warning feed go through the auth middleware (a no-op when
// authentication is disabled).
func newHandler(mon *monitor.Monitor, db *database.Database, hub *ws.WarningHub, authenticator *auth.Authenticator, logger *slog.Logger) http.Handler {
	api := &apiHandler{mon: mon, db: db, authenticator: authenticator, logger: logger}
	guard := middleware.Auth(authenticator)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.health)
	mux.HandleFunc("POST /api/login", api.login)
	mux.Handle("GET /api/stats", guard(http.HandlerFunc(api.stats)))
	mux.Handle("GET /api/warnings", guard(http.HandlerFunc(api.warnings)))
	mux.Handle("GET /api/sources", guard(http.HandlerFunc(api.sources)))
	mux.Handle("POST /api/sources/{id}/dismiss", guard(http.HandlerFunc(api.dismiss)))
	mux.Handle("POST /api/sources/{id}/reset", guard(http.HandlerFunc(api.reset)))
	mux.Handle("GET /api/config", guard(http.HandlerFunc(api.getConfig)))
	mux.Handle("PUT /api/config", guard(http.HandlerFunc(api.updateConfig)))
	mux.Handle("/ws/warnings/", guard(ws.NewHandler(hub, logger)))
	return mux
}

type apiHandler struct {
	mon           *monitor.Monitor
	db            *database.Database
	authenticator *auth.Authenticator
	logger        *slog.Logger
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *apiHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, expiresAt, err := h.authenticator.Authenticate(req.Username, req.Password)
	if err != nil {
		if err == auth.ErrAuthDisabled {
			writeError(w, http.StatusConflict, "authentication is disabled")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (h *apiHandler) stats(w http.ResponseWriter, r *http.Request) {
	counters, err := h.db.GetCounters()
	if err != nil {
		h.logger.Error("failed to read counters", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sources_monitored": counters[database.CounterSourcesMonitored],
		"warnings_issued":   counters[database.CounterWarningsIssued],
		"flashes_detected":  counters[database.CounterFlashesDetected],
	})
}

func (h *apiHandler) warnings(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source_id")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var since *time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = &t
		}
	}

	records, err := h.db.ListWarnings(sourceID, since, limit)
	if err != nil {
		h.logger.Error("failed to list warnings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list warnings")
		return
	}

	type warningDTO struct {
		ID                  string    `json:"id"`
		SourceID            string    `json:"source_id"`
		Kind                string    `json:"kind"`
		FlashesInWindow     int       `json:"flashes_in_window"`
		MaxFlashesPerWindow int       `json:"max_flashes_per_window"`
		TotalFlashCount     int       `json:"total_flash_count"`
		PositionMs          float64   `json:"position_ms"`
		IssuedAt            time.Time `json:"issued_at"`
	}
	out := make([]warningDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, warningDTO{
			ID:                  rec.ID,
			SourceID:            rec.SourceID,
			Kind:                rec.Kind,
			FlashesInWindow:     rec.FlashesInWindow,
			MaxFlashesPerWindow: rec.MaxFlashesPerWindow,
			TotalFlashCount:     rec.TotalFlashCount,
			PositionMs:          rec.PositionMs,
			IssuedAt:            rec.IssuedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) sources(w http.ResponseWriter, r *http.Request) {
	type sourceDTO struct {
		ID    string `json:"id"`
		Phase string `json:"phase"`
	}
	ids := h.mon.Sources()
	out := make([]sourceDTO, 0, len(ids))
	for _, id := range ids {
		phase, err := h.mon.Phase(id)
		if err != nil {
			continue
		}
		out = append(out, sourceDTO{ID: id, Phase: phase.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *apiHandler) dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.mon.Dismiss(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

func (h *apiHandler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.mon.Reset(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *apiHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mon.Global())
}

func (h *apiHandler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var g config.Global
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := g.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.SaveToStore(h.db, &g); err != nil {
		h.logger.Error("failed to persist config", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist config")
		return
	}
	// New sessions pick the updated settings up; running sessions keep
	// the thresholds they were started with.
	h.mon.SetGlobal(&g)
	writeJSON(w, http.StatusOK, &g)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
