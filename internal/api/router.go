// internal/api/router.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tendant/simple-scanmatch/internal/config"
	"github.com/tendant/simple-scanmatch/internal/metrics"
	"github.com/tendant/simple-scanmatch/internal/station"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

// Source is the read-only view of the station served over HTTP.
type Source interface {
	Status() schema.RunState
	Since() time.Time
	Config() config.Station
	Recent(ctx context.Context, limit int) ([]schema.AuditRecord, error)
}

type statusResponse struct {
	State   schema.RunState `json:"state"`
	Since   time.Time       `json:"since"`
	IP      string          `json:"ip"`
	Port    int             `json:"port"`
	LogFile string          `json:"log_file"`
}

func NewRouter(src Source, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{src: src, logger: logger.With("component", "api")}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/audit", h.audit).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

type handlers struct {
	src    Source
	logger *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK\n"))
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	cfg := h.src.Config()
	h.writeJSON(w, http.StatusOK, statusResponse{
		State:   h.src.Status(),
		Since:   h.src.Since(),
		IP:      cfg.IP,
		Port:    cfg.Port,
		LogFile: cfg.LogFile,
	})
}

func (h *handlers) audit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.src.Recent(r.Context(), limit)
	if errors.Is(err, station.ErrNotRunning) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.logger.Error("read audit log failed", "err", err)
		http.Error(w, "read audit log failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []schema.AuditRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

func (h *handlers) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response failed", "err", err)
	}
}
