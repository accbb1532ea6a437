package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// StorePinger reports snapshot store connectivity
type StorePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles HTTP requests for service health
type HealthHandler struct {
	provider SnapshotProvider
	store    StorePinger
}

// NewHealthHandler creates a new handler with the given provider and store
func NewHealthHandler(provider SnapshotProvider, store StorePinger) *HealthHandler {
	return &HealthHandler{provider: provider, store: store}
}

// HealthResponse is the JSON response structure for GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Stations  int       `json:"stations"`
	FromStore bool      `json:"fromStore,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// GetHealth handles GET /health
// Reports whether a dataset is loaded and whether the store answers a ping
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "ok",
		Store:     "connected",
		Timestamp: time.Now().UTC(),
	}
	if snap := h.provider.Current(); snap != nil {
		response.Stations = len(snap.Stations)
		response.FromStore = snap.FromStore
	}

	if err := h.store.Ping(ctx); err != nil {
		response.Status = "error"
		response.Store = "disconnected"
		response.Error = err.Error()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(response)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
