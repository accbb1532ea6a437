package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// LineHandler handles HTTP requests for line geometry and colors
type LineHandler struct {
	provider SnapshotProvider
}

// NewLineHandler creates a new handler with the given snapshot provider
func NewLineHandler(provider SnapshotProvider) *LineHandler {
	return &LineHandler{provider: provider}
}

// LineSummary is one line in the GET /api/lines listing
type LineSummary struct {
	Line     string `json:"line"`
	Color    string `json:"color"`
	Stations int    `json:"stations"`
	HasPath  bool   `json:"hasPath"`
}

// LinesResponse is the JSON response structure for GET /api/lines
type LinesResponse struct {
	Lines []LineSummary `json:"lines"`
	Count int           `json:"count"`
}

// PathResponse is the JSON response structure for GET /api/lines/{label}/path
type PathResponse struct {
	Line        string       `json:"line"`
	Color       string       `json:"color"`
	Stations    int          `json:"stations"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// GetLines handles GET /api/lines
// Returns every line label with its color, station count, and whether a
// drawable path exists, sorted by label
func (h *LineHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	counts := make(map[string]int)
	for _, st := range snap.Stations {
		counts[st.Line]++
	}

	lines := make([]LineSummary, 0, len(counts))
	for label, n := range counts {
		_, hasPath := snap.Paths[label]
		lines = append(lines, LineSummary{
			Line:     label,
			Color:    snap.Colors[label].Hex(),
			Stations: n,
			HasPath:  hasPath,
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].Line < lines[j].Line
	})

	response := LinesResponse{
		Lines: lines,
		Count: len(lines),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=15")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetLinePath handles GET /api/lines/{label}/path
// Returns the polyline for one line as (longitude, latitude) pairs.
// Responds 404 for unknown labels and for lines with fewer than two
// stations, which have no path
func (h *LineHandler) GetLinePath(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	label := chi.URLParam(r, "label")
	if label == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "label parameter is required"})
		return
	}

	coords, ok := snap.Paths[label]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "No path for line",
			Details: map[string]interface{}{
				"line": label,
			},
		})
		return
	}

	response := PathResponse{
		Line:        label,
		Color:       snap.Colors[label].Hex(),
		Stations:    len(coords),
		Coordinates: coords,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=15")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
