// Package handlers implements the HTTP endpoints of the station explorer.
// Handlers read from the current dataset snapshot; they never touch the
// filesystem or the store directly.
package handlers

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cjscld94-cyber/qwer/internal/explorer"
	"github.com/cjscld94-cyber/qwer/internal/export"
	"github.com/cjscld94-cyber/qwer/internal/query"
	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// SnapshotProvider supplies the dataset snapshot handlers serve from.
type SnapshotProvider interface {
	Current() *explorer.Snapshot
}

// StationHandler handles HTTP requests for station data
type StationHandler struct {
	provider SnapshotProvider
}

// NewStationHandler creates a new handler with the given snapshot provider
func NewStationHandler(provider SnapshotProvider) *StationHandler {
	return &StationHandler{provider: provider}
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// DatasetResponse is the JSON response structure for GET /api/dataset
type DatasetResponse struct {
	Source      string         `json:"source"`
	SHA256      string         `json:"sha256"`
	Encoding    string         `json:"encoding"`
	Mapping     schema.Mapping `json:"mapping"`
	Stations    int            `json:"stations"`
	Lines       int            `json:"lines"`
	Dropped     int            `json:"dropped"`
	HasOrder    bool           `json:"hasOrder"`
	FromStore   bool           `json:"fromStore"`
	SnapshotID  string         `json:"snapshotId,omitempty"`
	LoadedAtUTC time.Time      `json:"loadedAtUtc"`
}

// StationsResponse is the JSON response structure for GET /api/stations
type StationsResponse struct {
	Stations []schema.Station `json:"stations"`
	Count    int              `json:"count"`
}

// NearestResponse is the JSON response structure for GET /api/stations/nearest
type NearestResponse struct {
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	Neighbors []query.Neighbor `json:"neighbors"`
	Count     int              `json:"count"`
}

// GetDataset handles GET /api/dataset
// Returns provenance and resolution metadata for the loaded dataset,
// including the count of rows dropped during coercion
func (h *StationHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	response := DatasetResponse{
		Source:      snap.SourceName,
		SHA256:      snap.SHA256,
		Encoding:    snap.Encoding,
		Mapping:     snap.Mapping,
		Stations:    len(snap.Stations),
		Lines:       len(snap.Colors),
		Dropped:     snap.Dropped,
		HasOrder:    snap.HasOrder,
		FromStore:   snap.FromStore,
		SnapshotID:  snap.SnapshotID,
		LoadedAtUTC: snap.LoadedAtUTC,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=15")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetStations handles GET /api/stations
// Optional query parameters: line (exact label), q (name substring)
func (h *StationHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	stations := filteredStations(snap, r)

	response := StationsResponse{
		Stations: stations,
		Count:    len(stations),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=15")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetNearest handles GET /api/stations/nearest
// Requires lat and lon query parameters; limit defaults to 5
func (h *StationHandler) GetNearest(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	lat, err := parseCoordinate(r.URL.Query().Get("lat"), -90, 90)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "lat must be a latitude between -90 and 90",
			Details: map[string]interface{}{
				"lat": r.URL.Query().Get("lat"),
			},
		})
		return
	}

	lon, err := parseCoordinate(r.URL.Query().Get("lon"), -180, 180)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "lon must be a longitude between -180 and 180",
			Details: map[string]interface{}{
				"lon": r.URL.Query().Get("lon"),
			},
		})
		return
	}

	limit := 5
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error: "limit must be a positive integer",
				Details: map[string]interface{}{
					"limit": rawLimit,
				},
			})
			return
		}
	}

	neighbors := query.Nearest(snap.Stations, lat, lon, limit)

	response := NearestResponse{
		Latitude:  lat,
		Longitude: lon,
		Neighbors: neighbors,
		Count:     len(neighbors),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=15")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// GetStats handles GET /api/stats
// Returns summary statistics for the filtered station set
func (h *StationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	summary := query.Summarize(filteredStations(snap, r))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=30, stale-while-revalidate=15")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(summary)
}

// ExportCSV handles GET /api/export.csv
// Streams the filtered station set as a BOM-prefixed CSV attachment
func (h *StationHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Dataset not loaded"})
		return
	}

	stations := filteredStations(snap, r)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="stations_filtered.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, stations, snap.HasOrder); err != nil {
		// Headers are gone already; all we can do is log.
		log.Printf("Warning: CSV export aborted: %v", err)
	}
}

func filteredStations(snap *explorer.Snapshot, r *http.Request) []schema.Station {
	line := r.URL.Query().Get("line")
	q := r.URL.Query().Get("q")
	return query.Filter(snap.Stations, line, q)
}

func parseCoordinate(raw string, min, max float64) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	// ParseFloat accepts "NaN" and "Inf" spellings, and NaN slips past
	// range comparisons.
	if math.IsNaN(v) || math.IsInf(v, 0) || v < min || v > max {
		return 0, strconv.ErrRange
	}
	return v, nil
}
