// Package export writes normalized station data to interchange formats:
// GeoJSON for map frontends, CSV and XLSX for spreadsheet users.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode"

	"github.com/cjscld94-cyber/qwer/internal/linemap"
	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// StationCollection is a GeoJSON FeatureCollection of station points.
type StationCollection struct {
	Type     string           `json:"type"`
	Features []StationFeature `json:"features"`
}

// StationFeature is one station as a GeoJSON Point feature.
type StationFeature struct {
	Type       string        `json:"type"`
	Properties StationProps  `json:"properties"`
	Geometry   PointGeometry `json:"geometry"`
}

// StationProps carries the display attributes map frontends read.
type StationProps struct {
	Name  string `json:"name"`
	Line  string `json:"line"`
	Color string `json:"color"`
}

// PointGeometry is a GeoJSON Point in (longitude, latitude) order.
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// LineFeature is one line's polyline as a GeoJSON LineString feature.
type LineFeature struct {
	Type       string             `json:"type"`
	Properties LineProps          `json:"properties"`
	Geometry   LineStringGeometry `json:"geometry"`
}

// LineProps carries per-line display attributes.
type LineProps struct {
	Line     string `json:"line"`
	Color    string `json:"color"`
	Stations int    `json:"station_count"`
}

// LineStringGeometry is a GeoJSON LineString in (longitude, latitude) order.
type LineStringGeometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Manifest indexes one GeoJSON export run.
type Manifest struct {
	GeneratedAtUTC string         `json:"generated_at_utc"`
	StationsFile   ManifestFile   `json:"stations_file"`
	Lines          []ManifestLine `json:"lines"`
}

// ManifestFile records a written artifact and its content checksum.
type ManifestFile struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// ManifestLine records one per-line artifact.
type ManifestLine struct {
	Line     string       `json:"line"`
	Color    string       `json:"color"`
	Stations int          `json:"stations"`
	File     ManifestFile `json:"file"`
}

// WriteGeoJSON writes stations.geojson, one lines/<label>.geojson per line
// with at least two stations, and a manifest.json indexing the run. Output
// is deterministic for a given input: stations sort by name then source
// row, line files are written in label order.
func WriteGeoJSON(outputDir string, stations []schema.Station, paths map[string][][2]float64) (*Manifest, error) {
	linesDir := filepath.Join(outputDir, "lines")
	if err := os.MkdirAll(linesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", linesDir, err)
	}

	manifest := &Manifest{GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339)}

	features := make([]StationFeature, 0, len(stations))
	for _, st := range stations {
		features = append(features, StationFeature{
			Type: "Feature",
			Properties: StationProps{
				Name:  st.Name,
				Line:  st.Line,
				Color: linemap.ColorFor(st.Line).Hex(),
			},
			Geometry: PointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{st.Longitude, st.Latitude},
			},
		})
	}
	sort.SliceStable(features, func(i, j int) bool {
		if features[i].Properties.Name != features[j].Properties.Name {
			return features[i].Properties.Name < features[j].Properties.Name
		}
		return features[i].Properties.Line < features[j].Properties.Line
	})

	stationsPath := filepath.Join(outputDir, "stations.geojson")
	checksum, err := writeJSON(stationsPath, StationCollection{Type: "FeatureCollection", Features: features})
	if err != nil {
		return nil, fmt.Errorf("failed to write stations.geojson: %w", err)
	}
	manifest.StationsFile = ManifestFile{Path: "stations.geojson", Checksum: checksum}

	labels := make([]string, 0, len(paths))
	for label := range paths {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		coords := paths[label]
		if len(coords) < 2 {
			continue
		}

		feature := LineFeature{
			Type: "Feature",
			Properties: LineProps{
				Line:     label,
				Color:    linemap.ColorFor(label).Hex(),
				Stations: len(coords),
			},
			Geometry: LineStringGeometry{
				Type:        "LineString",
				Coordinates: coords,
			},
		}

		name := sanitizeLabel(label) + ".geojson"
		checksum, err := writeJSON(filepath.Join(linesDir, name), feature)
		if err != nil {
			return nil, fmt.Errorf("failed to write line file for %q: %w", label, err)
		}
		manifest.Lines = append(manifest.Lines, ManifestLine{
			Line:     label,
			Color:    feature.Properties.Color,
			Stations: len(coords),
			File:     ManifestFile{Path: filepath.Join("lines", name), Checksum: checksum},
		})
	}

	if _, err := writeJSON(filepath.Join(outputDir, "manifest.json"), manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return manifest, nil
}

// sanitizeLabel makes a line label safe to use as a file name. Letters and
// digits in any script are kept, so Korean labels stay readable on disk.
func sanitizeLabel(label string) string {
	out := []rune(label)
	for i, r := range out {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			continue
		}
		out[i] = '_'
	}
	if len(out) == 0 {
		return "line"
	}
	return string(out)
}

func writeJSON(path string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return sha256Sum(data), nil
}

func sha256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
