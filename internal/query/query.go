// Package query implements the read operations the explorer exposes over a
// normalized station set: filtering, nearest-station lookup, and summary
// statistics. Everything here is a pure function over station slices.
package query

import (
	"math"
	"sort"
	"strings"

	"github.com/cjscld94-cyber/qwer/internal/geo"
	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// Filter narrows stations by exact line label and/or name substring. Empty
// arguments match everything. Name matching is a case-sensitive contains.
func Filter(stations []schema.Station, line, nameQuery string) []schema.Station {
	out := make([]schema.Station, 0, len(stations))
	for _, st := range stations {
		if line != "" && st.Line != line {
			continue
		}
		if nameQuery != "" && !strings.Contains(st.Name, nameQuery) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Neighbor pairs a station with its distance from the query point.
type Neighbor struct {
	Station    schema.Station `json:"station"`
	DistanceKm float64        `json:"distanceKm"`
}

// Nearest returns the limit closest stations to (lat, lon), closest first.
// Ties keep input order. A non-positive limit means one.
func Nearest(stations []schema.Station, lat, lon float64, limit int) []Neighbor {
	if limit <= 0 {
		limit = 1
	}

	neighbors := make([]Neighbor, len(stations))
	for i, st := range stations {
		neighbors[i] = Neighbor{
			Station:    st,
			DistanceKm: geo.Haversine(lat, lon, st.Latitude, st.Longitude),
		}
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].DistanceKm < neighbors[j].DistanceKm
	})

	if limit > len(neighbors) {
		limit = len(neighbors)
	}
	return neighbors[:limit]
}

// LineCount is one line's station tally.
type LineCount struct {
	Line     string `json:"line"`
	Stations int    `json:"stations"`
}

// Summary condenses a station set: totals, distinct line count, and the
// mean coordinate rounded to six decimal places.
type Summary struct {
	Stations      int         `json:"stations"`
	Lines         int         `json:"lines"`
	MeanLatitude  float64     `json:"meanLatitude"`
	MeanLongitude float64     `json:"meanLongitude"`
	PerLine       []LineCount `json:"perLine"`
}

// Summarize computes summary statistics over a station set. PerLine sorts
// by station count descending with ties broken by label, the order a
// value-count table reads in. Empty input yields zero means.
func Summarize(stations []schema.Station) Summary {
	s := Summary{Stations: len(stations)}

	counts := make(map[string]int)
	lats := make([]float64, len(stations))
	lons := make([]float64, len(stations))
	for i, st := range stations {
		counts[st.Line]++
		lats[i] = st.Latitude
		lons[i] = st.Longitude
	}

	s.Lines = len(counts)
	meanLat, meanLon := geo.Centroid(lats, lons)
	s.MeanLatitude = round6(meanLat)
	s.MeanLongitude = round6(meanLon)

	s.PerLine = make([]LineCount, 0, len(counts))
	for line, n := range counts {
		s.PerLine = append(s.PerLine, LineCount{Line: line, Stations: n})
	}
	sort.Slice(s.PerLine, func(i, j int) bool {
		if s.PerLine[i].Stations != s.PerLine[j].Stations {
			return s.PerLine[i].Stations > s.PerLine[j].Stations
		}
		return s.PerLine[i].Line < s.PerLine[j].Line
	})

	return s
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
