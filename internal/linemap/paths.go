// Package linemap derives per-line geometry and display colors from
// normalized stations.
package linemap

import (
	"sort"

	"github.com/cjscld94-cyber/qwer/internal/geo"
	"github.com/cjscld94-cyber/qwer/internal/schema"
)

// GroupByLine buckets stations by line label, preserving label case and
// input order within each group.
func GroupByLine(stations []schema.Station) map[string][]schema.Station {
	groups := make(map[string][]schema.Station)
	for _, st := range stations {
		groups[st.Line] = append(groups[st.Line], st)
	}
	return groups
}

// BuildPaths derives one polyline per line label, as (longitude, latitude)
// pairs. hasOrder says whether the dataset resolved an explicit order
// column; when it did, stations sort ascending by order value with missing
// values last in input order.
//
// Without an order column the stations are arranged by angle around the
// group centroid. That is a drawing heuristic: it yields a closed-loop
// reading order that looks right for roughly convex networks, but it is not
// route reconstruction and can zigzag on strongly branched lines. Groups of
// fewer than two stations produce no path; groups of exactly two keep input
// order, since an angle sort of two points is arbitrary.
func BuildPaths(stations []schema.Station, hasOrder bool) map[string][][2]float64 {
	paths := make(map[string][][2]float64)
	for line, group := range GroupByLine(stations) {
		if len(group) < 2 {
			continue
		}

		ordered := make([]schema.Station, len(group))
		copy(ordered, group)
		if hasOrder {
			sortByOrder(ordered)
		} else if len(ordered) > 2 {
			sortByCentroidAngle(ordered)
		}

		coords := make([][2]float64, len(ordered))
		for i, st := range ordered {
			coords[i] = [2]float64{st.Longitude, st.Latitude}
		}
		paths[line] = coords
	}
	return paths
}

func sortByOrder(group []schema.Station) {
	sort.SliceStable(group, func(i, j int) bool {
		oi, oj := group[i].Order, group[j].Order
		switch {
		case oi != nil && oj != nil:
			return *oi < *oj
		case oi != nil:
			return true
		default:
			return false
		}
	})
}

func sortByCentroidAngle(group []schema.Station) {
	lats := make([]float64, len(group))
	lons := make([]float64, len(group))
	for i, st := range group {
		lats[i] = st.Latitude
		lons[i] = st.Longitude
	}
	centLat, centLon := geo.Centroid(lats, lons)

	sort.SliceStable(group, func(i, j int) bool {
		ai := geo.AngleFrom(centLat, centLon, group[i].Latitude, group[i].Longitude)
		aj := geo.AngleFrom(centLat, centLon, group[j].Latitude, group[j].Longitude)
		return ai < aj
	})
}
