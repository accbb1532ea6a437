package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Normalize resolves the dataset's columns and coerces every row into a
// Station. Rows whose coordinates do not parse, are not finite, or fall
// outside the valid ranges are dropped and counted rather than failing the
// dataset. A table with no resolvable coordinate columns at all returns
// *MissingCoordinatesError.
func Normalize(frame dataframe.DataFrame) (*Result, error) {
	mapping := resolveColumns(frame.Names())
	if missing := missingCoordinateRoles(mapping); len(missing) > 0 {
		return nil, &MissingCoordinatesError{Missing: missing}
	}

	nrow := frame.Nrow()
	res := &Result{Mapping: mapping, Stations: make([]Station, 0, nrow)}

	names := columnOrNil(frame, mapping.Name)
	lines := columnOrNil(frame, mapping.Line)
	orders := columnOrNil(frame, mapping.Order)
	lats := columnOrNil(frame, mapping.Latitude)
	lons := columnOrNil(frame, mapping.Longitude)

	for i := 0; i < nrow; i++ {
		var lat, lon float64
		var ok bool
		if mapping.Embedded {
			lat, lon, ok = parseEmbedded(lats[i])
		} else {
			lat, lon, ok = parsePair(lats[i], lons[i])
		}
		if !ok {
			res.Dropped++
			continue
		}

		st := Station{
			Line:      DefaultLineLabel,
			Latitude:  lat,
			Longitude: lon,
			Row:       i,
		}
		if names != nil {
			st.Name = strings.TrimSpace(names[i])
		}
		if lines != nil {
			st.Line = strings.TrimSpace(lines[i])
		}
		if orders != nil {
			if v, ok := parseFinite(orders[i]); ok {
				order := v
				st.Order = &order
			}
		}
		res.Stations = append(res.Stations, st)
	}

	return res, nil
}

// columnOrNil returns the raw cells of a resolved column, or nil when the
// role resolved to no column.
func columnOrNil(frame dataframe.DataFrame, col string) []string {
	if col == "" {
		return nil
	}
	return frame.Col(col).Records()
}

// parsePair coerces split latitude/longitude cells.
func parsePair(latCell, lonCell string) (float64, float64, bool) {
	lat, ok := parseFinite(latCell)
	if !ok || !validLatitude(lat) {
		return 0, 0, false
	}
	lon, ok := parseFinite(lonCell)
	if !ok || !validLongitude(lon) {
		return 0, 0, false
	}
	return lat, lon, true
}

// parseEmbedded extracts both coordinates from a combined cell. Accepted
// shapes: "a,b" comma pairs, optionally parenthesized, read as (lat,lon)
// first and as (lon,lat) when the first reading fails range validation; and
// WKT-style "POINT(x y)" where x is the longitude.
func parseEmbedded(cell string) (float64, float64, bool) {
	s := strings.TrimSpace(cell)

	if strings.HasPrefix(strings.ToUpper(s), "POINT") {
		return parseWKTPoint(s)
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, okA := parseFinite(parts[0])
	b, okB := parseFinite(parts[1])
	if !okA || !okB {
		return 0, 0, false
	}

	if validLatitude(a) && validLongitude(b) {
		return a, b, true
	}
	if validLatitude(b) && validLongitude(a) {
		return b, a, true
	}
	return 0, 0, false
}

func parseWKTPoint(s string) (float64, float64, bool) {
	open := strings.Index(s, "(")
	end := strings.Index(s, ")")
	if open < 0 || end < open {
		return 0, 0, false
	}
	fields := strings.Fields(s[open+1 : end])
	if len(fields) != 2 {
		return 0, 0, false
	}
	x, okX := parseFinite(fields[0])
	y, okY := parseFinite(fields[1])
	if !okX || !okY || !validLongitude(x) || !validLatitude(y) {
		return 0, 0, false
	}
	return y, x, true
}

func parseFinite(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func validLatitude(v float64) bool  { return v >= -90 && v <= 90 }
func validLongitude(v float64) bool { return v >= -180 && v <= 180 }
