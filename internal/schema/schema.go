// Package schema resolves the column layout of arbitrary station tables.
//
// Korean transit datasets name the same columns many ways (위도 / latitude /
// lat / y and so on). The normalizer maps whatever headers a file arrives
// with onto a fixed set of roles and coerces the cell values, so the rest of
// the system only ever sees normalized stations.
package schema

import (
	"fmt"
	"strings"
)

// Role identifies what a dataset column means to the explorer.
type Role string

const (
	RoleName      Role = "name"
	RoleLine      Role = "line"
	RoleLatitude  Role = "latitude"
	RoleLongitude Role = "longitude"
	RoleOrder     Role = "order"
)

// DefaultLineLabel groups every station of a dataset that carries no line
// column under a single label.
const DefaultLineLabel = "Line"

// roleAliases lists accepted header names per role, best candidate first.
// Matching is case-insensitive; the alias order is the priority order, and
// ties between columns matching the same alias go to the leftmost column.
var roleAliases = map[Role][]string{
	RoleLatitude:  {"위도", "latitude", "lat", "y"},
	RoleLongitude: {"경도", "longitude", "lon", "lng", "long", "x"},
	RoleName:      {"역명", "station", "name", "stop", "title"},
	RoleLine:      {"노선명", "line", "route", "branch"},
	RoleOrder:     {"order", "seq", "sequence", "idx"},
}

// Station is one normalized dataset row.
type Station struct {
	Name      string   `json:"name"`
	Line      string   `json:"line"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Order     *float64 `json:"order,omitempty"` // nil when the order cell is absent or non-numeric
	Row       int      `json:"row"`             // zero-based position in the source table
}

// Mapping records which source column was resolved for each role. Empty
// strings mean the role had no column; when Embedded is true, Latitude and
// Longitude both name the combined coordinate column the values were parsed
// out of.
type Mapping struct {
	Name      string `json:"name,omitempty"`
	Line      string `json:"line,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
	Order     string `json:"order,omitempty"`
	Embedded  bool   `json:"embedded,omitempty"`
}

// Result is a fully normalized dataset. Dropped counts the rows excluded
// because their coordinates would not coerce; dropped rows are reported, not
// errors.
type Result struct {
	Mapping  Mapping
	Stations []Station
	Dropped  int
}

// MissingCoordinatesError means no column could be resolved for one or both
// coordinate roles. Without coordinates none of the dataset is explorable,
// so this is the one fatal outcome of normalization.
type MissingCoordinatesError struct {
	Missing []Role
}

func (e *MissingCoordinatesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = string(r)
	}
	return fmt.Sprintf("no column resolved for coordinate role(s): %s", strings.Join(names, ", "))
}
