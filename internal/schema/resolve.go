package schema

import "strings"

// A resolveRule is one stage of header resolution. Rules run in order and
// only fire while their predicate holds, so the precise stages shadow the
// looser fallbacks behind them.
type resolveRule struct {
	name    string
	applies func(cols []string, m *Mapping) bool
	resolve func(cols []string, m *Mapping)
}

// resolveRules is the resolution pipeline: exact bilingual aliases first,
// then substring matching for the coordinate roles, then combined
// coordinate columns as the last resort.
var resolveRules = []resolveRule{
	{
		name:    "exact-alias",
		applies: func([]string, *Mapping) bool { return true },
		resolve: resolveExactAliases,
	},
	{
		name:    "coordinate-substring",
		applies: coordinatesUnresolved,
		resolve: resolveCoordinateSubstrings,
	},
	{
		name:    "embedded-coordinate",
		applies: coordinatesUnresolved,
		resolve: resolveEmbeddedColumn,
	},
}

// resolveColumns runs the rule pipeline over the header set. The name role
// falls back to the leftmost column when nothing matched it, mirroring how
// these tables are usually laid out.
func resolveColumns(cols []string) Mapping {
	var m Mapping
	for _, rule := range resolveRules {
		if rule.applies(cols, &m) {
			rule.resolve(cols, &m)
		}
	}
	if m.Name == "" && len(cols) > 0 {
		m.Name = cols[0]
	}
	return m
}

func coordinatesUnresolved(_ []string, m *Mapping) bool {
	return !m.Embedded && (m.Latitude == "" || m.Longitude == "")
}

func resolveExactAliases(cols []string, m *Mapping) {
	m.Latitude = matchAlias(cols, roleAliases[RoleLatitude])
	m.Longitude = matchAlias(cols, roleAliases[RoleLongitude])
	m.Name = matchAlias(cols, roleAliases[RoleName])
	m.Line = matchAlias(cols, roleAliases[RoleLine])
	m.Order = matchAlias(cols, roleAliases[RoleOrder])
}

// matchAlias returns the first column equal to any alias, trying aliases in
// priority order and columns left to right. Comparison is case-insensitive.
func matchAlias(cols, aliases []string) string {
	for _, alias := range aliases {
		for _, col := range cols {
			if strings.EqualFold(col, alias) {
				return col
			}
		}
	}
	return ""
}

// resolveCoordinateSubstrings claims columns whose names merely contain a
// coordinate word, for headers like "LAT(도)" or "station_longitude" that
// the alias table cannot enumerate. "latt" is excluded so words like
// "lattice" never claim the latitude role.
func resolveCoordinateSubstrings(cols []string, m *Mapping) {
	if m.Latitude == "" {
		for _, col := range cols {
			lower := strings.ToLower(col)
			if strings.Contains(lower, "lat") && !strings.Contains(lower, "latt") {
				m.Latitude = col
				break
			}
		}
	}
	if m.Longitude == "" {
		for _, col := range cols {
			lower := strings.ToLower(col)
			if strings.Contains(lower, "lon") || strings.Contains(lower, "lng") {
				m.Longitude = col
				break
			}
		}
	}
}

// resolveEmbeddedColumn looks for a single column holding both coordinates,
// like "coord" or "위치POINT". When found it serves both roles, replacing
// any half-resolved split column.
func resolveEmbeddedColumn(cols []string, m *Mapping) {
	for _, col := range cols {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "coord") || strings.Contains(lower, "point") {
			m.Latitude = col
			m.Longitude = col
			m.Embedded = true
			return
		}
	}
}

func missingCoordinateRoles(m Mapping) []Role {
	var missing []Role
	if m.Latitude == "" {
		missing = append(missing, RoleLatitude)
	}
	if m.Longitude == "" {
		missing = append(missing, RoleLongitude)
	}
	return missing
}
