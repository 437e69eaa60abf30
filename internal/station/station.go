// Package station holds the canonical Italian station registry and the
// lookups used to reconcile provider-specific station names with it.
package station

import (
	"strconv"
	"strings"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is a canonical station record.
type Station struct {
	ID       string   `json:"id"`
	RegionID uint8    `json:"region_id"`
	Position Point    `json:"position"`
	Aliases  []string `json:"aliases"` // first alias is the display name
	// PrimaryKey is the station code used by the train-operations API, e.g. "S05043".
	PrimaryKey string `json:"primary_key,omitempty"`
	// SecondaryKey is the station name used by the fares API.
	SecondaryKey string `json:"secondary_key,omitempty"`
}

// Name returns the display name of the station.
func (s Station) Name() string {
	if len(s.Aliases) == 0 {
		return s.ID
	}
	return s.Aliases[0]
}

// ShortPrimaryKey returns the numeric form of the primary key ("S05043" -> "5043")
// that the journey search endpoint expects.
func (s Station) ShortPrimaryKey() (string, bool) {
	if s.PrimaryKey == "" {
		return "", false
	}
	n, err := strconv.ParseUint(strings.ReplaceAll(s.PrimaryKey, "S", ""), 10, 16)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}

// HasSecondaryKey reports whether the fares API knows this station.
func (s Station) HasSecondaryKey() bool {
	return s.SecondaryKey != ""
}

func (s Station) String() string {
	return s.Name() + " [" + s.ID + "]"
}

func (s Station) clone() Station {
	c := s
	c.Aliases = append([]string(nil), s.Aliases...)
	return c
}
