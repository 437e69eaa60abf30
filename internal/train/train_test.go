package train

import (
	"testing"

	"github.com/danpilch/trenopal/internal/report"
)

func TestClassifyKnownCodes(t *testing.T) {
	tests := []struct {
		code     string
		expected Category
	}{
		{"RV", RegionalFast},
		{"Regionale", Regional},
		{"REG", Regional},
		{"Frecciarossa", FrecciaRossa},
		{"FR", FrecciaRossa},
		{"Frecciaargento", FrecciaArgento},
		{"FA", FrecciaArgento},
		{"Frecciabianca", FrecciaBianca},
		{"FB", FrecciaBianca},
		{"IC", InterCity},
		{"ICN", InterCityNight},
		{"EN", EuroNight},
		{"EC", EuroCity},
		{"ECB", EuroCity},
		{"Autobus", Bus},
		{"BUS", Bus},
	}

	rec := &report.Recorder{}
	c := NewClassifier(rec)
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				got := c.Classify(tt.code, 2216)
				if got.Category != tt.expected || got.Number != 2216 || got.Raw != "" {
					t.Errorf("Classify(%q) = %+v, want category %d", tt.code, got, tt.expected)
				}
			}
		})
	}
	if got := rec.Categories(); len(got) != 0 {
		t.Errorf("known codes should not be reported, got %v", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	rec := &report.Recorder{}
	c := NewClassifier(rec)

	for _, code := range []string{"regionale", "Italo", ""} {
		got := c.Classify(code, 42)
		if got.Category != Unknown || got.Number != 42 || got.Raw != code {
			t.Errorf("Classify(%q) = %+v, want unknown carrying raw text", code, got)
		}
	}

	reported := rec.Categories()
	if len(reported) != 3 || reported[0] != "regionale" || reported[1] != "Italo" {
		t.Errorf("reported categories = %v", reported)
	}
}

func TestIdentityString(t *testing.T) {
	tests := []struct {
		id       Identity
		expected string
	}{
		{Identity{Category: Regional, Number: 6514}, "R6514"},
		{Identity{Category: RegionalFast, Number: 2216}, "RV2216"},
		{Identity{Category: FrecciaRossa, Number: 9517}, "ES*FR9517"},
		{Identity{Category: Bus, Number: 3}, "BUS3"},
		{Identity{Category: Unknown, Number: 7, Raw: "Italo"}, "?7"},
	}

	for _, tt := range tests {
		if got := tt.id.String(); got != tt.expected {
			t.Errorf("%+v.String() = %q, want %q", tt.id, got, tt.expected)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected uint32
	}{
		{"2216", 2216},
		{" 9517 ", 9517},
		{"", 0},
		{"9517A", 95170},
		{"R-12", 12},
		{"99999999999", 0},
	}

	for _, tt := range tests {
		if got := ParseNumber(tt.input); got != tt.expected {
			t.Errorf("ParseNumber(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}
