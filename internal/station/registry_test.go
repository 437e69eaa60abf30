package station

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/match"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	records, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	reg, err := NewBuilder(testLogger()).Add(records...).Build(match.New(match.DefaultThreshold))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return reg
}

func TestLoadDir(t *testing.T) {
	records, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(records) != 9 {
		t.Fatalf("expected 9 records, got %d", len(records))
	}

	boc := records[0]
	if boc.ID != "BOC" || boc.RegionID != 5 {
		t.Errorf("unexpected first record: %+v", boc)
	}
	wantAliases := []string{"Bologna Centrale", "BOLOGNA CENTRALE", "Bologna C.le"}
	if strings.Join(boc.Aliases, "|") != strings.Join(wantAliases, "|") {
		t.Errorf("aliases = %v, want %v", boc.Aliases, wantAliases)
	}
	if boc.PrimaryKey != "S05043" || boc.SecondaryKey != "Bologna Centrale" {
		t.Errorf("provider keys = %q/%q", boc.PrimaryKey, boc.SecondaryKey)
	}
	if boc.Position.Lat != 44.5055 || boc.Position.Lon != 11.3430 {
		t.Errorf("position = %+v", boc.Position)
	}

	for _, r := range records {
		if r.ID == "CNT" && r.SecondaryKey != "" {
			t.Errorf("CNT should have no secondary key, got %q", r.SecondaryKey)
		}
	}
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing stations file", func(t *testing.T) {
		if _, err := LoadDir(t.TempDir()); err == nil {
			t.Error("expected error for missing stations file")
		}
	})

	t.Run("bad latitude", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, StationsFile, "Imola\tIMO\t5\tnorth\t11.7\n")
		_, err := LoadDir(dir)
		if err == nil || !strings.Contains(err.Error(), "stations.tsv:1") {
			t.Errorf("expected positioned latitude error, got %v", err)
		}
	})

	t.Run("too few fields", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, StationsFile, "Imola\tIMO\t5\t44.3\t11.7\nFaenza\tFAE\n")
		if _, err := LoadDir(dir); err == nil {
			t.Error("expected error for short row")
		}
	})

	t.Run("optional files absent", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, StationsFile, "Imola\tIMO\t5\t44.3\t11.7\n")
		records, err := LoadDir(dir)
		if err != nil {
			t.Fatalf("LoadDir: %v", err)
		}
		if len(records) != 1 || records[0].PrimaryKey != "" || len(records[0].Aliases) != 1 {
			t.Errorf("unexpected records: %+v", records)
		}
	})
}

func TestBuildValidation(t *testing.T) {
	m := match.New(match.DefaultThreshold)

	tests := []struct {
		name    string
		records []Record
	}{
		{name: "empty", records: nil},
		{name: "missing id", records: []Record{{Aliases: []string{"Imola"}}}},
		{name: "no aliases", records: []Record{{ID: "IMO", Aliases: []string{"  "}}}},
		{name: "duplicate id", records: []Record{
			{ID: "IMO", Aliases: []string{"Imola"}},
			{ID: "IMO", Aliases: []string{"Imola 2"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBuilder(nil).Add(tt.records...).Build(m); err == nil {
				t.Error("expected build error")
			}
		})
	}
}

func TestLookupExactEveryAliasAndKey(t *testing.T) {
	reg := loadTestRegistry(t)

	for _, s := range reg.Stations() {
		keys := append([]string{}, s.Aliases...)
		if s.PrimaryKey != "" {
			keys = append(keys, s.PrimaryKey)
		}
		if s.SecondaryKey != "" {
			keys = append(keys, s.SecondaryKey)
		}
		for _, k := range keys {
			for _, variant := range []string{k, strings.ToLower(k), strings.ToUpper(k)} {
				got, ok := reg.LookupExact(variant)
				if !ok || got.ID != s.ID {
					t.Errorf("LookupExact(%q) = %v, %v; want %s", variant, got.ID, ok, s.ID)
				}
			}
		}
		for _, alias := range s.Aliases {
			got, ok := reg.LookupFuzzy(alias)
			if !ok || got.ID != s.ID {
				t.Errorf("LookupFuzzy(%q) = %v, %v; want %s", alias, got.ID, ok, s.ID)
			}
		}
	}
}

func TestLookupFuzzy(t *testing.T) {
	reg := loadTestRegistry(t)

	tests := []struct {
		name   string
		input  string
		wantID string
		found  bool
	}{
		{name: "typo", input: "Bologna Centrall", wantID: "BOC", found: true},
		{name: "truncated", input: "Faenz", wantID: "FAE", found: true},
		{name: "accent", input: "forli", wantID: "FOR", found: true},
		{name: "unknown", input: "Venezia Santa Lucia", found: false},
		{name: "empty", input: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := reg.LookupFuzzy(tt.input)
			if ok != tt.found {
				t.Fatalf("LookupFuzzy(%q) found = %v, want %v", tt.input, ok, tt.found)
			}
			if ok && got.ID != tt.wantID {
				t.Errorf("LookupFuzzy(%q) = %s, want %s", tt.input, got.ID, tt.wantID)
			}
		})
	}
}

func TestLookupFuzzyKeepsFirstBest(t *testing.T) {
	reg, err := NewBuilder(nil).Add(
		Record{ID: "AAA", Aliases: []string{"Stazione Uno"}},
		Record{ID: "BBB", Aliases: []string{"Stazione Uno"}},
	).Build(match.New(match.DefaultThreshold))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, ok := reg.LookupFuzzy("Stazione Unx")
	if !ok || got.ID != "AAA" {
		t.Errorf("LookupFuzzy tie = %s, %v; want AAA", got.ID, ok)
	}
	got, ok = reg.LookupExact("stazione uno")
	if !ok || got.ID != "AAA" {
		t.Errorf("LookupExact on colliding alias = %s, %v; want AAA", got.ID, ok)
	}
}

func TestNearest(t *testing.T) {
	reg := loadTestRegistry(t)

	tests := []struct {
		name   string
		point  Point
		wantID string
	}{
		{name: "imola", point: Point{Lat: 44.3533, Lon: 11.7141}, wantID: "IMO"},
		{name: "near cesena", point: Point{Lat: 44.133333, Lon: 12.233333}, wantID: "CES"},
		{name: "far north", point: Point{Lat: 46.45, Lon: 12.38}, wantID: "RAV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.Nearest(tt.point); got.ID != tt.wantID {
				t.Errorf("Nearest(%+v) = %s, want %s", tt.point, got.ID, tt.wantID)
			}
		})
	}
}

func TestNearestTieKeepsFirst(t *testing.T) {
	reg, err := NewBuilder(nil).Add(
		Record{ID: "WST", Aliases: []string{"West"}, Position: Point{Lat: 0, Lon: -1}},
		Record{ID: "EST", Aliases: []string{"East"}, Position: Point{Lat: 0, Lon: 1}},
	).Build(match.New(match.DefaultThreshold))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := reg.Nearest(Point{}); got.ID != "WST" {
		t.Errorf("Nearest tie = %s, want WST", got.ID)
	}
}

func TestShortPrimaryKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{key: "S05043", want: "5043", ok: true},
		{key: "S00001", want: "1", ok: true},
		{key: "", ok: false},
		{key: "SXYZ", ok: false},
	}

	for _, tt := range tests {
		got, ok := Station{PrimaryKey: tt.key}.ShortPrimaryKey()
		if ok != tt.ok || got != tt.want {
			t.Errorf("ShortPrimaryKey(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSuggest(t *testing.T) {
	reg := loadTestRegistry(t)

	got := reg.Suggest("Cesen", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].ID != "CES" || got[1].ID != "CNT" {
		t.Errorf("suggestions = %s, %s; want CES, CNT", got[0].ID, got[1].ID)
	}
}

func TestSuggestFoldsAccents(t *testing.T) {
	reg := loadTestRegistry(t)

	if _, ok := reg.LookupFuzzy("FORLI'"); !ok {
		t.Fatal("FORLI' is a registered alias")
	}
	got := reg.Suggest("forli", 1)
	if len(got) != 1 || got[0].ID != "FOR" {
		t.Errorf("Suggest(forli) = %v, want FOR", got)
	}
}

func TestByID(t *testing.T) {
	reg := loadTestRegistry(t)
	if s, ok := reg.ByID("RIM"); !ok || s.Name() != "Rimini" {
		t.Errorf("ByID(RIM) = %v, %v", s, ok)
	}
	if _, ok := reg.ByID("XXX"); ok {
		t.Error("ByID(XXX) should not be found")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
