package render

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/danpilch/trenopal/internal/journey"
	"github.com/danpilch/trenopal/internal/live"
	"github.com/danpilch/trenopal/internal/station"
	"github.com/danpilch/trenopal/internal/train"
)

func init() {
	color.NoColor = true
}

var (
	cet = time.FixedZone("CET", 3600)
	boc = station.Station{ID: "BOC", Aliases: []string{"Bologna Centrale", "Bologna C.le"}, PrimaryKey: "S05043", Position: station.Point{Lat: 44.5055, Lon: 11.343}}
	fae = station.Station{ID: "FAE", Aliases: []string{"Faenza"}}
	ces = station.Station{ID: "CES", Aliases: []string{"Cesena"}}
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 1, h, m, 0, 0, cet)
}

func TestItineraries(t *testing.T) {
	its := []journey.Itinerary{
		{Legs: []journey.TripLeg{{
			Departure: journey.Stop{Station: boc, Time: at(8, 10)},
			Arrival:   journey.Stop{Station: ces, Time: at(9, 12)},
			Train:     train.Identity{Category: train.Regional, Number: 6514},
		}}},
		{
			Legs: []journey.TripLeg{{
				Departure: journey.Stop{Station: boc, Time: at(8, 30)},
				Arrival:   journey.Stop{Station: fae, Time: at(9, 0)},
				Train:     train.Identity{Category: train.RegionalFast, Number: 2101},
			}},
			Gaps: []journey.Gap{{From: fae, To: ces, NotBefore: at(9, 0)}},
		},
	}
	fare := func(l journey.TripLeg) (float64, bool) {
		if l.Train.Number == 6514 {
			return 7.9, true
		}
		return 0, false
	}

	out := Itineraries(its, fare)

	wants := []string{
		"#1  08:10 -> 09:12  1h02m  0 change(s)",
		"#2  08:30 -> 09:00  0h30m  0 change(s)  INCOMPLETE",
		"R6514",
		"€7.90",
		"no connection Faenza -> Cesena after 09:00",
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestItinerariesEmpty(t *testing.T) {
	if out := Itineraries(nil, nil); !strings.Contains(out, "No itineraries found") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestStation(t *testing.T) {
	out := Station(boc)
	for _, want := range []string{"Bologna Centrale [BOC]", "44.5055, 11.3430", "aliases   Bologna C.le", "primary   S05043"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secondary") {
		t.Errorf("station without secondary key rendered one:\n%s", out)
	}
}

func TestSuggestions(t *testing.T) {
	out := Suggestions("Cesen", []station.Station{ces})
	if !strings.Contains(out, `No station matches "Cesen"`) || !strings.Contains(out, "Cesena [CES]") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestStatus(t *testing.T) {
	st := live.Status{
		Number:    "2216",
		Origin:    "BOLOGNA CENTRALE",
		Current:   live.Stop{Name: "FAENZA"},
		Delay:     4,
		AtStation: true,
		Stops: []live.Stop{
			{Name: "BOLOGNA CENTRALE", ScheduledDeparture: at(8, 0), ActualDeparture: at(8, 2), Platform: "6"},
			{Name: "FAENZA", ScheduledArrival: at(8, 35), ActualArrival: at(8, 39), Platform: "?"},
			{Name: "CESENA", ScheduledArrival: at(9, 5), Platform: "?"},
		},
	}

	out := Status(st)
	for _, want := range []string{"Train 2216 from BOLOGNA CENTRALE, now at FAENZA (in station)  +4 min", "08:00 (08:02)", "08:35 (08:39)", "09:05"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestFormatDelay(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "on time"},
		{7, "+7 min"},
		{-2, "-2 min"},
	}
	for _, tt := range tests {
		if got := formatDelay(tt.minutes); got != tt.want {
			t.Errorf("formatDelay(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
