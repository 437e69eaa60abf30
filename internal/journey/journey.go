// Package journey builds itineraries from the train-operations provider and
// closes the gaps in them with the fares provider.
package journey

import (
	"context"
	"errors"
	"time"

	"github.com/danpilch/trenopal/internal/station"
	"github.com/danpilch/trenopal/internal/train"
)

var (
	// ErrInconsistent marks provider data that cannot be reconciled with the
	// station registry. It invalidates a single candidate itinerary.
	ErrInconsistent = errors.New("inconsistent provider data")

	// ErrMalformedResponse marks a provider response that does not follow the
	// expected schema. It fails the whole request.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// RawLeg is a leg as reported by a provider, before its station names are
// reconciled with the registry. Missing names are empty strings.
type RawLeg struct {
	Origin      string
	Destination string
	Departure   time.Time
	Arrival     time.Time
	Category    string
	Number      string
}

// RawItinerary is an ordered list of provider legs.
type RawItinerary []RawLeg

// Searcher is a journey-search provider.
type Searcher interface {
	Search(ctx context.Context, from, to station.Station, when time.Time) ([]RawItinerary, error)
}

// Stop is a station at a point in time.
type Stop struct {
	Station station.Station `json:"station"`
	Time    time.Time       `json:"time"`
}

// TripLeg is one vehicle movement between two different stations.
type TripLeg struct {
	Departure Stop           `json:"departure"`
	Arrival   Stop           `json:"arrival"`
	Train     train.Identity `json:"train"`
}

func (l TripLeg) Duration() time.Duration {
	return l.Arrival.Time.Sub(l.Departure.Time)
}

// Gap is a discontinuity that no filler itinerary could close. A zero
// NotAfter means the gap is open-ended.
type Gap struct {
	From      station.Station `json:"from"`
	To        station.Station `json:"to"`
	NotBefore time.Time       `json:"not_before"`
	NotAfter  time.Time       `json:"not_after,omitempty"`
}

// Itinerary is one complete journey option.
type Itinerary struct {
	Legs []TripLeg `json:"legs"`
	Gaps []Gap     `json:"gaps,omitempty"`
}

// Complete reports whether every joint of the itinerary is continuous.
func (it Itinerary) Complete() bool {
	return len(it.Gaps) == 0
}

func (it Itinerary) Departure() Stop {
	return it.Legs[0].Departure
}

func (it Itinerary) Arrival() Stop {
	return it.Legs[len(it.Legs)-1].Arrival
}

// Duration is the time from the first departure to the last arrival.
func (it Itinerary) Duration() time.Duration {
	return it.Arrival().Time.Sub(it.Departure().Time)
}

// Changes is the number of vehicle changes.
func (it Itinerary) Changes() int {
	return len(it.Legs) - 1
}
