package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/danpilch/trenopal/internal/api/lefrecce"
	"github.com/danpilch/trenopal/internal/journey"
)

// Fares looks up ticket prices on the fares API.
type Fares struct {
	client   *lefrecce.Client
	location *time.Location
}

func NewFares(client *lefrecce.Client, loc *time.Location) *Fares {
	if loc == nil {
		loc = time.Local
	}
	return &Fares{client: client, location: loc}
}

// Lookup returns the cheapest fare of the solution that departs and arrives
// exactly when the leg does. Legs between stations the fares API does not
// know have no fare.
func (f *Fares) Lookup(ctx context.Context, leg journey.TripLeg) (float64, bool, error) {
	from, to := leg.Departure.Station, leg.Arrival.Station
	if !from.HasSecondaryKey() || !to.HasSecondaryKey() {
		return 0, false, nil
	}

	solutions, err := f.client.Solutions(ctx, from.SecondaryKey, to.SecondaryKey, leg.Departure.Time.In(f.location))
	if err != nil {
		return 0, false, fmt.Errorf("fetching fares: %w", err)
	}

	for _, sol := range solutions {
		dep := time.UnixMilli(sol.DepartureTime)
		arr := time.UnixMilli(sol.ArrivalTime)
		if dep.Equal(leg.Departure.Time) && arr.Equal(leg.Arrival.Time) {
			if sol.MinPrice == nil {
				return 0, false, nil
			}
			return *sol.MinPrice, true, nil
		}
	}
	return 0, false, nil
}
