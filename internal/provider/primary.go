// Package provider adapts the provider API clients to the journey planner:
// it turns wire types into raw itineraries and exposes the online station
// search and fare lookup.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/api/viaggiatreno"
	"github.com/danpilch/trenopal/internal/journey"
	"github.com/danpilch/trenopal/internal/station"
)

const primaryTimeLayout = "2006-01-02T15:04:05"

// Primary searches journeys on the train-operations API.
type Primary struct {
	client   *viaggiatreno.Client
	location *time.Location
	logger   logrus.FieldLogger
}

// NewPrimary creates the primary adapter. Provider timestamps carry no zone
// and are read in loc.
func NewPrimary(client *viaggiatreno.Client, loc *time.Location, logger logrus.FieldLogger) *Primary {
	if loc == nil {
		loc = time.Local
	}
	return &Primary{client: client, location: loc, logger: logger}
}

// Search returns the provider's candidate itineraries. Stations the provider
// cannot address yield no candidates, so the planner falls back to the
// secondary provider.
func (p *Primary) Search(ctx context.Context, from, to station.Station, when time.Time) ([]journey.RawItinerary, error) {
	fromKey, fromOK := from.ShortPrimaryKey()
	toKey, toOK := to.ShortPrimaryKey()
	if !fromOK || !toOK {
		p.logger.WithFields(logrus.Fields{
			"from": from.ID,
			"to":   to.ID,
		}).Info("station has no primary provider key, skipping primary search")
		return nil, nil
	}

	resp, err := p.client.SearchSolutions(ctx, fromKey, toKey, when.In(p.location))
	if err != nil {
		return nil, fmt.Errorf("fetching solutions: %w", err)
	}
	if resp.Error != nil && strings.TrimSpace(*resp.Error) != "" {
		p.logger.WithFields(logrus.Fields{
			"from":  from.ID,
			"to":    to.ID,
			"error": *resp.Error,
		}).Warn("primary provider returned an error message")
		return nil, nil
	}

	result := make([]journey.RawItinerary, 0, len(resp.Solutions))
	for _, sol := range resp.Solutions {
		if len(sol.Vehicles) == 0 {
			continue
		}
		raw := make(journey.RawItinerary, 0, len(sol.Vehicles))
		for _, v := range sol.Vehicles {
			leg, err := p.convert(v)
			if err != nil {
				return nil, err
			}
			raw = append(raw, leg)
		}
		result = append(result, raw)
	}

	p.logger.WithFields(logrus.Fields{
		"from":      from.ID,
		"to":        to.ID,
		"solutions": len(result),
	}).Debug("primary search done")

	return result, nil
}

func (p *Primary) convert(v viaggiatreno.Vehicle) (journey.RawLeg, error) {
	dep, err := time.ParseInLocation(primaryTimeLayout, v.DepartureTime, p.location)
	if err != nil {
		return journey.RawLeg{}, fmt.Errorf("%w: departure time %q", journey.ErrMalformedResponse, v.DepartureTime)
	}
	arr, err := time.ParseInLocation(primaryTimeLayout, v.ArrivalTime, p.location)
	if err != nil {
		return journey.RawLeg{}, fmt.Errorf("%w: arrival time %q", journey.ErrMalformedResponse, v.ArrivalTime)
	}

	return journey.RawLeg{
		Origin:      deref(v.Origin),
		Destination: deref(v.Destination),
		Departure:   dep,
		Arrival:     arr,
		Category:    v.CategoryDescription,
		Number:      strings.TrimSpace(v.TrainNumber),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
