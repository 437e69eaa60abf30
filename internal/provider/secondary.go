package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/api/lefrecce"
	"github.com/danpilch/trenopal/internal/journey"
	"github.com/danpilch/trenopal/internal/station"
)

// Secondary searches journeys on the fares API. Each solution needs a second
// request for its segment breakdown.
type Secondary struct {
	client   *lefrecce.Client
	location *time.Location
	logger   logrus.FieldLogger
}

func NewSecondary(client *lefrecce.Client, loc *time.Location, logger logrus.FieldLogger) *Secondary {
	if loc == nil {
		loc = time.Local
	}
	return &Secondary{client: client, location: loc, logger: logger}
}

// Search returns nothing, without touching the network, when either station
// is unknown to the fares API or both ends are the same station.
func (s *Secondary) Search(ctx context.Context, from, to station.Station, when time.Time) ([]journey.RawItinerary, error) {
	if !from.HasSecondaryKey() || !to.HasSecondaryKey() || from.ID == to.ID {
		s.logger.WithFields(logrus.Fields{
			"from": from.ID,
			"to":   to.ID,
		}).Debug("secondary search skipped")
		return nil, nil
	}

	solutions, err := s.client.Solutions(ctx, from.SecondaryKey, to.SecondaryKey, when.In(s.location))
	if err != nil {
		return nil, fmt.Errorf("fetching solutions: %w", err)
	}

	result := make([]journey.RawItinerary, 0, len(solutions))
	for _, sol := range solutions {
		details, err := s.client.SolutionDetails(ctx, sol.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching solution %s: %w", sol.ID, err)
		}

		var raw journey.RawItinerary
		for _, leg := range details.Legs {
			for _, seg := range leg.Segments {
				if seg.TrainIdentifier == lefrecce.SameTrain {
					continue
				}
				rl, err := s.convert(seg)
				if err != nil {
					return nil, err
				}
				raw = append(raw, rl)
			}
		}
		if len(raw) > 0 {
			result = append(result, raw)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"from":      from.ID,
		"to":        to.ID,
		"solutions": len(result),
	}).Debug("secondary search done")

	return result, nil
}

func (s *Secondary) convert(seg lefrecce.Segment) (journey.RawLeg, error) {
	dep, err := time.Parse(time.RFC3339, seg.DepartureTime)
	if err != nil {
		return journey.RawLeg{}, fmt.Errorf("%w: departure time %q", journey.ErrMalformedResponse, seg.DepartureTime)
	}
	arr, err := time.Parse(time.RFC3339, seg.ArrivalTime)
	if err != nil {
		return journey.RawLeg{}, fmt.Errorf("%w: arrival time %q", journey.ErrMalformedResponse, seg.ArrivalTime)
	}

	var number string
	if fields := strings.Fields(seg.TrainIdentifier); len(fields) > 0 {
		number = fields[len(fields)-1]
	}

	return journey.RawLeg{
		Origin:      seg.DepartureStation,
		Destination: seg.ArrivalStation,
		Departure:   dep.In(s.location),
		Arrival:     arr.In(s.location),
		Category:    deref(seg.TrainAcronym),
		Number:      number,
	}, nil
}
