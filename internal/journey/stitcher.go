package journey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/match"
	"github.com/danpilch/trenopal/internal/report"
	"github.com/danpilch/trenopal/internal/station"
	"github.com/danpilch/trenopal/internal/train"
)

// Stitcher plans journeys with the primary provider and fills the holes in
// its itineraries with the secondary provider.
type Stitcher struct {
	primary    Searcher
	secondary  Searcher
	registry   *station.Registry
	matcher    *match.Matcher
	classifier *train.Classifier
	reporter   report.Reporter
	logger     logrus.FieldLogger
}

func NewStitcher(
	primary, secondary Searcher,
	registry *station.Registry,
	matcher *match.Matcher,
	classifier *train.Classifier,
	reporter report.Reporter,
	logger logrus.FieldLogger,
) *Stitcher {
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Stitcher{
		primary:    primary,
		secondary:  secondary,
		registry:   registry,
		matcher:    matcher,
		classifier: classifier,
		reporter:   reporter,
		logger:     logger,
	}
}

// Plan returns the itineraries from origin to destination departing at or
// after when. Candidates with station names the registry cannot resolve are
// dropped; provider failures and malformed responses fail the whole request.
func (s *Stitcher) Plan(ctx context.Context, origin, destination station.Station, when time.Time) ([]Itinerary, error) {
	log := s.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"from":       origin.ID,
		"to":         destination.ID,
		"when":       when.Format(time.RFC3339),
	})

	candidates, err := s.primary.Search(ctx, origin, destination, when)
	if err != nil {
		return nil, fmt.Errorf("searching primary provider: %w", err)
	}

	if len(candidates) == 0 {
		log.Info("no primary candidates, asking secondary provider")
		return s.secondaryOnly(ctx, log, origin, destination, when)
	}

	var result []Itinerary
	for i, raw := range candidates {
		if len(raw) == 0 {
			continue
		}
		it, err := s.stitch(ctx, log, origin, destination, when, raw)
		if errors.Is(err, ErrInconsistent) {
			log.WithFields(logrus.Fields{
				"candidate": i,
				"error":     err,
			}).Warn("dropping candidate itinerary")
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}

	log.WithFields(logrus.Fields{
		"candidates":  len(candidates),
		"itineraries": len(result),
	}).Info("journey planned")

	return result, nil
}

func (s *Stitcher) secondaryOnly(ctx context.Context, log logrus.FieldLogger, origin, destination station.Station, when time.Time) ([]Itinerary, error) {
	raws, err := s.secondary.Search(ctx, origin, destination, when)
	if err != nil {
		return nil, fmt.Errorf("searching secondary provider: %w", err)
	}

	var result []Itinerary
	for i, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		legs, err := s.convert(raw)
		if err == nil {
			var it Itinerary
			it, err = s.assemble(legs, nil)
			if err == nil {
				result = append(result, it)
				continue
			}
		}
		if !errors.Is(err, ErrInconsistent) {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"candidate": i,
			"error":     err,
		}).Warn("dropping secondary itinerary")
	}
	return result, nil
}

// stitch turns one primary candidate into an itinerary: leading edge,
// provider legs with their internal joints, trailing edge.
func (s *Stitcher) stitch(ctx context.Context, log logrus.FieldLogger, origin, destination station.Station, when time.Time, raw RawItinerary) (Itinerary, error) {
	first, last := raw[0], raw[len(raw)-1]

	var legs []TripLeg
	var gaps []Gap

	if score := s.matcher.Similarity(first.Origin, origin.Name()); score < s.matcher.Threshold() {
		log.WithFields(logrus.Fields{
			"expected": origin.Name(),
			"found":    first.Origin,
			"score":    score,
		}).Debug("itinerary starts elsewhere")

		start, err := s.resolve(first.Origin)
		if err != nil {
			return Itinerary{}, err
		}
		if start.ID != origin.ID {
			filler, err := s.fill(ctx, log, origin, start, when, when, first.Departure)
			if err != nil {
				return Itinerary{}, err
			}
			if filler == nil {
				gaps = append(gaps, Gap{From: origin, To: start, NotBefore: when, NotAfter: first.Departure})
			}
			legs = append(legs, filler...)
		}
	}

	body, bodyGaps, err := s.splice(ctx, log, raw)
	if err != nil {
		return Itinerary{}, err
	}
	legs = append(legs, body...)
	gaps = append(gaps, bodyGaps...)

	if score := s.matcher.Similarity(last.Destination, destination.Name()); score < s.matcher.Threshold() {
		log.WithFields(logrus.Fields{
			"expected": destination.Name(),
			"found":    last.Destination,
			"score":    score,
		}).Debug("itinerary ends elsewhere")

		end, err := s.resolve(last.Destination)
		if err != nil {
			return Itinerary{}, err
		}
		if end.ID != destination.ID {
			filler, err := s.fill(ctx, log, end, destination, last.Arrival, last.Arrival, time.Time{})
			if err != nil {
				return Itinerary{}, err
			}
			if filler == nil {
				gaps = append(gaps, Gap{From: end, To: destination, NotBefore: last.Arrival})
			}
			legs = append(legs, filler...)
		}
	}

	return s.assemble(legs, gaps)
}

// splice converts the provider legs left to right, inserting a filler
// wherever a leg does not start where the previous one arrived.
func (s *Stitcher) splice(ctx context.Context, log logrus.FieldLogger, raw RawItinerary) ([]TripLeg, []Gap, error) {
	var (
		out     []TripLeg
		gaps    []Gap
		prev    TripLeg
		hasPrev bool
	)

	for _, r := range raw {
		leg, err := s.convertLeg(r)
		if err != nil {
			return nil, nil, err
		}

		if hasPrev && prev.Arrival.Station.ID != leg.Departure.Station.ID {
			from, to := prev.Arrival, leg.Departure
			filler, err := s.fill(ctx, log, from.Station, to.Station, from.Time, from.Time, to.Time)
			if err != nil {
				return nil, nil, err
			}
			if filler == nil {
				gaps = append(gaps, Gap{From: from.Station, To: to.Station, NotBefore: from.Time, NotAfter: to.Time})
			}
			out = append(out, filler...)
		}

		out = append(out, leg)
		prev, hasPrev = leg, true
	}

	return out, gaps, nil
}

// fill asks the secondary provider for a journey between two stations and
// returns the legs of the first one within [notBefore, notAfter]. A zero
// notAfter leaves the window open. Nil legs mean no filler qualified. A
// qualifying filler that names an unknown station fails the candidate.
func (s *Stitcher) fill(ctx context.Context, log logrus.FieldLogger, from, to station.Station, at, notBefore, notAfter time.Time) ([]TripLeg, error) {
	raws, err := s.secondary.Search(ctx, from, to, at)
	if err != nil {
		return nil, fmt.Errorf("filling gap %s -> %s: %w", from.ID, to.ID, err)
	}

	for _, raw := range raws {
		if len(raw) == 0 {
			continue
		}
		if raw[0].Departure.Before(notBefore) {
			continue
		}
		if !notAfter.IsZero() && raw[len(raw)-1].Arrival.After(notAfter) {
			continue
		}
		legs, err := s.convert(raw)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"gap_from": from.ID,
			"gap_to":   to.ID,
			"legs":     len(legs),
		}).Debug("gap filled")
		return legs, nil
	}

	log.WithFields(logrus.Fields{
		"gap_from":   from.ID,
		"gap_to":     to.ID,
		"candidates": len(raws),
	}).Warn("no filler itinerary fits the gap")
	return nil, nil
}

func (s *Stitcher) convert(raw RawItinerary) ([]TripLeg, error) {
	legs := make([]TripLeg, 0, len(raw))
	for _, r := range raw {
		leg, err := s.convertLeg(r)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

func (s *Stitcher) convertLeg(r RawLeg) (TripLeg, error) {
	from, err := s.resolve(r.Origin)
	if err != nil {
		return TripLeg{}, err
	}
	to, err := s.resolve(r.Destination)
	if err != nil {
		return TripLeg{}, err
	}
	if from.ID == to.ID {
		return TripLeg{}, fmt.Errorf("%w: leg %s starts and ends at %s", ErrInconsistent, r.Number, from.ID)
	}
	if !r.Arrival.After(r.Departure) {
		return TripLeg{}, fmt.Errorf("%w: leg %s arrives at %s before departing at %s",
			ErrInconsistent, r.Number, r.Arrival.Format(time.RFC3339), r.Departure.Format(time.RFC3339))
	}

	return TripLeg{
		Departure: Stop{Station: from, Time: r.Departure},
		Arrival:   Stop{Station: to, Time: r.Arrival},
		Train:     s.classifier.Classify(r.Category, train.ParseNumber(r.Number)),
	}, nil
}

// resolve maps a provider station name onto the registry, reporting names
// that cannot be matched at all.
func (s *Stitcher) resolve(name string) (station.Station, error) {
	if st, ok := s.registry.LookupFuzzy(name); ok {
		return st, nil
	}
	s.reporter.UnresolvedStation(name)
	return station.Station{}, fmt.Errorf("%w: station %q is not in the registry", ErrInconsistent, name)
}

// assemble checks the joints of the final leg sequence. Joints that go back
// in time invalidate the itinerary; station changes not already recorded
// become gaps.
func (s *Stitcher) assemble(legs []TripLeg, gaps []Gap) (Itinerary, error) {
	if len(legs) == 0 {
		return Itinerary{}, fmt.Errorf("%w: itinerary has no legs", ErrInconsistent)
	}

	for i := 0; i+1 < len(legs); i++ {
		a, b := legs[i].Arrival, legs[i+1].Departure
		if a.Time.After(b.Time) {
			return Itinerary{}, fmt.Errorf("%w: leg %d arrives at %s after leg %d departs at %s",
				ErrInconsistent, i, a.Time.Format(time.RFC3339), i+1, b.Time.Format(time.RFC3339))
		}
		if a.Station.ID != b.Station.ID && !hasGap(gaps, a.Station.ID, b.Station.ID) {
			gaps = append(gaps, Gap{From: a.Station, To: b.Station, NotBefore: a.Time, NotAfter: b.Time})
		}
	}

	return Itinerary{Legs: legs, Gaps: gaps}, nil
}

func hasGap(gaps []Gap, from, to string) bool {
	for _, g := range gaps {
		if g.From.ID == from && g.To.ID == to {
			return true
		}
	}
	return false
}
