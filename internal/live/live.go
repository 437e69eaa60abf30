// Package live reports where a running train is and how late it is.
package live

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/api/viaggiatreno"
	"github.com/danpilch/trenopal/internal/match"
	"github.com/danpilch/trenopal/internal/station"
)

// Stop is one stop of a train's run. Zero times are unknown.
type Stop struct {
	Name               string
	Station            station.Station
	Known              bool // Station was found in the registry
	ScheduledArrival   time.Time
	ScheduledDeparture time.Time
	ActualArrival      time.Time
	ActualDeparture    time.Time
	Platform           string
}

// Status is a snapshot of a train's run.
type Status struct {
	Number    string
	Origin    string
	Current   Stop
	Delay     int // minutes
	AtStation bool
	Stops     []Stop
}

// Tracker looks up live train status on the train-operations API.
type Tracker struct {
	client   *viaggiatreno.Client
	registry *station.Registry
	matcher  *match.Matcher
	location *time.Location
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewTracker(client *viaggiatreno.Client, registry *station.Registry, matcher *match.Matcher, loc *time.Location, logger logrus.FieldLogger) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{
		client:   client,
		registry: registry,
		matcher:  matcher,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Status returns the current status of the train with the given number.
// When several trains share the number, from picks the one whose origin
// best matches it. The bool is false when no run could be identified.
func (t *Tracker) Status(ctx context.Context, number, from string) (Status, bool, error) {
	number = strings.TrimSpace(number)
	matches, err := t.client.AutocompleteTrain(ctx, number)
	if err != nil {
		return Status{}, false, fmt.Errorf("looking up train %s: %w", number, err)
	}

	run, ok := t.pick(matches, from)
	if !ok {
		t.logger.WithFields(logrus.Fields{
			"number":  number,
			"from":    from,
			"matches": len(matches),
		}).Info("train run not identified")
		return Status{}, false, nil
	}

	at := t.now()
	if run.DepartureDate != 0 {
		at = time.UnixMilli(run.DepartureDate)
	}

	progress, err := t.client.TrainProgress(ctx, run.OriginKey, run.Number, at)
	if err != nil {
		return Status{}, false, fmt.Errorf("fetching progress of train %s: %w", number, err)
	}
	if len(progress) == 0 {
		return Status{}, false, nil
	}

	status := t.build(progress)
	status.Number = run.Number
	status.Origin = run.OriginName()

	t.logger.WithFields(logrus.Fields{
		"number":     status.Number,
		"current":    status.Current.Name,
		"delay":      status.Delay,
		"at_station": status.AtStation,
	}).Debug("train status")

	return status, true, nil
}

func (t *Tracker) pick(matches []viaggiatreno.TrainMatch, from string) (viaggiatreno.TrainMatch, bool) {
	switch len(matches) {
	case 0:
		return viaggiatreno.TrainMatch{}, false
	case 1:
		return matches[0], true
	}

	best, bestScore := -1, 0.0
	for i, m := range matches {
		score := t.matcher.Similarity(m.OriginName(), from)
		if score == 1 {
			return m, true
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < t.matcher.Threshold() {
		return viaggiatreno.TrainMatch{}, false
	}
	return matches[best], true
}

func (t *Tracker) build(progress []viaggiatreno.ProgressStop) Status {
	var status Status
	status.Stops = make([]Stop, 0, len(progress))

	for _, p := range progress {
		stop := t.stop(p)
		status.Stops = append(status.Stops, stop)

		if !p.Current {
			continue
		}
		status.Current = stop
		f := p.Stop
		switch {
		case f.ActualDeparture != nil && f.ScheduledDeparture != nil:
			status.Delay = int((*f.ActualDeparture - *f.ScheduledDeparture) / 60000)
		case f.ScheduledDeparture != nil:
			status.Delay = max(0, int((t.now().UnixMilli()-*f.ScheduledDeparture)/60000))
		}
		status.AtStation = f.ActualArrival != nil && f.ActualDeparture == nil
	}

	if status.Current.Name == "" && len(status.Stops) > 0 {
		status.Current = status.Stops[len(status.Stops)-1]
	}
	return status
}

func (t *Tracker) stop(p viaggiatreno.ProgressStop) Stop {
	name := p.Station
	if name == "" {
		name = p.Stop.Station
	}
	s := Stop{
		Name:               name,
		ScheduledArrival:   t.millis(p.Stop.ScheduledArrival),
		ScheduledDeparture: t.millis(p.Stop.ScheduledDeparture),
		ActualArrival:      t.millis(p.Stop.ActualArrival),
		ActualDeparture:    t.millis(p.Stop.ActualDeparture),
		Platform:           p.Stop.Platform(),
	}
	if st, ok := t.registry.LookupFuzzy(name); ok {
		s.Station, s.Known = st, true
	}
	return s
}

func (t *Tracker) millis(ms *int64) time.Time {
	if ms == nil {
		return time.Time{}
	}
	return time.UnixMilli(*ms).In(t.location)
}
