package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/config"
	"github.com/danpilch/trenopal/internal/journey"
	"github.com/danpilch/trenopal/internal/live"
	"github.com/danpilch/trenopal/internal/station"
)

type Planner interface {
	Plan(ctx context.Context, from, to station.Station, when time.Time) ([]journey.Itinerary, error)
}

type StatusTracker interface {
	Status(ctx context.Context, number, from string) (live.Status, bool, error)
}

type StationResolver interface {
	LookupFuzzy(name string) (station.Station, bool)
}

type Notifier interface {
	SendJourneyPlan(name string, it journey.Itinerary) error
	SendTrainDelay(trainID, from, to string, delayMinutes int, current, platform string) error
	SendTrainOnTime(trainID, from, to, departureTime, platform string) error
	SendTrainArrival(trainID, station, arrivalTime string) error
}

// TrainMonitor plans configured journeys and follows their trains.
type TrainMonitor struct {
	planner  Planner
	tracker  StatusTracker
	stations StationResolver
	notifier Notifier
	location *time.Location
	logger   logrus.FieldLogger
	now      func() time.Time

	mu             sync.Mutex
	planned        map[string]journey.Itinerary
	notifiedDelays map[string]int
}

func NewTrainMonitor(
	planner Planner,
	tracker StatusTracker,
	stations StationResolver,
	notifier Notifier,
	loc *time.Location,
	logger logrus.FieldLogger,
) *TrainMonitor {
	if loc == nil {
		loc = time.Local
	}
	return &TrainMonitor{
		planner:        planner,
		tracker:        tracker,
		stations:       stations,
		notifier:       notifier,
		location:       loc,
		logger:         logger,
		now:            time.Now,
		planned:        make(map[string]journey.Itinerary),
		notifiedDelays: make(map[string]int),
	}
}

func (m *TrainMonitor) ResetNotificationState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planned = make(map[string]journey.Itinerary)
	m.notifiedDelays = make(map[string]int)
}

// PlanJourney plans today's run of j, keeps the itinerary that leaves at
// the configured departure (or the first one after it) and announces it.
func (m *TrainMonitor) PlanJourney(ctx context.Context, j config.JourneyConfig) (journey.Itinerary, error) {
	depTime, err := j.DepartureOn(m.now().In(m.location))
	if err != nil {
		return journey.Itinerary{}, fmt.Errorf("parsing departure time: %w", err)
	}

	from, ok := m.stations.LookupFuzzy(j.From)
	if !ok {
		return journey.Itinerary{}, fmt.Errorf("unknown station %q", j.From)
	}
	to, ok := m.stations.LookupFuzzy(j.To)
	if !ok {
		return journey.Itinerary{}, fmt.Errorf("unknown station %q", j.To)
	}

	m.logger.WithFields(logrus.Fields{
		"journey":   j.Name,
		"from":      from.ID,
		"to":        to.ID,
		"departure": j.Departure,
	}).Info("planning journey")

	its, err := m.planner.Plan(ctx, from, to, depTime)
	if err != nil {
		return journey.Itinerary{}, fmt.Errorf("planning journey: %w", err)
	}

	it, ok := pickItinerary(its, depTime)
	if !ok {
		return journey.Itinerary{}, fmt.Errorf("no itinerary departs at or after %s", depTime.Format("15:04"))
	}

	m.mu.Lock()
	m.planned[j.Name] = it
	m.mu.Unlock()

	if err := m.notifier.SendJourneyPlan(j.Name, it); err != nil {
		return it, fmt.Errorf("sending plan notification: %w", err)
	}
	return it, nil
}

// pickItinerary prefers an exact departure match, then the earliest later one.
func pickItinerary(its []journey.Itinerary, dep time.Time) (journey.Itinerary, bool) {
	var best journey.Itinerary
	found := false
	for _, it := range its {
		if len(it.Legs) == 0 {
			continue
		}
		d := it.Departure().Time
		if d.Equal(dep) {
			return it, true
		}
		if d.After(dep) && (!found || d.Before(best.Departure().Time)) {
			best, found = it, true
		}
	}
	return best, found
}

// itinerary returns the planned itinerary of j, planning it on first use.
func (m *TrainMonitor) itinerary(ctx context.Context, j config.JourneyConfig) (journey.Itinerary, error) {
	m.mu.Lock()
	it, ok := m.planned[j.Name]
	m.mu.Unlock()
	if ok {
		return it, nil
	}
	return m.PlanJourney(ctx, j)
}

// ExpectedArrivalTime returns the scheduled arrival of today's itinerary.
func (m *TrainMonitor) ExpectedArrivalTime(ctx context.Context, j config.JourneyConfig) (time.Time, error) {
	it, err := m.itinerary(ctx, j)
	if err != nil {
		return time.Time{}, err
	}
	return it.Arrival().Time, nil
}

// CheckDelay notifies when the first train of the journey is late, once per
// five-minute bucket.
func (m *TrainMonitor) CheckDelay(ctx context.Context, j config.JourneyConfig) error {
	return m.checkFirstTrain(ctx, j, false)
}

// CheckStatus checks train status and always sends a notification (on time or delayed).
func (m *TrainMonitor) CheckStatus(ctx context.Context, j config.JourneyConfig) error {
	return m.checkFirstTrain(ctx, j, true)
}

func (m *TrainMonitor) checkFirstTrain(ctx context.Context, j config.JourneyConfig, alwaysNotify bool) error {
	it, err := m.itinerary(ctx, j)
	if err != nil {
		return err
	}
	leg := it.Legs[0]
	trainID := leg.Train.String()
	number := fmt.Sprint(leg.Train.Number)
	from, to := leg.Departure.Station.Name(), leg.Arrival.Station.Name()

	m.logger.WithFields(logrus.Fields{
		"journey": j.Name,
		"train":   trainID,
	}).Info("checking train status")

	status, ok, err := m.tracker.Status(ctx, number, from)
	if err != nil {
		return fmt.Errorf("fetching train status: %w", err)
	}
	if !ok {
		m.logger.WithField("train", trainID).Warn("train status not available")
		return nil
	}

	platform := platformAt(status, leg.Departure.Station.ID)

	if status.Delay > 0 {
		if alwaysNotify {
			m.logger.WithFields(logrus.Fields{
				"train":         trainID,
				"delay_minutes": status.Delay,
				"current":       status.Current.Name,
				"platform":      platform,
			}).Warn("train delayed")
			return m.notifier.SendTrainDelay(trainID, from, to, status.Delay, status.Current.Name, platform)
		}
		return m.handleDelay(trainID, from, to, status, platform)
	}

	m.logger.WithFields(logrus.Fields{
		"train":     trainID,
		"scheduled": leg.Departure.Time.Format("15:04"),
		"platform":  platform,
	}).Info("train running on time")

	if alwaysNotify {
		return m.notifier.SendTrainOnTime(trainID, from, to, leg.Departure.Time.Format("15:04"), platform)
	}
	return nil
}

func (m *TrainMonitor) handleDelay(trainID, from, to string, status live.Status, platform string) error {
	delayBucket := status.Delay / 5 * 5

	m.mu.Lock()
	lastBucket := m.notifiedDelays[trainID]
	shouldNotify := delayBucket > lastBucket
	if shouldNotify {
		m.notifiedDelays[trainID] = delayBucket
	}
	m.mu.Unlock()

	if !shouldNotify {
		m.logger.WithFields(logrus.Fields{
			"train":  trainID,
			"delay":  status.Delay,
			"bucket": delayBucket,
		}).Debug("delay already notified for this bucket")
		return nil
	}

	m.logger.WithFields(logrus.Fields{
		"train":         trainID,
		"delay_minutes": status.Delay,
		"current":       status.Current.Name,
		"platform":      platform,
	}).Warn("train delayed")

	return m.notifier.SendTrainDelay(trainID, from, to, status.Delay, status.Current.Name, platform)
}

// CheckArrival reports whether the last train of the journey has reached
// the journey's final station, notifying when it has.
func (m *TrainMonitor) CheckArrival(ctx context.Context, j config.JourneyConfig) (arrived bool, err error) {
	it, err := m.itinerary(ctx, j)
	if err != nil {
		return false, err
	}
	leg := it.Legs[len(it.Legs)-1]
	trainID := leg.Train.String()
	dest := leg.Arrival.Station

	m.logger.WithFields(logrus.Fields{
		"journey": j.Name,
		"train":   trainID,
	}).Info("checking train arrival")

	status, ok, err := m.tracker.Status(ctx, fmt.Sprint(leg.Train.Number), leg.Departure.Station.Name())
	if err != nil {
		return false, fmt.Errorf("fetching train status: %w", err)
	}
	if !ok {
		return false, nil
	}

	for _, stop := range status.Stops {
		if !stop.Known || stop.Station.ID != dest.ID {
			continue
		}
		if stop.ActualArrival.IsZero() {
			break
		}
		arrivalTime := stop.ActualArrival.In(m.location).Format("15:04")

		m.logger.WithFields(logrus.Fields{
			"train":        trainID,
			"station":      dest.ID,
			"arrival_time": arrivalTime,
		}).Info("train arrived")

		if err := m.notifier.SendTrainArrival(trainID, dest.Name(), arrivalTime); err != nil {
			return true, fmt.Errorf("sending arrival notification: %w", err)
		}
		return true, nil
	}

	return false, nil
}

func platformAt(status live.Status, stationID string) string {
	for _, stop := range status.Stops {
		if stop.Known && stop.Station.ID == stationID && stop.Platform != "?" {
			return stop.Platform
		}
	}
	return "TBC"
}
