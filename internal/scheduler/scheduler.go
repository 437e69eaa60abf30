package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/config"
	"github.com/danpilch/trenopal/internal/journey"
)

type TaskType int

const (
	TaskPlan TaskType = iota
	TaskDelayCheck
	TaskStatusUpdate
	TaskArrivalCheck
)

func (t TaskType) String() string {
	switch t {
	case TaskPlan:
		return "plan"
	case TaskDelayCheck:
		return "delay_check"
	case TaskStatusUpdate:
		return "status_update"
	case TaskArrivalCheck:
		return "arrival_check"
	}
	return "unknown"
}

// arrivalGiveUp bounds how long after departure arrival polling continues.
const arrivalGiveUp = 6 * time.Hour

// Monitor is what the scheduler drives for each journey.
type Monitor interface {
	PlanJourney(ctx context.Context, j config.JourneyConfig) (journey.Itinerary, error)
	ExpectedArrivalTime(ctx context.Context, j config.JourneyConfig) (time.Time, error)
	CheckDelay(ctx context.Context, j config.JourneyConfig) error
	CheckStatus(ctx context.Context, j config.JourneyConfig) error
	CheckArrival(ctx context.Context, j config.JourneyConfig) (bool, error)
	ResetNotificationState()
}

type Task struct {
	Type      TaskType
	Journey   int // index into the configured journeys
	Time      time.Time
	Deadline  time.Time
	Executed  bool
	Repeating bool
}

type Scheduler struct {
	journeys []config.JourneyConfig
	monitor  Monitor
	location *time.Location
	logger   logrus.FieldLogger
	now      func() time.Time

	mu         sync.Mutex
	tasks      []Task
	currentDay int
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewScheduler(cfg *config.Config, monitor Monitor, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		journeys: cfg.Journeys,
		monitor:  monitor,
		location: cfg.Location(),
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	s.setupDailyTasks()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped: context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("scheduler stopped: stop signal received")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) clock() time.Time {
	return s.now().In(s.location)
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock()

	if now.Day() != s.currentDay {
		s.logger.Info("day changed, resetting tasks")
		s.monitor.ResetNotificationState()
		s.setupDailyTasks()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		task := &s.tasks[i]
		if task.Executed && !task.Repeating {
			continue
		}

		if s.isWithinWindow(task.Time, now, 2*time.Minute) {
			s.executeTask(ctx, task)
		}
	}
}

func (s *Scheduler) isWithinWindow(taskTime, now time.Time, window time.Duration) bool {
	diff := now.Sub(taskTime)
	return diff >= 0 && diff < window
}

func (s *Scheduler) setupDailyTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.currentDay = now.Day()
	s.tasks = nil

	active := 0
	for i, j := range s.journeys {
		if !j.IsActiveDay(now.Weekday()) {
			continue
		}
		dep, err := j.DepartureOn(now)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"journey": j.Name,
				"error":   err,
			}).Error("failed to parse departure time")
			continue
		}
		active++

		s.tasks = append(s.tasks, Task{Type: TaskPlan, Journey: i, Time: dep.Add(-75 * time.Minute)})

		// Delay checks (only notify on delay)
		for _, before := range []time.Duration{60, 45, 30, 15} {
			s.tasks = append(s.tasks, Task{Type: TaskDelayCheck, Journey: i, Time: dep.Add(-before * time.Minute)})
		}

		// Status updates at 60m and 30m (always notify on-time or delay)
		s.tasks = append(s.tasks,
			Task{Type: TaskStatusUpdate, Journey: i, Time: dep.Add(-60 * time.Minute)},
			Task{Type: TaskStatusUpdate, Journey: i, Time: dep.Add(-30 * time.Minute)},
		)

		// Polled every 5 minutes; moved to the planned arrival once known.
		s.tasks = append(s.tasks, Task{
			Type:      TaskArrivalCheck,
			Journey:   i,
			Time:      dep.Add(10 * time.Minute),
			Deadline:  dep.Add(arrivalGiveUp),
			Repeating: true,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"weekday":         now.Weekday().String(),
		"active_journeys": active,
		"total_tasks":     len(s.tasks),
	}).Info("daily tasks scheduled")
}

func (s *Scheduler) executeTask(ctx context.Context, task *Task) {
	j := s.journeys[task.Journey]

	s.logger.WithFields(logrus.Fields{
		"type":           task.Type,
		"journey":        j.Name,
		"scheduled_time": task.Time.Format("15:04"),
	}).Debug("executing task")

	var err error

	switch task.Type {
	case TaskPlan:
		_, err = s.monitor.PlanJourney(ctx, j)
		if err == nil {
			s.alignArrivalCheck(ctx, task.Journey, j)
		}

	case TaskDelayCheck:
		err = s.monitor.CheckDelay(ctx, j)

	case TaskStatusUpdate:
		err = s.monitor.CheckStatus(ctx, j)

	case TaskArrivalCheck:
		arrived, checkErr := s.monitor.CheckArrival(ctx, j)
		err = checkErr
		next := task.Time.Add(5 * time.Minute)
		if arrived || next.After(task.Deadline) {
			task.Repeating = false
		} else {
			task.Time = next
		}
	}

	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"type":    task.Type,
			"journey": j.Name,
			"error":   err,
		}).Error("task execution failed")
	}

	if !task.Repeating {
		task.Executed = true
	}
}

// alignArrivalCheck moves the journey's arrival polling to start shortly
// before the planned arrival. Callers hold s.mu.
func (s *Scheduler) alignArrivalCheck(ctx context.Context, idx int, j config.JourneyConfig) {
	arrival, err := s.monitor.ExpectedArrivalTime(ctx, j)
	if err != nil {
		s.logger.WithField("error", err).Warn("failed to get arrival time, keeping default arrival check")
		return
	}
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Type == TaskArrivalCheck && t.Journey == idx && !t.Executed {
			t.Time = arrival.Add(-5 * time.Minute)
			s.logger.WithFields(logrus.Fields{
				"journey":      j.Name,
				"arrival":      arrival.Format("15:04"),
				"arrival_poll": t.Time.Format("15:04"),
			}).Info("scheduled arrival check")
		}
	}
}
