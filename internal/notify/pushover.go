package notify

import (
	"fmt"
	"strings"

	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/journey"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

type Notifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    logrus.FieldLogger
}

func NewNotifier(token, userKey string, logger logrus.FieldLogger) *Notifier {
	return &Notifier{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		logger:    logger,
	}
}

// NewLogNotifier returns a notifier that only writes messages to the log.
func NewLogNotifier(logger logrus.FieldLogger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) Send(title, message string) error {
	return n.SendWithPriority(title, message, PriorityNormal)
}

func (n *Notifier) SendWithPriority(title, message string, priority int) error {
	if n.app == nil {
		n.logger.WithFields(logrus.Fields{
			"title":    title,
			"message":  message,
			"priority": priority,
		}).Info("notification")
		return nil
	}

	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	resp, err := n.app.SendMessage(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"title":      title,
		"status":     resp.Status,
		"request_id": resp.ID,
	}).Debug("notification sent")

	return nil
}

// SendJourneyPlan announces the itinerary chosen for a configured journey.
// Itineraries with unfilled gaps go out with high priority.
func (n *Notifier) SendJourneyPlan(name string, it journey.Itinerary) error {
	var b strings.Builder
	for _, l := range it.Legs {
		fmt.Fprintf(&b, "%s %s %s -> %s %s\n",
			l.Train, l.Departure.Time.Format("15:04"), l.Departure.Station.Name(),
			l.Arrival.Time.Format("15:04"), l.Arrival.Station.Name())
	}
	for _, g := range it.Gaps {
		fmt.Fprintf(&b, "No connection found from %s to %s after %s\n",
			g.From.Name(), g.To.Name(), g.NotBefore.Format("15:04"))
	}

	priority := PriorityNormal
	if !it.Complete() {
		priority = PriorityHigh
	}
	title := fmt.Sprintf("Journey %s: %d change(s), %s", name, it.Changes(), formatDuration(it))
	return n.SendWithPriority(title, strings.TrimRight(b.String(), "\n"), priority)
}

func (n *Notifier) SendTrainDelay(trainID, from, to string, delayMinutes int, current, platform string) error {
	title := "Train Delay Alert"
	body := fmt.Sprintf("Train %s from %s to %s is delayed by %d minutes.\nLast seen: %s, Platform: %s",
		trainID, from, to, delayMinutes, current, platform)
	return n.SendWithPriority(title, body, PriorityHigh)
}

func (n *Notifier) SendTrainOnTime(trainID, from, to, departureTime, platform string) error {
	title := "Train Status"
	body := fmt.Sprintf("Train %s from %s to %s is running on time.\nDeparture: %s, Platform: %s",
		trainID, from, to, departureTime, platform)
	return n.Send(title, body)
}

func (n *Notifier) SendTrainArrival(trainID, station, arrivalTime string) error {
	title := "Train Arrival"
	body := fmt.Sprintf("Train %s has arrived at %s at %s", trainID, station, arrivalTime)
	return n.Send(title, body)
}

func formatDuration(it journey.Itinerary) string {
	d := it.Duration()
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
