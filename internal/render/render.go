// Package render formats itineraries, stations and train status for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/danpilch/trenopal/internal/journey"
	"github.com/danpilch/trenopal/internal/live"
	"github.com/danpilch/trenopal/internal/station"
)

const rule = "===============================================================================\n"

// FareFunc returns the fare of a leg, if one is known.
type FareFunc func(leg journey.TripLeg) (float64, bool)

// Itineraries renders journey options in order. fare may be nil.
func Itineraries(its []journey.Itinerary, fare FareFunc) string {
	if len(its) == 0 {
		return color.YellowString("No itineraries found.") + "\n"
	}

	var builder strings.Builder
	for i, it := range its {
		builder.WriteString(rule)
		header := fmt.Sprintf("#%d  %s -> %s  %s  %d change(s)",
			i+1,
			it.Departure().Time.Format("15:04"),
			it.Arrival().Time.Format("15:04"),
			formatDuration(it.Duration()),
			it.Changes())
		if it.Complete() {
			color.New(color.FgGreen, color.Bold).Fprintln(&builder, header)
		} else {
			color.New(color.FgYellow, color.Bold).Fprintln(&builder, header+"  INCOMPLETE")
		}

		builder.WriteString(fmt.Sprintf("%-10s %-6s %-28s %-6s %-28s %s\n", "Train", "Dep", "From", "Arr", "To", "Fare"))
		for _, l := range it.Legs {
			price := "-"
			if fare != nil {
				if p, ok := fare(l); ok {
					price = fmt.Sprintf("€%.2f", p)
				}
			}
			builder.WriteString(fmt.Sprintf("%-10s %-6s %-28s %-6s %-28s %s\n",
				l.Train,
				l.Departure.Time.Format("15:04"), truncate(l.Departure.Station.Name(), 28),
				l.Arrival.Time.Format("15:04"), truncate(l.Arrival.Station.Name(), 28),
				price))
		}
		for _, g := range it.Gaps {
			color.New(color.FgRed).Fprintf(&builder, "  no connection %s -> %s after %s\n",
				g.From.Name(), g.To.Name(), g.NotBefore.Format("15:04"))
		}
	}
	builder.WriteString(rule)
	return builder.String()
}

// Station renders a single registry entry.
func Station(s station.Station) string {
	var builder strings.Builder
	color.New(color.FgCyan, color.Bold).Fprintf(&builder, "%s [%s]\n", s.Name(), s.ID)
	builder.WriteString(fmt.Sprintf("  position  %.4f, %.4f\n", s.Position.Lat, s.Position.Lon))
	if len(s.Aliases) > 1 {
		builder.WriteString(fmt.Sprintf("  aliases   %s\n", strings.Join(s.Aliases[1:], ", ")))
	}
	if s.PrimaryKey != "" {
		builder.WriteString(fmt.Sprintf("  primary   %s\n", s.PrimaryKey))
	}
	if s.SecondaryKey != "" {
		builder.WriteString(fmt.Sprintf("  secondary %s\n", s.SecondaryKey))
	}
	return builder.String()
}

// Suggestions renders the closest names for a query that did not resolve.
func Suggestions(query string, stations []station.Station) string {
	var builder strings.Builder
	builder.WriteString(color.RedString("No station matches %q.", query) + "\n")
	if len(stations) == 0 {
		return builder.String()
	}
	builder.WriteString("Did you mean:\n")
	for _, s := range stations {
		builder.WriteString(fmt.Sprintf("\t‣ %s [%s]\n", s.Name(), s.ID))
	}
	return builder.String()
}

// Status renders the live status of a train.
func Status(st live.Status) string {
	var builder strings.Builder

	builder.WriteString(rule)
	header := fmt.Sprintf("Train %s from %s, now at %s", st.Number, st.Origin, st.Current.Name)
	if st.AtStation {
		header += " (in station)"
	}
	delayColor(st.Delay).Fprintf(&builder, "%s  %s\n", header, formatDelay(st.Delay))

	builder.WriteString(fmt.Sprintf("%-28s %-12s %-12s %s\n", "Station", "Arrival", "Departure", "Platform"))
	builder.WriteString("-------------------------------------------------------------------------------\n")
	for _, stop := range st.Stops {
		row := fmt.Sprintf("%-28s %-12s %-12s %s\n",
			truncate(stop.Name, 28),
			stopTime(stop.ScheduledArrival, stop.ActualArrival),
			stopTime(stop.ScheduledDeparture, stop.ActualDeparture),
			stop.Platform)
		if stop.Name == st.Current.Name {
			color.New(color.BgBlue).Fprint(&builder, row)
		} else {
			builder.WriteString(row)
		}
	}
	builder.WriteString(rule)
	return builder.String()
}

func delayColor(minutes int) *color.Color {
	switch {
	case minutes >= 15:
		return color.New(color.FgRed)
	case minutes > 0:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func formatDelay(minutes int) string {
	switch {
	case minutes > 0:
		return fmt.Sprintf("+%d min", minutes)
	case minutes < 0:
		return fmt.Sprintf("%d min", minutes)
	}
	return "on time"
}

// stopTime prints the scheduled time, followed by the actual one when known.
func stopTime(scheduled, actual time.Time) string {
	switch {
	case scheduled.IsZero() && actual.IsZero():
		return "-"
	case actual.IsZero():
		return scheduled.Format("15:04")
	case scheduled.IsZero():
		return "(" + actual.Format("15:04") + ")"
	}
	return scheduled.Format("15:04") + " (" + actual.Format("15:04") + ")"
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
