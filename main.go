package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/manifoldco/promptui"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/api/lefrecce"
	"github.com/danpilch/trenopal/internal/api/viaggiatreno"
	"github.com/danpilch/trenopal/internal/config"
	"github.com/danpilch/trenopal/internal/journey"
	"github.com/danpilch/trenopal/internal/live"
	"github.com/danpilch/trenopal/internal/match"
	"github.com/danpilch/trenopal/internal/monitor"
	"github.com/danpilch/trenopal/internal/notify"
	"github.com/danpilch/trenopal/internal/provider"
	"github.com/danpilch/trenopal/internal/render"
	"github.com/danpilch/trenopal/internal/report"
	"github.com/danpilch/trenopal/internal/scheduler"
	"github.com/danpilch/trenopal/internal/station"
	"github.com/danpilch/trenopal/internal/train"
)

var CLI struct {
	Config   string `help:"Path to config file. Built-in defaults are used when empty." type:"path"`
	Stations string `help:"Directory with station reference data (overrides config)." type:"path"`
	Verbose  bool   `short:"v" help:"Log at debug level."`

	Search  SearchCmd  `cmd:"" help:"Plan journeys between two stations."`
	Station StationCmd `cmd:"" help:"Resolve a station name."`
	Nearest NearestCmd `cmd:"" help:"Find the station nearest to a coordinate."`
	Train   TrainCmd   `cmd:"" help:"Show the live status of a train."`
	Watch   WatchCmd   `cmd:"" help:"Follow the configured journeys and send notifications."`
}

// App holds the wired components shared by every command.
type App struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *station.Registry
	reporter report.Reporter
	finder   *provider.StationFinder
	planner  *journey.Stitcher
	fares    *provider.Fares
	tracker  *live.Tracker
}

type SearchCmd struct {
	From  string `arg:"" help:"Departure station."`
	To    string `arg:"" help:"Arrival station."`
	At    string `help:"Departure time: HH:MM today, or YYYY-MM-DD HH:MM. Defaults to now."`
	Fares bool   `help:"Look up the fare of each leg."`
}

func (c *SearchCmd) Run(app *App) error {
	ctx := context.Background()

	when, err := parseWhen(c.At, time.Now().In(app.cfg.Location()))
	if err != nil {
		return err
	}
	from, err := app.resolveStation(ctx, c.From)
	if err != nil {
		return err
	}
	to, err := app.resolveStation(ctx, c.To)
	if err != nil {
		return err
	}

	its, err := app.planner.Plan(ctx, from, to, when)
	if err != nil {
		return fmt.Errorf("planning journey: %w", err)
	}

	var fare render.FareFunc
	if c.Fares {
		fare = func(leg journey.TripLeg) (float64, bool) {
			price, ok, err := app.fares.Lookup(ctx, leg)
			if err != nil {
				app.logger.WithField("error", err).Debug("fare lookup failed")
				return 0, false
			}
			return price, ok
		}
	}

	fmt.Print(render.Itineraries(its, fare))
	return nil
}

type StationCmd struct {
	Name string `arg:"" help:"Station name, alias or provider key."`
	Pick bool   `help:"Choose interactively among suggestions when the name does not resolve."`
}

func (c *StationCmd) Run(app *App) error {
	s, err := app.resolveStation(context.Background(), c.Name)
	if err == nil {
		fmt.Print(render.Station(s))
		return nil
	}

	suggestions := app.registry.Suggest(c.Name, 8)
	if !c.Pick || len(suggestions) == 0 {
		fmt.Print(render.Suggestions(c.Name, suggestions))
		return err
	}

	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = s.Name()
	}
	prompt := promptui.Select{
		Label:             "Select Station",
		Items:             names,
		StartInSearchMode: true,
		Searcher: func(input string, index int) bool {
			return strings.Contains(match.Normalize(names[index]), match.Normalize(input))
		},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	fmt.Print(render.Station(suggestions[idx]))
	return nil
}

type NearestCmd struct {
	Lat float64 `arg:"" help:"Latitude."`
	Lon float64 `arg:"" help:"Longitude."`
}

func (c *NearestCmd) Run(app *App) error {
	fmt.Print(render.Station(app.registry.Nearest(station.Point{Lat: c.Lat, Lon: c.Lon})))
	return nil
}

type TrainCmd struct {
	Number string `arg:"" help:"Train number."`
	From   string `help:"Origin station, needed when several trains share the number."`
}

func (c *TrainCmd) Run(app *App) error {
	st, ok, err := app.tracker.Status(context.Background(), c.Number, c.From)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("train %s not found (try --from)", c.Number)
	}
	fmt.Print(render.Status(st))
	return nil
}

type WatchCmd struct{}

func (c *WatchCmd) Run(app *App) error {
	cfg, logger := app.cfg, app.logger
	if len(cfg.Journeys) == 0 {
		return errors.New("no journeys configured")
	}

	notifier := notify.NewLogNotifier(logger)
	if cfg.Notify.Enabled {
		// Get credentials from environment
		pushoverToken := os.Getenv("PUSHOVER_TOKEN")
		pushoverUser := os.Getenv("PUSHOVER_USER")
		if pushoverToken == "" || pushoverUser == "" {
			return errors.New("PUSHOVER_TOKEN and PUSHOVER_USER environment variables are required")
		}
		notifier = notify.NewNotifier(pushoverToken, pushoverUser, logger)
	}

	trainMonitor := monitor.NewTrainMonitor(app.planner, app.tracker, app.registry, notifier, cfg.Location(), logger)
	sched := scheduler.NewScheduler(cfg, trainMonitor, logger)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("received signal, shutting down")
		cancel()
	}()

	names := make([]string, len(cfg.Journeys))
	for i, j := range cfg.Journeys {
		names[i] = j.Name + ": " + j.From + " -> " + j.To + " @ " + j.Departure
	}
	logger.WithField("journeys", names).Info("starting trenopal")

	sched.Start(ctx)

	// Wait for context cancellation
	<-ctx.Done()

	// Stop scheduler gracefully
	sched.Stop()
	logger.Info("trenopal stopped")
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("trenopal"),
		kong.Description("Journey planner for the Italian railways."),
		kong.UsageOnError(),
	)

	// Setup structured logging with logfmt
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	cfg := config.Default()
	if CLI.Config != "" {
		loaded, err := config.Load(CLI.Config)
		if err != nil {
			logger.WithField("error", err).Fatal("failed to load config")
		}
		cfg = loaded
	}
	if CLI.Stations != "" {
		cfg.Stations.Dir = CLI.Stations
	}
	if err := cfg.Validate(); err != nil {
		logger.WithField("error", err).Fatal("invalid config")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("error", err).Fatal("invalid log level")
	}
	if CLI.Verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.WithField("error", err).Fatal("failed to initialise")
	}

	err = kctx.Run(app)
	if r, ok := app.reporter.(*report.HTTPReporter); ok {
		r.Wait()
	}
	kctx.FatalIfErrorf(err)
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	matcher := match.New(cfg.Matching.Threshold)

	records, err := station.LoadDir(cfg.Stations.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading stations: %w", err)
	}
	registry, err := station.NewBuilder(logger).Add(records...).Build(matcher)
	if err != nil {
		return nil, fmt.Errorf("building station registry: %w", err)
	}

	var reporter report.Reporter = report.Nop{}
	if cfg.Reporter.BaseURL != "" {
		reporter = report.NewHTTPReporter(cfg.Reporter.BaseURL, cfg.Reporter.Timeout, logger)
	}

	// Initialize clients
	primary := viaggiatreno.NewClient(cfg.Primary.BaseURL, cfg.Primary.Timeout)
	fareAPI, err := lefrecce.NewClient(cfg.Secondary.BaseURL, cfg.Secondary.Timeout, cfg.Secondary.CacheSize, cfg.Secondary.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("creating fares client: %w", err)
	}

	loc := cfg.Location()
	planner := journey.NewStitcher(
		provider.NewPrimary(primary, loc, logger),
		provider.NewSecondary(fareAPI, loc, logger),
		registry,
		matcher,
		train.NewClassifier(reporter),
		reporter,
		logger,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		reporter: reporter,
		finder:   provider.NewStationFinder(primary, registry, logger),
		planner:  planner,
		fares:    provider.NewFares(fareAPI, loc),
		tracker:  live.NewTracker(primary, registry, matcher, loc, logger),
	}, nil
}

// resolveStation tries the registry, then the primary provider's autocomplete.
func (a *App) resolveStation(ctx context.Context, name string) (station.Station, error) {
	if s, ok := a.registry.LookupFuzzy(name); ok {
		return s, nil
	}
	s, ok, err := a.finder.Find(ctx, name)
	if err != nil {
		a.logger.WithField("error", err).Warn("online station lookup failed")
	}
	if ok {
		return s, nil
	}
	a.reporter.UnresolvedStation(name)
	return station.Station{}, fmt.Errorf("unknown station %q", name)
}

// parseWhen reads a departure time in loc, the location of now.
func parseWhen(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return now, nil
	}
	loc := now.Location()
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", text, loc); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use HH:MM or YYYY-MM-DD HH:MM", text)
}
