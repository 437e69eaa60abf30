package provider

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/api/viaggiatreno"
	"github.com/danpilch/trenopal/internal/station"
)

// StationFinder resolves names the registry cannot match by asking the
// primary provider's autocomplete.
type StationFinder struct {
	client   *viaggiatreno.Client
	registry *station.Registry
	logger   logrus.FieldLogger
}

func NewStationFinder(client *viaggiatreno.Client, registry *station.Registry, logger logrus.FieldLogger) *StationFinder {
	return &StationFinder{client: client, registry: registry, logger: logger}
}

// Find returns the registry station whose primary key is the provider's
// best autocomplete match for name.
func (f *StationFinder) Find(ctx context.Context, name string) (station.Station, bool, error) {
	matches, err := f.client.AutocompleteStation(ctx, name)
	if err != nil {
		return station.Station{}, false, fmt.Errorf("autocompleting station: %w", err)
	}
	if len(matches) == 0 {
		return station.Station{}, false, nil
	}

	st, ok := f.registry.LookupExact(matches[0].Key)
	f.logger.WithFields(logrus.Fields{
		"name":     name,
		"provider": matches[0].Name,
		"key":      matches[0].Key,
		"found":    ok,
	}).Debug("online station lookup")
	return st, ok, nil
}
