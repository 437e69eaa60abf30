package station

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/trenopal/internal/match"
)

// Record is one already-parsed row of station reference data.
type Record struct {
	ID           string
	RegionID     uint8
	Position     Point
	Aliases      []string
	PrimaryKey   string
	SecondaryKey string
}

// Builder collects records and produces an immutable Registry.
type Builder struct {
	records []Record
	logger  logrus.FieldLogger
}

func NewBuilder(logger logrus.FieldLogger) *Builder {
	return &Builder{logger: logger}
}

// Add queues a record. Validation happens in Build.
func (b *Builder) Add(records ...Record) *Builder {
	b.records = append(b.records, records...)
	return b
}

// Build validates the records and indexes every alias and provider key.
// When two stations share an alias the first one keeps it.
func (b *Builder) Build(matcher *match.Matcher) (*Registry, error) {
	if len(b.records) == 0 {
		return nil, errors.New("no stations to register")
	}
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}

	r := &Registry{
		stations: make([]Station, 0, len(b.records)),
		index:    make(map[string]int, len(b.records)*2),
		byID:     make(map[string]int, len(b.records)),
		matcher:  matcher,
	}

	collisions := 0
	for _, rec := range b.records {
		if rec.ID == "" {
			return nil, fmt.Errorf("station with aliases %v has no id", rec.Aliases)
		}
		if _, dup := r.byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %q", rec.ID)
		}
		aliases := make([]string, 0, len(rec.Aliases))
		for _, a := range rec.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("station %q has no aliases", rec.ID)
		}

		idx := len(r.stations)
		r.stations = append(r.stations, Station{
			ID:           rec.ID,
			RegionID:     rec.RegionID,
			Position:     rec.Position,
			Aliases:      aliases,
			PrimaryKey:   strings.TrimSpace(rec.PrimaryKey),
			SecondaryKey: strings.TrimSpace(rec.SecondaryKey),
		})
		r.byID[rec.ID] = idx

		keys := append([]string{}, aliases...)
		if k := strings.TrimSpace(rec.PrimaryKey); k != "" {
			keys = append(keys, k)
		}
		if k := strings.TrimSpace(rec.SecondaryKey); k != "" {
			keys = append(keys, k)
		}
		for _, k := range keys {
			key := indexKey(k)
			if owner, taken := r.index[key]; taken {
				if owner != idx {
					collisions++
					if b.logger != nil {
						b.logger.WithFields(logrus.Fields{
							"key":     k,
							"owner":   r.stations[owner].ID,
							"ignored": rec.ID,
						}).Debug("alias already registered")
					}
				}
				continue
			}
			r.index[key] = idx
		}
	}

	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"stations":   len(r.stations),
			"keys":       len(r.index),
			"collisions": collisions,
		}).Info("station registry built")
	}

	return r, nil
}

// Registry is the immutable set of canonical stations. It is safe for
// concurrent use once built.
type Registry struct {
	stations []Station
	index    map[string]int
	byID     map[string]int
	matcher  *match.Matcher
}

func indexKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (r *Registry) Len() int {
	return len(r.stations)
}

// Stations returns a copy of every station in registry order.
func (r *Registry) Stations() []Station {
	out := make([]Station, len(r.stations))
	for i, s := range r.stations {
		out[i] = s.clone()
	}
	return out
}

// ByID returns the station with the given canonical id.
func (r *Registry) ByID(id string) (Station, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Station{}, false
	}
	return r.stations[idx], true
}

// LookupExact finds a station by alias or provider key, ignoring case.
func (r *Registry) LookupExact(key string) (Station, bool) {
	idx, ok := r.index[indexKey(key)]
	if !ok {
		return Station{}, false
	}
	return r.stations[idx], true
}

// LookupFuzzy tries an exact lookup, then scores name against every alias.
// The first best-scoring station wins if it reaches the matcher threshold.
func (r *Registry) LookupFuzzy(name string) (Station, bool) {
	if s, ok := r.LookupExact(name); ok {
		return s, true
	}

	best, bestScore := -1, 0.0
	for i, s := range r.stations {
		for _, alias := range s.Aliases {
			score := r.matcher.Similarity(alias, name)
			if score == 1 {
				return s, true
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
	}

	if best < 0 || bestScore < r.matcher.Threshold() {
		return Station{}, false
	}
	return r.stations[best], true
}

// Nearest returns the station closest to p by squared distance on (lat, lon).
// Ties keep the station registered first.
func (r *Registry) Nearest(p Point) Station {
	best := 0
	bestDist := squaredDistance(r.stations[0].Position, p)
	for i := 1; i < len(r.stations); i++ {
		if d := squaredDistance(r.stations[i].Position, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return r.stations[best]
}

func squaredDistance(a, b Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}

// Suggest returns up to n stations ranked by their best alias similarity to
// name. Accents and spacing are folded first, since the query is typed by a user.
func (r *Registry) Suggest(name string, n int) []Station {
	type scored struct {
		idx   int
		score float64
	}
	query := match.Normalize(name)
	var candidates []scored
	for i, s := range r.stations {
		best := 0.0
		for _, alias := range s.Aliases {
			if score := r.matcher.Similarity(match.Normalize(alias), query); score > best {
				best = score
			}
		}
		if best > 0 {
			candidates = append(candidates, scored{idx: i, score: best})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]Station, len(candidates))
	for i, c := range candidates {
		out[i] = r.stations[c.idx]
	}
	return out
}
