package viaggiatreno

import "strings"

// SolutionsResponse represents the response from the journey search endpoint.
type SolutionsResponse struct {
	Solutions   []Solution `json:"soluzioni"`
	Origin      string     `json:"origine"`
	Destination string     `json:"destinazione"`
	Error       *string    `json:"errore"`
}

// Solution is one journey option made of consecutive vehicles.
type Solution struct {
	Duration *string   `json:"durata"`
	Vehicles []Vehicle `json:"vehicles"`
}

// Vehicle is a single train ride within a solution. Station names may be
// missing; times are local and have no zone ("2006-01-02T15:04:05").
type Vehicle struct {
	Origin              *string `json:"origine"`
	Destination         *string `json:"destinazione"`
	DepartureTime       string  `json:"orarioPartenza"`
	ArrivalTime         string  `json:"orarioArrivo"`
	Category            *string `json:"categoria"`
	CategoryDescription string  `json:"categoriaDescrizione"`
	TrainNumber         string  `json:"numeroTreno"`
}

// StationMatch is one row of the station autocomplete endpoint.
type StationMatch struct {
	Name string
	Key  string // e.g. "S05043"
}

// TrainMatch is one row of the train-number autocomplete endpoint.
type TrainMatch struct {
	Description string // e.g. "2216 - BOLOGNA CENTRALE"
	Number      string
	OriginKey   string
	// DepartureDate is the midnight of the run's departure day, epoch
	// milliseconds. Zero when the provider omits it.
	DepartureDate int64
}

// OriginName returns the station part of the description.
func (t TrainMatch) OriginName() string {
	if _, name, ok := strings.Cut(t.Description, "-"); ok {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(t.Description)
}

// ProgressStop is one stop in the live progress of a train. Timestamps are
// epoch milliseconds.
type ProgressStop struct {
	Last           bool     `json:"last"`
	Current        bool     `json:"stazioneCorrente"`
	ID             string   `json:"id"`
	Station        string   `json:"stazione"`
	Stop           StopInfo `json:"fermata"`
	DepartedActual bool     `json:"partenzaReale"`
	ArrivedActual  bool     `json:"arrivoReale"`
	First          bool     `json:"first"`
}

// StopInfo contains timing and platform details for a stop.
type StopInfo struct {
	Station                    string  `json:"stazione"`
	ID                         string  `json:"id"`
	ScheduledDeparture         *int64  `json:"partenza_teorica"`
	ScheduledArrival           *int64  `json:"arrivo_teorico"`
	ActualDeparture            *int64  `json:"partenzaReale"`
	ActualArrival              *int64  `json:"arrivoReale"`
	Delay                      int     `json:"ritardo"`
	ActualDeparturePlatform    *string `json:"binarioEffettivoPartenzaDescrizione"`
	ScheduledDeparturePlatform *string `json:"binarioProgrammatoPartenzaDescrizione"`
	ActualArrivalPlatform      *string `json:"binarioEffettivoArrivoDescrizione"`
	ScheduledArrivalPlatform   *string `json:"binarioProgrammatoArrivoDescrizione"`
	StopType                   string  `json:"tipoFermata"`
}

// Platform returns the most reliable platform description available,
// or "?" when none is known.
func (s StopInfo) Platform() string {
	for _, p := range []*string{
		s.ActualDeparturePlatform,
		s.ScheduledDeparturePlatform,
		s.ActualArrivalPlatform,
		s.ScheduledArrivalPlatform,
	} {
		if p != nil && strings.TrimSpace(*p) != "" {
			return strings.TrimSpace(*p)
		}
	}
	return "?"
}
