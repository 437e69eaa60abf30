package lefrecce

// Solution is a coarse journey option returned by the solutions search.
// Times are epoch milliseconds.
type Solution struct {
	ID            string   `json:"idsolution"`
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	Direction     string   `json:"direction"`
	DepartureTime int64    `json:"departuretime"`
	ArrivalTime   int64    `json:"arrivaltime"`
	MinPrice      *float64 `json:"minprice"`
	OptionalText  *string  `json:"optionaltext"`
	Duration      string   `json:"duration"`
	Changes       int      `json:"changesno"`
	Bookable      bool     `json:"bookable"`
	Saleable      bool     `json:"saleable"`
	Trains        []Train  `json:"trainlist"`
}

// Train is a summary entry of a solution's train list.
type Train struct {
	Identifier string  `json:"trainidentifier"`
	Acronym    *string `json:"trainacronym"`
}

// DetailedSolution is the leg breakdown of a solution.
type DetailedSolution struct {
	ID   string `json:"idsolution"`
	Legs []Leg  `json:"leglist"`
}

// Leg groups the segments booked together.
type Leg struct {
	ID               string    `json:"idleg"`
	Segments         []Segment `json:"segments"`
	TrainIdentifier  string    `json:"trainidentifier"`
	TrainAcronym     string    `json:"trainacronym"`
	DepartureStation string    `json:"departurestation"`
	DepartureTime    string    `json:"departuretime"`
	ArrivalStation   string    `json:"arrivalstation"`
	ArrivalTime      string    `json:"arrivaltime"`
}

// Segment is a single vehicle movement. Times are extended ISO 8601 with
// offset, e.g. "2024-03-01T08:10:00.000+01:00".
type Segment struct {
	TrainIdentifier  string  `json:"trainidentifier"` // e.g. "Regionale 6514", or "Same"
	TrainAcronym     *string `json:"trainacronym"`
	DepartureStation string  `json:"departurestation"`
	DepartureTime    string  `json:"departuretime"`
	ArrivalStation   string  `json:"arrivalstation"`
	ArrivalTime      string  `json:"arrivaltime"`
	NodeID           string  `json:"nodexmlid"`
}

// SameTrain marks a segment continuing on the previous vehicle.
const SameTrain = "Same"
