// Package train classifies provider category strings into a closed set of
// Italian train types.
package train

import (
	"strconv"
	"strings"

	"github.com/danpilch/trenopal/internal/report"
)

type Category int

const (
	Unknown Category = iota
	Regional
	RegionalFast
	InterCity
	InterCityNight
	FrecciaRossa
	FrecciaArgento
	FrecciaBianca
	EuroNight
	EuroCity
	Bus
)

var categoryPrefixes = map[Category]string{
	Unknown:        "?",
	Regional:       "R",
	RegionalFast:   "RV",
	InterCity:      "IC",
	InterCityNight: "ICN",
	FrecciaRossa:   "ES*FR",
	FrecciaArgento: "ES*FA",
	FrecciaBianca:  "FB",
	EuroNight:      "EN",
	EuroCity:       "EC",
	Bus:            "BUS",
}

// Prefix returns the short label printed in front of the train number.
func (c Category) Prefix() string {
	if p, ok := categoryPrefixes[c]; ok {
		return p
	}
	return "?"
}

// codes maps provider category strings, case-sensitive, to categories.
var codes = map[string]Category{
	"RV":             RegionalFast,
	"Regionale":      Regional,
	"REG":            Regional,
	"Frecciarossa":   FrecciaRossa,
	"FR":             FrecciaRossa,
	"Frecciaargento": FrecciaArgento,
	"FA":             FrecciaArgento,
	"Frecciabianca":  FrecciaBianca,
	"FB":             FrecciaBianca,
	"IC":             InterCity,
	"ICN":            InterCityNight,
	"EN":             EuroNight,
	"EC":             EuroCity,
	"ECB":            EuroCity,
	"Autobus":        Bus,
	"BUS":            Bus,
}

// Identity is a classified train: its category and number. Raw carries the
// provider's category text when the category is Unknown.
type Identity struct {
	Category Category `json:"category"`
	Number   uint32   `json:"number"`
	Raw      string   `json:"raw,omitempty"`
}

func (id Identity) String() string {
	return id.Category.Prefix() + strconv.FormatUint(uint64(id.Number), 10)
}

// Classifier turns (category, number) pairs into identities and reports
// categories it does not know.
type Classifier struct {
	reporter report.Reporter
}

func NewClassifier(reporter report.Reporter) *Classifier {
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Classifier{reporter: reporter}
}

func (c *Classifier) Classify(code string, number uint32) Identity {
	if cat, ok := codes[code]; ok {
		return Identity{Category: cat, Number: number}
	}
	c.reporter.UnknownCategory(code)
	return Identity{Category: Unknown, Number: number, Raw: code}
}

// ParseNumber reads a provider train number. Non-digit characters count as
// zeros, so "9517A" becomes 95170; anything unparsable becomes 0.
func ParseNumber(text string) uint32 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if n, err := strconv.ParseUint(text, 10, 32); err == nil {
		return uint32(n)
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return '0'
	}, text)
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
