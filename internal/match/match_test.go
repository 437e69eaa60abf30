package match

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	m := New(DefaultThreshold)

	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{name: "identical", a: "Bologna Centrale", b: "Bologna Centrale", expected: 1},
		{name: "case insensitive", a: "BOLOGNA CENTRALE", b: "bologna centrale", expected: 1},
		{name: "accents are not folded", a: "Forlì", b: "Forli", expected: 0.8},
		{name: "accent and apostrophe", a: "Forlì", b: "FORLI'", expected: 1 - 2.0/6},
		{name: "whitespace is significant", a: "Bologna  Centrale", b: "bologna centrale", expected: 1 - 1.0/17},
		{name: "both empty", a: "", b: "", expected: 1},
		{name: "one empty", a: "", b: "Imola", expected: 0},
		{name: "transposition counts once", a: "abc", b: "acb", expected: 1 - 1.0/3},
		{name: "suffix", a: "Cesena", b: "Cesenatico", expected: 0.6},
		{name: "disjoint", a: "abc", b: "xyz", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Similarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestSimilarityIsSymmetricAndBounded(t *testing.T) {
	m := New(DefaultThreshold)
	names := []string{
		"Bologna Centrale", "BOLOGNA C.LE", "Cesena", "Cesenatico", "Faenza",
		"Castel Bolognese-Riolo Terme", "Forlì", "", "Rimini", "Milano Centrale",
	}

	for _, a := range names {
		if got := m.Similarity(a, a); got != 1 {
			t.Errorf("Similarity(%q, %q) = %f, want 1", a, a, got)
		}
		for _, b := range names {
			ab, ba := m.Similarity(a, b), m.Similarity(b, a)
			if ab != ba {
				t.Errorf("Similarity not symmetric for %q/%q: %f vs %f", a, b, ab, ba)
			}
			if ab < 0 || ab > 1 {
				t.Errorf("Similarity(%q, %q) = %f out of range", a, b, ab)
			}
		}
	}
}

func TestSame(t *testing.T) {
	m := New(DefaultThreshold)

	if !m.Same("BOLOGNA CENTRALE", "Bologna Centrale") {
		t.Error("expected case variants to be the same station")
	}
	if m.Same("Cesena", "Cesenatico") {
		t.Error("expected Cesena and Cesenatico to differ at the default threshold")
	}
	if m.Same("Forlì", "FORLI'") {
		t.Error("expected Forlì and FORLI' to fall below the default threshold")
	}
	if !New(0.5).Same("Cesena", "Cesenatico") {
		t.Error("expected a lower threshold to accept Cesena/Cesenatico")
	}
}

func TestNewFallsBackToDefault(t *testing.T) {
	for _, th := range []float64{0, -1, 1.5} {
		if got := New(th).Threshold(); got != DefaultThreshold {
			t.Errorf("New(%f).Threshold() = %f, want %f", th, got, DefaultThreshold)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "  Bologna   Centrale ", expected: "bologna centrale"},
		{input: "Forlì", expected: "forli"},
		{input: "SANT'ILARIO D'ENZA", expected: "sant'ilario d'enza"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
