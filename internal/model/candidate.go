package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownProvenance is returned when a decoded candidate names no known
// extraction strategy.
var ErrUnknownProvenance = errors.New("model: unknown candidate provenance")

// Provenance identifies the extraction strategy behind a candidate.
type Provenance string

// Provenances.
const (
	ProvenanceModel   Provenance = "model"
	ProvenancePattern Provenance = "pattern"
)

// Confidence bounds for model-based candidates.
const (
	MinConfidence = 1
	MaxConfidence = 10
)

// Candidate is one proposed current value for an indicator.
type Candidate struct {
	Value float64 `json:"value"`
	Year  *int    `json:"year,omitempty"`
	Month string  `json:"month,omitempty"`
	// Confidence is only set on model candidates.
	Confidence *int       `json:"confidence,omitempty"`
	Relevance  float64    `json:"relevance"`
	Provenance Provenance `json:"provenance"`
	Context    string     `json:"context,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	Source     string     `json:"source,omitempty"`
}

func clampConfidence(confidence int) int {
	return max(MinConfidence, min(MaxConfidence, confidence))
}

// NewModelCandidate builds a model candidate. Confidence is clamped to 1–10.
func NewModelCandidate(value float64, confidence int, relevance float64) Candidate {
	confidence = clampConfidence(confidence)
	return Candidate{
		Value:      value,
		Confidence: &confidence,
		Relevance:  relevance,
		Provenance: ProvenanceModel,
	}
}

// NewPatternCandidate builds a pattern candidate. Pattern candidates never
// carry a confidence.
func NewPatternCandidate(value float64, relevance float64) Candidate {
	return Candidate{
		Value:      value,
		Relevance:  relevance,
		Provenance: ProvenancePattern,
	}
}

// UnmarshalJSON implements json.Unmarshaler. Decoded candidates get the
// same guarantees as constructed ones: model confidence is clamped to 1–10
// (missing counts as the minimum) and pattern candidates carry none.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	cand := Candidate(p)

	switch cand.Provenance {
	case ProvenanceModel:
		conf := clampConfidence(cand.ConfidenceOrZero())
		cand.Confidence = &conf
	case ProvenancePattern:
		cand.Confidence = nil
	default:
		return fmt.Errorf("%w %q", ErrUnknownProvenance, cand.Provenance)
	}
	*c = cand
	return nil
}

// WithYear returns a copy with the data year set.
func (c Candidate) WithYear(year int) Candidate {
	c.Year = &year
	return c
}

// ConfidenceOrZero returns the confidence, or 0 when absent.
func (c Candidate) ConfidenceOrZero() int {
	if c.Confidence == nil {
		return 0
	}
	return *c.Confidence
}

// YearIs reports whether the candidate's data year equals year.
func (c Candidate) YearIs(year int) bool {
	return c.Year != nil && *c.Year == year
}

// ResolvedValue is the chosen current value with the winning candidate kept
// for traceability.
type ResolvedValue struct {
	Value  float64   `json:"value"`
	Winner Candidate `json:"winner"`
	Reason string    `json:"reason"`
}

// SourceReport groups the candidates one source produced.
type SourceReport struct {
	Source     string      `json:"source"`
	Method     Provenance  `json:"method"`
	Candidates []Candidate `json:"candidates"`
	// Dates are human-readable data dates, e.g. "junio 2025".
	Dates []string `json:"dates,omitempty"`
}

// Evidence is everything the producers gathered for one indicator.
type Evidence struct {
	Reports []SourceReport `json:"reports"`
}

// Candidates flattens all reports in source order.
func (e Evidence) Candidates() []Candidate {
	var out []Candidate
	for _, r := range e.Reports {
		out = append(out, r.Candidates...)
	}
	return out
}

// FirstSource returns the first reporting source, if any.
func (e Evidence) FirstSource() (string, bool) {
	if len(e.Reports) == 0 {
		return "", false
	}
	return e.Reports[0].Source, true
}

// FirstDate returns the first data date across reports, if any.
func (e Evidence) FirstDate() (string, bool) {
	for _, r := range e.Reports {
		if len(r.Dates) > 0 {
			return r.Dates[0], true
		}
	}
	return "", false
}

// ContextSnippets returns up to perSource non-empty candidate contexts per
// report, in order.
func (e Evidence) ContextSnippets(perSource int) []string {
	var out []string
	for _, r := range e.Reports {
		n := 0
		for _, c := range r.Candidates {
			if n >= perSource {
				break
			}
			n++
			if c.Context != "" {
				out = append(out, c.Context)
			}
		}
	}
	return out
}
