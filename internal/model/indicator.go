package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Unavailable is the wire marker for a value that could not be determined.
const Unavailable = "unavailable"

// IndicatorType classifies what an indicator measures.
type IndicatorType string

// Indicator types.
const (
	TypeCount            IndicatorType = "count"
	TypePercentage       IndicatorType = "percentage"
	TypeRate             IndicatorType = "rate"
	TypeMonetaryMillions IndicatorType = "monetary_millions"
)

// Direction is the improvement direction of an indicator.
type Direction string

// Directions.
const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Verb returns the Spanish imperative used in prompts and narratives.
func (d Direction) Verb() string {
	if d == DirectionDecrease {
		return "reducir"
	}
	return "incrementar"
}

// IndicatorSpec is the immutable input for one resolution run.
type IndicatorSpec struct {
	Axis string
	Name string
	// Target is the raw target description: a string, or a number when the
	// source sheet stored the target as a plain figure.
	Target   any
	Baseline *float64
}

// TargetText renders the target for display and keyword scans.
func (s IndicatorSpec) TargetText() string {
	switch v := s.Target.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IndicatorRow is the wire/workbook shape of an indicator. Keys follow the
// column names of the planning workbook.
type IndicatorRow struct {
	Axis     string `json:"Eje,omitempty"`
	Name     string `json:"Indicador,omitempty"`
	Target   any    `json:"Meta,omitempty"`
	Baseline any    `json:"ValorInicial,omitempty"`
}

// Defaults applied to rows with missing columns.
const (
	DefaultAxis   = "Sin eje"
	DefaultName   = "Sin indicador"
	DefaultTarget = "Sin meta"
)

// Spec converts the row into an IndicatorSpec. parse converts the optional
// baseline cell; it is injected to keep this package free of parsing rules.
func (r IndicatorRow) Spec(parse func(any) (float64, bool)) IndicatorSpec {
	spec := IndicatorSpec{
		Axis:   strings.TrimSpace(r.Axis),
		Name:   strings.TrimSpace(r.Name),
		Target: r.Target,
	}
	if spec.Axis == "" {
		spec.Axis = DefaultAxis
	}
	if spec.Name == "" {
		spec.Name = DefaultName
	}
	if s, ok := spec.Target.(string); ok && strings.TrimSpace(s) == "" {
		spec.Target = nil
	}
	if spec.Target == nil {
		spec.Target = DefaultTarget
	}
	if r.Baseline != nil && parse != nil {
		if v, ok := parse(r.Baseline); ok {
			spec.Baseline = &v
		}
	}
	return spec
}

// Classification is derived deterministically from an indicator's text.
type Classification struct {
	Type      IndicatorType `json:"type"`
	Direction Direction     `json:"direction"`
	Unit      string        `json:"unit"`
}

// RangeProfile bounds the values a producer may accept for an indicator.
type RangeProfile struct {
	Kind     string    `json:"kind"`
	Unit     string    `json:"unit"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Excluded []float64 `json:"excluded,omitempty"`
}

// OptionalFloat is a float that may be missing. It serialises as a JSON
// number or as the Unavailable marker.
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) OptionalFloat { return OptionalFloat{Value: v, Valid: true} }

// FromPtr converts a nullable pointer.
func FromPtr(p *float64) OptionalFloat {
	if p == nil {
		return OptionalFloat{}
	}
	return Some(*p)
}

// Ptr returns nil when the value is missing.
func (o OptionalFloat) Ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// String renders the value or the Unavailable marker.
func (o OptionalFloat) String() string {
	if !o.Valid {
		return Unavailable
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return json.Marshal(Unavailable)
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if f, ok := v.(float64); ok {
		*o = Some(f)
		return nil
	}
	*o = OptionalFloat{}
	return nil
}
