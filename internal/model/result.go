package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Status is the qualitative band for a progress value.
type Status string

// Statuses. StatusError tags indicators whose pipeline failed or timed out.
const (
	StatusEfficient Status = "efficient"
	StatusModerate  Status = "moderate"
	StatusLow       Status = "low"
	StatusDeficient Status = "deficient"
	StatusError     Status = "error"
)

// Efficiency labels paired with statuses.
const (
	EfficiencyHigh       = "high"
	EfficiencyMediumHigh = "medium-high"
	EfficiencyMedium     = "medium"
	EfficiencyMediumLow  = "medium-low"
	EfficiencyLow        = "low"
	EfficiencyNone       = "n/a"
)

// Progress bounds.
const (
	MinProgress = 0
	MaxProgress = 150
)

// ErrInvalidStatus is returned when a progress status is not a band.
var ErrInvalidStatus = errors.New("model: invalid progress status")

// IsBand reports whether s is one of the four progress bands.
func (s Status) IsBand() bool {
	switch s {
	case StatusEfficient, StatusModerate, StatusLow, StatusDeficient:
		return true
	}
	return false
}

// ProgressResult is computed once per indicator per request and never
// persisted.
type ProgressResult struct {
	Baseline   OptionalFloat `json:"baseline"`
	Current    OptionalFloat `json:"current"`
	Target     OptionalFloat `json:"target"`
	Progress   float64       `json:"progress"`
	Status     Status        `json:"status"`
	Efficiency string        `json:"efficiency"`
}

// NewProgressResult builds a ProgressResult. Progress is clamped to
// [MinProgress, MaxProgress] with NaN read as 0, and status must be a band.
func NewProgressResult(baseline, current, target *float64, progress float64, status Status, efficiency string) (ProgressResult, error) {
	if !status.IsBand() {
		return ProgressResult{}, fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}
	if math.IsNaN(progress) {
		progress = MinProgress
	}
	return ProgressResult{
		Baseline:   FromPtr(baseline),
		Current:    FromPtr(current),
		Target:     FromPtr(target),
		Progress:   math.Max(MinProgress, math.Min(MaxProgress, progress)),
		Status:     status,
		Efficiency: efficiency,
	}, nil
}

// IndicatorResult is the per-indicator record returned to callers.
type IndicatorResult struct {
	Axis       string        `json:"eje"`
	Indicator  string        `json:"indicador"`
	Target     string        `json:"meta"`
	Baseline   OptionalFloat `json:"valor_inicial"`
	Current    OptionalFloat `json:"valor_actual"`
	TargetVal  OptionalFloat `json:"valor_meta"`
	Progress   float64       `json:"progreso"`
	Status     Status        `json:"estado"`
	Efficiency string        `json:"eficiencia"`
	Narrative  string        `json:"analisis"`
	Type       IndicatorType `json:"tipo_indicador,omitempty"`
	Direction  Direction     `json:"direccion,omitempty"`
	Unit       string        `json:"unidad"`
	Source     string        `json:"fuente"`
	DataDate   string        `json:"fecha_actualizacion"`
	// Resolved carries the winning candidate when a current value was found.
	Resolved *ResolvedValue `json:"resolucion,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ApplyProgress copies the progress record into the result.
func (r *IndicatorResult) ApplyProgress(p ProgressResult) {
	r.Baseline = p.Baseline
	r.Current = p.Current
	r.TargetVal = p.Target
	r.Progress = p.Progress
	r.Status = p.Status
	r.Efficiency = p.Efficiency
}

// ErrorResult builds the error-tagged record for an indicator whose
// pipeline did not complete.
func ErrorResult(spec IndicatorSpec, reason string) IndicatorResult {
	return IndicatorResult{
		Axis:       spec.Axis,
		Indicator:  spec.Name,
		Target:     spec.TargetText(),
		Baseline:   FromPtr(spec.Baseline),
		Status:     StatusError,
		Efficiency: EfficiencyNone,
		Narrative:  "Error: " + reason,
		Source:     Unavailable,
		DataDate:   Unavailable,
		Error:      reason,
	}
}

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the audit record of one batch invocation. It never stores
// indicator values.
type Run struct {
	ID         string    `json:"id"`
	Origin     string    `json:"origin"`
	Status     RunStatus `json:"status"`
	Indicators int       `json:"indicators"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
