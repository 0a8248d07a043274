package resolve

import (
	"math"

	"github.com/sells-group/indicator-cli/internal/model"
)

// Progress bounds.
const (
	MinProgress = model.MinProgress
	MaxProgress = model.MaxProgress
)

// Magnitude-anomaly heuristic. A current value more than anomalyRatio times
// the target is assumed to be reported in the wrong unit and is rescaled.
// The thresholds are kept for compatibility with existing reports; the rule
// is a heuristic and can hide real overshoots or bad data.
const anomalyRatio = 50

// ProgressOutcome is the result of ComputeProgress.
type ProgressOutcome struct {
	Progress float64
	// Current is the value the formula used, after any magnitude correction.
	Current   float64
	Corrected bool
}

// ComputeProgress returns the direction-aware share of the baseline→target
// distance covered by current, clamped to [0,150] and rounded to two
// decimals. Any missing input yields 0.
func ComputeProgress(baseline, current, target *float64, dir model.Direction) ProgressOutcome {
	if baseline == nil || current == nil || target == nil {
		return ProgressOutcome{}
	}
	b, c, t := *baseline, *current, *target

	out := ProgressOutcome{Current: c}
	if t > 0 && c/t > anomalyRatio {
		switch {
		case c > 1000:
			out.Current = c / 1000
			out.Corrected = true
		case c > 100:
			out.Current = c / 100
			out.Corrected = true
		}
	}
	c = out.Current

	var progress float64
	if dir == model.DirectionDecrease {
		total := b - t
		if total <= 0 {
			return out
		}
		progress = (b - c) / total * 100
	} else {
		total := t - b
		if total == 0 {
			if c >= t {
				out.Progress = 100
			}
			return out
		}
		progress = (c - b) / total * 100
	}

	if math.IsNaN(progress) {
		return out
	}
	progress = math.Max(MinProgress, math.Min(MaxProgress, progress))
	out.Progress = math.Round(progress*100) / 100
	return out
}

// Band maps a progress value to its status and efficiency label.
func Band(progress float64) (model.Status, string) {
	switch {
	case progress >= 75:
		return model.StatusEfficient, model.EfficiencyHigh
	case progress >= 50:
		return model.StatusModerate, model.EfficiencyMediumHigh
	case progress >= 30:
		return model.StatusModerate, model.EfficiencyMedium
	case progress >= 15:
		return model.StatusLow, model.EfficiencyMediumLow
	default:
		return model.StatusDeficient, model.EfficiencyLow
	}
}
