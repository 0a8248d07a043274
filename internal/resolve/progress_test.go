package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/indicator-cli/internal/model"
)

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name                      string
		baseline, current, target *float64
		dir                       model.Direction
		want                      float64
	}{
		{"decrease partway", f(12.81), f(12.50), f(12.25), model.DirectionDecrease, 55.36},
		{"decrease reached", f(27), f(22), f(22), model.DirectionDecrease, 100},
		{"decrease worsened", f(27), f(29), f(22), model.DirectionDecrease, 0},
		{"decrease malformed target", f(10), f(9), f(12), model.DirectionDecrease, 0},
		{"increase partway", f(35.88), f(36.5), f(37.53), model.DirectionIncrease, 37.58},
		{"increase degenerate reached", f(10), f(12), f(10), model.DirectionIncrease, 100},
		{"increase degenerate short", f(10), f(8), f(10), model.DirectionIncrease, 0},
		{"overshoot clamped", f(0), f(40), f(10), model.DirectionIncrease, 150},
		{"missing baseline", nil, f(5), f(10), model.DirectionIncrease, 0},
		{"missing current", f(1), nil, f(10), model.DirectionIncrease, 0},
		{"missing target", f(1), f(5), nil, model.DirectionIncrease, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeProgress(tt.baseline, tt.current, tt.target, tt.dir)
			assert.InDelta(t, tt.want, got.Progress, 1e-9)
			assert.False(t, got.Corrected)
		})
	}
}

func TestComputeProgress_AnomalyCorrection(t *testing.T) {
	got := ComputeProgress(f(2), f(400), f(5), model.DirectionIncrease)
	assert.True(t, got.Corrected)
	assert.Equal(t, 4.0, got.Current)
	assert.InDelta(t, 66.67, got.Progress, 1e-9)

	got = ComputeProgress(f(20), f(2500), f(30), model.DirectionIncrease)
	assert.True(t, got.Corrected)
	assert.Equal(t, 2.5, got.Current)
	assert.Equal(t, 0.0, got.Progress)

	got = ComputeProgress(f(0), f(90), f(1), model.DirectionIncrease)
	assert.False(t, got.Corrected, "ratio above 50 but current below 100")
	assert.Equal(t, 150.0, got.Progress)
}

func TestComputeProgress_Bounded(t *testing.T) {
	values := []float64{-1e9, -5, 0, 0.5, 3, 99, 101, 1e4, 1e9}
	for _, b := range values {
		for _, c := range values {
			for _, tg := range values {
				for _, dir := range []model.Direction{model.DirectionIncrease, model.DirectionDecrease} {
					got := ComputeProgress(f(b), f(c), f(tg), dir)
					assert.GreaterOrEqual(t, got.Progress, float64(MinProgress))
					assert.LessOrEqual(t, got.Progress, float64(MaxProgress))
				}
			}
		}
	}
}

func TestComputeProgress_Idempotent(t *testing.T) {
	a := ComputeProgress(f(12.81), f(12.5), f(12.25), model.DirectionDecrease)
	b := ComputeProgress(f(12.81), f(12.5), f(12.25), model.DirectionDecrease)
	assert.Equal(t, a, b)
}

func TestBand(t *testing.T) {
	tests := []struct {
		progress   float64
		status     model.Status
		efficiency string
	}{
		{150, model.StatusEfficient, model.EfficiencyHigh},
		{75, model.StatusEfficient, model.EfficiencyHigh},
		{74.99, model.StatusModerate, model.EfficiencyMediumHigh},
		{50, model.StatusModerate, model.EfficiencyMediumHigh},
		{30, model.StatusModerate, model.EfficiencyMedium},
		{15, model.StatusLow, model.EfficiencyMediumLow},
		{14.99, model.StatusDeficient, model.EfficiencyLow},
		{0, model.StatusDeficient, model.EfficiencyLow},
	}
	for _, tt := range tests {
		status, eff := Band(tt.progress)
		assert.Equal(t, tt.status, status, tt.progress)
		assert.Equal(t, tt.efficiency, eff, tt.progress)
	}
}
