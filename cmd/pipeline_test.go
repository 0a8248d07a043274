//go:build !integration

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/indicator-cli/internal/batch"
	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/store"
)

func TestDecodeIndicators(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"array", `[{"Indicador":"A","Meta":"Reducir de 10 a 5"},{"Indicador":"B"}]`, 2},
		{"wrapped", `{"indicators":[{"Indicador":"A","Meta":320}]}`, 1},
		{"empty wrapped", `{"indicators":[]}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := decodeIndicators([]byte(tt.data))
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestDecodeIndicators_Invalid(t *testing.T) {
	_, err := decodeIndicators([]byte(`"nope"`))
	assert.ErrorContains(t, err, "decode indicators")
}

func TestReadIndicators_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"Eje":"Social","Indicador":"Pobreza","Meta":"Reducir de 25% a 20%","ValorInicial":"25,5"}]`), 0o600))

	rows, err := readIndicators(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	specs := specsFromRows(rows)
	require.NotNil(t, specs[0].Baseline)
	assert.InDelta(t, 25.5, *specs[0].Baseline, 1e-9)
	assert.Equal(t, "Reducir de 25% a 20%", specs[0].TargetText())
}

func TestReadIndicators_Missing(t *testing.T) {
	_, err := readIndicators(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestSpecsFromRows_Defaults(t *testing.T) {
	specs := specsFromRows([]model.IndicatorRow{{}})
	assert.Equal(t, model.DefaultAxis, specs[0].Axis)
	assert.Equal(t, model.DefaultName, specs[0].Name)
	assert.Equal(t, model.DefaultTarget, specs[0].Target)
	assert.Nil(t, specs[0].Baseline)
}

func TestPipelineEnv_Analyze_EmptyBatchMarksRunFailed(t *testing.T) {
	env := newTestEnv(t, true)

	_, err := env.analyze(context.Background(), store.OriginCLI, nil)
	assert.ErrorIs(t, err, batch.ErrEmptyBatch)

	runs, err := env.store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestPipelineEnv_Analyze_NoStore(t *testing.T) {
	env := newTestEnv(t, false)

	results, err := env.analyze(context.Background(), store.OriginCLI, []model.IndicatorSpec{
		{Axis: "Seguridad", Name: "Siniestros viales", Target: "Reducir de 10 a 5"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 40.0, results[0].Progress, 1e-9)
}

func TestPipelineEnv_Engine_UsesConfiguredThresholds(t *testing.T) {
	env := newTestEnv(t, false)
	env.cfg.Resolve.ConfidenceThreshold = 9

	engine := env.engine(env.log)
	require.NotNil(t, engine)
}
