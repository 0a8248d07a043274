//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/batch"
	"github.com/sells-group/indicator-cli/internal/config"
	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/resolve"
	"github.com/sells-group/indicator-cli/internal/store"
)

// roadEvidence holds one model candidate of 8 for "Siniestros viales".
func roadEvidence() batch.StaticEvidence {
	c := model.NewModelCandidate(8, 9, 120).WithYear(2025)
	return batch.StaticEvidence{
		"Siniestros viales": {Reports: []model.SourceReport{{
			Source:     "https://www.ant.gob.ec/estadisticas",
			Method:     model.ProvenanceModel,
			Candidates: []model.Candidate{c},
			Dates:      []string{"junio 2025"},
		}}},
	}
}

// newTestEnv builds a pipeline environment with a temp SQLite run log and
// offline evidence.
func newTestEnv(t *testing.T, withStore bool) *pipelineEnv {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "runs.db")},
		Resolve:  config.ResolveConfig{ReportingYear: 2025},
		Batch:    config.BatchConfig{Workers: 2, TimeoutSecs: 5},
		Server:   config.ServerConfig{Port: 5000, CORSOrigins: []string{"*"}},
		Workbook: config.WorkbookConfig{Path: filepath.Join(dir, "plan.xlsx")},
	}

	env := &pipelineEnv{cfg: c, log: zap.NewNop()}
	if withStore {
		st, err := store.Open(context.Background(), c.Store)
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		env.store = st
	}

	ev := roadEvidence()
	engine := resolve.NewEngine(resolve.NewResolver(2025, nil), nil, nil)
	env.newWorker = func() (batch.Worker, error) {
		return &batch.PipelineWorker{Evidence: ev, Engine: engine}, nil
	}
	return env
}
