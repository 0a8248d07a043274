package batch

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/resolve"
)

// EvidenceSource gathers extraction candidates for an indicator.
type EvidenceSource interface {
	Collect(ctx context.Context, spec model.IndicatorSpec) (model.Evidence, error)
}

// PipelineWorker collects evidence and hands it to the resolution engine.
type PipelineWorker struct {
	Evidence EvidenceSource
	Engine   *resolve.Engine
}

// Run implements Worker. A collection error fails the indicator.
func (w *PipelineWorker) Run(ctx context.Context, spec model.IndicatorSpec) (model.IndicatorResult, error) {
	ev, err := w.Evidence.Collect(ctx, spec)
	if err != nil {
		return model.IndicatorResult{}, eris.Wrap(err, "batch: collect evidence")
	}
	return w.Engine.Analyze(ctx, spec, ev), nil
}

// IndexedEvidence serves precomputed evidence by input position, so
// indicators sharing a name keep their own evidence. Positions without
// evidence yield empty evidence.
type IndexedEvidence []model.Evidence

// Collect implements EvidenceSource.
func (s IndexedEvidence) Collect(ctx context.Context, spec model.IndicatorSpec) (model.Evidence, error) {
	i, ok := IndexFromContext(ctx)
	if !ok {
		return model.Evidence{}, eris.Errorf("batch: no batch position for %q", spec.Name)
	}
	if i < 0 || i >= len(s) {
		return model.Evidence{}, nil
	}
	return s[i], nil
}

// StaticEvidence serves precomputed evidence by indicator name. Missing
// names yield empty evidence.
type StaticEvidence map[string]model.Evidence

// Collect implements EvidenceSource.
func (s StaticEvidence) Collect(_ context.Context, spec model.IndicatorSpec) (model.Evidence, error) {
	return s[spec.Name], nil
}
