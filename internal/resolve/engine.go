package resolve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/narrative"
)

// contextPerSource is how many candidate contexts each source contributes
// to the narrative request.
const contextPerSource = 3

// Engine composes classification, target extraction, candidate resolution,
// progress and narrative for one indicator. An Engine has no mutable state
// beyond its collaborators; batch workers each build their own.
type Engine struct {
	resolver Resolver
	narrator narrative.Service
	log      *zap.Logger
}

// NewEngine creates an Engine. narrator may be nil, in which case every
// narrative comes from the template.
func NewEngine(resolver Resolver, narrator narrative.Service, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if resolver.log == nil {
		resolver.log = log
	}
	return &Engine{resolver: resolver, narrator: narrator, log: log}
}

// Analyze resolves one indicator against the evidence gathered for it. It
// never fails: missing data degrades to "unavailable" values and a zero
// progress, and a panic inside any step yields an error-tagged result.
func (e *Engine) Analyze(ctx context.Context, spec model.IndicatorSpec, ev model.Evidence) (res model.IndicatorResult) {
	log := e.log.With(zap.String("indicator", spec.Name))
	defer func() {
		if r := recover(); r != nil {
			log.Error("resolve: analysis panicked", zap.Any("panic", r))
			res = model.ErrorResult(spec, fmt.Sprintf("internal error: %v", r))
		}
	}()

	cls := Classify(spec.Name, spec.Target)
	pair := ExtractTarget(spec.Target)
	if pair.Rule == "" {
		log.Info("resolve: no target rule matched", zap.String("target", spec.TargetText()))
	} else {
		log.Debug("resolve: target extracted",
			zap.String("rule", pair.Rule),
			zap.Bool("complete", pair.Complete()),
		)
	}

	baseline := spec.Baseline
	if baseline == nil {
		baseline = pair.Baseline
	}

	var current *float64
	resolved := e.resolver.withLogger(log).Resolve(ev.Candidates())
	if resolved != nil {
		v := resolved.Value
		current = &v
	}

	outcome := ComputeProgress(baseline, current, pair.Target, cls.Direction)
	if outcome.Corrected {
		log.Warn("resolve: current value rescaled for progress",
			zap.Float64("reported", *current),
			zap.Float64("used", outcome.Current),
			zap.Float64("target", *pair.Target),
		)
	}
	status, efficiency := Band(outcome.Progress)
	progress, err := model.NewProgressResult(baseline, current, pair.Target, outcome.Progress, status, efficiency)
	if err != nil {
		log.Error("resolve: build progress", zap.Error(err))
		return model.ErrorResult(spec, err.Error())
	}

	res = model.IndicatorResult{
		Axis:      spec.Axis,
		Indicator: spec.Name,
		Target:    spec.TargetText(),
		Type:      cls.Type,
		Direction: cls.Direction,
		Unit:      cls.Unit,
		Source:    model.Unavailable,
		DataDate:  model.Unavailable,
		Resolved:  resolved,
	}
	res.ApplyProgress(progress)
	if src, ok := ev.FirstSource(); ok && src != "" {
		res.Source = src
	}
	if date, ok := ev.FirstDate(); ok && date != "" {
		res.DataDate = date
	}

	if baseline == nil || current == nil || pair.Target == nil {
		res.Narrative = narrative.InsufficientData
		return res
	}

	out := narrative.Narrate(ctx, e.narrator, narrative.Request{
		Indicator: spec.Name,
		Direction: cls.Direction,
		Baseline:  *baseline,
		Target:    *pair.Target,
		Current:   *current,
		Unit:      cls.Unit,
		Progress:  progress.Progress,
		Context:   strings.Join(ev.ContextSnippets(contextPerSource), "\n"),
	}, log)
	res.Narrative = out.Text

	log.Info("resolve: indicator analyzed",
		zap.Float64("progress", res.Progress),
		zap.String("status", string(res.Status)),
		zap.Bool("narrative_fallback", out.Fallback),
	)
	return res
}

func (r Resolver) withLogger(log *zap.Logger) Resolver {
	r.log = log
	return r
}
