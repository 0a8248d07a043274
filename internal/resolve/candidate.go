package resolve

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/model"
)

// Resolver defaults.
const (
	DefaultReportingYear       = 2025
	DefaultConfidenceThreshold = 6
	DefaultRelevanceThreshold  = 15
)

// Resolution reasons attached to ResolvedValue.
const (
	ReasonModelConfident   = "model_high_confidence"
	ReasonPatternOverModel = "pattern_over_low_confidence_model"
	ReasonModelPreferred   = "model_preferred_over_pattern"
	ReasonPatternOnly      = "pattern_only"
	ReasonModelOnly        = "model_only_low_confidence"
)

// Resolver picks one current value out of a candidate set. It holds no
// mutable state; Resolve is deterministic for a given input order.
type Resolver struct {
	ReportingYear int
	// ConfidenceThreshold is the model confidence that short-circuits
	// pattern evidence.
	ConfidenceThreshold int
	// RelevanceThreshold is the pattern relevance above which pattern
	// evidence beats a low-confidence model candidate.
	RelevanceThreshold float64

	log *zap.Logger
}

// NewResolver returns a Resolver with the default thresholds.
func NewResolver(reportingYear int, log *zap.Logger) Resolver {
	if reportingYear <= 0 {
		reportingYear = DefaultReportingYear
	}
	if log == nil {
		log = zap.NewNop()
	}
	return Resolver{
		ReportingYear:       reportingYear,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		RelevanceThreshold:  DefaultRelevanceThreshold,
		log:                 log,
	}
}

// Resolve selects the current value. It returns nil when there are no
// candidates.
func (r Resolver) Resolve(candidates []model.Candidate) *model.ResolvedValue {
	log := r.log
	if log == nil {
		log = zap.NewNop()
	}

	var models, patterns []model.Candidate
	for _, c := range candidates {
		switch c.Provenance {
		case model.ProvenanceModel:
			models = append(models, c)
		case model.ProvenancePattern:
			patterns = append(patterns, c)
		default:
			log.Warn("resolve: dropped candidate with unknown provenance",
				zap.String("provenance", string(c.Provenance)),
				zap.Float64("value", c.Value),
			)
		}
	}

	log.Debug("resolve: partitioned candidates",
		zap.Int("total", len(candidates)),
		zap.Int("model", len(models)),
		zap.Int("pattern", len(patterns)),
	)

	year := r.ReportingYear
	sort.SliceStable(models, func(i, j int) bool {
		a, b := models[i], models[j]
		if ya, yb := a.YearIs(year), b.YearIs(year); ya != yb {
			return ya
		}
		if ca, cb := a.ConfidenceOrZero(), b.ConfidenceOrZero(); ca != cb {
			return ca > cb
		}
		return a.Relevance > b.Relevance
	})

	var bestModel *model.Candidate
	if len(models) > 0 {
		bestModel = &models[0]
		if bestModel.ConfidenceOrZero() >= r.ConfidenceThreshold {
			return r.pick(log, *bestModel, ReasonModelConfident)
		}
	}

	if len(patterns) > 0 {
		sort.SliceStable(patterns, func(i, j int) bool {
			a, b := patterns[i], patterns[j]
			if ya, yb := a.YearIs(year), b.YearIs(year); ya != yb {
				return ya
			}
			return a.Relevance > b.Relevance
		})
		bestPattern := patterns[0]

		if bestModel == nil {
			return r.pick(log, bestPattern, ReasonPatternOnly)
		}
		if bestModel.ConfidenceOrZero() < r.ConfidenceThreshold && bestPattern.Relevance > r.RelevanceThreshold {
			return r.pick(log, bestPattern, ReasonPatternOverModel)
		}
		return r.pick(log, *bestModel, ReasonModelPreferred)
	}

	if bestModel != nil {
		return r.pick(log, *bestModel, ReasonModelOnly)
	}

	log.Info("resolve: no candidates")
	return nil
}

func (r Resolver) pick(log *zap.Logger, c model.Candidate, reason string) *model.ResolvedValue {
	fields := []zap.Field{
		zap.Float64("value", c.Value),
		zap.String("provenance", string(c.Provenance)),
		zap.String("reason", reason),
		zap.Float64("relevance", c.Relevance),
	}
	if c.Confidence != nil {
		fields = append(fields, zap.Int("confidence", *c.Confidence))
	}
	if c.Year != nil {
		fields = append(fields, zap.Int("year", *c.Year))
	}
	log.Info("resolve: selected current value", fields...)
	return &model.ResolvedValue{Value: c.Value, Winner: c, Reason: reason}
}
