package producer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/indicator-cli/internal/model"
)

// Collector defaults.
const (
	DefaultMinPageChars   = 200
	DefaultSourceInterval = 2 * time.Second
)

// TextSource returns the plain text of a source URL.
type TextSource interface {
	Text(ctx context.Context, url string) (*Document, error)
}

// ModelExtractor proposes model candidates for an indicator in a document.
type ModelExtractor interface {
	Extract(ctx context.Context, name string, target any, text string) ([]model.Candidate, error)
}

// CollectorOptions tunes a Collector.
type CollectorOptions struct {
	// MinPageChars is the minimum text length for web pages. PDFs only need
	// to be non-empty.
	MinPageChars int
	// SourceInterval is the minimum gap between two sources.
	SourceInterval time.Duration
}

// Collector walks the catalogue sources for an indicator and gathers
// candidates from each, model first with pattern fallback.
type Collector struct {
	catalog      *Catalog
	docs         TextSource
	model        ModelExtractor
	pattern      *PatternProducer
	pacer        *rate.Limiter
	minPageChars int
	log          *zap.Logger
}

// NewCollector creates a Collector. A nil model extractor means pattern
// extraction only. A Collector paces its own requests and must not be shared
// between workers.
func NewCollector(catalog *Catalog, docs TextSource, modelEx ModelExtractor, pattern *PatternProducer, opts CollectorOptions, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if pattern == nil {
		pattern = NewPatternProducer(0, log)
	}
	if opts.MinPageChars <= 0 {
		opts.MinPageChars = DefaultMinPageChars
	}
	limit := rate.Inf
	if opts.SourceInterval > 0 {
		limit = rate.Every(opts.SourceInterval)
	}
	return &Collector{
		catalog:      catalog,
		docs:         docs,
		model:        modelEx,
		pattern:      pattern,
		pacer:        rate.NewLimiter(limit, 1),
		minPageChars: opts.MinPageChars,
		log:          log,
	}
}

// Collect gathers evidence for spec. Failing sources are logged and skipped;
// the only error is context cancellation, returned with whatever was
// gathered so far.
func (c *Collector) Collect(ctx context.Context, spec model.IndicatorSpec) (model.Evidence, error) {
	log := c.log.With(zap.String("indicator", spec.Name))
	urls, keyword := c.catalog.Sources(spec.Name)
	log.Info("collect: sources identified",
		zap.String("keyword", keyword),
		zap.Int("sources", len(urls)),
	)

	var ev model.Evidence
	for i, url := range urls {
		if err := c.pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ev, ctx.Err()
			}
			return ev, eris.Wrap(err, "collect: wait for source slot")
		}

		report, err := c.collectSource(ctx, log, spec, url)
		if err != nil {
			if ctx.Err() != nil {
				return ev, ctx.Err()
			}
			log.Warn("collect: source failed",
				zap.String("url", url),
				zap.Int("position", i+1),
				zap.Error(err),
			)
			continue
		}
		if report != nil {
			ev.Reports = append(ev.Reports, *report)
		}
	}

	log.Info("collect: finished", zap.Int("reports", len(ev.Reports)))
	return ev, nil
}

func (c *Collector) collectSource(ctx context.Context, log *zap.Logger, spec model.IndicatorSpec, url string) (*model.SourceReport, error) {
	doc, err := c.docs.Text(ctx, url)
	if err != nil {
		return nil, err
	}

	chars := utf8.RuneCountInString(strings.TrimSpace(doc.Text))
	if chars == 0 || (!doc.PDF && chars <= c.minPageChars) {
		log.Info("collect: source text too short",
			zap.String("url", url),
			zap.Int("chars", chars),
		)
		return nil, nil
	}

	if c.model != nil {
		cands, err := c.model.Extract(ctx, spec.Name, spec.Target, doc.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn("collect: model extraction failed, using patterns",
				zap.String("url", url),
				zap.Error(err),
			)
		}
		if len(cands) > 0 {
			return newReport(url, model.ProvenanceModel, cands), nil
		}
	}

	cands := c.pattern.Extract(spec.Name, spec.Target, doc.Text)
	if len(cands) == 0 {
		return nil, nil
	}
	return newReport(url, model.ProvenancePattern, cands), nil
}

func newReport(url string, method model.Provenance, cands []model.Candidate) *model.SourceReport {
	report := &model.SourceReport{Source: url, Method: method}
	for _, cand := range cands {
		cand.Source = url
		report.Candidates = append(report.Candidates, cand)
		report.Dates = append(report.Dates, dateLabel(cand, method))
	}
	return report
}

// dateLabel renders "<month> <year>" for model candidates and
// "Año <year>" for pattern candidates, with "?" for an unknown year.
func dateLabel(c model.Candidate, method model.Provenance) string {
	year := "?"
	if c.Year != nil {
		year = fmt.Sprintf("%d", *c.Year)
	}
	prefix := "Año"
	if method == model.ProvenanceModel && c.Month != "" {
		prefix = c.Month
	}
	return prefix + " " + year
}
