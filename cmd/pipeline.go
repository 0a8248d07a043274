package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/batch"
	"github.com/sells-group/indicator-cli/internal/config"
	"github.com/sells-group/indicator-cli/internal/fetcher"
	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/narrative"
	"github.com/sells-group/indicator-cli/internal/ocr"
	"github.com/sells-group/indicator-cli/internal/producer"
	"github.com/sells-group/indicator-cli/internal/resilience"
	"github.com/sells-group/indicator-cli/internal/resolve"
	"github.com/sells-group/indicator-cli/internal/store"
	"github.com/sells-group/indicator-cli/internal/workbook"
	"github.com/sells-group/indicator-cli/pkg/anthropic"
)

// pipelineEnv holds the shared, read-only collaborators of a batch. Each
// indicator still gets its own fetcher, producers and engine.
type pipelineEnv struct {
	cfg     *config.Config
	catalog *producer.Catalog
	client  anthropic.Client // nil when no API key is configured
	ocr     ocr.Extractor
	store   store.Store // nil when the run log is disabled
	log     *zap.Logger

	// newWorker overrides the network-backed worker factory.
	newWorker batch.Factory
}

// initPipeline builds the environment for the analyze and serve commands.
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	log := zap.L()

	catalog, err := producer.LoadCatalog(cfg.Sources.File)
	if err != nil {
		return nil, err
	}

	ex, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}

	var client anthropic.Client
	if cfg.Anthropic.Key != "" {
		client = anthropic.NewClient(cfg.Anthropic.Key)
	} else {
		log.Warn("anthropic key not set, using pattern extraction and template narratives only")
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	return &pipelineEnv{
		cfg:     cfg,
		catalog: catalog,
		client:  client,
		ocr:     ex,
		store:   st,
		log:     log,
	}, nil
}

// Close releases the run log.
func (e *pipelineEnv) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func (e *pipelineEnv) retryConfig() resilience.RetryConfig {
	return resilience.FromSettings(e.cfg.Retry.MaxAttempts, e.cfg.Retry.InitialBackoffMs)
}

// engine builds a resolution engine with the configured thresholds.
func (e *pipelineEnv) engine(log *zap.Logger) *resolve.Engine {
	r := resolve.NewResolver(e.cfg.Resolve.ReportingYear, log)
	if e.cfg.Resolve.ConfidenceThreshold > 0 {
		r.ConfidenceThreshold = e.cfg.Resolve.ConfidenceThreshold
	}
	if e.cfg.Resolve.RelevanceThreshold > 0 {
		r.RelevanceThreshold = e.cfg.Resolve.RelevanceThreshold
	}

	var narrator narrative.Service
	if e.client != nil && e.cfg.Narrative.Enabled {
		narrator = narrative.NewClaudeService(e.client, e.cfg.Narrative.Model, e.cfg.Narrative.MaxTokens, e.retryConfig(), log)
	}
	return resolve.NewEngine(r, narrator, log)
}

// factory returns the batch worker factory. Every worker gets a private
// fetcher and rate limiters.
func (e *pipelineEnv) factory() batch.Factory {
	if e.newWorker != nil {
		return e.newWorker
	}
	return func() (batch.Worker, error) {
		fc := e.cfg.Fetch
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  fc.UserAgent,
			Timeout:    time.Duration(fc.TimeoutSecs) * time.Second,
			MaxRetries: fc.MaxRetries,
			HostRPS:    fc.HostRPS,
			Logger:     e.log,
		})
		docs := producer.NewRetriever(f, e.ocr, fc.TempDir, e.log)

		var modelEx producer.ModelExtractor
		if e.client != nil {
			modelEx = producer.NewModelProducer(e.client, e.cfg.Anthropic.Model, e.cfg.Anthropic.MaxTokens,
				e.cfg.Resolve.ReportingYear, e.retryConfig(), e.log)
		}
		patterns := producer.NewPatternProducer(e.cfg.Resolve.ReportingYear, e.log)

		collector := producer.NewCollector(e.catalog, docs, modelEx, patterns, producer.CollectorOptions{
			MinPageChars:   fc.MinPageChars,
			SourceInterval: time.Duration(fc.SourceIntervalMs) * time.Millisecond,
		}, e.log)

		return &batch.PipelineWorker{Evidence: collector, Engine: e.engine(e.log)}, nil
	}
}

// analyze runs a batch and records it in the run log. Run log failures are
// logged and never fail the batch.
func (e *pipelineEnv) analyze(ctx context.Context, origin string, specs []model.IndicatorSpec) ([]model.IndicatorResult, error) {
	log := e.log
	var run *model.Run
	if e.store != nil {
		r, err := e.store.CreateRun(ctx, origin, len(specs))
		if err != nil {
			log.Warn("run log: create run failed", zap.Error(err))
		} else {
			run = r
			log = log.With(zap.String("run_id", run.ID))
		}
	}

	log.Info("batch started", zap.Int("indicators", len(specs)), zap.String("origin", origin))
	start := time.Now()

	results, sum, err := batch.Run(ctx, specs, e.factory(), batch.Options{
		Workers: e.cfg.Batch.Workers,
		Timeout: time.Duration(e.cfg.Batch.TimeoutSecs) * time.Second,
		Logger:  log,
	})

	if run != nil {
		out := store.RunOutcome{Status: model.RunStatusComplete, Succeeded: sum.Succeeded, Failed: sum.Failed}
		if err != nil {
			out.Status = model.RunStatusFailed
			out.Error = err.Error()
		}
		// The request context may already be cancelled.
		if ferr := e.store.FinishRun(context.WithoutCancel(ctx), run.ID, out); ferr != nil {
			log.Warn("run log: finish run failed", zap.Error(ferr))
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info("batch complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// specsFromRows converts wire rows into indicator specs.
func specsFromRows(rows []model.IndicatorRow) []model.IndicatorSpec {
	specs := make([]model.IndicatorSpec, len(rows))
	for i, r := range rows {
		specs[i] = r.Spec(resolve.ParseNumber)
	}
	return specs
}

// readIndicators loads rows from a workbook (.xlsx) or a JSON file holding
// either an array of rows or an object with an "indicators" array.
func readIndicators(path string) ([]model.IndicatorRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return workbook.LoadIndicators(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read indicators %s", path)
	}
	return decodeIndicators(data)
}

func decodeIndicators(data []byte) ([]model.IndicatorRow, error) {
	var rows []model.IndicatorRow
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows, nil
	}

	var wrapped struct {
		Indicators []model.IndicatorRow `json:"indicators"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, eris.Wrap(err, "decode indicators")
	}
	return wrapped.Indicators, nil
}
