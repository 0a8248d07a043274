// Package batch resolves many indicators concurrently under a bounded
// worker pool. Each indicator gets a private worker and its own deadline, and
// its failures stay confined to its own result slot.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/indicator-cli/internal/model"
)

// Pool defaults.
const (
	DefaultWorkers = 2
	DefaultTimeout = 600 * time.Second
)

var (
	// ErrEmptyBatch is returned when there is nothing to resolve.
	ErrEmptyBatch = eris.New("batch: no indicators")
	// ErrIndicatorTimeout tags an indicator that did not finish in time.
	ErrIndicatorTimeout = eris.New("batch: indicator timed out")
)

// Worker resolves one indicator end to end.
type Worker interface {
	Run(ctx context.Context, spec model.IndicatorSpec) (model.IndicatorResult, error)
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, spec model.IndicatorSpec) (model.IndicatorResult, error)

// Run implements Worker.
func (f WorkerFunc) Run(ctx context.Context, spec model.IndicatorSpec) (model.IndicatorResult, error) {
	return f(ctx, spec)
}

// Factory builds a fresh Worker for each indicator so no stateful
// collaborator is shared between concurrent tasks.
type Factory func() (Worker, error)

// Options configures Run.
type Options struct {
	Workers int
	Timeout time.Duration
	Logger  *zap.Logger
}

// Summary counts indicator outcomes.
type Summary struct {
	Succeeded int
	Failed    int
}

type indexKey struct{}

// IndexFromContext returns the input position of the indicator a worker is
// running for. It is set on every context Run hands to a Worker.
func IndexFromContext(ctx context.Context) (int, bool) {
	i, ok := ctx.Value(indexKey{}).(int)
	return i, ok
}

type outcome struct {
	res model.IndicatorResult
	err error
}

// Run resolves specs with at most min(Workers, len(specs)) tasks in flight.
// Results keep the input order. A timeout, error or panic in one indicator
// becomes an error-tagged result for that index; only an empty batch fails
// the call.
func Run(ctx context.Context, specs []model.IndicatorSpec, factory Factory, opts Options) ([]model.IndicatorResult, Summary, error) {
	if len(specs) == 0 {
		return nil, Summary{}, ErrEmptyBatch
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, len(specs))
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log.Info("batch: starting",
		zap.Int("indicators", len(specs)),
		zap.Int("workers", workers),
		zap.Duration("timeout", timeout),
	)

	results := make([]model.IndicatorResult, len(specs))
	var succeeded, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)

	for i, spec := range specs {
		g.Go(func() error {
			ilog := log.With(
				zap.Int("index", i+1),
				zap.String("indicator", spec.Name),
			)

			res := runOne(ctx, i, spec, factory, timeout, ilog)
			results[i] = res
			if res.Status == model.StatusError {
				failed.Add(1)
			} else {
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
	log.Info("batch: complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)
	return results, sum, nil
}

func runOne(ctx context.Context, index int, spec model.IndicatorSpec, factory Factory, timeout time.Duration, log *zap.Logger) model.IndicatorResult {
	if err := ctx.Err(); err != nil {
		log.Warn("batch: skipped, batch cancelled", zap.Error(err))
		return model.ErrorResult(spec, err.Error())
	}

	worker, err := factory()
	if err != nil {
		log.Error("batch: build worker", zap.Error(err))
		return model.ErrorResult(spec, err.Error())
	}

	tctx, cancel := context.WithTimeout(context.WithValue(ctx, indexKey{}, index), timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: eris.Errorf("batch: panic: %v", r)}
			}
		}()
		res, err := worker.Run(tctx, spec)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		// A worker that honours its deadline can report before tctx.Done
		// is observed.
		if errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return timeoutResult(spec, timeout, log)
		}
		if out.err != nil {
			log.Error("batch: indicator failed", zap.Error(out.err))
			return model.ErrorResult(spec, out.err.Error())
		}
		return out.res
	case <-tctx.Done():
		if ctx.Err() != nil {
			log.Warn("batch: indicator cancelled", zap.Error(ctx.Err()))
			return model.ErrorResult(spec, ctx.Err().Error())
		}
		return timeoutResult(spec, timeout, log)
	}
}

func timeoutResult(spec model.IndicatorSpec, timeout time.Duration, log *zap.Logger) model.IndicatorResult {
	log.Error("batch: indicator timed out", zap.Duration("timeout", timeout))
	return model.ErrorResult(spec, fmt.Sprintf("%s after %s", ErrIndicatorTimeout.Error(), timeout))
}
