// Package worker provides a generic worker pool for batch calls to remote services.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSkipped is the result error of jobs that were not run because the
// pool was stopped or its context ended first.
var ErrSkipped = errors.New("job skipped")

// Job represents a unit of work with an index for ordering.
type Job[T any] struct {
	Index int
	Data  T
}

// Result represents the outcome of processing a Job.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// ProcessFunc processes a job and returns a result.
type ProcessFunc[I, O any] func(ctx context.Context, job Job[I]) (O, error)

// ProgressFunc is called after each job completes.
type ProgressFunc func(completed, total int)

// Options configures pool behavior.
type Options struct {
	Workers    int
	BufferSize int           // If 0, defaults to Workers
	Delay      time.Duration // pause each worker takes between jobs
	Stop       func() bool   // polled before each job; true skips the rest
}

// Pool manages concurrent job processing with a fixed number of workers.
type Pool[I, O any] struct {
	opts       Options
	process    ProcessFunc[I, O]
	onProgress ProgressFunc
	jobChan    chan Job[I]
	resultChan chan Result[O]
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewPool creates a new worker pool bound to ctx.
func NewPool[I, O any](ctx context.Context, opts Options, process ProcessFunc[I, O]) *Pool[I, O] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = opts.Workers
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[I, O]{
		opts:       opts,
		process:    process,
		jobChan:    make(chan Job[I], opts.BufferSize),
		resultChan: make(chan Result[O], opts.BufferSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetProgressCallback sets a callback to be called after each job completes.
func (p *Pool[I, O]) SetProgressCallback(fn ProgressFunc) {
	p.onProgress = fn
}

// Start begins the worker pool processing.
func (p *Pool[I, O]) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker drains jobChan. Every submitted job yields exactly one result,
// skipped jobs included, so Run can count completions.
func (p *Pool[I, O]) worker() {
	defer p.wg.Done()
	ran := false
	for job := range p.jobChan {
		if p.stopped() {
			p.resultChan <- Result[O]{Index: job.Index, Err: ErrSkipped}
			continue
		}
		if ran && p.opts.Delay > 0 {
			select {
			case <-p.ctx.Done():
				p.resultChan <- Result[O]{Index: job.Index, Err: ErrSkipped}
				continue
			case <-time.After(p.opts.Delay):
			}
		}
		ran = true
		value, err := p.process(p.ctx, job)
		p.resultChan <- Result[O]{Index: job.Index, Value: value, Err: err}
	}
}

func (p *Pool[I, O]) stopped() bool {
	if p.ctx.Err() != nil {
		return true
	}
	return p.opts.Stop != nil && p.opts.Stop()
}

// Submit adds a job to the pool.
func (p *Pool[I, O]) Submit(job Job[I]) {
	p.jobChan <- job
}

// SubmitAll submits multiple jobs.
func (p *Pool[I, O]) SubmitAll(jobs []Job[I]) {
	for _, job := range jobs {
		p.Submit(job)
	}
}

// Close stops accepting new jobs.
func (p *Pool[I, O]) Close() {
	close(p.jobChan)
}

// Wait waits for all workers to complete and closes the results channel.
func (p *Pool[I, O]) Wait() {
	p.wg.Wait()
	close(p.resultChan)
	p.cancel()
}

// Results returns the results channel for reading.
func (p *Pool[I, O]) Results() <-chan Result[O] {
	return p.resultChan
}

// Cancel skips every job not yet started.
func (p *Pool[I, O]) Cancel() {
	p.cancel()
}

// Run submits all jobs, starts workers, and collects results in order.
func (p *Pool[I, O]) Run(jobs []Job[I]) []Result[O] {
	total := len(jobs)
	results := make([]Result[O], total)

	p.Start()

	go func() {
		p.SubmitAll(jobs)
		p.Close()
		p.Wait()
	}()

	completed := 0
	for result := range p.Results() {
		if result.Index >= 0 && result.Index < total {
			results[result.Index] = result
		}
		completed++
		if p.onProgress != nil {
			p.onProgress(completed, total)
		}
	}

	return results
}

// ProcessAll runs process over items and returns one result per item in
// input order. Failures do not stop the batch; callers inspect each Err.
func ProcessAll[I, O any](ctx context.Context, items []I, opts Options, process ProcessFunc[I, O], onProgress ProgressFunc) []Result[O] {
	if len(items) == 0 {
		return nil
	}

	opts.Workers = min(max(opts.Workers, 1), len(items))
	opts.BufferSize = len(items)

	jobs := make([]Job[I], len(items))
	for i, item := range items {
		jobs[i] = Job[I]{Index: i, Data: item}
	}

	pool := NewPool[I, O](ctx, opts, process)
	pool.SetProgressCallback(onProgress)
	return pool.Run(jobs)
}

// Errors returns the non-nil, non-skip errors in results.
func Errors[O any](results []Result[O]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, ErrSkipped) {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
