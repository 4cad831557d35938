package unsaver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"redditsaver/pkg/logger"
	"redditsaver/pkg/metrics"
	"redditsaver/pkg/retry"
)

// Client removes one item from the saved list
type Client interface {
	Unsave(ctx context.Context, fullname, token string) error
}

// Job represents a single unsave task
type Job struct {
	Fullname string
}

// Result represents the outcome of a job
type Result struct {
	Job      Job
	Success  bool
	Error    error
	Duration time.Duration
}

// Options configures a WorkerPool
type Options struct {
	Workers int
	Token   string
	// Retry defaults to a single attempt
	Retry *retry.Config
}

// WorkerPool runs unsave calls on a fixed number of workers
type WorkerPool struct {
	numWorkers  int
	token       string
	retry       *retry.Config
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      Client
	logger      logger.Logger
}

// NewWorkerPool creates a pool. Call Start before Submit.
func NewWorkerPool(client Client, opts Options, log logger.Logger) *WorkerPool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Retry == nil {
		opts.Retry = retry.NoRetry()
	}

	return &WorkerPool{
		numWorkers:  opts.Workers,
		token:       opts.Token,
		retry:       opts.Retry,
		jobQueue:    make(chan Job, opts.Workers*2),
		resultQueue: make(chan Result, opts.Workers),
		client:      client,
		logger:      logger.OrNop(log),
	}
}

// Start launches the workers. They stop early when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.ctx, wp.cancel = context.WithCancel(ctx)

	logger.LogComponentStart(wp.logger, "unsave pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	logger.LogComponentStop(wp.logger, "unsave pool", "queue drained")
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("unsave pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel. It is closed by Stop.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := wp.processJob(job)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job) Result {
	start := time.Now()

	err := retry.Do(wp.ctx, func(ctx context.Context) error {
		return wp.client.Unsave(ctx, job.Fullname, wp.token)
	}, wp.retry)

	logger.LogUnsave(wp.logger, job.Fullname, err)
	metrics.ObserveUnsave(err)

	return Result{
		Job:      job,
		Success:  err == nil,
		Error:    err,
		Duration: time.Since(start),
	}
}

// Run unsaves every fullname and returns one result per processed job, in
// completion order. On cancellation the jobs not yet started have no result
// and ctx's error is returned.
func Run(ctx context.Context, client Client, fullnames []string, opts Options, log logger.Logger) ([]Result, error) {
	pool := NewWorkerPool(client, opts, log)
	pool.Start(ctx)

	go func() {
		defer pool.Stop()
		for _, name := range fullnames {
			if err := pool.Submit(Job{Fullname: name}); err != nil {
				return
			}
		}
	}()

	results := make([]Result, 0, len(fullnames))
	for result := range pool.Results() {
		results = append(results, result)
	}

	return results, ctx.Err()
}

// Summarize counts successes and failures
func Summarize(results []Result) (succeeded, failed int) {
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
