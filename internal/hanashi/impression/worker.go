package impression

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bdobrica/hanashi/common/trace"
	"github.com/bdobrica/hanashi/internal/hanashi/metrics"
)

const (
	defaultQueueSize  = 64
	defaultJobTimeout = 5 * time.Minute
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// QueueSize bounds the number of pending jobs. Defaults to 64.
	QueueSize int
	// RatePerMinute limits impression completion calls. Zero disables pacing.
	RatePerMinute int
	// JobTimeout bounds one whole job. Defaults to five minutes.
	JobTimeout time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Worker runs impression jobs on a single background goroutine, so updates
// for the same user never interleave.
type Worker struct {
	updater    *Updater
	queue      chan Job
	jobTimeout time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu      sync.RWMutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewWorker wraps updater. When opts.RatePerMinute is set and the updater has
// no limiter yet, one is installed.
func NewWorker(updater *Updater, opts WorkerOptions) *Worker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RatePerMinute > 0 && updater.Limiter == nil {
		updater.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}
	return &Worker{
		updater:    updater,
		queue:      make(chan Job, opts.QueueSize),
		jobTimeout: opts.JobTimeout,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		done:       make(chan struct{}),
	}
}

// Start launches the consumer goroutine. Calling it more than once is a no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	go w.run()
}

// Submit enqueues job without blocking. It returns false when the queue is
// full or the worker has been stopped; the job is dropped in that case.
func (w *Worker) Submit(job Job) bool {
	if len(job.Candidates) == 0 {
		return false
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- job:
		return true
	default:
		w.metrics.ImpressionDropped()
		w.logger.Warn("impression queue full, dropping job",
			"job_id", job.ID,
			"group_id", job.GroupID,
			"trace_id", job.TraceID,
		)
		return false
	}
}

// Stop refuses new jobs, lets queued ones finish and waits for the consumer
// to exit. Safe to call multiple times.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	close(w.queue)
	started := w.started
	w.mu.Unlock()

	if !started {
		close(w.done)
		return
	}
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)
	for job := range w.queue {
		w.process(job)
	}
}

func (w *Worker) process(job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("impression job panicked",
				"job_id", job.ID,
				"trace_id", job.TraceID,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = trace.WithTraceID(ctx, job.TraceID)
	}

	start := time.Now()
	results := w.updater.Update(ctx, job)

	updated := 0
	for _, r := range results {
		if r.Status == StatusUpdated {
			updated++
		}
	}
	w.logger.Info("impression pass finished",
		"job_id", job.ID,
		"group_id", job.GroupID,
		"trace_id", job.TraceID,
		"candidates", len(job.Candidates),
		"updated", updated,
		"elapsed", time.Since(start).String(),
	)
}
