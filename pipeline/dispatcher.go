package pipeline

import (
	"context"
	"sync"

	"github.com/a-runebou/DD2480-CI-V/model"
	"github.com/sirupsen/logrus"
)

// Runner executes one job. *Pipeline is the production Runner.
type Runner interface {
	Run(ctx context.Context, job model.Job) Result
}

// Dispatcher hands jobs to a fixed number of workers through a bounded
// queue. Submit never waits for a run to finish.
type Dispatcher struct {
	runner Runner
	jobs   chan model.Job
	log    *logrus.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines consuming a queue of queueSize jobs.
func NewDispatcher(runner Runner, workers, queueSize int, logger *logrus.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	d := &Dispatcher{
		runner: runner,
		jobs:   make(chan model.Job, queueSize),
		log:    logger,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work(i)
	}

	logger.Printf("Dispatcher started with %d workers and queue size %d", workers, queueSize)
	return d
}

// Submit queues a job. It returns ErrQueueFull when every worker is busy
// and the queue has no room, and ErrDispatcherClosed after Close.
func (d *Dispatcher) Submit(job model.Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued and in-flight runs to
// finish or ctx to expire. Runs are never cancelled.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for job := range d.jobs {
		d.runOne(id, job)
	}
}

func (d *Dispatcher) runOne(id int, job model.Job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"worker": id,
				"panic":  r,
			}).Errorf("[%s] Run panicked", job.ShortCommit())
		}
	}()
	d.runner.Run(context.Background(), job)
}
