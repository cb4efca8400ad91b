// Package dispatch queues jobs and runs them one at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"extci/internal/events"
	"extci/internal/jobs"
	"extci/internal/logging"
	"extci/internal/metrics"
	"extci/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrStopped     = errors.New("dispatcher is stopped")
	ErrJobFinished = errors.New("job already finished")
)

// Runner executes one job in workdir.
type Runner interface {
	Run(ctx context.Context, job models.Job, workdir string) (models.Job, error)
}

type Options struct {
	QueueSize int
	// Timeout bounds a single job; zero means no limit.
	Timeout time.Duration
	// CancelInProgress also cancels a running job when a newer push to the
	// same ref arrives. Queued jobs are always superseded.
	CancelInProgress bool
	// Workdir maps a job to its working directory.
	Workdir func(models.Job) string
}

type active struct {
	id     string
	ref    string
	cancel context.CancelFunc
}

type Dispatcher struct {
	runner Runner
	store  jobs.Store
	opts   Options
	log    *logrus.Entry

	queue chan models.Job
	quit  chan struct{}
	done  chan struct{}

	mu       sync.Mutex
	stopped  bool
	started  bool
	latest   map[string]string   // ref -> newest queued job id
	queued   map[string]struct{} // ids waiting in queue
	canceled map[string]string   // queued job id -> reason
	running  *active
}

func New(runner Runner, store jobs.Store, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.Workdir == nil {
		opts.Workdir = func(models.Job) string { return "." }
	}

	return &Dispatcher{
		runner:   runner,
		store:    store,
		opts:     opts,
		log:      logging.Component("dispatch"),
		queue:    make(chan models.Job, opts.QueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		latest:   map[string]string{},
		queued:   map[string]struct{}{},
		canceled: map[string]string{},
	}
}

// Submit records job as queued and hands it to the worker. Older queued
// jobs for the same ref are superseded.
func (d *Dispatcher) Submit(ctx context.Context, job models.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}
	if len(d.queue) >= cap(d.queue) {
		return ErrQueueFull
	}

	job.Status = models.JobStatusQueued
	if err := d.store.Create(ctx, job); err != nil {
		return fmt.Errorf("recording job: %w", err)
	}

	if prev, ok := d.latest[job.Ref]; ok {
		d.canceled[prev] = "superseded by " + job.ID
	}
	d.latest[job.Ref] = job.ID
	d.queued[job.ID] = struct{}{}

	if d.opts.CancelInProgress && d.running != nil && d.running.ref == job.Ref {
		d.log.WithFields(logrus.Fields{"job": d.running.id, "by": job.ID}).Info("canceling superseded job")
		d.running.cancel()
	}

	d.queue <- job
	metrics.QueueDepth(len(d.queue))
	events.Em.JobQueued(job)

	d.log.WithFields(logrus.Fields{"job": job.ID, "ref": job.Ref, "sha": job.SHA}).Info("job queued")
	return nil
}

// Cancel stops a queued or running job. A job record left unfinished by an
// earlier process is marked canceled directly.
func (d *Dispatcher) Cancel(ctx context.Context, id string) error {
	job, err := d.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Done() {
		return ErrJobFinished
	}

	d.mu.Lock()
	tracked := d.cancelLocked(id, "canceled by operator")
	d.mu.Unlock()
	if tracked {
		return nil
	}

	// not queued or running here: either it finished meanwhile or it is orphaned
	job, err = d.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Done() {
		return ErrJobFinished
	}
	d.finishCanceled(*job, "canceled by operator")
	return nil
}

// cancelLocked cancels id if this dispatcher is running or holding it.
// d.mu must be held.
func (d *Dispatcher) cancelLocked(id, reason string) bool {
	if d.running != nil && d.running.id == id {
		d.running.cancel()
		return true
	}
	if _, ok := d.queued[id]; ok {
		d.canceled[id] = reason
		return true
	}
	return false
}

// Start launches the worker. It returns immediately.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go d.work(ctx)
}

// Stop cancels the running job, drops the queue and waits for the worker
// until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	if d.running != nil {
		d.running.cancel()
	}
	close(d.quit)
	d.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-d.quit:
			d.drain()
			return
		case <-ctx.Done():
			d.drain()
			return
		case job := <-d.queue:
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) process(parent context.Context, job models.Job) {
	d.mu.Lock()
	metrics.QueueDepth(len(d.queue))
	if d.latest[job.Ref] == job.ID {
		delete(d.latest, job.Ref)
	}
	reason, skip := d.canceled[job.ID]
	delete(d.canceled, job.ID)
	delete(d.queued, job.ID)
	if skip || d.stopped {
		d.mu.Unlock()
		if !skip {
			reason = "runner shutting down"
		}
		d.finishCanceled(job, reason)
		return
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if d.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, d.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	d.running = &active{id: job.ID, ref: job.Ref, cancel: cancel}
	d.mu.Unlock()

	defer func() {
		cancel()
		d.mu.Lock()
		d.running = nil
		d.mu.Unlock()
	}()

	finished, err := d.runner.Run(ctx, job, d.opts.Workdir(job))
	if err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{"job": job.ID, "status": finished.Status}).Warn("job did not pass")
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case job := <-d.queue:
			d.mu.Lock()
			delete(d.queued, job.ID)
			delete(d.canceled, job.ID)
			if d.latest[job.Ref] == job.ID {
				delete(d.latest, job.Ref)
			}
			d.mu.Unlock()
			d.finishCanceled(job, "runner shutting down")
		default:
			metrics.QueueDepth(0)
			return
		}
	}
}

func (d *Dispatcher) finishCanceled(job models.Job, reason string) {
	now := time.Now().UTC()
	job.Status = models.JobStatusCanceled
	job.Error = reason
	job.FinishedAt = &now

	if err := d.store.Update(context.Background(), job); err != nil {
		d.log.WithError(err).WithField("job", job.ID).Warn("failed to record canceled job")
	}
	events.Em.JobFinished(job)
	d.log.WithFields(logrus.Fields{"job": job.ID, "reason": reason}).Info("job canceled before start")
}
