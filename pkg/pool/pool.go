// SPDX-License-Identifier: GPL-2.0-or-later

// Package pool runs GPS decoding on a fixed set of workers.
//
// A single goroutine owns the queue, the busy workers and the pending
// tasks. Everything else talks to it through channels.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dashgps/pkg/gps"
	"dashgps/pkg/log"
	"dashgps/pkg/metrics"
	"dashgps/pkg/system"

	"github.com/google/uuid"
)

// Errors.
var (
	ErrPoolUnavailable = errors.New("worker pool unavailable")
	ErrPoolClosed      = errors.New("worker pool closed")
	ErrWorkerFault     = errors.New("worker fault")
	ErrWorkerBusy      = errors.New("worker busy")
	ErrWorkerClosed    = errors.New("worker closed")
	ErrExtract         = errors.New("extraction failed")
)

// IsPoolError returns true if err is caused by the pool rather than the file.
func IsPoolError(err error) bool {
	return errors.Is(err, ErrPoolUnavailable) ||
		errors.Is(err, ErrPoolClosed) ||
		errors.Is(err, ErrWorkerFault)
}

// Results receives the output of a worker.
type Results interface {
	Respond(Response)
	Fault(error)
}

// Worker decodes one request at a time.
type Worker interface {
	// Post hands a request to the worker, it must not block.
	Post(Request) error
	Close()
}

// NewWorkerFunc creates a worker that reports to results.
type NewWorkerFunc func(results Results) (Worker, error)

// Config pool config.
type Config struct {
	// Number of workers, defaults to the number of logical cpus.
	Size int

	// Defaults to NewGoroutineWorker.
	NewWorker NewWorkerFunc

	Logger log.ILogger
}

// Stats pool stats.
type Stats struct {
	Workers int `json:"workers"`
	Busy    int `json:"busy"`
	Queued  int `json:"queued"`
	Pending int `json:"pending"`
}

// Task is a submitted extraction.
type Task struct {
	ID     string
	File   string
	Format gps.CameraFormat

	req        Request
	dispatched time.Time

	done  chan struct{}
	track gps.FileTrack
	err   error
}

func newTask(file string, format gps.CameraFormat) *Task {
	return &Task{
		ID:     "task-" + uuid.NewString(),
		File:   file,
		Format: format,
		done:   make(chan struct{}),
	}
}

func (t *Task) settle(track gps.FileTrack, err error) {
	t.track = track
	t.err = err
	close(t.done)
}

// Done is closed when the task is settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is settled or the context is canceled.
func (t *Task) Wait(ctx context.Context) (gps.FileTrack, error) {
	select {
	case <-t.done:
		return t.track, t.err
	case <-ctx.Done():
		return gps.FileTrack{}, ctx.Err()
	}
}

type workerEvent struct {
	worker int
	res    Response
	fault  error
}

// Pool of workers.
type Pool struct {
	log     log.ILogger
	workers []Worker

	// in
	submit chan *Task
	events chan workerEvent
	stats  chan chan Stats

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New creates the workers and starts the pool. Workers that fail to
// start are skipped, ErrPoolUnavailable is returned if none started.
func New(c Config) (*Pool, error) {
	if c.Size <= 0 {
		c.Size = system.Parallelism()
	}
	if c.NewWorker == nil {
		c.NewWorker = NewGoroutineWorker
	}
	if c.Logger == nil {
		c.Logger = log.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		log: c.Logger,

		submit: make(chan *Task),
		events: make(chan workerEvent),
		stats:  make(chan chan Stats),

		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	var lastErr error
	for i := 0; i < c.Size; i++ {
		w, err := c.NewWorker(workerResults{p: p, worker: len(p.workers)})
		if err != nil {
			lastErr = err
			log.Warnf(p.log, "pool", "could not create worker: %v", err)
			continue
		}
		p.workers = append(p.workers, w)
	}
	if len(p.workers) == 0 {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrPoolUnavailable, lastErr)
	}

	log.Debugf(p.log, "pool", "started %d workers", len(p.workers))
	go p.run()
	return p, nil
}

type workerResults struct {
	p      *Pool
	worker int
}

func (r workerResults) Respond(res Response) {
	r.p.send(workerEvent{worker: r.worker, res: res})
}

func (r workerResults) Fault(err error) {
	if err == nil {
		err = ErrWorkerFault
	}
	r.p.send(workerEvent{worker: r.worker, fault: err})
}

func (p *Pool) send(e workerEvent) {
	select {
	case p.events <- e:
	case <-p.ctx.Done():
	}
}

func (p *Pool) run() { //nolint:funlen
	defer close(p.done)

	var queue []*Task
	busy := make(map[int]*Task)
	pending := make(map[string]*Task)

	settle := func(task *Task, track gps.FileTrack, err error, result string) {
		delete(pending, task.ID)
		if !task.dispatched.IsZero() {
			metrics.TaskDurationMs.
				WithLabelValues(task.Format.String()).
				Observe(float64(time.Since(task.dispatched).Milliseconds()))
		}
		metrics.TasksCompleted.WithLabelValues(result).Inc()
		task.settle(track, err)
	}

	fault := func(worker int, task *Task, err error) {
		metrics.WorkerFaults.Inc()
		if task == nil {
			log.Errorf(p.log, "pool", "worker %d: %v", worker, err)
			return
		}
		log.Errorf(p.log, "pool", "worker %d: %v: %v", worker, task.File, err)
		settle(task, gps.FileTrack{}, fmt.Errorf("%w: %v", ErrWorkerFault, err), metrics.ResultFault)
	}

	dispatch := func() {
		for i, w := range p.workers {
			if len(queue) == 0 {
				break
			}
			if _, isBusy := busy[i]; isBusy {
				continue
			}

			task := queue[0]
			queue[0] = nil
			queue = queue[1:]

			task.dispatched = time.Now()
			if err := w.Post(task.req); err != nil {
				fault(i, task, err)
				continue
			}
			busy[i] = task
		}
		metrics.QueueDepth.Set(float64(len(queue)))
		metrics.BusyWorkers.Set(float64(len(busy)))
	}

	for {
		select {
		case task := <-p.submit:
			pending[task.ID] = task
			queue = append(queue, task)
			dispatch()

		case e := <-p.events:
			inFlight := busy[e.worker]
			delete(busy, e.worker)

			if e.fault != nil {
				fault(e.worker, inFlight, e.fault)
				dispatch()
				continue
			}

			task, exist := pending[e.res.ID]
			if !exist {
				log.Debugf(p.log, "pool", "response for unknown task: %v", e.res.ID)
				dispatch()
				continue
			}
			switch {
			case !e.res.Success:
				err := fmt.Errorf("%w: %v: %v", ErrExtract, task.File, e.res.Error)
				settle(task, gps.FileTrack{}, err, metrics.ResultFailure)
			case e.res.Data == nil:
				settle(task, gps.FileTrack{Name: task.File}, nil, metrics.ResultSuccess)
			default:
				settle(task, *e.res.Data, nil, metrics.ResultSuccess)
			}
			dispatch()

		case ret := <-p.stats:
			ret <- Stats{
				Workers: len(p.workers),
				Busy:    len(busy),
				Queued:  len(queue),
				Pending: len(pending),
			}

		case <-p.ctx.Done():
			for _, task := range pending {
				settle(task, gps.FileTrack{}, ErrPoolClosed, metrics.ResultClosed)
			}
			metrics.QueueDepth.Set(0)
			metrics.BusyWorkers.Set(0)
			return
		}
	}
}

// Submit queues a file for decoding and returns immediately.
// A file that cannot be read settles the task with an error.
func (p *Pool) Submit(f gps.File, format gps.CameraFormat) (*Task, error) {
	task := newTask(f.Name(), format)

	ref, err := fileRef(f)
	if err != nil {
		task.settle(gps.FileTrack{}, fmt.Errorf("%w: read %v: %v", ErrExtract, f.Name(), err))
		return task, nil
	}
	task.req = Request{File: ref, Format: format, ID: task.ID}

	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case p.submit <- task:
		metrics.TasksSubmitted.Inc()
		return task, nil
	case <-p.done:
		return nil, ErrPoolClosed
	}
}

// Stats returns the current pool stats.
func (p *Pool) Stats() Stats {
	ret := make(chan Stats, 1)
	select {
	case p.stats <- ret:
		return <-ret
	case <-p.done:
		return Stats{Workers: len(p.workers)}
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Close stops the pool and its workers. Unsettled tasks
// fail with ErrPoolClosed and later submits are rejected.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done
		for _, w := range p.workers {
			w.Close()
		}
		log.Debugf(p.log, "pool", "closed")
	})
}
