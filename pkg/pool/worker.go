// SPDX-License-Identifier: GPL-2.0-or-later

package pool

import (
	"fmt"
	"sync"
)

// HandlerFunc decodes a request.
type HandlerFunc func(Request) Response

// GoroutineWorkers returns a NewWorkerFunc for workers that run h in
// their own goroutine. A panic in h is reported as a fault.
func GoroutineWorkers(h HandlerFunc) NewWorkerFunc {
	return func(results Results) (Worker, error) {
		w := &goroutineWorker{
			handler:  h,
			results:  results,
			requests: make(chan Request, 1),
			done:     make(chan struct{}),
		}
		go w.run()
		return w, nil
	}
}

// NewGoroutineWorker returns a worker that runs Handle in a goroutine.
func NewGoroutineWorker(results Results) (Worker, error) {
	return GoroutineWorkers(Handle)(results)
}

type goroutineWorker struct {
	handler  HandlerFunc
	results  Results
	requests chan Request

	done      chan struct{}
	closeOnce sync.Once
}

func (w *goroutineWorker) run() {
	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			w.handle(req)
		}
	}
}

func (w *goroutineWorker) handle(req Request) {
	defer func() {
		if r := recover(); r != nil {
			w.results.Fault(fmt.Errorf("panic: %v", r))
		}
	}()
	w.results.Respond(w.handler(req))
}

func (w *goroutineWorker) Post(req Request) error {
	select {
	case <-w.done:
		return ErrWorkerClosed
	default:
	}
	select {
	case w.requests <- req:
		return nil
	default:
		return ErrWorkerBusy
	}
}

func (w *goroutineWorker) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}
