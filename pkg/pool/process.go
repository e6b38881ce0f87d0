// SPDX-License-Identifier: GPL-2.0-or-later

package pool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"dashgps/pkg/log"
)

// NewProcessWorkers returns a NewWorkerFunc for workers that decode in a
// child process started with bin and args. The child must run ServeWorker.
func NewProcessWorkers(logger log.ILogger, bin string, args ...string) NewWorkerFunc {
	return NewCmdWorkers(logger, func() *exec.Cmd {
		return exec.Command(bin, args...)
	})
}

// NewCmdWorkers is NewProcessWorkers with a custom command.
// A child that exits is restarted on the next request.
func NewCmdWorkers(logger log.ILogger, newCmd func() *exec.Cmd) NewWorkerFunc {
	return func(results Results) (Worker, error) {
		w := &processWorker{
			newCmd:  newCmd,
			results: results,
			log:     logger,
			timeout: time.Second,
		}
		if err := w.start(); err != nil {
			return nil, err
		}
		return w, nil
	}
}

type processWorker struct {
	newCmd  func() *exec.Cmd
	results Results
	log     log.ILogger
	timeout time.Duration

	mu     sync.Mutex
	child  *child
	closed bool
}

// child is a single run of the worker process.
type child struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	requests chan Request

	// Closed when the process has exited.
	done chan struct{}
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Caller must hold lock.
func (w *processWorker) start() error {
	cmd := w.newCmd()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker process: %w", err)
	}

	c := &child{
		cmd:      cmd,
		stdin:    stdin,
		requests: make(chan Request, 1),
		done:     make(chan struct{}),
	}
	w.child = c

	go w.logStderr(stderr)
	go c.writeRequests()
	go w.readResponses(c, stdout)
	return nil
}

func (w *processWorker) logStderr(pipe io.Reader) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		log.Debugf(w.log, "worker", "stderr: %v", scanner.Text())
	}
}

func (c *child) writeRequests() {
	enc := json.NewEncoder(c.stdin)
	for {
		select {
		case <-c.done:
			return
		case req := <-c.requests:
			if err := enc.Encode(req); err != nil {
				c.cmd.Process.Kill() //nolint:errcheck
				return
			}
		}
	}
}

func (w *processWorker) readResponses(c *child, stdout io.Reader) {
	dec := json.NewDecoder(stdout)
	for {
		var res Response
		err := dec.Decode(&res)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.cmd.Process.Kill() //nolint:errcheck
			}
			break
		}
		w.results.Respond(res)
	}

	err := c.cmd.Wait()
	close(c.done)

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	if err == nil {
		err = ErrWorkerClosed
	}
	w.results.Fault(fmt.Errorf("worker process exited: %w", err))
}

func (w *processWorker) Post(req Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}
	if w.child == nil || w.child.exited() {
		if err := w.start(); err != nil {
			return err
		}
	}

	select {
	case w.child.requests <- req:
		return nil
	default:
		return ErrWorkerBusy
	}
}

// Close closes stdin and kills the child if it
// does not exit before the timeout.
func (w *processWorker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	c := w.child
	w.mu.Unlock()

	if c == nil {
		return
	}
	c.stdin.Close()
	select {
	case <-c.done:
	case <-time.After(w.timeout):
		c.cmd.Process.Kill() //nolint:errcheck
		<-c.done
	}
}

// ServeWorker is the child side of a process worker. It decodes
// newline delimited requests from r and writes responses to w
// until r is closed or the context is canceled.
func ServeWorker(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := enc.Encode(Handle(req)); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}
