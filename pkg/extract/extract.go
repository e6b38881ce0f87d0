// SPDX-License-Identifier: GPL-2.0-or-later

// Package extract decodes a batch of dashcam files into paired recordings.
package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dashgps/pkg/gps"
	"dashgps/pkg/loader"
	"dashgps/pkg/log"
	"dashgps/pkg/metrics"
	"dashgps/pkg/pair"
	"dashgps/pkg/pool"
)

// Pool decodes files concurrently.
type Pool interface {
	Submit(gps.File, gps.CameraFormat) (*pool.Task, error)
}

// Config extractor config.
type Config struct {
	Pool       Pool
	UseWorkers bool
	Rules      []loader.Rule
	Window     time.Duration
	Logger     log.ILogger
}

// Option configures the extractor.
type Option func(*Config)

// WithPool sets the worker pool, files are decoded in-process without one.
func WithPool(p Pool) Option {
	return func(c *Config) {
		c.Pool = p
	}
}

// WithWorkers enables or disables the worker pool.
func WithWorkers(enable bool) Option {
	return func(c *Config) {
		c.UseWorkers = enable
	}
}

// WithRules sets the format detection rules.
func WithRules(rules ...loader.Rule) Option {
	return func(c *Config) {
		c.Rules = rules
	}
}

// WithWindow sets the pairing window.
func WithWindow(window time.Duration) Option {
	return func(c *Config) {
		c.Window = window
	}
}

// WithLogger sets the logger.
func WithLogger(l log.ILogger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func defaultConfig() Config {
	return Config{
		UseWorkers: true,
		Rules:      loader.DefaultRules,
		Window:     pair.Window,
		Logger:     log.Discard,
	}
}

// Extractor decodes batches of files.
type Extractor struct {
	c Config
}

// New returns a new extractor.
func New(opts ...Option) *Extractor {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = log.Discard
	}
	if c.Window <= 0 {
		c.Window = pair.Window
	}
	return &Extractor{c: c}
}

// Extract decodes the front and rear files of the detected camera format
// and pairs them. Files of other formats are ignored. Files that cannot be
// read are left out. If the pool fails the whole batch is decoded in-process.
// Progress is called once per decoded or failed file as it finishes.
func (e *Extractor) Extract(
	ctx context.Context,
	files []gps.File,
	progress func(),
) ([]pair.Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := loader.SelectFiles(files, e.c.Rules...)
	format, ok := l.Format()
	if !ok {
		log.Debugf(e.c.Logger, "extract", "no camera format matched %d files", len(files))
		return nil, nil
	}
	front, rear := l.Files(files)
	log.Infof(e.c.Logger, "extract", "loading %d front and %d rear %v files",
		len(front), len(rear), format)

	p := newProgress(progress)
	defer p.stop()

	if e.c.UseWorkers && e.c.Pool != nil {
		recordings, err := e.extractPool(ctx, format, front, rear, p)
		if err == nil {
			return recordings, nil
		}
		if !pool.IsPoolError(err) {
			return nil, err
		}
		log.Warnf(e.c.Logger, "extract", "worker pool failed, decoding in-process: %v", err)
		metrics.FallbackTotal.Inc()
	}

	return e.extractSync(ctx, format, front, rear, p)
}

func (e *Extractor) extractPool(
	ctx context.Context,
	format gps.CameraFormat,
	front []gps.File,
	rear []gps.File,
	p *progress,
) ([]pair.Recording, error) {
	submit := func(files []gps.File) ([]*pool.Task, error) {
		tasks := make([]*pool.Task, 0, len(files))
		for _, f := range files {
			task, err := e.c.Pool.Submit(f, format)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		return tasks, nil
	}

	// Progress follows completion, not collection order.
	var watchers sync.WaitGroup
	watch := func(tasks []*pool.Task, rear bool) {
		for i, task := range tasks {
			watchers.Add(1)
			go func(task *pool.Task, key fileKey) {
				defer watchers.Done()
				<-task.Done()
				if _, err := task.Wait(context.Background()); pool.IsPoolError(err) {
					return
				}
				p.done(key)
			}(task, fileKey{rear: rear, index: i})
		}
	}

	frontTasks, err := submit(front)
	if err != nil {
		return nil, err
	}
	watch(frontTasks, false)
	rearTasks, err := submit(rear)
	if err != nil {
		return nil, err
	}
	watch(rearTasks, true)

	collect := func(tasks []*pool.Task) ([]gps.FileTrack, error) {
		var tracks []gps.FileTrack
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			track, err := task.Wait(ctx)
			if err != nil {
				if pool.IsPoolError(err) || ctx.Err() != nil {
					return nil, err
				}
				e.fileFailed(task.File, err)
				continue
			}
			metrics.FilesExtracted.WithLabelValues(metrics.ResultSuccess).Inc()
			tracks = append(tracks, track)
		}
		return tracks, nil
	}

	frontTracks, err := collect(frontTasks)
	if err != nil {
		return nil, err
	}
	rearTracks, err := collect(rearTasks)
	if err != nil {
		return nil, err
	}
	watchers.Wait()
	return pair.Pair(frontTracks, rearTracks, e.c.Window), nil
}

func (e *Extractor) extractSync(
	ctx context.Context,
	format gps.CameraFormat,
	front []gps.File,
	rear []gps.File,
	p *progress,
) ([]pair.Recording, error) {
	decode := func(files []gps.File, rear bool) ([]gps.FileTrack, error) {
		var tracks []gps.FileTrack
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			track, err := decodeFile(format, f)
			p.done(fileKey{rear: rear, index: i})
			if err != nil {
				e.fileFailed(f.Name(), err)
				continue
			}
			metrics.FilesExtracted.WithLabelValues(metrics.ResultSuccess).Inc()
			tracks = append(tracks, track)
		}
		return tracks, nil
	}

	frontTracks, err := decode(front, false)
	if err != nil {
		return nil, err
	}
	rearTracks, err := decode(rear, true)
	if err != nil {
		return nil, err
	}
	return pair.Pair(frontTracks, rearTracks, e.c.Window), nil
}

func decodeFile(format gps.CameraFormat, f gps.File) (track gps.FileTrack, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode %v: panic: %v", f.Name(), r)
		}
	}()
	return gps.DecodeFile(format, f)
}

func (e *Extractor) fileFailed(name string, err error) {
	metrics.FilesExtracted.WithLabelValues(metrics.ResultFailure).Inc()
	log.Warnf(e.c.Logger, "extract", "skipping %v: %v", name, err)
}

// fileKey identifies a file of the batch, names are not unique
// across directories.
type fileKey struct {
	rear  bool
	index int
}

// progress calls fn once per file until stopped.
type progress struct {
	mu      sync.Mutex
	fn      func()
	seen    map[fileKey]struct{}
	stopped bool
}

func newProgress(fn func()) *progress {
	return &progress{
		fn:   fn,
		seen: make(map[fileKey]struct{}),
	}
}

func (p *progress) done(key fileKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, seen := p.seen[key]; seen || p.stopped {
		return
	}
	p.seen[key] = struct{}{}
	if p.fn != nil {
		p.fn()
	}
}

// stop drops calls from tasks that settle after Extract returned.
func (p *progress) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}
