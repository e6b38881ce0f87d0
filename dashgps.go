// SPDX-License-Identifier: GPL-2.0-or-later

package dashgps

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"dashgps/pkg/extract"
	"dashgps/pkg/gps"
	"dashgps/pkg/log"
	"dashgps/pkg/metrics"
	"dashgps/pkg/mp4"
	"dashgps/pkg/playback"
	"dashgps/pkg/pool"
	"dashgps/pkg/storage"
	"dashgps/pkg/system"
	"dashgps/pkg/web"
)

const usage = `usage: dashgps <command> [flags]

commands:
  serve    serve the web api
  extract  extract and pair gps tracks, prints json
  inspect  print the box tree of a mp4 file
  worker   decode requests from stdin, used by the process pool
`

// Errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidArgs    = errors.New("invalid arguments")
)

// Run .
func Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return nil
	}
	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "extract":
		return extractCmd(ctx, args[1:], stdout, stderr)
	case "inspect":
		return inspectCmd(args[1:], stdout)
	case "worker":
		return pool.ServeWorker(ctx, os.Stdin, stdout)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("%w: %v", ErrUnknownCommand, args[0])
	}
}

func newPool(isolation string, size int, logger log.ILogger) (*pool.Pool, error) {
	c := pool.Config{
		Size:   size,
		Logger: logger,
	}
	if isolation == storage.IsolationProcess {
		bin, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("%w: executable: %v", pool.ErrPoolUnavailable, err)
		}
		c.NewWorker = pool.NewProcessWorkers(logger, bin, "worker")
	}
	return pool.New(c)
}

// newExtractor returns an extractor and a function that closes its pool.
// A pool that cannot be created leaves the extractor decoding in-process.
func newExtractor(
	useWorkers bool,
	isolation string,
	size int,
	logger log.ILogger,
	opts ...extract.Option,
) (*extract.Extractor, func()) {
	opts = append(opts, extract.WithLogger(logger), extract.WithWorkers(useWorkers))
	if !useWorkers {
		return extract.New(opts...), func() {}
	}

	p, err := newPool(isolation, size, logger)
	if err != nil {
		log.Warnf(logger, "app", "could not start worker pool: %v", err)
		return extract.New(opts...), func() {}
	}
	return extract.New(append(opts, extract.WithPool(p))...), p.Close
}

func extractCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("extract", flag.ContinueOnError)
	flags.SetOutput(stderr)
	workers := flags.Int("workers", 0, "number of workers, 0 uses the number of cpus")
	inProcess := flags.Bool("sync", false, "decode in-process without workers")
	window := flags.Duration("window", 0, "maximum start time difference of a pair (default 15s)")
	isolation := flags.String("isolation", storage.IsolationGoroutine, "worker isolation, goroutine or process")
	verbose := flags.Bool("v", false, "log to stderr")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var logger log.ILogger = log.Discard
	if *verbose {
		wg := &sync.WaitGroup{}
		l := log.NewLogger(wg)
		l.Start(ctx)
		go l.LogToWriter(ctx, stderr)
		logger = l
		defer wg.Wait()
		defer cancel()
	}

	files, err := collectFiles(flags.Args())
	if err != nil {
		return err
	}

	extractor, closePool := newExtractor(
		!*inProcess, *isolation, *workers, logger, extract.WithWindow(*window))
	defer closePool()

	recordings, err := extractor.Extract(ctx, files, nil)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(recordings)
}

// collectFiles returns the mp4 files in paths, directories are crawled.
func collectFiles(paths []string) ([]gps.File, error) {
	var files []gps.File
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, &gps.DiskFile{Path: path})
			continue
		}
		dirFiles, err := storage.NewCrawler(path).Files()
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}

func inspectCmd(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("inspect: %w: expected one file", ErrInvalidArgs)
	}
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()
	return mp4.Inspect(file, stdout)
}

func serve(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ContinueOnError)
	envFlag := flags.String("env", "", "path to env.yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *envFlag == "" {
		flags.Usage()
		return nil
	}

	envPath, err := filepath.Abs(*envFlag)
	if err != nil {
		return fmt.Errorf("could not get absolute path of env.yaml: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := &sync.WaitGroup{}
	app, err := newApp(ctx, envPath, wg)
	if err != nil {
		return err
	}

	fatal := make(chan error, 1)
	go func() { fatal <- app.run(ctx) }()

	select {
	case err = <-fatal:
		app.Logger.Info().Src("app").Msgf("fatal error: %v", err)
	case <-ctx.Done():
		app.Logger.Info().Src("app").Msg("stopping")
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	shutdownErr := app.server.Shutdown(ctx2)

	app.closePool()
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return shutdownErr
}

// App is the main application struct.
type App struct {
	WG        *sync.WaitGroup
	Logger    *log.Logger
	logDB     *log.DB
	Env       storage.ConfigEnv
	System    *system.System
	Session   *playback.Session
	Mux       *http.ServeMux
	server    *http.Server
	closePool func()
}

func newApp(ctx context.Context, envPath string, wg *sync.WaitGroup) (*App, error) {
	// Environment config.
	envYAML, err := os.ReadFile(envPath)
	if err != nil {
		return nil, fmt.Errorf("could not read env.yaml: %w", err)
	}

	env, err := storage.NewConfigEnv(envPath, envYAML)
	if err != nil {
		return nil, fmt.Errorf("could not get environment config: %w", err)
	}

	// Logs.
	logger := log.NewLogger(wg)
	logger.Start(ctx)
	go logger.LogToStdout(ctx)

	logDB := log.NewDB(env.LogDB, wg)

	sys := system.New(logger)
	session := playback.NewSession()
	crawler := storage.NewCrawler(env.RecordingsDir)

	extractor, closePool := newExtractor(
		env.WorkersEnabled(),
		env.Isolation,
		env.Workers,
		logger,
		extract.WithRules(env.Formats...),
		extract.WithWindow(env.PairWindow),
	)

	// Routes.
	mux := http.NewServeMux()

	mux.Handle("/api/recordings", web.Recordings(session))
	mux.Handle("/api/state", web.State(session))
	mux.Handle("/api/extract", web.Extract(crawler, extractor, session, logger))
	mux.Handle("/api/sync", web.Sync(session, logger))

	mux.Handle("/api/system/status", web.SystemStatus(sys.Status))

	mux.Handle("/api/log/feed", web.LogFeed(logger))
	mux.Handle("/api/log/query", web.LogQuery(logDB))

	mux.Handle("/metrics", metrics.Handler())

	return &App{
		WG:        wg,
		Logger:    logger,
		logDB:     logDB,
		Env:       *env,
		System:    sys,
		Session:   session,
		Mux:       mux,
		server:    &http.Server{Addr: ":" + strconv.Itoa(env.Port), Handler: mux},
		closePool: closePool,
	}, nil
}

func (app *App) run(ctx context.Context) error {
	if err := app.Env.PrepareEnvironment(); err != nil {
		return fmt.Errorf("could not prepare environment: %w", err)
	}

	if err := app.logDB.Init(ctx); err != nil {
		// Continue even if log database is corrupt.
		time.Sleep(10 * time.Millisecond)
		app.Logger.Error().Src("app").Msgf("could not initialize log database: %v", err)
	} else {
		go app.logDB.SaveLogs(ctx, app.Logger)
		time.Sleep(10 * time.Millisecond)
	}

	go app.System.StatusLoop(ctx)

	app.Logger.Info().Src("app").Msgf("Serving app on port %v", app.Env.Port)
	return app.server.ListenAndServe()
}
