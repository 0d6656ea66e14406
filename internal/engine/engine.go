package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"episodic/internal/acquire"
	"episodic/internal/auth"
	"episodic/internal/browser"
	"episodic/internal/capture"
	"episodic/internal/catalog"
	"episodic/internal/config"
	"episodic/internal/history"
	"episodic/internal/locators"
	"episodic/internal/logging"
	"episodic/internal/notifications"
)

// LockFileName is the single-instance lock inside the state directory.
const LockFileName = "episodic.lock"

var (
	// ErrAlreadyRunning reports another process holding the engine lock.
	ErrAlreadyRunning = errors.New("another episodic instance is driving the catalog")
	// ErrNotRunning reports work submitted before Start or after Close.
	ErrNotRunning = errors.New("engine is not running")
	// ErrNoCredentials reports a login request without configured credentials.
	ErrNoCredentials = errors.New("catalog credentials are not configured")
)

// DriverFactory opens the automation backend.
type DriverFactory func(cfg *config.Config) (browser.Driver, error)

// Options wires optional collaborators. Zero values select the defaults:
// Chromium through playwright, the history database in the state directory,
// and ntfy notifications from config.
type Options struct {
	Driver         DriverFactory
	Picker         catalog.Picker
	Notifier       notifications.Service
	Logger         *slog.Logger
	ProgressWriter io.Writer
	HTTPClient     *http.Client
}

// Engine owns the browser session and serializes all work on it.
type Engine struct {
	cfg      *config.Config
	opts     Options
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock

	session *browser.Session
	auth    *auth.Authenticator
	nav     *catalog.Navigator
	orch    *acquire.Orchestrator
	store   *history.Store

	tasks     chan task
	quit      chan struct{}
	stopped   chan struct{}
	running   atomic.Bool
	closeOnce sync.Once
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// New constructs an engine; nothing is opened until Start.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine requires config")
	}
	if err := cfg.RequireCatalog(); err != nil {
		return nil, err
	}
	if opts.Driver == nil {
		opts.Driver = launchPlaywright
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(cfg)
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, LockFileName)
	return &Engine{
		cfg:      cfg,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "engine"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

func launchPlaywright(cfg *config.Config) (browser.Driver, error) {
	return browser.LaunchPlaywright(browser.PlaywrightOptions{
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: cfg.NavigationTimeout(),
	})
}

// Start takes the lock, opens the browser and history, starts the worker,
// loads the catalog root and logs in when credentials are configured.
func (e *Engine) Start(ctx context.Context) error {
	if e.running.Load() {
		return errors.New("engine already running")
	}
	if err := e.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, e.lockPath)
	}
	if err := e.open(ctx); err != nil {
		e.release()
		return err
	}

	e.tasks = make(chan task)
	e.quit = make(chan struct{})
	e.stopped = make(chan struct{})
	go e.work()
	e.running.Store(true)
	e.logger.Info("engine started", logging.String("lock", e.lockPath))

	err = e.Do(ctx, func(ctx context.Context) error {
		if err := e.session.Navigate(ctx, e.cfg.Catalog.URL); err != nil {
			return fmt.Errorf("load catalog root: %w", err)
		}
		return e.auth.EnsureLoggedIn(ctx, e.cfg.Catalog.Username, e.cfg.Catalog.Password)
	})
	if err != nil {
		_ = e.Close()
		return err
	}
	return nil
}

func (e *Engine) open(ctx context.Context) error {
	set, err := locators.Default().WithOverrides(e.cfg.Locators)
	if err != nil {
		return err
	}
	driver, err := e.opts.Driver(e.cfg)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	store, err := history.Open(e.cfg)
	if err != nil {
		_ = driver.Quit()
		return fmt.Errorf("open history: %w", err)
	}
	if n, err := store.MarkInterrupted(ctx); err != nil {
		e.logger.Debug("mark interrupted jobs failed", logging.Error(err))
	} else if n > 0 {
		logging.WarnWithContext(e.logger, "previous jobs were interrupted", "jobs_interrupted",
			logging.Int64("count", n),
			logging.String(logging.FieldImpact, "their episodes may be incomplete"),
			logging.String(logging.FieldErrorHint, "rerun the download to resume"),
		)
	}

	e.store = store
	e.session = browser.NewSession(driver, browser.Options{
		FindTimeout:        e.cfg.FindTimeout(),
		PollInterval:       e.cfg.PollInterval(),
		NavigationInterval: e.cfg.NavigationInterval(),
		Logger:             e.opts.Logger,
	})
	e.auth = auth.New(e.session, set, auth.Options{
		RootURL:     e.cfg.Catalog.URL,
		SettleDelay: e.cfg.SettleDelay(),
		Logger:      e.opts.Logger,
	})
	e.nav = catalog.New(e.session, set, catalog.Options{
		RootURL: e.cfg.Catalog.URL,
		Picker:  e.opts.Picker,
		Logger:  e.opts.Logger,
	})
	var progress io.Writer
	if e.cfg.Capture.Progress {
		progress = e.opts.ProgressWriter
	}
	capturer := capture.New(e.nav, e.session, set, capture.Options{
		PlayerTimeout:  e.cfg.PlayerTimeout(),
		MinFreeBytes:   uint64(e.cfg.Capture.MinFreeMB) << 20,
		ProgressWriter: progress,
		Client:         e.opts.HTTPClient,
		Logger:         e.opts.Logger,
	})
	e.orch = acquire.New(e.nav, capturer, acquire.Options{
		Recorder: store,
		Notifier: e.opts.Notifier,
		Logger:   e.opts.Logger,
	})
	return nil
}

func (e *Engine) work() {
	defer close(e.stopped)
	for {
		select {
		case t := <-e.tasks:
			t.done <- t.fn(t.ctx)
		case <-e.quit:
			return
		}
	}
}

// Do runs fn on the worker goroutine after any earlier work finishes. If ctx
// ends while fn is still queued Do returns its error. Once the worker has
// taken fn, Do waits for it to return; fn sees the same ctx and winds down on
// its own, so whatever it wrote is complete when Do returns.
func (e *Engine) Do(ctx context.Context, fn func(context.Context) error) error {
	if !e.running.Load() {
		return ErrNotRunning
	}
	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}
	select {
	case e.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrNotRunning
	}
	return <-t.done
}

// Close stops the worker, quits the browser, releases the lock and closes
// history. Safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.running.Swap(false) {
			close(e.quit)
			<-e.stopped
		}
		if e.session != nil {
			e.session.Quit()
		}
		if e.store != nil {
			err = e.store.Close()
		}
		e.release()
		e.logger.Info("engine stopped")
	})
	return err
}

func (e *Engine) release() {
	if err := e.lock.Unlock(); err != nil {
		e.logger.Warn("failed to release engine lock", logging.Error(err))
	}
}

// History exposes the job history store of a started engine.
func (e *Engine) History() *history.Store {
	return e.store
}
