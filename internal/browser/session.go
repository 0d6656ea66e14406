package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"episodic/internal/locators"
	"episodic/internal/logging"
)

const (
	defaultFindTimeout  = 2 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Options tunes lookup polling and navigation pacing.
type Options struct {
	FindTimeout  time.Duration
	PollInterval time.Duration
	// NavigationInterval is the minimum spacing between page loads; zero
	// disables pacing.
	NavigationInterval time.Duration
	Logger             *slog.Logger
}

// Session serializes access to one Driver.
type Session struct {
	mu       sync.Mutex
	driver   Driver
	limiter  *rate.Limiter
	find     time.Duration
	poll     time.Duration
	logger   *slog.Logger
	quitOnce sync.Once
	closed   bool
}

// NewSession wraps driver. A nil driver yields a session whose Quit is a
// no-op and whose other calls fail with ErrSessionClosed.
func NewSession(driver Driver, opts Options) *Session {
	s := &Session{
		driver:  driver,
		limiter: rate.NewLimiter(rate.Inf, 1),
		find:    opts.FindTimeout,
		poll:    opts.PollInterval,
		logger:  logging.NewComponentLogger(opts.Logger, "browser"),
		closed:  driver == nil,
	}
	if s.find <= 0 {
		s.find = defaultFindTimeout
	}
	if s.poll <= 0 {
		s.poll = defaultPollInterval
	}
	if opts.NavigationInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(opts.NavigationInterval), 1)
	}
	return s
}

// FindTimeout is the default visibility timeout for lookups.
func (s *Session) FindTimeout() time.Duration {
	return s.find
}

// Navigate loads url in the shared page.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.logger.Debug("navigate", logging.String(logging.FieldURL, url))
	if err := s.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Back steps one entry back in the page history.
func (s *Session) Back(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.driver.Back(ctx); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

// BackN steps back n times, stopping at the first failure.
func (s *Session) BackN(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.Back(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CurrentURL reports the address of the shared page.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}
	return s.driver.CurrentURL()
}

// FindVisible polls for loc using the default find timeout.
func (s *Session) FindVisible(ctx context.Context, loc locators.Locator) (Element, bool) {
	return s.FindVisibleWithin(ctx, loc, s.find)
}

// FindVisibleWithin polls until an element matching loc is visible or timeout
// elapses. Absence is reported through the bool, never as an error.
func (s *Session) FindVisibleWithin(ctx context.Context, loc locators.Locator, timeout time.Duration) (Element, bool) {
	var found Element
	ok := s.pollUntil(ctx, loc, timeout, func() (bool, error) {
		el, visible, err := s.driver.FindVisible(ctx, loc.Selector)
		if err != nil || !visible {
			return false, err
		}
		found = s.wrap(el)
		return true, nil
	})
	return found, ok
}

// FindAll polls until at least one element matches loc, returning an empty
// slice on timeout.
func (s *Session) FindAll(ctx context.Context, loc locators.Locator) []Element {
	var found []Element
	s.pollUntil(ctx, loc, s.find, func() (bool, error) {
		els, err := s.driver.FindAll(ctx, loc.Selector)
		if err != nil || len(els) == 0 {
			return false, err
		}
		found = make([]Element, 0, len(els))
		for _, el := range els {
			found = append(found, s.wrap(el))
		}
		return true, nil
	})
	return found
}

func (s *Session) pollUntil(ctx context.Context, loc locators.Locator, timeout time.Duration, probe func() (bool, error)) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		done, err := s.locked(probe)
		if done {
			return true
		}
		if err != nil {
			s.logger.Debug("lookup probe failed", logging.String(logging.FieldLocator, loc.Name), logging.Error(err))
		}
		if !time.Now().Before(deadline) {
			s.logger.Debug("lookup timed out",
				logging.String(logging.FieldLocator, loc.Name),
				logging.Duration("timeout", timeout),
			)
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (s *Session) locked(probe func() (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	return probe()
}

// Cookies exports the page's cookies when the driver supports it.
func (s *Session) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	source, ok := s.driver.(CookieSource)
	if !ok {
		return nil, ErrCookiesUnsupported
	}
	return source.Cookies(ctx)
}

// Quit releases the backend. It is safe to call more than once and on a
// session that never connected; backend errors are logged and swallowed.
func (s *Session) Quit() {
	s.quitOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.driver == nil {
			s.closed = true
			return
		}
		s.closed = true
		if err := s.driver.Quit(); err != nil {
			logging.WarnWithContext(s.logger, "browser shutdown failed", "browser_quit_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a browser process may be left running"),
				logging.String(logging.FieldErrorHint, "kill stray chromium processes if any remain"),
			)
		}
	})
}
