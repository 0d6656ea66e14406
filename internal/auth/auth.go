// Package auth tracks the catalog login state and drives the login form.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"episodic/internal/browser"
	"episodic/internal/locators"
	"episodic/internal/logging"
)

// State is the authenticator's view of the catalog session.
type State int

const (
	Unknown State = iota
	LoggedOut
	LoggingIn
	LoggedIn
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case LoggingIn:
		return "logging_in"
	case LoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// ErrLoginFailed reports credentials the catalog did not accept.
var ErrLoginFailed = errors.New("login failed")

// Options configures an Authenticator.
type Options struct {
	RootURL string
	// SettleDelay is waited between typing credentials and clicking submit.
	SettleDelay time.Duration
	Logger      *slog.Logger
}

// Authenticator owns the login state machine. State changes only happen here.
type Authenticator struct {
	session  *browser.Session
	locators locators.Set
	root     string
	settle   time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// New builds an authenticator in the Unknown state.
func New(session *browser.Session, set locators.Set, opts Options) *Authenticator {
	return &Authenticator{
		session:  session,
		locators: set,
		root:     opts.RootURL,
		settle:   opts.SettleDelay,
		logger:   logging.NewComponentLogger(opts.Logger, "auth"),
	}
}

// State returns the last observed login state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Authenticator) setState(s State) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	a.mu.Unlock()
	if prev != s {
		a.logger.Debug("login state changed", logging.String("from", prev.String()), logging.String("to", s.String()))
	}
}

// Probe loads the catalog root and classifies the session by the login panel
// label. A missing panel means the page is not what we expect and is an error.
func (a *Authenticator) Probe(ctx context.Context) (State, error) {
	if err := a.session.Navigate(ctx, a.root); err != nil {
		return a.State(), err
	}
	panel, ok := a.session.FindVisible(ctx, a.locators.LoginPanelButton)
	if !ok {
		return a.State(), browser.NotFound(a.locators.LoginPanelButton.Name)
	}
	label, err := panel.Text()
	if err != nil {
		return a.State(), fmt.Errorf("read login panel: %w", err)
	}
	state := LoggedIn
	if strings.Contains(strings.TrimSpace(label), locators.LoginSentinel) {
		state = LoggedOut
	}
	a.setState(state)
	return state, nil
}

// Login signs in with the given credentials and reports whether the catalog
// now shows a logged-in session. It does nothing when already logged in.
func (a *Authenticator) Login(ctx context.Context, username, password string) (bool, error) {
	if a.State() == LoggedIn {
		return true, nil
	}
	// Probing also brings the session back to the page carrying the form.
	state, err := a.Probe(ctx)
	if err != nil {
		return false, err
	}
	if state == LoggedIn {
		return true, nil
	}

	a.setState(LoggingIn)
	defer func() {
		if a.State() == LoggingIn {
			a.setState(LoggedOut)
		}
	}()

	trigger, found := a.session.FindVisible(ctx, a.locators.LoginPanelButton)
	if !found {
		return false, browser.NotFound(a.locators.LoginPanelButton.Name)
	}
	if err := trigger.Click(); err != nil {
		return false, fmt.Errorf("open login panel: %w", err)
	}

	fields := make([]browser.Element, 0, 3)
	for _, loc := range []locators.Locator{a.locators.LoginUsername, a.locators.LoginPassword, a.locators.LoginSubmit} {
		el, found := a.session.FindVisible(ctx, loc)
		if !found {
			return false, browser.NotFound(loc.Name)
		}
		fields = append(fields, el)
	}
	if err := fields[0].SendKeys(username); err != nil {
		return false, fmt.Errorf("enter username: %w", err)
	}
	if err := fields[1].SendKeys(password); err != nil {
		return false, fmt.Errorf("enter password: %w", err)
	}

	// The submit button ignores clicks until the form's scripts initialize.
	if err := sleep(ctx, a.settle); err != nil {
		return false, err
	}
	if err := fields[2].Click(); err != nil {
		return false, fmt.Errorf("submit login: %w", err)
	}

	state, err = a.Probe(ctx)
	if err != nil {
		return false, err
	}
	if state != LoggedIn {
		logging.WarnWithContext(a.logger, "catalog rejected credentials", "login_rejected",
			logging.String("username", username),
			logging.String(logging.FieldImpact, "episodes behind the login wall will not play"),
			logging.String(logging.FieldErrorHint, "check catalog.username and catalog.password"),
		)
		return false, nil
	}
	a.logger.Info("logged in", logging.String("username", username))
	return true, nil
}

// EnsureLoggedIn logs in when credentials are configured. Missing
// credentials skip login without error; rejected ones return ErrLoginFailed.
func (a *Authenticator) EnsureLoggedIn(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		a.logger.Debug("no credentials configured; skipping login")
		return nil
	}
	ok, err := a.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoginFailed
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
