package authflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/loginflow/internal/authapi"
)

const (
	// DefaultHomePath is where the flow navigates once a session exists.
	DefaultHomePath = "/home"
	// DefaultRedirectDelay gives a success notice time to show before the
	// page goes away.
	DefaultRedirectDelay = 300 * time.Millisecond

	msgValidation   = "Please enter both username and password"
	msgNetworkError = "Network error. Please try again."
)

// AuthAPI is the backend the controller drives. *authapi.Client implements it.
type AuthAPI interface {
	WhoAmI(ctx context.Context) (authapi.Identity, error)
	Login(ctx context.Context, creds authapi.Credentials) error
	Register(ctx context.Context, creds authapi.Credentials) error
}

// Options tune the controller. The zero value is usable.
type Options struct {
	// RequireFields refuses to contact the server while either field is
	// empty and shows a warning instead.
	RequireFields bool
	// HomePath defaults to DefaultHomePath.
	HomePath string
	// RedirectDelay is the pause between a successful submission and
	// navigation. Zero navigates immediately.
	RedirectDelay time.Duration
	// InitialMode is the tab the form opens on.
	InitialMode Mode
	Logger      *zap.Logger
}

// Controller owns the login/registration flow: the session probe, mode and
// input management, and submission. It is safe for concurrent use.
type Controller struct {
	api    AuthAPI
	nav    Navigator
	view   View
	opts   Options
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// New creates a controller in the checking phase. Call Start to run the probe.
func New(api AuthAPI, nav Navigator, view View, opts Options) *Controller {
	if opts.HomePath == "" {
		opts.HomePath = DefaultHomePath
	}
	if opts.RedirectDelay < 0 {
		opts.RedirectDelay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if view == nil {
		view = ViewFunc(func(State, Callbacks) {})
	}

	return &Controller{
		api:    api,
		nav:    nav,
		view:   view,
		opts:   opts,
		logger: logger.Named("authflow"),
		state: State{
			Version: 1,
			Phase:   PhaseChecking,
			Mode:    opts.InitialMode,
		},
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Callbacks returns the actions views bind to their controls.
func (c *Controller) Callbacks() Callbacks {
	return Callbacks{
		SetMode:     c.SetMode,
		SetUsername: c.SetUsername,
		SetPassword: c.SetPassword,
		Submit:      func(ctx context.Context) { c.Submit(ctx) },
	}
}

// Start renders the loading state and probes for an existing session. An
// authenticated probe navigates home and the form never shows; any failure
// counts as anonymous and reveals the form.
func (c *Controller) Start(ctx context.Context) {
	c.render(c.State())

	id, err := c.api.WhoAmI(ctx)
	if err == nil && id.Username != "" {
		c.logger.Info("existing session found, skipping form")
		c.update(func(s *State) bool {
			s.Phase = PhaseRedirecting
			return true
		})
		c.navigate()
		return
	}

	if err != nil {
		c.logger.Debug("session probe failed, showing form", zap.Error(err))
	} else {
		c.logger.Debug("session probe returned no username, showing form")
	}
	c.update(func(s *State) bool {
		if s.Phase != PhaseChecking {
			return false
		}
		s.Phase = PhaseForm
		return true
	})
}

// SetMode switches between login and register and clears any notice.
// Ignored while inputs are locked.
func (c *Controller) SetMode(m Mode) {
	c.update(func(s *State) bool {
		if locked(s) {
			return false
		}
		if s.Mode == m && s.Notice.Empty() {
			return false
		}
		s.Mode = m
		s.Notice = Notice{}
		if s.Status == StatusFailed {
			s.Status = StatusIdle
		}
		return true
	})
}

// SetUsername updates the username input.
func (c *Controller) SetUsername(v string) {
	c.update(func(s *State) bool {
		if locked(s) || s.Username == v {
			return false
		}
		s.Username = v
		return true
	})
}

// SetPassword updates the password input.
func (c *Controller) SetPassword(v string) {
	c.update(func(s *State) bool {
		if locked(s) || s.Password == v {
			return false
		}
		s.Password = v
		return true
	})
}

// Submit runs one login or registration attempt and reports whether it was
// started. It refuses while another attempt is in flight, before the form is
// shown and between a successful attempt and the navigator returning.
func (c *Controller) Submit(ctx context.Context) bool {
	var (
		mode     Mode
		creds    authapi.Credentials
		accepted bool
		willSend bool
	)
	c.update(func(s *State) bool {
		if s.Phase != PhaseForm || locked(s) {
			return false
		}
		accepted = true
		s.Attempt++
		if c.opts.RequireFields && (s.Username == "" || s.Password == "") {
			s.Status = StatusFailed
			s.Notice = Notice{Kind: NoticeWarning, Text: msgValidation, Transient: true}
			return true
		}
		mode = s.Mode
		creds = authapi.Credentials{Username: s.Username, Password: s.Password}
		s.Status = StatusInFlight
		s.Notice = Notice{}
		willSend = true
		return true
	})
	if !accepted {
		c.logger.Debug("submission ignored")
		return false
	}
	if !willSend {
		c.logger.Debug("submission blocked by empty fields")
		return true
	}

	c.logger.Debug("submitting", zap.Stringer("mode", mode))
	err := c.send(ctx, mode, creds)

	if err == nil {
		c.logger.Info("submission succeeded", zap.Stringer("mode", mode))
		c.update(func(s *State) bool {
			s.Status = StatusSucceeded
			s.Notice = Notice{Kind: NoticeSuccess, Text: successMessage(mode), Transient: true}
			return true
		})
		c.scheduleNavigation()
		return true
	}

	msg := failureMessage(mode, err)
	c.logger.Info("submission failed", zap.Stringer("mode", mode), zap.Error(err))
	c.update(func(s *State) bool {
		s.Status = StatusFailed
		s.Notice = Notice{Kind: NoticeError, Text: msg}
		return true
	})
	return true
}

func (c *Controller) send(ctx context.Context, mode Mode, creds authapi.Credentials) error {
	if mode == ModeRegister {
		return c.api.Register(ctx, creds)
	}
	return c.api.Login(ctx, creds)
}

func (c *Controller) scheduleNavigation() {
	if c.opts.RedirectDelay == 0 {
		c.navigate()
		return
	}
	time.AfterFunc(c.opts.RedirectDelay, c.navigate)
}

func (c *Controller) navigate() {
	c.logger.Debug("navigating", zap.String("target", c.opts.HomePath))
	if c.nav != nil {
		c.nav.Navigate(c.opts.HomePath)
	}

	// Navigation normally ends the flow. A navigator that returns and leaves
	// the flow running gets a usable form back instead of a locked one.
	c.update(func(s *State) bool {
		if s.Status != StatusSucceeded {
			return false
		}
		s.Status = StatusIdle
		s.Notice = Notice{}
		return true
	})
}

// update applies fn under the lock and renders when fn reports a change.
// Rendering happens outside the lock so views may call back in.
func (c *Controller) update(fn func(s *State) bool) {
	c.mu.Lock()
	if !fn(&c.state) {
		c.mu.Unlock()
		return
	}
	c.state.Version++
	snapshot := c.state
	c.mu.Unlock()

	c.render(snapshot)
}

func (c *Controller) render(s State) {
	c.view.Render(s, c.Callbacks())
}

func locked(s *State) bool {
	return s.Status == StatusInFlight || s.Status == StatusSucceeded || s.Phase == PhaseRedirecting
}

func successMessage(mode Mode) string {
	if mode == ModeRegister {
		return "Registration successful! Redirecting..."
	}
	return "Login successful! Redirecting..."
}

func fallbackMessage(mode Mode) string {
	if mode == ModeRegister {
		return "Registration failed"
	}
	return "Login failed"
}

// failureMessage turns a failed attempt into the text shown to the user.
// Anything other than a server rejection means no response was obtained.
func failureMessage(mode Mode, err error) string {
	var rejected *authapi.RejectedError
	if !errors.As(err, &rejected) {
		return msgNetworkError
	}
	if rejected.Reason != "" {
		return rejected.Reason
	}
	return fallbackMessage(mode)
}
