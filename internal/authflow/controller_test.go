package authflow_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mrlokans/loginflow/internal/authapi"
	"github.com/mrlokans/loginflow/internal/authflow"
	"github.com/mrlokans/loginflow/internal/authtest"
)

type recordingView struct {
	mu     sync.Mutex
	states []authflow.State
}

func (v *recordingView) Render(s authflow.State, _ authflow.Callbacks) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, s)
}

func (v *recordingView) sawForm() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.states {
		if s.ShowForm() {
			return true
		}
	}
	return false
}

func (v *recordingView) snapshot() []authflow.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]authflow.State(nil), v.states...)
}

func (v *recordingView) first() authflow.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.states[0]
}

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type harness struct {
	srv  *authtest.Server
	ctrl *authflow.Controller
	view *recordingView
	nav  *recordingNavigator
}

func newHarness(t *testing.T, opts authflow.Options) *harness {
	t.Helper()
	srv := authtest.NewServer(t)
	client, err := authapi.NewClient(srv.APIURL())
	require.NoError(t, err)
	return newHarnessWithClient(t, srv, client, opts)
}

func newHarnessWithClient(t *testing.T, srv *authtest.Server, client authflow.AuthAPI, opts authflow.Options) *harness {
	t.Helper()
	view := &recordingView{}
	nav := &recordingNavigator{}
	return &harness{
		srv:  srv,
		ctrl: authflow.New(client, nav, view, opts),
		view: view,
		nav:  nav,
	}
}

// started runs the probe against an anonymous session so the form is shown.
func (h *harness) started(t *testing.T) *harness {
	t.Helper()
	h.ctrl.Start(context.Background())
	require.Equal(t, authflow.PhaseForm, h.ctrl.State().Phase)
	return h
}

func TestStart_AnonymousShowsForm(t *testing.T) {
	h := newHarness(t, authflow.Options{})

	h.ctrl.Start(context.Background())

	assert.Equal(t, authflow.PhaseChecking, h.view.first().Phase)
	assert.False(t, h.view.first().ShowForm())
	assert.Equal(t, authflow.PhaseForm, h.ctrl.State().Phase)
	assert.Empty(t, h.nav.visited())
	assert.True(t, h.ctrl.State().Notice.Empty())
}

func TestStart_ProbeFailuresShowForm(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
	}{
		{
			name:    "server error",
			handler: func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") },
		},
		{
			name:    "malformed body",
			handler: func(c *gin.Context) { c.String(http.StatusOK, "{not json") },
		},
		{
			name:    "empty username",
			handler: func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"username": ""}) },
		},
		{
			name:    "missing username",
			handler: func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user": "alice"}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, authflow.Options{})
			h.srv.Override(authtest.RouteWhoAmI, tt.handler)

			h.ctrl.Start(context.Background())

			assert.Equal(t, authflow.PhaseForm, h.ctrl.State().Phase)
			assert.Empty(t, h.nav.visited())
			assert.True(t, h.ctrl.State().Notice.Empty())
		})
	}
}

func TestStart_NetworkErrorShowsForm(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + authtest.Prefix
	server.Close()

	client, err := authapi.NewClient(baseURL)
	require.NoError(t, err)
	h := newHarnessWithClient(t, nil, client, authflow.Options{})

	h.ctrl.Start(context.Background())

	assert.Equal(t, authflow.PhaseForm, h.ctrl.State().Phase)
	assert.Empty(t, h.nav.visited())
}

func TestStart_ExistingSessionNavigatesHome(t *testing.T) {
	srv := authtest.NewServer(t)
	cookie, err := srv.SessionFor("alice")
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{cookie})

	client, err := authapi.NewClient(srv.APIURL(), authapi.WithHTTPClient(&http.Client{Jar: jar}))
	require.NoError(t, err)
	h := newHarnessWithClient(t, srv, client, authflow.Options{HomePath: "/home"})

	h.ctrl.Start(context.Background())

	assert.Equal(t, []string{"/home"}, h.nav.visited())
	assert.Equal(t, authflow.PhaseRedirecting, h.ctrl.State().Phase)
	assert.False(t, h.view.sawForm(), "form must never render for an authenticated visitor")
	assert.False(t, h.ctrl.Submit(context.Background()))
}

func TestSetMode_ClearsNoticeAndIsIdempotent(t *testing.T) {
	h := newHarness(t, authflow.Options{}).started(t)
	h.srv.Override(authtest.RouteLogin, func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "bad credentials"})
	})
	ctx := context.Background()

	h.ctrl.SetUsername("alice")
	h.ctrl.SetPassword("wrong")
	require.True(t, h.ctrl.Submit(ctx))
	require.Equal(t, "bad credentials", h.ctrl.State().Notice.Text)

	h.ctrl.SetMode(authflow.ModeRegister)
	first := h.ctrl.State()
	assert.Equal(t, authflow.ModeRegister, first.Mode)
	assert.True(t, first.Notice.Empty())
	assert.Equal(t, authflow.StatusIdle, first.Status)
	assert.Equal(t, "Register", first.SubmitLabel())

	h.ctrl.SetMode(authflow.ModeRegister)
	second := h.ctrl.State()
	assert.Equal(t, first, second)

	// Inputs survive a tab switch.
	assert.Equal(t, "alice", second.Username)
}

func TestSetMode_SameModeClearsNotice(t *testing.T) {
	h := newHarness(t, authflow.Options{RequireFields: true}).started(t)

	require.True(t, h.ctrl.Submit(context.Background()))
	require.Equal(t, authflow.NoticeWarning, h.ctrl.State().Notice.Kind)

	h.ctrl.SetMode(authflow.ModeLogin)
	assert.True(t, h.ctrl.State().Notice.Empty())
}

func TestSubmit_RejectsWhileInFlight(t *testing.T) {
	h := newHarness(t, authflow.Options{}).started(t)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	h.srv.Override(authtest.RouteLogin, func(c *gin.Context) {
		entered <- struct{}{}
		<-release
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "nope"})
	})
	ctx := context.Background()
	h.ctrl.SetUsername("alice")
	h.ctrl.SetPassword("secret")

	done := make(chan bool, 1)
	go func() { done <- h.ctrl.Submit(ctx) }()
	<-entered

	state := h.ctrl.State()
	assert.True(t, state.Busy())
	assert.Equal(t, "Logging in...", state.SubmitLabel())
	assert.False(t, h.ctrl.Submit(ctx), "second submission must be rejected")

	// Controls are disabled while in flight.
	h.ctrl.SetMode(authflow.ModeRegister)
	h.ctrl.SetUsername("mallory")
	h.ctrl.SetPassword("other")
	state = h.ctrl.State()
	assert.Equal(t, authflow.ModeLogin, state.Mode)
	assert.Equal(t, "alice", state.Username)
	assert.Equal(t, "secret", state.Password)

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, 1, h.srv.Hits(authtest.RouteLogin))
	assert.False(t, h.ctrl.State().Busy())
	assert.Equal(t, "nope", h.ctrl.State().Notice.Text)
}

func TestSubmit_FailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		mode    authflow.Mode
		route   string
		handler gin.HandlerFunc
		want    string
	}{
		{
			name:  "detail",
			mode:  authflow.ModeLogin,
			route: authtest.RouteLogin,
			handler: func(c *gin.Context) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "bad credentials"})
			},
			want: "bad credentials",
		},
		{
			name:  "message",
			mode:  authflow.ModeRegister,
			route: authtest.RouteRegister,
			handler: func(c *gin.Context) {
				c.JSON(http.StatusConflict, gin.H{"message": "user exists"})
			},
			want: "user exists",
		},
		{
			name:  "unparseable login body",
			mode:  authflow.ModeLogin,
			route: authtest.RouteLogin,
			handler: func(c *gin.Context) {
				c.String(http.StatusInternalServerError, "<html>oops</html>")
			},
			want: "Login failed",
		},
		{
			name:  "empty register body",
			mode:  authflow.ModeRegister,
			route: authtest.RouteRegister,
			handler: func(c *gin.Context) {
				c.Status(http.StatusBadRequest)
			},
			want: "Registration failed",
		},
		{
			name:  "redirect status is not success",
			mode:  authflow.ModeLogin,
			route: authtest.RouteLogin,
			handler: func(c *gin.Context) {
				c.Status(http.StatusNotModified)
			},
			want: "Login failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, authflow.Options{}).started(t)
			h.srv.Override(tt.route, tt.handler)
			h.ctrl.SetMode(tt.mode)
			h.ctrl.SetUsername("alice")
			h.ctrl.SetPassword("secret")

			require.True(t, h.ctrl.Submit(context.Background()))

			state := h.ctrl.State()
			assert.Equal(t, authflow.StatusFailed, state.Status)
			assert.Equal(t, authflow.NoticeError, state.Notice.Kind)
			assert.Equal(t, tt.want, state.Notice.Text)
			assert.Empty(t, h.nav.visited())
		})
	}
}

func TestSubmit_LoginSuccessNavigatesHome(t *testing.T) {
	h := newHarness(t, authflow.Options{}).started(t)
	h.srv.AddUser(t, "alice", "correct horse")

	h.ctrl.SetUsername("alice")
	h.ctrl.SetPassword("correct horse")
	require.True(t, h.ctrl.Submit(context.Background()))

	assert.Equal(t, []string{authflow.DefaultHomePath}, h.nav.visited())

	var succeeded authflow.State
	for _, s := range h.view.snapshot() {
		if s.Status == authflow.StatusSucceeded {
			succeeded = s
		}
	}
	assert.Equal(t, authflow.NoticeSuccess, succeeded.Notice.Kind)
	assert.Equal(t, "Login successful! Redirecting...", succeeded.Notice.Text)
	assert.False(t, succeeded.Busy())
}

// gateNavigator blocks Navigate until released.
type gateNavigator struct {
	recordingNavigator
	entered chan struct{}
	release chan struct{}
}

func (n *gateNavigator) Navigate(target string) {
	n.entered <- struct{}{}
	<-n.release
	n.recordingNavigator.Navigate(target)
}

func TestSubmit_LockedUntilNavigationReturns(t *testing.T) {
	srv := authtest.NewServer(t)
	srv.AddUser(t, "alice", "correct horse")
	client, err := authapi.NewClient(srv.APIURL())
	require.NoError(t, err)

	nav := &gateNavigator{entered: make(chan struct{}, 1), release: make(chan struct{})}
	ctrl := authflow.New(client, nav, nil, authflow.Options{RedirectDelay: 5 * time.Millisecond})
	ctrl.Start(context.Background())
	ctrl.SetUsername("alice")
	ctrl.SetPassword("correct horse")
	require.True(t, ctrl.Submit(context.Background()))

	// The redirect is pending: every control stays locked.
	<-nav.entered
	assert.Equal(t, authflow.StatusSucceeded, ctrl.State().Status)
	assert.False(t, ctrl.Submit(context.Background()), "no resubmission while redirecting")
	ctrl.SetMode(authflow.ModeRegister)
	assert.Equal(t, authflow.ModeLogin, ctrl.State().Mode)

	// A navigator that returns without ending the flow hands the form back.
	close(nav.release)
	assert.Eventually(t, func() bool {
		return ctrl.State().Status == authflow.StatusIdle
	}, time.Second, 5*time.Millisecond)
	assert.True(t, ctrl.State().Notice.Empty())
	assert.Equal(t, []string{authflow.DefaultHomePath}, nav.visited())

	ctrl.SetMode(authflow.ModeRegister)
	assert.Equal(t, authflow.ModeRegister, ctrl.State().Mode)
}

func TestSubmit_Register201EmptyBodyIsSuccess(t *testing.T) {
	h := newHarness(t, authflow.Options{RedirectDelay: 20 * time.Millisecond}).started(t)
	h.srv.Override(authtest.RouteRegister, func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	h.ctrl.SetMode(authflow.ModeRegister)
	h.ctrl.SetUsername("bob")
	h.ctrl.SetPassword("long enough")
	require.True(t, h.ctrl.Submit(context.Background()))

	assert.Equal(t, authflow.StatusSucceeded, h.ctrl.State().Status)
	assert.Equal(t, "Registration successful! Redirecting...", h.ctrl.State().Notice.Text)
	assert.Eventually(t, func() bool {
		return len(h.nav.visited()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/home"}, h.nav.visited())
}

func TestSubmit_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + authtest.Prefix
	server.Close()
	client, err := authapi.NewClient(baseURL)
	require.NoError(t, err)
	h := newHarnessWithClient(t, nil, client, authflow.Options{})
	h.ctrl.Start(context.Background())

	h.ctrl.SetUsername("alice")
	h.ctrl.SetPassword("secret")
	require.True(t, h.ctrl.Submit(context.Background()))

	state := h.ctrl.State()
	assert.Equal(t, "Network error. Please try again.", state.Notice.Text)
	assert.Equal(t, authflow.StatusFailed, state.Status)
	assert.False(t, state.Busy())

	// The user can retry.
	assert.True(t, h.ctrl.Submit(context.Background()))
}

func TestSubmit_GuardedRequiresBothFields(t *testing.T) {
	h := newHarness(t, authflow.Options{RequireFields: true}).started(t)
	h.ctrl.SetPassword("secret")

	require.True(t, h.ctrl.Submit(context.Background()))

	state := h.ctrl.State()
	assert.Equal(t, 0, h.srv.Hits(authtest.RouteLogin))
	assert.Equal(t, authflow.NoticeWarning, state.Notice.Kind)
	assert.True(t, state.Notice.Transient)
	assert.Equal(t, "Please enter both username and password", state.Notice.Text)
	assert.False(t, state.Busy())
}

func TestSubmit_UnguardedSendsEmptyFields(t *testing.T) {
	h := newHarness(t, authflow.Options{RequireFields: false}).started(t)
	h.ctrl.SetPassword("secret")

	require.True(t, h.ctrl.Submit(context.Background()))

	assert.Equal(t, 1, h.srv.Hits(authtest.RouteLogin))
	assert.Equal(t, "field required", h.ctrl.State().Notice.Text)
}

func TestSubmit_IgnoredWhileChecking(t *testing.T) {
	h := newHarness(t, authflow.Options{})

	assert.False(t, h.ctrl.Submit(context.Background()))
	assert.Equal(t, 0, h.srv.Hits(authtest.RouteLogin))
}

func TestSubmit_NeverLogsPassword(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, authflow.Options{Logger: zap.New(core)}).started(t)
	h.srv.AddUser(t, "alice", "correct horse")

	h.ctrl.SetUsername("alice")
	h.ctrl.SetPassword("wrong horse")
	h.ctrl.Submit(context.Background())
	h.ctrl.SetPassword("correct horse")
	h.ctrl.Submit(context.Background())

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, "horse")
		for _, field := range entry.Context {
			assert.NotContains(t, field.String, "horse")
			if err, ok := field.Interface.(error); ok {
				assert.NotContains(t, err.Error(), "horse")
			}
		}
	}
}

func TestVersionIncreasesWithEveryRender(t *testing.T) {
	h := newHarness(t, authflow.Options{}).started(t)
	h.ctrl.SetUsername("a")
	h.ctrl.SetUsername("ab")

	h.view.mu.Lock()
	defer h.view.mu.Unlock()
	for i := 1; i < len(h.view.states); i++ {
		assert.Greater(t, h.view.states[i].Version, h.view.states[i-1].Version)
	}
}
