package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/mrlokans/loginflow/internal/authapi"
	"github.com/mrlokans/loginflow/internal/authflow"
	"github.com/mrlokans/loginflow/internal/config"
	"github.com/mrlokans/loginflow/internal/logging"
	"github.com/mrlokans/loginflow/internal/skins/charm"
	"github.com/mrlokans/loginflow/internal/skins/plain"
)

// LoginCommand runs the interactive sign-in flow
type LoginCommand struct {
	Config  *config.Config
	Mode    authflow.Mode
	Open    bool
	Version string

	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Opener func(url string) error
}

// NewLoginCommand creates a LoginCommand with defaults taken from the environment
func NewLoginCommand(version string) *LoginCommand {
	return &LoginCommand{
		Config:  config.NewConfig(),
		Version: version,
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
	}
}

// ParseFlags parses command line flags on top of the environment configuration
func (cmd *LoginCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(cmd.Err)
	cfg := cmd.Config

	skin := string(cfg.UI.Skin)
	mode := authflow.ModeLogin.String()
	var register bool
	fs.StringVar(&cfg.Server.URL, "server", cfg.Server.URL, "Origin of the auth server (or set SERVER_URL)")
	fs.StringVar(&cfg.Server.APIPrefix, "api-prefix", cfg.Server.APIPrefix, "Path prefix of the auth endpoints (or set API_PREFIX)")
	fs.DurationVar(&cfg.Server.RequestTimeout, "timeout", cfg.Server.RequestTimeout, "Per-request timeout, 0 for none (or set REQUEST_TIMEOUT)")
	fs.StringVar(&cfg.Server.SessionCookie, "cookie", cfg.Server.SessionCookie, "Session cookie from an earlier login, as name=value (or set SESSION_COOKIE)")
	fs.StringVar(&cfg.Flow.HomePath, "home", cfg.Flow.HomePath, "Where to go once signed in (or set HOME_PATH)")
	fs.DurationVar(&cfg.Flow.RedirectDelay, "redirect-delay", cfg.Flow.RedirectDelay, "Pause between success and redirect (or set REDIRECT_DELAY)")
	fs.BoolVar(&cfg.Flow.RequireFields, "require-fields", cfg.Flow.RequireFields, "Refuse to submit with an empty field (or set REQUIRE_FIELDS)")
	fs.StringVar(&skin, "skin", skin, "Terminal skin: plain or charm (or set SKIN)")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error (or set LOG_LEVEL)")
	fs.StringVar(&cfg.Log.File, "log-file", cfg.Log.File, "Write logs to this file (or set LOG_FILE)")
	fs.StringVar(&mode, "mode", mode, "Form to open on: login or register")
	fs.BoolVar(&register, "register", false, "Shorthand for -mode register")
	fs.BoolVar(&cmd.Open, "open", false, "Open the home page in a browser once signed in")

	fs.Usage = func() {
		fmt.Fprintf(cmd.Err, "Usage: %s login [options]\n\n", os.Args[0])
		fmt.Fprintf(cmd.Err, "Sign in to the server, or create an account, from the terminal.\n\n")
		fmt.Fprintf(cmd.Err, "An existing session (see -cookie) skips the form entirely.\n\n")
		fmt.Fprintf(cmd.Err, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(cmd.Err, "\nExamples:\n")
		fmt.Fprintf(cmd.Err, "  # Sign in against a local server\n")
		fmt.Fprintf(cmd.Err, "  %s login -server http://localhost:8000\n\n", os.Args[0])
		fmt.Fprintf(cmd.Err, "  # Create an account with the line based skin\n")
		fmt.Fprintf(cmd.Err, "  %s login -register -skin plain\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	m, ok := authflow.ParseMode(mode)
	if !ok {
		return fmt.Errorf("unknown mode %q: expected login or register", mode)
	}
	if register {
		m = authflow.ModeRegister
	}
	cmd.Mode = m

	cfg.UI.Skin = config.Skin(skin)
	return cfg.Validate()
}

// Run executes the sign-in flow until it navigates away or the user quits
func (cmd *LoginCommand) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd.run(ctx)
}

func (cmd *LoginCommand) run(ctx context.Context) error {
	cfg := cmd.Config
	out := &syncWriter{w: cmd.Out}

	// The charm skin owns the terminal, so its logs only go to a file.
	var fallback io.Writer
	if cfg.UI.Skin == config.SkinPlain {
		fallback = cmd.Err
	}
	logger, closeLog, err := logging.New(cfg.Log, fallback)
	if err != nil {
		return err
	}
	defer closeLog()
	defer func() { _ = logger.Sync() }()

	client, err := newAPIClient(cfg.Server, cmd.Version)
	if err != nil {
		return err
	}
	logger.Debug("starting login flow",
		zap.String("api", client.BaseURL()),
		zap.String("skin", string(cfg.UI.Skin)))

	nav := &TerminalNavigator{
		ServerURL:   cfg.Server.URL,
		Out:         out,
		OpenBrowser: cmd.Open,
		Opener:      cmd.Opener,
		Logger:      logger,
	}

	opts := authflow.Options{
		RequireFields: cfg.Flow.RequireFields,
		HomePath:      cfg.Flow.HomePath,
		RedirectDelay: cfg.Flow.RedirectDelay,
		InitialMode:   cmd.Mode,
		Logger:        logger,
	}

	if cfg.UI.Skin == config.SkinPlain {
		return cmd.runPlain(ctx, client, nav, out, opts)
	}
	return cmd.runCharm(ctx, client, nav, out, opts)
}

func (cmd *LoginCommand) runPlain(ctx context.Context, api authflow.AuthAPI, nav *TerminalNavigator, out io.Writer, opts authflow.Options) error {
	done := make(chan struct{})
	var once sync.Once
	navigate := authflow.NavigatorFunc(func(target string) {
		nav.Navigate(target)
		once.Do(func() { close(done) })
	})

	view := plain.NewView(out, !isTerminal(cmd.Out) || color.NoColor)
	ctrl := authflow.New(api, navigate, view, opts)
	ctrl.Start(ctx)

	err := plain.Run(ctx, ctrl, plain.Options{
		In:           cmd.In,
		Out:          out,
		ReadPassword: passwordReader(cmd.In),
		Done:         done,
	})
	if errors.Is(err, plain.ErrQuit) {
		return nil
	}
	return err
}

func (cmd *LoginCommand) runCharm(ctx context.Context, api authflow.AuthAPI, nav *TerminalNavigator, out io.Writer, opts authflow.Options) error {
	view := charm.NewView()
	ctrl := authflow.New(api, view, view, opts)
	model := charm.NewModel(ctx, ctrl.Start, charm.Options{ToastDuration: cmd.Config.UI.ToastDuration})

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.In),
		tea.WithOutput(out),
	)
	view.Attach(p.Send)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	m, ok := final.(charm.Model)
	if !ok {
		return fmt.Errorf("unexpected model type %T", final)
	}
	if target := m.NavigatedTo(); target != "" {
		nav.Navigate(target)
	}
	return nil
}

func newAPIClient(srv config.Server, version string) (*authapi.Client, error) {
	cookies, err := srv.Cookies()
	if err != nil {
		return nil, err
	}
	return authapi.NewClient(srv.APIURL(),
		authapi.WithTimeout(srv.RequestTimeout),
		authapi.WithUserAgent(userAgent(version)),
		authapi.WithCookies(cookies...),
	)
}

func userAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return "loginflow/" + version
}

// passwordReader hides typed passwords when stdin is a terminal. Anything
// else, such as a pipe, is read line by line.
func passwordReader(in io.Reader) func() (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return func() (string, error) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// syncWriter serialises writes from the view and the delayed navigator.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
