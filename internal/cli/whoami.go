package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/loginflow/internal/authapi"
	"github.com/mrlokans/loginflow/internal/config"
)

// defaultWhoAmITimeout bounds the probe when no request timeout is configured.
const defaultWhoAmITimeout = 10 * time.Second

// ErrNotSignedIn is returned by WhoAmICommand when the server does not know
// the session.
var ErrNotSignedIn = errors.New("not signed in")

// WhoAmICommand reports which user a session cookie belongs to
type WhoAmICommand struct {
	Config  *config.Config
	Version string

	Out io.Writer
	Err io.Writer
}

func NewWhoAmICommand(version string) *WhoAmICommand {
	return &WhoAmICommand{
		Config:  config.NewConfig(),
		Version: version,
		Out:     os.Stdout,
		Err:     os.Stderr,
	}
}

func (cmd *WhoAmICommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(cmd.Err)
	cfg := cmd.Config

	fs.StringVar(&cfg.Server.URL, "server", cfg.Server.URL, "Origin of the auth server (or set SERVER_URL)")
	fs.StringVar(&cfg.Server.APIPrefix, "api-prefix", cfg.Server.APIPrefix, "Path prefix of the auth endpoints (or set API_PREFIX)")
	fs.DurationVar(&cfg.Server.RequestTimeout, "timeout", cfg.Server.RequestTimeout, "Request timeout (or set REQUEST_TIMEOUT)")
	fs.StringVar(&cfg.Server.SessionCookie, "cookie", cfg.Server.SessionCookie, "Session cookie as name=value (or set SESSION_COOKIE)")

	fs.Usage = func() {
		fmt.Fprintf(cmd.Err, "Usage: %s whoami [options]\n\n", os.Args[0])
		fmt.Fprintf(cmd.Err, "Ask the server who a session belongs to. Exits non-zero when it is anonymous.\n\n")
		fmt.Fprintf(cmd.Err, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Server.URL == "" {
		return fmt.Errorf("server URL is not set: set SERVER_URL or use -server")
	}
	return nil
}

func (cmd *WhoAmICommand) Run() error {
	srv := cmd.Config.Server
	if srv.RequestTimeout <= 0 {
		srv.RequestTimeout = defaultWhoAmITimeout
	}

	client, err := newAPIClient(srv, cmd.Version)
	if err != nil {
		return err
	}

	id, err := client.WhoAmI(context.Background())
	switch {
	case err == nil && id.Username != "":
		fmt.Fprintf(cmd.Out, "Signed in as %s\n", id.Username)
		return nil
	case err == nil, errors.Is(err, authapi.ErrNotAuthenticated):
		return ErrNotSignedIn
	case authapi.IsTransport(err):
		return fmt.Errorf("could not reach %s: %w", client.BaseURL(), err)
	default:
		return err
	}
}
