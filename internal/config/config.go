package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Skin string

const (
	SkinPlain Skin = "plain" // Line prompts with hand-rolled colours
	SkinCharm Skin = "charm" // Component based terminal UI (default)
)

type (
	Config struct {
		Server
		Flow
		UI
		Log
	}

	Server struct {
		URL            string        // Origin of the backend, e.g. http://localhost:8000
		APIPrefix      string        // Prefix of the auth endpoints, e.g. /api/v1
		RequestTimeout time.Duration // 0 leaves requests to the transport defaults
		SessionCookie  string        // name=value of a session issued earlier
	}
	Flow struct {
		HomePath      string        // Where a signed-in user is sent
		RedirectDelay time.Duration // Pause after a successful submission
		RequireFields bool          // Refuse to submit with an empty field
	}
	UI struct {
		Skin          Skin
		ToastDuration time.Duration // How long transient notices stay up (charm skin)
	}
	Log struct {
		Level string // debug, info, warn, error
		File  string // Empty logs to stderr (plain skin) or nowhere (charm skin)
	}
)

// APIURL is the base every auth endpoint hangs off.
func (s Server) APIURL() string {
	prefix := strings.Trim(s.APIPrefix, "/")
	base := strings.TrimRight(s.URL, "/")
	if prefix == "" {
		return base
	}
	return base + "/" + prefix
}

// Validate reports configuration the flow cannot run with.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server URL is not set: set SERVER_URL or use -server")
	}
	switch c.UI.Skin {
	case SkinPlain, SkinCharm:
	default:
		return fmt.Errorf("unknown skin %q: expected %q or %q", c.UI.Skin, SkinPlain, SkinCharm)
	}
	if !strings.HasPrefix(c.Flow.HomePath, "/") && !strings.Contains(c.Flow.HomePath, "://") {
		return fmt.Errorf("home path %q must be absolute", c.Flow.HomePath)
	}
	if c.Flow.RedirectDelay < 0 {
		return fmt.Errorf("redirect delay must not be negative, got %s", c.Flow.RedirectDelay)
	}
	return nil
}

// Cookies parses SessionCookie. An empty value yields no cookies.
func (s Server) Cookies() ([]*http.Cookie, error) {
	if strings.TrimSpace(s.SessionCookie) == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(s.SessionCookie)
	if err != nil {
		return nil, fmt.Errorf("invalid session cookie: %w", err)
	}
	return cookies, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("server_url", DefaultServerURL)
	v.SetDefault("api_prefix", DefaultAPIPrefix)
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("session_cookie", "")

	v.SetDefault("home_path", DefaultHomePath)
	v.SetDefault("redirect_delay", "300ms")
	v.SetDefault("require_fields", true)

	v.SetDefault("skin", string(SkinCharm))
	v.SetDefault("toast_duration", "3s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	return &Config{
		Server: Server{
			URL:            v.GetString("SERVER_URL"),
			APIPrefix:      v.GetString("API_PREFIX"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			SessionCookie:  v.GetString("SESSION_COOKIE"),
		},
		Flow: Flow{
			HomePath:      v.GetString("HOME_PATH"),
			RedirectDelay: v.GetDuration("REDIRECT_DELAY"),
			RequireFields: v.GetBool("REQUIRE_FIELDS"),
		},
		UI: UI{
			Skin:          Skin(strings.ToLower(v.GetString("SKIN"))),
			ToastDuration: v.GetDuration("TOAST_DURATION"),
		},
		Log: Log{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
	}
}
