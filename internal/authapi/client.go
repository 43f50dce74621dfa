package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	whoamiPath   = "/auth/whoami"
	loginPath    = "/auth/login"
	registerPath = "/auth/register"

	defaultUserAgent = "loginflow"
	maxErrorBodySize = 64 << 10
)

// Credentials is the body of login and register calls.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String keeps the password out of logs and error messages.
func (c Credentials) String() string {
	return fmt.Sprintf("{username:%q password:<redacted>}", c.Username)
}

// Identity is the whoami payload.
type Identity struct {
	Username string `json:"username"`
}

// Client talks to the authentication endpoints. Cookies set by the server are
// kept in an in-memory jar and sent with every later request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	// Applied after every option has run.
	timeout    time.Duration
	hasTimeout bool
	seed       []*http.Cookie
}

// Option configures a Client. Options are applied in order.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is copied,
// never modified; the copy gets a cookie jar when the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero leaves requests unbounded.
// It applies whatever HTTP client ends up being used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout, c.hasTimeout = d, true
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithCookies seeds the jar with cookies from an earlier session, so the
// first whoami can find it.
func WithCookies(cookies ...*http.Cookie) Option {
	return func(c *Client) {
		c.seed = append(c.seed, cookies...)
	}
}

// NewClient creates a client rooted at baseURL, which includes the API prefix
// (for example "http://localhost:8000/api/v1").
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		httpClient: cleanhttp.DefaultPooledClient(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if c.hasTimeout {
		hc.Timeout = c.timeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	c.httpClient = &hc

	if len(c.seed) > 0 {
		cookies := make([]*http.Cookie, 0, len(c.seed))
		for _, ck := range c.seed {
			cp := *ck
			if cp.Path == "" {
				cp.Path = "/"
			}
			cookies = append(cookies, &cp)
		}
		hc.Jar.SetCookies(u, cookies)
		c.seed = nil
	}

	return c, nil
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsSuccess is the single success predicate for every endpoint: any 2xx,
// 201 included.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// WhoAmI asks the server who the current session belongs to.
func (c *Client) WhoAmI(ctx context.Context) (Identity, error) {
	req, err := c.newRequest(ctx, http.MethodGet, whoamiPath, nil)
	if err != nil {
		return Identity{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Identity{}, &TransportError{Op: "whoami", Err: err}
	}
	defer resp.Body.Close()

	if !IsSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return Identity{}, fmt.Errorf("%w: HTTP %d", ErrNotAuthenticated, resp.StatusCode)
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedIdentity, err)
	}

	return id, nil
}

// Login posts credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.submit(ctx, "login", loginPath, creds)
}

// Register posts credentials to the register endpoint.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.submit(ctx, "register", registerPath, creds)
}

func (c *Client) submit(ctx context.Context, op, path string, creds Credentials) error {
	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if IsSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &RejectedError{
		StatusCode: resp.StatusCode,
		Reason:     ReasonFromBody(body),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}
