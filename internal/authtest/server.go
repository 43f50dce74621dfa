// Package authtest runs an in-process stand-in for the authentication backend.
//
// It answers the three endpoints the login flow uses the way the reference
// backend does: bcrypt hashed users, a JWT "access_token" cookie, 201 on
// register and {"detail": ...} error bodies. Tests can script any route with
// Override and count calls with Hits.
package authtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Prefix is the API prefix every route lives under.
	Prefix = "/api/v1"
	// CookieName is the session cookie issued on login and register.
	CookieName = "access_token"

	// Route keys for Override and Hits.
	RouteWhoAmI   = "GET /auth/whoami"
	RouteLogin    = "POST /auth/login"
	RouteRegister = "POST /auth/register"

	tokenLifetime     = time.Hour
	minUsernameLength = 3
	minPasswordLength = 8
)

// Server is a fake authentication backend.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string][]byte
	overrides map[string]gin.HandlerFunc
	hits      map[string]int
	secret    []byte
}

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		users:     make(map[string][]byte),
		overrides: make(map[string]gin.HandlerFunc),
		hits:      make(map[string]int),
		secret:    []byte(uuid.NewString()),
	}

	router := gin.New()
	api := router.Group(Prefix)
	api.Use(s.track)
	api.GET("/auth/whoami", s.whoami)
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// APIURL is the base URL including the API prefix.
func (s *Server) APIURL() string {
	return s.URL + Prefix
}

// AddUser registers a user directly, bypassing the HTTP API.
func (s *Server) AddUser(t testing.TB, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	s.mu.Lock()
	s.users[username] = hash
	s.mu.Unlock()
}

// Override replaces the handler of route (one of the Route constants).
func (s *Server) Override(route string, h gin.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[route] = h
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// SessionFor mints a valid session cookie for username, as if they had
// logged in earlier.
func (s *Server) SessionFor(username string) (*http.Cookie, error) {
	token, err := s.issueToken(username)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{Name: CookieName, Value: token, Path: "/"}, nil
}

func (s *Server) track(c *gin.Context) {
	route := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), Prefix)

	s.mu.Lock()
	s.hits[route]++
	override := s.overrides[route]
	s.mu.Unlock()

	if override != nil {
		override(c)
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) whoami(c *gin.Context) {
	token, err := c.Cookie(CookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": claims.Subject})
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "field required")
		return
	}

	s.mu.Lock()
	hash, ok := s.users[req.Username]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid username or password"})
		return
	}

	s.startSession(c, http.StatusOK, req.Username)
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "field required")
		return
	}
	if len(req.Username) < minUsernameLength {
		validationFailed(c, "String should have at least 3 characters")
		return
	}
	if len(req.Password) < minPasswordLength {
		validationFailed(c, "String should have at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to hash password"})
		return
	}

	s.mu.Lock()
	if _, taken := s.users[req.Username]; taken {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already taken"})
		return
	}
	s.users[req.Username] = hash
	s.mu.Unlock()

	s.startSession(c, http.StatusCreated, req.Username)
}

func (s *Server) startSession(c *gin.Context, status int, username string) {
	token, err := s.issueToken(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate token"})
		return
	}
	c.SetCookie(CookieName, token, int(tokenLifetime.Seconds()), "/", "", false, true)
	c.JSON(status, gin.H{"access_token": token, "token_type": "bearer"})
}

func (s *Server) issueToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func validationFailed(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"detail": []gin.H{{"type": "value_error", "msg": msg}},
	})
}
