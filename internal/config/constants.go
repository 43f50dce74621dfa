package config

const (
	// DefaultServerURL points at a backend running locally
	DefaultServerURL = "http://localhost:8000"

	// DefaultAPIPrefix is where the auth endpoints are mounted
	DefaultAPIPrefix = "/api/v1"

	// DefaultHomePath is the page a signed-in user lands on
	DefaultHomePath = "/home"

	// DefaultDotEnvFile is loaded before reading the environment
	DefaultDotEnvFile = ".env"
)
