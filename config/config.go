package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL      = "http://localhost:8081"
	DefaultAddr        = ":8081"
	DefaultDriver      = "sqlite3"
	DefaultDatabaseURL = "file:notesync.db?_foreign_keys=on"
	DefaultTokenTTL    = 15 * time.Minute
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultAuthRateLimit is the number of /login and /register calls
	// allowed per client IP per minute.
	DefaultAuthRateLimit = 10
)

// Client holds settings for the notes client and CLI.
type Client struct {
	APIURL      string
	HTTPTimeout time.Duration
	LogLevel    string
}

// Server holds settings for the reference notes service.
type Server struct {
	Addr        string
	Driver      string
	DatabaseURL string
	JWTSecret   []byte
	MasterKey   []byte
	TokenTTL    time.Duration
	LogLevel    string
	CORSOrigin  string

	// AuthRateLimit is per IP per minute.
	AuthRateLimit int
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool
}

// LoadEnv reads a .env file from the working directory if one exists.
// It reports whether a file was loaded.
func LoadEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// LoadClient builds the client configuration from the environment.
func LoadClient() (Client, error) {
	timeout, err := durationEnv("NOTES_HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return Client{}, err
	}
	return Client{
		APIURL:      strings.TrimRight(stringEnv("NOTES_API_URL", DefaultAPIURL), "/"),
		HTTPTimeout: timeout,
		LogLevel:    stringEnv("LOG_LEVEL", "info"),
	}, nil
}

// LoadServer builds the server configuration from the environment.
// JWT_SECRET is mandatory. MASTER_KEY defaults to a digest of the JWT secret.
func LoadServer() (Server, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return Server{}, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	ttl, err := durationEnv("TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return Server{}, err
	}

	limit, err := intEnv("AUTH_RATE_LIMIT", DefaultAuthRateLimit)
	if err != nil {
		return Server{}, err
	}

	trustProxy, err := boolEnv("TRUST_PROXY")
	if err != nil {
		return Server{}, err
	}

	cfg := Server{
		Addr:        stringEnv("NOTES_ADDR", DefaultAddr),
		Driver:      stringEnv("DB_DRIVER", DefaultDriver),
		DatabaseURL: stringEnv("DATABASE_URL", DefaultDatabaseURL),
		JWTSecret:   []byte(secret),
		TokenTTL:    ttl,
		LogLevel:    stringEnv("LOG_LEVEL", "info"),
		CORSOrigin:  strings.TrimSpace(os.Getenv("CORS_ORIGIN")),

		AuthRateLimit: limit,
		TrustProxy:    trustProxy,
	}

	cfg.MasterKey = DeriveKey(stringEnv("MASTER_KEY", secret))
	return cfg, nil
}

// DeriveKey stretches arbitrary key material to 32 bytes.
func DeriveKey(material string) []byte {
	sum := sha256.Sum256([]byte(material))
	return sum[:]
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}

func boolEnv(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
