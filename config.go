package portal

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config exposes the knobs a host app wires into the portal.
type Config interface {
	GetBaseURL() string
	GetTimeout() time.Duration
	GetStoragePath() string
	GetJWKSURL() string
	GetSigningKey() []byte
	GetCookieName() string
	GetCookieDuration() time.Duration
	GetDashboardRoute() string
	GetLoginRoute() string
}

// EnvConfig is the environment-backed Config implementation.
type EnvConfig struct {
	BaseURL        string
	Timeout        time.Duration
	StoragePath    string
	JWKSURL        string
	SigningKey     string
	CookieName     string
	CookieDuration time.Duration
	DashboardRoute string
	LoginRoute     string
}

func (c *EnvConfig) GetBaseURL() string               { return c.BaseURL }
func (c *EnvConfig) GetTimeout() time.Duration        { return c.Timeout }
func (c *EnvConfig) GetStoragePath() string           { return c.StoragePath }
func (c *EnvConfig) GetJWKSURL() string               { return c.JWKSURL }
func (c *EnvConfig) GetSigningKey() []byte            { return []byte(c.SigningKey) }
func (c *EnvConfig) GetCookieName() string            { return c.CookieName }
func (c *EnvConfig) GetCookieDuration() time.Duration { return c.CookieDuration }
func (c *EnvConfig) GetDashboardRoute() string        { return c.DashboardRoute }
func (c *EnvConfig) GetLoginRoute() string            { return c.LoginRoute }

// LoadConfig reads configuration from the environment, optionally seeding it
// from .env files first. Missing files are not an error.
func LoadConfig(files ...string) *EnvConfig {
	if len(files) > 0 {
		_ = godotenv.Load(files...)
	} else {
		_ = godotenv.Load()
	}

	return &EnvConfig{
		BaseURL:        envString("PORTAL_API_URL", "http://localhost:8000/api"),
		Timeout:        envDuration("PORTAL_API_TIMEOUT", DefaultTimeout),
		StoragePath:    envString("PORTAL_STORAGE_PATH", "portal.db"),
		JWKSURL:        envString("PORTAL_JWKS_URL", ""),
		SigningKey:     envString("PORTAL_SIGNING_KEY", ""),
		CookieName:     envString("PORTAL_COOKIE_NAME", CredentialKey),
		CookieDuration: envDuration("PORTAL_COOKIE_DURATION", 24*time.Hour),
		DashboardRoute: envString("PORTAL_DASHBOARD_ROUTE", "/dashboard"),
		LoginRoute:     envString("PORTAL_LOGIN_ROUTE", "/login"),
	}
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}

	if d, err := time.ParseDuration(val); err == nil {
		return d
	}

	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}

	return def
}
