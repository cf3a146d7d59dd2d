package portal_test

import (
	"testing"
	"time"

	portal "github.com/goliatone/go-clinic-portal"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := portal.LoadConfig("testdata/nonexistent.env")

	assert.Equal(t, "http://localhost:8000/api", cfg.GetBaseURL())
	assert.Equal(t, portal.DefaultTimeout, cfg.GetTimeout())
	assert.Equal(t, "portal.db", cfg.GetStoragePath())
	assert.Equal(t, portal.CredentialKey, cfg.GetCookieName())
	assert.Equal(t, 24*time.Hour, cfg.GetCookieDuration())
	assert.Equal(t, "/dashboard", cfg.GetDashboardRoute())
	assert.Equal(t, "/login", cfg.GetLoginRoute())
	assert.Empty(t, cfg.GetJWKSURL())
	assert.Empty(t, cfg.GetSigningKey())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORTAL_API_URL", "https://api.clinic.fr/v2")
	t.Setenv("PORTAL_API_TIMEOUT", "30s")
	t.Setenv("PORTAL_STORAGE_PATH", "/var/lib/portal/state.db")
	t.Setenv("PORTAL_SIGNING_KEY", "shared-secret")
	t.Setenv("PORTAL_COOKIE_NAME", "clinic_session")

	cfg := portal.LoadConfig("testdata/nonexistent.env")

	assert.Equal(t, "https://api.clinic.fr/v2", cfg.GetBaseURL())
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.Equal(t, "/var/lib/portal/state.db", cfg.GetStoragePath())
	assert.Equal(t, []byte("shared-secret"), cfg.GetSigningKey())
	assert.Equal(t, "clinic_session", cfg.GetCookieName())
}

func TestLoadConfigDurationAsSeconds(t *testing.T) {
	t.Setenv("PORTAL_API_TIMEOUT", "45")

	cfg := portal.LoadConfig("testdata/nonexistent.env")
	assert.Equal(t, 45*time.Second, cfg.GetTimeout())
}

func TestLoadConfigBadDurationFallsBack(t *testing.T) {
	t.Setenv("PORTAL_API_TIMEOUT", "soon")

	cfg := portal.LoadConfig("testdata/nonexistent.env")
	assert.Equal(t, portal.DefaultTimeout, cfg.GetTimeout())
}
