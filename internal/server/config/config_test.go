package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddr)
	assert.Equal(t, BackendREST, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.NotEmpty(t, cfg.Auth0Domain)
	assert.NotEmpty(t, cfg.Auth0Audience)
}

func Test_parseJson_LoadsFromFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"endpoint_addr":        ":9000",
		"store_backend":        "postgres",
		"supabase_url":         "https://demo.supabase.co",
		"supabase_service_key": "sk",
		"database_dsn":         "postgres://localhost/willcounter",
		"auth0_domain":         "demo.auth0.com",
		"auth0_audience":       "https://api.demo",
		"remote_timeout":       "3s",
	})
	os.Args = []string{"testbin", "-config", path}

	cfg := &Config{}
	parseJson(cfg)

	assert.Equal(t, ":9000", cfg.EndpointAddr)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "https://demo.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "sk", cfg.SupabaseServiceKey)
	assert.Equal(t, "postgres://localhost/willcounter", cfg.DatabaseDSN)
	assert.Equal(t, "demo.auth0.com", cfg.Auth0Domain)
	assert.Equal(t, "https://api.demo", cfg.Auth0Audience)
	assert.Equal(t, 3*time.Second, cfg.RemoteTimeout)
}

func Test_parseJson_NoFileLeavesDefaults(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":8080", cfg.EndpointAddr)
}

func Test_parseEnv_Overlay(t *testing.T) {
	t.Setenv("PORT", "9091")
	t.Setenv("SUPABASE_URL", "https://env.supabase.co/")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "env-key")
	t.Setenv("AUTH0_DOMAIN", "env.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.env")
	t.Setenv("REMOTE_TIMEOUT", "7s")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9091", cfg.EndpointAddr)
	assert.Equal(t, "https://env.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, "env-key", cfg.SupabaseServiceKey)
	assert.Equal(t, "env.auth0.com", cfg.Auth0Domain)
	assert.Equal(t, "https://api.env", cfg.Auth0Audience)
	assert.Equal(t, 7*time.Second, cfg.RemoteTimeout)
}

func Test_parseEnv_InvalidTimeoutIgnored(t *testing.T) {
	t.Setenv("REMOTE_TIMEOUT", "not-a-duration")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
}

func Test_parseFlags_Overlay(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin", "-a", ":7070", "-b", "postgres", "-t", "9"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":7070", cfg.EndpointAddr)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 9*time.Second, cfg.RemoteTimeout)
}
