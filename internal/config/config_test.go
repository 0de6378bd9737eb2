package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "BACKEND_URL", "BACKEND_TIMEOUT", "RAZORPAY_KEY_ID", "CHECKOUT_SCRIPT_URL",
	"CHECKOUT_MERCHANT_NAME", "CHECKOUT_DESCRIPTION", "CHECKOUT_THEME_COLOR",
	"CHECKOUT_DEFAULT_EMAIL", "CHECKOUT_DEFAULT_CONTACT", "MONGOURI", "MONGO_DATABASE",
	"PORTAL_SESSION_FILE",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORTAL_SESSION_FILE", "/tmp/session.json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultBackendTimeout, cfg.BackendTimeout)
	assert.Equal(t, DefaultScriptURL, cfg.ScriptURL)
	assert.Equal(t, DefaultMerchantName, cfg.MerchantName)
	assert.Equal(t, DefaultThemeColor, cfg.ThemeColor)
	assert.Equal(t, DefaultDatabase, cfg.MongoDatabase)
	assert.Equal(t, "/tmp/session.json", cfg.SessionFile)
	assert.Empty(t, cfg.MongoURI)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingKeyID)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_URL", "http://localhost:3000")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_1")
	t.Setenv("MONGOURI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.NoError(t, cfg.Validate())
}

func TestBackendTimeout(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"20", 20 * time.Second, false},
		{"500ms", 500 * time.Millisecond, false},
		{"soon", 0, true},
		{"-1s", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BACKEND_TIMEOUT", tt.raw)
			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.BackendTimeout)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RAZORPAY_KEY_ID=rzp_from_file\n"), 0o600))

	// godotenv does not override set variables, so drop the empty one first.
	require.NoError(t, os.Unsetenv("RAZORPAY_KEY_ID"))
	require.NoError(t, LoadEnvFile(path))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "rzp_from_file", cfg.KeyID)

	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}
