// Package config reads the portal settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort           = "8080"
	DefaultBackendURL     = "https://esamwad.iotcom.io"
	DefaultBackendTimeout = 15 * time.Second
	DefaultScriptURL      = "https://checkout.razorpay.com/v1/checkout.js"
	DefaultMerchantName   = "eSamwad Hostel"
	DefaultDescription    = "Hostel Recharge"
	DefaultThemeColor     = "#4F46E5"
	DefaultEmail          = "student@example.com"
	DefaultContact        = "9999999999"
	DefaultDatabase       = "hostelportal"
)

var ErrMissingKeyID = errors.New("RAZORPAY_KEY_ID environment variable not set")

type Config struct {
	Port           string
	BackendURL     string
	BackendTimeout time.Duration

	KeyID          string
	ScriptURL      string
	MerchantName   string
	Description    string
	ThemeColor     string
	DefaultEmail   string
	DefaultContact string

	MongoURI      string
	MongoDatabase string

	SessionFile string
}

// LoadEnvFile loads path into the environment. Variables already set win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the configuration, filling defaults for unset variables.
func Load() (*Config, error) {
	timeout := DefaultBackendTimeout
	if raw := os.Getenv("BACKEND_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			secs, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q: %w", raw, err)
			}
			d = time.Duration(secs) * time.Second
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q: must be positive", raw)
		}
		timeout = d
	}

	sessionFile := os.Getenv("PORTAL_SESSION_FILE")
	if sessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		sessionFile = filepath.Join(home, ".hostel-portal", "session.json")
	}

	return &Config{
		Port:           getenv("PORT", DefaultPort),
		BackendURL:     getenv("BACKEND_URL", DefaultBackendURL),
		BackendTimeout: timeout,
		KeyID:          os.Getenv("RAZORPAY_KEY_ID"),
		ScriptURL:      getenv("CHECKOUT_SCRIPT_URL", DefaultScriptURL),
		MerchantName:   getenv("CHECKOUT_MERCHANT_NAME", DefaultMerchantName),
		Description:    getenv("CHECKOUT_DESCRIPTION", DefaultDescription),
		ThemeColor:     getenv("CHECKOUT_THEME_COLOR", DefaultThemeColor),
		DefaultEmail:   getenv("CHECKOUT_DEFAULT_EMAIL", DefaultEmail),
		DefaultContact: getenv("CHECKOUT_DEFAULT_CONTACT", DefaultContact),
		MongoURI:       os.Getenv("MONGOURI"),
		MongoDatabase:  getenv("MONGO_DATABASE", DefaultDatabase),
		SessionFile:    sessionFile,
	}, nil
}

// Validate checks what serving needs.
func (c *Config) Validate() error {
	if c.KeyID == "" {
		return ErrMissingKeyID
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
