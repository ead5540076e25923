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

type Config struct {
	DatabaseURL    string
	Addr           string
	LogLevel       string
	JWTSecret      string
	SessionTTL     time.Duration
	SignOutTimeout time.Duration
	AutoConfirm    bool
}

const (
	DefaultAddr           = "127.0.0.1:3335"
	DefaultLogLevel       = "info"
	DefaultSessionTTL     = 7 * 24 * time.Hour
	DefaultSignOutTimeout = 3 * time.Second
)

const (
	EnvDatabaseURL    = "NXTTASK_DB"
	EnvAddr           = "NXTTASK_ADDR"
	EnvLogLevel       = "NXTTASK_LOG_LEVEL"
	EnvJWTSecret      = "NXTTASK_JWT_SECRET"
	EnvSessionTTL     = "NXTTASK_SESSION_TTL"
	EnvSignOutTimeout = "NXTTASK_SIGNOUT_TIMEOUT"
	EnvAutoConfirm    = "NXTTASK_AUTO_CONFIRM"
)

func DefaultDatabaseURL() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "nxttask.db"
	}
	return filepath.Join(home, ".nxttask", "nxttask.db")
}

// Load resolves each setting from the environment, then envFile (if it exists), then defaults.
func Load(envFile string) (Config, error) {
	fromFile := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
		if m != nil {
			fromFile = m
		}
	}
	get := func(key, def string) string {
		return coalesce(os.Getenv(key), fromFile[key], def)
	}

	cfg := Config{
		DatabaseURL: get(EnvDatabaseURL, DefaultDatabaseURL()),
		Addr:        get(EnvAddr, DefaultAddr),
		LogLevel:    get(EnvLogLevel, DefaultLogLevel),
		JWTSecret:   get(EnvJWTSecret, ""),
	}

	var err error
	if cfg.SessionTTL, err = parseDuration(EnvSessionTTL, get(EnvSessionTTL, ""), DefaultSessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.SignOutTimeout, err = parseDuration(EnvSignOutTimeout, get(EnvSignOutTimeout, ""), DefaultSignOutTimeout); err != nil {
		return Config{}, err
	}
	if v := get(EnvAutoConfirm, ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvAutoConfirm, err)
		}
		cfg.AutoConfirm = b
	}
	return cfg, nil
}

func parseDuration(key, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func coalesce(args ...string) string {
	for _, s := range args {
		if s != "" {
			return s
		}
	}
	return ""
}
