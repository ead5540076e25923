package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabaseURL, EnvAddr, EnvLogLevel, EnvJWTSecret, EnvSessionTTL, EnvSignOutTimeout, EnvAutoConfirm} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SignOutTimeout != 3*time.Second {
		t.Fatalf("sign-out timeout = %s", cfg.SignOutTimeout)
	}
	if cfg.SessionTTL != DefaultSessionTTL || cfg.AutoConfirm {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nxttask.env")
	content := "NXTTASK_ADDR=0.0.0.0:9000\nNXTTASK_LOG_LEVEL=debug\nNXTTASK_AUTO_CONFIRM=true\nNXTTASK_SIGNOUT_TIMEOUT=5s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("addr from file = %q", cfg.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("env should win over file, got %q", cfg.LogLevel)
	}
	if !cfg.AutoConfirm {
		t.Errorf("expected auto confirm from file")
	}
	if cfg.SignOutTimeout != 5*time.Second {
		t.Errorf("sign-out timeout = %s", cfg.SignOutTimeout)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSessionTTL, "forever")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
