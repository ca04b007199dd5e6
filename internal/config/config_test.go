package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDTUBE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8000 {
		t.Fatalf("expected default port 8000 got %d", cfg.AppPort)
	}
	if cfg.MaxVideoBytes != 100*1024*1024 {
		t.Fatalf("expected 100MiB video limit got %d", cfg.MaxVideoBytes)
	}
	if cfg.ObjectStore.Backend != BackendS3 {
		t.Fatalf("expected s3 backend got %q", cfg.ObjectStore.Backend)
	}
	if !cfg.Auth.CookieSecure {
		t.Fatal("expected secure cookies by default")
	}
	if cfg.RateLimit.TrustProxy {
		t.Fatal("expected forwarded headers to be untrusted by default")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("VIDTUBE_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("VIDTUBE_PORT", "9090")
	t.Setenv("VIDTUBE_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("VIDTUBE_OBJECT_STORE_BACKEND", "MinIO")
	t.Setenv("VIDTUBE_COOKIE_SECURE", "false")
	t.Setenv("VIDTUBE_MAX_IMAGE_BYTES", "not-a-number")
	t.Setenv("VIDTUBE_TRUST_PROXY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9090 {
		t.Fatalf("expected port override got %d", cfg.AppPort)
	}
	if cfg.Auth.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("expected ttl override got %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.ObjectStore.Backend != BackendMinio {
		t.Fatalf("expected minio backend got %q", cfg.ObjectStore.Backend)
	}
	if cfg.Auth.CookieSecure {
		t.Fatal("expected cookie secure override")
	}
	if cfg.MaxImageBytes != 10*1024*1024 {
		t.Fatalf("expected fallback for invalid number got %d", cfg.MaxImageBytes)
	}
	if !cfg.RateLimit.TrustProxy {
		t.Fatal("expected trust proxy override")
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	contents := "VIDTUBE_DATABASE_URL=postgres://from-file/vidtube\nVIDTUBE_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("VIDTUBE_ENV_FILE", path)
	t.Setenv("VIDTUBE_LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("VIDTUBE_DATABASE_URL") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DatabaseURL != "postgres://from-file/vidtube" {
		t.Fatalf("expected database url from file got %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected real environment to win got %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		MaxVideoBytes: 1,
		MaxImageBytes: 1,
		Auth: AuthConfig{
			AccessTokenSecret:  "access",
			RefreshTokenSecret: "refresh",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
		},
		ObjectStore: ObjectStoreConfig{Backend: BackendS3, Bucket: "media"},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing access secret", func(c *Config) { c.Auth.AccessTokenSecret = "" }, "VIDTUBE_ACCESS_TOKEN_SECRET"},
		{"shared secrets", func(c *Config) { c.Auth.RefreshTokenSecret = "access" }, "must differ"},
		{"zero ttl", func(c *Config) { c.Auth.RefreshTokenTTL = 0 }, "ttls must be positive"},
		{"unknown backend", func(c *Config) { c.ObjectStore.Backend = "gcs" }, "unknown object store backend"},
		{"no bucket", func(c *Config) { c.ObjectStore.Bucket = " " }, "BUCKET is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
