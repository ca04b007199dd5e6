package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/metrics"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		UploadDir:     os.TempDir(),
		MaxVideoBytes: 1 << 20,
		MaxImageBytes: 1 << 10,
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access",
			RefreshTokenSecret: "refresh",
			AccessTokenTTL:     time.Minute,
			RefreshTokenTTL:    time.Hour,
			BcryptCost:         4,
		},
		ObjectStore: config.ObjectStoreConfig{
			Backend:   config.BackendS3,
			Bucket:    "test-bucket",
			Endpoint:  "http://localhost:9000",
			Region:    "us-east-1",
			AccessKey: "test",
			SecretKey: "test",
		},
		RateLimit: config.RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 2},
	}
}

func TestBuildDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := buildDependencies(context.Background(), fakePool{}, testConfig(), metrics.New(), logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Accounts == nil || deps.Channels == nil || deps.Videos == nil {
		t.Fatal("expected services to be configured")
	}
	if deps.Tokens == nil {
		t.Fatal("expected token verifier to be configured")
	}
	if deps.RateLimiter == nil || deps.RequestObserver == nil || deps.Metrics == nil {
		t.Fatal("expected rate limiter and metrics to be configured")
	}
	if deps.Uploads.MaxVideoBytes != 1<<20 || deps.Uploads.MaxImageBytes != 1<<10 {
		t.Fatalf("unexpected upload limits %+v", deps.Uploads)
	}
	if err := deps.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to surface pool errors")
	}
}

func TestBuildDependenciesRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.ObjectStore.Backend = "cloudinary"

	if _, err := buildDependencies(context.Background(), fakePool{}, cfg, metrics.New(), slog.Default()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadMigrationsSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.sql", "0001_a.sql", "notes.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	var versions []string
	for _, m := range migrations {
		versions = append(versions, m.version)
	}
	if !reflect.DeepEqual(versions, []string{"0001_a.sql", "0002_b.sql"}) {
		t.Fatalf("unexpected migrations %v", versions)
	}

	if _, err := loadMigrations(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadMigrationsIncludesRepositorySchema(t *testing.T) {
	migrations, err := loadMigrations("../../migrations")
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) == 0 || migrations[0].version != "0001_init.sql" {
		t.Fatalf("expected initial schema first, got %+v", migrations)
	}
}

func TestShouldRetryMigration(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "wrapped deadlock", err: errors.Join(errors.New("apply"), &pgconn.PgError{Code: "40P01"}), want: true},
		{name: "lock not available", err: &pgconn.PgError{Code: "55P03"}, want: true},
		{name: "syntax error", err: &pgconn.PgError{Code: "42601"}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetryMigration(tt.err); got != tt.want {
				t.Fatalf("shouldRetryMigration(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMigrationBackoff(t *testing.T) {
	if got := migrationBackoff(1); got != migrationBaseBackoff {
		t.Fatalf("expected base backoff, got %v", got)
	}
	if got := migrationBackoff(2); got != 2*migrationBaseBackoff {
		t.Fatalf("expected doubled backoff, got %v", got)
	}
	if got := migrationBackoff(20); got != migrationMaxBackoff {
		t.Fatalf("expected capped backoff, got %v", got)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without command")
	}
	if err := Run(context.Background(), []string{"seed"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
