package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "  test-key  ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Screening.PageLimit)
	assert.Equal(t, time.Second, cfg.Screening.RequestDelay)
	assert.Equal(t, 10*time.Second, cfg.Screening.RateLimitBackoff)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize)
	assert.False(t, cfg.Qdrant.Enabled())
	assert.Equal(t, 1, cfg.Worker.Concurrency)
}

func TestLoadSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "gemini.key")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	t.Setenv("GEMINI_API_KEY", "inline")
	t.Setenv("GEMINI_API_KEY_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Gemini.APIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SCREENING_PAGE_LIMIT", "5")
	t.Setenv("SCREENING_REQUEST_DELAY", "250ms")
	t.Setenv("GEMINI_TEMPERATURE", "0.7")
	t.Setenv("QDRANT_URL", "http://localhost:6334")
	t.Setenv("SCREENING_RATE_LIMIT_BACKOFF", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Screening.PageLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Screening.RequestDelay)
	assert.InDelta(t, 0.7, cfg.Gemini.Temperature, 0.0001)
	assert.True(t, cfg.Qdrant.Enabled())
	assert.Equal(t, 10*time.Second, cfg.Screening.RateLimitBackoff)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Gemini:    GeminiConfig{Backend: "gemini", APIKey: "k"},
			Storage:   StorageConfig{Driver: "local"},
			Screening: ScreeningConfig{PageLimit: 3},
			Worker:    WorkerConfig{Concurrency: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.Gemini.APIKey = "" }, wantErr: "GEMINI_API_KEY"},
		{name: "vertex without project", mutate: func(c *Config) { c.Gemini.Backend = "vertex" }, wantErr: "GOOGLE_CLOUD_PROJECT"},
		{name: "unknown backend", mutate: func(c *Config) { c.Gemini.Backend = "openai" }, wantErr: "GEMINI_BACKEND"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Driver = "s3" }, wantErr: "S3_BUCKET"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Driver = "ftp" }, wantErr: "STORAGE_DRIVER"},
		{name: "zero page limit", mutate: func(c *Config) { c.Screening.PageLimit = 0 }, wantErr: "PAGE_LIMIT"},
		{name: "zero workers", mutate: func(c *Config) { c.Worker.Concurrency = 0 }, wantErr: "WORKER_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "talentscan", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=talentscan sslmode=disable", cfg.GetDatabaseDSN())
}
