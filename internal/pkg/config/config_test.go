package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultMaxFileSizeMB, cfg.Uploads.MaxFileSizeMB)
	assert.Equal(t, int(DefaultMagicCodeTTL.Minutes()), cfg.Identity.MagicCodeTTLMinutes)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAX_FILE_SIZE_MB", "10")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := defaultConfig()
	require.NoError(t, loadFromEnv(cfg))

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Uploads.MaxFileSizeMB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(10<<20), cfg.MaxFileSizeBytes())
}

func TestLoadFromEnvInvalidInt(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg := defaultConfig()
	assert.Error(t, loadFromEnv(cfg))
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  host: "localhost"
  port: 9191
uploads:
  max_file_size_mb: 8
  blob_base_url: "https://blob.example.com"
logging:
  level: "warn"
`
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg := defaultConfig()
	require.NoError(t, loadFromYAML(configPath, cfg))

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Uploads.MaxFileSizeMB)
	assert.Equal(t, "https://blob.example.com", cfg.Uploads.BlobBaseURL)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Значения, не заданные в файле, остаются значениями по умолчанию
	assert.Equal(t, int(DefaultMagicCodeTTL.Minutes()), cfg.Identity.MagicCodeTTLMinutes)
}

func TestLoadFromYAMLMissingFile(t *testing.T) {
	cfg := defaultConfig()
	assert.Error(t, loadFromYAML(filepath.Join(t.TempDir(), "absent.yml"), cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"non-positive shutdown timeout", func(c *Config) { c.Server.ShutdownTimeoutSeconds = 0 }, true},
		{"non-positive file size", func(c *Config) { c.Uploads.MaxFileSizeMB = 0 }, true},
		{"token without base url", func(c *Config) { c.Uploads.BlobToken = "vercel_blob_rw_x" }, true},
		{"token with base url", func(c *Config) {
			c.Uploads.BlobToken = "vercel_blob_rw_x"
			c.Uploads.BlobBaseURL = "https://blob.example.com"
		}, false},
		{"non-positive code ttl", func(c *Config) { c.Identity.MagicCodeTTLMinutes = 0 }, true},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Server: Server{Host: "localhost", Port: 8080}}
	assert.Equal(t, "localhost:8080", cfg.Address())
}
