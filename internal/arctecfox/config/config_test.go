package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
GRPC_PORT: 6000
HTTP_PORT: 7000
DB_HOST: db
JWT_SECRET: from-file
TOKEN_TTL: 15m
KAFKA_BROKERS: [k1:9092, k2:9092]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "arctecfox", cfg.DBName, "unset keys keep their defaults")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "JWT_SECRET: from-file\nHTTP_PORT: 7000\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "a:1, b:2")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
}

func TestDotEnvFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "HTTP_PORT: 7000\n")
	envFile := writeFile(t, ".env", "JWT_SECRET=from-dotenv\nREDIS_PASSWORD=hunter2\n")
	// t.Setenv registers cleanup that restores the unset state
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REDIS_PASSWORD", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("REDIS_PASSWORD"))

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.JWTSecret)
	assert.Equal(t, "hunter2", cfg.RedisPass)
}

func TestMissingFilesUseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().HTTPPort, cfg.HTTPPort)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "config.yaml", "HTTP_PORT: [unclosed"))
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("non integer port", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s")
		t.Setenv("HTTP_PORT", "eighty")
		_, err := Load(writeFile(t, "config.yaml", ""))
		assert.ErrorContains(t, err, "HTTP_PORT must be an integer")
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load(writeFile(t, "config.yaml", ""))
		assert.ErrorContains(t, err, "JWT_SECRET cannot be empty")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "same ports", mutate: func(c *Config) { c.GRPCPort = c.HTTPPort }, wantErr: "must differ"},
		{name: "zero port", mutate: func(c *Config) { c.HTTPPort = 0 }, wantErr: "must be > 0"},
		{name: "no db name", mutate: func(c *Config) { c.DBName = "" }, wantErr: "DB_NAME"},
		{name: "no ttl", mutate: func(c *Config) { c.TokenTTL = 0 }, wantErr: "TOKEN_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.JWTSecret = "s"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
