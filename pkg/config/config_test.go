package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config.yaml into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
port: "3443"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
storage:
  bucket: "yaml-bucket"
image_gen:
  provider: "openai"
  model: "gpt-image-1"
`)

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORAGE_BUCKET", "env-bucket")

	cfg, err := LoadFile(path, "test-version")
	require.NoError(t, err)

	assert.Equal(t, "4443", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "http://localhost:4443", cfg.BaseURL)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "env-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "openai", cfg.ImageGen.Provider)
	assert.Equal(t, "gpt-image-1", cfg.ImageGen.Model)
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "canvas-assets")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), "dev")
	require.NoError(t, err)

	assert.Equal(t, "3443", cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gemini", cfg.ImageGen.Provider)
	assert.Equal(t, 120*time.Second, cfg.ImageGen.Timeout)
	assert.Equal(t, 30*time.Second, cfg.LLM.ExpansionTimeout)
	assert.Equal(t, 30*time.Second, cfg.Redis.ExploreCacheTTL)
	assert.Equal(t, "canvas-session", cfg.Auth.SessionCookieName)
	assert.Equal(t, "ekaya-canvas/generations", cfg.Storage.Folder)
	assert.Equal(t, 10, cfg.RateLimit.PerMinute)
}

func TestLoadFile_RequiresBucket(t *testing.T) {
	path := writeConfig(t, `env: "test"`)
	t.Setenv("STORAGE_BUCKET", "")

	_, err := LoadFile(path, "dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.bucket")
}

func TestLoadFile_RejectsUnknownProviders(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "b")

	t.Run("llm", func(t *testing.T) {
		path := writeConfig(t, "llm:\n  provider: \"cohere\"\n")
		_, err := LoadFile(path, "dev")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.provider")
	})

	t.Run("image_gen", func(t *testing.T) {
		path := writeConfig(t, "image_gen:\n  provider: \"midjourney\"\n")
		_, err := LoadFile(path, "dev")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "image_gen.provider")
	})
}

func TestLoadFile_BaseURLExplicit(t *testing.T) {
	path := writeConfig(t, "base_url: \"https://canvas.ekaya.ai\"\nstorage:\n  bucket: \"b\"\n")
	t.Setenv("BASE_URL", "")

	cfg, err := LoadFile(path, "dev")
	require.NoError(t, err)
	assert.Equal(t, "https://canvas.ekaya.ai", cfg.BaseURL)
}

func TestParseJWKSEndpoints(t *testing.T) {
	got := parseJWKSEndpoints("https://auth.ekaya.ai=https://auth.ekaya.ai/.well-known/jwks.json, https://dev=https://dev/jwks ,garbage")
	assert.Equal(t, map[string]string{
		"https://auth.ekaya.ai": "https://auth.ekaya.ai/.well-known/jwks.json",
		"https://dev":           "https://dev/jwks",
	}, got)

	assert.Empty(t, parseJWKSEndpoints(""))
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "canvas", Password: "p@ss word", Database: "canvas", SSLMode: "require"}
	assert.Equal(t, "postgres://canvas:p%40ss%20word@db:5433/canvas?sslmode=require", c.ConnectionString())
}

func TestLLMConfig_EffectiveVisionModel(t *testing.T) {
	c := LLMConfig{Model: "gemini-2.5-flash"}
	assert.Equal(t, "gemini-2.5-flash", c.EffectiveVisionModel())
	c.VisionModel = "gpt-4o"
	assert.Equal(t, "gpt-4o", c.EffectiveVisionModel())
}
