package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-canvas.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// CookieDomain is the domain for session cookies (optional).
	// If empty, it will be auto-derived from BaseURL.
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	ImageGen  ImageGenConfig  `yaml:"image_gen"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether bearer JWT signatures are validated.
	// Set to false for local development without an auth server.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// SessionCookieName is the cookie written by the web app's auth layer.
	SessionCookieName string `yaml:"session_cookie_name" env:"SESSION_COOKIE_NAME" env-default:"canvas-session"`

	// SessionSecret signs the session cookie. Shared with the web app.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"canvas"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_canvas"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds the optional Redis connection used for the explore cache.
// Leave Host empty to disable caching.
type RedisConfig struct {
	Host            string        `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port            int           `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password        string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB              int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	ExploreCacheTTL time.Duration `yaml:"explore_cache_ttl" env:"REDIS_EXPLORE_CACHE_TTL" env-default:"30s"`
}

// StorageConfig describes where generated image assets are written.
type StorageConfig struct {
	Region string `yaml:"region" env:"STORAGE_REGION" env-default:"us-east-1"`
	Bucket string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:""`
	// Endpoint overrides the S3 endpoint (MinIO, R2, localstack).
	Endpoint     string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:""`
	UsePathStyle bool   `yaml:"use_path_style" env:"STORAGE_USE_PATH_STYLE" env-default:"false"`
	// PublicBaseURL is prepended to object keys to form asset URLs.
	// Defaults to the virtual-hosted S3 URL of the bucket.
	PublicBaseURL string `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL" env-default:""`
	Folder        string `yaml:"folder" env:"STORAGE_FOLDER" env-default:"ekaya-canvas/generations"`

	// Static credentials. When empty the AWS default credential chain is used.
	AccessKeyID     string `yaml:"-" env:"STORAGE_ACCESS_KEY_ID"`     // Secret - not in YAML
	SecretAccessKey string `yaml:"-" env:"STORAGE_SECRET_ACCESS_KEY"` // Secret - not in YAML
}

// LLMConfig configures the text/vision model used for prompt expansion and
// context extraction.
type LLMConfig struct {
	// Provider for prompt expansion: "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	// BaseURL of the OpenAI-compatible endpoint. The default is Gemini's compatibility layer.
	BaseURL     string `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta/openai"`
	Model       string `yaml:"model" env:"LLM_MODEL" env-default:"gemini-2.5-flash"`
	VisionModel string `yaml:"vision_model" env:"LLM_VISION_MODEL" env-default:""` // Falls back to Model
	APIKey      string `yaml:"-" env:"LLM_API_KEY"`                              // Secret - not in YAML

	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-5-20250929"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML

	ExpansionTimeout  time.Duration `yaml:"expansion_timeout" env:"LLM_EXPANSION_TIMEOUT" env-default:"30s"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout" env:"LLM_EXTRACTION_TIMEOUT" env-default:"60s"`
}

// EffectiveVisionModel returns the model used for image understanding.
func (c *LLMConfig) EffectiveVisionModel() string {
	if c.VisionModel != "" {
		return c.VisionModel
	}
	return c.Model
}

// ImageGenConfig configures the image generation provider.
type ImageGenConfig struct {
	// Provider: "gemini" (native generateContent) or "openai" (images API).
	Provider string        `yaml:"provider" env:"IMAGE_GEN_PROVIDER" env-default:"gemini"`
	BaseURL  string        `yaml:"base_url" env:"IMAGE_GEN_BASE_URL" env-default:""` // Empty uses the provider default
	Model    string        `yaml:"model" env:"IMAGE_GEN_MODEL" env-default:"gemini-2.5-flash-image"`
	Size     string        `yaml:"size" env:"IMAGE_GEN_SIZE" env-default:"1024x1024"` // openai only
	APIKey   string        `yaml:"-" env:"IMAGE_GEN_API_KEY"`                         // Secret - not in YAML
	Timeout  time.Duration `yaml:"timeout" env:"IMAGE_GEN_TIMEOUT" env-default:"120s"`
}

// RateLimitConfig bounds how often one user may hit the expensive endpoints.
// PerMinute <= 0 disables limiting.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"10"`
	Burst     int `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"3"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path. A missing file is not an error;
// everything then comes from the environment and defaults.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)
	cfg.Redis.Host = ResolveHostForDocker(cfg.Redis.Host)

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}

	switch c.ImageGen.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("image_gen.provider must be gemini or openai, got %q", c.ImageGen.Provider)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}

	if c.ImageGen.Timeout <= 0 {
		return fmt.Errorf("image_gen.timeout must be positive")
	}

	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		endpoints[strings.TrimSpace(issuer)] = strings.TrimSpace(jwksURL)
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
