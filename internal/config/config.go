package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the artisanmatch API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matching  MatchingConfig  `yaml:"matching"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig holds catalog store connection settings.
type CatalogConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Dimensions     int     `yaml:"dimensions"`
	MaxBatchSize   int     `yaml:"max_batch_size"`
	Workers        int     `yaml:"workers"`
	RequestsPerSec float64 `yaml:"requests_per_sec"` // 0 = unlimited
	TimeoutSec     int     `yaml:"timeout_sec"`
	RetryDelayMs   int     `yaml:"retry_delay_ms"`
	HealthWindow   int     `yaml:"health_window"`    // rolling outcome window size
	HealthMaxFails float64 `yaml:"health_max_fails"` // failure ratio above which provider is unhealthy
}

// MatchingConfig holds orchestrator and ranking settings.
type MatchingConfig struct {
	DefaultMaxResults  int     `yaml:"default_max_results"`
	MaxResultsCap      int     `yaml:"max_results_cap"`
	DefaultMinScore    float64 `yaml:"default_min_score"`
	VectorPathTimeoutS int     `yaml:"vector_path_timeout_sec"`
	ReembedBudget      int     `yaml:"reembed_budget"` // max synchronous re-embeds per request
}

// CacheConfig holds bounded cache settings shared by embeddings and results.
type CacheConfig struct {
	EmbeddingSize   int `yaml:"embedding_size"`
	EmbeddingTTLSec int `yaml:"embedding_ttl_sec"`
	ResultSize      int `yaml:"result_size"`
	ResultTTLSec    int `yaml:"result_ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = "redis"
	}
	if c.Catalog.KeyPrefix == "" {
		c.Catalog.KeyPrefix = "artisanmatch:"
	}
	if c.Catalog.ReadinessTimeout <= 0 {
		c.Catalog.ReadinessTimeout = 10
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 64
	}
	if c.Embedding.Workers <= 0 {
		c.Embedding.Workers = 4
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.RetryDelayMs <= 0 {
		c.Embedding.RetryDelayMs = 200
	}
	if c.Embedding.HealthWindow <= 0 {
		c.Embedding.HealthWindow = 20
	}
	if c.Embedding.HealthMaxFails <= 0 {
		c.Embedding.HealthMaxFails = 0.5
	}
	if c.Matching.DefaultMaxResults <= 0 {
		c.Matching.DefaultMaxResults = 20
	}
	if c.Matching.MaxResultsCap <= 0 {
		c.Matching.MaxResultsCap = 50
	}
	if c.Matching.DefaultMinScore <= 0 {
		c.Matching.DefaultMinScore = 0.2
	}
	if c.Matching.VectorPathTimeoutS <= 0 {
		c.Matching.VectorPathTimeoutS = 5
	}
	if c.Matching.ReembedBudget < 0 {
		c.Matching.ReembedBudget = 0
	}
	if c.Cache.EmbeddingSize <= 0 {
		c.Cache.EmbeddingSize = 4096
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 24 * 3600
	}
	if c.Cache.ResultSize <= 0 {
		c.Cache.ResultSize = 1024
	}
	if c.Cache.ResultTTLSec <= 0 {
		c.Cache.ResultTTLSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Catalog.Driver {
	case "redis":
		if len(c.Catalog.Addrs) == 0 {
			return fmt.Errorf("catalog.addrs is required for the redis driver")
		}
	case "memory":
		// no connection settings needed
	default:
		return fmt.Errorf("catalog.driver must be \"redis\" or \"memory\", got %q", c.Catalog.Driver)
	}
	if c.Embedding.HealthMaxFails > 1 {
		return fmt.Errorf("embedding.health_max_fails must be within (0,1], got %v", c.Embedding.HealthMaxFails)
	}
	if c.Matching.DefaultMinScore < 0 || c.Matching.DefaultMinScore > 1 {
		return fmt.Errorf("matching.default_min_score must be between 0 and 1")
	}
	if c.Matching.DefaultMaxResults > c.Matching.MaxResultsCap {
		return fmt.Errorf("matching.default_max_results exceeds matching.max_results_cap")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
