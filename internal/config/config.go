package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the jurisdoc service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Index    IndexConfig    `yaml:"index"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds the API account and token settings.
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Password     string `yaml:"password"`      // hashed at start-up when no hash is given
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTLMin  int    `yaml:"token_ttl_min"`
	Issuer       string `yaml:"issuer"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	DialTimeoutSec   int      `yaml:"dial_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// DialTimeout returns the per-connection dial budget.
func (c DatabaseConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSec) * time.Second
}

// IndexConfig holds text index and query settings.
type IndexConfig struct {
	Scorer             string `yaml:"scorer"`   // TFIDF, BM25, BM25STD
	Language           string `yaml:"language"` // stemming language, empty = server default
	DefaultSearchLimit int    `yaml:"default_search_limit"`
	MaxSearchLimit     int    `yaml:"max_search_limit"`
	ListPageSize       int    `yaml:"list_page_size"`
}

// IngestConfig holds archive ingestion settings.
type IngestConfig struct {
	IndexURL        string  `yaml:"index_url"`
	ArchiveSuffix   string  `yaml:"archive_suffix"`
	MemberSuffix    string  `yaml:"member_suffix"`
	MaxMemberMB     int     `yaml:"max_member_mb"`
	Workers         int     `yaml:"workers"`
	FetchTimeoutSec int     `yaml:"fetch_timeout_sec"`
	ListTimeoutSec  int     `yaml:"list_timeout_sec"`
	StoreTimeoutSec int     `yaml:"store_timeout_sec"`
	FetchRatePerSec float64 `yaml:"fetch_rate_per_sec"` // 0 = unlimited
	MaxArchives     int     `yaml:"max_archives"`       // 0 = all
	UserAgent       string  `yaml:"user_agent"`
}

// FetchTimeout returns the per-archive download budget.
func (c IngestConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// ListTimeout returns the index page budget.
func (c IngestConfig) ListTimeout() time.Duration {
	return time.Duration(c.ListTimeoutSec) * time.Second
}

// StoreTimeout returns the per-upsert budget.
func (c IngestConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
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

// LoadDotEnv loads variables from the given files (default ".env") into the
// process environment without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.DialTimeoutSec <= 0 {
		c.Database.DialTimeoutSec = 5
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "jurisdoc:"
	}
	if c.Auth.TokenTTLMin <= 0 {
		c.Auth.TokenTTLMin = 60
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "jurisdoc"
	}
	if c.Index.Scorer == "" {
		c.Index.Scorer = "TFIDF"
	}
	if c.Index.DefaultSearchLimit <= 0 {
		c.Index.DefaultSearchLimit = 10
	}
	if c.Index.MaxSearchLimit <= 0 {
		c.Index.MaxSearchLimit = 100
	}
	if c.Index.ListPageSize <= 0 {
		c.Index.ListPageSize = 500
	}
	if c.Ingest.ArchiveSuffix == "" {
		c.Ingest.ArchiveSuffix = ".tar.gz"
	}
	if c.Ingest.MemberSuffix == "" {
		c.Ingest.MemberSuffix = ".xml"
	}
	if c.Ingest.MaxMemberMB <= 0 {
		c.Ingest.MaxMemberMB = 64
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.FetchTimeoutSec <= 0 {
		c.Ingest.FetchTimeoutSec = 600
	}
	if c.Ingest.ListTimeoutSec <= 0 {
		c.Ingest.ListTimeoutSec = 30
	}
	if c.Ingest.StoreTimeoutSec <= 0 {
		c.Ingest.StoreTimeoutSec = 10
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = "jurisdoc-ingest/1.0"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	switch strings.ToUpper(c.Index.Scorer) {
	case "TFIDF", "BM25", "BM25STD":
	default:
		return fmt.Errorf("index.scorer must be TFIDF, BM25 or BM25STD, got %q", c.Index.Scorer)
	}
	if c.Index.DefaultSearchLimit > c.Index.MaxSearchLimit {
		return fmt.Errorf(
			"index.default_search_limit (%d) exceeds index.max_search_limit (%d)",
			c.Index.DefaultSearchLimit, c.Index.MaxSearchLimit,
		)
	}
	if c.Ingest.FetchRatePerSec < 0 {
		return fmt.Errorf("ingest.fetch_rate_per_sec must not be negative")
	}
	if c.Ingest.MaxArchives < 0 {
		return fmt.Errorf("ingest.max_archives must not be negative")
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
