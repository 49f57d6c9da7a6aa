// Package config loads the docops configuration from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docops-mcp/internal/confluence"
	"github.com/dshills/docops-mcp/internal/lexical"
	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
)

// Environment variables
const (
	EnvConfigFile      = "DOCOPS_CONFIG"
	EnvEnvironment     = "DOCOPS_ENV"
	EnvDataDir         = "DOCOPS_DATA_DIR"
	EnvReposDir        = "DOCOPS_REPOS_DIR"
	EnvVectorStorePath = "DOCOPS_VECTOR_STORE_PATH"
	EnvDBPath          = "DOCOPS_DB_PATH"
	EnvStoreBackend    = "DOCOPS_STORE_BACKEND"
	EnvHTTPAddr        = "DOCOPS_HTTP_ADDR"
	EnvLogLevel        = "DOCOPS_LOG_LEVEL"
)

// Config holds the docops configuration.
type Config struct {
	Env        string           `yaml:"env"`
	Paths      PathsConfig      `yaml:"paths"`
	Storage    StorageConfig    `yaml:"storage"`
	Search     SearchConfig     `yaml:"search"`
	Ingest     IngestConfig     `yaml:"ingest"`
	LLM        LLMConfig        `yaml:"llm"`
	Confluence ConfluenceConfig `yaml:"confluence"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	DataDir         string `yaml:"data_dir"`          // default: demo_data
	ReposDir        string `yaml:"repos_dir"`         // default: <data_dir>/demo_repos
	VectorStorePath string `yaml:"vector_store_path"` // default: <data_dir>/vector_store/documents.jsonl
	DBPath          string `yaml:"db_path"`           // default: <data_dir>/demo.db
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // jsonl (default) or sqlite
}

// SearchConfig tunes lexical search.
type SearchConfig struct {
	MinScore       *float64 `yaml:"min_score"`       // default: 5.0
	Fallback       *bool    `yaml:"fallback"`        // default: true
	DocsRadius     int      `yaml:"docs_radius"`     // default: 80
	RecordRadius   int      `yaml:"record_radius"`   // default: 200
	FallbackPrefix int      `yaml:"fallback_prefix"` // default: 2 * radius
	CacheSize      *int     `yaml:"cache_size"`      // default: 0 (disabled)
	CacheTTLSec    int      `yaml:"cache_ttl_sec"`   // default: 60
}

// IngestConfig tunes documentation ingestion.
type IngestConfig struct {
	Workers int    `yaml:"workers"` // default: number of CPUs
	Subdir  string `yaml:"subdir"`  // default: docs
}

// LLMConfig selects the chat provider.
type LLMConfig struct {
	Provider    string   `yaml:"provider"` // openai, gemini, echo
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int      `yaml:"max_tokens"`  // default: 2048
	Temperature *float32 `yaml:"temperature"` // default: 0.2
}

// ConfluenceConfig holds wiki credentials.
type ConfluenceConfig struct {
	BaseURL    string `yaml:"base_url"`
	Email      string `yaml:"email"`
	APIToken   string `yaml:"api_token"`
	TimeoutSec int    `yaml:"timeout_sec"` // default: 15
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string `yaml:"addr"` // default: :8080
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load builds the configuration. A .env file in the working directory is loaded
// first without overriding variables that are already set. path may be empty,
// in which case DOCOPS_CONFIG is consulted and, if unset, no file is read.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields with environment variables that are set.
func (c *Config) ApplyEnv() {
	setString(&c.Env, EnvEnvironment)
	setString(&c.Paths.DataDir, EnvDataDir)
	setString(&c.Paths.ReposDir, EnvReposDir)
	setString(&c.Paths.VectorStorePath, EnvVectorStorePath)
	setString(&c.Paths.DBPath, EnvDBPath)
	setString(&c.Storage.Backend, EnvStoreBackend)
	setString(&c.HTTP.Addr, EnvHTTPAddr)
	setString(&c.Logging.Level, EnvLogLevel)

	setString(&c.LLM.Provider, llm.EnvProvider)
	setString(&c.LLM.Model, llm.EnvModel)

	setString(&c.Confluence.BaseURL, confluence.EnvBaseURL)
	setString(&c.Confluence.Email, confluence.EnvEmail)
	setString(&c.Confluence.APIToken, confluence.EnvAPIToken)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "demo_data"
	}
	if c.Paths.ReposDir == "" {
		c.Paths.ReposDir = filepath.Join(c.Paths.DataDir, "demo_repos")
	}
	if c.Paths.VectorStorePath == "" {
		c.Paths.VectorStorePath = filepath.Join(c.Paths.DataDir, "vector_store", "documents.jsonl")
	}
	if c.Paths.DBPath == "" {
		c.Paths.DBPath = filepath.Join(c.Paths.DataDir, "demo.db")
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = storage.BackendJSONL
	}

	if c.Search.MinScore == nil {
		v := lexical.DefaultMinScore
		c.Search.MinScore = &v
	}
	if c.Search.Fallback == nil {
		v := true
		c.Search.Fallback = &v
	}
	if c.Search.DocsRadius <= 0 {
		c.Search.DocsRadius = lexical.PathWindow.Radius
	}
	if c.Search.RecordRadius <= 0 {
		c.Search.RecordRadius = lexical.RecordWindow.Radius
	}
	if c.Search.CacheSize == nil {
		v := searcher.DefaultConfig().CacheSize
		c.Search.CacheSize = &v
	}
	if c.Search.CacheTTLSec <= 0 {
		c.Search.CacheTTLSec = 60
	}

	if c.Ingest.Subdir == "" {
		c.Ingest.Subdir = "docs"
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Provider == "" {
		c.LLM.Provider = llm.DetectProvider()
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case llm.ProviderOpenAI:
			c.LLM.APIKey = os.Getenv(llm.EnvOpenAIAPIKey)
		case llm.ProviderGemini:
			c.LLM.APIKey = os.Getenv(llm.EnvGeminiAPIKey)
		}
	}
	if c.LLM.BaseURL == "" && c.LLM.Provider == llm.ProviderOpenAI {
		c.LLM.BaseURL = os.Getenv(llm.EnvOpenAIBase)
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = llm.DefaultMaxTokens
	}
	if c.LLM.Temperature == nil {
		v := llm.DefaultTemperature
		c.LLM.Temperature = &v
	}

	if c.Confluence.TimeoutSec <= 0 {
		c.Confluence.TimeoutSec = int(confluence.DefaultTimeout / time.Second)
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Q&A requests wait for the chat model
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Env {
	case "prod", "production", "local", "dev", "development", "test":
	default:
		return fmt.Errorf("env must be one of production, development, test, got %q", c.Env)
	}
	switch c.Storage.Backend {
	case storage.BackendJSONL, storage.BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", storage.BackendJSONL, storage.BackendSQLite, c.Storage.Backend)
	}
	if c.Search.MinScore != nil && (*c.Search.MinScore < 0 || math.IsNaN(*c.Search.MinScore) || math.IsInf(*c.Search.MinScore, 0)) {
		return errors.New("search.min_score must be a non-negative finite number")
	}
	if c.Search.CacheSize != nil && *c.Search.CacheSize < 0 {
		return errors.New("search.cache_size must be non-negative")
	}
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderEcho:
	default:
		return fmt.Errorf("llm.provider must be openai, gemini or echo, got %q", c.LLM.Provider)
	}
	if c.LLM.Temperature != nil && (*c.LLM.Temperature < 0 || *c.LLM.Temperature > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", *c.LLM.Temperature)
	}
	if c.Ingest.Workers < 0 {
		return errors.New("ingest.workers must be non-negative")
	}
	return nil
}

// Production reports whether the configuration targets production
func (c *Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

// StorageOptions returns the record store options
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:   c.Storage.Backend,
		JSONLPath: c.Paths.VectorStorePath,
		DBPath:    c.Paths.DBPath,
	}
}

// SearcherConfig returns the search engine settings
func (c *Config) SearcherConfig() searcher.Config {
	cfg := searcher.DefaultConfig()
	if c.Search.MinScore != nil {
		cfg.MinScore = *c.Search.MinScore
	}
	if c.Search.Fallback != nil {
		cfg.Fallback = *c.Search.Fallback
	}
	if c.Search.DocsRadius > 0 {
		cfg.DocsWindow.Radius = c.Search.DocsRadius
	}
	if c.Search.RecordRadius > 0 {
		cfg.RecordWindow.Radius = c.Search.RecordRadius
	}
	cfg.DocsWindow.FallbackPrefix = c.Search.FallbackPrefix
	cfg.RecordWindow.FallbackPrefix = c.Search.FallbackPrefix
	if c.Search.CacheSize != nil {
		cfg.CacheSize = *c.Search.CacheSize
	}
	if c.Search.CacheTTLSec > 0 {
		cfg.CacheTTL = time.Duration(c.Search.CacheTTLSec) * time.Second
	}
	return cfg
}

// LLMClientConfig returns the chat client settings
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
	}
}

// ConfluenceClientConfig returns the wiki client settings
func (c *Config) ConfluenceClientConfig() confluence.Config {
	return confluence.Config{
		BaseURL:  c.Confluence.BaseURL,
		Email:    c.Confluence.Email,
		APIToken: c.Confluence.APIToken,
		Timeout:  time.Duration(c.Confluence.TimeoutSec) * time.Second,
	}
}

// String renders the configuration as YAML with secrets masked
func (c Config) String() string {
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.Confluence.APIToken = mask(c.Confluence.APIToken)
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
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
