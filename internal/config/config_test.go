package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/storage"
)

// clearEnv blanks every variable Load consults
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvConfigFile, EnvEnvironment, EnvDataDir, EnvReposDir, EnvVectorStorePath, EnvDBPath,
		EnvStoreBackend, EnvHTTPAddr, EnvLogLevel,
		llm.EnvProvider, llm.EnvModel, llm.EnvOpenAIAPIKey, llm.EnvOpenAIBase, llm.EnvGeminiAPIKey,
		"CONFLUENCE_BASE_URL", "CONFLUENCE_EMAIL", "CONFLUENCE_API_TOKEN",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, filepath.Join("demo_data", "demo_repos"), cfg.Paths.ReposDir)
	assert.Equal(t, filepath.Join("demo_data", "vector_store", "documents.jsonl"), cfg.Paths.VectorStorePath)
	assert.Equal(t, filepath.Join("demo_data", "demo.db"), cfg.Paths.DBPath)
	assert.Equal(t, storage.BackendJSONL, cfg.Storage.Backend)
	assert.Equal(t, llm.ProviderEcho, cfg.LLM.Provider)
	assert.Equal(t, llm.DefaultMaxTokens, cfg.LLM.MaxTokens)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "docs", cfg.Ingest.Subdir)

	sc := cfg.SearcherConfig()
	assert.Equal(t, 5.0, sc.MinScore)
	assert.True(t, sc.Fallback)
	assert.Equal(t, 80, sc.DocsWindow.Radius)
	assert.True(t, sc.DocsWindow.CollapseNewlines)
	assert.Equal(t, 200, sc.RecordWindow.Radius)
	assert.True(t, sc.RecordWindow.Trim)
	assert.Equal(t, 0, sc.CacheSize)
	assert.Equal(t, time.Minute, sc.CacheTTL)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_DOCOPS_TOKEN", "tok-123")

	path := writeConfig(t, `
env: production
paths:
  data_dir: /srv/docops
storage:
  backend: sqlite
search:
  min_score: 0
  fallback: false
  docs_radius: 40
  cache_size: 250
llm:
  provider: OpenAI
  api_key: ${TEST_DOCOPS_KEY:-sk-default}
  temperature: 0.7
confluence:
  base_url: https://acme.atlassian.net/wiki
  email: bot@acme.io
  api_token: ${TEST_DOCOPS_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, "/srv/docops/demo.db", cfg.Paths.DBPath)
	assert.Equal(t, storage.Options{
		Backend:   storage.BackendSQLite,
		JSONLPath: "/srv/docops/vector_store/documents.jsonl",
		DBPath:    "/srv/docops/demo.db",
	}, cfg.StorageOptions())

	sc := cfg.SearcherConfig()
	assert.Equal(t, 0.0, sc.MinScore)
	assert.False(t, sc.Fallback)
	assert.Equal(t, 40, sc.DocsWindow.Radius)
	assert.Equal(t, 250, sc.CacheSize)

	lc := cfg.LLMClientConfig()
	assert.Equal(t, llm.ProviderOpenAI, lc.Provider)
	assert.Equal(t, "sk-default", lc.APIKey)
	require.NotNil(t, lc.Temperature)
	assert.InDelta(t, 0.7, *lc.Temperature, 1e-6)

	cc := cfg.ConfluenceClientConfig()
	assert.Equal(t, "tok-123", cc.APIToken)
	assert.True(t, cc.Configured())
	assert.Equal(t, 15*time.Second, cc.Timeout)

	assert.NotContains(t, cfg.String(), "tok-123")
	assert.NotContains(t, cfg.String(), "sk-default")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "paths:\n  repos_dir: /from/file\nllm:\n  model: from-file\n")

	t.Setenv(EnvReposDir, "/from/env")
	t.Setenv(EnvVectorStorePath, "/data/docs.jsonl")
	t.Setenv(llm.EnvModel, "gpt-4o")
	t.Setenv(llm.EnvOpenAIAPIKey, "sk-env")
	t.Setenv(llm.EnvOpenAIBase, "http://gateway/v1")
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.Paths.ReposDir)
	assert.Equal(t, "/data/docs.jsonl", cfg.Paths.VectorStorePath)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "http://gateway/v1", cfg.LLM.BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(writeConfig(t, "search: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	// no .env is fine
	_, err := Load("")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=value\n"), 0o644))
	_, err = Load("")
	assert.ErrorContains(t, err, "failed to load .env")
}

func TestValidate(t *testing.T) {
	negative := -1.0
	notANumber := math.NaN()
	infinite := math.Inf(1)
	hot := float32(3)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid"},
		{name: "env", mutate: func(c *Config) { c.Env = "staging" }, wantErr: "env must be"},
		{name: "backend", mutate: func(c *Config) { c.Storage.Backend = "redis" }, wantErr: "storage.backend"},
		{name: "min score", mutate: func(c *Config) { c.Search.MinScore = &negative }, wantErr: "search.min_score"},
		{name: "min score nan", mutate: func(c *Config) { c.Search.MinScore = &notANumber }, wantErr: "search.min_score"},
		{name: "min score inf", mutate: func(c *Config) { c.Search.MinScore = &infinite }, wantErr: "search.min_score"},
		{name: "provider", mutate: func(c *Config) { c.LLM.Provider = "llama" }, wantErr: "llm.provider"},
		{name: "temperature", mutate: func(c *Config) { c.LLM.Temperature = &hot }, wantErr: "llm.temperature"},
		{name: "workers", mutate: func(c *Config) { c.Ingest.Workers = -2 }, wantErr: "ingest.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			var cfg Config
			cfg.ApplyDefaults()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_SET", "value")
	t.Setenv("TEST_EXPAND_EMPTY", "")

	out := expandEnvVars([]byte("a: ${TEST_EXPAND_SET}\nb: ${TEST_EXPAND_EMPTY:-fallback}\nc: ${TEST_EXPAND_EMPTY}\n"))
	assert.Equal(t, "a: value\nb: fallback\nc: \n", string(out))
}
