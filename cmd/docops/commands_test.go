package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv points every path at a temporary data directory
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DOCOPS_CONFIG", "")
	t.Setenv("DOCOPS_ENV", "test")
	t.Setenv("DOCOPS_LOG_LEVEL", "error")
	t.Setenv("DOCOPS_DATA_DIR", dir)
	t.Setenv("DOCOPS_REPOS_DIR", filepath.Join(dir, "repos"))
	t.Setenv("DOCOPS_VECTOR_STORE_PATH", filepath.Join(dir, "store", "documents.jsonl"))
	t.Setenv("DOCOPS_DB_PATH", filepath.Join(dir, "demo.db"))
	t.Setenv("DOCOPS_STORE_BACKEND", "")
	t.Setenv("DOCOPS_LLM_PROVIDER", "echo")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CONFLUENCE_BASE_URL", "")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docops dev")
	assert.Contains(t, out, "Build Mode:")
}

func TestSeedAndSearch(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "seed")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, float64(2), report["projects"])
	assert.Greater(t, report["files_written"], float64(0))

	out, err = run(t, "", "search", "docops-saas", "kafka", "billing", "invoices")
	require.NoError(t, err)
	assert.Contains(t, out, "1. docs/billing_overview.md")

	out, err = run(t, "", "search", "ghost", "billing")
	require.NoError(t, err)
	assert.Contains(t, out, "No such project")

	_, err = run(t, "", "search", "docops-saas", "billing", "--subdir", "../..")
	require.Error(t, err)
}

func TestDocumentsCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "documents", "upsert", "docops-saas", "runbook-1",
		"Restart the payment gateway when webhooks stall", "--title", "Payments runbook", "--meta", "owner=payments")
	require.NoError(t, err)
	assert.Contains(t, out, `"replaced": false`)

	out, err = run(t, "Restart the payment gateway when webhooks stall. Page on-call.",
		"documents", "upsert", "docops-saas", "runbook-1", "--file", "-", "--title", "Payments runbook")
	require.NoError(t, err)
	assert.Contains(t, out, `"replaced": true`)

	out, err = run(t, "", "documents", "search", "docops-saas", "payment", "gateway", "--json")
	require.NoError(t, err)
	var resp struct {
		Hits []struct {
			ID      string `json:"id"`
			Snippet string `json:"snippet"`
		} `json:"hits"`
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "runbook-1", resp.Hits[0].ID)
	assert.Contains(t, resp.Hits[0].Snippet, "Page on-call")

	_, err = run(t, "", "documents", "upsert", "docops-saas", "runbook-2")
	require.Error(t, err)
}

func TestIngestAndAsk(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "", "seed", "--skip-registry")
	require.NoError(t, err)

	out, err := run(t, "", "ingest", "docops-saas")
	require.NoError(t, err)
	var stats []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, float64(5), stats[0]["files_indexed"])

	out, err = run(t, "", "ask", "docops-saas", "kafka", "billing", "invoices", "--json")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "echo", result["provider"])
	sources := result["sources"].([]any)
	require.NotEmpty(t, sources)
	assert.Equal(t, "docs/billing_overview.md", sources[0].(map[string]any)["path"])
}
