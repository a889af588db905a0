package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/convergence/ai"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Matching.TopN)
	assert.Equal(t, 0.15, cfg.Matching.HintBoost)
	assert.Equal(t, 0.35, cfg.Matching.MinSimilarity)
	assert.Equal(t, 0.4, cfg.Relevance.MinRelevance)
	assert.Equal(t, 30*24*time.Hour, cfg.Taxonomy.TTL)
	assert.Equal(t, 4, cfg.Selection.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.Selection.ItemTimeout)
	assert.Empty(t, cfg.Embedding.ClassifierModel)

	w := cfg.Weights()
	assert.Equal(t, 0.4, w.Category)
	assert.Equal(t, 0.4, w.Relevance)
	assert.Equal(t, 0.2, w.Diversity)
	assert.Equal(t, 0.4, w.Impact)
	assert.Equal(t, 10.0, w.ImpactScale)
	assert.Equal(t, cfg.Matching.TopN, w.TopN)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, mapLookup(map[string]string{
		"OPENAI_API_KEY":                  "sk-test",
		"EMBEDDING_MODEL":                 "text-embedding-3-large",
		"CONVERGENCE_CATEGORIES_PER_NEWS": "4",
		"CONVERGENCE_MIN_SIMILARITY":      "0.5",
		"CONVERGENCE_WEIGHT":              "0.75",
		"CONVERGENCE_CACHE_TTL_DAYS":      "7",
		"ARXIV_LOOKBACK_DAYS":             "30",
		"ARXIV_MAX_RESULTS":               "20",
		"CONVERGENCE_ITEM_TIMEOUT":        "45s",
		"CONVERGENCE_STORAGE_IN_MEMORY":   "true",
		"LOG_LEVEL":                       "warn",
		"CONVERGENCE_LOG_LEVEL":           "debug",
		"CONVERGENCE_CLASSIFIER_MODEL":    "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 4, cfg.Matching.TopN)
	assert.Equal(t, 4, cfg.Weights().TopN)
	assert.Equal(t, 0.5, cfg.Matching.MinSimilarity)
	assert.InDelta(t, 0.25, cfg.Scoring.ImpactWeight, 1e-9)
	assert.Equal(t, 7*24*time.Hour, cfg.Taxonomy.TTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Retrieval.RecencyWindow)
	assert.Equal(t, 20, cfg.SelectionConfig().MaxResults)
	assert.Equal(t, 45*time.Second, cfg.SelectionConfig().ItemTimeout)
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.Embedding.ClassifierModel, "empty values are ignored")
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	err := applyEnv(cfg, mapLookup(map[string]string{
		"CONVERGENCE_CONCURRENCY":    "many",
		"CONVERGENCE_CACHE_TTL_DAYS": "soon",
		"CONVERGENCE_ITEM_TIMEOUT":   "120",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "CONVERGENCE_CONCURRENCY")
	assert.ErrorContains(t, err, "CONVERGENCE_CACHE_TTL_DAYS")
	assert.ErrorContains(t, err, "CONVERGENCE_ITEM_TIMEOUT")

	assert.Equal(t, 4, cfg.Selection.Concurrency)
	assert.Equal(t, 30*24*time.Hour, cfg.Taxonomy.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"provider", func(c *Config) { c.Embedding.Provider = "carrier-pigeon" }},
		{"retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"ttl", func(c *Config) { c.Taxonomy.TTL = 0 }},
		{"top n", func(c *Config) { c.Matching.TopN = 0 }},
		{"hint boost", func(c *Config) { c.Matching.HintBoost = 2 }},
		{"min relevance", func(c *Config) { c.Relevance.MinRelevance = -0.1 }},
		{"weight", func(c *Config) { c.Scoring.CategoryWeight = 1.5 }},
		{"impact scale", func(c *Config) { c.Scoring.ImpactScale = 0 }},
		{"concurrency", func(c *Config) { c.Selection.Concurrency = 0 }},
		{"max results", func(c *Config) { c.Retrieval.MaxResults = 0 }},
		{"base url", func(c *Config) { c.Retrieval.BaseURL = "" }},
		{"storage path", func(c *Config) { c.Storage.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := Default()
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenDotEnvThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "convergence.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
embedding:
  provider: local
  local_model: sentence-transformers/all-MiniLM-L6-v2
matching:
  top_n: 5
selection:
  item_timeout: 90s
retrieval:
  max_results: 15
storage:
  path: /var/lib/convergence
`), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("ARXIV_MAX_RESULTS=25\nCONVERGENCE_CONCURRENCY=6\n"), 0o600))

	// The process environment wins over the dotenv file.
	t.Setenv("CONVERGENCE_CONCURRENCY", "2")
	t.Setenv("ARXIV_MAX_RESULTS", "")

	cfg, err := Load(cfgPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, ai.ProviderLocal, cfg.Embedding.Provider)
	assert.Equal(t, 5, cfg.Matching.TopN)
	assert.Equal(t, 90*time.Second, cfg.Selection.ItemTimeout)
	assert.Equal(t, "/var/lib/convergence", cfg.Storage.Path)
	assert.Equal(t, 2, cfg.Selection.Concurrency)
	assert.Equal(t, 15, cfg.Retrieval.MaxResults)
	// defaults survive for keys the file omits
	assert.Equal(t, 0.15, cfg.Matching.HintBoost)
	assert.Equal(t, "local:sentence-transformers/all-MiniLM-L6-v2", cfg.AIConfig().ModelID())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("matching: [unclosed"), 0o600))
	_, err = Load(bad, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("matching:\n  top_n: 0\n"), 0o600))
	_, err = Load(invalid, filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSave_OmitsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Embedding.APIKey = "sk-secret"
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Equal(t, "sk-secret", cfg.Embedding.APIKey)
}
