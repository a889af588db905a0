// Package config loads engine settings from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/match"
	"github.com/poiesic/convergence/relevance"
	"github.com/poiesic/convergence/retrieval/arxiv"
	"github.com/poiesic/convergence/retry"
	"github.com/poiesic/convergence/scoring"
	"github.com/poiesic/convergence/selection"
	"github.com/poiesic/convergence/taxonomy"
)

// ErrInvalidConfig wraps every validation and parse failure.
var ErrInvalidConfig = errors.New("invalid configuration")

type EmbeddingConfig struct {
	Provider        string `yaml:"provider"`
	Host            string `yaml:"host"`
	Model           string `yaml:"model"`
	ClassifierHost  string `yaml:"classifier_host"`
	ClassifierModel string `yaml:"classifier_model"`
	APIKey          string `yaml:"api_key"`
	LocalModel      string `yaml:"local_model"`
	LocalModelDir   string `yaml:"local_model_dir"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type TaxonomyConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type MatchingConfig struct {
	TopN          int     `yaml:"top_n"`
	HintBoost     float64 `yaml:"hint_boost"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

type RelevanceConfig struct {
	MinRelevance float64 `yaml:"min_relevance"`
}

type ScoringConfig struct {
	CategoryWeight  float64 `yaml:"category_weight"`
	RelevanceWeight float64 `yaml:"relevance_weight"`
	DiversityWeight float64 `yaml:"diversity_weight"`
	ImpactWeight    float64 `yaml:"impact_weight"`
	ImpactScale     float64 `yaml:"impact_scale"`
}

type SelectionConfig struct {
	Concurrency int           `yaml:"concurrency"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
	MaxKeywords int           `yaml:"max_keywords"`
}

type RetrievalConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxResults    int           `yaml:"max_results"`
	RecencyWindow time.Duration `yaml:"recency_window"`
}

type StorageConfig struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the complete engine configuration. It is not modified after Load.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retry     RetryConfig     `yaml:"retry"`
	Taxonomy  TaxonomyConfig  `yaml:"taxonomy"`
	Matching  MatchingConfig  `yaml:"matching"`
	Relevance RelevanceConfig `yaml:"relevance"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Selection SelectionConfig `yaml:"selection"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Storage   StorageConfig   `yaml:"storage"`
	Audit     AuditConfig     `yaml:"audit"`
}

// Default returns the built-in settings.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	policy := retry.DefaultPolicy()
	matchCfg := match.DefaultConfig()
	weights := scoring.DefaultWeights()
	sel := selection.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Embedding: EmbeddingConfig{
			Provider:       aiCfg.Provider,
			Host:           aiCfg.EmbeddingHost,
			Model:          aiCfg.EmbeddingModel,
			ClassifierHost: aiCfg.ClassifierHost,
			// The LLM extractor is opt-in; the heuristic needs no API calls.
			ClassifierModel: "",
			APIKey:          aiCfg.APIKey,
			LocalModel:      aiCfg.LocalModel,
			LocalModelDir:   aiCfg.LocalModelDir,
		},
		Retry: RetryConfig{
			MaxAttempts: policy.MaxAttempts,
			BaseDelay:   policy.BaseDelay,
			MaxDelay:    policy.MaxDelay,
			CallTimeout: policy.CallTimeout,
		},
		Taxonomy: TaxonomyConfig{TTL: taxonomy.DefaultTTL},
		Matching: MatchingConfig{
			TopN:          matchCfg.TopN,
			HintBoost:     matchCfg.HintBoost,
			MinSimilarity: matchCfg.MinSimilarity,
		},
		Relevance: RelevanceConfig{MinRelevance: relevance.DefaultMinRelevance},
		Scoring: ScoringConfig{
			CategoryWeight:  weights.Category,
			RelevanceWeight: weights.Relevance,
			DiversityWeight: weights.Diversity,
			ImpactWeight:    weights.Impact,
			ImpactScale:     weights.ImpactScale,
		},
		Selection: SelectionConfig{
			Concurrency: sel.Concurrency,
			ItemTimeout: sel.ItemTimeout,
			MaxKeywords: sel.MaxKeywords,
		},
		Retrieval: RetrievalConfig{
			BaseURL:       arxiv.DefaultBaseURL,
			Timeout:       arxiv.DefaultTimeout,
			MaxResults:    sel.MaxResults,
			RecencyWindow: sel.RecencyWindow,
		},
		Storage: StorageConfig{Path: "./convergence-data"},
		Audit:   AuditConfig{Enabled: true},
	}
}

// Load builds a Config. configPath may be empty; a named file that does not
// exist is an error. envPath names a dotenv file whose absence is ignored;
// variables already set in the environment win over it.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, configPath, err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, omitting the API key.
func Save(path string, cfg *Config) error {
	out := *cfg
	out.Embedding.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be debug, info, warn or error, got %q", ErrInvalidConfig, c.LogLevel)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: retry: %w", ErrInvalidConfig, err)
	}
	checks := []error{
		c.TaxonomyConfig().Validate(),
		c.MatchConfig().Validate(),
		c.RelevanceConfig().Validate(),
		c.Weights().Validate(),
		c.SelectionConfig().Validate(),
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.Retrieval.BaseURL == "" {
		return fmt.Errorf("%w: retrieval base_url is required", ErrInvalidConfig)
	}
	if c.Retrieval.Timeout <= 0 {
		return fmt.Errorf("%w: retrieval timeout must be positive, got %s", ErrInvalidConfig, c.Retrieval.Timeout)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is required unless in_memory is set", ErrInvalidConfig)
	}
	return nil
}

// AIConfig returns the provider settings.
func (c *Config) AIConfig() *ai.Config {
	e := c.Embedding
	return ai.NewConfig(
		ai.WithProvider(e.Provider),
		ai.WithEmbeddingHost(e.Host),
		ai.WithEmbeddingModel(e.Model),
		ai.WithClassifierHost(e.ClassifierHost),
		ai.WithClassifierModel(e.ClassifierModel),
		ai.WithAPIKey(e.APIKey),
		ai.WithLocalModel(e.LocalModel, e.LocalModelDir),
	)
}

// RetryPolicy returns the policy shared by the embedding and search adapters.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
		CallTimeout: c.Retry.CallTimeout,
	}
}

func (c *Config) TaxonomyConfig() *taxonomy.Config {
	return &taxonomy.Config{TTL: c.Taxonomy.TTL}
}

func (c *Config) MatchConfig() *match.Config {
	return &match.Config{
		TopN:          c.Matching.TopN,
		HintBoost:     c.Matching.HintBoost,
		MinSimilarity: c.Matching.MinSimilarity,
	}
}

func (c *Config) RelevanceConfig() *relevance.Config {
	return &relevance.Config{MinRelevance: c.Relevance.MinRelevance}
}

// Weights returns the scoring weights. TopN follows the matching section so
// the diversity denominator always equals the number of matched categories.
func (c *Config) Weights() scoring.Weights {
	return scoring.Weights{
		Category:    c.Scoring.CategoryWeight,
		Relevance:   c.Scoring.RelevanceWeight,
		Diversity:   c.Scoring.DiversityWeight,
		Impact:      c.Scoring.ImpactWeight,
		ImpactScale: c.Scoring.ImpactScale,
		TopN:        c.Matching.TopN,
	}
}

func (c *Config) SelectionConfig() *selection.Config {
	return &selection.Config{
		Concurrency:   c.Selection.Concurrency,
		ItemTimeout:   c.Selection.ItemTimeout,
		MaxKeywords:   c.Selection.MaxKeywords,
		MaxResults:    c.Retrieval.MaxResults,
		RecencyWindow: c.Retrieval.RecencyWindow,
	}
}
