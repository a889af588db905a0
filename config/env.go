package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overlays environment variables onto cfg. Unprefixed names are
// legacy settings; where both exist the CONVERGENCE_ one wins.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("LOG_LEVEL", &cfg.LogLevel)
	e.str("CONVERGENCE_LOG_LEVEL", &cfg.LogLevel)

	e.str("CONVERGENCE_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	e.str("CONVERGENCE_EMBEDDING_HOST", &cfg.Embedding.Host)
	e.str("EMBEDDING_MODEL", &cfg.Embedding.Model)
	e.str("CONVERGENCE_CLASSIFIER_HOST", &cfg.Embedding.ClassifierHost)
	e.str("CONVERGENCE_CLASSIFIER_MODEL", &cfg.Embedding.ClassifierModel)
	e.str("OPENAI_API_KEY", &cfg.Embedding.APIKey)
	e.str("CONVERGENCE_LOCAL_MODEL", &cfg.Embedding.LocalModel)
	e.str("CONVERGENCE_LOCAL_MODEL_DIR", &cfg.Embedding.LocalModelDir)

	e.integer("CONVERGENCE_RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	e.duration("CONVERGENCE_RETRY_CALL_TIMEOUT", &cfg.Retry.CallTimeout)

	e.days("CONVERGENCE_CACHE_TTL_DAYS", &cfg.Taxonomy.TTL)

	e.integer("CONVERGENCE_CATEGORIES_PER_NEWS", &cfg.Matching.TopN)
	e.float("CONVERGENCE_HINT_BOOST", &cfg.Matching.HintBoost)
	e.float("CONVERGENCE_MIN_SIMILARITY", &cfg.Matching.MinSimilarity)
	e.float("CONVERGENCE_MIN_RELEVANCE", &cfg.Relevance.MinRelevance)

	// CONVERGENCE_WEIGHT is the share of the combined score given to
	// convergence; the rest goes to impact.
	var convergenceWeight float64
	if e.float("CONVERGENCE_WEIGHT", &convergenceWeight) {
		cfg.Scoring.ImpactWeight = 1 - convergenceWeight
	}

	e.integer("CONVERGENCE_CONCURRENCY", &cfg.Selection.Concurrency)
	e.duration("CONVERGENCE_ITEM_TIMEOUT", &cfg.Selection.ItemTimeout)

	e.str("ARXIV_BASE_URL", &cfg.Retrieval.BaseURL)
	e.integer("ARXIV_MAX_RESULTS", &cfg.Retrieval.MaxResults)
	e.days("ARXIV_LOOKBACK_DAYS", &cfg.Retrieval.RecencyWindow)

	e.str("CONVERGENCE_STORAGE_PATH", &cfg.Storage.Path)
	e.boolean("CONVERGENCE_STORAGE_IN_MEMORY", &cfg.Storage.InMemory)
	e.boolean("CONVERGENCE_AUDIT_ENABLED", &cfg.Audit.Enabled)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, value, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) bool {
	v, ok := e.get(key)
	if !ok {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return false
	}
	*dst = f
	return true
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

func (e *envReader) days(key string, dst *time.Duration) {
	var n int
	before := len(e.errs)
	e.integer(key, &n)
	if len(e.errs) > before {
		return
	}
	if _, ok := e.get(key); ok {
		*dst = time.Duration(n) * 24 * time.Hour
	}
}
