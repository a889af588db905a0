package match

import (
	"errors"
	"fmt"
)

// Defaults for category matching.
const (
	DefaultTopN          = 3
	DefaultHintBoost     = 0.15
	DefaultMinSimilarity = 0.35
)

// ErrInvalidConfig indicates out-of-range matching thresholds.
var ErrInvalidConfig = errors.New("invalid match config")

// Config holds the matching thresholds. It is not modified after NewMatcher.
type Config struct {
	// TopN is the maximum number of matches returned.
	TopN int
	// HintBoost is added to the similarity of hinted categories.
	HintBoost float64
	// MinSimilarity is the floor on boosted similarity.
	MinSimilarity float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() *Config {
	return &Config{
		TopN:          DefaultTopN,
		HintBoost:     DefaultHintBoost,
		MinSimilarity: DefaultMinSimilarity,
	}
}

// Validate checks every threshold.
func (c *Config) Validate() error {
	if c.TopN < 1 {
		return fmt.Errorf("%w: top_n must be at least 1, got %d", ErrInvalidConfig, c.TopN)
	}
	if !(c.HintBoost >= 0 && c.HintBoost <= 1) {
		return fmt.Errorf("%w: hint_boost must be in [0,1], got %v", ErrInvalidConfig, c.HintBoost)
	}
	if !(c.MinSimilarity >= 0 && c.MinSimilarity <= 1) {
		return fmt.Errorf("%w: min_similarity must be in [0,1], got %v", ErrInvalidConfig, c.MinSimilarity)
	}
	return nil
}
