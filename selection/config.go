package selection

import (
	"fmt"
	"time"

	"github.com/poiesic/convergence/ai"
	"github.com/poiesic/convergence/retrieval"
)

// Config holds batch evaluation settings. It is not modified after NewSelector.
type Config struct {
	// Concurrency bounds how many items are evaluated at once.
	Concurrency int
	// ItemTimeout is the deadline for evaluating one item.
	ItemTimeout time.Duration
	// MaxKeywords bounds the search terms extracted per item.
	MaxKeywords int
	// MaxResults bounds the documents requested per matched category.
	MaxResults int
	// RecencyWindow is passed to the retriever. Zero disables it.
	RecencyWindow time.Duration
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:   4,
		ItemTimeout:   2 * time.Minute,
		MaxKeywords:   ai.DefaultMaxKeywords,
		MaxResults:    retrieval.DefaultMaxResults,
		RecencyWindow: retrieval.DefaultRecencyWindow,
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	case c.ItemTimeout <= 0:
		return fmt.Errorf("%w: item timeout must be positive, got %s", ErrInvalidConfig, c.ItemTimeout)
	case c.MaxKeywords < 1:
		return fmt.Errorf("%w: max keywords must be at least 1, got %d", ErrInvalidConfig, c.MaxKeywords)
	case c.MaxResults < 1:
		return fmt.Errorf("%w: max results must be at least 1, got %d", ErrInvalidConfig, c.MaxResults)
	case c.RecencyWindow < 0:
		return fmt.Errorf("%w: recency window must not be negative, got %s", ErrInvalidConfig, c.RecencyWindow)
	}
	return nil
}
