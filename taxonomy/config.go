package taxonomy

import (
	"fmt"
	"time"
)

// DefaultTTL is the age after which a persisted snapshot is recomputed.
const DefaultTTL = 30 * 24 * time.Hour

// Config holds the store's cache policy.
type Config struct {
	TTL time.Duration
}

// DefaultConfig returns the default cache policy.
func DefaultConfig() *Config {
	return &Config{TTL: DefaultTTL}
}

// Validate checks the policy.
func (c *Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, c.TTL)
	}
	return nil
}
