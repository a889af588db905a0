// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the implementation: ProviderOpenAI or ProviderLocal.
	Provider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1" or "http://localhost:11434/v1"
	EmbeddingHost string

	// ClassifierHost is the base URL for the keyword extraction chat API.
	ClassifierHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	EmbeddingModel string

	// ClassifierModel is the chat model used for keyword extraction.
	// Empty disables the LLM extractor; the heuristic extractor is used instead.
	ClassifierModel string

	// APIKey is the bearer token for the OpenAI-compatible API.
	// Local servers that don't authenticate accept "none".
	APIKey string

	// LocalModel is the Hugging Face model name for ProviderLocal.
	LocalModel string

	// LocalModelDir is where ProviderLocal downloads and caches models.
	LocalModelDir string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the provider implementation.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithClassifierHost sets the classifier service host URL.
func WithClassifierHost(host string) ConfigOption {
	return func(c *Config) {
		c.ClassifierHost = host
	}
}

// WithHost sets both embedding and classifier hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ClassifierHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithClassifierModel sets the classifier model identifier.
func WithClassifierModel(model string) ConfigOption {
	return func(c *Config) {
		c.ClassifierModel = model
	}
}

// WithAPIKey sets the API token.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithLocalModel sets the local model name and cache directory.
func WithLocalModel(model, dir string) ConfigOption {
	return func(c *Config) {
		c.LocalModel = model
		c.LocalModelDir = dir
	}
}

// DefaultConfig returns a Config targeting the OpenAI API with
// text-embedding-3-small.
func DefaultConfig() *Config {
	defaultHost := "https://api.openai.com/v1"
	return &Config{
		Provider:        ProviderOpenAI,
		EmbeddingHost:   defaultHost,
		ClassifierHost:  defaultHost,
		EmbeddingModel:  "text-embedding-3-small",
		ClassifierModel: "gpt-4o-mini",
		APIKey:          "none",
		LocalModel:      "sentence-transformers/all-MiniLM-L6-v2",
		LocalModelDir:   "./models",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434/v1"),
//       WithEmbeddingModel("embeddinggemma"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ModelID identifies the embedding model in use. Changing it invalidates
// any cached taxonomy embeddings.
func (c *Config) ModelID() string {
	if c.Provider == ProviderLocal {
		return ProviderLocal + ":" + c.LocalModel
	}
	return ProviderOpenAI + ":" + c.EmbeddingModel
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.ClassifierHost = withV1(c.ClassifierHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	// Remove trailing slash if present before adding /v1
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI:
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
		if c.EmbeddingModel == "" {
			return errors.New("ai config: EmbeddingModel is required")
		}
		if c.ClassifierModel != "" && c.ClassifierHost == "" {
			return errors.New("ai config: ClassifierHost is required when ClassifierModel is set")
		}
	case ProviderLocal:
		if c.LocalModel == "" {
			return errors.New("ai config: LocalModel is required")
		}
		if c.LocalModelDir == "" {
			return errors.New("ai config: LocalModelDir is required")
		}
	default:
		return errors.New("ai config: Provider must be \"openai\" or \"local\"")
	}
	return nil
}
