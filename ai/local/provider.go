package local

import (
	"github.com/poiesic/convergence/ai"
)

// Provider implements ai.AIProvider with an in-process embedding model and
// the heuristic keyword extractor.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
}

// NewProvider prepares the local model and returns a provider.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	return &Provider{config: config, embedder: embedder}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) KeywordExtractor() ai.KeywordExtractor {
	return ai.HeuristicExtractor{}
}

func (p *Provider) ModelID() string {
	return p.config.ModelID()
}

// Close releases the ONNX session.
func (p *Provider) Close() error {
	return p.embedder.Close()
}
