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


// Package local runs sentence-transformer embeddings in process with hugot.
package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/poiesic/convergence/ai"
)

// ErrClosed is returned after the embedder has been closed.
var ErrClosed = errors.New("local embedder closed")

// Embedder implements ai.Embedder with a hugot feature-extraction pipeline.
// The pipeline is not safe for concurrent runs, so calls are serialized.
type Embedder struct {
	mu      sync.Mutex
	session *hugot.Session
	run     func([]string) ([][]float32, error)
	logger  *slog.Logger
}

// newEmbedder downloads the model if needed and starts a Go-backend session.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	modelPath, err := PrepareModel(config.LocalModel, config.LocalModelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	pipelineConfig := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "convergence-embedder",
	}
	pipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	return &Embedder{
		session: session,
		run: func(texts []string) ([][]float32, error) {
			result, err := pipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
		logger: slog.Default().With("component", "local-embedder", "model", config.LocalModel),
	}, nil
}

// NewEmbedder creates a local embedder.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}
	return vecs[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return nil, ErrClosed
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	vecs, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	return vecs, nil
}

// Close destroys the hugot session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.run = nil
	return err
}
