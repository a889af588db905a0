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


package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/convergence/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// KeywordExtractor implements ai.KeywordExtractor using an OpenAI-compatible chat model.
// Any failure of the model falls back to ai.HeuristicKeywords so a search
// is always attempted.
type KeywordExtractor struct {
	client   llms.Model
	fallback ai.KeywordExtractor
	logger   *slog.Logger
}

// newKeywordExtractor is an internal constructor that returns the concrete type.
func newKeywordExtractor(config *ai.Config) (*KeywordExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return &KeywordExtractor{
		client:   client,
		fallback: ai.HeuristicExtractor{},
		logger:   slog.Default().With("component", "openai-keywords"),
	}, nil
}

// NewKeywordExtractor creates a new keyword extractor using the provided configuration.
//
// Returns ai.KeywordExtractor interface to enforce abstraction.
func NewKeywordExtractor(config *ai.Config) (ai.KeywordExtractor, error) {
	return newKeywordExtractor(config)
}

// ExtractKeywords asks the model for academic search terms.
func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, title, summary string, max int) ([]string, error) {
	if max <= 0 {
		max = ai.DefaultMaxKeywords
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, keywordSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildUserPrompt(title, summary, max)),
	}

	response, err := e.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(300),
		llms.WithJSONMode(),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("keyword extraction failed, using heuristic", "err", err)
		return e.fallback.ExtractKeywords(ctx, title, summary, max)
	}

	if len(response.Choices) < 1 {
		e.logger.Debug("no choices returned from model")
		return e.fallback.ExtractKeywords(ctx, title, summary, max)
	}

	raw, err := parseKeywordResponse(response.Choices[0].Content)
	if err != nil {
		e.logger.Warn("error parsing keyword response", "response", response.Choices[0].Content, "err", err)
		return e.fallback.ExtractKeywords(ctx, title, summary, max)
	}

	keywords := ai.CleanKeywords(raw, max)
	if len(keywords) == 0 {
		e.logger.Debug("model returned no usable keywords, using heuristic")
		return e.fallback.ExtractKeywords(ctx, title, summary, max)
	}

	e.logger.Debug("extracted keywords", "keywords", keywords)
	return keywords, nil
}
