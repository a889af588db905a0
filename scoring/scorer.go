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

// Package scoring combines category strength, document relevance and topic
// diversity into the convergence score, then blends in upstream impact.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/poiesic/convergence/core"
)

// ErrInvalidWeights indicates an out-of-range weight.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// Weights parameterizes the scoring formulas:
//
//	convergence = Category*bestCategory + Relevance*bestRelevance + Diversity*diversity
//	combined    = Impact*(impact/ImpactScale) + (1-Impact)*convergence
type Weights struct {
	Category    float64
	Relevance   float64
	Diversity   float64
	Impact      float64
	ImpactScale float64
	// TopN is the denominator of the diversity term. It should equal the
	// matcher's TopN.
	TopN int
}

// DefaultWeights returns 0.4/0.4/0.2 with impact weighted 0.4 on a 1-10 scale.
func DefaultWeights() Weights {
	return Weights{
		Category:    0.4,
		Relevance:   0.4,
		Diversity:   0.2,
		Impact:      0.4,
		ImpactScale: core.MaxImpactScore,
		TopN:        3,
	}
}

// Validate checks every weight.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"category", w.Category},
		{"relevance", w.Relevance},
		{"diversity", w.Diversity},
		{"impact", w.Impact},
	} {
		if !(f.value >= 0 && f.value <= 1) {
			return fmt.Errorf("%w: %s weight must be in [0,1], got %v", ErrInvalidWeights, f.name, f.value)
		}
	}
	if !(w.ImpactScale > 0) || math.IsInf(w.ImpactScale, 0) {
		return fmt.Errorf("%w: impact scale must be positive, got %v", ErrInvalidWeights, w.ImpactScale)
	}
	if w.TopN < 1 {
		return fmt.Errorf("%w: top_n must be at least 1, got %d", ErrInvalidWeights, w.TopN)
	}
	return nil
}

// Breakdown is every term of one item's score.
type Breakdown struct {
	BestCategorySimilarity float64
	BestDocumentRelevance  float64
	CategoryDiversity      float64
	ConvergenceScore       float64
	CombinedScore          float64
	// BestDocument is nil when no document cleared the relevance floor.
	BestDocument *core.DocumentScore
}

// Scorer computes Breakdowns. It holds no mutable state.
type Scorer struct {
	weights Weights
}

// NewScorer validates w and returns a scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the weights in effect.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score is a pure function of its arguments. scores is expected in ranked
// order, best first; the maximum is found explicitly regardless.
func (s *Scorer) Score(matches []core.CategoryMatch, scores []core.DocumentScore, impact float64) Breakdown {
	var b Breakdown

	for _, m := range matches {
		b.BestCategorySimilarity = max(b.BestCategorySimilarity, m.BoostedSimilarity)
	}

	categories := make(map[string]struct{}, len(scores))
	for i := range scores {
		if b.BestDocument == nil || scores[i].Relevance > b.BestDocument.Relevance {
			b.BestDocument = &scores[i]
		}
		categories[scores[i].CategoryCode] = struct{}{}
	}
	if b.BestDocument != nil {
		b.BestDocumentRelevance = b.BestDocument.Relevance
	}
	b.CategoryDiversity = min(float64(len(categories))/float64(s.weights.TopN), 1.0)

	b.ConvergenceScore = s.Convergence(b.BestCategorySimilarity, b.BestDocumentRelevance, b.CategoryDiversity)
	b.CombinedScore = s.Combined(impact, b.ConvergenceScore)
	return b
}

// Convergence applies the convergence weights.
func (s *Scorer) Convergence(bestCategory, bestRelevance, diversity float64) float64 {
	w := s.weights
	return w.Category*bestCategory + w.Relevance*bestRelevance + w.Diversity*diversity
}

// Combined blends normalized impact with convergence.
func (s *Scorer) Combined(impact, convergence float64) float64 {
	w := s.weights
	return w.Impact*(impact/w.ImpactScale) + (1-w.Impact)*convergence
}
