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


package core

import (
	"fmt"
	"math"
)

// MinImpactScore and MaxImpactScore bound the upstream impact score.
const (
	MinImpactScore = 1.0
	MaxImpactScore = 10.0
)

// ValidateCandidateItem validates a CandidateItem according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - ImpactScore must be within [1,10]
//
// NOT validated:
//   - HintCategories (unknown codes are ignored by the matcher)
//   - ID (items without one are addressed by batch index)
func ValidateCandidateItem(item *CandidateItem) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrInvalidItem)
	}

	if item.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidItem, ErrEmptyTitle)
	}

	if math.IsNaN(item.ImpactScore) || item.ImpactScore < MinImpactScore || item.ImpactScore > MaxImpactScore {
		return fmt.Errorf("%w: %w: got %v", ErrInvalidItem, ErrImpactOutOfRange, item.ImpactScore)
	}

	return nil
}

// ValidateCategory validates a taxonomy Category. Embedding is optional.
func ValidateCategory(c *Category) error {
	if c == nil {
		return fmt.Errorf("%w: category is nil", ErrInvalidCategory)
	}
	if c.Code == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCategory, ErrEmptyCategoryCode)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: %w: %s", ErrInvalidCategory, ErrEmptyCategoryName, c.Code)
	}
	return nil
}

// ValidateCategoryMatch checks raw ∈ [-1,1] and boosted ∈ [0,1].
func ValidateCategoryMatch(m *CategoryMatch) error {
	if m == nil {
		return fmt.Errorf("%w: match is nil", ErrInvalidMatch)
	}
	if m.CategoryCode == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMatch, ErrEmptyCategoryCode)
	}
	if !inRange(m.RawSimilarity, -1, 1) {
		return fmt.Errorf("%w: %w: raw %v", ErrInvalidMatch, ErrSimilarityOutOfRange, m.RawSimilarity)
	}
	if !inRange(m.BoostedSimilarity, 0, 1) {
		return fmt.Errorf("%w: %w: boosted %v", ErrInvalidMatch, ErrSimilarityOutOfRange, m.BoostedSimilarity)
	}
	return nil
}

// ValidateDocumentScore checks relevance ∈ [0,1] and a non-empty document id.
func ValidateDocumentScore(s *DocumentScore) error {
	if s == nil {
		return fmt.Errorf("%w: score is nil", ErrInvalidDocumentScore)
	}
	if s.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocumentScore, ErrEmptyDocumentID)
	}
	if !inRange(s.Relevance, 0, 1) {
		return fmt.Errorf("%w: %w: got %v", ErrInvalidDocumentScore, ErrRelevanceOutOfRange, s.Relevance)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
