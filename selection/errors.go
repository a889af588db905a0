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

package selection

import "errors"

var (
	// ErrNoItems indicates Select was called with an empty batch.
	ErrNoItems = errors.New("no candidate items")

	// ErrSnapshotSourceRequired indicates a nil snapshot source.
	ErrSnapshotSourceRequired = errors.New("snapshot source is required")

	// ErrMatcherRequired indicates a nil matcher.
	ErrMatcherRequired = errors.New("matcher is required")

	// ErrRetrieverRequired indicates a nil retriever.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrRelevanceScorerRequired indicates a nil relevance scorer.
	ErrRelevanceScorerRequired = errors.New("relevance scorer is required")

	// ErrScorerRequired indicates a nil convergence scorer.
	ErrScorerRequired = errors.New("convergence scorer is required")

	// ErrTopNMismatch indicates the matcher and scorer disagree on top_n,
	// which would skew the diversity term.
	ErrTopNMismatch = errors.New("matcher and scorer top_n differ")

	// ErrInvalidConfig indicates out-of-range selection settings.
	ErrInvalidConfig = errors.New("invalid selection config")
)
