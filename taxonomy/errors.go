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

package taxonomy

import "errors"

var (
	// ErrEmptyTaxonomy indicates a store configured with no categories.
	ErrEmptyTaxonomy = errors.New("taxonomy is empty")

	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrDuplicateCategory indicates two categories sharing a code.
	ErrDuplicateCategory = errors.New("duplicate category code")

	// ErrCorruptCache indicates the persisted snapshot cannot be trusted.
	// The store refuses to serve until Refresh succeeds.
	ErrCorruptCache = errors.New("taxonomy cache is corrupt")

	// ErrRefreshFailed indicates the category embeddings could not be computed.
	ErrRefreshFailed = errors.New("taxonomy refresh failed")

	// ErrInvalidTTL indicates a non-positive cache TTL.
	ErrInvalidTTL = errors.New("taxonomy TTL must be positive")
)
