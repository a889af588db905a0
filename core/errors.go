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

import "errors"

// Domain validation errors
var (
	// ErrInvalidItem indicates a CandidateItem failed validation.
	ErrInvalidItem = errors.New("invalid candidate item")

	// ErrInvalidCategory indicates a Category failed validation.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidMatch indicates a CategoryMatch failed validation.
	ErrInvalidMatch = errors.New("invalid category match")

	// ErrInvalidDocumentScore indicates a DocumentScore failed validation.
	ErrInvalidDocumentScore = errors.New("invalid document score")

	// ErrEmptyTitle indicates the item title is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrImpactOutOfRange indicates an impact score outside [1,10].
	ErrImpactOutOfRange = errors.New("impact score must be between 1 and 10")

	// ErrEmptyCategoryCode indicates the category Code field is empty.
	ErrEmptyCategoryCode = errors.New("category code cannot be empty")

	// ErrEmptyCategoryName indicates the category Name field is empty.
	ErrEmptyCategoryName = errors.New("category name cannot be empty")

	// ErrSimilarityOutOfRange indicates a similarity outside its allowed range.
	ErrSimilarityOutOfRange = errors.New("similarity out of range")

	// ErrRelevanceOutOfRange indicates a relevance outside [0,1].
	ErrRelevanceOutOfRange = errors.New("relevance must be between 0 and 1")

	// ErrMalformedRecord indicates bytes that cannot be decoded into a record.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyDocumentID indicates a document score without a document id.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")
)
