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


// Package ai provides abstractions for the AI services used by the
// convergence engine.
//
// The engine only ever talks to two collaborators here:
//
//   - Embedder: turns text into vectors for category matching and
//     document relevance
//   - KeywordExtractor: turns a headline into search terms for the
//     document search collaborator
//
// AIProvider bundles both with a model identifier that keys the taxonomy
// embedding cache.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/local: in-process ONNX sentence transformers through hugot
//   - ai/mock: test doubles
//
// # Retries
//
// Providers make exactly one call per request. Retries are applied from the
// outside with NewRetryingEmbedder and a retry.Policy, so the policy is a
// single value that tests can replace.
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	embedder, err := ai.NewRetryingEmbedder(provider.Embedder(), retry.DefaultPolicy(), logger)
//
// # Constructor Return Type Pattern
//
// Public constructors in the implementation packages return interface types.
// Mock constructors return concrete types so tests can inject behavior and
// read call counts.
package ai
