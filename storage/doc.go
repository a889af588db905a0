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


// Package storage provides the storage abstraction layer for convergence.
//
// Two repositories are defined. SnapshotRepository holds taxonomy category
// embeddings so they survive restarts; AuditRepository receives one record
// per batch run.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the interfaces defined here
// so callers never couple to BadgerDB specifics:
//
//	snapshots, audits, backend, err := badger.NewMemoryRepositories()
//
// # Snapshot Atomicity
//
// A saved snapshot is written under a fresh generation first. Only then is
// the current-generation pointer for its key replaced, and the previous
// generation removed. A crash at any point leaves either the old or the new
// snapshot readable.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
