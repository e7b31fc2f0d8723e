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

// Package storage provides the storage abstraction layer for prepared records.
//
// This package defines the RecordRepository interface that decouples storage
// implementation from the preparation pipeline, plus the binary codec used to
// persist records. Sinks are optional: the pipeline produces an in-memory
// result and the caller decides whether to persist it.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface:
//
//	repo, err := badger.NewRepository(path)  // returns storage.RecordRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Integrity
//
// Every stored record carries a BLAKE2b digest of its metadata blob. Reads
// recompute the digest and fail with ErrCorruptRecord on mismatch.
//
// # Usage
//
//	repo, err := badger.NewRepository("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
//	stored, err := repo.SaveRecords(ctx, result.Table...)
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
