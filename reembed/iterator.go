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

package reembed

import (
	"context"

	"github.com/poiesic/dataprep/core"
	"github.com/poiesic/dataprep/storage"
)

const (
	// DefaultBatchSize is the default number of records to fetch in each batch
	DefaultBatchSize = 100
)

// RecordIterator iterates over all stored records in batches.
type RecordIterator struct {
	repo      storage.RecordRepository
	batchSize int
}

// NewRecordIterator creates a new record iterator.
// batchSize: number of records to fetch in each batch (must be > 0)
func NewRecordIterator(repo storage.RecordRepository, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with each batch of records, in insertion order.
// Iteration stops on first error from fn or when all records are processed.
// Context cancellation is checked between batches.
//
// Records are collected before the first batch, so fn may write to the
// repository. Records failing their integrity check are included.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.StoredRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var records []*core.StoredRecord
	err := it.repo.ListRecords(ctx, func(record *core.StoredRecord) error {
		records = append(records, record)
		return nil
	})
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += it.batchSize {
		end := min(start+it.batchSize, len(records))

		if err := fn(records[start:end]); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
