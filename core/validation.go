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

// ValidateRawRow validates a RawRow according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//
// NOT validated:
//   - ID (uniqueness is inherited from the source)
//   - TinyLink (may be empty)
func ValidateRawRow(row *RawRow) error {
	if row == nil {
		return fmt.Errorf("%w: row is nil", ErrInvalidRecord)
	}

	if row.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}

	return nil
}

// ValidateNormalizedRecord validates a NormalizedRecord and returns its decoded metadata.
//
// Validation rules:
//   - Metadata must decode as a JSON object
//   - Metadata text must not be empty
func ValidateNormalizedRecord(record *NormalizedRecord) (Metadata, error) {
	if record == nil {
		return Metadata{}, fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	meta, err := DecodeMetadata(record.Metadata)
	if err != nil {
		return Metadata{}, err
	}

	if meta.Text == "" {
		return Metadata{}, ErrEmptyText
	}

	return meta, nil
}

// ValidateVector checks that an embedding vector is usable.
// Dimensionality is model-dependent and not checked.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	for i, val := range v {
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: index %d", ErrNonFiniteVector, i)
		}
	}
	return nil
}
