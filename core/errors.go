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
	// ErrInvalidRecord indicates a row or record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrEmptyContent indicates the content field of a raw row is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidMetadata indicates a metadata blob is not a valid JSON object.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrEmptyText indicates a metadata blob has no text.
	ErrEmptyText = errors.New("metadata text cannot be empty")

	// ErrEmptyVector indicates an embedding vector has no dimensions.
	ErrEmptyVector = errors.New("embedding vector is empty")

	// ErrNonFiniteVector indicates an embedding vector holds NaN or Inf values.
	ErrNonFiniteVector = errors.New("embedding vector contains non-finite values")
)
