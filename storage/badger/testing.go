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

package badger

import "github.com/poiesic/dataprep/storage"

// NewMemoryRepository creates an in-memory record repository for testing.
// Closing the repository closes its in-memory database.
func NewMemoryRepository() (storage.RecordRepository, error) {
	backend, err := OpenBackend("", true, nil)
	if err != nil {
		return nil, err
	}

	repo, err := NewRecordRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.owned = true
	return repo, nil
}
