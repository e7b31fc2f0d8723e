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

package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/dataprep/core"
)

const float32Size = 4

// storedRecordMUS encodes a StoredRecord as
// id, metadata, len(values), values..., digest, position, updatedAt.
type storedRecordMUS struct{}

func (storedRecordMUS) Size(r core.StoredRecord) (size int) {
	size += ord.String.Size(r.ID)
	size += ord.String.Size(r.Metadata)
	size += varint.PositiveInt.Size(len(r.Values))
	for _, v := range r.Values {
		size += raw.Float32.Size(v)
	}
	size += varint.Uint64.Size(uint64(r.Digest))
	size += varint.Uint64.Size(r.Position)
	return size + varint.Int64.Size(r.UpdatedAt)
}

func (storedRecordMUS) Marshal(r core.StoredRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.ID, bs)
	n += ord.String.Marshal(r.Metadata, bs[n:])
	n += varint.PositiveInt.Marshal(len(r.Values), bs[n:])
	for _, v := range r.Values {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	n += varint.Uint64.Marshal(uint64(r.Digest), bs[n:])
	n += varint.Uint64.Marshal(r.Position, bs[n:])
	return n + varint.Int64.Marshal(r.UpdatedAt, bs[n:])
}

func (storedRecordMUS) Unmarshal(bs []byte) (r core.StoredRecord, n int, err error) {
	var n1 int
	if r.ID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if r.Metadata, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1

	var length int
	if length, n1, err = varint.PositiveInt.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if length > (len(bs)-n)/float32Size {
		err = ErrTruncatedData
		return
	}
	if length > 0 {
		r.Values = make([]float32, length)
		for i := range r.Values {
			if r.Values[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return
			}
			n += n1
		}
	}

	var digest uint64
	if digest, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	r.Digest = core.Digest(digest)
	n += n1
	if r.Position, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	r.UpdatedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

var recordMUS storedRecordMUS

// MarshalRecord serializes a StoredRecord to bytes.
func MarshalRecord(record *core.StoredRecord) []byte {
	buf := make([]byte, recordMUS.Size(*record))
	recordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalRecord deserializes a StoredRecord from bytes.
func UnmarshalRecord(data []byte) (*core.StoredRecord, error) {
	record, n, err := recordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &record, nil
}

// MarshalID serializes a record id to bytes.
func MarshalID(id string) []byte {
	buf := make([]byte, ord.String.Size(id))
	ord.String.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes a record id from bytes.
func UnmarshalID(data []byte) (string, error) {
	id, _, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}
