package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/dataprep/core"
	"github.com/poiesic/dataprep/storage"
)

// saveBatchSize bounds the number of records written per transaction.
const saveBatchSize = 1000

// RecordRepository implements storage.RecordRepository for BadgerDB.
type RecordRepository struct {
	backend *Backend
	posSeq  *badger.Sequence
	owned   bool // Close also closes the backend
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// NewRepository opens (or creates) a record store in the directory at path.
func NewRepository(path string, opts ...Option) (storage.RecordRepository, error) {
	o := newOptions(opts...)
	backend, err := OpenBackend(path, false, o.logger)
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

// NewRecordRepository creates a RecordRepository on an open backend.
// The caller keeps ownership of the backend.
func NewRecordRepository(backend *Backend) (*RecordRepository, error) {
	posSeq, err := backend.GetSequence(recordPositionSeq)
	if err != nil {
		return nil, err
	}

	return &RecordRepository{
		backend: backend,
		posSeq:  posSeq,
	}, nil
}

// Close releases the position sequence and, for repositories opened with
// NewRepository, the underlying database.
func (r *RecordRepository) Close() error {
	err := r.posSeq.Release()
	if r.owned {
		err = errors.Join(err, r.backend.Close())
	}
	return err
}

// FindSimilar delegates to the backend.
func (r *RecordRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*storage.SimilarRecord, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// SaveRecords stores enriched records, replacing records with the same id.
func (r *RecordRepository) SaveRecords(ctx context.Context, records ...core.EnrichedRecord) ([]*core.StoredRecord, error) {
	saved := make([]*core.StoredRecord, 0, len(records))

	for start := 0; start < len(records); start += saveBatchSize {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		end := min(start+saveBatchSize, len(records))

		batch := make([]*core.StoredRecord, 0, end-start)
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			now := time.Now().UTC().UnixMicro()
			for _, record := range records[start:end] {
				stored, err := r.saveRecord(tx, record, now)
				if err != nil {
					return err
				}
				batch = append(batch, stored)
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return saved, err
		}
		saved = append(saved, batch...)
	}

	r.backend.logger.Debug("records saved", "records", len(saved))
	return saved, nil
}

func (r *RecordRepository) saveRecord(tx *badger.Txn, record core.EnrichedRecord, now int64) (*core.StoredRecord, error) {
	key := makeRecordKey(record.ID)

	old, err := readRecord(tx, key)
	if err != nil && !errors.Is(err, storage.ErrCorruptRecord) {
		return nil, err
	}

	stored := &core.StoredRecord{
		ID:        record.ID,
		Metadata:  record.Metadata,
		Values:    record.Values,
		Digest:    core.DigestFromMetadata(record.Metadata),
		UpdatedAt: now,
	}

	if old != nil {
		stored.Position = old.Position
	} else {
		pos, err := r.nextPosition()
		if err != nil {
			return nil, err
		}
		stored.Position = pos
		if err := tx.Set(makePositionKey(pos), storage.MarshalID(record.ID)); err != nil {
			return nil, err
		}
	}

	if err := tx.Set(key, storage.MarshalRecord(stored)); err != nil {
		return nil, err
	}
	return stored, nil
}

// nextPosition returns the next insertion position.
func (r *RecordRepository) nextPosition() (uint64, error) {
	pos, err := r.posSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if pos == 0 {
		return r.posSeq.Next()
	}
	return pos, nil
}

// GetRecord retrieves a single record by id.
func (r *RecordRepository) GetRecord(ctx context.Context, id string) (*core.StoredRecord, error) {
	var result *core.StoredRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		record, err := readRecord(tx, makeRecordKey(id))
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		result = record
		return nil
	}, false)
	return result, err
}

// GetRecords retrieves multiple records by id.
func (r *RecordRepository) GetRecords(ctx context.Context, ids ...string) ([]*core.StoredRecord, error) {
	var result []*core.StoredRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := readRecord(tx, makeRecordKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				result = append(result, record)
			}
		}
		return nil
	}, false)
	return result, err
}

// CountRecords returns the number of stored records and how many carry values.
// Corrupt records are logged and counted.
func (r *RecordRepository) CountRecords(ctx context.Context) (total int, embedded int, err error) {
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			record, err := readItem(iter.Item())
			if errors.Is(err, storage.ErrCorruptRecord) {
				r.backend.logger.Warn("counting corrupt record", "id", record.ID)
			} else if err != nil {
				return err
			}
			total++
			if record.HasValues() {
				embedded++
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, 0, err
	}
	return total, embedded, nil
}

// ListRecords calls fn for every record in insertion order.
// Corrupt records are logged and still passed to fn so they can be re-saved.
func (r *RecordRepository) ListRecords(ctx context.Context, fn func(*core.StoredRecord) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPositionPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			record, err := readRecord(tx, makeRecordKey(id))
			if errors.Is(err, storage.ErrCorruptRecord) {
				r.backend.logger.Warn("listing corrupt record", "id", id)
			} else if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// readRecord reads a record by key. Returns nil, nil when the key is absent.
func readRecord(tx *badger.Txn, key []byte) (*core.StoredRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return readItem(item)
}
