package badger

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/dataprep/core"
	"github.com/poiesic/dataprep/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *RecordRepository {
	t.Helper()
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo.(*RecordRepository)
}

func enriched(t *testing.T, id, text string, values []float32) core.EnrichedRecord {
	t.Helper()
	blob, err := core.EncodeMetadata("http://"+id, text)
	require.NoError(t, err)
	return core.EnrichedRecord{ID: id, Metadata: blob, Values: values}
}

func TestSaveAndGetRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	record := enriched(t, "007", "hello", []float32{0.1, 0.2})
	saved, err := repo.SaveRecords(ctx, record)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	assert.Equal(t, "007", saved[0].ID)
	assert.Equal(t, core.DigestFromMetadata(record.Metadata), saved[0].Digest)
	assert.NotZero(t, saved[0].Position)
	assert.NotZero(t, saved[0].UpdatedAt)

	got, err := repo.GetRecord(ctx, "007")
	require.NoError(t, err)
	assert.Equal(t, saved[0], got)
	assert.Equal(t, record, got.Enriched())
}

func TestGetRecord_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.GetRecord(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Nil(t, got)
}

func TestSaveRecords_ReplaceKeepsPosition(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.SaveRecords(ctx, enriched(t, "a", "one", nil), enriched(t, "b", "two", nil))
	require.NoError(t, err)

	updated, err := repo.SaveRecords(ctx, enriched(t, "a", "one again", []float32{1}))
	require.NoError(t, err)
	assert.Equal(t, first[0].Position, updated[0].Position)

	total, embedded, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, embedded)

	var ids []string
	require.NoError(t, repo.ListRecords(ctx, func(r *core.StoredRecord) error {
		ids = append(ids, r.ID)
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, ids, "a replaced record is listed once")
}

func TestSaveRecords_DuplicateIDsInBatch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	saved, err := repo.SaveRecords(ctx, enriched(t, "a", "first", nil), enriched(t, "a", "second", nil))
	require.NoError(t, err)
	assert.Equal(t, saved[0].Position, saved[1].Position)

	got, err := repo.GetRecord(ctx, "a")
	require.NoError(t, err)
	meta, err := core.DecodeMetadata(got.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "second", meta.Text)
}

func TestListRecords_InsertionOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// More than one transaction's worth so batching is exercised.
	n := saveBatchSize + 5
	records := make([]core.EnrichedRecord, n)
	for i := range records {
		// Ids sort differently as strings than by insertion.
		records[i] = enriched(t, strconv.Itoa(n-i), "text", []float32{float32(i)})
	}

	saved, err := repo.SaveRecords(ctx, records...)
	require.NoError(t, err)
	require.Len(t, saved, n)

	var ids []string
	require.NoError(t, repo.ListRecords(ctx, func(r *core.StoredRecord) error {
		ids = append(ids, r.ID)
		return nil
	}))
	require.Len(t, ids, n)
	for i := range records {
		assert.Equal(t, records[i].ID, ids[i])
	}
}

func TestListRecords_StopsOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.SaveRecords(ctx, enriched(t, "a", "x", nil), enriched(t, "b", "y", nil))
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = repo.ListRecords(ctx, func(r *core.StoredRecord) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestGetRecords(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.SaveRecords(ctx, enriched(t, "a", "x", nil), enriched(t, "b", "y", nil))
	require.NoError(t, err)

	got, err := repo.GetRecords(ctx, "b", "missing", "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestCorruptRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	saved, err := repo.SaveRecords(ctx,
		enriched(t, "a", "original", []float32{1}),
		enriched(t, "b", "intact", []float32{1}))
	require.NoError(t, err)

	// Rewrite the metadata without updating the digest.
	tampered := *saved[0]
	tampered.Metadata = `{"source":"http://a","text":"tampered"}`
	require.NoError(t, repo.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRecordKey("a"), storage.MarshalRecord(&tampered)); err != nil {
			return err
		}
		return tx.Commit()
	}, true))

	_, err = repo.GetRecord(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrCorruptRecord)

	// Scans keep going past the corrupt record.
	total, embedded, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, embedded)

	var listed []string
	require.NoError(t, repo.ListRecords(ctx, func(r *core.StoredRecord) error {
		listed = append(listed, r.ID)
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, listed)

	similar, err := repo.FindSimilar(ctx, []float32{1}, -1, -1)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "b", similar[0].Record.ID)

	// Saving over a corrupt record repairs it in place.
	repaired, err := repo.SaveRecords(ctx, enriched(t, "a", "original", []float32{1}))
	require.NoError(t, err)
	assert.Equal(t, saved[0].Position, repaired[0].Position)

	_, err = repo.GetRecord(ctx, "a")
	assert.NoError(t, err)
}

func TestRepository_Closed(t *testing.T) {
	repo, err := NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.GetRecord(context.Background(), "a")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestNewRepository_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewRepository(dir)
	require.NoError(t, err)
	_, err = repo.SaveRecords(ctx, enriched(t, "a", "x", []float32{1, 2}), enriched(t, "b", "y", nil))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewRepository(dir)
	require.NoError(t, err)
	defer repo.Close()

	total, embedded, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, embedded)

	saved, err := repo.SaveRecords(ctx, enriched(t, "c", "z", nil))
	require.NoError(t, err)

	var ids []string
	require.NoError(t, repo.ListRecords(ctx, func(r *core.StoredRecord) error {
		ids = append(ids, r.ID)
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.NotZero(t, saved[0].Position)
}
