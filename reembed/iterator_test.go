package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/dataprep/core"
	"github.com/poiesic/dataprep/storage"
	"github.com/poiesic/dataprep/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) storage.RecordRepository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seed stores n records with ids r-0..r-(n-1) and the given vector.
func seed(t *testing.T, repo storage.RecordRepository, n int, values []float32) {
	t.Helper()
	records := make([]core.EnrichedRecord, n)
	for i := range records {
		meta, err := core.EncodeMetadata("http://src", fmt.Sprintf("text %d", i))
		require.NoError(t, err)
		records[i] = core.EnrichedRecord{ID: fmt.Sprintf("r-%d", i), Metadata: meta, Values: values}
	}
	_, err := repo.SaveRecords(context.Background(), records...)
	require.NoError(t, err)
}

func TestRecordIterator_Empty(t *testing.T) {
	repo := setupTestDB(t)
	it := NewRecordIterator(repo, 10)

	called := false
	err := it.ForEach(context.Background(), func([]*core.StoredRecord) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRecordIterator_Batches(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 25, nil)
	it := NewRecordIterator(repo, 10)

	var sizes []int
	var ids []string
	err := it.ForEach(context.Background(), func(records []*core.StoredRecord) error {
		sizes = append(sizes, len(records))
		for _, record := range records {
			ids = append(ids, record.ID)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 10, 5}, sizes)
	require.Len(t, ids, 25)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("r-%d", i), id, "insertion order")
	}
}

func TestRecordIterator_DefaultBatchSize(t *testing.T) {
	it := NewRecordIterator(nil, 0)
	assert.Equal(t, DefaultBatchSize, it.batchSize)
}

func TestRecordIterator_StopsOnError(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 5, nil)
	it := NewRecordIterator(repo, 2)
	boom := errors.New("boom")

	calls := 0
	err := it.ForEach(context.Background(), func([]*core.StoredRecord) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRecordIterator_WritesDuringIteration(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 4, nil)
	it := NewRecordIterator(repo, 2)

	err := it.ForEach(context.Background(), func(records []*core.StoredRecord) error {
		for _, record := range records {
			enriched := record.Enriched()
			enriched.Values = []float32{1}
			if _, err := repo.SaveRecords(context.Background(), enriched); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	total, embedded, err := repo.CountRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, 4, embedded)
}

func TestRecordIterator_Cancelled(t *testing.T) {
	repo := setupTestDB(t)
	seed(t, repo, 6, nil)
	it := NewRecordIterator(repo, 2)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := it.ForEach(ctx, func([]*core.StoredRecord) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	err = it.ForEach(ctx, func([]*core.StoredRecord) error {
		t.Fatal("fn called after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
