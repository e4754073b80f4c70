package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuload/internal/runner"
	"vuload/internal/stats"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newItem(t *testing.T, count int64) HistoryItem {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	res := &stats.Result{
		ID:        id.String(),
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Elapsed:   time.Second,
		Count:     count,
		Successes: count,
		Failures:  map[string]int64{},
	}
	cfg := runner.Config{URL: "http://localhost:8080/hello", VUs: 2, Duration: time.Second}
	return NewHistoryItem(cfg, res)
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTemp(t)
	item := newItem(t, 42)
	require.NoError(t, s.Save(item))

	got, err := s.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, int64(42), got.Result.Count)
	assert.Equal(t, 2, got.Config.VUs)
	assert.Equal(t, time.Second, got.Config.Duration)
	assert.True(t, item.Timestamp.Equal(got.Timestamp))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveWithoutID(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.Save(HistoryItem{}))
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openTemp(t)
	var ids []string
	for i := 1; i <= 3; i++ {
		item := newItem(t, int64(i))
		ids = append(ids, item.ID)
		require.NoError(t, s.Save(item))
		time.Sleep(2 * time.Millisecond)
	}

	items, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[0], items[2].ID)

	items, err = s.List(2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	item := newItem(t, 7)
	require.NoError(t, s.Save(item))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Result.Count)
}
