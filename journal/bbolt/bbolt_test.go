package bbolt

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/vaultsession/journal"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := NewStoreFromFile(path, nil, opts...)
	require.NoError(t, err)
	return s, path
}

func TestAppendList(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 4 {
		require.NoError(t, s.Append(t.Context(), journal.Entry{
			ID:        fmt.Sprint(i),
			Event:     journal.EventRenew,
			Backend:   "approle",
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := s.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "0", got[3].ID)
	assert.Equal(t, at, got[3].CreatedAt)
	assert.Equal(t, journal.EventRenew, got[3].Event)

	limited, err := s.List(t.Context(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestEntriesSurviveReopen(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Append(t.Context(), journal.Entry{ID: "persisted", Event: journal.EventLogin}))
	require.NoError(t, s.Close())

	s2, err := NewStoreFromFile(path, nil)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", got[0].ID)
}

func TestMaxEntriesPrunesOldest(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(2))
	defer s.Close()

	for i := range 5 {
		require.NoError(t, s.Append(t.Context(), journal.Entry{ID: fmt.Sprint(i)}))
	}
	got, err := s.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestEmptyStore(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()

	got, err := s.List(t.Context(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadOnlyOpen(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Append(t.Context(), journal.Entry{ID: "a", Event: journal.EventLogin}))
	require.NoError(t, s.Close())

	ro, err := NewStoreFromFile(path, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	require.NoError(t, err)
	defer ro.Close()

	got, err := ro.List(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Error(t, ro.Append(t.Context(), journal.Entry{ID: "b"}))
}

func TestReadOnlyFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	ro, err := NewStoreFromFile(path, &bbolt.Options{ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	got, err := ro.List(t.Context(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
