package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/vaultsession/journal"
)

func TestStoreNewestFirst(t *testing.T) {
	s := NewStore(0)
	for i := range 3 {
		require.NoError(t, s.Append(t.Context(), journal.Entry{ID: fmt.Sprint(i)}))
	}

	all, err := s.List(t.Context(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "0"}, ids(all))

	two, err := s.List(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids(two))
}

func TestStoreCapacity(t *testing.T) {
	s := NewStore(3)
	for i := range 5 {
		require.NoError(t, s.Append(t.Context(), journal.Entry{ID: fmt.Sprint(i)}))
	}
	assert.Equal(t, 3, s.Len())

	all, err := s.List(t.Context(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "3", "2"}, ids(all))
}

func ids(entries []journal.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
