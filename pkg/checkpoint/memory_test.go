package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveThenLoadRoundTrips(t *testing.T) {
	s := NewMemoryStore()

	version, err := s.Save(context.Background(), "dialog/abc", []byte("payload-v1"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	entry, err := s.Load(context.Background(), "dialog/abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload-v1"), entry.Payload)
	assert.Equal(t, int64(1), entry.Version)
}

func TestMemoryStore_LoadUnknownKeyReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Load(context.Background(), "does/not/exist")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_LoadExpiredEntryReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Save(context.Background(), "k", []byte("v"), -time.Second)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "k")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CASSucceedsAgainstNonExistentKeyWithZeroVersion(t *testing.T) {
	s := NewMemoryStore()

	version, err := s.CAS(context.Background(), "new-key", []byte("v1"), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestMemoryStore_CASFailsAgainstNonExistentKeyWithNonZeroVersion(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.CAS(context.Background(), "new-key", []byte("v1"), 5, 0)

	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemoryStore_CASSucceedsWithMatchingVersion(t *testing.T) {
	s := NewMemoryStore()
	v1, err := s.Save(context.Background(), "k", []byte("v1"), 0)
	require.NoError(t, err)

	v2, err := s.CAS(context.Background(), "k", []byte("v2"), v1, 0)

	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)
}

func TestMemoryStore_CASFailsWithStaleVersion(t *testing.T) {
	s := NewMemoryStore()
	v1, err := s.Save(context.Background(), "k", []byte("v1"), 0)
	require.NoError(t, err)
	_, err = s.CAS(context.Background(), "k", []byte("v2"), v1, 0)
	require.NoError(t, err)

	_, err = s.CAS(context.Background(), "k", []byte("v3"), v1, 0)

	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMemoryStore_ListReturnsOnlyMatchingPrefixSortedByKey(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.Save(context.Background(), "dialog/b", []byte("1"), 0)
	_, _ = s.Save(context.Background(), "dialog/a", []byte("2"), 0)
	_, _ = s.Save(context.Background(), "approval/x", []byte("3"), 0)

	entries, err := s.List(context.Background(), "dialog/")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "dialog/a", entries[0].Key)
	assert.Equal(t, "dialog/b", entries[1].Key)
}

func TestMemoryStore_ListExcludesExpiredEntries(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.Save(context.Background(), "dialog/a", []byte("1"), -time.Second)

	entries, err := s.List(context.Background(), "dialog/")

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemoryStore_DeleteReportsWhetherKeyExisted(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.Save(context.Background(), "k", []byte("v"), 0)

	existed, err := s.Delete(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existedAgain, err := s.Delete(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, existedAgain)
}

func TestMemoryStore_SweepExpiredRemovesOnlyExpiredEntries(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.Save(context.Background(), "expired", []byte("v"), -time.Second)
	_, _ = s.Save(context.Background(), "live", []byte("v"), time.Hour)

	removed, err := s.SweepExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Load(context.Background(), "live")
	assert.NoError(t, err)
}

func TestMemoryStore_LoadReturnsDefensiveCopyOfPayload(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Save(context.Background(), "k", []byte("original"), 0)
	require.NoError(t, err)

	entry, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	entry.Payload[0] = 'X'

	reloaded, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(reloaded.Payload))
}
