package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("id1", Data{"user": "alice"}, 0))

	got, ok := s.Get("id1")
	require.True(t, ok)
	require.Equal(t, "alice", got["user"])
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.Get("nope")
	require.False(t, ok)
}

func TestMemoryStoreExpiresLazily(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("id1", Data{"a": 1}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("id1")
	require.False(t, ok)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("id1", Data{"a": 1}, 0))
	require.NoError(t, s.Delete("id1"))

	_, ok := s.Get("id1")
	require.False(t, ok)
}

func TestMemoryStoreCleanupSweepsExpired(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("expired", Data{"a": 1}, time.Millisecond))
	require.NoError(t, s.Save("fresh", Data{"b": 2}, time.Hour))
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, s.Cleanup())
	require.Len(t, s.data, 1)
	_, ok := s.data["fresh"]
	require.True(t, ok)
}

func TestMemoryStoreReturnsIndependentCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("id1", Data{"a": 1}, 0))

	got, _ := s.Get("id1")
	got["a"] = 999

	got2, _ := s.Get("id1")
	require.Equal(t, 1, got2["a"])
}
