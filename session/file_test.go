package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveAndGet(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.Save("id1", Data{"user": "alice"}, 0))

	got, ok := s.Get("id1")
	require.True(t, ok)
	require.Equal(t, "alice", got["user"])
}

func TestFileStoreGetMissing(t *testing.T) {
	s := NewFileStore(t.TempDir())
	_, ok := s.Get("nope")
	require.False(t, ok)
}

func TestFileStoreExpiresLazily(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.Save("id1", Data{"a": float64(1)}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("id1")
	require.False(t, ok)
}

func TestFileStoreDelete(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.Save("id1", Data{"a": float64(1)}, 0))
	require.NoError(t, s.Delete("id1"))

	_, ok := s.Get("id1")
	require.False(t, ok)
}

func TestFileStoreDeleteMissingIsNotError(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.Delete("nope"))
}

func TestFileStoreCleanupSweepsExpired(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	require.NoError(t, s.Save("expired", Data{"a": float64(1)}, time.Millisecond))
	require.NoError(t, s.Save("fresh", Data{"b": float64(2)}, time.Hour))
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, s.Cleanup())

	_, ok := s.Get("fresh")
	require.True(t, ok)

	_, ok = s.Get("expired")
	require.False(t, ok)
}
