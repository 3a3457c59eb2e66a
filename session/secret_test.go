package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveSecretIsDeterministic(t *testing.T) {
	master := []byte("master-key-material-for-testing")
	a, err := DeriveSecret(master, "csrf", 32)
	require.NoError(t, err)
	b, err := DeriveSecret(master, "csrf", 32)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 32)
}

func TestDeriveSecretVariesByInfo(t *testing.T) {
	master := []byte("master-key-material-for-testing")
	a, err := DeriveSecret(master, "csrf", 32)
	require.NoError(t, err)
	b, err := DeriveSecret(master, "session", 32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDeriveSecretVariesByMasterKey(t *testing.T) {
	a, err := DeriveSecret([]byte("key-one-padded-out-to-length"), "csrf", 32)
	require.NoError(t, err)
	b, err := DeriveSecret([]byte("key-two-padded-out-to-length"), "csrf", 32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
