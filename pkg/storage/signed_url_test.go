package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("student-1", "student-1/transcript.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	owner, path, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "student-1", owner)
	require.Equal(t, "student-1/transcript.pdf", path)
	require.True(t, expiresAt.Equal(parsedExpiry))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("student-1", "a.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("student-1", "a.csv")
	require.NoError(t, err)

	tampered := strings.Replace(token, "student-1", "student-2", 1)
	_, _, _, err = signer.Parse(tampered)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.Error(t, err)
}

func TestLocalStorageConfinesPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("s1/t.csv", []byte("x"))
	require.NoError(t, err)
	f, err := store.Open(rel)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = store.Save("../escape.csv", []byte("x"))
	require.Error(t, err)
	_, err = store.Open("/etc/passwd")
	require.Error(t, err)

	require.NoError(t, store.Delete(rel))
	deleted, err := store.CleanupOlderThan(0)
	require.NoError(t, err)
	require.Empty(t, deleted)
}
