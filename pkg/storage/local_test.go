package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T, prefix string) *LocalStore {
	t.Helper()
	signer := NewSigner("secret", time.Hour)
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080", prefix, signer)
	require.NoError(t, err)
	return store
}

func TestLocalStorePresignedURLsIncludeRoutePrefix(t *testing.T) {
	store := newTestLocalStore(t, "/api/v1")

	uploadURL, expiresAt, err := store.PresignUpload(context.Background(), "uploads/unit1.pdf", "application/pdf")
	require.NoError(t, err)
	require.False(t, expiresAt.IsZero())

	parsed, err := url.Parse(uploadURL)
	require.NoError(t, err)
	require.Equal(t, "/api/v1/files/upload", parsed.Path)
	require.NotEmpty(t, parsed.Query().Get("token"))

	downloadURL, _, err := store.PresignDownload(context.Background(), "uploads/unit1.pdf")
	require.NoError(t, err)

	parsed, err = url.Parse(downloadURL)
	require.NoError(t, err)
	require.Equal(t, "/api/v1/files/download", parsed.Path)
}

func TestLocalStorePresignWithoutPrefix(t *testing.T) {
	store := newTestLocalStore(t, "")

	uploadURL, _, err := store.PresignUpload(context.Background(), "uploads/unit1.pdf", "application/pdf")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uploadURL, "http://localhost:8080/files/upload?token="))
}

func TestLocalStorePutFetchDelete(t *testing.T) {
	store := newTestLocalStore(t, "/api/v1")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "uploads/2026/unit1.pdf", []byte("pdf bytes")))

	data, err := store.Fetch(ctx, "uploads/2026/unit1.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("pdf bytes"), data)

	require.NoError(t, store.Delete(ctx, "uploads/2026/unit1.pdf"))
	_, err = store.Fetch(ctx, "uploads/2026/unit1.pdf")
	require.Error(t, err)
}

func TestLocalStoreRejectsTraversalKeys(t *testing.T) {
	store := newTestLocalStore(t, "/api/v1")

	_, err := store.Fetch(context.Background(), "../secrets.txt")
	require.Error(t, err)
	require.Error(t, store.Put(context.Background(), "/etc/passwd", []byte("x")))
}
