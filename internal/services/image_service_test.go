package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptsImageType(t *testing.T) {
	tests := map[string]bool{
		"image/png":                 true,
		"image/jpeg":                true,
		"image/jpg":                 true,
		"IMAGE/PNG":                 true,
		"image/jpeg; charset=utf-8": true,
		"image/gif":                 false,
		"application/pdf":           false,
		"":                          false,
	}
	for contentType, want := range tests {
		assert.Equal(t, want, AcceptsImageType(contentType), contentType)
	}
}

func TestImageService_StoreAndRelease(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewImageService(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := svc.Store(ctx, strings.NewReader("png-bytes"), "my photo.png", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "images/"))
	assert.True(t, strings.HasSuffix(ref, "-my-photo.png"))

	file := filepath.Join(dir, strings.TrimPrefix(ref, "images/"))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	svc.Release(ctx, ref)
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	// Releasing again only logs.
	svc.Release(ctx, ref)
}

func TestImageService_StoreRejectsType(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewImageService(dir, nil)
	require.NoError(t, err)

	ref, err := svc.Store(context.Background(), strings.NewReader("gif"), "anim.gif", "image/gif")
	require.NoError(t, err)
	assert.Empty(t, ref)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImageService_StoreStripsPath(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewImageService(dir, nil)
	require.NoError(t, err)

	ref, err := svc.Store(context.Background(), strings.NewReader("x"), "../../etc/passwd.png", "image/png")
	require.NoError(t, err)
	assert.NotContains(t, strings.TrimPrefix(ref, "images/"), "/")
	assert.True(t, strings.HasSuffix(ref, "-passwd.png"))
}

func TestImageService_ReleaseRefusesTraversal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	svc, err := NewImageService(dir, nil)
	require.NoError(t, err)

	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0644))

	svc.Release(context.Background(), "images/../secret.txt")
	svc.Release(context.Background(), "/etc/passwd")

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestImageService_Reconcile(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewImageService(dir, nil)
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"kept.png", "orphan.png", "fresh.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
	require.NoError(t, os.Chtimes(filepath.Join(dir, "kept.png"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "orphan.png"), old, old))

	removed, err := svc.Reconcile(context.Background(), map[string]struct{}{"images/kept.png": {}}, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "orphan.png"))
	assert.True(t, os.IsNotExist(err))
	for _, name := range []string{"kept.png", "fresh.png"} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
