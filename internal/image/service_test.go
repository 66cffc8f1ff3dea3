package image

import (
	"context"
	"strings"
	"testing"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory objectstore.Store for tests.
type memStore struct {
	objects map[string][]byte
	puts    int
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	if m.failPut {
		return assert.AnError
	}
	m.puts++
	m.objects[key] = body
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n" + "fakepixels")
	jpegBytes = []byte("\xff\xd8\xff\xe0" + "fakepixels")
)

func setupImageService(store *memStore) Service {
	cfg := &config.Config{
		MaxImageSizeBytes:     1024,
		SupportedImageFormats: "jpg,jpeg,png,webp",
	}
	return NewService(store, cfg, zap.NewNop())
}

func TestService_UploadBatch_OversizedBatchRejectedOutright(t *testing.T) {
	store := newMemStore()
	svc := setupImageService(store)

	files := []FileInput{
		{Filename: "a.png", Data: pngBytes},
		{Filename: "b.png", Data: pngBytes},
		{Filename: "c.png", Data: pngBytes},
	}
	_, err := svc.UploadBatch(context.Background(), "posts/x", 2, files)

	apiErr, ok := common.IsAPIError(err)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, 0, store.puts)
}

func TestService_UploadBatch_PartitionsSuccessesAndFailures(t *testing.T) {
	store := newMemStore()
	svc := setupImageService(store)

	files := []FileInput{
		{Filename: "photo.png", Data: pngBytes},
		{Filename: "notes.txt", Data: []byte("plain text, not an image")},
		{Filename: "empty.jpg", Data: nil},
	}
	result, err := svc.UploadBatch(context.Background(), "posts/x", 5, files)

	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "image/png", result.Succeeded[0].ContentType)
	assert.True(t, strings.HasPrefix(result.Succeeded[0].Key, "posts/x/"))
	assert.True(t, strings.HasSuffix(result.Succeeded[0].Key, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+result.Succeeded[0].Key, result.Succeeded[0].URL)
}

func TestService_UploadBatch_FormatDecidedByContentNotFilename(t *testing.T) {
	store := newMemStore()
	svc := setupImageService(store)

	// A JPEG payload behind a .png name stores with a jpg extension.
	files := []FileInput{{Filename: "disguised.png", Data: jpegBytes}}
	result, err := svc.UploadBatch(context.Background(), "posts/x", 5, files)

	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, "image/jpeg", result.Succeeded[0].ContentType)
	assert.True(t, strings.HasSuffix(result.Succeeded[0].Key, ".jpg"))
}

func TestService_UploadBatch_OversizedFileFailsThatFileOnly(t *testing.T) {
	store := newMemStore()
	svc := setupImageService(store)

	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 2048)...)
	files := []FileInput{
		{Filename: "big.png", Data: big},
		{Filename: "ok.png", Data: pngBytes},
	}
	result, err := svc.UploadBatch(context.Background(), "posts/x", 5, files)

	require.NoError(t, err)
	assert.Len(t, result.Succeeded, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "big.png", result.Failed[0].Filename)
}

func TestService_UploadBatch_StoreFailureReportsPerFile(t *testing.T) {
	store := newMemStore()
	store.failPut = true
	svc := setupImageService(store)

	result, err := svc.UploadBatch(context.Background(), "posts/x", 5, []FileInput{{Filename: "a.png", Data: pngBytes}})

	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Reason, "object storage")
}

func TestService_DeleteObjects_AlwaysCompletes(t *testing.T) {
	store := newMemStore()
	svc := setupImageService(store)

	result, err := svc.UploadBatch(context.Background(), "posts/x", 5, []FileInput{{Filename: "a.png", Data: pngBytes}})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)

	assert.NoError(t, svc.DeleteObjects(context.Background(), []string{result.Succeeded[0].Key, "posts/x/missing.png"}))
	assert.Empty(t, store.objects)
}
