package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "run-1/results.json", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "memory://run-1/results.json", uri)

	payload[0] = 'C'
	stored, contentType, ok := store.Get("run-1/results.json")
	require.True(t, ok)
	assert.Equal(t, "content", string(stored))
	assert.Equal(t, "application/json", contentType)

	stored[0] = 'X'
	again, _, _ := store.Get("run-1/results.json")
	assert.Equal(t, "content", string(again))
}

func TestBlobStoreKeysAndMissing(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "b.png", "image/png", bytes.NewReader([]byte{1}))
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "a.json", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.json", "b.png"}, store.Keys())
	_, _, ok := store.Get("missing")
	assert.False(t, ok)

	_, err = store.PutObject(context.Background(), "", "text/plain", bytes.NewReader(nil))
	assert.Error(t, err)
}
