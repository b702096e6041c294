package sha256_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
	"github.com/JakeFAU/realtime-site-auditor/internal/hash/sha256"
)

var _ audit.Hasher = sha256.New()

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := sha256.New()
	got, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)

	again, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestHasherNamesScreenshots(t *testing.T) {
	t.Parallel()

	name, err := audit.SafeBasename("https://example.com/", sha256.New())
	require.NoError(t, err)
	assert.Regexp(t, `^example\.com_root_[0-9a-f]{16}$`, name)

	other, err := audit.SafeBasename("https://example.com/?page=2", sha256.New())
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
}
