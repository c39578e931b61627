package capability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trunk-recorder/rtx-index/internal/capability"
)

func TestContentHasherKnownVector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.wav")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	h := capability.NewContentHasher()
	sum, err := h.Hash(path)
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}

func TestContentHasherMissingFile(t *testing.T) {
	h := capability.NewContentHasher()
	_, err := h.Hash(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}
