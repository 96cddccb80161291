package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStager_SaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStager(dir)
	require.NoError(t, err)

	path, n, err := s.Save(context.Background(), strings.NewReader("The sky is blue."), "Sky.TXT")
	require.NoError(t, err)
	assert.Equal(t, int64(16), n)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".txt", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", string(data))

	require.NoError(t, s.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(path), "removing twice is fine")
}

func TestLocalStager_NamesAreUnique(t *testing.T) {
	s, err := NewLocalStager(t.TempDir())
	require.NoError(t, err)

	a, _, err := s.Save(context.Background(), strings.NewReader("a"), "same.pdf")
	require.NoError(t, err)
	b, _, err := s.Save(context.Background(), strings.NewReader("b"), "same.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
