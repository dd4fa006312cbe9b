package filemanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWriteFlushClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	m := New(0)
	h, err := m.Open(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	require.NoError(t, err)

	_, err = m.WriteString(h, "hello")
	require.NoError(t, err)
	require.NoError(t, m.Flush(h))
	require.NoError(t, m.Close(h))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestEvictionReopensTransparently(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")

	m := New(1) // at most one descriptor open at a time
	ha, err := m.Open(pathA, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	require.NoError(t, err)
	assert.Equal(t, 1, m.OpenCount())

	// opening b evicts a's descriptor (still closes out whatever was
	// buffered for a, since eviction flushes before closing)
	hb, err := m.Open(pathB, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	require.NoError(t, err)
	assert.Equal(t, 1, m.OpenCount())

	_, err = m.WriteString(ha, "first")
	require.NoError(t, err)
	// writing to a reopened it, evicting b in turn
	assert.Equal(t, 1, m.OpenCount())

	_, err = m.WriteString(hb, "second")
	require.NoError(t, err)

	require.NoError(t, m.Flush(ha))
	require.NoError(t, m.Flush(hb))
	require.NoError(t, m.CloseAll())

	dataA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	assert.Equal(t, "first", string(dataA))

	dataB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "second", string(dataB))
}

func TestWriteUnknownHandle(t *testing.T) {
	m := New(0)
	_, err := m.Write(Handle(99), []byte("x"))
	assert.Error(t, err)
}

func TestCloseUnknownHandle(t *testing.T) {
	m := New(0)
	assert.Error(t, m.Close(Handle(99)))
}
