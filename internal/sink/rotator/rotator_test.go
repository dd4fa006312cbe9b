package rotator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanyaayna9/flowmeter/internal/sink/filemanager"
)

func TestParseSpec(t *testing.T) {
	sp, err := ParseSpec("/out/trace:64M,5")
	require.NoError(t, err)
	assert.Equal(t, "/out/trace", sp.Prefix)
	assert.Equal(t, int64(64*1024*1024), sp.Threshold)
	assert.Equal(t, UnitBytes, sp.Unit)
	assert.Equal(t, 5, sp.Start)
}

func TestParseSpecFlowCount(t *testing.T) {
	sp, err := ParseSpec("/out/trace:1000f")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sp.Threshold)
	assert.Equal(t, UnitFlows, sp.Unit)
}

func TestWriterRotatesByFlowCount(t *testing.T) {
	dir := t.TempDir()
	mgr := filemanager.New(4)
	sp, err := ParseSpec(filepath.Join(dir, "out") + ":2f")
	require.NoError(t, err)

	w, err := New(mgr, sp)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("row\n"))
		require.NoError(t, err)
		require.NoError(t, w.WroteFlow())
	}
	require.NoError(t, w.Close())

	assert.FileExists(t, filepath.Join(dir, "out.0"))
	assert.FileExists(t, filepath.Join(dir, "out.1"))
	assert.FileExists(t, filepath.Join(dir, "out.2"))
}
