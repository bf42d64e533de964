package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptySet(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
	require.False(t, s.Seen("anything"))
}

func TestFlushAndReload(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir)
	require.NoError(t, err)
	s.MarkDone("msg-2")
	s.MarkDone("msg-1")
	require.NoError(t, s.Flush())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"msg-1", "msg-2"}, reloaded.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	require.True(t, reloaded.Seen("msg-1"))
	require.False(t, reloaded.Seen("msg-3"))
}

func TestSetOnlyGrows(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(dir)
	require.NoError(t, err)
	s.MarkDone("a")
	require.NoError(t, s.Flush())

	s2, err := Load(dir)
	require.NoError(t, err)
	s2.MarkDone("b")
	require.NoError(t, s2.Flush())

	s3, err := Load(dir)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a", "b"}, s3.IDs()); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFlushCreatesBasePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")

	s, err := Load(dir)
	require.NoError(t, err)
	s.MarkDone("x")
	require.NoError(t, s.Flush())

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
}

func TestLoadRejectsCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
