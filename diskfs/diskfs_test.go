package diskfs

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	w "github.com/omarbenhamid/godav"
)

func TestCreateWriteReadRoundTrips(t *testing.T) {
	root := t.TempDir()
	fs, err := New(root)
	require.NoError(t, err)

	p, err := fs.ForPath("/a.txt")
	require.NoError(t, err)
	f, err := p.Create()
	require.NoError(t, err)

	wf := f.(w.Writable)
	fh, err := wf.OpenWrite(true)
	require.NoError(t, err)
	_, err = fh.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	f2, err := p.Lookup()
	require.NoError(t, err)
	rf := f2.(w.Readable)
	rh, err := rf.Open()
	require.NoError(t, err)
	defer rh.Close()

	buf, err := io.ReadAll(rh)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))
}

func TestMkdirAndLookupSubtree(t *testing.T) {
	root := t.TempDir()
	fs, err := New(root)
	require.NoError(t, err)

	dir, err := fs.ForPath("/d")
	require.NoError(t, err)
	_, err = dir.Mkdir()
	require.NoError(t, err)

	file, err := fs.ForPath("/d/f")
	require.NoError(t, err)
	_, err = file.Create()
	require.NoError(t, err)

	entries, err := dir.LookupSubtree(-1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRemoveRejectsDirectory(t *testing.T) {
	root := t.TempDir()
	fs, err := New(root)
	require.NoError(t, err)

	dir, err := fs.ForPath("/d")
	require.NoError(t, err)
	_, err = dir.Mkdir()
	require.NoError(t, err)

	assert.Equal(t, w.ErrorIsDir, dir.Remove())
}

func TestNewRejectsNonDirectory(t *testing.T) {
	root := t.TempDir() + "/not-there"
	_, err := New(root)
	assert.Error(t, err)

	f, err := os.CreateTemp(t.TempDir(), "file")
	require.NoError(t, err)
	f.Close()
	_, err = New(f.Name())
	assert.Error(t, err)
}
