package memfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	w "github.com/omarbenhamid/godav"
)

func TestCreateWriteReadRoundTrips(t *testing.T) {
	fs := NewMemFS(nil)
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

func TestMkdirThenLookupSubtree(t *testing.T) {
	fs := NewMemFS(nil)
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
	assert.Len(t, entries, 2) // /d itself and /d/f
}

func TestPropertyStoreRoundTrips(t *testing.T) {
	fs := NewMemFS(nil)
	p, err := fs.ForPath("/a.txt")
	require.NoError(t, err)
	f, err := p.Create()
	require.NoError(t, err)

	ps := f.(w.PropertyStore)
	require.NoError(t, ps.PatchProp(map[string]string{"DAV::custom": "v"}, nil))
	v, ok := ps.GetProp("DAV::custom")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMoveRewritesPaths(t *testing.T) {
	fs := NewMemFS(nil)
	src, err := fs.ForPath("/a.txt")
	require.NoError(t, err)
	f, err := src.Create()
	require.NoError(t, err)
	wf := f.(w.Writable)
	fh, err := wf.OpenWrite(true)
	require.NoError(t, err)
	fh.Write([]byte("x"))
	fh.Close()

	dst, err := fs.ForPath("/b.txt")
	require.NoError(t, err)

	created, err := src.CopyTo(dst, w.CopyOptions{Move: true, Depth: -1})
	require.NoError(t, err)
	assert.True(t, created)

	_, err = src.Lookup()
	assert.Equal(t, w.ErrorNotFound, err)

	got, err := dst.Lookup()
	require.NoError(t, err)
	assert.Equal(t, "/b.txt", got.GetPath())
}
