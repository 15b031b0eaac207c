package htmlindex

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarbenhamid/godav/memfs"
)

func TestRenderListsEntries(t *testing.T) {
	fs := memfs.NewMemFS(nil)
	dir, err := fs.ForPath("/d")
	require.NoError(t, err)
	_, err = dir.Mkdir()
	require.NoError(t, err)

	file, err := fs.ForPath("/d/f.txt")
	require.NoError(t, err)
	_, err = file.Create()
	require.NoError(t, err)

	entries, err := dir.LookupSubtree(1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, (Renderer{}).Render(rec, "/d", entries))
	assert.Contains(t, rec.Body.String(), "f.txt")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}
