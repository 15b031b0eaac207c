package webdav_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	w "github.com/omarbenhamid/godav"
	"github.com/omarbenhamid/godav/memfs"
)

func newTestHandler() *w.WebDAV {
	fs := memfs.NewMemFS(nil)
	return w.NewWebDAV(fs, w.WithACL(w.StaticACL{ACL: w.FullACL}))
}

func TestPutThenGetRoundTrips(t *testing.T) {
	h := newTestHandler()

	put := httptest.NewRequest(http.MethodPut, "/a.txt", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, put)
	require.Equal(t, http.StatusCreated, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/a.txt", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestMkcolTwiceReturnsNotAllowed(t *testing.T) {
	h := newTestHandler()

	mk := httptest.NewRequest(http.MethodOptions, "/", nil)
	_ = mk

	req := httptest.NewRequest("MKCOL", "/dir/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest("MKCOL", "/dir/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Allow"))
}

func TestGetMissingIsNotFound(t *testing.T) {
	h := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIfNoneMatchStarOnExistingGetIsNotModified(t *testing.T) {
	h := newTestHandler()
	put := httptest.NewRequest(http.MethodPut, "/a.txt", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, put)
	require.Equal(t, http.StatusCreated, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/a.txt", nil)
	get.Header.Set("If-None-Match", "*")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestLockThenConflictingPutIsLocked(t *testing.T) {
	h := newTestHandler()

	put := httptest.NewRequest(http.MethodPut, "/locked.txt", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, put)
	require.Equal(t, http.StatusCreated, rec.Code)

	lockBody := `<?xml version="1.0"?>
<D:lockinfo xmlns:D="DAV:">
  <D:lockscope><D:exclusive/></D:lockscope>
  <D:locktype><D:write/></D:locktype>
  <D:owner>tester</D:owner>
</D:lockinfo>`
	lockReq := httptest.NewRequest("LOCK", "/locked.txt", strings.NewReader(lockBody))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, lockReq)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Lock-Token"))

	put2 := httptest.NewRequest(http.MethodPut, "/locked.txt", strings.NewReader("y"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, put2)
	assert.Equal(t, http.StatusLocked, rec.Code)
}

func TestEveryResponseCarriesServerHeader(t *testing.T) {
	h := newTestHandler()

	get := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Server"))

	opts := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, opts)
	assert.NotEmpty(t, rec.Header().Get("Server"))
}

func TestUnlockRequiresWriteCapability(t *testing.T) {
	fs := memfs.NewMemFS(nil)
	h := w.NewWebDAV(fs, w.WithACL(w.StaticACL{ACL: w.ReadOnlyACL}))

	req := httptest.NewRequest("UNLOCK", "/f", nil)
	req.Header.Set("Lock-Token", "<opaquelocktoken:bogus>")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnlockWithUnknownTokenIsForbidden(t *testing.T) {
	h := newTestHandler()
	put := httptest.NewRequest(http.MethodPut, "/f", strings.NewReader("x"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, put)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest("UNLOCK", "/f", nil)
	req.Header.Set("Lock-Token", "<opaquelocktoken:bogus>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPropfindReturnsEntryForEachResource(t *testing.T) {
	h := newTestHandler()

	mk := httptest.NewRequest("MKCOL", "/dir/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, mk)
	require.Equal(t, http.StatusCreated, rec.Code)

	put := httptest.NewRequest(http.MethodPut, "/dir/f.txt", strings.NewReader("x"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, put)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest("PROPFIND", "/dir/", nil)
	req.Header.Set("Depth", "1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/dir/")
	assert.Contains(t, body, "/dir/f.txt")
}

func TestDeleteWithoutWriteAccessIsForbidden(t *testing.T) {
	fs := memfs.NewMemFS(nil)
	h := w.NewWebDAV(fs, w.WithACL(w.StaticACL{ACL: w.ReadOnlyACL}))

	req := httptest.NewRequest(http.MethodDelete, "/f", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
