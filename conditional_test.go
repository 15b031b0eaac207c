package webdav

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	wp "github.com/omarbenhamid/godav/path"
)

func TestEvalConditionalMissingResourceAlwaysProceeds(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/f", nil)
	r.Header.Set("If-Match", "*")
	assert.Equal(t, condProceed, evalConditional(r, false, "", time.Time{}))
}

// TestEvalConditionalIfMatchFailureIsPreconditionFailed pins down the
// RFC 4918-correct behaviour: If-Match naming an etag that does NOT match
// the resource's current etag must fail the precondition, not succeed.
func TestEvalConditionalIfMatchFailureIsPreconditionFailed(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/f", nil)
	r.Header.Set("If-Match", `"abc"`)
	got := evalConditional(r, true, `"xyz"`, time.Now())
	assert.Equal(t, condPreconditionFailed, got)
}

func TestEvalConditionalIfMatchSuccessProceeds(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/f", nil)
	r.Header.Set("If-Match", `"abc"`)
	got := evalConditional(r, true, `"abc"`, time.Now())
	assert.Equal(t, condProceed, got)
}

func TestEvalConditionalIfNoneMatchStarOnGetIsNotModified(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/f", nil)
	r.Header.Set("If-None-Match", "*")
	got := evalConditional(r, true, `"abc"`, time.Now())
	assert.Equal(t, condNotModified, got)
}

func TestEvalConditionalIfNoneMatchStarOnPutIsPreconditionFailed(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/f", nil)
	r.Header.Set("If-None-Match", "*")
	got := evalConditional(r, true, `"abc"`, time.Now())
	assert.Equal(t, condPreconditionFailed, got)
}

func TestEvalConditionalIfUnmodifiedSinceStale(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	r := httptest.NewRequest(http.MethodPut, "/f", nil)
	r.Header.Set("If-Unmodified-Since", wp.FormatRFC1123(past))
	got := evalConditional(r, true, `"abc"`, time.Now())
	assert.Equal(t, condPreconditionFailed, got)
}
