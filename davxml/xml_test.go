package davxml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePropFindAllProp(t *testing.T) {
	req, err := ParsePropFind(strings.NewReader(`<?xml version="1.0"?><propfind xmlns="DAV:"><allprop/></propfind>`))
	require.NoError(t, err)
	assert.True(t, req.AllProp)
	assert.False(t, req.PropName)
}

func TestParsePropFindEmptyBodyIsAllProp(t *testing.T) {
	req, err := ParsePropFind(strings.NewReader(``))
	require.NoError(t, err)
	assert.True(t, req.AllProp)
}

func TestParsePropFindNamed(t *testing.T) {
	req, err := ParsePropFind(strings.NewReader(`<?xml version="1.0"?>
<propfind xmlns="DAV:"><prop><getetag/><getcontentlength/></prop></propfind>`))
	require.NoError(t, err)
	assert.False(t, req.AllProp)
	assert.ElementsMatch(t, []string{"DAV::getetag", "DAV::getcontentlength"}, req.PropertyNames)
}

func TestParseLockRequest(t *testing.T) {
	req, err := ParseLock(strings.NewReader(`<?xml version="1.0"?>
<D:lockinfo xmlns:D="DAV:">
  <D:lockscope><D:exclusive/></D:lockscope>
  <D:locktype><D:write/></D:locktype>
  <D:owner>me</D:owner>
</D:lockinfo>`))
	require.NoError(t, err)
	assert.False(t, req.Refresh)
	assert.False(t, req.Shared)
	assert.Equal(t, "me", req.Owner)
}

func TestParseLockRefresh(t *testing.T) {
	req, err := ParseLock(strings.NewReader(``))
	require.NoError(t, err)
	assert.True(t, req.Refresh)
}

func TestMultiStatusOneResponsePerHref(t *testing.T) {
	ms := NewMultiStatus()
	ms.AddPropStatus("/a/", []Any{NewAny("DAV::resourcetype")}, nil)
	ms.AddPropStatus("/a/f", nil, []Any{NewAny("DAV::getcontentlength")})
	assert.Len(t, ms.Response, 2)
	assert.False(t, ms.Empty())
}
