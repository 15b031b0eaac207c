// Copyright 2014 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package path

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInTree(t *testing.T) {
	if !InTree("/", "/") {
		t.Error("/ should contain /")
	}
	if !InTree("/foo", "/") {
		t.Error("/ should contain /foo")
	}
	if !InTree("/foo/bar", "/") {
		t.Error("/ should contain /foo/bar")
	}
	if InTree("/foo/zoo", "/foo/bar") {
		t.Error("/foo/bar should not contain /foo/zoo")
	}
	if InTree("/foozy", "/doozy") {
		t.Error("/doozy should not contain /foozy")
	}
}

func TestIncluded(t *testing.T) {
	if _, ok := Included("/", "/", 0); !ok {
		t.Error("/ should include / with depth 0")
	}
	if _, ok := Included("/foo", "/", 0); ok {
		t.Error("/ should not include /foo with depth 0")
	}
	if _, ok := Included("/foo", "/", 1); !ok {
		t.Error("/ should include /foo with depth 1")
	}
	if _, ok := Included("/foo/bar", "/", 1); ok {
		t.Error("/ should not include /foo/bar with depth 1")
	}
}

// A non-root subtree without a trailing slash must count depth the same way
// root does: a direct child is depth 1, not 2.
func TestIncludedNonRootSubtree(t *testing.T) {
	rel, ok := Included("/dir/f.txt", "/dir", 1)
	assert.True(t, ok)
	assert.Equal(t, "f.txt", rel)

	_, ok = Included("/dir/sub/f.txt", "/dir", 1)
	assert.False(t, ok)

	rel, ok = Included("/dir/sub/f.txt", "/dir", 2)
	assert.True(t, ok)
	assert.Equal(t, "sub/f.txt", rel)
}

func TestSafeJoin(t *testing.T) {
	assert.Equal(t, "/a/b", SafeJoin("/a", "b"))
	assert.Equal(t, "/a/b", SafeJoin("/a/", "/b"))
	assert.Equal(t, "/a/b/c", SafeJoin("a", "b", "c"))
	// A leading slash in a part must never escape root.
	assert.Equal(t, "/a/etc/passwd", SafeJoin("/a", "/etc/passwd"))
}

func TestURLJoin(t *testing.T) {
	assert.Equal(t, "http://h/a/b", URLJoin("http://h/", "a", "b"))
	assert.Equal(t, "http://h", URLJoin("http://h"))
}

func TestNSSplitJoin(t *testing.T) {
	ns, local := NSSplit("{DAV:}getetag")
	assert.Equal(t, "DAV:", ns)
	assert.Equal(t, "getetag", local)
	assert.Equal(t, "{DAV:}getetag", NSJoin("DAV:", "getetag"))

	ns, local = NSSplit("getetag")
	assert.Equal(t, "", ns)
	assert.Equal(t, "getetag", local)
	assert.Equal(t, "getetag", NSJoin("", "getetag"))
}

func TestParseHTTPDate(t *testing.T) {
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	cases := []string{
		"Sun, 06 Nov 1994 08:49:37 GMT",
		"Sunday, 06-Nov-94 08:49:37 GMT",
		"Sun Nov  6 08:49:37 1994",
	}
	for _, c := range cases {
		got, ok := ParseHTTPDate(c)
		assert.True(t, ok, c)
		assert.True(t, want.Equal(got), "%s => %s", c, got)
	}

	_, ok := ParseHTTPDate("not a date")
	assert.False(t, ok)
	_, ok = ParseHTTPDate("")
	assert.False(t, ok)
}

func TestRFC5987Filename(t *testing.T) {
	assert.Equal(t, `attachment; filename="report.txt"`, RFC5987Filename("attachment", "report.txt"))

	got := RFC5987Filename("attachment", "café.txt")
	assert.Contains(t, got, `filename="cafe.txt"`)
	assert.Contains(t, got, "filename*=UTF-8''caf%C3%A9.txt")
}
