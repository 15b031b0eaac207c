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

// Package path implements the namespace and URL arithmetic shared by the
// dispatcher, lock manager and backends: safe joining, clark-notation
// property names, HTTP date parsing and RFC 5987 filename encoding.
package path

import (
	"net/url"
	gp "path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// InTree determines if a given path is within a subtree.
func InTree(path, subtree string) bool {
	if path == subtree {
		return true
	}
	if !strings.HasSuffix(subtree, "/") {
		subtree += "/"
	}
	return strings.HasPrefix(path, subtree)
}

// Included determines if a given name is included in a subtree, subject to the
// provided depth restriction. If it is included, it returns the name relative
// to that subtree's name.
func Included(fn, subtree string, depth int) (string, bool) {
	if fn == subtree {
		return "", true
	}
	if !InTree(fn, subtree) {
		return "", false
	}
	// Trim the boundary slash before cleaning: subtree may or may not carry
	// a trailing "/" (InTree tolerates both), so fn[len(subtree):] can leave
	// a leading "/" that would otherwise count as a spurious path segment
	// and miscount depth by one for every subtree except root.
	rel := gp.Clean(strings.TrimPrefix(fn[len(subtree):], "/"))
	fd := len(strings.Split(rel, "/"))
	if depth >= 0 && fd > depth {
		return "", false
	}
	return rel, true
}

// URLEncode encodes a string so it is safe to place in a URL.
func URLEncode(s string) string {
	u := url.URL{Path: s}
	return u.RequestURI()
}

// SafeJoin joins root with parts, stripping redundant slashes at boundaries.
// A leading slash on any part is ignored, so a part can never escape root by
// starting with "/". The result always begins with "/".
func SafeJoin(root string, parts ...string) string {
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	for _, p := range parts {
		for strings.HasSuffix(root, "/") {
			root = root[:len(root)-1]
		}
		for strings.HasPrefix(p, "/") {
			p = p[1:]
		}
		root += "/" + p
	}
	return root
}

// URLJoin joins SafeJoin(parts...) onto base, removing base's trailing
// slashes. An empty parts list leaves base unchanged.
func URLJoin(base string, parts ...string) string {
	if len(parts) == 0 {
		return base
	}
	suffix := SafeJoin(parts[0], parts[1:]...)
	for strings.HasSuffix(base, "/") {
		base = base[:len(base)-1]
	}
	return base + suffix
}

// NSSplit splits a clark-notation qualified name "{ns}local" into its
// namespace and local part. A name with no "{...}" prefix has an empty
// namespace.
func NSSplit(tag string) (ns, local string) {
	if strings.HasPrefix(tag, "{") {
		if idx := strings.Index(tag, "}"); idx >= 0 {
			return tag[1:idx], tag[idx+1:]
		}
	}
	return "", tag
}

// NSJoin joins a namespace and local name into clark notation.
func NSJoin(ns, local string) string {
	if ns == "" {
		return local
	}
	return "{" + ns + "}" + local
}

const (
	formatRFC1123 = "Mon, 02 Jan 2006 15:04:05 GMT"
	formatRFC850  = "Monday, 02-Jan-06 15:04:05 GMT"
	formatAsctime = "Mon Jan _2 15:04:05 2006"
)

// ParseHTTPDate parses an HTTP-date header value in any of the three forms
// permitted by RFC 7231 (preferred RFC 1123, obsolete RFC 850, and ANSI C
// asctime), returning a UTC time. It never errors; unparseable input yields
// ok == false.
func ParseHTTPDate(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{formatRFC1123, formatRFC850, formatAsctime, time.RFC1123, time.RFC1123Z, time.ANSIC} {
		if v, err := time.Parse(layout, s); err == nil {
			return v.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatRFC1123 renders t in the RFC 1123 form used by Last-Modified/Date.
func FormatRFC1123(t time.Time) string {
	return t.UTC().Format(formatRFC1123)
}

// FormatRFC3339 renders t in the RFC 3339 form used by creationdate.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// RFC5987Filename produces a Content-Disposition filename parameter set for
// name: always an ASCII-folded "filename=" (via NFKD decomposition, dropping
// anything left non-ASCII), plus a "filename*=UTF-8''..." extended parameter
// whenever the fold lost information.
func RFC5987Filename(disposition, name string) string {
	folded := foldASCII(name)
	header := disposition + `; filename="` + folded + `"`
	if folded != name {
		header += "; filename*=UTF-8''" + percentEncode(name)
	}
	return header
}

func foldASCII(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	for _, r := range decomposed {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		hex := strings.ToUpper(strconv.FormatInt(int64(c), 16))
		b.WriteByte('%')
		if len(hex) < 2 {
			b.WriteByte('0')
		}
		b.WriteString(hex)
	}
	return b.String()
}
