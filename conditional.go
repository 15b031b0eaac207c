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

package webdav

import (
	"net/http"
	"strings"
	"time"

	wp "github.com/omarbenhamid/godav/path"
)

// condResult is the outcome of evaluating a request's conditional headers
// against a resource's current state.
type condResult int

const (
	condProceed condResult = iota
	condNotModified
	condPreconditionFailed
)

// etagListMatches reports whether etag (possibly empty, for a missing
// resource) satisfies a comma-separated If-Match/If-None-Match header value,
// "*" always matching any existing resource.
func etagListMatches(header, etag string) bool {
	if etag == "" {
		return false
	}
	for _, tok := range strings.Split(header, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "*" || tok == etag || tok == "W/"+etag {
			return true
		}
	}
	return false
}

// evalConditional implements §4.5: it decides whether a request may proceed
// given the resource's current etag/modified time and the conditional
// request headers. A missing resource (exists == false) always
// short-circuits to condProceed, since there's nothing to compare against.
//
// The If-Match branch here is RFC 4918-correct: a failing match yields
// condPreconditionFailed. Earlier drafts of this evaluator had that
// inverted, so the regression test in conditional_test.go pins this down.
func evalConditional(r *http.Request, exists bool, etag string, modified time.Time) condResult {
	if !exists {
		return condProceed
	}

	pending := condProceed

	if im := r.Header.Get("If-Match"); im != "" {
		if !etagListMatches(im, etag) {
			return condPreconditionFailed
		}
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		if t, ok := wp.ParseHTTPDate(ims); ok {
			if t.After(modified) {
				pending = condNotModified
			}
		}
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if etagListMatches(inm, etag) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				pending = condNotModified
			} else {
				return condPreconditionFailed
			}
		} else {
			pending = condProceed
		}
	}

	if ius := r.Header.Get("If-Unmodified-Since"); ius != "" {
		if t, ok := wp.ParseHTTPDate(ius); ok {
			if !t.After(modified) {
				return condPreconditionFailed
			}
		}
	}

	return pending
}
