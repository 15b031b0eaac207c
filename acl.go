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

import "net/http"

// ACL is the capability set the dispatcher checks before acting on a path,
// mirroring the source's DavAcl attribute set (read/write/delete/create/
// relocate/list/full).
type ACL struct {
	Read     bool
	Write    bool
	Delete   bool
	Create   bool
	Relocate bool
	List     bool
	Full     bool
}

// Capability is one of the named ACL fields, used to request a check for a
// specific operation without reflecting on the ACL struct.
type Capability int

const (
	CapRead Capability = iota
	CapWrite
	CapDelete
	CapCreate
	CapRelocate
	CapList
	CapFull
)

// Allows reports whether the ACL grants the given capability. Full implies
// every other capability, mirroring the source's `full` attribute.
func (a ACL) Allows(c Capability) bool {
	if a.Full {
		return true
	}
	switch c {
	case CapRead:
		return a.Read
	case CapWrite:
		return a.Write
	case CapDelete:
		return a.Delete
	case CapCreate:
		return a.Create
	case CapRelocate:
		return a.Relocate
	case CapList:
		return a.List
	default:
		return false
	}
}

// FullACL grants every capability; suitable as the default for single-user
// or trusted deployments.
var FullACL = ACL{Full: true}

// ReadOnlyACL grants only read and list, used as the package default so
// embedding applications must opt in to mutation.
var ReadOnlyACL = ACL{Read: true, List: true}

// ACLProvider resolves the capability set that applies to a given path for
// the current request. Implementations may consult request context (e.g.
// an authenticated principal stashed by upstream middleware) via r.
type ACLProvider interface {
	GetAccess(r *http.Request, path string) ACL
}

// StaticACL is an ACLProvider that grants the same ACL to every path and
// request, useful for simple deployments and as the Handler's zero-value
// default.
type StaticACL struct {
	ACL ACL
}

func (s StaticACL) GetAccess(r *http.Request, path string) ACL {
	return s.ACL
}
