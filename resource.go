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
	"fmt"
	"io"
	"time"
)

// FileSystem is the backend contract: it materializes a Path from a
// namespace path string. Backends may be ephemeral (materialized fresh on
// each call); the dispatcher never assumes identity across requests.
type FileSystem interface {
	ForPath(p string) (Path, error)
}

// CopyOptions carries the parameters that shape a relocate operation.
type CopyOptions struct {
	Overwrite, Move bool
	Depth           int
}

// RelocateError is returned by Path.CopyTo when a recursive COPY/MOVE across
// a collection subtree completes some children and fails others; the
// dispatcher renders it as a per-href multistatus body rather than a single
// bodyless error status.
type RelocateError struct {
	Errs map[string]error
}

func (e RelocateError) Error() string {
	return fmt.Sprintf("partial relocate failure across %d paths", len(e.Errs))
}

// Path addresses a location in the namespace, whether or not a resource
// currently exists there. It is the structural contract every backend must
// satisfy regardless of which content capabilities (Readable, Writable,
// PropertyStore) its Files support.
type Path interface {
	String() string
	Parent() Path
	Lookup() (File, error)
	LookupSubtree(depth int) ([]File, error)
	Mkdir() (File, error)
	Create() (File, error)
	CopyTo(dst Path, opt CopyOptions) (bool, error)
	Remove() error
	RecursiveRemove() map[string]error
}

// FileInfo is the metadata attribute set common to every resource.
type FileInfo struct {
	Created, LastModified time.Time
	Size                  int64
}

// File is the minimal resource view returned by a successful Lookup: a
// materialized node that exists, collection or object. Content operations
// are expressed as optional capabilities (see Readable, Writable,
// PropertyStore, CalendarAware below) rather than required methods, so a
// backend can compose only the capabilities it actually supports — mirroring
// the source's DummyReadFSDavResource/DummyWriteFSDavResource mix-ins
// without needing multiple inheritance.
type File interface {
	GetPath() string
	IsDirectory() bool
	Stat() (FileInfo, error)
}

// Readable is implemented by Files whose bytes can be streamed out (GET).
type Readable interface {
	Open() (FileHandle, error)
}

// Writable is implemented by Files that accept new content (PUT). When
// truncate is false the handle is positioned for a range write rather than
// discarding existing content.
type Writable interface {
	OpenWrite(truncate bool) (FileHandle, error)
}

// PropertyStore is implemented by Files with a dead-property store
// (PROPPATCH target, and named PROPFIND fallback for unrecognized names).
type PropertyStore interface {
	PatchProp(set, remove map[string]string) error
	GetProp(k string) (string, bool)
}

// CalendarAware lets a backend flag a collection as a CalDAV calendar, so
// PropEngine can add the <cal:calendar/> resourcetype child.
type CalendarAware interface {
	IsCalendar() bool
}

// FileHandle is an open reference to a file for reading and/or writing.
type FileHandle interface {
	io.ReadSeeker
	io.Closer
	io.Writer
}

// emptyFile is the FileHandle used for HEAD requests, where no bytes are
// ever read from or written to the underlying resource.
type emptyFile struct{}

var _ FileHandle = &emptyFile{}

func (e *emptyFile) Write(b []byte) (int, error) {
	return 0, io.EOF
}

func (e *emptyFile) Close() error {
	return nil
}

func (e *emptyFile) Read(p []byte) (n int, err error) {
	return 0, io.EOF
}

func (e *emptyFile) Seek(offset int64, whence int) (ret int64, err error) {
	return 0, nil
}
