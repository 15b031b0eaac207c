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

// Package diskfs is a webdav.FileSystem backed by a real directory tree. It
// plays the role djangodav's BaseFSDavResource/DummyReadFSDavResource/
// DummyWriteFSDavResource mix-ins play for the Python original: get_abs_path
// resolves a namespace path under a root, and read/write/delete/copy/move
// are thin wrappers over os and io/ioutil-style calls.
//
// Dead properties have no durable store on disk in this implementation (the
// source's resources don't persist them either, beyond request scope); they
// are kept in memory for the process lifetime, keyed by namespace path.
package diskfs

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	w "github.com/omarbenhamid/godav"
	wp "github.com/omarbenhamid/godav/path"
)

type diskfs struct {
	root string

	m     sync.Mutex
	props map[string]map[string]string
	cal   map[string]bool
}

// New creates a webdav.FileSystem rooted at root, which must already exist
// as a directory.
func New(root string) (w.FileSystem, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, os.ErrInvalid
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &diskfs{root: abs, props: make(map[string]map[string]string), cal: make(map[string]bool)}, nil
}

func (fs *diskfs) absPath(p string) string {
	return wp.SafeJoin(fs.root, p)
}

func (fs *diskfs) ForPath(p string) (w.Path, error) {
	p = filepath.ToSlash(filepath.Clean("/" + p))
	return &diskp{fs: fs, path: p}, nil
}

type diskp struct {
	fs   *diskfs
	path string
}

func (p *diskp) String() string { return p.path }

func (p *diskp) Parent() w.Path {
	return &diskp{fs: p.fs, path: filepath.ToSlash(filepath.Dir(p.path))}
}

func (p *diskp) abs() string { return p.fs.absPath(p.path) }

func (p *diskp) Lookup() (w.File, error) {
	fi, err := os.Stat(p.abs())
	if os.IsNotExist(err) {
		return nil, w.ErrorNotFound
	} else if err != nil {
		return nil, err
	}
	return &diskfile{fs: p.fs, path: p.path, dir: fi.IsDir(), size: fi.Size(), mod: fi}, nil
}

func (p *diskp) LookupSubtree(depth int) ([]w.File, error) {
	self, err := p.Lookup()
	if err != nil {
		return nil, err
	}
	files := []w.File{self}
	if !self.IsDirectory() {
		return files, nil
	}

	err = filepath.Walk(p.abs(), func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fp == p.abs() {
			return nil
		}
		rel, err := filepath.Rel(p.fs.root, fp)
		if err != nil {
			return err
		}
		rel = "/" + filepath.ToSlash(rel)
		if _, ok := wp.Included(rel, p.path, depth); !ok {
			if info.IsDir() && depth >= 0 {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, &diskfile{fs: p.fs, path: rel, dir: info.IsDir(), size: info.Size(), mod: info})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (p *diskp) Mkdir() (w.File, error) {
	if err := os.Mkdir(p.abs(), 0o755); err != nil {
		if os.IsExist(err) {
			return nil, w.ErrorConflict
		}
		if os.IsNotExist(err) {
			return nil, w.ErrorMissingParent
		}
		return nil, err
	}
	return p.Lookup()
}

func (p *diskp) Create() (w.File, error) {
	f, err := os.OpenFile(p.abs(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, w.ErrorConflict
		}
		if os.IsNotExist(err) {
			return nil, w.ErrorMissingParent
		}
		return nil, err
	}
	f.Close()
	return p.Lookup()
}

func (p *diskp) Remove() error {
	fi, err := os.Stat(p.abs())
	if os.IsNotExist(err) {
		return w.ErrorNotFound
	}
	if fi.IsDir() {
		return w.ErrorIsDir
	}
	return os.Remove(p.abs())
}

func (p *diskp) RecursiveRemove() map[string]error {
	errs := make(map[string]error)
	fi, err := os.Stat(p.abs())
	if os.IsNotExist(err) {
		errs[p.path] = w.ErrorNotFound
		return errs
	}
	if !fi.IsDir() {
		errs[p.path] = w.ErrorIsNotDir
		return errs
	}
	if err := os.RemoveAll(p.abs()); err != nil {
		errs[p.path] = err
	}
	return errs
}

func (p *diskp) CopyTo(dst w.Path, opt w.CopyOptions) (bool, error) {
	dstp, ok := dst.(*diskp)
	if !ok {
		return false, w.ErrorBadHost
	}
	if p.path == dstp.path {
		return false, w.ErrorSameFile
	}

	srcFi, err := os.Stat(p.abs())
	if os.IsNotExist(err) {
		return false, w.ErrorNotFound
	} else if err != nil {
		return false, err
	}

	if srcFi.IsDir() && opt.Move && opt.Depth >= 0 {
		return false, w.ErrorIsDir
	}

	if _, err := os.Stat(filepath.Dir(dstp.abs())); os.IsNotExist(err) {
		return false, w.ErrorMissingParent
	}

	newf := true
	if _, err := os.Stat(dstp.abs()); err == nil {
		if !opt.Overwrite {
			return false, w.ErrorDestExists
		}
		newf = false
		if err := os.RemoveAll(dstp.abs()); err != nil {
			return false, w.ErrorConflict.WithCause(err)
		}
	}

	if opt.Move {
		if err := os.Rename(p.abs(), dstp.abs()); err != nil {
			return false, err
		}
		return newf, nil
	}

	if srcFi.IsDir() {
		errs := copyTree(p.abs(), dstp.abs())
		if len(errs) > 0 {
			return newf, w.RelocateError{Errs: errs}
		}
		return newf, nil
	}
	if err := copyFile(p.abs(), dstp.abs()); err != nil {
		return false, err
	}
	return newf, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// copyTree copies src onto dst file by file, continuing past individual
// failures so the rest of the tree still lands; failures are reported back
// keyed by the source-relative path rather than aborting the whole copy.
func copyTree(src, dst string) map[string]error {
	errs := make(map[string]error)
	filepath.Walk(src, func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			if rel, rerr := filepath.Rel(src, fp); rerr == nil {
				errs["/"+filepath.ToSlash(rel)] = err
			} else {
				errs[fp] = err
			}
			return nil
		}
		rel, err := filepath.Rel(src, fp)
		if err != nil {
			errs[fp] = err
			return nil
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				errs["/"+filepath.ToSlash(rel)] = err
			}
			return nil
		}
		if err := copyFile(fp, target); err != nil {
			errs["/"+filepath.ToSlash(rel)] = err
		}
		return nil
	})
	return errs
}

type diskfile struct {
	fs   *diskfs
	path string
	dir  bool
	size int64
	mod  os.FileInfo
}

func (f *diskfile) GetPath() string   { return f.path }
func (f *diskfile) IsDirectory() bool { return f.dir }

func (f *diskfile) Stat() (w.FileInfo, error) {
	return w.FileInfo{
		Created:      f.mod.ModTime(),
		LastModified: f.mod.ModTime(),
		Size:         f.size,
	}, nil
}

// Open implements w.Readable.
func (f *diskfile) Open() (w.FileHandle, error) {
	if f.dir {
		return nil, w.ErrorIsDir
	}
	fh, err := os.Open(f.fs.absPath(f.path))
	if err != nil {
		return nil, err
	}
	return fh, nil
}

// OpenWrite implements w.Writable.
func (f *diskfile) OpenWrite(truncate bool) (w.FileHandle, error) {
	if f.dir {
		return nil, w.ErrorIsDir
	}
	flags := os.O_RDWR
	if truncate {
		flags |= os.O_TRUNC
	}
	fh, err := os.OpenFile(f.fs.absPath(f.path), flags, 0o644)
	if err != nil {
		return nil, err
	}
	return fh, nil
}

// PatchProp implements w.PropertyStore with an in-process dead-property
// store, since the underlying filesystem has nowhere else to put them.
func (f *diskfile) PatchProp(set, remove map[string]string) error {
	f.fs.m.Lock()
	defer f.fs.m.Unlock()
	p := f.fs.props[f.path]
	if p == nil {
		p = make(map[string]string)
		f.fs.props[f.path] = p
	}
	for k, v := range set {
		p[k] = v
	}
	for k := range remove {
		delete(p, k)
	}
	if v, ok := p["DAV::iscalendar"]; ok {
		f.fs.cal[f.path] = v == "1"
	}
	return nil
}

// GetProp implements w.PropertyStore.
func (f *diskfile) GetProp(k string) (string, bool) {
	f.fs.m.Lock()
	defer f.fs.m.Unlock()
	p := f.fs.props[f.path]
	if p == nil {
		return "", false
	}
	v, ok := p[k]
	return v, ok
}

// IsCalendar implements w.CalendarAware.
func (f *diskfile) IsCalendar() bool {
	f.fs.m.Lock()
	defer f.fs.m.Unlock()
	return f.fs.cal[f.path]
}
