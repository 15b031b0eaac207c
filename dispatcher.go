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
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/omarbenhamid/godav/cond"
	x "github.com/omarbenhamid/godav/davxml"
	"github.com/omarbenhamid/godav/metrics"
	wp "github.com/omarbenhamid/godav/path"
)

// CollectionRenderer renders an HTML listing for a collection resource, used
// by GET when the target is a directory (HEAD sends no body). The htmlindex package provides
// the default implementation; it is expressed as an interface here so this
// package never needs to import a templating library.
type CollectionRenderer interface {
	Render(w http.ResponseWriter, base string, entries []File) error
}

// WebDAV is a http.Handler implementation of the WebDAV protocol (RFC 4918
// class 1/2) over an abstract FileSystem. Set Debug to true to force
// serialization and logging of every request, useful when chasing down a
// client interop issue.
type WebDAV struct {
	fs      FileSystem
	lm      *lockmaster
	acl     ACLProvider
	log     *zap.Logger
	metrics *metrics.Recorder
	html    CollectionRenderer

	m     sync.Mutex
	Debug bool
}

// Option configures a WebDAV handler at construction time.
type Option func(*WebDAV)

// WithACL sets the ACLProvider consulted before every operation. The default
// is ReadOnlyACL applied to every path.
func WithACL(p ACLProvider) Option {
	return func(s *WebDAV) { s.acl = p }
}

// WithLogger sets the zap.Logger used for request and error logging. The
// default is zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(s *WebDAV) { s.log = l }
}

// WithMetrics attaches a Prometheus recorder. The default records nothing.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *WebDAV) { s.metrics = m }
}

// WithCollectionRenderer sets the renderer used to produce an HTML body for
// GET on a collection. Without one, GET on a collection returns a bare
// 200 with an empty body.
func WithCollectionRenderer(r CollectionRenderer) Option {
	return func(s *WebDAV) { s.html = r }
}

// WithLockTTLBounds overrides the [min, max] a LOCK/refresh Timeout request
// is clamped to. The default is 20s/5m.
func WithLockTTLBounds(minTTL, maxTTL time.Duration) Option {
	return func(s *WebDAV) {
		s.lm.minDuration = minTTL
		s.lm.maxDuration = maxTTL
	}
}

// NewWebDAV creates a WebDAV http.Handler wrapper around a given FileSystem.
func NewWebDAV(fs FileSystem, opts ...Option) *WebDAV {
	s := &WebDAV{
		fs:  fs,
		acl: StaticACL{ACL: ReadOnlyACL},
		log: zap.NewNop(),
	}
	s.lm = newLockMaster(nil)
	for _, o := range opts {
		o(s)
	}
	s.lm.metrics = s.metrics
	return s
}

// fsEnv implements cond.Env without exposing it via WebDAV's public API.
type fsEnv struct {
	w *WebDAV
}

func (e fsEnv) ETag(r string) string {
	p, err := e.w.fs.ForPath(r)
	if err != nil {
		return ""
	}
	f, err := p.Lookup()
	if err != nil {
		return ""
	}
	fi, err := f.Stat()
	if err != nil {
		return ""
	}
	return etag(fi)
}

func (e fsEnv) Locked(r, l string) bool {
	return e.w.lm.isLocked(r, l)
}

type reqContext struct {
	p         Path
	depth     int
	timeout   time.Duration
	cond      *cond.IfTag
	overwrite bool
	acl       ACL
}

// parseDepth gets the desired depth from the given request, defaulting to
// infinity (-1) if none was specified.
func parseDepth(r *http.Request) (int, error) {
	dh := r.Header.Get("Depth")
	if dh == "infinity" || dh == "Infinity" || dh == "" {
		return -1, nil
	}
	d, err := strconv.Atoi(dh)
	if err != nil {
		return 0, ErrorBadDepth.WithCause(err)
	}
	if d < 0 {
		return 0, ErrorBadDepth.WithCause(errors.New("depth must be non-negative or infinity"))
	}
	return d, nil
}

// parseTimeout gets the desired lock timeout from the request, ignoring
// anything past the first three comma-separated options and defaulting to
// one second if none are usable; the clamp to the lock manager's configured
// [min, max] bounds happens inside the lock manager.
func parseTimeout(r *http.Request) time.Duration {
	opts := strings.Split(r.Header.Get("Timeout"), ",")
	if len(opts) > 3 {
		opts = opts[:3]
	}
	for _, o := range opts {
		o = strings.TrimSpace(o)
		if o == "Infinite" {
			continue
		}
		o = strings.TrimPrefix(o, "Second-")
		d, err := strconv.Atoi(o)
		if err != nil {
			continue
		}
		return time.Duration(d) * time.Second
	}
	return time.Second
}

func parseIfHeader(r *http.Request) (*cond.IfTag, error) {
	ih := r.Header.Get("If")
	if ih == "" {
		return nil, nil
	}
	t, err := cond.ParseIfTag(ih)
	if err != nil {
		return nil, err
	}
	if err := t.RewriteHosts(r.Host); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *WebDAV) extractContext(r *http.Request) (ctx reqContext, err error) {
	ctx.p, err = s.fs.ForPath(r.URL.Path)
	if err != nil {
		return
	}

	ctx.depth, err = parseDepth(r)
	if err != nil {
		return
	}

	ctx.cond, err = parseIfHeader(r)
	if err != nil {
		return
	}

	ctx.timeout = parseTimeout(r)
	ctx.overwrite = r.Header.Get("Overwrite") != "F"
	ctx.acl = s.acl.GetAccess(r, ctx.p.String())
	return
}

// checkCanWrite reports whether the dispatcher may mutate p: either nothing
// holds a covering lock, or the If header presents a token for one that
// does.
func (s *WebDAV) checkCanWrite(ctx reqContext, p Path) bool {
	l := s.lm.getLockForPath(p.String())
	if l == nil {
		return true
	}
	if ctx.cond == nil {
		return false
	}
	for _, t := range ctx.cond.GetAllTokens() {
		if s.lm.isLocked(p.String(), t) {
			return true
		}
	}
	return false
}

func (s *WebDAV) requireCap(ctx reqContext, w http.ResponseWriter, c Capability) bool {
	if ctx.acl.Allows(c) {
		return true
	}
	s.errorHeader(ctx, w, ErrorForbidden)
	return false
}

// serverHeader identifies this implementation in every response's Server
// header, per the dispatcher's common postamble.
const serverHeader = "godav"

func (s *WebDAV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Debug {
		s.m.Lock()
		defer s.m.Unlock()
		s.log.Debug("request", zap.String("method", r.Method), zap.Stringer("url", r.URL))
	}

	sw := &statusWriter{ResponseWriter: w}
	sw.Header().Set("Server", serverHeader)
	defer func() {
		s.metrics.ObserveRequest(r.Method, sw.status())
	}()

	ctx, err := s.extractContext(r)
	if err != nil {
		s.errorHeader(ctx, sw, err)
		return
	}

	if ctx.cond != nil {
		if !ctx.cond.Eval(fsEnv{w: s}, ctx.p.String()) {
			sw.WriteHeader(http.StatusPreconditionFailed)
			return
		}
	}

	switch r.Method {
	case http.MethodOptions:
		s.doOptions(ctx, sw, r)
	case http.MethodGet:
		s.doGet(ctx, sw, r)
	case http.MethodHead:
		s.doHead(ctx, sw, r)
	case http.MethodPost:
		s.doPost(ctx, sw, r)
	case http.MethodDelete:
		s.doDelete(ctx, sw, r)
	case http.MethodPut:
		s.doPut(ctx, sw, r)
	case "MKCOL":
		s.doMkcol(ctx, sw, r)
	case "COPY":
		s.doCopy(ctx, sw, r)
	case "MOVE":
		s.doMove(ctx, sw, r)
	case "PROPFIND":
		s.doPropfind(ctx, sw, r)
	case "PROPPATCH":
		s.doProppatch(ctx, sw, r)
	case "LOCK":
		s.doLock(ctx, sw, r)
	case "UNLOCK":
		s.doUnlock(ctx, sw, r)
	default:
		sw.WriteHeader(http.StatusBadRequest)
	}
}

// statusWriter remembers the status code written, so ServeHTTP can report it
// to metrics without every handler threading it back explicitly.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.code = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) status() int {
	if sw.code == 0 {
		return http.StatusOK
	}
	return sw.code
}

func (s *WebDAV) allowedHeader(w http.ResponseWriter, p Path) {
	allowed := "OPTIONS, MKCOL, PUT, LOCK"
	f, err := p.Lookup()
	if err == nil {
		allowed = "OPTIONS, GET, HEAD, POST, DELETE, PROPFIND, PROPPATCH, COPY, MOVE, LOCK, UNLOCK"
		if !f.IsDirectory() {
			allowed += ", PUT"
		}
	}
	w.Header().Set("Allow", allowed)
}

func (s *WebDAV) errorHeader(ctx reqContext, w http.ResponseWriter, e error) {
	s.log.Info("request error", zap.Error(e))
	if we, ok := e.(Error); ok {
		if we.HTTPCode() == http.StatusMethodNotAllowed && ctx.p != nil {
			s.allowedHeader(w, ctx.p)
		}
		w.WriteHeader(we.HTTPCode())
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *WebDAV) doOptions(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	// http://www.webdav.org/specs/rfc4918.html#dav.compliance.classes
	w.Header().Set("DAV", "1, 2")
	s.allowedHeader(w, ctx.p)
	w.Header().Set("MS-Author-Via", "DAV")
}

// http://www.webdav.org/specs/rfc4918.html#rfc.section.9.4
func (s *WebDAV) doGet(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapRead) {
		return
	}
	s.servePath(ctx, w, r, true)
}

// http://www.webdav.org/specs/rfc4918.html#rfc.section.9.4
func (s *WebDAV) doHead(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapRead) {
		return
	}
	s.servePath(ctx, w, r, false)
}

func (s *WebDAV) servePath(ctx reqContext, w http.ResponseWriter, r *http.Request, content bool) {
	f, err := ctx.p.Lookup()
	if err != nil {
		s.errorHeader(ctx, w, ErrorNotFound.WithCause(err))
		return
	}

	fi, err := f.Stat()
	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}

	switch cr := evalConditional(r, true, etag(fi), fi.LastModified); cr {
	case condNotModified:
		w.WriteHeader(http.StatusNotModified)
		return
	case condPreconditionFailed:
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}

	if f.IsDirectory() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		if !content {
			w.WriteHeader(http.StatusOK)
			return
		}
		if s.html == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		entries, err := ctx.p.LookupSubtree(1)
		if err != nil {
			s.errorHeader(ctx, w, err)
			return
		}
		if err := s.html.Render(w, ctx.p.String(), entries); err != nil {
			s.log.Warn("render collection listing", zap.Error(err))
		}
		return
	}

	if strings.HasSuffix(r.URL.Path, "/") {
		http.Redirect(w, r, strings.TrimSuffix(r.URL.Path, "/"), http.StatusMovedPermanently)
		return
	}

	var fh FileHandle
	if content {
		rf, ok := f.(Readable)
		if !ok {
			s.errorHeader(ctx, w, ErrorNotImplemented)
			return
		}
		fh, err = rf.Open()
	} else {
		fh = &emptyFile{}
	}
	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}
	defer fh.Close()
	w.Header().Set("ETag", etag(fi))
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, ctx.p.String(), fi.LastModified, fh)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_POST
func (s *WebDAV) doPost(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	s.doGet(ctx, w, r)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_DELETE
func (s *WebDAV) doDelete(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapDelete) {
		return
	}
	if !s.checkCanWrite(ctx, ctx.p) {
		s.errorHeader(ctx, w, ErrorLocked)
		return
	}

	f, err := ctx.p.Lookup()
	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}

	if !f.IsDirectory() {
		if err := ctx.p.Remove(); err != nil {
			s.errorHeader(ctx, w, err)
			return
		}
		s.lm.delLocks(ctx.p.String())
		w.WriteHeader(http.StatusNoContent)
		return
	}

	errs := ctx.p.RecursiveRemove()
	s.lm.delLocks(ctx.p.String())
	if len(errs) == 0 {
		w.WriteHeader(http.StatusNoContent)
	} else {
		ms := x.NewMultiStatus()
		for p, e := range errs {
			ms.AddStatus(p, e)
		}
		ms.Send(w)
	}
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_PUT
func (s *WebDAV) doPut(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapWrite) {
		return
	}
	if !s.checkCanWrite(ctx, ctx.p) {
		s.errorHeader(ctx, w, ErrorLocked)
		return
	}

	var fh FileHandle
	f, err := ctx.p.Lookup()
	exists := false
	if err == nil {
		if f.IsDirectory() {
			s.errorHeader(ctx, w, ErrorIsDir)
			return
		}
		exists = true

		fi, statErr := f.Stat()
		if statErr == nil {
			switch evalConditional(r, true, etag(fi), fi.LastModified) {
			case condPreconditionFailed:
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
		}

		wf, ok := f.(Writable)
		if !ok {
			s.errorHeader(ctx, w, ErrorNotImplemented)
			return
		}
		fh, err = wf.OpenWrite(true)
	} else {
		f, err = ctx.p.Create()
		if err == nil {
			wf, ok := f.(Writable)
			if !ok {
				s.errorHeader(ctx, w, ErrorNotImplemented)
				return
			}
			fh, err = wf.OpenWrite(true)
		}
	}

	if err != nil {
		s.errorHeader(ctx, w, ErrorConflict.WithCause(err))
		return
	}
	defer fh.Close()

	if _, err := io.Copy(fh, r.Body); err != nil {
		s.errorHeader(ctx, w, ErrorConflict.WithCause(err))
		return
	}
	if exists {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_MKCOL
func (s *WebDAV) doMkcol(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapCreate) {
		return
	}
	if !s.checkCanWrite(ctx, ctx.p) {
		s.errorHeader(ctx, w, ErrorLocked)
		return
	}

	if _, err := ctx.p.Lookup(); err == nil {
		s.errorHeader(ctx, w, ErrorNotAllowed)
		return
	}

	if r.ContentLength > 0 {
		s.errorHeader(ctx, w, ErrorUnsupportedType)
		return
	}

	if _, err := ctx.p.Mkdir(); err != nil {
		s.errorHeader(ctx, w, ErrorConflict.WithCause(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_COPY
func (s *WebDAV) doCopy(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	s.handleCopyOrMove(ctx, w, r, false)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_MOVE
func (s *WebDAV) doMove(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	s.handleCopyOrMove(ctx, w, r, true)
}

func (s *WebDAV) handleCopyOrMove(ctx reqContext, w http.ResponseWriter, r *http.Request, move bool) {
	if !s.requireCap(ctx, w, CapRelocate) {
		return
	}
	if !s.requireCap(ctx, w, CapRead) {
		return
	}
	if move && !s.requireCap(ctx, w, CapDelete) {
		return
	}

	src := ctx.p
	if move && !s.checkCanWrite(ctx, src) {
		s.errorHeader(ctx, w, ErrorLocked)
		return
	}

	dhdr := r.Header.Get("Destination")
	if dhdr == "" {
		s.errorHeader(ctx, w, ErrorBadDest)
		return
	}
	durl, err := url.Parse(dhdr)
	if err != nil {
		s.errorHeader(ctx, w, ErrorBadDest.WithCause(err))
		return
	}

	// Destination host must match our source.
	if durl.Host != r.Host {
		s.errorHeader(ctx, w, ErrorBadHost)
		return
	}

	// COPY of a collection requires strict Depth: infinity; finite-depth
	// collection copies are rejected rather than silently truncated.
	if !move {
		if f, err := src.Lookup(); err == nil && f.IsDirectory() && ctx.depth >= 0 {
			s.errorHeader(ctx, w, ErrorBadDepth)
			return
		}
	}

	dst, err := s.fs.ForPath(durl.Path)
	if err != nil {
		s.errorHeader(ctx, w, ErrorBadDest.WithCause(err))
		return
	}

	if !s.checkCanWrite(ctx, dst) {
		s.errorHeader(ctx, w, ErrorLocked)
		return
	}

	newf, err := src.CopyTo(dst, CopyOptions{
		Overwrite: ctx.overwrite,
		Move:      move,
		Depth:     ctx.depth,
	})

	if partial, ok := err.(RelocateError); ok {
		ms := x.NewMultiStatus()
		for p, e := range partial.Errs {
			ms.AddStatus(p, e)
		}
		ms.Send(w)
		return
	}

	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}

	if move {
		s.lm.delLocks(src.String())
	}

	if newf {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusNoContent)
	}
}

var fileStatProps = map[string]bool{
	"DAV::getlastmodified":  true,
	"DAV::getetag":          true,
	"DAV::getcontentlength": true,
	"DAV::creationdate":     true,
}

func etag(fi FileInfo) string {
	return fmt.Sprintf(`"%d-%d"`, fi.Size, fi.LastModified.UnixNano())
}

func getFileStatProp(n string, f File) (v string, err error) {
	fi, err := f.Stat()
	if err != nil {
		return
	}
	switch n {
	case "DAV::getlastmodified":
		v = wp.FormatRFC1123(fi.LastModified)
	case "DAV::getetag":
		v = etag(fi)
	case "DAV::getcontentlength":
		v = strconv.FormatInt(fi.Size, 10)
	case "DAV::creationdate":
		v = wp.FormatRFC3339(fi.Created)
	}
	return
}

// getPropValue gets a property for a given file, generating the synthetic
// live properties expected by every client (resourcetype, supportedlock,
// lockdiscovery, displayname, the stat-derived set) before falling back to
// the backend's dead-property store.
func (s *WebDAV) getPropValue(pn string, f File) (x.Any, bool) {
	a := x.NewAny(pn)
	switch pn {
	case "DAV::resourcetype":
		if f.IsDirectory() {
			if ca, ok := f.(CalendarAware); ok && ca.IsCalendar() {
				a.Inner = `<collection xmlns="DAV:"/><cal:calendar xmlns:cal="` + x.CalDAVNamespace + `"/>`
			} else {
				a.Inner = `<collection xmlns="DAV:"/>`
			}
		}
		return a, true
	case "DAV::supportedlock":
		a.Inner = `
<D:lockentry xmlns:D="DAV:">
<D:lockscope><D:exclusive/></D:lockscope>
<D:locktype><D:write/></D:locktype>
</D:lockentry>
<D:lockentry xmlns:D="DAV:">
<D:lockscope><D:shared/></D:lockscope>
<D:locktype><D:write/></D:locktype>
</D:lockentry>`
		return a, true
	case "DAV::lockdiscovery":
		l := s.lm.getLockForPath(f.GetPath())
		if l != nil {
			a.Inner = l.toXML()
		}
		return a, true
	case "DAV::displayname":
		a.Value = path.Base(f.GetPath())
		return a, true
	}

	if fileStatProps[pn] {
		v, err := getFileStatProp(pn, f)
		if err != nil {
			return a, false
		}
		a.Value = v
		return a, true
	}

	ps, ok := f.(PropertyStore)
	if !ok {
		return a, false
	}
	v, ok := ps.GetProp(pn)
	a.Value = v
	return a, ok
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_PROPFIND
func (s *WebDAV) doPropfind(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapRead) {
		return
	}

	req, err := x.ParsePropFind(r.Body)
	if err != nil {
		s.errorHeader(ctx, w, ErrorBadPropfind.WithCause(err))
		return
	}

	files, err := ctx.p.LookupSubtree(ctx.depth)
	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}

	ms := x.NewMultiStatus()
	for _, f := range files {
		// propname-only requests report every allprop name with an empty
		// value; named-property requests report any name the backend
		// doesn't have under its own 404 propstat block.
		if req.PropName {
			var names []x.Any
			for _, pn := range allPropNames(f) {
				names = append(names, x.NewAny(pn))
			}
			ms.AddPropStatus(f.GetPath(), names, nil)
			continue
		}
		var names []string
		if req.AllProp {
			names = allPropNames(f)
		} else {
			names = req.PropertyNames
		}
		var found, missing []x.Any
		for _, pn := range names {
			v, ok := s.getPropValue(pn, f)
			if ok {
				found = append(found, v)
			} else if !req.AllProp {
				missing = append(missing, v)
			}
		}
		ms.AddPropStatus(f.GetPath(), found, missing)
	}
	ms.Send(w)
}

var defaultAllProps = []string{
	"DAV::resourcetype",
	"DAV::getlastmodified",
	"DAV::getetag",
	"DAV::getcontentlength",
	"DAV::creationdate",
	"DAV::displayname",
	"DAV::supportedlock",
	"DAV::lockdiscovery",
}

// allPropNames is the property set returned for allprop, per RFC 4918 §9.1.
func allPropNames(f File) []string {
	return append([]string(nil), defaultAllProps...)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_PROPPATCH
func (s *WebDAV) doProppatch(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapWrite) {
		return
	}
	if !s.checkCanWrite(ctx, ctx.p) {
		s.errorHeader(ctx, w, ErrorLocked)
		return
	}

	f, err := ctx.p.Lookup()
	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}

	req, err := x.ParsePropPatch(r.Body)
	if err != nil {
		s.errorHeader(ctx, w, ErrorBadProppatch.WithCause(err))
		return
	}

	ps, ok := f.(PropertyStore)
	if !ok {
		s.errorHeader(ctx, w, ErrorNotImplemented)
		return
	}

	if err := ps.PatchProp(req.Set, req.Remove); err != nil {
		s.errorHeader(ctx, w, ErrorConflict.WithCause(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_LOCK
func (s *WebDAV) doLock(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapWrite) {
		return
	}

	req, err := x.ParseLock(r.Body)
	if err != nil {
		s.errorHeader(ctx, w, ErrorBadLock.WithCause(err))
		return
	}

	var l *lock
	if req.Refresh {
		if ctx.cond == nil {
			s.errorHeader(ctx, w, ErrorBadLock)
			return
		}
		tok, ok := ctx.cond.GetSingleState()
		if !ok {
			s.errorHeader(ctx, w, ErrorBadLock)
			return
		}
		l, err = s.lm.refreshLock(tok, ctx.p, ctx.timeout)
	} else {
		// We don't let you lock anything without a materialized parent.
		if _, err := ctx.p.Parent().Lookup(); err != nil {
			s.errorHeader(ctx, w, ErrorMissingParent)
			return
		}
		scope := scopeExclusive
		if req.Shared {
			scope = scopeShared
		}
		l, err = s.lm.createLock(req.Owner, ctx.p, ctx.depth, ctx.timeout, scope)
	}
	if err != nil {
		s.errorHeader(ctx, w, err)
		return
	}

	if !req.Refresh {
		w.Header().Set("Lock-Token", "<opaquelocktoken:"+l.token+">")

		// Now that we have a successful lock, create the resource if it
		// didn't already exist (lock-null resource semantics).
		if _, err := ctx.p.Lookup(); err != nil {
			f, err := ctx.p.Create()
			if err != nil {
				s.lm.unlock(ctx.p.String(), l.token)
				s.errorHeader(ctx, w, err)
				return
			}
			if wf, ok := f.(Writable); ok {
				if fh, err := wf.OpenWrite(true); err == nil {
					fh.Close()
				}
			}
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	} else {
		w.WriteHeader(http.StatusOK)
	}

	a := x.NewAny("DAV::lockdiscovery")
	a.Inner = l.toXML()
	x.SendProp(a, w)
}

// http://www.webdav.org/specs/rfc4918.html#METHOD_UNLOCK
func (s *WebDAV) doUnlock(ctx reqContext, w http.ResponseWriter, r *http.Request) {
	if !s.requireCap(ctx, w, CapWrite) {
		return
	}

	lt := r.Header.Get("Lock-Token")
	lt = strings.TrimPrefix(strings.TrimSuffix(strings.TrimPrefix(lt, "<"), ">"), "opaquelocktoken:")

	if !s.lm.isLocked(ctx.p.String(), lt) {
		s.errorHeader(ctx, w, ErrorLockTokenMismatch)
		return
	}
	s.lm.unlock(ctx.p.String(), lt)
	w.WriteHeader(http.StatusNoContent)
}
