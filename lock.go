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
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omarbenhamid/godav/metrics"
	wp "github.com/omarbenhamid/godav/path"
)

// defaultMinLockDuration and defaultMaxLockDuration bound a requested lock
// timeout when the caller hasn't configured its own bounds.
const (
	defaultMinLockDuration = 20 * time.Second
	defaultMaxLockDuration = 5 * time.Minute
)

// lockScope distinguishes exclusive from shared locks, per §3's Lock data
// model. Only "write" is a supported lock type; scope is what varies.
type lockScope int

const (
	scopeExclusive lockScope = iota
	scopeShared
)

type lock struct {
	token    string
	depth    int
	scope    lockScope
	owner    string // verbatim XML
	duration time.Duration
	modified time.Time
	path     string
	m        sync.Mutex
}

func (l *lock) String() string {
	t := l.duration - time.Since(l.modified)
	return fmt.Sprintf("%s@%d T%s D%s", l.path, l.depth, l.token, t)
}

func (l *lock) scopeXML() string {
	if l.scope == scopeShared {
		return "<shared/>"
	}
	return "<exclusive/>"
}

func (l *lock) toXML() string {
	l.m.Lock()
	defer l.m.Unlock()
	ds := strconv.Itoa(l.depth)
	if l.depth < 0 {
		ds = "infinity"
	}

	t := (l.duration - time.Since(l.modified)) / time.Second
	return fmt.Sprintf(`
<activelock>
  <locktype><write/></locktype>
  <lockscope>%s</lockscope>
  <depth>%s</depth>
  <owner>%s</owner>
  <timeout>Second-%d</timeout>
  <locktoken><href>opaquelocktoken:%s</href></locktoken>
  <lockroot><href>%s</href></lockroot>
</activelock>`, l.scopeXML(), ds, l.owner, t, l.token, wp.URLEncode(l.path))
}

func (l *lock) touch() {
	l.m.Lock()
	defer l.m.Unlock()
	l.modified = time.Now()
}

func (l *lock) expired() bool {
	l.m.Lock()
	defer l.m.Unlock()
	return time.Now().After(l.modified.Add(l.duration))
}

// lockmaster is the LockManager: it tracks every live lock and enforces the
// at-most-one-writer invariants of §3 under a single critical section.
// Expiration is lazy — every query first purges any lock it happens to walk
// over whose deadline has passed, per §5 ("the dispatcher MUST NOT rely on
// any timer thread").
type lockmaster struct {
	m       sync.Mutex
	locks   map[string]*lock
	metrics *metrics.Recorder

	minDuration time.Duration
	maxDuration time.Duration
}

func newLockMaster(rec *metrics.Recorder) *lockmaster {
	return &lockmaster{
		locks:       make(map[string]*lock),
		metrics:     rec,
		minDuration: defaultMinLockDuration,
		maxDuration: defaultMaxLockDuration,
	}
}

// purgeExpiredLocked removes expired locks. Caller must hold lm.m.
func (lm *lockmaster) purgeExpiredLocked() {
	for tok, l := range lm.locks {
		if l.expired() {
			delete(lm.locks, tok)
		}
	}
}

func (lm *lockmaster) reportCountLocked() {
	lm.metrics.SetActiveLocks(len(lm.locks))
}

func (lm *lockmaster) getLockForPath(p string) *lock {
	lm.m.Lock()
	defer lm.m.Unlock()
	lm.purgeExpiredLocked()
	for _, l := range lm.locks {
		if _, ok := wp.Included(p, l.path, l.depth); !ok {
			continue
		}
		return l
	}
	return nil
}

// isLocked reports whether the lock identified by t both exists and covers
// path p (directly, or via an ancestor lock of depth infinity).
func (lm *lockmaster) isLocked(p, t string) bool {
	lm.m.Lock()
	defer lm.m.Unlock()
	l := lm.locks[t]
	if l == nil || l.expired() {
		delete(lm.locks, t)
		return false
	}
	_, ok := wp.Included(p, l.path, l.depth)
	return ok
}

func (lm *lockmaster) generateToken() string {
	return uuid.NewString()
}

// unlock releases the lock identified by token if it covers path p (its own
// lock, or an ancestor lock of depth infinity). It reports whether a lock
// was actually removed.
func (lm *lockmaster) unlock(p, t string) bool {
	lm.m.Lock()
	defer lm.m.Unlock()
	l, ok := lm.locks[t]
	if !ok {
		return false
	}
	if _, covers := wp.Included(p, l.path, l.depth); !covers {
		return false
	}
	delete(lm.locks, t)
	lm.reportCountLocked()
	return true
}

// delLocks cascades on DELETE: every lock at or below resource's path is
// removed, per §4.3.
func (lm *lockmaster) delLocks(p string) {
	lm.m.Lock()
	defer lm.m.Unlock()
	for tok, l := range lm.locks {
		if wp.InTree(l.path, p) {
			delete(lm.locks, tok)
		}
	}
	lm.reportCountLocked()
}

func (lm *lockmaster) clampDuration(d time.Duration) time.Duration {
	if d < lm.minDuration {
		return lm.minDuration
	}
	if d > lm.maxDuration {
		return lm.maxDuration
	}
	return d
}

func (lm *lockmaster) refreshLock(tok string, path Path, duration time.Duration) (*lock, error) {
	lm.m.Lock()
	defer lm.m.Unlock()

	p := path.String()
	duration = lm.clampDuration(duration)

	l, ok := lm.locks[tok]
	if !ok {
		return nil, fmt.Errorf("unknown lock: %s", tok)
	}
	if l.expired() {
		delete(lm.locks, l.token)
		lm.reportCountLocked()
		return nil, errors.New("expired lock")
	}
	if _, ok := wp.Included(p, l.path, l.depth); !ok {
		return nil, errors.New("path not within lock")
	}
	l.duration = duration
	l.touch()
	return l, nil
}

// conflicts reports whether a lock of the given scope/depth at path p would
// conflict with an already-held lock l, per the invariants of §3: an
// exclusive lock always conflicts with anything covering the same node;
// shared locks conflict only with an exclusive.
func conflictsWith(l *lock, p string, depth int, scope lockScope) bool {
	_, coversNew := wp.Included(p, l.path, l.depth)
	_, newCoversExisting := wp.Included(l.path, p, depth)
	if !coversNew && !newCoversExisting {
		return false
	}
	return l.scope == scopeExclusive || scope == scopeExclusive
}

// createLock acquires a new lock, returning ErrorLocked (and recording a
// metrics conflict) if any existing non-expired lock conflicts.
func (lm *lockmaster) createLock(owner string, path Path, depth int, duration time.Duration, scope lockScope) (*lock, error) {
	lm.m.Lock()
	defer lm.m.Unlock()

	p := path.String()
	duration = lm.clampDuration(duration)
	lm.purgeExpiredLocked()

	for _, l := range lm.locks {
		if conflictsWith(l, p, depth, scope) {
			lm.metrics.IncLockConflict()
			return nil, ErrorLocked
		}
	}

	l := &lock{
		token:    lm.generateToken(),
		depth:    depth,
		scope:    scope,
		owner:    owner,
		duration: duration,
		modified: time.Now(),
		path:     p,
	}
	lm.locks[l.token] = l
	lm.reportCountLocked()
	return l, nil
}
