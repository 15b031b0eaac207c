package webdav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarbenhamid/godav/memfs"
)

func testPath(t *testing.T, p string) Path {
	fs := memfs.NewMemFS(nil)
	pp, err := fs.ForPath(p)
	require.NoError(t, err)
	return pp
}

func TestCreateLockRejectsConflictingExclusive(t *testing.T) {
	lm := newLockMaster(nil)
	p := testPath(t, "/a.txt")

	l1, err := lm.createLock("me", p, 0, time.Minute, scopeExclusive)
	require.NoError(t, err)
	assert.NotEmpty(t, l1.token)

	_, err = lm.createLock("you", p, 0, time.Minute, scopeExclusive)
	assert.Equal(t, ErrorLocked, err)
}

func TestCreateLockAllowsStackedSharedLocks(t *testing.T) {
	lm := newLockMaster(nil)
	p := testPath(t, "/a.txt")

	_, err := lm.createLock("me", p, 0, time.Minute, scopeShared)
	require.NoError(t, err)

	_, err = lm.createLock("you", p, 0, time.Minute, scopeShared)
	assert.NoError(t, err)
}

func TestSharedLockConflictsWithExclusive(t *testing.T) {
	lm := newLockMaster(nil)
	p := testPath(t, "/a.txt")

	_, err := lm.createLock("me", p, 0, time.Minute, scopeShared)
	require.NoError(t, err)

	_, err = lm.createLock("you", p, 0, time.Minute, scopeExclusive)
	assert.Equal(t, ErrorLocked, err)
}

func TestUnlockRequiresCoveringToken(t *testing.T) {
	lm := newLockMaster(nil)
	p := testPath(t, "/a.txt")

	l, err := lm.createLock("me", p, 0, time.Minute, scopeExclusive)
	require.NoError(t, err)

	assert.False(t, lm.unlock("/other.txt", l.token))
	assert.True(t, lm.unlock("/a.txt", l.token))
	assert.False(t, lm.isLocked("/a.txt", l.token))
}

func TestDelLocksCascadesBelowPath(t *testing.T) {
	lm := newLockMaster(nil)
	dir := testPath(t, "/d")
	child := testPath(t, "/d/f.txt")

	l, err := lm.createLock("me", child, 0, time.Minute, scopeExclusive)
	require.NoError(t, err)

	lm.delLocks(dir.String())
	assert.False(t, lm.isLocked("/d/f.txt", l.token))
}

func TestClampDuration(t *testing.T) {
	lm := newLockMaster(nil)
	assert.Equal(t, defaultMinLockDuration, lm.clampDuration(time.Second))
	assert.Equal(t, defaultMaxLockDuration, lm.clampDuration(time.Hour))
	assert.Equal(t, 30*time.Second, lm.clampDuration(30*time.Second))
}

func TestClampDurationHonorsCustomBounds(t *testing.T) {
	lm := newLockMaster(nil)
	lm.minDuration = 5 * time.Second
	lm.maxDuration = 10 * time.Second
	assert.Equal(t, 5*time.Second, lm.clampDuration(time.Second))
	assert.Equal(t, 10*time.Second, lm.clampDuration(time.Minute))
}
