package bufferpool

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/kleefisch/pagepool/src/bpderr"
	"gitlab.com/kleefisch/pagepool/src/pagefile"
)

// dbFile creates a fresh page file with n pages and returns its path.
func dbFile(t *testing.T, n int) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "test.page")
	require.NoError(t, pagefile.Create(name))
	pf, err := pagefile.Open(name)
	require.NoError(t, err)
	require.NoError(t, pf.EnsureCapacity(n))
	require.NoError(t, pf.Close())
	return name
}

// S1 - FIFO victim order.
func TestFIFOVictimOrder(t *testing.T) {
	name := dbFile(t, 4)
	bp, err := Init(name, 3, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	for pid := 0; pid < 3; pid++ {
		h, err := bp.Pin(pid)
		require.NoError(t, err)
		require.NoError(t, bp.Unpin(h))
	}
	h, err := bp.Pin(3)
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(h))

	assert.Equal(t, []pagefile.PageID{3, 1, 2}, bp.FrameContents())
}

// S2 - LRU touches on hit.
func TestLRUTouchOnHit(t *testing.T) {
	name := dbFile(t, 4)
	bp, err := Init(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	for pid := 0; pid < 3; pid++ {
		h, err := bp.Pin(pid)
		require.NoError(t, err)
		require.NoError(t, bp.Unpin(h))
	}
	h, err := bp.Pin(0) // hit, touches page 0 to MRU
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(h))

	h, err = bp.Pin(3)
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(h))

	contents := bp.FrameContents()
	assert.ElementsMatch(t, []pagefile.PageID{0, 2, 3}, contents)
	assert.NotContains(t, contents, pagefile.PageID(1))
}

// S3 - dirty write-back counting.
func TestDirtyWriteBackCounting(t *testing.T) {
	name := dbFile(t, 2)
	bp, err := Init(name, 1, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	h, err := bp.Pin(0)
	require.NoError(t, err)
	require.NoError(t, bp.MarkDirty(h))
	pattern := make([]byte, pagefile.PageSize)
	for i := range pattern {
		pattern[i] = byte(i)
	}
	copy(h.Bytes(), pattern)
	require.NoError(t, bp.Unpin(h))

	h2, err := bp.Pin(1) // forces eviction of page 0
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(h2))

	assert.EqualValues(t, 1, bp.NumWriteIO())
	assert.EqualValues(t, 2, bp.NumReadIO())

	pf, err := pagefile.Open(name)
	require.NoError(t, err)
	defer pf.Close()
	buf := make([]byte, pagefile.PageSize)
	require.NoError(t, pf.ReadPage(0, buf))
	assert.Equal(t, pattern, buf)
}

// S4 - pin of out-of-range page grows the file.
func TestPinOutOfRangeGrowsFile(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 4, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	h, err := bp.Pin(5)
	require.NoError(t, err)
	defer bp.Unpin(h)

	assert.EqualValues(t, 1, bp.NumReadIO())
	assert.EqualValues(t, 0, bp.NumWriteIO())
	assert.Equal(t, make([]byte, pagefile.PageSize), h.Bytes())
}

// S5 - all pinned.
func TestPinAllPinnedFails(t *testing.T) {
	name := dbFile(t, 4)
	bp, err := Init(name, 2, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	h0, err := bp.Pin(0)
	require.NoError(t, err)
	h1, err := bp.Pin(1)
	require.NoError(t, err)

	before := bp.FrameContents()
	_, err = bp.Pin(2)
	assert.True(t, errors.Is(err, bpderr.ErrReadNonExistingPage))
	assert.Equal(t, before, bp.FrameContents())

	require.NoError(t, bp.Unpin(h0))
	require.NoError(t, bp.Unpin(h1))
}

// S6 - force flush clears dirty, shutdown performs no additional writes.
func TestForceFlushThenShutdownDoesNoExtraWrites(t *testing.T) {
	name := dbFile(t, 2)
	bp, err := Init(name, 2, LRU, nil)
	require.NoError(t, err)

	h, err := bp.Pin(0)
	require.NoError(t, err)
	require.NoError(t, bp.MarkDirty(h))
	require.NoError(t, bp.Unpin(h))

	require.NoError(t, bp.ForceFlush())
	for _, d := range bp.DirtyFlags() {
		assert.False(t, d)
	}
	assert.EqualValues(t, 1, bp.NumWriteIO())

	require.NoError(t, bp.Shutdown())
	assert.EqualValues(t, 1, bp.NumWriteIO())
}

func TestUnpinNonResidentPageFails(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 1, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	fake := &PageHandle{pageID: 9}
	err = bp.Unpin(fake)
	assert.True(t, errors.Is(err, bpderr.ErrReadNonExistingPage))
}

func TestUnpinAlreadyUnpinnedFails(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 1, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	h, err := bp.Pin(0)
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(h))
	err = bp.Unpin(h)
	assert.True(t, errors.Is(err, bpderr.ErrReadNonExistingPage))
}

func TestPinSameWitnessedTwiceIncrementsPinCount(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 1, FIFO, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	h1, err := bp.Pin(0)
	require.NoError(t, err)
	h2, err := bp.Pin(0)
	require.NoError(t, err)

	assert.Equal(t, []uint32{2}, bp.FixCounts())
	require.NoError(t, bp.Unpin(h1))
	require.NoError(t, bp.Unpin(h2))
}

func TestReservedStrategyNotImplemented(t *testing.T) {
	name := dbFile(t, 1)
	_, err := Init(name, 1, CLOCK, nil)
	assert.True(t, errors.Is(err, bpderr.ErrNotImplemented))
}

func TestInitRejectsZeroCapacity(t *testing.T) {
	name := dbFile(t, 1)
	_, err := Init(name, 0, FIFO, nil)
	assert.Error(t, err)
}

func TestInitPropagatesFileNotFound(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing.page"), 1, FIFO, nil)
	assert.True(t, errors.Is(err, bpderr.ErrFileNotFound))
}

func TestRoundTripAfterUnpin(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 1, LRU, nil)
	require.NoError(t, err)
	defer bp.Shutdown()

	h, err := bp.Pin(0)
	require.NoError(t, err)
	copy(h.Bytes(), []byte("hello"))
	require.NoError(t, bp.MarkDirty(h))
	require.NoError(t, bp.Unpin(h))

	h2, err := bp.Pin(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(h2.Bytes()[:5]))
	require.NoError(t, bp.Unpin(h2))
}

func TestShutdownFlushesPinnedDirtyFrames(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 1, FIFO, nil)
	require.NoError(t, err)

	h, err := bp.Pin(0)
	require.NoError(t, err)
	copy(h.Bytes(), []byte("pinned-dirty"))
	require.NoError(t, bp.MarkDirty(h))
	// deliberately not unpinned before shutdown

	require.NoError(t, bp.Shutdown())

	pf, err := pagefile.Open(name)
	require.NoError(t, err)
	defer pf.Close()
	buf := make([]byte, pagefile.PageSize)
	require.NoError(t, pf.ReadPage(0, buf))
	assert.Equal(t, "pinned-dirty", string(buf[:len("pinned-dirty")]))
}

func TestShutdownTwiceFails(t *testing.T) {
	name := dbFile(t, 1)
	bp, err := Init(name, 1, FIFO, nil)
	require.NoError(t, err)
	require.NoError(t, bp.Shutdown())
	err = bp.Shutdown()
	assert.True(t, errors.Is(err, bpderr.ErrFileHandleNotInit))
}
