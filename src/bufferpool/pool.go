// Package bufferpool is the Buffer Manager: it caches a fixed number of
// pages from one open pagefile.PageFile in memory, pins them against
// concurrent eviction while in use, and writes dirty pages back under FIFO
// or LRU replacement.
//
// A BufferPool is specified as single-threaded: callers provide their own
// exclusive access, or rely on the pool-wide mutex below to make individual
// calls safe to issue from multiple goroutines. Either way, victim selection
// reads global replacement state, so locking is never finer than the whole
// frame table.
package bufferpool

import (
	"fmt"
	"log"
	"sync"

	"gitlab.com/kleefisch/pagepool/src/bpderr"
	"gitlab.com/kleefisch/pagepool/src/pagefile"
)

// frame is one buffer slot. A frame with pageID == pagefile.NoPage is empty
// and therefore has dirty == false and pinCount == 0.
type frame struct {
	pageID   pagefile.PageID
	data     [pagefile.PageSize]byte
	dirty    bool
	pinCount uint32
}

// PageHandle is a bounded, non-owning view onto a pinned frame's payload. It
// is an acquisition token: valid only while its page remains pinned in the
// pool that returned it, and consumed by Unpin/MarkDirty/ForcePage.
type PageHandle struct {
	pageID pagefile.PageID
	data   *[pagefile.PageSize]byte
}

// PageID reports which page this handle refers to.
func (h *PageHandle) PageID() pagefile.PageID { return h.pageID }

// Bytes returns a mutable view of the page's PageSize-byte payload. The view
// is valid only as long as the page remains pinned.
func (h *PageHandle) Bytes() []byte { return h.data[:] }

// BufferPool is a fixed-size cache of pages backed by one open PageFile.
type BufferPool struct {
	mu       sync.Mutex
	file     *pagefile.PageFile
	fileName string
	capacity int
	strategy ReplacementStrategy
	frames   []*frame
	index    map[pagefile.PageID]int
	repl     replacer
	readIO   uint64
	writeIO  uint64
	closed   bool
}

// Init opens fileName and allocates capacity empty frames managed under
// strategy. strategyData is reserved for LRU-K-style tuning parameters and
// is currently ignored. Fails with bpderr.ErrFileNotFound if fileName
// doesn't exist, or bpderr.ErrNotImplemented for a reserved-but-unsupported
// strategy.
func Init(fileName string, capacity int, strategy ReplacementStrategy, strategyData any) (*BufferPool, error) {
	_ = strategyData

	if capacity < 1 {
		return nil, bpderr.New("init buffer pool", bpderr.FileHandleNotInit,
			fmt.Errorf("capacity must be >= 1, got %d", capacity))
	}

	file, err := pagefile.Open(fileName)
	if err != nil {
		return nil, err
	}

	repl, err := newReplacer(strategy, capacity)
	if err != nil {
		file.Close()
		return nil, err
	}

	frames := make([]*frame, capacity)
	for i := range frames {
		frames[i] = &frame{pageID: pagefile.NoPage}
	}

	return &BufferPool{
		file:     file,
		fileName: fileName,
		capacity: capacity,
		strategy: strategy,
		frames:   frames,
		index:    make(map[pagefile.PageID]int, capacity),
		repl:     repl,
	}, nil
}

// Shutdown flushes every dirty frame, closes the backing file, and
// invalidates the pool. Frames that are still pinned and dirty are flushed
// too rather than silently dropped - a caller that shuts down with pins
// outstanding has a bug, but losing their writes would be worse - and one
// warning is logged per such frame.
func (bp *BufferPool) Shutdown() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return bpderr.New("shutdown", bpderr.FileHandleNotInit, nil)
	}

	for _, f := range bp.frames {
		if f.pageID == pagefile.NoPage || !f.dirty {
			continue
		}
		if f.pinCount > 0 {
			log.Printf("bufferpool: shutdown flushing page %d while still pinned (pinCount=%d)", f.pageID, f.pinCount)
		}
		if err := bp.file.WritePage(f.pageID, f.data[:]); err != nil {
			return err
		}
		bp.writeIO++
		f.dirty = false
	}

	err := bp.file.Close()
	bp.closed = true
	bp.frames = nil
	bp.index = nil
	return err
}

// ForceFlush writes back every dirty, unpinned frame and clears its dirty
// bit. Pinned dirty frames are left alone; after ForceFlush returns OK every
// frame satisfies dirty==false || pinCount>0.
func (bp *BufferPool) ForceFlush() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return bpderr.New("force flush", bpderr.FileHandleNotInit, nil)
	}
	for _, f := range bp.frames {
		if f.pageID == pagefile.NoPage || !f.dirty || f.pinCount > 0 {
			continue
		}
		if err := bp.file.WritePage(f.pageID, f.data[:]); err != nil {
			return err
		}
		bp.writeIO++
		f.dirty = false
	}
	return nil
}

// Pin makes pid resident (loading it if necessary, evicting a victim if the
// pool is full) and increments its pin count. The returned PageHandle is
// valid until Unpin.
func (bp *BufferPool) Pin(pid pagefile.PageID) (*PageHandle, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil, bpderr.New("pin page", bpderr.FileHandleNotInit, nil)
	}
	if pid < 0 {
		return nil, bpderr.New(fmt.Sprintf("pin page %d", pid), bpderr.ReadNonExistingPage, nil)
	}

	// 1. Hit.
	if idx, ok := bp.index[pid]; ok {
		f := bp.frames[idx]
		f.pinCount++
		bp.repl.onHit(idx)
		return &PageHandle{pageID: pid, data: &f.data}, nil
	}

	// 2. Free slot, lowest index first.
	targetIdx := -1
	for i, f := range bp.frames {
		if f.pageID == pagefile.NoPage {
			targetIdx = i
			break
		}
	}

	// 3. Victim.
	if targetIdx == -1 {
		victimIdx, ok := bp.repl.victim(func(i int) bool { return bp.frames[i].pinCount > 0 })
		if !ok {
			return nil, bpderr.New(fmt.Sprintf("pin page %d", pid), bpderr.ReadNonExistingPage,
				fmt.Errorf("no unpinned frame available to evict"))
		}
		victim := bp.frames[victimIdx]
		if victim.dirty {
			if err := bp.file.WritePage(victim.pageID, victim.data[:]); err != nil {
				return nil, err
			}
			bp.writeIO++
			victim.dirty = false
		}
		delete(bp.index, victim.pageID)
		bp.repl.onEvict(victimIdx)
		victim.pageID = pagefile.NoPage
		targetIdx = victimIdx
	}

	// 4. Grow the backing file if pid is beyond its current end.
	if pid >= bp.file.TotalPages() {
		if err := bp.file.EnsureCapacity(pid + 1); err != nil {
			return nil, err
		}
	}

	// 5. Load.
	f := bp.frames[targetIdx]
	if err := bp.file.ReadPage(pid, f.data[:]); err != nil {
		// f.pageID is still NoPage: the frame is left empty, not half-loaded.
		return nil, err
	}
	bp.readIO++
	f.pageID = pid
	f.dirty = false
	f.pinCount = 1

	// 6. Record residency.
	bp.index[pid] = targetIdx
	bp.repl.onLoad(targetIdx)

	return &PageHandle{pageID: pid, data: &f.data}, nil
}

// Unpin decrements h's pin count. Fails with bpderr.ErrReadNonExistingPage
// if the page isn't resident or already has a zero pin count.
func (bp *BufferPool) Unpin(h *PageHandle) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	f, err := bp.resolveLocked("unpin", h)
	if err != nil {
		return err
	}
	if f.pinCount == 0 {
		return bpderr.New(fmt.Sprintf("unpin page %d", h.pageID), bpderr.ReadNonExistingPage,
			fmt.Errorf("page is not pinned"))
	}
	f.pinCount--
	return nil
}

// MarkDirty flags h's page as owing a write to disk.
func (bp *BufferPool) MarkDirty(h *PageHandle) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	f, err := bp.resolveLocked("mark dirty", h)
	if err != nil {
		return err
	}
	f.dirty = true
	return nil
}

// ForcePage writes h's page to disk immediately and clears its dirty bit,
// regardless of whether ForceFlush would otherwise skip it for being pinned.
func (bp *BufferPool) ForcePage(h *PageHandle) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	f, err := bp.resolveLocked("force page", h)
	if err != nil {
		return err
	}
	if err := bp.file.WritePage(f.pageID, f.data[:]); err != nil {
		return err
	}
	bp.writeIO++
	f.dirty = false
	return nil
}

func (bp *BufferPool) resolveLocked(op string, h *PageHandle) (*frame, error) {
	if bp.closed {
		return nil, bpderr.New(op, bpderr.FileHandleNotInit, nil)
	}
	idx, ok := bp.index[h.pageID]
	if !ok {
		return nil, bpderr.New(fmt.Sprintf("%s page %d", op, h.pageID), bpderr.ReadNonExistingPage, nil)
	}
	return bp.frames[idx], nil
}

// FrameContents reports the resident page id of each frame, in frame index
// order; empty slots report pagefile.NoPage.
func (bp *BufferPool) FrameContents() []pagefile.PageID {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	out := make([]pagefile.PageID, len(bp.frames))
	for i, f := range bp.frames {
		out[i] = f.pageID
	}
	return out
}

// DirtyFlags reports each frame's dirty bit, in frame index order.
func (bp *BufferPool) DirtyFlags() []bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	out := make([]bool, len(bp.frames))
	for i, f := range bp.frames {
		out[i] = f.dirty
	}
	return out
}

// FixCounts reports each frame's pin count, in frame index order.
func (bp *BufferPool) FixCounts() []uint32 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	out := make([]uint32, len(bp.frames))
	for i, f := range bp.frames {
		out[i] = f.pinCount
	}
	return out
}

// NumReadIO reports the count of successful page loads from disk since Init.
func (bp *BufferPool) NumReadIO() uint64 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.readIO
}

// NumWriteIO reports the count of successful page writes to disk since Init.
func (bp *BufferPool) NumWriteIO() uint64 {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.writeIO
}
