package bufferpool

import "gitlab.com/kleefisch/pagepool/src/bpderr"

// ReplacementStrategy selects the victim-selection policy a BufferPool uses.
// LRUK, CLOCK and LFU are reserved identifiers per the specification; Init
// rejects them with bpderr.ErrNotImplemented rather than silently falling
// back to FIFO or LRU.
type ReplacementStrategy int

const (
	FIFO ReplacementStrategy = iota
	LRU
	LRUK
	CLOCK
	LFU
)

func (s ReplacementStrategy) String() string {
	switch s {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	case LRUK:
		return "LRUK"
	case CLOCK:
		return "CLOCK"
	case LFU:
		return "LFU"
	default:
		return "UNKNOWN"
	}
}

// replacer is the pluggable victim-selection hook, playing the role the
// teacher's Evictor interface played: a strategy object handed frame-table
// state and asked to pick a victim, kept separate from the pool's pinning
// logic. Unlike the teacher's Evictor, a replacer also owns the bookkeeping
// for when a frame is loaded, hit, or evicted, since FIFO and LRU keep that
// bookkeeping in different data structures.
type replacer interface {
	// onLoad runs when frameIdx is freshly loaded with a page.
	onLoad(frameIdx int)
	// onHit runs when frameIdx is pinned again while already resident.
	onHit(frameIdx int)
	// onEvict runs after frameIdx has been chosen as a victim and its
	// slot is about to be reused or emptied.
	onEvict(frameIdx int)
	// victim selects an eviction candidate among frames for which pinned
	// returns false. ok is false if every tracked frame is pinned.
	victim(pinned func(frameIdx int) bool) (frameIdx int, ok bool)
}

func newReplacer(strategy ReplacementStrategy, capacity int) (replacer, error) {
	switch strategy {
	case FIFO:
		return &fifoReplacer{q: newFIFOQueue(capacity)}, nil
	case LRU:
		return &lruReplacer{order: NewUniqueStack[int]()}, nil
	default:
		return nil, bpderr.New("init replacement strategy "+strategy.String(), bpderr.NotImplemented, nil)
	}
}

// fifoReplacer evicts the oldest loaded, unpinned frame. Pins and unpins
// never reorder it.
type fifoReplacer struct {
	q *fifoQueue
}

func (r *fifoReplacer) onLoad(frameIdx int)  { r.q.Enqueue(frameIdx) }
func (r *fifoReplacer) onHit(frameIdx int)   {}
func (r *fifoReplacer) onEvict(frameIdx int) { r.q.Remove(frameIdx) }

func (r *fifoReplacer) victim(pinned func(int) bool) (int, bool) {
	return r.q.Victim(pinned)
}

// lruReplacer evicts the least recently touched, unpinned frame. Both a
// fresh load and a hit move the frame to the most-recently-used end of a
// UniqueStack of frame indices; a re-touch is a linear-time reprioritization
// (remove from the current position, append at the top).
type lruReplacer struct {
	order *UniqueStack[int]
}

func (r *lruReplacer) onLoad(frameIdx int) { r.order.Push(frameIdx) }
func (r *lruReplacer) onHit(frameIdx int)  { r.order.Push(frameIdx) }
func (r *lruReplacer) onEvict(frameIdx int) {
	_ = r.order.Delete(frameIdx)
}

func (r *lruReplacer) victim(pinned func(int) bool) (int, bool) {
	candidates := r.order.OrderedRead() // bottom (LRU) to top (MRU)
	for _, idx := range candidates {
		if !pinned(idx) {
			return idx, true
		}
	}
	return 0, false
}
