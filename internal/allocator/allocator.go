// Package allocator implements the system's monotonic physical-sector
// cursor: the trivial "Allocator" component from the specification. Its
// discipline, not its arithmetic, is what matters -- next_free advances by
// exactly the request's sector count on a first write, and never on a
// repeat write, and that advance must happen in the same critical section
// as the mapping insertion it corresponds to (see internal/skiplist's
// Add/onInsert hook and internal/remapper, which wires the two together).
package allocator

import (
	"github.com/RoaringBitmap/roaring"

	"blkremap/internal/sector"
)

// Allocator hands out monotonically increasing physical sectors. It holds
// no lock of its own: Peek and Advance are only ever called from within the
// mapping index's write-locked critical section (by internal/remapper), and
// Reset only under internal/device's lifecycle write lock, so adding a
// second lock here would just be redundant bookkeeping over the same
// invariant.
type Allocator struct {
	nextFree sector.Sector

	// committed is an audit index, always maintained: the set of physical
	// sectors that have actually been handed out. It never gates an
	// allocation decision -- Peek/Advance behave identically whether or not
	// a caller ever inspects it -- it exists purely so tests can assert
	// "every phys below next_free was issued exactly once, with no overlap"
	// without re-deriving that from the skiplist.
	committed *roaring.Bitmap
}

// New returns an allocator with next_free initialized to 0, matching the
// state a freshly opened device starts in.
func New() *Allocator {
	return &Allocator{committed: roaring.New()}
}

// Peek returns the next candidate physical sector without consuming it. The
// caller (the remapper, via skiplist.Add's candidate hook) must call Peek
// and a matching Advance within the same write-locked section, or two
// concurrent first writes could observe the same candidate.
func (a *Allocator) Peek() sector.Sector {
	return a.nextFree
}

// Advance commits size sectors starting at the value last returned by Peek,
// recording them in the committed-sector audit index and moving next_free
// past them. It must be called at most once per Peek, and only when the
// corresponding insertion actually proceeded (skiplist's inserted=true
// branch) -- a repeat write must never call Advance.
func (a *Allocator) Advance(size uint64) {
	a.committed.AddRange(a.nextFree, a.nextFree+size)
	a.nextFree += sector.Sector(size)
}

// Reset returns the allocator to its just-opened state: next_free=0 and an
// empty committed-sector index. Called on device close.
func (a *Allocator) Reset() {
	a.nextFree = 0
	a.committed = roaring.New()
}

// Committed reports the set of physical sectors issued so far, for
// introspection and tests. The returned bitmap is a clone: callers may not
// observe or mutate the allocator's internal state through it.
func (a *Allocator) Committed() *roaring.Bitmap {
	return a.committed.Clone()
}
