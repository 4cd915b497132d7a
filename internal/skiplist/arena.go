package skiplist

import "blkremap/internal/errs"

// role identifies a tower's position in the structure structurally, rather
// than by the value it carries. A prior revision of the system this package
// is modeled on used a node's data value to recognize the head sentinel --
// a fragile identity check that conflates data with role. We tag every
// tower explicitly instead.
type role uint8

const (
	roleReal role = iota
	roleLeftSentinel
	roleRightSentinel
)

// nilTower marks an unused forward slot. Index 0 is a valid tower (the left
// sentinel occupies it), so we can't reuse 0 as a nil marker the way a
// byte-offset arena reserves offset 0; -1 is unambiguous instead.
const nilTower int32 = -1

// tower is a single arena record representing every level of one key's
// tower. A source implementation built from per-level nodes linked by a
// "lower" pointer needs a stack-based teardown to visit each level of each
// tower without revisiting nodes; packing every level of a tower into one
// record with a forward-index array collapses that into a single pass over
// level 0 (see Skiplist.Free), since level 0 already holds every tower.
type tower struct {
	key    uint64
	phys   uint64
	role   role
	height uint8 // top populated level; next[0..height] are meaningful
	next   [maxHeight + 1]int32
}

// arena is a capacity-bounded pool of tower records. Exhaustion is this
// package's concrete ErrOutOfMemory: a small capacity lets tests trigger and
// verify the failure path deterministically, the way a counting allocator
// would in the source this models (see design note in skiplist.go).
type arena struct {
	towers []tower
	len    int32
}

func newArena(capacity uint32) *arena {
	return &arena{towers: make([]tower, capacity)}
}

// allocate reserves the next free slot and returns its index. It never
// mutates any previously allocated slot, so a failed allocate leaves the
// arena (and therefore the skiplist) unchanged.
func (a *arena) allocate() (int32, error) {
	if a.len >= int32(len(a.towers)) {
		return nilTower, errs.ErrOutOfMemory
	}
	idx := a.len
	a.len++
	return idx, nil
}

func (a *arena) get(idx int32) *tower {
	return &a.towers[idx]
}

// cap and size report the arena's capacity and current occupancy, in
// towers. Used by tests and by introspection callers.
func (a *arena) cap() int  { return len(a.towers) }
func (a *arena) size() int { return int(a.len) }
