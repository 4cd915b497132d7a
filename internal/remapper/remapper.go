// Package remapper implements the per-request state machine: clone the
// incoming request, rewrite its destination sector according to the
// mapping index, forward the clone to the base device, and guarantee the
// original request's completion fires exactly once. This is the "Remapper"
// system component; everything it needs from its surroundings (the index,
// the allocator, the base device, the clone pool) is injected rather than
// owned, so internal/device can wire a fresh one per open virtual device.
package remapper

import (
	"blkremap/internal/allocator"
	"blkremap/internal/errs"
	"blkremap/internal/hostio"
	"blkremap/internal/sector"
	"blkremap/internal/skiplist"
)

// UnmappedReadPolicy governs what happens on a read to a virtual sector the
// index has no mapping for. The specification adopts PassThrough as its
// default behavior but flags the choice as one a deployment might want to
// override; this module makes it a constructor option instead of a single
// hard-coded policy.
type UnmappedReadPolicy int

const (
	// PassThrough reads straight through to the identical physical
	// sector on the base device. This is the default.
	PassThrough UnmappedReadPolicy = iota
	// FailUnmapped completes the request with errs.ErrInvalid instead of
	// forwarding it.
	FailUnmapped
)

// Tracer receives a one-line audit event per submitted request. It is
// optional, off by default, and purely observational: a nil Tracer
// disables tracing entirely, and enabling one changes no data-plane
// behavior.
type Tracer func(op hostio.Op, virt, newSector sector.Sector, err error)

// Remapper is stateless beyond its injected collaborators: every method
// call's context lives in the index and the allocator, not in the
// Remapper value itself, matching the specification's "State per request:
// none beyond the clone and its completion linkage."
type Remapper struct {
	base   hostio.BlockDevice
	index  *skiplist.Skiplist
	alloc  *allocator.Allocator
	clones hostio.ClonePool
	policy UnmappedReadPolicy
	trace  Tracer
}

// Option configures a Remapper at construction.
type Option func(*Remapper)

// WithUnmappedReadPolicy overrides the default PassThrough policy.
func WithUnmappedReadPolicy(p UnmappedReadPolicy) Option {
	return func(r *Remapper) { r.policy = p }
}

// WithTracer attaches an audit tracer, invoked once per Submit after the
// original request's completion has fired (from the clone's completion, or
// directly on a pre-forward failure).
func WithTracer(t Tracer) Option {
	return func(r *Remapper) { r.trace = t }
}

// New constructs a Remapper forwarding rewritten requests to base, backed
// by index for lookups/insertions and alloc for physical-sector issuance,
// borrowing clones from clones.
func New(base hostio.BlockDevice, index *skiplist.Skiplist, alloc *allocator.Allocator, clones hostio.ClonePool, opts ...Option) *Remapper {
	r := &Remapper{
		base:   base,
		index:  index,
		alloc:  alloc,
		clones: clones,
		policy: PassThrough,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit performs the per-request algorithm described in this package's
// doc comment. It never blocks on another in-flight Submit to a distinct
// request, and it always invokes req.Completion exactly once, whether
// synchronously (on a pre-forward failure) or after the forwarded clone
// completes.
func (r *Remapper) Submit(req *hostio.Request) {
	clone, err := r.clones.Get(req)
	if err != nil {
		r.complete(req, req.VirtSector, err)
		return
	}

	var newSector sector.Sector
	switch req.Op {
	case hostio.OpRead:
		newSector, err = r.rewriteRead(req)
	case hostio.OpWrite:
		newSector, err = r.rewriteWrite(req)
	default:
		r.clones.Put(clone)
		r.complete(req, req.VirtSector, errs.ErrUnsupported)
		return
	}
	if err != nil {
		r.clones.Put(clone)
		r.complete(req, req.VirtSector, err)
		return
	}

	clone.VirtSector = newSector
	clone.Completion = func(err error) {
		req.Completion(err)
		r.clones.Put(clone)
		r.traceEvent(req.Op, req.VirtSector, newSector, err)
	}
	r.base.Submit(clone)
}

// rewriteRead resolves a read's destination sector: the mapped physical
// sector if one exists, otherwise the policy-driven fallback.
func (r *Remapper) rewriteRead(req *hostio.Request) (sector.Sector, error) {
	if phys, ok := r.index.Find(req.VirtSector); ok {
		return phys, nil
	}
	switch r.policy {
	case FailUnmapped:
		return 0, errs.ErrInvalid
	default:
		return req.VirtSector, nil
	}
}

// rewriteWrite resolves a write's destination sector, allocating a fresh
// physical sector on first write and reusing the existing one on a repeat
// write, advancing the allocator atomically with the insertion.
func (r *Remapper) rewriteWrite(req *hostio.Request) (sector.Sector, error) {
	size := req.Sectors()
	phys, _, err := r.index.Add(req.VirtSector,
		func() sector.Sector { return r.alloc.Peek() },
		func(sector.Sector) { r.alloc.Advance(size) },
	)
	if err != nil {
		return 0, err
	}
	return phys, nil
}

// complete signals req's completion directly, for the pre-forward failure
// paths where no clone was ever submitted to the base device.
func (r *Remapper) complete(req *hostio.Request, virt sector.Sector, err error) {
	req.Completion(err)
	r.traceEvent(req.Op, virt, virt, err)
}

func (r *Remapper) traceEvent(op hostio.Op, virt, newSector sector.Sector, err error) {
	if r.trace != nil {
		r.trace(op, virt, newSector, err)
	}
}
