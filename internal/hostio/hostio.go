// Package hostio defines the contract the remapper needs from its host I/O
// layer (specification §6, "consumed"): an opened block-device handle, the
// request type flowing through the remapper, a single-shot completion
// signal, and a bounded pool of clone requests. Everything else about how
// requests actually arrive (queueing, dispatch threads, interrupt handling)
// is the host's concern and is out of scope here, same as the kernel's bio
// layer was out of scope for the source this module is modeled on.
package hostio

import "blkremap/internal/sector"

// Op identifies a request's operation. Only Read and Write are supported;
// anything else is rejected by the remapper with errs.ErrUnsupported.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
	// OpOther stands in for every request operation this module doesn't
	// support (discard, flush, write-zeroes, ...), so tests can exercise
	// the rejection path without enumerating every real kernel op.
	OpOther
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "other"
	}
}

// Completion is a single-shot, idempotent-from-the-caller's-side signal.
// The remapper guarantees it invokes a request's Completion exactly once,
// whatever the outcome; err is nil on success.
type Completion func(err error)

// Request is the request type the host I/O layer hands to Submit and the
// type a clone is built from. Payload is shared, not copied, between a
// request and its clone.
type Request struct {
	Op         Op
	VirtSector sector.Sector
	ByteLength uint64
	Payload    []byte
	Completion Completion
}

// Sectors returns the number of sectors this request spans.
func (r *Request) Sectors() uint64 {
	return sector.Count(r.ByteLength)
}

// BlockDevice is an opened handle to a block device: the base device the
// remapper forwards rewritten requests to. Submit may run concurrently from
// many goroutines and must not block on other in-flight Submit calls to
// distinct requests.
type BlockDevice interface {
	// Capacity reports the device's size in sectors.
	Capacity() sector.Sector

	// Submit dispatches req. It must invoke req.Completion exactly once,
	// synchronously or asynchronously, with the outcome of the operation.
	Submit(req *Request)

	// Close releases the device handle.
	Close() error
}

// ClonePool is a bounded pool of clone requests, pre-initialized once (at
// device open, standing in for "module load" in a kernel build) and
// released at device close ("module unload"). Allocation failure from it is
// a transient condition the remapper surfaces as errs.ErrIO on the
// affected request -- it never blocks waiting for a slot.
type ClonePool interface {
	// Get returns a clone carrying req's operation, sector, byte length
	// and payload, ready for the remapper to rewrite the sector on and
	// submit. It returns errs.ErrIO if the pool is exhausted.
	Get(req *Request) (*Request, error)

	// Put returns a clone to the pool. Callers must not use clone after
	// calling Put.
	Put(clone *Request)
}
