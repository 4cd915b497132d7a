package hostio

import (
	"sync"

	"blkremap/internal/errs"
	"blkremap/internal/sector"
)

// MemDevice is an in-memory BlockDevice: a flat byte buffer addressed by
// sector, with no persistence. It exists for tests that need a real
// BlockDevice without a backing file, and it's what the remapper, device
// and control tests (including the S1-S6 style end-to-end checks) are built
// on instead of exercising an actual filesystem.
type MemDevice struct {
	mu   sync.Mutex
	data []byte
}

// NewMemDevice returns a device of the given sector capacity, zero-filled.
func NewMemDevice(capacity sector.Sector) *MemDevice {
	return &MemDevice{data: make([]byte, capacity*sector.Size)}
}

func (d *MemDevice) Capacity() sector.Sector {
	return sector.Sector(len(d.data)) / sector.Size
}

// Submit performs the read or write synchronously against the in-memory
// buffer and invokes req.Completion exactly once before returning.
func (d *MemDevice) Submit(req *Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	offset := req.VirtSector * sector.Size
	end := offset + req.ByteLength
	if end > uint64(len(d.data)) {
		req.Completion(errs.ErrIO)
		return
	}

	switch req.Op {
	case OpRead:
		copy(req.Payload, d.data[offset:end])
	case OpWrite:
		copy(d.data[offset:end], req.Payload)
	default:
		req.Completion(errs.ErrUnsupported)
		return
	}
	req.Completion(nil)
}

func (d *MemDevice) Close() error {
	return nil
}
