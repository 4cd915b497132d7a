// Package audit implements a bounded, in-memory ring buffer of
// control-plane events (setBasePath, openAndCreate, close, and their
// outcomes), for operational introspection only -- never on the data I/O
// path and never a durability mechanism. Each entry is snappy-compressed
// on arrival, following the internal/compression package's
// snappy.Encode/snappy.Decode usage from the rockyardkv storage engine in
// this corpus.
package audit

import (
	"sync"

	"github.com/golang/snappy"
)

// Entry is one recorded event, decompressed for a caller's inspection.
type Entry struct {
	Seq     uint64
	Message string
}

// Buffer is a fixed-capacity ring of compressed entries. The zero value is
// not usable; construct with NewBuffer.
type Buffer struct {
	mu       sync.Mutex
	entries  [][]byte
	seqs     []uint64
	capacity int
	next     int
	size     int
	seq      uint64
}

// NewBuffer returns an empty ring buffer holding at most capacity entries.
// Once full, recording a new entry silently evicts the oldest.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		entries:  make([][]byte, capacity),
		seqs:     make([]uint64, capacity),
		capacity: capacity,
	}
}

// Record compresses and appends message, evicting the oldest entry if the
// buffer is full.
func (b *Buffer) Record(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = snappy.Encode(nil, []byte(message))
	b.seqs[b.next] = b.seq
	b.seq++
	b.next = (b.next + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Entries returns every currently retained entry, oldest first, with its
// message decompressed.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, 0, b.size)
	start := b.next
	if b.size < b.capacity {
		start = 0
	}
	for i := 0; i < b.size; i++ {
		idx := (start + i) % b.capacity
		msg, err := snappy.Decode(nil, b.entries[idx])
		if err != nil {
			continue
		}
		out = append(out, Entry{Seq: b.seqs[idx], Message: string(msg)})
	}
	return out
}

// Len reports the number of entries currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}
