// Package device implements the virtual device lifecycle state machine:
// Unbound -> Configured -> Open -> Configured, driven by the three
// control-plane operations SetBasePath, OpenAndCreate, and Close. A Manager
// owns at most one Device at a time, mirroring the source's "at most one
// virtual device exists" invariant without relying on module-level statics
// the way original_source/driver.c does.
package device

import (
	"fmt"
	"strings"
	"sync"

	"blkremap/internal/allocator"
	"blkremap/internal/errs"
	"blkremap/internal/hostio"
	"blkremap/internal/remapper"
	"blkremap/internal/sector"
	"blkremap/internal/skiplist"
)

// MaxPathLen bounds a base-device path, matching original_source/driver.c's
// MAX_PATH_LEN.
const MaxPathLen = 20

// defaultArenaCapacity bounds the number of towers (including the two
// sentinels) a freshly opened device's skiplist can hold before Add starts
// reporting errs.ErrOutOfMemory. It has no counterpart in the kernel
// source, which allocates nodes from the general kernel heap; a bounded
// arena is this implementation's concrete stand-in, per SPEC_FULL.md.
const defaultArenaCapacity = 1 << 20

// defaultClonePoolSize is the number of clone requests pre-allocated per
// opened device.
const defaultClonePoolSize = 256

// State is one of the three lifecycle states from the specification.
type State int

const (
	Unbound State = iota
	Configured
	Open
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Configured:
		return "configured"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Device is the bundle of resources a single open virtual device owns: the
// base handle, the mapping index, the allocator, the clone pool, and the
// remapper wired over the other four.
type Device struct {
	Base     hostio.BlockDevice
	Index    *skiplist.Skiplist
	Alloc    *allocator.Allocator
	Clones   hostio.ClonePool
	Remapper *remapper.Remapper
	Capacity sector.Sector
}

// OpenFunc opens a base device handle by path. Production code passes
// hostio.OpenFileBlockDevice; tests substitute an in-memory constructor.
type OpenFunc func(path string) (hostio.BlockDevice, error)

// Manager serializes control-plane operations against each other (write
// lock) and holds a read lock for the whole of each Submit call, so
// concurrent Submit calls never block on one another the way a plain Mutex
// would force, while a control-plane writer waits for in-flight Submits to
// return. It owns at most one Device, per the specification's concurrency
// model.
type Manager struct {
	mu    sync.RWMutex
	state State

	basePath string
	device   *Device

	open          OpenFunc
	arenaCapacity uint32
	clonePoolSize int
	remapperOpts  []remapper.Option
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*Manager)

// WithOpenFunc overrides how a base device handle is opened; the default
// is hostio.OpenFileBlockDevice.
func WithOpenFunc(fn OpenFunc) ManagerOption {
	return func(m *Manager) { m.open = fn }
}

// WithArenaCapacity overrides the skiplist arena size a newly opened
// device is constructed with.
func WithArenaCapacity(n uint32) ManagerOption {
	return func(m *Manager) { m.arenaCapacity = n }
}

// WithClonePoolSize overrides the clone pool size a newly opened device is
// constructed with.
func WithClonePoolSize(n int) ManagerOption {
	return func(m *Manager) { m.clonePoolSize = n }
}

// WithRemapperOptions passes options through to remapper.New for every
// device this Manager opens.
func WithRemapperOptions(opts ...remapper.Option) ManagerOption {
	return func(m *Manager) { m.remapperOpts = opts }
}

// NewManager returns a Manager in the Unbound state.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		open: func(path string) (hostio.BlockDevice, error) {
			return hostio.OpenFileBlockDevice(path)
		},
		arenaCapacity: defaultArenaCapacity,
		clonePoolSize: defaultClonePoolSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetBasePath stores the base-device path, truncated at the first newline
// (a command-line argument may arrive newline-terminated, same as
// original_source/driver.c's base_path_set). It rejects a path at or past
// MaxPathLen with errs.ErrNameTooLong, and rejects any attempt while a
// device is Open with errs.ErrBusy.
func (m *Manager) SetBasePath(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Open {
		return errs.ErrBusy
	}
	if nl := strings.IndexByte(path, '\n'); nl >= 0 {
		path = path[:nl]
	}
	if len(path) >= MaxPathLen {
		return errs.ErrNameTooLong
	}

	m.basePath = path
	m.state = Configured
	return nil
}

// GetBasePath returns the stored base path. It fails with errs.ErrInvalid
// if none has ever been set.
func (m *Manager) GetBasePath() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == Unbound {
		return "", errs.ErrInvalid
	}
	return m.basePath, nil
}

// OpenAndCreate opens the configured base device, reads its capacity,
// constructs a fresh Device (skiplist, allocator, clone pool, remapper) of
// identical capacity, and publishes it. On any failure the Manager reverts
// to Configured with every partial resource released, matching the
// specification's rollback requirement for openAndCreate.
func (m *Manager) OpenAndCreate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Unbound:
		return errs.ErrInvalid
	case Open:
		return errs.ErrBusy
	}

	base, err := m.open(m.basePath)
	if err != nil {
		return err
	}

	index, err := skiplist.New(m.arenaCapacity, nil)
	if err != nil {
		_ = base.Close()
		return err
	}

	alloc := allocator.New()
	clones := hostio.NewPool(m.clonePoolSize)
	rm := remapper.New(base, index, alloc, clones, m.remapperOpts...)

	m.device = &Device{
		Base:     base,
		Index:    index,
		Alloc:    alloc,
		Clones:   clones,
		Remapper: rm,
		Capacity: base.Capacity(),
	}
	m.state = Open
	return nil
}

// Close tears down the open device: releases the base handle, frees the
// skiplist, and resets the allocator, returning the Manager to Configured
// (the base path itself is not forgotten, so a subsequent OpenAndCreate
// against the same path needs no SetBasePath call -- see DESIGN.md for why
// this differs from a literal reading of the specification's "Open ->
// Unbound" label). It fails with errs.ErrInvalid if no device is open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Open || m.device == nil {
		return errs.ErrInvalid
	}

	d := m.device
	d.Index.Free(nil)
	d.Alloc.Reset()
	if err := d.Base.Close(); err != nil {
		m.device = nil
		m.state = Configured
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	m.device = nil
	m.state = Configured
	return nil
}

// Submit forwards req to the currently open device's remapper. It holds the
// Manager's read lock for the entire call, not just long enough to snapshot
// the current Device: concurrent Submit calls don't block one another (an
// RWMutex's read lock is shared), but a control-plane writer (SetBasePath,
// OpenAndCreate, Close) blocks until every in-flight Submit has returned.
// Without this, a concurrent Close could free the skiplist's arena out from
// under a Submit still running index.Find/index.Add against it.
func (m *Manager) Submit(req *hostio.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d := m.device
	if d == nil {
		req.Completion(errs.ErrInvalid)
		return
	}
	d.Remapper.Submit(req)
}

// State reports the Manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
