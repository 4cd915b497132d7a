package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"blkremap/internal/errs"
	"blkremap/internal/hostio"
	"blkremap/internal/sector"
)

func memOpen(capacity sector.Sector) OpenFunc {
	return func(path string) (hostio.BlockDevice, error) {
		return hostio.NewMemDevice(capacity), nil
	}
}

func newTestManager(capacity sector.Sector) *Manager {
	return NewManager(
		WithOpenFunc(memOpen(capacity)),
		WithArenaCapacity(64),
		WithClonePoolSize(8),
	)
}

func TestInitialStateIsUnbound(t *testing.T) {
	m := newTestManager(1024)
	require.Equal(t, Unbound, m.State())

	_, err := m.GetBasePath()
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestSetBasePathMovesToConfigured(t *testing.T) {
	m := newTestManager(1024)

	require.NoError(t, m.SetBasePath("/dev/loop0"))
	require.Equal(t, Configured, m.State())

	path, err := m.GetBasePath()
	require.NoError(t, err)
	require.Equal(t, "/dev/loop0", path)
}

func TestSetBasePathTrimsAtFirstNewline(t *testing.T) {
	m := newTestManager(1024)

	require.NoError(t, m.SetBasePath("/dev/loop0\ngarbage"))
	path, _ := m.GetBasePath()
	require.Equal(t, "/dev/loop0", path)
}

func TestSetBasePathRejectsOverlongPath(t *testing.T) {
	m := newTestManager(1024)

	long := strings.Repeat("a", MaxPathLen)
	err := m.SetBasePath(long)
	require.ErrorIs(t, err, errs.ErrNameTooLong)
}

func TestSetBasePathRejectedWhileOpen(t *testing.T) {
	m := newTestManager(1024)
	require.NoError(t, m.SetBasePath("/dev/loop0"))
	require.NoError(t, m.OpenAndCreate())

	err := m.SetBasePath("/dev/loop1")
	require.ErrorIs(t, err, errs.ErrBusy)
}

func TestOpenAndCreateRejectsWithNoBasePath(t *testing.T) {
	m := newTestManager(1024)
	err := m.OpenAndCreate()
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestOpenAndCreateRejectsWhenAlreadyOpen(t *testing.T) {
	m := newTestManager(1024)
	require.NoError(t, m.SetBasePath("/dev/loop0"))
	require.NoError(t, m.OpenAndCreate())

	err := m.OpenAndCreate()
	require.ErrorIs(t, err, errs.ErrBusy)
	require.Equal(t, Open, m.State())
}

func TestOpenAndCreatePublishesWorkingDevice(t *testing.T) {
	m := newTestManager(2048)
	require.NoError(t, m.SetBasePath("/dev/loop0"))
	require.NoError(t, m.OpenAndCreate())
	require.Equal(t, Open, m.State())

	var gotErr error
	req := &hostio.Request{
		Op:         hostio.OpWrite,
		VirtSector: 100,
		ByteLength: 512,
		Payload:    make([]byte, 512),
		Completion: func(err error) { gotErr = err },
	}
	m.Submit(req)
	require.NoError(t, gotErr)
}

func TestOpenAndCreateRollsBackOnArenaExhaustion(t *testing.T) {
	m := NewManager(
		WithOpenFunc(memOpen(1024)),
		WithArenaCapacity(1), // too small even for the two sentinels
		WithClonePoolSize(4),
	)
	require.NoError(t, m.SetBasePath("/dev/loop0"))

	err := m.OpenAndCreate()
	require.ErrorIs(t, err, errs.ErrOutOfMemory)
	require.Equal(t, Configured, m.State())

	// A second Manager with a workable arena size opens the same path
	// successfully; this does not observe whether the failed attempt closed
	// its base handle.
	m2 := NewManager(
		WithOpenFunc(memOpen(1024)),
		WithArenaCapacity(64),
		WithClonePoolSize(4),
	)
	require.NoError(t, m2.SetBasePath("/dev/loop0"))
	require.NoError(t, m2.OpenAndCreate())
}

func TestCloseRejectsWhenNotOpen(t *testing.T) {
	m := newTestManager(1024)
	err := m.Close()
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestS6CloseThenReopenResetsIndexAndAllocator(t *testing.T) {
	m := newTestManager(1 << 20)
	require.NoError(t, m.SetBasePath("/dev/loop0"))
	require.NoError(t, m.OpenAndCreate())

	var writeErr error
	m.Submit(&hostio.Request{
		Op:         hostio.OpWrite,
		VirtSector: 1000,
		ByteLength: 8 * 512,
		Payload:    make([]byte, 8*512),
		Completion: func(err error) { writeErr = err },
	})
	require.NoError(t, writeErr)

	require.NoError(t, m.Close())
	require.Equal(t, Configured, m.State())

	// Same base path, no SetBasePath call needed.
	require.NoError(t, m.OpenAndCreate())
	require.Equal(t, Open, m.State())

	// S6's pass-through-on-reopen behavior (phys==virt for an unmapped
	// sector) is covered at the remapper level; here it's enough that the
	// read against the freshly reopened, empty index succeeds.
	var readErr error
	m.Submit(&hostio.Request{
		Op:         hostio.OpRead,
		VirtSector: 1000,
		ByteLength: 512,
		Payload:    make([]byte, 512),
		Completion: func(err error) { readErr = err },
	})
	require.NoError(t, readErr)
}

func TestSubmitBeforeAnyOpenCompletesWithInvalid(t *testing.T) {
	m := newTestManager(1024)

	var gotErr error
	m.Submit(&hostio.Request{
		Op:         hostio.OpRead,
		VirtSector: 1,
		ByteLength: 512,
		Payload:    make([]byte, 512),
		Completion: func(err error) { gotErr = err },
	})
	require.ErrorIs(t, gotErr, errs.ErrInvalid)
}
