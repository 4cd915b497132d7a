// Package errs collects the sentinel error taxonomy shared by every layer of
// the remapper, so control-plane and data-plane callers can classify a
// failure with errors.Is rather than parsing strings.
package errs

import "errors"

var (
	// ErrOutOfMemory is returned when the skiplist's arena has no free slot
	// for a new tower (sentinel growth never allocates). The caller observes
	// no partial mutation.
	ErrOutOfMemory = errors.New("blkremap: out of memory")

	// ErrBusy is returned by a control-plane operation that requires the
	// device to be closed (or configured) while it is open.
	ErrBusy = errors.New("blkremap: device busy")

	// ErrInvalid is returned by a control-plane operation whose precondition
	// is violated: closing a device that isn't open, opening with no base
	// path set, and so on.
	ErrInvalid = errors.New("blkremap: invalid operation")

	// ErrNameTooLong is returned when a base device path is MaxPathLen bytes
	// or longer.
	ErrNameTooLong = errors.New("blkremap: base device path too long")

	// ErrUnsupported is returned for any request operation other than read
	// or write.
	ErrUnsupported = errors.New("blkremap: unsupported operation")

	// ErrIO is returned on the original request's completion when clone
	// allocation or base-device submission fails.
	ErrIO = errors.New("blkremap: i/o error")
)
