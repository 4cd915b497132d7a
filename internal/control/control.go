// Package control implements the textual control surface from the
// specification: the three out-of-band commands (base, open, close) that
// drive a device.Manager, each returning a negative integer status code on
// failure, mirroring the table in the specification's external-interfaces
// section and original_source/driver.c's module_param_cb entry points.
package control

import (
	"errors"
	"fmt"

	"blkremap/internal/audit"
	"blkremap/internal/device"
	"blkremap/internal/errs"
)

// Status codes returned by StatusFor below. 0 is success; every
// failure is a distinct negative value, matching "0 = ok, negative = error
// code" from the specification.
const (
	StatusOK             = 0
	StatusOutOfMemory    = -1
	StatusBusy           = -2
	StatusInvalid        = -3
	StatusNameTooLong    = -4
	StatusUnsupported    = -5
	StatusIOError        = -6
	StatusUnknownFailure = -127
)

// ControlSurface is the Go realization of the specification's command
// table.
type ControlSurface interface {
	SetBase(path string) error
	GetBase() (string, error)
	Open() error
	Close() error
}

// Surface wraps one device.Manager, logging every invocation (and its
// outcome) to an audit ring buffer. It implements ControlSurface.
type Surface struct {
	manager *device.Manager
	audit   *audit.Buffer
}

// NewSurface wraps manager, recording control-plane events to log (which
// may be nil to disable audit logging entirely).
func NewSurface(manager *device.Manager, log *audit.Buffer) *Surface {
	return &Surface{manager: manager, audit: log}
}

func (s *Surface) record(op string, err error) {
	if s.audit == nil {
		return
	}
	if err != nil {
		s.audit.Record(fmt.Sprintf("%s: error: %v", op, err))
		return
	}
	s.audit.Record(fmt.Sprintf("%s: ok", op))
}

// SetBase implements the "base" (set) command.
func (s *Surface) SetBase(path string) error {
	err := s.manager.SetBasePath(path)
	s.record(fmt.Sprintf("base %s", path), err)
	return err
}

// GetBase implements the "base" (get) command.
func (s *Surface) GetBase() (string, error) {
	path, err := s.manager.GetBasePath()
	s.record("base", err)
	return path, err
}

// Open implements the "open" command.
func (s *Surface) Open() error {
	err := s.manager.OpenAndCreate()
	s.record("open", err)
	return err
}

// Close implements the "close" command.
func (s *Surface) Close() error {
	err := s.manager.Close()
	s.record("close", err)
	return err
}

// StatusFor translates err into the negative status code the control
// surface's table assigns to the taxon it classifies as, or
// StatusUnknownFailure for anything outside internal/errs's taxonomy.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, errs.ErrOutOfMemory):
		return StatusOutOfMemory
	case errors.Is(err, errs.ErrBusy):
		return StatusBusy
	case errors.Is(err, errs.ErrInvalid):
		return StatusInvalid
	case errors.Is(err, errs.ErrNameTooLong):
		return StatusNameTooLong
	case errors.Is(err, errs.ErrUnsupported):
		return StatusUnsupported
	case errors.Is(err, errs.ErrIO):
		return StatusIOError
	default:
		return StatusUnknownFailure
	}
}
