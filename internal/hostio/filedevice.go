// FileBlockDevice adapts a raw O_DIRECT file (opened through
// github.com/ncw/directio) into a hostio.BlockDevice: the concrete base device
// opened by openAndCreate (see internal/device) in place of the kernel's
// own block-device open call in original_source/driver.c.
package hostio

import (
	"fmt"
	"io"
	"os"

	"github.com/ncw/directio"

	"blkremap/internal/errs"
	"blkremap/internal/sector"
)

// FileBlockDevice is a BlockDevice backed by a regular file opened with
// O_DIRECT, sized in whole sectors. Reads and writes run synchronously and
// invoke Completion before Submit returns; a real host I/O layer would
// dispatch these asynchronously, but a conforming implementation only needs
// to guarantee the completion fires exactly once, which a synchronous call
// does trivially.
type FileBlockDevice struct {
	f        *os.File
	capacity sector.Sector
}

// OpenFileBlockDevice opens path with O_DIRECT and reports its capacity
// from the file's current size. The caller is responsible for the file
// already existing and being sector-aligned in length; this mirrors
// open_base_and_create_disk's reliance on the base file already existing.
//
// Open errors are returned verbatim (wrapped only with context, never
// coerced into errs.ErrIO): spec.md §6 lists "underlying open error" as its
// own category, distinct from the data-plane IoError taxon, and §7 requires
// these to propagate verbatim from the host so a caller can still tell
// "base path doesn't exist" apart from an I/O failure on the data path.
func OpenFileBlockDevice(path string) (*FileBlockDevice, error) {
	f, err := directio.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open base device %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat base device %q: %w", path, err)
	}
	return &FileBlockDevice{
		f:        f,
		capacity: sector.Count(uint64(info.Size())),
	}, nil
}

func (d *FileBlockDevice) Capacity() sector.Sector {
	return d.capacity
}

// Submit performs a direct-I/O read or write at the sector offset req
// carries and invokes req.Completion with the outcome. Payload buffers
// must be aligned and sized per directio.AlignSize, same as the caller of
// directio.OpenFile was always required to provide.
func (d *FileBlockDevice) Submit(req *Request) {
	offset := int64(req.VirtSector) * sector.Size

	var err error
	switch req.Op {
	case OpRead:
		_, err = d.f.ReadAt(req.Payload, offset)
		if err == io.EOF {
			err = nil
		}
	case OpWrite:
		_, err = d.f.WriteAt(req.Payload, offset)
	default:
		req.Completion(errs.ErrUnsupported)
		return
	}

	if err != nil {
		req.Completion(errs.ErrIO)
		return
	}
	req.Completion(nil)
}

func (d *FileBlockDevice) Close() error {
	return d.f.Close()
}
