// Package blockio adapts an arbitrary byte-addressable, seekable source into
// one whose wire-level reads and seeks are always issued at a size and
// offset that are integer multiples of a discovered block size, while still
// exposing byte-granular random access to callers.
//
// A naive buffered reader invalidates its cache on every seek; a naive
// aligned reader forbids unaligned offsets. AlignedDevice does neither: it
// tracks the underlying source's raw file pointer and keeps its one-block
// cache alive across any seek that stays inside the cached window.
package blockio

import (
	"io"

	"golang.org/x/xerrors"
)

// ErrInvalidInput is returned when a seek target or construction parameter
// is out of range (e.g. negative offsets, non-positive block sizes).
var ErrInvalidInput = xerrors.New("blockio: invalid input")

// BlockSizer is the capability a Source exposes: the physical addressing
// unit of the underlying storage, in bytes. The value is assumed immutable
// for the lifetime of the source.
type BlockSizer interface {
	BlockSize() (int, error)
}

// Source is a byte-addressable, seekable source that can additionally
// report its block size.
type Source interface {
	io.ReadSeeker
	BlockSizer
}

// AlignedDevice owns a source and a fixed-capacity byte buffer of exactly
// blockSize bytes. It is not safe for concurrent use: it mutates its own
// cache state as well as the underlying source's file pointer.
type AlignedDevice struct {
	source    io.ReadSeeker
	blockSize int
	buf       []byte
	pos       int // pos in [0, cap]
	cap       int // cap in [0, blockSize]; pos == cap means the cache is empty
}

// New wraps source in an AlignedDevice whose block size is probed from
// source itself.
func New(source Source) (*AlignedDevice, error) {
	bs, err := source.BlockSize()
	if err != nil {
		return nil, xerrors.Errorf("blockio: probing block size: %w", err)
	}
	return WithBlockSize(source, bs)
}

// WithBlockSize wraps source in an AlignedDevice using an explicit block
// size. If source also implements BlockSizer (for example, because it is
// itself an AlignedDevice), blockSize must be a multiple of source's own
// block size; stacking two AlignedDevices is only correct when the outer
// alignment unit is a multiple of the inner one.
func WithBlockSize(source io.ReadSeeker, blockSize int) (*AlignedDevice, error) {
	if blockSize <= 0 {
		return nil, xerrors.Errorf("blockio: block size must be positive, got %d: %w", blockSize, ErrInvalidInput)
	}
	if inner, ok := source.(BlockSizer); ok {
		innerSize, err := inner.BlockSize()
		if err != nil {
			return nil, xerrors.Errorf("blockio: probing inner block size: %w", err)
		}
		if innerSize <= 0 || blockSize%innerSize != 0 {
			return nil, xerrors.Errorf("blockio: outer block size %d is not a multiple of inner block size %d: %w", blockSize, innerSize, ErrInvalidInput)
		}
	}
	return &AlignedDevice{
		source:    source,
		blockSize: blockSize,
		buf:       make([]byte, blockSize),
	}, nil
}

// BlockSize implements BlockSizer, letting an AlignedDevice itself be
// wrapped by an outer AlignedDevice (e.g. sector-sized inner, cluster-sized
// outer).
func (d *AlignedDevice) BlockSize() (int, error) {
	return d.blockSize, nil
}

// Unwrap destroys the device and returns the underlying source.
func (d *AlignedDevice) Unwrap() io.ReadSeeker {
	source := d.source
	d.source = nil
	d.buf = nil
	d.pos, d.cap = 0, 0
	return source
}

// Read implements io.Reader. Two strategies are used depending on cache
// state and request size; see the package doc for the alignment contract
// both must uphold.
func (d *AlignedDevice) Read(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if d.pos == d.cap && len(dst) > d.blockSize {
		// Large bypass: skip the cache entirely, round the request down to
		// a block multiple and read straight into dst.
		aligned := len(dst) - (len(dst) % d.blockSize)
		n, err := d.source.Read(dst[:aligned])
		if err != nil && err != io.EOF {
			return n, xerrors.Errorf("blockio: reading %d bytes: %w", aligned, err)
		}
		return n, err
	}

	if d.pos == d.cap {
		// Cache is empty: fill exactly one block, whatever the source gives
		// us. Short reads are propagated as-is; the next fill resumes where
		// the source left off (still aligned).
		n, err := d.source.Read(d.buf)
		if err != nil && err != io.EOF {
			return 0, xerrors.Errorf("blockio: filling cache: %w", err)
		}
		d.cap, d.pos = n, 0
		if n == 0 {
			return 0, io.EOF
		}
	}

	n := copy(dst, d.buf[d.pos:d.cap])
	d.pos += n
	return n, nil
}

// Seek implements io.Seeker. Seeking within the currently cached block
// (including the closed window up to the underlying raw position) performs
// zero underlying I/O; all other seeks realign to a block boundary and, if
// the target isn't itself aligned, refill the cache in a single read.
func (d *AlignedDevice) Seek(offset int64, whence int) (int64, error) {
	rawPos, err := d.source.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, xerrors.Errorf("blockio: querying raw position: %w", err)
	}
	min := rawPos - int64(d.cap)
	current := min + int64(d.pos)

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = current + offset
	case io.SeekEnd:
		end, err := d.source.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, xerrors.Errorf("blockio: probing end: %w", err)
		}
		if _, err := d.source.Seek(rawPos, io.SeekStart); err != nil {
			return 0, xerrors.Errorf("blockio: restoring raw position: %w", err)
		}
		target = end + offset
	default:
		return 0, xerrors.Errorf("blockio: unknown whence %d: %w", whence, ErrInvalidInput)
	}
	if target < 0 {
		return 0, xerrors.Errorf("blockio: seek target %d is negative: %w", target, ErrInvalidInput)
	}

	if target == current {
		return target, nil
	}

	if target >= min && target <= rawPos {
		d.pos = int(target - min)
		return target, nil
	}

	aligned := target - (target % int64(d.blockSize))
	rem := int(target - aligned)
	d.pos, d.cap = 0, 0
	if aligned != rawPos {
		if _, err := d.source.Seek(aligned, io.SeekStart); err != nil {
			return 0, xerrors.Errorf("blockio: seeking to %d: %w", aligned, err)
		}
	}
	if rem > 0 {
		n, err := d.source.Read(d.buf)
		if err != nil && err != io.EOF {
			return 0, xerrors.Errorf("blockio: filling cache at %d: %w", aligned, err)
		}
		d.cap = n
		if rem > n {
			rem = n // target lands past available data in this block (EOF)
		}
		d.pos = rem
	}
	return target, nil
}
