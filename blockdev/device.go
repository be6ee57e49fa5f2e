// Package blockdev opens plain files, raw block devices, and mmap-backed
// image files as blockio.Source values, and implements the host-specific
// physical block size probe the blockio package's capability model expects.
package blockdev

import (
	"io"
	"os"

	"golang.org/x/xerrors"
)

const defaultBlockSize = 512

// Source is what blockio.AlignedDevice needs from an opened device or image
// file: byte-granular random access, a reported block size, and explicit
// resource ownership (the caller must Close it).
type Source interface {
	io.ReadSeeker
	io.Closer
	BlockSize() (int, error)
}

type fileSource struct {
	f         *os.File
	blockSize int
}

func (s *fileSource) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s *fileSource) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

func (s *fileSource) Close() error { return s.f.Close() }

func (s *fileSource) BlockSize() (int, error) { return s.blockSize, nil }

// Open opens path read-only as a Source, probing its physical block size
// (BLKBSZGET on Linux block devices, falling back to the logical sector
// size, then the filesystem's block size, then 512 bytes).
func Open(path string) (Source, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, xerrors.Errorf("blockdev: open %s: %w", path, err)
	}
	bs, err := probeBlockSize(f)
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("blockdev: probing block size of %s: %w", path, err)
	}
	return &fileSource{f: f, blockSize: bs}, nil
}
