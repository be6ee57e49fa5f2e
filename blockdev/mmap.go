package blockdev

import (
	"io"

	"golang.org/x/exp/mmap"
	"golang.org/x/xerrors"
)

// mmapSource adapts a read-only memory-mapped file into a Source. mmap's
// ReaderAt only exposes positionless, offset-addressed reads, so this type
// tracks its own virtual position to present the io.ReadSeeker AlignedDevice
// requires.
type mmapSource struct {
	r   *mmap.ReaderAt
	pos int64
}

// OpenMmap opens path read-only via mmap, suitable for inspecting NTFS image
// files without a syscall per block. Its reported block size is always
// defaultBlockSize: once a file is mapped into memory there is no physical
// sector concept left to probe.
func OpenMmap(path string) (Source, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("blockdev: mmap open %s: %w", path, err)
	}
	return &mmapSource{r: r}, nil
}

func (m *mmapSource) Read(p []byte) (int, error) {
	n, err := m.r.ReadAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *mmapSource) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(m.r.Len()) + offset
	default:
		return 0, xerrors.Errorf("blockdev: unknown whence %d", whence)
	}
	if target < 0 {
		return 0, xerrors.Errorf("blockdev: seek target %d is negative", target)
	}
	m.pos = target
	return target, nil
}

func (m *mmapSource) BlockSize() (int, error) { return defaultBlockSize, nil }

func (m *mmapSource) Close() error { return m.r.Close() }
