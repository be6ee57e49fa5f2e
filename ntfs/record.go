package ntfs

import (
	"encoding/binary"
	"io"

	"github.com/distr1/ntfsinspect/blockio"
	"golang.org/x/xerrors"
)

const (
	fileRecordHeaderSize = 42
	attributeHeaderSize  = 16
	endOfAttributes      = 0xFFFFFFFF
)

var fileRecordSignature = [4]byte{'F', 'I', 'L', 'E'}

// FileRecord is one MFT file-record segment, identified by its absolute
// byte Offset on the volume. Its parsed contents (Header and Attributes)
// are memoized but transient: Refresh re-reads and re-walks the record from
// scratch, discarding whatever was previously parsed. FileRecord holds no
// back-reference to the Volume it came from, so it can be passed around and
// re-parsed against any AlignedDevice without ownership entanglement.
type FileRecord struct {
	Offset     int64
	Header     FileRecordHeader
	Attributes []Attribute
}

// FileRecordHeader mirrors FILE_RECORD_SEGMENT_HEADER (§7).
type FileRecordHeader struct {
	UpdateSequenceArrayOffset uint16
	UpdateSequenceArraySize   uint16
	LogSequenceNumber         uint64
	SequenceNumber            uint16
	ReferenceCount            uint16
	FirstAttributeOffset      uint16
	Flags                     uint16
	RealSize                  uint32
	AllocatedSize             uint32
	BaseFileRecordSegment     uint64
	NextAttributeInstance     uint16
}

// InUse reports whether bit 0 of Flags is set.
func (h FileRecordHeader) InUse() bool { return h.Flags&0x0001 != 0 }

// IsDirectory reports whether bit 1 of Flags is set.
func (h FileRecordHeader) IsDirectory() bool { return h.Flags&0x0002 != 0 }

// Refresh reads the file record segment at r.Offset from device and walks
// its attribute stream, replacing r.Header and r.Attributes. recordSize is
// the volume's nominal bytes-per-MFT-record (Volume.MftRecordSize); the
// actual walk is bounded by min(recordSize, RealSize) per §5.5.
func (r *FileRecord) Refresh(device *blockio.AlignedDevice, recordSize uint32) error {
	raw := make([]byte, fileRecordHeaderSize)
	if _, err := device.Seek(r.Offset, io.SeekStart); err != nil {
		return xerrors.Errorf("ntfs: seeking to file record at %d: %w", r.Offset, err)
	}
	if _, err := io.ReadFull(device, raw); err != nil {
		return xerrors.Errorf("ntfs: reading file record header at %d: %w", r.Offset, err)
	}

	var sig [4]byte
	copy(sig[:], raw[0:4])
	if sig != fileRecordSignature {
		return xerrors.Errorf("ntfs: file record at %d missing FILE signature (got %x): %w", r.Offset, sig, ErrInvalidData)
	}

	header := FileRecordHeader{
		UpdateSequenceArrayOffset: binary.LittleEndian.Uint16(raw[4:6]),
		UpdateSequenceArraySize:   binary.LittleEndian.Uint16(raw[6:8]),
		LogSequenceNumber:         binary.LittleEndian.Uint64(raw[8:16]),
		SequenceNumber:            binary.LittleEndian.Uint16(raw[16:18]),
		ReferenceCount:            binary.LittleEndian.Uint16(raw[18:20]),
		FirstAttributeOffset:      binary.LittleEndian.Uint16(raw[20:22]),
		Flags:                     binary.LittleEndian.Uint16(raw[22:24]),
		RealSize:                  binary.LittleEndian.Uint32(raw[24:28]),
		AllocatedSize:             binary.LittleEndian.Uint32(raw[28:32]),
		BaseFileRecordSegment:     binary.LittleEndian.Uint64(raw[32:40]),
		NextAttributeInstance:     binary.LittleEndian.Uint16(raw[40:42]),
	}

	max := header.RealSize
	if recordSize < max {
		max = recordSize
	}

	attrs := make([]Attribute, 0)
	pos := uint32(header.FirstAttributeOffset)
	for pos < max {
		attr, consumed, err := parseAttribute(device, r.Offset+int64(pos), max-pos)
		if err != nil {
			return xerrors.Errorf("ntfs: parsing attribute at record offset %d: %w", pos, err)
		}
		if consumed == 0 {
			break
		}
		if attr != nil {
			attrs = append(attrs, *attr)
		}
		pos += consumed
	}

	r.Header = header
	r.Attributes = attrs
	return nil
}

// Find returns every parsed attribute whose TypeCode matches typeCode.
func (r *FileRecord) Find(typeCode uint32) []Attribute {
	var out []Attribute
	for _, a := range r.Attributes {
		if a.TypeCode == typeCode {
			out = append(out, a)
		}
	}
	return out
}

// Name returns the first FILE_NAME attribute's decoded name, if any file
// record carries one.
func (r *FileRecord) Name() (string, bool) {
	for _, a := range r.Attributes {
		if a.FileName != nil {
			return a.FileName.Name, true
		}
	}
	return "", false
}

func readAt(device *blockio.AlignedDevice, offset int64, n uint32, maxSize uint32, what string) ([]byte, error) {
	if n > maxSize {
		return nil, xerrors.Errorf("ntfs: %s needs %d bytes but only %d remain: %w", what, n, maxSize, ErrInvalidData)
	}
	buf := make([]byte, n)
	if _, err := device.Seek(offset, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("ntfs: seeking to %s at %d: %w", what, offset, err)
	}
	if _, err := io.ReadFull(device, buf); err != nil {
		return nil, xerrors.Errorf("ntfs: reading %s at %d: %w", what, offset, err)
	}
	return buf, nil
}
