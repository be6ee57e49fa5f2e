package ntfs

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// bootSectorSize is the number of bytes ntfs.Probe reads before dispatching;
// it covers the BIOS Parameter Block and the NTFS Extended BPB that follows
// it at offset 11.
const bootSectorSize = 512

const ntfsSignatureOffset = 3

var ntfsSignature = [4]byte{'N', 'T', 'F', 'S'}

// bootSector holds the fields of the BPB and NTFS Extended BPB this package
// actually uses. parseBootSector reads each of them at its fixed offset;
// fields that are always zero on NTFS (ReservedSectors, NumberOfFATs, ...)
// are not read at all.
type bootSector struct {
	BytesPerSector          uint16
	SectorsPerCluster       uint8
	MFTLocation             uint64
	BackupMFTLocation       uint64
	ClustersPerMFTRecord    int8
	ClustersPerIndexBuffer  int8
	VolumeSerialNumber      uint64
}

// parseBootSector decodes the BPB and NTFS Extended BPB out of a 512-byte
// boot sector previously read by Probe. The BPB starts at byte 11; the
// extended BPB follows immediately.
func parseBootSector(header []byte) (*bootSector, error) {
	if len(header) < bootSectorSize {
		return nil, xerrors.Errorf("ntfs: boot sector is %d bytes, want %d: %w", len(header), bootSectorSize, ErrInvalidData)
	}
	bpb := header[11:]
	if len(bpb) < 25 {
		return nil, xerrors.Errorf("ntfs: truncated BPB: %w", ErrInvalidData)
	}

	bs := &bootSector{
		BytesPerSector:    binary.LittleEndian.Uint16(bpb[0:2]),
		SectorsPerCluster: bpb[2],
	}

	ebpb := bpb[25:]
	if len(ebpb) < 48 {
		return nil, xerrors.Errorf("ntfs: truncated NTFS Extended BPB: %w", ErrInvalidData)
	}
	bs.MFTLocation = binary.LittleEndian.Uint64(ebpb[12:20])
	bs.BackupMFTLocation = binary.LittleEndian.Uint64(ebpb[20:28])
	bs.ClustersPerMFTRecord = int8(ebpb[28])
	bs.ClustersPerIndexBuffer = int8(ebpb[32])
	bs.VolumeSerialNumber = binary.LittleEndian.Uint64(ebpb[36:44])

	if bs.BytesPerSector == 0 || bs.SectorsPerCluster == 0 {
		return nil, xerrors.Errorf("ntfs: zero BytesPerSector or SectorsPerCluster: %w", ErrInvalidData)
	}
	return bs, nil
}

// clusterSize returns BytesPerSector * SectorsPerCluster, failing on
// overflow of a reasonable volume geometry.
func (bs *bootSector) clusterSize() (uint32, error) {
	size := uint32(bs.BytesPerSector) * uint32(bs.SectorsPerCluster)
	if size == 0 || size/uint32(bs.SectorsPerCluster) != uint32(bs.BytesPerSector) {
		return 0, xerrors.Errorf("ntfs: cluster size overflow (BytesPerSector=%d, SectorsPerCluster=%d): %w", bs.BytesPerSector, bs.SectorsPerCluster, ErrInvalidData)
	}
	return size, nil
}

// recordSize decodes one of the signed-8-bit "size exponent" fields
// (ClustersPerMFTRecord, ClustersPerIndexBuffer): a positive value is a
// cluster count to multiply by clusterSize; a negative value v encodes a
// byte size of 1 << (-v).
func recordSize(exponent int8, clusterSize uint32) (uint32, error) {
	if exponent >= 0 {
		return uint32(exponent) * clusterSize, nil
	}
	shift := -int(exponent)
	if shift > 31 {
		return 0, xerrors.Errorf("ntfs: record size exponent %d out of range: %w", exponent, ErrInvalidData)
	}
	return 1 << uint(shift), nil
}
