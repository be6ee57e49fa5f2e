package ntfs

import (
	"bytes"
	"io"
	"log"

	"github.com/distr1/ntfsinspect/blockio"
	"golang.org/x/xerrors"
)

// Volume is an opened NTFS filesystem: its geometry, decoded once at
// construction from the boot sector, and the parsed Master File Table
// record. The AlignedDevice backing it is re-wrapped at cluster
// granularity, stacked on top of whatever sector-granular device Probe
// was given.
type Volume struct {
	ClusterSize     uint32
	MftRecordSize   uint32
	IndexBufferSize uint32
	MftOffset       int64
	BackupMftOffset int64
	SerialNumber    uint64

	device *blockio.AlignedDevice
	// MFT is the $MFT file's own file record: the root of the volume's
	// metadata, parsed eagerly at construction.
	MFT *FileRecord
}

// Probe reads the 512-byte boot sector of device and, if bytes [3:7) spell
// out the NTFS signature, dispatches to NewVolume. Any other signature
// fails with ErrNotFound.
func Probe(device *blockio.AlignedDevice) (*Volume, error) {
	header := make([]byte, bootSectorSize)
	if _, err := device.Seek(0, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("ntfs: seeking to boot sector: %w", err)
	}
	if _, err := io.ReadFull(device, header); err != nil {
		return nil, xerrors.Errorf("ntfs: reading boot sector: %w", err)
	}
	if !bytes.Equal(header[ntfsSignatureOffset:ntfsSignatureOffset+len(ntfsSignature)], ntfsSignature[:]) {
		return nil, ErrNotFound
	}
	return NewVolume(header, device)
}

// NewVolume decodes header as an NTFS boot sector and parses the volume's
// MFT, re-wrapping device in a cluster-sized AlignedDevice stacked on top
// of it. If the primary MFT fails to parse for any reason, it logs a
// warning and retries once at the backup MFT location before giving up.
func NewVolume(header []byte, device *blockio.AlignedDevice) (*Volume, error) {
	bs, err := parseBootSector(header)
	if err != nil {
		return nil, err
	}
	clusterSize, err := bs.clusterSize()
	if err != nil {
		return nil, err
	}
	mftRecordSize, err := recordSize(bs.ClustersPerMFTRecord, clusterSize)
	if err != nil {
		return nil, xerrors.Errorf("ntfs: decoding MFT record size: %w", err)
	}
	indexBufferSize, err := recordSize(bs.ClustersPerIndexBuffer, clusterSize)
	if err != nil {
		return nil, xerrors.Errorf("ntfs: decoding index buffer size: %w", err)
	}

	clusterDevice, err := blockio.WithBlockSize(device, int(clusterSize))
	if err != nil {
		return nil, xerrors.Errorf("ntfs: stacking cluster-sized device: %w", err)
	}

	v := &Volume{
		ClusterSize:     clusterSize,
		MftRecordSize:   mftRecordSize,
		IndexBufferSize: indexBufferSize,
		MftOffset:       int64(bs.MFTLocation) * int64(clusterSize),
		BackupMftOffset: int64(bs.BackupMFTLocation) * int64(clusterSize),
		SerialNumber:    bs.VolumeSerialNumber,
		device:          clusterDevice,
	}

	mft := &FileRecord{Offset: v.MftOffset}
	if err := mft.Refresh(clusterDevice, mftRecordSize); err != nil {
		log.Printf("ntfs: primary MFT at %d unreadable (%v), retrying backup at %d", v.MftOffset, err, v.BackupMftOffset)
		mft = &FileRecord{Offset: v.BackupMftOffset}
		if err := mft.Refresh(clusterDevice, mftRecordSize); err != nil {
			return nil, xerrors.Errorf("ntfs: backup MFT at %d also unreadable: %w", v.BackupMftOffset, err)
		}
	}
	v.MFT = mft
	return v, nil
}

// Refresh re-reads the volume's MFT record from disk, applying the same
// primary/backup fallback NewVolume used.
func (v *Volume) Refresh() error {
	mft := &FileRecord{Offset: v.MftOffset}
	if err := mft.Refresh(v.device, v.MftRecordSize); err != nil {
		log.Printf("ntfs: primary MFT at %d unreadable (%v), retrying backup at %d", v.MftOffset, err, v.BackupMftOffset)
		mft = &FileRecord{Offset: v.BackupMftOffset}
		if err := mft.Refresh(v.device, v.MftRecordSize); err != nil {
			return xerrors.Errorf("ntfs: backup MFT at %d also unreadable: %w", v.BackupMftOffset, err)
		}
	}
	v.MFT = mft
	return nil
}

// ReadRecord parses a file record at the given volume-relative byte offset,
// independent of the MFT's own record (used to walk further MFT entries
// once higher layers locate them via $MFT's DATA attribute, out of scope
// here).
func (v *Volume) ReadRecord(offset int64) (*FileRecord, error) {
	r := &FileRecord{Offset: offset}
	if err := r.Refresh(v.device, v.MftRecordSize); err != nil {
		return nil, err
	}
	return r, nil
}
