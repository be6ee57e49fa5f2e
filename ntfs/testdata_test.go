package ntfs

import "encoding/binary"

// Fixture builders for the literal NTFS structures described in §7. These
// mirror the corpus's own style of hand-built byte fixtures (compare
// t9t/gomft's table-driven attribute tests) rather than a generic
// binary.Write-based builder, since several fields need deliberately
// invalid values in edge-case tests.

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildBootSector lays out a 512-byte NTFS boot sector with the BPB and
// NTFS Extended BPB fields this package reads; everything else is left
// zero.
func buildBootSector(bytesPerSector uint16, sectorsPerCluster uint8, mftLocation, backupMftLocation uint64, clustersPerMFTRecord, clustersPerIndexBuffer int8, serial uint64) []byte {
	b := make([]byte, bootSectorSize)
	copy(b[ntfsSignatureOffset:], ntfsSignature[:])

	bpb := b[11:]
	copy(bpb[0:2], le16(bytesPerSector))
	bpb[2] = sectorsPerCluster

	ebpb := bpb[25:]
	copy(ebpb[12:20], le64(mftLocation))
	copy(ebpb[20:28], le64(backupMftLocation))
	ebpb[28] = byte(clustersPerMFTRecord)
	ebpb[32] = byte(clustersPerIndexBuffer)
	copy(ebpb[36:44], le64(serial))

	return b
}

// buildFileRecordHeader lays out a 42-byte FILE_RECORD_SEGMENT_HEADER.
func buildFileRecordHeader(firstAttributeOffset uint16, flags uint16, realSize, allocatedSize uint32) []byte {
	b := make([]byte, fileRecordHeaderSize)
	copy(b[0:4], fileRecordSignature[:])
	copy(b[20:22], le16(firstAttributeOffset))
	copy(b[22:24], le16(flags))
	copy(b[24:28], le32(realSize))
	copy(b[28:32], le32(allocatedSize))
	return b
}

// buildResidentAttribute lays out a resident-form attribute record: the
// 16-byte common header, the 8-byte resident tail, and value as its
// payload.
func buildResidentAttribute(typeCode uint32, value []byte) []byte {
	const valueOffset = attributeHeaderSize + 8
	recordLength := valueOffset + len(value)
	b := make([]byte, recordLength)
	copy(b[0:4], le32(typeCode))
	copy(b[4:8], le32(uint32(recordLength)))
	b[8] = formResident
	// NameLength, NameOffset, Flags, Instance left zero.
	copy(b[16:20], le32(uint32(len(value))))
	copy(b[20:22], le16(uint16(valueOffset)))
	copy(b[valueOffset:], value)
	return b
}

// buildNonResidentAttribute lays out a non-resident-form attribute record
// with a zeroed 56-byte tail (data-run decoding is out of scope).
func buildNonResidentAttribute(typeCode uint32) []byte {
	recordLength := attributeHeaderSize + 56
	b := make([]byte, recordLength)
	copy(b[0:4], le32(typeCode))
	copy(b[4:8], le32(uint32(recordLength)))
	b[8] = formNonResident
	return b
}

var endMarker = le32(endOfAttributes)

// buildStandardInformationValue lays out the fixed fields this package
// decodes from $STANDARD_INFORMATION, padded out to
// standardInformationFixedSize.
func buildStandardInformationValue(creation, modified, change, access uint64, permissions uint32) []byte {
	b := make([]byte, standardInformationFixedSize)
	copy(b[0:8], le64(creation))
	copy(b[8:16], le64(modified))
	copy(b[16:24], le64(change))
	copy(b[24:32], le64(access))
	copy(b[32:36], le32(permissions))
	return b
}

// buildFileNameValue lays out a $FILE_NAME attribute payload: the fixed
// prefix through the name-type byte, followed by the UTF-16LE name.
func buildFileNameValue(parent uint64, name string, nameType uint8) []byte {
	nameUnits := utf16Encode(name)
	b := make([]byte, fileNameFixedSize+len(nameUnits)*2)
	copy(b[0:8], le64(parent))
	b[64] = byte(len(nameUnits))
	b[65] = nameType
	for i, u := range nameUnits {
		copy(b[fileNameFixedSize+i*2:], le16(u))
	}
	return b
}

func utf16Encode(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, uint16(r))
			continue
		}
		r -= 0x10000
		out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return out
}

// concat flattens a list of byte slices into one.
func concat(parts ...[]byte) []byte {
	var total int
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

