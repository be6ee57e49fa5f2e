package ntfs

import (
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/distr1/ntfsinspect/blockio"
	"golang.org/x/xerrors"
)

// Attribute type codes (§7). Names follow the on-disk NTFS convention; only
// STANDARD_INFORMATION and FILE_NAME are decoded beyond their header, per
// §5.6 ("all other type codes: accept and skip").
const (
	AttributeTypeStandardInformation uint32 = 0x10
	AttributeTypeAttributeList       uint32 = 0x20
	AttributeTypeFileName            uint32 = 0x30
	AttributeTypeObjectID            uint32 = 0x40
	AttributeTypeVolumeName          uint32 = 0x60
	AttributeTypeVolumeInformation   uint32 = 0x70
	AttributeTypeData                uint32 = 0x80
	AttributeTypeIndexRoot           uint32 = 0x90
	AttributeTypeIndexAllocation     uint32 = 0xA0
	AttributeTypeBitmap              uint32 = 0xB0
	AttributeTypeReparsePoint        uint32 = 0xC0
)

// formCode values from the common attribute header's FormCode byte.
const (
	formResident    uint8 = 0x00
	formNonResident uint8 = 0x01
)

// Attribute is one parsed entry from a FileRecord's attribute stream. Only
// STANDARD_INFORMATION and FILE_NAME attributes get a decoded payload
// (StandardInformation / FileName); all other attributes are recorded by
// their common header plus the resident tail (ValueLength, ValueOffset) or
// the non-resident tail (NonResidentHeader), per §5.6. Value bytes are not
// retained.
type Attribute struct {
	TypeCode          uint32
	RecordLength      uint32
	NonResident       bool
	NameLength        uint8
	Flags             uint16
	Instance          uint16
	ValueLength       uint32 // resident form only
	ValueOffset       uint16 // resident form only
	NonResidentHeader *NonResidentHeader

	StandardInformation *StandardInformation
	FileName            *FileName
}

// NonResidentHeader mirrors ATTRIBUTE_RECORD_HEADER_NON_RESIDENT's fixed
// fields (§7). Data-run decoding is out of scope; MappingPairOffset is kept
// so a future layer can locate the run list without this one interpreting
// it.
type NonResidentHeader struct {
	LowestVcn         uint64
	HighestVcn        uint64
	MappingPairOffset uint16
	AllocatedLength   uint64
	FileSize          uint64
	ValidDataLength   uint64
	TotalAllocated    uint64
}

// StandardInformation mirrors the fixed-size $STANDARD_INFORMATION payload:
// four NTFS filetime timestamps and a DOS-style permissions bitmask.
type StandardInformation struct {
	CreationTime uint64
	ModifiedTime uint64
	ChangeTime   uint64
	AccessTime   uint64
	Permissions  uint32
}

// FileName mirrors the $FILE_NAME attribute payload (§7): the parent
// directory reference, four timestamps, size fields, and the UTF-16LE name
// itself.
type FileName struct {
	ParentDirectory uint64
	CreationTime    uint64
	ModifiedTime    uint64
	ChangeTime      uint64
	AccessTime      uint64
	AllocatedSize   uint64
	RealSize        uint64
	Permissions     uint32
	ReparseTag      uint32
	NameType        uint8
	Name            string
}

const (
	standardInformationFixedSize = 48 // bytes required; only the fields through Permissions (bytes 0-36) are decoded
	fileNameFixedSize            = 66 // through Type, before the variable-length name
)

// parseAttribute decodes one attribute record at offset, per §5.6. It
// returns the decoded Attribute (nil for the END marker), the number of
// bytes consumed (RecordLength, or 0 at the END marker), and any error.
func parseAttribute(device *blockio.AlignedDevice, offset int64, maxSize uint32) (*Attribute, uint32, error) {
	typeCodeBytes, err := readAt(device, offset, 4, maxSize, "attribute type code")
	if err != nil {
		return nil, 0, err
	}
	typeCode := binary.LittleEndian.Uint32(typeCodeBytes)
	if typeCode == endOfAttributes {
		return nil, 0, nil
	}

	header, err := readAt(device, offset, attributeHeaderSize, maxSize, "attribute record header")
	if err != nil {
		return nil, 0, err
	}
	recordLength := binary.LittleEndian.Uint32(header[4:8])
	if recordLength == 0 {
		return nil, 0, xerrors.Errorf("ntfs: attribute at %d has zero RecordLength: %w", offset, ErrInvalidData)
	}
	if recordLength > maxSize {
		return nil, 0, xerrors.Errorf("ntfs: attribute at %d declares RecordLength %d beyond remaining %d: %w", offset, recordLength, maxSize, ErrInvalidData)
	}
	formCode := header[8]
	nameLength := header[9]
	flags := binary.LittleEndian.Uint16(header[12:14])
	instance := binary.LittleEndian.Uint16(header[14:16])

	attr := &Attribute{
		TypeCode:     typeCode,
		RecordLength: recordLength,
		NameLength:   nameLength,
		Flags:        flags,
		Instance:     instance,
	}

	switch formCode {
	case formResident:
		tail, err := readAt(device, offset+attributeHeaderSize, 8, maxSize-attributeHeaderSize, "resident attribute tail")
		if err != nil {
			return nil, 0, err
		}
		attr.ValueLength = binary.LittleEndian.Uint32(tail[0:4])
		attr.ValueOffset = binary.LittleEndian.Uint16(tail[4:6])

		if err := decodeResidentValue(device, attr, offset); err != nil {
			return nil, 0, err
		}
	case formNonResident:
		attr.NonResident = true
		tail, err := readAt(device, offset+attributeHeaderSize, 56, maxSize-attributeHeaderSize, "non-resident attribute tail")
		if err != nil {
			return nil, 0, err
		}
		attr.NonResidentHeader = &NonResidentHeader{
			LowestVcn:         binary.LittleEndian.Uint64(tail[0:8]),
			HighestVcn:        binary.LittleEndian.Uint64(tail[8:16]),
			MappingPairOffset: binary.LittleEndian.Uint16(tail[16:18]),
			AllocatedLength:   binary.LittleEndian.Uint64(tail[24:32]),
			FileSize:          binary.LittleEndian.Uint64(tail[32:40]),
			ValidDataLength:   binary.LittleEndian.Uint64(tail[40:48]),
			TotalAllocated:    binary.LittleEndian.Uint64(tail[48:56]),
		}
	default:
		return nil, 0, xerrors.Errorf("ntfs: attribute at %d has unknown FormCode %#x: %w", offset, formCode, ErrInvalidData)
	}

	return attr, recordLength, nil
}

// decodeResidentValue dispatches on attr.TypeCode for the resident forms
// this package understands (STANDARD_INFORMATION, FILE_NAME); every other
// type code is accepted and left as a bare header, per §5.6.
func decodeResidentValue(device *blockio.AlignedDevice, attr *Attribute, attrOffset int64) error {
	valueOffset := attrOffset + int64(attr.ValueOffset)

	switch attr.TypeCode {
	case AttributeTypeStandardInformation:
		raw, err := readAt(device, valueOffset, standardInformationFixedSize, attr.ValueLength, "STANDARD_INFORMATION")
		if err != nil {
			return err
		}
		attr.StandardInformation = &StandardInformation{
			CreationTime: binary.LittleEndian.Uint64(raw[0:8]),
			ModifiedTime: binary.LittleEndian.Uint64(raw[8:16]),
			ChangeTime:   binary.LittleEndian.Uint64(raw[16:24]),
			AccessTime:   binary.LittleEndian.Uint64(raw[24:32]),
			Permissions:  binary.LittleEndian.Uint32(raw[32:36]),
		}
	case AttributeTypeFileName:
		fixed, err := readAt(device, valueOffset, fileNameFixedSize, attr.ValueLength, "FILE_NAME")
		if err != nil {
			return err
		}
		fn := &FileName{
			ParentDirectory: binary.LittleEndian.Uint64(fixed[0:8]),
			CreationTime:    binary.LittleEndian.Uint64(fixed[8:16]),
			ModifiedTime:    binary.LittleEndian.Uint64(fixed[16:24]),
			ChangeTime:      binary.LittleEndian.Uint64(fixed[24:32]),
			AccessTime:      binary.LittleEndian.Uint64(fixed[32:40]),
			AllocatedSize:   binary.LittleEndian.Uint64(fixed[40:48]),
			RealSize:        binary.LittleEndian.Uint64(fixed[48:56]),
			Permissions:     binary.LittleEndian.Uint32(fixed[56:60]),
			ReparseTag:      binary.LittleEndian.Uint32(fixed[60:64]),
			NameType:        fixed[65],
		}
		nameLenCodeUnits := uint32(fixed[64])
		nameByteLen := nameLenCodeUnits * 2
		remaining := attr.ValueLength - fileNameFixedSize
		if nameByteLen > remaining {
			return xerrors.Errorf("ntfs: FILE_NAME at %d declares name length %d bytes beyond value length %d: %w", valueOffset, nameByteLen, remaining, ErrInvalidData)
		}
		nameBytes, err := readAt(device, valueOffset+fileNameFixedSize, nameByteLen, remaining, "FILE_NAME name")
		if err != nil {
			return err
		}
		name, err := decodeUTF16LE(nameBytes)
		if err != nil {
			return xerrors.Errorf("ntfs: decoding FILE_NAME at %d: %w", valueOffset, err)
		}
		fn.Name = name
		attr.FileName = fn
	}
	return nil
}

// decodeUTF16LE decodes a UTF-16LE byte slice into a string, failing with
// ErrInvalidData on unpaired surrogates rather than silently substituting
// the replacement character.
func decodeUTF16LE(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", xerrors.Errorf("ntfs: odd-length UTF-16 byte slice (%d bytes): %w", len(b), ErrInvalidData)
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	runes := utf16.Decode(units)
	for _, r := range runes {
		if r == utf8.RuneError {
			return "", xerrors.Errorf("ntfs: invalid surrogate sequence in file name: %w", ErrInvalidData)
		}
	}
	return string(runes), nil
}
