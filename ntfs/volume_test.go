package ntfs

import (
	"bytes"
	"testing"

	"github.com/distr1/ntfsinspect/blockio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildNtfsImage(t *testing.T, imageSize int, bytesPerSector uint16, sectorsPerCluster uint8, mftLocation, backupMftLocation uint64, clustersPerMFTRecord int8, mftAttrs ...[]byte) []byte {
	t.Helper()
	image := make([]byte, imageSize)
	copy(image, buildBootSector(bytesPerSector, sectorsPerCluster, mftLocation, backupMftLocation, clustersPerMFTRecord, -12, 0x1234))

	clusterSize := uint32(bytesPerSector) * uint32(sectorsPerCluster)
	backupOffset := int(backupMftLocation) * int(clusterSize)

	var body []byte
	body = append(body, make([]byte, 56)...)
	for _, a := range mftAttrs {
		body = append(body, a...)
	}
	body = append(body, endMarker...)
	header := buildFileRecordHeader(56, 0x0001, uint32(len(body)), uint32(len(body)))
	copy(body[0:len(header)], header)

	require.LessOrEqual(t, backupOffset+len(body), imageSize)
	copy(image[backupOffset:], body)
	return image
}

func TestProbeDispatchesToNtfsDecoder(t *testing.T) {
	// S4/S5 combined: valid NTFS signature, primary MFT region zeroed,
	// backup region holds a valid $MFT record with a FILE_NAME of "$MFT".
	fileName := buildResidentAttribute(AttributeTypeFileName, buildFileNameValue(5, "$MFT", 2))
	image := buildNtfsImage(t, 65536, 512, 8, 4, 10, -10, fileName)

	dev, err := blockio.WithBlockSize(bytes.NewReader(image), 512)
	require.NoError(t, err)

	vol, err := Probe(dev)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, vol.ClusterSize)
	assert.EqualValues(t, 1024, vol.MftRecordSize)
	assert.EqualValues(t, 16384, vol.MftOffset)
	assert.EqualValues(t, 40960, vol.BackupMftOffset)

	name, ok := vol.MFT.Name()
	require.True(t, ok)
	assert.Equal(t, "$MFT", name)
}

func TestProbeRejectsUnknownSignature(t *testing.T) {
	image := make([]byte, 4096)
	copy(image[3:7], []byte("FAT "))

	dev, err := blockio.WithBlockSize(bytes.NewReader(image), 512)
	require.NoError(t, err)

	_, err = Probe(dev)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVolumeRefreshReparsesMft(t *testing.T) {
	fileName := buildResidentAttribute(AttributeTypeFileName, buildFileNameValue(5, "$MFT", 2))
	image := buildNtfsImage(t, 65536, 512, 8, 4, 10, -10, fileName)

	dev, err := blockio.WithBlockSize(bytes.NewReader(image), 512)
	require.NoError(t, err)

	vol, err := Probe(dev)
	require.NoError(t, err)

	require.NoError(t, vol.Refresh())
	name, ok := vol.MFT.Name()
	require.True(t, ok)
	assert.Equal(t, "$MFT", name)
}

func TestVolumeFailsWhenBothMftCopiesAreInvalid(t *testing.T) {
	image := buildNtfsImage(t, 65536, 512, 8, 4, 10, -10) // no attrs; writes a valid backup record, zeroed below
	// Zero out the backup record entirely so both primary and backup miss
	// the FILE signature.
	for i := 40960; i < 40960+1024 && i < len(image); i++ {
		image[i] = 0
	}

	dev, err := blockio.WithBlockSize(bytes.NewReader(image), 512)
	require.NoError(t, err)

	_, err = Probe(dev)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidData)
}
