package ntfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBootSectorComputesGeometry(t *testing.T) {
	// S4: NTFS signature dispatch / geometry computation.
	header := buildBootSector(512, 8, 4, 0, -10, -12, 0xDEADBEEF)

	bs, err := parseBootSector(header)
	require.NoError(t, err)
	assert.EqualValues(t, 512, bs.BytesPerSector)
	assert.EqualValues(t, 8, bs.SectorsPerCluster)
	assert.EqualValues(t, 4, bs.MFTLocation)
	assert.EqualValues(t, -10, bs.ClustersPerMFTRecord)

	clusterSize, err := bs.clusterSize()
	require.NoError(t, err)
	assert.EqualValues(t, 4096, clusterSize)

	mftRecordSize, err := recordSize(bs.ClustersPerMFTRecord, clusterSize)
	require.NoError(t, err)
	assert.EqualValues(t, 1024, mftRecordSize)

	mftOffset := int64(bs.MFTLocation) * int64(clusterSize)
	assert.EqualValues(t, 16384, mftOffset)
}

func TestParseBootSectorRejectsTruncatedInput(t *testing.T) {
	_, err := parseBootSector(make([]byte, 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestParseBootSectorRejectsZeroGeometry(t *testing.T) {
	header := buildBootSector(0, 8, 4, 0, -10, -12, 0)
	_, err := parseBootSector(header)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestRecordSizePositiveExponentIsClusterMultiple(t *testing.T) {
	size, err := recordSize(2, 4096)
	require.NoError(t, err)
	assert.EqualValues(t, 8192, size)
}

func TestRecordSizeNegativeExponentRejectsOutOfRange(t *testing.T) {
	_, err := recordSize(-120, 4096)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidData)
}
