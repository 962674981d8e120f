package iso9660

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryVolumeDescriptorToBytes(t *testing.T) {
	pvd := &PrimaryVolumeDescriptor{
		VolumeSpaceSize: 100,
		PathTableSize:   10,
		LPathTableLBA:   20,
		MPathTableLBA:   21,
		RootRecord:      SelfRecord(18, 2048, time.Time{}),
		CreationTime:    time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	}
	b, err := pvd.ToBytes()
	require.NoError(t, err)
	require.Len(t, b, SectorSize)

	assert.Equal(t, byte(1), b[0])
	assert.Equal(t, Identifier, string(b[1:6]))
	assert.Equal(t, byte(1), b[6])
	assert.Equal(t, VolumeID, string(b[40:49]))
	assert.Equal(t, Uint32Both(100), b[80:88])
	assert.Equal(t, Uint32Both(10), b[132:140])
	assert.True(t, len(b[156:190]) == 34)
	assert.Equal(t, byte(1), b[881])
}

func TestPrimaryVolumeDescriptorRejectsOverlongPublisher(t *testing.T) {
	overlong := make([]byte, 200)
	for i := range overlong {
		overlong[i] = 'A'
	}
	pvd := &PrimaryVolumeDescriptor{Publisher: string(overlong)}
	_, err := pvd.ToBytes()
	assert.Error(t, err)
}

func TestBootRecordVolumeDescriptorToBytes(t *testing.T) {
	r := &BootRecordVolumeDescriptor{BootCatalogLBA: 19}
	b := r.ToBytes()
	require.Len(t, b, SectorSize)
	assert.Equal(t, byte(0), b[0])
	assert.Equal(t, Identifier, string(b[1:6]))
	assert.Equal(t, BootSystemID, string(b[7:30]))
}

func TestTerminatorVolumeDescriptor(t *testing.T) {
	b := TerminatorVolumeDescriptor()
	require.Len(t, b, SectorSize)
	assert.Equal(t, byte(255), b[0])
	assert.Equal(t, Identifier, string(b[1:6]))
}
