package iso9660

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint16Both(t *testing.T) {
	b := Uint16Both(0x1234)
	assert.Equal(t, []byte{0x34, 0x12, 0x12, 0x34}, b)
}

func TestUint32Both(t *testing.T) {
	b := Uint32Both(0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 0x01, 0x02, 0x03, 0x04}, b)
}

func TestAString(t *testing.T) {
	b, err := AString("HI", 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("HI   "), b)

	_, err = AString("TOOLONG", 3)
	assert.Error(t, err)
}

func TestDString(t *testing.T) {
	b, err := DString("AB_12", 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("AB_12   "), b)

	_, err = DString("lower", 8)
	assert.Error(t, err)
}

func TestPadToSector(t *testing.T) {
	assert.Equal(t, int64(0), PadToSector(2048))
	assert.Equal(t, int64(2048-100), PadToSector(100))
}

func TestSectorsForSize(t *testing.T) {
	n, err := SectorsForSize(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), n)

	n, err = SectorsForSize(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)

	n, err = SectorsForSize(2048)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)

	n, err = SectorsForSize(2049)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
}
