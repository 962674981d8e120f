package iso9660

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryRecordToBytesEvenPadding(t *testing.T) {
	r := &DirectoryRecord{ExtentLBA: 20, DataLen: 2048, Flags: 0, Identifier: "KERNEL.EFI;1", RecordTime: time.Now()}
	b := r.ToBytes()
	assert.Equal(t, 0, len(b)%2)
	assert.Equal(t, byte(len(b)), b[0])
	assert.Equal(t, byte(len("KERNEL.EFI;1")), b[32])
}

func TestSelfAndParentRecords(t *testing.T) {
	self := SelfRecord(16, 2048, time.Time{})
	assert.Equal(t, byte(DirFlagDirectory), self.Flags)
	assert.Equal(t, "\x00", self.Identifier)

	parent := ParentRecord(16, 2048, time.Time{})
	assert.Equal(t, "\x01", parent.Identifier)
}

func TestDirectoryRecordLBAFieldBothEndian(t *testing.T) {
	r := &DirectoryRecord{ExtentLBA: 0x00000100, DataLen: 0, Identifier: "\x00"}
	b := r.ToBytes()
	assert.Equal(t, Uint32Both(0x00000100), b[2:10])
}
