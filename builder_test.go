package fullerene

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderNonHybridEndToEnd(t *testing.T) {
	b := NewBuilder()
	content := []byte("this is a regular file's content")
	require.NoError(t, b.AddFile("docs/readme.txt", NewByteSource(content)))

	sink := NewMemSink(0)
	err := b.Build(sink, BuildOptions{Now: time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	out := sink.(*memSink).Bytes()
	require.GreaterOrEqual(t, len(out), 32768+2048)

	pvdOff := 32768
	assert.Equal(t, "CD001", string(out[pvdOff+1:pvdOff+6]))
	assert.Contains(t, string(out), string(content))
}

func TestBuilderRejectsDuplicateDestination(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddFile("a.txt", NewByteSource([]byte("x"))))
	err := b.AddFile("a.txt", NewByteSource([]byte("y")))
	require.Error(t, err)

	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, InvalidInput, ferr.Kind)
}

func TestBuilderIsohybridWithoutUEFIRejected(t *testing.T) {
	b := NewBuilder()
	b.SetIsoHybrid(true)
	sink := NewMemSink(0)
	err := b.Build(sink, BuildOptions{})
	require.Error(t, err)

	var ferr *Error
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, InvalidInput, ferr.Kind)
}

func TestBuilderBiosBootPatchesBootInfoTable(t *testing.T) {
	b := NewBuilder()
	bootImage := make([]byte, 2048)
	for i := range bootImage {
		bootImage[i] = byte(i)
	}
	require.NoError(t, b.AddFile("isolinux.bin", NewByteSource(bootImage)))

	b.SetBootInfo(BootInfo{
		BIOS: &BiosBootInfo{
			BootImage:          NewByteSource(bootImage),
			DestinationInISO:   "isolinux.bin",
			PatchBootInfoTable: true,
		},
	})

	sink := NewMemSink(0)
	require.NoError(t, b.Build(sink, BuildOptions{}))

	out := sink.(*memSink).Bytes()
	require.Greater(t, len(out), 34*2048)

	// the boot image's own bytes 8:64 get overwritten with the patched boot
	// info table, so its written extent must no longer match the source
	// verbatim in that window even though the rest of the content is intact.
	found := false
	foundOff := 0
	for lba := 22; lba*2048+2048 <= len(out); lba++ {
		off := lba * 2048
		if string(out[off+64:off+128]) == string(bootImage[64:128]) {
			found = true
			foundOff = off
			break
		}
	}
	assert.True(t, found, "expected the boot image content past the patched table to appear somewhere in the image")
	if found {
		assert.NotEqual(t, bootImage[8:64], out[foundOff+8:foundOff+64])
		assert.Equal(t, []byte{16, 0, 0, 0}, out[foundOff+8:foundOff+12])
		assert.Equal(t, []byte{byte(foundOff / 2048), 0, 0, 0}, out[foundOff+12:foundOff+16])
	}
}
