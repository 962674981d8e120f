package iso9660

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFileCreatesIntermediateDirs(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.AddFile("boot/efi/bootx64.efi", nil, 1024))

	boot := tree.Root.Dir.children["BOOT"]
	require.NotNil(t, boot)
	require.NotNil(t, boot.Dir)
	assert.Equal(t, tree.Root, boot.Parent)

	efi := boot.Dir.children["EFI"]
	require.NotNil(t, efi)
	assert.Equal(t, boot, efi.Parent)

	leaf := efi.Dir.children["BOOTX64.EFI"]
	require.NotNil(t, leaf)
	require.NotNil(t, leaf.File)
	assert.Equal(t, int64(1024), leaf.File.Size)
	assert.Equal(t, efi, leaf.Parent)
}

func TestAddFileDuplicateLeaf(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.AddFile("kernel.img", nil, 10))
	err := tree.AddFile("kernel.img", nil, 20)
	require.Error(t, err)
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
}

func TestAddFileDuplicateDirVsFileCollision(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.AddFile("boot/kernel.img", nil, 10))
	err := tree.AddFile("boot", nil, 10)
	require.Error(t, err)
}

func TestAddFileRejectsOverlongIntermediateComponent(t *testing.T) {
	tree := NewEmpty()
	long := strings.Repeat("a", 256)
	err := tree.AddFile(long+"/kernel.img", nil, 10)
	require.Error(t, err)
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
}

func TestLookup(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.AddFile("boot/bootx64.efi", nil, 10))

	assert.NotNil(t, tree.Lookup("boot/bootx64.efi"))
	assert.NotNil(t, tree.Lookup("boot"))
	assert.Nil(t, tree.Lookup("boot/missing.efi"))
	assert.Nil(t, tree.Lookup("nope"))
}

func TestSortedChildrenOrdering(t *testing.T) {
	tree := NewEmpty()
	require.NoError(t, tree.AddFile("zeta.txt", nil, 1))
	require.NoError(t, tree.AddFile("alpha.txt", nil, 1))
	require.NoError(t, tree.AddFile("mid.txt", nil, 1))

	children := SortedChildren(tree.Root.Dir)
	require.Len(t, children, 3)
	assert.Equal(t, "ALPHA.TXT", children[0].Name)
	assert.Equal(t, "MID.TXT", children[1].Name)
	assert.Equal(t, "ZETA.TXT", children[2].Name)
}

func TestRootParentIsSelf(t *testing.T) {
	tree := NewEmpty()
	assert.Equal(t, tree.Root, tree.Root.Parent)
}
