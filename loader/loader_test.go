package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aarch64sim/aarch64sim/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalAArch64ELF is a hand-built ELFCLASS64/EM_AARCH64 executable with a
// single PT_LOAD segment: the 64-byte ELF header, one 56-byte program
// header, and four NOP instructions (0xD503201F, little-endian) as the
// segment payload, loaded at virtual address 0x400000.
var minimalAArch64ELF = []byte{
	0x7f, 0x45, 0x4c, 0x46, 0x02, 0x01, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0xb7, 0x00, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x38, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00,
	0x78, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x1f, 0x20, 0x03, 0xd5, 0x1f, 0x20, 0x03, 0xd5,
	0x1f, 0x20, 0x03, 0xd5, 0x1f, 0x20, 0x03, 0xd5,
}

func writeTempELF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mini.elf")
	require.NoError(t, os.WriteFile(path, minimalAArch64ELF, 0o600))
	return path
}

func TestLoadFilePlacesLoadSegment(t *testing.T) {
	img, err := loader.LoadFile(writeTempELF(t))
	require.NoError(t, err)

	assert.Equal(t, uint64(0x400000), img.Entry)
	assert.Equal(t, uint64(0x400000), img.ProgramStart)
	require.GreaterOrEqual(t, len(img.Bytes), 16)

	nop := uint32(img.Bytes[0]) | uint32(img.Bytes[1])<<8 | uint32(img.Bytes[2])<<16 | uint32(img.Bytes[3])<<24
	assert.Equal(t, uint32(0xD503201F), nop)
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := loader.Open("/nonexistent/path/does-not-exist.elf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader:")
}
