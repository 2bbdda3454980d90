package fileinfo_test

import (
	"testing"

	"github.com/cbarrett/redirectfs/fileinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUnsupportedInfoClass(t *testing.T) {
	_, ok := fileinfo.Resolve(fileinfo.InfoClass(9999))
	assert.False(t, ok)
}

func TestWriteAndReadFileNameRoundTrip(t *testing.T) {
	layout, ok := fileinfo.Resolve(fileinfo.FileNamesInformation)
	require.True(t, ok)

	record := make([]byte, layout.SizeForFileName(len("player.sav")*2))
	written := layout.WriteFileName(record, "player.sav")
	assert.Equal(t, len("player.sav"), written)

	layout.WriteFileNameLength(record, uint32(written*2))
	assert.Equal(t, "player.sav", layout.ReadFileName(record, written*2))
}

func TestWriteFileNameTruncatesWhenBufferTooSmall(t *testing.T) {
	layout, ok := fileinfo.Resolve(fileinfo.FileNamesInformation)
	require.True(t, ok)

	// Buffer capable of holding only 4 UTF-16 code units of filename.
	record := make([]byte, layout.FileName+4*2)
	written := layout.WriteFileName(record, "player.sav")
	assert.Equal(t, 4, written)
	assert.Equal(t, "play", layout.ReadFileName(record, 4*2))
}

func TestWriteAndReadFileNameSurrogatePairRoundTrip(t *testing.T) {
	layout, ok := fileinfo.Resolve(fileinfo.FileNamesInformation)
	require.True(t, ok)

	// U+1F600, an astral-plane rune encoded as a UTF-16 surrogate pair:
	// two code units, not two runes.
	const name = "\U0001F600.txt"
	record := make([]byte, layout.SizeForFileName(len(name)*2))
	written := layout.WriteFileName(record, name)

	assert.Equal(t, name, layout.ReadFileName(record, written*2))
	// 6 code units: the surrogate pair plus ".txt", not 5 runes.
	assert.Equal(t, 12, fileinfo.FileNameBytes(name))
	assert.Equal(t, written*2, fileinfo.FileNameBytes(name))
}

func TestNextEntryOffsetRoundTrip(t *testing.T) {
	layout, ok := fileinfo.Resolve(fileinfo.FileBothDirectoryInformation)
	require.True(t, ok)

	record := make([]byte, layout.BaseSize)
	layout.WriteNextEntryOffset(record, 128)
	assert.Equal(t, uint32(128), layout.ReadNextEntryOffset(record))
}
