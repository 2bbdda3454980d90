// Package fileinfo describes the byte layout of each supported NT
// file-information record variant, so that the Executor's buffer handling
// never branches on which variant it is handling. The layout itself varies
// per call (FileNames / FileBothDirectoryInformation / ... all differ), so
// the layout is data rather than a single fixed Go struct; encoding/binary
// reads and writes the fields at the described offsets instead of punning
// a pointer to a concrete type.
package fileinfo

import (
	"encoding/binary"
	"unicode/utf16"
)

// InfoClass identifies one of the NT directory-enumeration file-information
// class numbers the Executor supports.
type InfoClass int

const (
	FileDirectoryInformation InfoClass = iota + 1
	FileFullDirectoryInformation
	FileBothDirectoryInformation
	FileNamesInformation
	FileIdBothDirectoryInformation
	FileIdFullDirectoryInformation
)

// Layout holds the four byte offsets for one file-information record
// variant, plus its minimum (no-filename) size.
type Layout struct {
	// BaseSize is the record size before any filename bytes.
	BaseSize int
	// NextEntryOffset is the byte offset of the leading "offset to next
	// record in this buffer" field (0 if this is the last record).
	NextEntryOffset int
	// FileNameLength is the byte offset of the filename-length field (a
	// uint32 byte count, not a character count).
	FileNameLength int
	// FileName is the byte offset at which the (non-null-terminated,
	// UTF-16LE) filename begins.
	FileName int
}

// Layouts maps each supported InfoClass to its Layout. Offsets match the
// real NT record shapes; only the classes the Executor actually handles
// are populated. Lookups outside this table get ok=false, driving the
// caller's unsupported-class pass-through path.
var Layouts = map[InfoClass]Layout{
	// FILE_DIRECTORY_INFORMATION: NextEntryOffset, FileIndex, CreationTime,
	// LastAccessTime, LastWriteTime, ChangeTime, EndOfFile, AllocationSize,
	// FileAttributes, FileNameLength, FileName[1].
	FileDirectoryInformation: {BaseSize: 64, NextEntryOffset: 0, FileNameLength: 60, FileName: 64},

	// FILE_FULL_DIR_INFORMATION adds EaSize after FileAttributes.
	FileFullDirectoryInformation: {BaseSize: 68, NextEntryOffset: 0, FileNameLength: 60, FileName: 68},

	// FILE_BOTH_DIR_INFORMATION adds EaSize, ShortNameLength, ShortName[12]
	// after FileAttributes.
	FileBothDirectoryInformation: {BaseSize: 94, NextEntryOffset: 0, FileNameLength: 60, FileName: 94},

	// FILE_NAMES_INFORMATION: NextEntryOffset, FileIndex, FileNameLength,
	// FileName[1].
	FileNamesInformation: {BaseSize: 12, NextEntryOffset: 0, FileNameLength: 8, FileName: 12},

	// FILE_ID_BOTH_DIR_INFORMATION adds a FileId after ShortName.
	FileIdBothDirectoryInformation: {BaseSize: 104, NextEntryOffset: 0, FileNameLength: 60, FileName: 104},

	// FILE_ID_FULL_DIR_INFORMATION adds a FileId after EaSize.
	FileIdFullDirectoryInformation: {BaseSize: 80, NextEntryOffset: 0, FileNameLength: 60, FileName: 80},
}

// Resolve looks up the Layout for infoClass.
func Resolve(infoClass InfoClass) (Layout, bool) {
	l, ok := Layouts[infoClass]
	return l, ok
}

// NameQueryInfoClass identifies one of the non-enumeration NT
// file-information classes QueryByHandle supports for filename
// replacement. These are queried against a single already-open handle
// (NtQueryInformationFile), never batched into an array of records the way
// the directory-enumeration classes above are, so there is no
// next-entry-offset field at all.
type NameQueryInfoClass int

const (
	FileNameInfo NameQueryInfoClass = iota + 1
	FileNormalizedNameInfo
	// FileAllInfo is the composite FILE_ALL_INFORMATION record, which
	// embeds a FILE_NAME_INFORMATION-shaped tail after its fixed
	// access/mode/alignment/position/standard/internal/ea-size block.
	FileAllInfo
)

// NameQueryLayouts gives the FileNameLength/FileName field offsets for
// each supported NameQueryInfoClass. NextEntryOffset is left at its zero
// value and unused by every helper that matters here (ReadFileNameLength,
// WriteFileNameLength, ReadFileName, WriteFileName); QueryByHandle never
// calls the NextEntryOffset helpers against one of these layouts.
var NameQueryLayouts = map[NameQueryInfoClass]Layout{
	// FILE_NAME_INFORMATION: FileNameLength, FileName[1].
	FileNameInfo: {BaseSize: 4, FileNameLength: 0, FileName: 4},
	// FILE_NORMALIZED_NAME_INFORMATION has an identical shape to
	// FILE_NAME_INFORMATION; only the kernel's normalization behavior
	// differs, which this core does not interpret.
	FileNormalizedNameInfo: {BaseSize: 4, FileNameLength: 0, FileName: 4},
	// FILE_ALL_INFORMATION: a fixed 96-byte prefix (basic 40, standard 24,
	// internal 8, ea 4, access 4, position 8, mode 4, alignment 4)
	// followed by the same FILE_NAME_INFORMATION tail.
	FileAllInfo: {BaseSize: 100, FileNameLength: 96, FileName: 100},
}

// ResolveNameQuery looks up the Layout for a NameQueryInfoClass.
func ResolveNameQuery(infoClass NameQueryInfoClass) (Layout, bool) {
	l, ok := NameQueryLayouts[infoClass]
	return l, ok
}

// FileNameBytes returns the UTF-16LE byte count of name, the unit every
// filename-length field in these record variants is expressed in. Rune
// count is not enough: an astral-plane rune encodes as two code units.
func FileNameBytes(name string) int {
	return 2 * len(utf16.Encode([]rune(name)))
}

// SizeForFileName returns the total record size required to hold a filename
// of nameBytes bytes (UTF-16LE byte count, not rune count), NT-aligned to an
// 8-byte boundary the way every one of these record variants requires
// between consecutive entries in a buffer.
func (l Layout) SizeForFileName(nameBytes int) int {
	size := l.FileName + nameBytes
	const alignment = 8
	if rem := size % alignment; rem != 0 {
		size += alignment - rem
	}
	return size
}

// ReadNextEntryOffset reads the next-entry-offset field from record.
func (l Layout) ReadNextEntryOffset(record []byte) uint32 {
	return binary.LittleEndian.Uint32(record[l.NextEntryOffset:])
}

// WriteNextEntryOffset writes the next-entry-offset field into record.
func (l Layout) WriteNextEntryOffset(record []byte, offset uint32) {
	binary.LittleEndian.PutUint32(record[l.NextEntryOffset:], offset)
}

// ReadFileNameLength reads the filename-length field (a byte count) from
// record.
func (l Layout) ReadFileNameLength(record []byte) uint32 {
	return binary.LittleEndian.Uint32(record[l.FileNameLength:])
}

// WriteFileNameLength writes the filename-length field into record.
func (l Layout) WriteFileNameLength(record []byte, length uint32) {
	binary.LittleEndian.PutUint32(record[l.FileNameLength:], length)
}

// WriteFileName writes name (encoded as UTF-16LE) into record starting at
// the filename field offset, truncating to whatever fits in record's
// remaining capacity. It returns the number of UTF-16 code units written,
// for the buffer-overflow partial-write accounting requires.
func (l Layout) WriteFileName(record []byte, name string) (codeUnitsWritten int) {
	units := utf16.Encode([]rune(name))
	avail := (len(record) - l.FileName) / 2
	if avail < 0 {
		avail = 0
	}
	if avail < len(units) {
		units = units[:avail]
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(record[l.FileName+i*2:], u)
	}
	return len(units)
}

// ReadFileName reads a filename of the given byte length (as stored in the
// filename-length field) out of record, decoding from UTF-16LE.
func (l Layout) ReadFileName(record []byte, lengthBytes int) string {
	n := lengthBytes / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = binary.LittleEndian.Uint16(record[l.FileName+i*2:])
	}
	return string(utf16.Decode(units))
}
