package executor_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/cbarrett/redirectfs/director"
	"github.com/cbarrett/redirectfs/directoryqueue"
	"github.com/cbarrett/redirectfs/executor"
	"github.com/cbarrett/redirectfs/fileinfo"
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/ntfileapi"
	"github.com/cbarrett/redirectfs/ntstatus"
	"github.com/cbarrett/redirectfs/ruleconfig"
	"github.com/cbarrett/redirectfs/winpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFilesystem backs both the compile-time probe and the Executor's
// native calls with one in-memory view, so a whole open-then-enumerate
// round trip runs against a single consistent world.
type fakeFilesystem struct {
	dirs  map[string][]string // upper-cased dir path -> entry names
	files map[string]bool     // upper-cased file path -> exists
}

func newFakeFilesystem() *fakeFilesystem {
	return &fakeFilesystem{dirs: map[string][]string{}, files: map[string]bool{}}
}

func (f *fakeFilesystem) addDir(path string, entries ...string) {
	f.dirs[strings.ToUpper(path)] = entries
}

func (f *fakeFilesystem) addFile(path string) {
	f.files[strings.ToUpper(path)] = true
}

func (f *fakeFilesystem) DirectoryExists(path string) bool {
	_, ok := f.dirs[strings.ToUpper(path)]
	return ok
}

func (f *fakeFilesystem) Exists(path string) bool {
	return f.DirectoryExists(path) || f.files[strings.ToUpper(path)]
}

// open is the fake native open: directories and files both resolve
// against the in-memory view, handing out sequential handle values. Paths
// arrive carrying the namespace prefix the Executor emits; the lookup
// strips it the way the real object manager resolves `\??\` away.
func (f *fakeFilesystem) open(nextHandle *uintptr, attempted *[]string) executor.OpenFunc {
	return func(path string, access ntfileapi.FileAccessMode, disposition ntfileapi.NativeDisposition, options uint32) (uintptr, ntstatus.Code) {
		*attempted = append(*attempted, path)
		_, bare := winpath.SplitPrefix(path)
		if !f.Exists(bare) {
			return 0, ntstatus.ObjectNameNotFound
		}
		*nextHandle = *nextHandle + 1
		return *nextHandle, ntstatus.Success
	}
}

func (f *fakeFilesystem) enumerationSource(path string) (directoryqueue.BatchSource, ntstatus.Code) {
	entries, ok := f.dirs[strings.ToUpper(path)]
	if !ok {
		return nil, ntstatus.ObjectPathNotFound
	}
	done := false
	return func(restart bool) ([]directoryqueue.Entry, bool, error) {
		if restart {
			done = false
		}
		if done {
			return nil, true, nil
		}
		done = true
		batch := make([]directoryqueue.Entry, len(entries))
		for i, name := range entries {
			batch[i] = directoryqueue.Entry{Name: name}
		}
		return batch, true, nil
	}, ntstatus.Success
}

func compileDirector(t *testing.T, fs *fakeFilesystem, rules map[string]ruleconfig.RuleSection) *director.Director {
	t.Helper()
	d, errs := director.Compile(ruleconfig.SectionMap{Rules: rules}, nil, fs, nil)
	require.Empty(t, errs)
	require.NotNil(t, d)
	return d
}

// TestOverlayRuleOpensFilePresentOnlyInTarget drives a full
// compile-then-open round trip: one Overlay rule, the file exists only
// under the target, and the application opens it by its origin name. One
// native call lands on the target path and the handle's associated path
// is the name the application used.
func TestOverlayRuleOpensFilePresentOnlyInTarget(t *testing.T) {
	fs := newFakeFilesystem()
	fs.addDir(`C:\Game`)
	fs.addDir(`C:\Game\Saves`)
	fs.addDir(`D:\Mods`)
	fs.addDir(`D:\Mods\Saves`)
	fs.addFile(`D:\Mods\Saves\player.sav`)

	d := compileDirector(t, fs, map[string]ruleconfig.RuleSection{
		"R": {OriginDirectory: `C:\Game\Saves`, TargetDirectory: `D:\Mods\Saves`, RedirectMode: "Overlay"},
	})

	e := executor.New(handlestore.New(), nil)
	var nextHandle uintptr
	var attempted []string

	handle, status := e.NewFileHandle(executor.RequestContext{Op: "Create"}, `C:\Game\Saves\player.sav`, nil, nil,
		ntfileapi.FileAccessMode{Read: true}, ntfileapi.NativeOpen, 0, d, fs.open(&nextHandle, &attempted))

	require.True(t, status.IsSuccess())
	assert.Equal(t, []string{`\??\D:\Mods\Saves\player.sav`}, attempted)

	rec, cached := e.Store.Get(handlestore.Handle(handle))
	require.True(t, cached)
	assert.Equal(t, `C:\Game\Saves\player.sav`, rec.AssociatedPath)
	assert.Equal(t, `D:\Mods\Saves\player.sav`, rec.RealOpenedPath)
}

// TestOverlayRuleFallsBackToOriginWhenTargetMissing: with Overlay mode the
// unredirected original is the fallback when the redirected candidate
// reports path-not-found.
func TestOverlayRuleFallsBackToOriginWhenTargetMissing(t *testing.T) {
	fs := newFakeFilesystem()
	fs.addDir(`C:\Game`)
	fs.addDir(`C:\Game\Saves`)
	fs.addDir(`D:\Mods`)
	fs.addDir(`D:\Mods\Saves`)
	fs.addFile(`C:\Game\Saves\player.sav`)

	d := compileDirector(t, fs, map[string]ruleconfig.RuleSection{
		"R": {OriginDirectory: `C:\Game\Saves`, TargetDirectory: `D:\Mods\Saves`, RedirectMode: "Overlay"},
	})

	e := executor.New(handlestore.New(), nil)
	var nextHandle uintptr
	var attempted []string

	handle, status := e.NewFileHandle(executor.RequestContext{Op: "Create"}, `C:\Game\Saves\player.sav`, nil, nil,
		ntfileapi.FileAccessMode{Read: true}, ntfileapi.NativeOpen, 0, d, fs.open(&nextHandle, &attempted))

	require.True(t, status.IsSuccess())
	assert.Equal(t, []string{`\??\D:\Mods\Saves\player.sav`, `\??\C:\Game\Saves\player.sav`}, attempted)

	rec, cached := e.Store.Get(handlestore.Handle(handle))
	require.True(t, cached)
	assert.Equal(t, `C:\Game\Saves\player.sav`, rec.AssociatedPath)
	assert.Equal(t, `C:\Game\Saves\player.sav`, rec.RealOpenedPath)
}

// TestEnumerationMergesOriginAndTargetContents: a Simple rule with
// *.mod patterns over C:\A -> D:\B; C:\A holds core.dat, D:\B holds
// pack.mod. Enumerating C:\A yields both names exactly once.
func TestEnumerationMergesOriginAndTargetContents(t *testing.T) {
	fs := newFakeFilesystem()
	fs.addDir(`C:`)
	fs.addDir(`D:`)
	fs.addDir(`C:\A`, "core.dat")
	fs.addDir(`D:\B`, "pack.mod")

	d := compileDirector(t, fs, map[string]ruleconfig.RuleSection{
		"R": {OriginDirectory: `C:\A`, TargetDirectory: `D:\B`, RedirectMode: "Simple", FilePattern: []string{"*.mod"}},
	})

	e := executor.New(handlestore.New(), nil)
	var nextHandle uintptr
	var attempted []string

	// Opening the origin directory itself lands on the target, with the
	// origin kept as the associated name.
	handle, status := e.NewFileHandle(executor.RequestContext{Op: "Create"}, `C:\A`, nil, nil,
		ntfileapi.FileAccessMode{Read: true}, ntfileapi.NativeOpen, 0, d, fs.open(&nextHandle, &attempted))
	require.True(t, status.IsSuccess())

	rec, cached := e.Store.Get(handlestore.Handle(handle))
	require.True(t, cached)
	require.Equal(t, `C:\A`, rec.AssociatedPath)
	require.Equal(t, `D:\B`, rec.RealOpenedPath)

	intercepted, status := e.DirectoryEnumerationPrepare(
		executor.RequestContext{Op: "QueryDirectory"}, handlestore.Handle(handle), 1024, fileinfo.FileNamesInformation, "",
		d, fs.enumerationSource,
	)
	require.True(t, status.IsSuccess())
	require.True(t, intercepted)

	layout, _ := fileinfo.Resolve(fileinfo.FileNamesInformation)
	buf := make([]byte, 1024)
	var io executor.IOStatusBlock
	status = e.DirectoryEnumerationAdvance(executor.RequestContext{Op: "QueryDirectory"}, handlestore.Handle(handle), &io, buf, 0, "")
	require.True(t, status.IsSuccess())

	var names []string
	offset := 0
	for {
		record := buf[offset:]
		names = append(names, layout.ReadFileName(record, int(layout.ReadFileNameLength(record))))
		next := binary.LittleEndian.Uint32(record[layout.NextEntryOffset:])
		if next == 0 {
			break
		}
		offset += int(next)
	}
	assert.ElementsMatch(t, []string{"core.dat", "pack.mod"}, names)

	status = e.DirectoryEnumerationAdvance(executor.RequestContext{Op: "QueryDirectory"}, handlestore.Handle(handle), &io, buf, 0, "")
	assert.Equal(t, ntstatus.NoMoreFiles, status)
}

// TestEnumeratingAncestorInsertsSyntheticVirtualOriginName drives the
// open-then-enumerate pipeline for a directory that is merely an ancestor
// of a rule's virtual origin: the open is cached despite needing no
// rewrite, and the enumeration merges the directory's real contents with
// a synthetic entry for the origin that exists nowhere on disk.
func TestEnumeratingAncestorInsertsSyntheticVirtualOriginName(t *testing.T) {
	fs := newFakeFilesystem()
	fs.addDir(`C:`)
	fs.addDir(`D:`)
	fs.addDir(`C:\Data`, "readme.txt")
	fs.addDir(`D:\Real`)

	d := compileDirector(t, fs, map[string]ruleconfig.RuleSection{
		"V": {OriginDirectory: `C:\Data\Virtual`, TargetDirectory: `D:\Real`, RedirectMode: "Simple"},
	})

	e := executor.New(handlestore.New(), nil)
	var nextHandle uintptr
	var attempted []string

	handle, status := e.NewFileHandle(executor.RequestContext{Op: "Create"}, `C:\Data`, nil, nil,
		ntfileapi.FileAccessMode{Read: true}, ntfileapi.NativeOpen, 0, d, fs.open(&nextHandle, &attempted))
	require.True(t, status.IsSuccess())
	assert.Equal(t, []string{`\??\C:\Data`}, attempted)

	rec, cached := e.Store.Get(handlestore.Handle(handle))
	require.True(t, cached, "an ancestor of a rule origin must be cached so its enumeration can be intercepted")
	assert.Equal(t, `C:\Data`, rec.AssociatedPath)
	assert.Equal(t, `C:\Data`, rec.RealOpenedPath)

	intercepted, status := e.DirectoryEnumerationPrepare(
		executor.RequestContext{Op: "QueryDirectory"}, handlestore.Handle(handle), 1024, fileinfo.FileNamesInformation, "",
		d, fs.enumerationSource,
	)
	require.True(t, status.IsSuccess())
	require.True(t, intercepted)

	layout, _ := fileinfo.Resolve(fileinfo.FileNamesInformation)
	buf := make([]byte, 1024)
	var io executor.IOStatusBlock
	status = e.DirectoryEnumerationAdvance(executor.RequestContext{Op: "QueryDirectory"}, handlestore.Handle(handle), &io, buf, 0, "")
	require.True(t, status.IsSuccess())

	var names []string
	offset := 0
	for {
		record := buf[offset:]
		names = append(names, layout.ReadFileName(record, int(layout.ReadFileNameLength(record))))
		next := binary.LittleEndian.Uint32(record[layout.NextEntryOffset:])
		if next == 0 {
			break
		}
		offset += int(next)
	}
	assert.ElementsMatch(t, []string{"readme.txt", "Virtual"}, names)
}

// TestQueryByHandleAfterRedirectedOpenReturnsAssociatedName chains a
// redirected open with a name query: the application sees the name it
// opened, not the target the handle really points at.
func TestQueryByHandleAfterRedirectedOpenReturnsAssociatedName(t *testing.T) {
	fs := newFakeFilesystem()
	fs.addDir(`C:\Game`)
	fs.addDir(`C:\Game\Saves`)
	fs.addDir(`D:\Mods`)
	fs.addDir(`D:\Mods\Saves`)
	fs.addFile(`D:\Mods\Saves\player.sav`)

	d := compileDirector(t, fs, map[string]ruleconfig.RuleSection{
		"R": {OriginDirectory: `C:\Game\Saves`, TargetDirectory: `D:\Mods\Saves`, RedirectMode: "Simple"},
	})

	e := executor.New(handlestore.New(), nil)
	var nextHandle uintptr
	var attempted []string

	handle, status := e.NewFileHandle(executor.RequestContext{Op: "Create"}, `C:\Game\Saves\player.sav`, nil, nil,
		ntfileapi.FileAccessMode{Read: true}, ntfileapi.NativeOpen, 0, d, fs.open(&nextHandle, &attempted))
	require.True(t, status.IsSuccess())

	buf := make([]byte, 256)
	var io executor.IOStatusBlock
	status = e.QueryByHandle(executor.RequestContext{Op: "QueryInformation"}, handlestore.Handle(handle), &io, buf, fileinfo.FileNameInfo,
		func(b []byte, infoClass fileinfo.NameQueryInfoClass) (ntstatus.Code, int) {
			layout, _ := fileinfo.ResolveNameQuery(infoClass)
			written := layout.WriteFileName(b, `D:\Mods\Saves\player.sav`)
			layout.WriteFileNameLength(b, uint32(written*2))
			return ntstatus.Success, layout.FileName + written*2
		},
		func(associated string) string {
			if idx := strings.Index(associated, `:`); idx >= 0 {
				return associated[idx+1:]
			}
			return associated
		},
	)
	require.True(t, status.IsSuccess())

	layout, _ := fileinfo.ResolveNameQuery(fileinfo.FileNameInfo)
	assert.Equal(t, `\Game\Saves\player.sav`, layout.ReadFileName(buf, int(layout.ReadFileNameLength(buf))))
	assert.Equal(t, uint32(layout.FileName+len(`\Game\Saves\player.sav`)*2), io.Information)
}
