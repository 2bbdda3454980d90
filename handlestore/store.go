// Package handlestore implements a concurrent map from an opaque handle to
// the path the application believes it opened versus the path actually
// opened, plus the state of any in-progress directory enumeration.
//
// Lookups vastly outnumber inserts and removes in steady-state directory
// traffic, so the map is guarded by a sync.RWMutex rather than a plain
// Mutex.
package handlestore

import (
	"fmt"
	"sync"

	"github.com/cbarrett/redirectfs/directoryqueue"
	"github.com/cbarrett/redirectfs/fileinfo"
)

// Handle is an opaque native file-handle value.
type Handle uintptr

// EnumerationState is the state of an in-progress directory enumeration
// attached to a handle.
type EnumerationState struct {
	// Queue is nil to mean "pass through to the kernel without
	// interception".
	Queue           directoryqueue.Queue
	Layout          fileinfo.Layout
	EmittedNames    map[string]struct{} // keyed upper-cased, for dedup across merges
	FirstInvocation bool
}

// HandleRecord is the mutable-under-lock record attached to a handle.
type HandleRecord struct {
	AssociatedPath string
	RealOpenedPath string
	Enumeration    *EnumerationState
}

// Store is the concurrent handle→HandleRecord map.
type Store struct {
	mu      sync.RWMutex
	records map[Handle]*HandleRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[Handle]*HandleRecord)}
}

// Insert adds a new record for handle. It fails if handle is already
// present.
func (s *Store) Insert(handle Handle, associatedPath, realOpenedPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[handle]; exists {
		return fmt.Errorf("handlestore: handle %v already cached", handle)
	}
	s.records[handle] = &HandleRecord{AssociatedPath: associatedPath, RealOpenedPath: realOpenedPath}
	return nil
}

// InsertOrUpdate adds or overwrites the record for handle.
func (s *Store) InsertOrUpdate(handle Handle, associatedPath, realOpenedPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[handle] = &HandleRecord{AssociatedPath: associatedPath, RealOpenedPath: realOpenedPath}
}

// Get returns a copy of the record for handle, and whether handle is
// cached at all. Returning a copy rather than the pointer under the lock
// means a concurrent Remove cannot invalidate data already handed to a
// reader.
func (s *Store) Get(handle Handle) (HandleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[handle]
	if !ok {
		return HandleRecord{}, false
	}
	return *rec, true
}

// Remove deletes and returns the record for handle, if present.
func (s *Store) Remove(handle Handle) (HandleRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return HandleRecord{}, false
	}
	delete(s.records, handle)
	return *rec, true
}

// RemoveAndClose removes handle's record, if cached, and invokes closeFn
// while still holding the store's exclusive lock, so that a concurrent
// lookup can never observe a closed handle as still cached. closeFn is
// only invoked when handle was cached; an uncached handle has no store
// state to protect, so callers must invoke their native close directly
// when cached is false.
func (s *Store) RemoveAndClose(handle Handle, closeFn func() error) (cached bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, cached = s.records[handle]
	if !cached {
		return false, nil
	}
	delete(s.records, handle)
	return true, closeFn()
}

// AttachEnumeration attaches enumeration state to an already-cached handle.
// It is a no-op (and returns false) if handle is not cached.
func (s *Store) AttachEnumeration(handle Handle, state *EnumerationState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok {
		return false
	}
	rec.Enumeration = state
	return true
}

// MutateEnumeration runs fn against the live enumeration state for handle
// under the store's write lock. Only the single operation currently
// advancing that handle's enumeration should call this. It returns false
// if handle is not cached or has no attached enumeration.
func (s *Store) MutateEnumeration(handle Handle, fn func(*EnumerationState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[handle]
	if !ok || rec.Enumeration == nil {
		return false
	}
	fn(rec.Enumeration)
	return true
}
