package director

import "sync"

// TeardownSet is the process-level set of paths to clean up on teardown:
// temporary directories created for auto-generated parent rules, collected
// during Compile and drained at process exit. It is an explicit,
// passed-down resource rather than a package-level global, so tests can
// substitute their own instance.
type TeardownSet struct {
	mu    sync.Mutex
	paths []string // insertion order
}

// NewTeardownSet returns an empty TeardownSet.
func NewTeardownSet() *TeardownSet {
	return &TeardownSet{}
}

// Add records path for later cleanup.
func (t *TeardownSet) Add(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, path)
}

// Paths returns a snapshot of every recorded path, in insertion order.
func (t *TeardownSet) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.paths))
	copy(out, t.paths)
	return out
}

// Drain removes every path via remove in LIFO order (most recently added
// first), after clearing the set. It attempts every path and returns the
// first error remove reports.
func (t *TeardownSet) Drain(remove func(path string) error) error {
	t.mu.Lock()
	paths := make([]string, len(t.paths))
	copy(paths, t.paths)
	t.paths = nil
	t.mu.Unlock()

	var firstErr error
	for i := len(paths) - 1; i >= 0; i-- {
		if err := remove(paths[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
