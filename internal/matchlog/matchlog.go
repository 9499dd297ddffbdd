// Package matchlog appends every rule match to a diagnostic file for
// offline rule debugging. One line per match:
//
//	[<source file name>] [<rule id>] <raw line>
package matchlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer is a mutex-guarded append-only match log. It is the one resource
// written from outside the engine's single-writer model (the rules CLI can
// record validation matches too), hence the lock.
type Writer struct {
	mu sync.Mutex
	f  *os.File
}

// Open opens (or creates) the match log for appending.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open match log: %w", err)
	}
	return &Writer{f: f}, nil
}

// Record appends one match entry. Write errors are swallowed: the match
// log is diagnostics, never worth interrupting tracking for.
func (w *Writer) Record(sourceFile, ruleID, rawLine string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.f, "[%s] [%s] %s\n", filepath.Base(sourceFile), ruleID, rawLine)
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
