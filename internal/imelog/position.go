package imelog

// PositionTracker remembers the last safely-read byte offset per log file.
// It performs no I/O itself; the tracking engine feeds it the current file
// size on every pass so rotation and truncation are detected here.
//
// Single-writer: only the engine's polling goroutine touches it, so there
// is no locking.
type PositionTracker struct {
	offsets map[string]int64
}

// NewPositionTracker returns an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{offsets: make(map[string]int64)}
}

// SafePosition returns the offset reading should resume from. Unknown files
// start at 0. A current size smaller than the stored offset means the file
// was rotated or truncated underneath us; reading restarts at 0.
func (p *PositionTracker) SafePosition(path string, currentSize int64) int64 {
	offset, ok := p.offsets[path]
	if !ok {
		return 0
	}
	if currentSize < offset {
		return 0
	}
	return offset
}

// SetPosition records the offset reached after a successful read pass.
func (p *PositionTracker) SetPosition(path string, offset int64) {
	p.offsets[path] = offset
}
