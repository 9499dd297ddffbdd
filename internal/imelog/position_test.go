package imelog

import "testing"

func TestSafePosition(t *testing.T) {
	p := NewPositionTracker()

	// Unknown file starts at 0.
	if got := p.SafePosition("a.log", 100); got != 0 {
		t.Errorf("SafePosition(unknown) = %d, want 0", got)
	}

	p.SetPosition("a.log", 80)

	tests := []struct {
		name        string
		currentSize int64
		want        int64
	}{
		{"file grew", 120, 80},
		{"file unchanged", 80, 80},
		{"file rotated below offset", 40, 0},
		{"file truncated to empty", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.SafePosition("a.log", tt.currentSize); got != tt.want {
				t.Errorf("SafePosition(size=%d) = %d, want %d", tt.currentSize, got, tt.want)
			}
		})
	}

	// Offsets are tracked per path.
	if got := p.SafePosition("b.log", 500); got != 0 {
		t.Errorf("SafePosition(other file) = %d, want 0", got)
	}
}
