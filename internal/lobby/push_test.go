package lobby

import (
	"testing"

	"blade-arena/internal/game"
)

// TestPushBufferEmpty verifies the empty-room snapshot
func TestPushBufferEmpty(t *testing.T) {
	b := NewPushBuffer(30, 2)

	if b.Cap() != 60 {
		t.Errorf("Cap = %d, want 60", b.Cap())
	}
	latest := b.Latest()
	if latest.Players == nil || latest.Bonuses == nil || latest.Dead == nil {
		t.Error("empty state should carry non-nil lists")
	}
	if len(b.History()) != 0 {
		t.Error("History should be empty")
	}
}

// TestPushBufferWraps verifies the ring keeps the newest states in order
func TestPushBufferWraps(t *testing.T) {
	b := NewPushBuffer(10, 0.5)

	for i := int64(1); i <= 12; i++ {
		b.Record(game.BroadcastState{Frame: i})
	}

	if b.Len() != 5 {
		t.Fatalf("Len = %d, want 5", b.Len())
	}
	if got := b.Latest().Frame; got != 12 {
		t.Errorf("Latest frame = %d, want 12", got)
	}

	history := b.History()
	for i, s := range history {
		if want := int64(8 + i); s.Frame != want {
			t.Errorf("history[%d] = %d, want %d", i, s.Frame, want)
		}
	}
}

// TestPushBufferMinimumSize verifies a degenerate size still holds one state
func TestPushBufferMinimumSize(t *testing.T) {
	b := NewPushBuffer(0, 0)
	b.Record(game.BroadcastState{Frame: 3})

	if b.Cap() != 1 || b.Latest().Frame != 3 {
		t.Errorf("Cap = %d, Latest = %d", b.Cap(), b.Latest().Frame)
	}
}
