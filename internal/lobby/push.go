package lobby

import (
	"math"
	"sync"

	"blade-arena/internal/game"
)

// PushBuffer is a bounded ring of the most recent broadcast states. The tick
// loop is its only writer; readers take the read lock.
type PushBuffer struct {
	mu    sync.RWMutex
	ring  []game.BroadcastState
	next  int
	count int
}

// NewPushBuffer sizes the ring to hold seconds of history at tickRate.
func NewPushBuffer(tickRate int, seconds float64) *PushBuffer {
	n := int(math.Ceil(float64(tickRate) * seconds))
	if n < 1 {
		n = 1
	}
	return &PushBuffer{ring: make([]game.BroadcastState, n)}
}

// Record appends a state, overwriting the oldest when full.
func (b *PushBuffer) Record(s game.BroadcastState) {
	b.mu.Lock()
	b.ring[b.next] = s
	b.next = (b.next + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	}
	b.mu.Unlock()
}

// Latest returns the newest state, or an empty state before the first tick.
func (b *PushBuffer) Latest() game.BroadcastState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.count == 0 {
		return game.EmptyState()
	}
	return b.ring[(b.next-1+len(b.ring))%len(b.ring)]
}

// History returns the buffered states, oldest first.
func (b *PushBuffer) History() []game.BroadcastState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]game.BroadcastState, 0, b.count)
	start := (b.next - b.count + len(b.ring)) % len(b.ring)
	for i := 0; i < b.count; i++ {
		out = append(out, b.ring[(start+i)%len(b.ring)])
	}
	return out
}

func (b *PushBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

func (b *PushBuffer) Cap() int { return len(b.ring) }
