// Package presence tracks which users currently hold at least one live
// connection. Rooms only ask IsUserOnline when deciding whether a dead
// human player respawns.
package presence

import "sync"

// Event is emitted when a user goes online (first connection) or offline
// (last connection closed).
type Event struct {
	UserID int
	Online bool
}

// Registry counts connections per user.
type Registry struct {
	mu    sync.RWMutex
	conns map[int]int
	subs  []func(Event)
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int]int)}
}

// Subscribe registers fn for online/offline events. fn runs on the caller
// of Connect/Disconnect and must not block.
func (r *Registry) Subscribe(fn func(Event)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

// Connect records a new connection for userID.
func (r *Registry) Connect(userID int) {
	r.mu.Lock()
	r.conns[userID]++
	first := r.conns[userID] == 1
	subs := r.subs
	r.mu.Unlock()

	if first {
		notify(subs, Event{UserID: userID, Online: true})
	}
}

// Disconnect records a closed connection. Extra calls are ignored.
func (r *Registry) Disconnect(userID int) {
	r.mu.Lock()
	n, ok := r.conns[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	last := n <= 1
	if last {
		delete(r.conns, userID)
	} else {
		r.conns[userID] = n - 1
	}
	subs := r.subs
	r.mu.Unlock()

	if last {
		notify(subs, Event{UserID: userID, Online: false})
	}
}

func (r *Registry) IsUserOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[userID] > 0
}

// OnlineCount returns the number of distinct online users.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
