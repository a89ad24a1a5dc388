package source

import (
	"context"
	"sync"
)

// Ticket identifies one request in a client's sequence.
type Ticket struct {
	Key string
	Seq uint64
}

type slot struct {
	seq    uint64
	cancel context.CancelFunc
}

// Tracker sequences requests per client key. Starting a new request cancels the
// previous one for the same key, and its results must be discarded.
type Tracker struct {
	mu    sync.Mutex
	seq   uint64
	slots map[string]slot
}

// NewTracker constructs an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{slots: make(map[string]slot)}
}

// Begin registers a new request for key and returns a context cancelled when a newer
// request for the same key begins.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.slots[key]
	if prev.cancel != nil {
		prev.cancel()
	}
	t.seq++
	next := slot{seq: t.seq, cancel: cancel}
	t.slots[key] = next
	return ctx, Ticket{Key: key, Seq: next.seq}
}

// Current reports whether ticket is still the latest request for its key.
func (t *Tracker) Current(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[ticket.Key]
	return ok && s.seq == ticket.Seq
}

// Done releases the ticket and forgets its key. Sequence numbers come from a single
// counter, so a released key never reissues an old ticket.
func (t *Tracker) Done(ticket Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[ticket.Key]
	if !ok || s.seq != ticket.Seq {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	delete(t.slots, ticket.Key)
}
