package agent

import (
	"sync"

	"github.com/google/uuid"
)

// ConfirmationRegistry is the runtime's process-wide confirmation-pending
// map, keyed by opaque token. Built as an injected struct constructed once
// by internal/wiring rather than a package-level singleton, so tests can
// build their own isolated instance.
//
// A transport layer (e.g. a chat UI) that wants to let a human resolve
// CONFIRM-tier tool calls asynchronously calls Request to obtain a token and
// a channel to present to the user, then Resolve(token, approved) from
// wherever the user's answer arrives.
type ConfirmationRegistry struct {
	mu      sync.Mutex
	pending map[string]chan bool
}

// NewConfirmationRegistry builds an empty registry.
func NewConfirmationRegistry() *ConfirmationRegistry {
	return &ConfirmationRegistry{pending: make(map[string]chan bool)}
}

// Request registers a new pending confirmation and returns its token and the
// channel that will receive exactly one answer once Resolve is called for
// that token.
func (r *ConfirmationRegistry) Request() (token string, answer <-chan bool) {
	token = uuid.NewString()
	ch := make(chan bool, 1)
	r.mu.Lock()
	r.pending[token] = ch
	r.mu.Unlock()
	return token, ch
}

// Resolve delivers approved to the pending request registered under token
// and removes it. Returns false if token is unknown (already resolved,
// timed out, or never issued).
func (r *ConfirmationRegistry) Resolve(token string, approved bool) bool {
	r.mu.Lock()
	ch, ok := r.pending[token]
	if ok {
		delete(r.pending, token)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- approved
	return true
}

// Cancel removes a pending request without resolving it, for cleanup after
// a timeout that Resolve never arrived to satisfy.
func (r *ConfirmationRegistry) Cancel(token string) {
	r.mu.Lock()
	delete(r.pending, token)
	r.mu.Unlock()
}
