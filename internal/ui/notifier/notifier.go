// Package notifier pings SSE listeners when a user's graph changes.
package notifier

import "sync"

// Notifier fans out change pings. Listeners subscribe under a user id and receive an
// empty struct whenever that user's graph changed; they should re-read the workspace.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]string),
	}
}

// Subscribe returns a channel that receives pings for userID.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(userID string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = userID
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast pings every listener of userID.
// Non-blocking: a listener with a pending ping is skipped.
func (n *Notifier) Broadcast(userID string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, owner := range n.listeners {
		if owner != userID {
			continue
		}
		notify(ch)
	}
}

// BroadcastAll pings every listener.
func (n *Notifier) BroadcastAll() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		notify(ch)
	}
}

// Listeners returns the number of subscribed channels.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
		// Channel full, the listener has a ping pending
	}
}
