package ble

import (
	"sync"

	"github.com/wifiprov/wifiprov-go/pkg/transport"
)

// tracker maps BlueZ device object paths to connection handles. Only the
// first connected device is the peer; later devices get their own handle so
// the handler can refuse them.
type tracker struct {
	mu      sync.Mutex
	next    transport.Handle
	handles map[string]transport.Handle
	peer    string
}

func newTracker() *tracker {
	return &tracker{handles: make(map[string]transport.Handle)}
}

// connected records path and returns its handle. fresh is false when path
// was already known.
func (t *tracker) connected(path string) (h transport.Handle, fresh bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.handles[path]; ok {
		return h, false
	}
	t.next++
	h = t.next
	t.handles[path] = h
	if t.peer == "" {
		t.peer = path
	}
	return h, true
}

// disconnected forgets path. ok is false for unknown paths.
func (t *tracker) disconnected(path string) (h transport.Handle, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok = t.handles[path]
	if !ok {
		return 0, false
	}
	delete(t.handles, path)
	if t.peer == path {
		t.peer = ""
	}
	return h, true
}

// current returns the peer that writes are attributed to.
func (t *tracker) current() (transport.Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peer == "" {
		return 0, false
	}
	return t.handles[t.peer], true
}

// path returns the device path of h.
func (t *tracker) path(h transport.Handle) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p, ph := range t.handles {
		if ph == h {
			return p, true
		}
	}
	return "", false
}

// reset forgets every device and returns their handles.
func (t *tracker) reset() []transport.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]transport.Handle, 0, len(t.handles))
	for _, h := range t.handles {
		out = append(out, h)
	}
	t.handles = make(map[string]transport.Handle)
	t.peer = ""
	return out
}
