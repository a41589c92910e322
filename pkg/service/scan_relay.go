package service

import (
	"sync"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
)

// scanRelay buffers scan results between the scanner and the owning
// goroutine. The queue is bounded and drops the newest result when full.
// Completion is a flag delivered after the queued results and is never
// dropped.
type scanRelay struct {
	mu       sync.Mutex
	queue    []wifi.AccessPoint
	size     int
	complete bool

	wake   chan struct{}
	onDrop func(ap wifi.AccessPoint)
}

func newScanRelay(size int, onDrop func(ap wifi.AccessPoint)) *scanRelay {
	return &scanRelay{
		queue:  make([]wifi.AccessPoint, 0, size),
		size:   size,
		wake:   make(chan struct{}, 1),
		onDrop: onDrop,
	}
}

// OnScanResult queues ap, or drops it if the queue is full.
func (r *scanRelay) OnScanResult(ap wifi.AccessPoint) {
	r.mu.Lock()
	if len(r.queue) >= r.size {
		r.mu.Unlock()
		if r.onDrop != nil {
			r.onDrop(ap)
		}
		return
	}
	r.queue = append(r.queue, ap)
	r.mu.Unlock()
	r.signal()
}

// OnScanComplete marks the scan finished.
func (r *scanRelay) OnScanComplete() {
	r.mu.Lock()
	r.complete = true
	r.mu.Unlock()
	r.signal()
}

func (r *scanRelay) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest result. When the queue is empty it reports a pending
// completion once.
func (r *scanRelay) next() (ap wifi.AccessPoint, ok, complete bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) > 0 {
		ap = r.queue[0]
		n := copy(r.queue, r.queue[1:])
		r.queue[n] = wifi.AccessPoint{}
		r.queue = r.queue[:n]
		return ap, true, false
	}
	if r.complete {
		r.complete = false
		return ap, false, true
	}
	return ap, false, false
}

// len returns the number of queued results.
func (r *scanRelay) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
