// Package window controls when the device advertises its provisioning service.
//
// The window opens when the service starts, closes while a peer is
// connected, and reopens when the peer leaves unless provisioning finished.
// An optional timeout closes an idle window.
package window

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Timeout limits. A zero timeout keeps the window open indefinitely.
const (
	MinTimeout = 30 * time.Second
	MaxTimeout = time.Hour
)

// State represents the advertising window state.
type State uint8

const (
	// Closed means the device is not advertising.
	Closed State = iota

	// Advertising means the device is advertising and accepting a peer.
	Advertising

	// PeerConnected means a peer is attached and advertising is paused.
	PeerConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Advertising:
		return "ADVERTISING"
	case PeerConnected:
		return "PEER_CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Trigger indicates why the window was opened.
type Trigger uint8

const (
	// TriggerStartup opens the window when the service starts.
	TriggerStartup Trigger = iota

	// TriggerPeerLeft reopens the window after a disconnect.
	TriggerPeerLeft

	// TriggerButton opens the window on operator request.
	TriggerButton
)

// String returns a human-readable trigger name.
func (t Trigger) String() string {
	switch t {
	case TriggerStartup:
		return "STARTUP"
	case TriggerPeerLeft:
		return "PEER_LEFT"
	case TriggerButton:
		return "BUTTON"
	default:
		return "UNKNOWN"
	}
}

// Window errors.
var (
	ErrInvalidTimeout = errors.New("invalid window timeout")
	ErrPeerConnected  = errors.New("peer connected")
)

// Advertiser starts and stops BLE advertising.
type Advertiser interface {
	StartAdvertising() error
	StopAdvertising() error
}

// Window is the advertising window state machine.
type Window struct {
	mu sync.Mutex

	adv     Advertiser
	state   State
	timeout time.Duration
	timer   *time.Timer

	openedAt time.Time
	trigger  Trigger

	onStateChange func(old, new State)
	onTimeout     func()
}

// New returns a closed window driving adv.
func New(adv Advertiser, timeout time.Duration) (*Window, error) {
	if err := validTimeout(timeout); err != nil {
		return nil, err
	}
	return &Window{adv: adv, timeout: timeout}, nil
}

func validTimeout(d time.Duration) error {
	if d == 0 || (d >= MinTimeout && d <= MaxTimeout) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
}

// State returns the current window state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Trigger returns how the window was last opened.
func (w *Window) Trigger() Trigger {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.trigger
}

// RemainingTime returns the time until an idle window closes, or 0 if the
// window is not advertising or has no timeout.
func (w *Window) RemainingTime() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Advertising || w.timeout == 0 {
		return 0
	}
	remaining := w.timeout - time.Since(w.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// OnStateChange sets a callback for state changes.
func (w *Window) OnStateChange(fn func(old, new State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStateChange = fn
}

// OnTimeout sets a callback for when an idle window closes.
func (w *Window) OnTimeout(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onTimeout = fn
}

// Open starts advertising. Opening an advertising window restarts its
// timeout. Open fails while a peer is connected.
func (w *Window) Open(trigger Trigger) error {
	w.mu.Lock()
	switch w.state {
	case PeerConnected:
		w.mu.Unlock()
		return ErrPeerConnected
	case Advertising:
		w.trigger = trigger
		w.startTimer()
		w.mu.Unlock()
		return nil
	}

	if err := w.adv.StartAdvertising(); err != nil {
		w.mu.Unlock()
		return fmt.Errorf("start advertising: %w", err)
	}
	w.trigger = trigger
	w.startTimer()
	fn := w.setState(Advertising)
	w.mu.Unlock()

	fn()
	return nil
}

// Close stops advertising. Closing a window with a connected peer only
// prevents it from reopening when the peer leaves.
func (w *Window) Close() error {
	w.mu.Lock()
	if w.state == Closed {
		w.mu.Unlock()
		return nil
	}
	w.stopTimer()

	var err error
	if w.state == Advertising {
		err = w.adv.StopAdvertising()
	}
	fn := w.setState(Closed)
	w.mu.Unlock()

	fn()
	if err != nil {
		return fmt.Errorf("stop advertising: %w", err)
	}
	return nil
}

// PeerConnected pauses advertising while a peer is attached.
func (w *Window) PeerConnected() error {
	w.mu.Lock()
	if w.state != Advertising {
		w.mu.Unlock()
		return nil
	}
	w.stopTimer()
	err := w.adv.StopAdvertising()
	fn := w.setState(PeerConnected)
	w.mu.Unlock()

	fn()
	if err != nil {
		return fmt.Errorf("stop advertising: %w", err)
	}
	return nil
}

// PeerDisconnected reopens the window after a peer leaves, or closes it
// when reopen is false.
func (w *Window) PeerDisconnected(reopen bool) error {
	w.mu.Lock()
	if w.state != PeerConnected {
		w.mu.Unlock()
		return nil
	}
	if !reopen {
		fn := w.setState(Closed)
		w.mu.Unlock()
		fn()
		return nil
	}

	if err := w.adv.StartAdvertising(); err != nil {
		fn := w.setState(Closed)
		w.mu.Unlock()
		fn()
		return fmt.Errorf("start advertising: %w", err)
	}
	w.trigger = TriggerPeerLeft
	w.startTimer()
	fn := w.setState(Advertising)
	w.mu.Unlock()

	fn()
	return nil
}

// setState changes the state and returns the callback to run once the lock
// is released.
func (w *Window) setState(s State) func() {
	old := w.state
	w.state = s
	cb := w.onStateChange
	if cb == nil || old == s {
		return func() {}
	}
	return func() { cb(old, s) }
}

func (w *Window) startTimer() {
	w.stopTimer()
	w.openedAt = time.Now()
	if w.timeout == 0 {
		return
	}
	w.timer = time.AfterFunc(w.timeout, w.handleTimeout)
}

func (w *Window) stopTimer() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Window) handleTimeout() {
	w.mu.Lock()
	if w.state != Advertising {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	_ = w.adv.StopAdvertising()
	fn := w.setState(Closed)
	timeoutFn := w.onTimeout
	w.mu.Unlock()

	fn()
	if timeoutFn != nil {
		timeoutFn()
	}
}
