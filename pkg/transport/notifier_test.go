package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyCall struct {
	handle Handle
	char   Characteristic
	data   []byte
	at     time.Time
}

// fakePeripheral records notifications.
type fakePeripheral struct {
	mu          sync.Mutex
	calls       []notifyCall
	subscribed  map[Characteristic]bool
	notifyErr   error
	onNotify    func(n int)
	advertising bool
}

func newFakePeripheral() *fakePeripheral {
	return &fakePeripheral{subscribed: map[Characteristic]bool{CharCommand: true, CharStatus: true}}
}

func (p *fakePeripheral) Notify(_ context.Context, h Handle, char Characteristic, data []byte) error {
	p.mu.Lock()
	if p.notifyErr != nil {
		p.mu.Unlock()
		return p.notifyErr
	}
	c := make([]byte, len(data))
	copy(c, data)
	p.calls = append(p.calls, notifyCall{handle: h, char: char, data: c, at: time.Now()})
	n := len(p.calls)
	hook := p.onNotify
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (p *fakePeripheral) Subscribed(_ Handle, char Characteristic) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribed[char]
}

func (p *fakePeripheral) Disconnect(Handle) error { return nil }

func (p *fakePeripheral) StartAdvertising() error {
	p.advertising = true
	return nil
}

func (p *fakePeripheral) StopAdvertising() error {
	p.advertising = false
	return nil
}

func (p *fakePeripheral) Calls() []notifyCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifyCall(nil), p.calls...)
}

var _ Peripheral = (*fakePeripheral)(nil)

func TestNotifierChunksAndPaces(t *testing.T) {
	var pipe Pipe
	p := newFakePeripheral()
	n := NewNotifier(&pipe, p, NotifierConfig{})

	msg := make([]byte, 45)
	for i := range msg {
		msg[i] = byte(i)
	}

	require.NoError(t, n.Send(context.Background(), 1, CharCommand, msg))

	calls := p.Calls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0].data, 20)
	assert.Len(t, calls[1].data, 20)
	assert.Len(t, calls[2].data, 5)
	assert.Equal(t, msg[40:], calls[2].data)

	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		assert.GreaterOrEqual(t, gap, DefaultChunkInterval, "gap %d", i)
	}
	assert.Equal(t, PipeAvailable, pipe.State())
}

func TestNotifierHoldsPipeDuringBurst(t *testing.T) {
	var pipe Pipe
	p := newFakePeripheral()
	var seen []PipeState
	p.onNotify = func(int) { seen = append(seen, pipe.State()) }

	n := NewNotifier(&pipe, p, NotifierConfig{ChunkSize: 4, ChunkInterval: -1})
	require.NoError(t, n.Send(context.Background(), 1, CharCommand, make([]byte, 10)))

	assert.Equal(t, []PipeState{PipeBusyNotify, PipeBusyNotify, PipeBusyNotify}, seen)
	assert.True(t, pipe.Available())
}

func TestNotifierGuards(t *testing.T) {
	t.Run("not subscribed", func(t *testing.T) {
		var pipe Pipe
		p := newFakePeripheral()
		p.subscribed[CharCommand] = false
		n := NewNotifier(&pipe, p, NotifierConfig{})

		err := n.Send(context.Background(), 1, CharCommand, []byte{1, 2})
		assert.ErrorIs(t, err, ErrNotSubscribed)
		assert.Empty(t, p.Calls())
	})

	t.Run("pipe busy", func(t *testing.T) {
		var pipe Pipe
		pipe.set(PipeBusyWrite)
		p := newFakePeripheral()
		n := NewNotifier(&pipe, p, NotifierConfig{})

		err := n.Send(context.Background(), 1, CharCommand, []byte{1, 2})
		assert.ErrorIs(t, err, ErrPipeBusy)
		assert.Empty(t, p.Calls())
		assert.Equal(t, PipeBusyWrite, pipe.State())
	})

	t.Run("notify error releases pipe", func(t *testing.T) {
		var pipe Pipe
		p := newFakePeripheral()
		p.notifyErr = errors.New("radio gone")
		n := NewNotifier(&pipe, p, NotifierConfig{})

		err := n.Send(context.Background(), 1, CharCommand, []byte{1, 2})
		assert.ErrorContains(t, err, "radio gone")
		assert.True(t, pipe.Available())
	})
}

func TestNotifierCancelAbortsBurst(t *testing.T) {
	var pipe Pipe
	p := newFakePeripheral()
	ctx, cancel := context.WithCancel(context.Background())
	p.onNotify = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	n := NewNotifier(&pipe, p, NotifierConfig{ChunkInterval: time.Hour})

	start := time.Now()
	err := n.Send(ctx, 1, CharCommand, make([]byte, 45))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, p.Calls(), 1)
	assert.True(t, pipe.Available())
}

func TestNotifierUsesTimer(t *testing.T) {
	var pipe Pipe
	p := newFakePeripheral()
	n := NewNotifier(&pipe, p, NotifierConfig{ChunkSize: 2, ChunkInterval: 5 * time.Millisecond})

	var waits []time.Duration
	n.newTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
		waits = append(waits, d)
		c := make(chan time.Time, 1)
		c <- time.Now()
		return c, func() bool { return true }
	}

	require.NoError(t, n.Send(context.Background(), 1, CharCommand, make([]byte, 7)))
	assert.Len(t, p.Calls(), 4)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, waits)
}

func TestNotifyValue(t *testing.T) {
	var pipe Pipe
	pipe.set(PipeBusyWrite)
	p := newFakePeripheral()
	n := NewNotifier(&pipe, p, NotifierConfig{})

	// Single values bypass the pipe.
	require.NoError(t, n.NotifyValue(context.Background(), 1, CharStatus, []byte{0xB1}))
	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, CharStatus, calls[0].char)
	assert.Equal(t, PipeBusyWrite, pipe.State())

	err := n.NotifyValue(context.Background(), 1, CharStatus, make([]byte, 21))
	assert.ErrorIs(t, err, ErrValueTooLarge)

	p.subscribed[CharStatus] = false
	err = n.NotifyValue(context.Background(), 1, CharStatus, []byte{0xB0})
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 20, nil},
		{1, 20, []int{1}},
		{20, 20, []int{20}},
		{21, 20, []int{20, 1}},
		{45, 20, []int{20, 20, 5}},
		{7, 3, []int{3, 3, 1}},
	}
	for _, tt := range tests {
		got := Split(make([]byte, tt.n), tt.size)
		var sizes []int
		for _, c := range got {
			sizes = append(sizes, len(c))
		}
		assert.Equal(t, tt.want, sizes, "Split(%d, %d)", tt.n, tt.size)
	}
}
