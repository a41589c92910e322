package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/service/mocks"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/window"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// note is one peripheral call observed by fakePeripheral.
type note struct {
	kind   string // "notify" or "disconnect"
	handle transport.Handle
	char   transport.Characteristic
	data   []byte
	at     time.Time
}

// fakePeripheral records notifications and disconnects. Disconnect reports
// back to the service asynchronously, as a real stack would.
type fakePeripheral struct {
	mu           sync.Mutex
	notes        []note
	unsubscribed bool
	advertising  bool
	svc          *Service
	onNotify     func(n note)
}

func (p *fakePeripheral) Notify(_ context.Context, h transport.Handle, char transport.Characteristic, data []byte) error {
	n := note{kind: "notify", handle: h, char: char, data: append([]byte(nil), data...), at: time.Now()}
	p.mu.Lock()
	p.notes = append(p.notes, n)
	hook := p.onNotify
	p.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (p *fakePeripheral) Subscribed(transport.Handle, transport.Characteristic) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.unsubscribed
}

func (p *fakePeripheral) Disconnect(h transport.Handle) error {
	p.mu.Lock()
	p.notes = append(p.notes, note{kind: "disconnect", handle: h, at: time.Now()})
	svc := p.svc
	p.mu.Unlock()
	if svc != nil {
		go svc.OnDisconnected(h)
	}
	return nil
}

func (p *fakePeripheral) StartAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advertising = true
	return nil
}

func (p *fakePeripheral) StopAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advertising = false
	return nil
}

func (p *fakePeripheral) snapshot() []note {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]note(nil), p.notes...)
}

// statuses returns the status bytes notified so far.
func (p *fakePeripheral) statuses() []wire.StatusCode {
	var out []wire.StatusCode
	for _, n := range p.snapshot() {
		if n.kind == "notify" && n.char == transport.CharStatus {
			out = append(out, wire.StatusCode(n.data[0]))
		}
	}
	return out
}

// disconnects returns the handles the service disconnected.
func (p *fakePeripheral) disconnects() []transport.Handle {
	var out []transport.Handle
	for _, n := range p.snapshot() {
		if n.kind == "disconnect" {
			out = append(out, n.handle)
		}
	}
	return out
}

// messages reassembles the command characteristic notifications the way a
// peer would and decodes them.
func (p *fakePeripheral) messages(t *testing.T) []wire.Message {
	t.Helper()
	pipe := &transport.Pipe{}
	r := transport.NewReassembler(pipe, wire.ScratchSize)

	var out []wire.Message
	for _, n := range p.snapshot() {
		if n.kind != "notify" || n.char != transport.CharCommand {
			continue
		}
		body, err := r.Feed(n.data)
		require.NoError(t, err)
		if body == nil {
			continue
		}
		m, err := wire.DecodeMessage(body)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

type harness struct {
	svc     *Service
	per     *fakePeripheral
	store   *mocks.MockCredentialStore
	scanner *mocks.MockScanner
	prov    *mocks.MockProvisioner
	reset   *mocks.MockResetter
	plog    *log.MemoryLogger
}

// newHarness starts a Service with mocked collaborators. Pacing is off
// unless mutate turns it on.
func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		per:     &fakePeripheral{},
		store:   mocks.NewMockCredentialStore(t),
		scanner: mocks.NewMockScanner(t),
		prov:    mocks.NewMockProvisioner(t),
		reset:   mocks.NewMockResetter(t),
		plog:    &log.MemoryLogger{},
	}

	cfg := DefaultConfig()
	cfg.DeviceID = [wire.DeviceIDLength]byte{0xde, 0xad, 0xbe, 0xef}
	cfg.ChunkInterval = 0
	cfg.ProtocolLogger = h.plog
	if mutate != nil {
		mutate(&cfg)
	}

	svc, err := New(cfg, Deps{
		Peripheral:  h.per,
		Store:       h.store,
		Scanner:     h.scanner,
		Provisioner: h.prov,
		Resetter:    h.reset,
	})
	require.NoError(t, err)
	h.svc = svc
	h.per.svc = svc

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-svc.Done()
	})

	require.Eventually(t, func() bool {
		return svc.Window().State() == window.Advertising
	}, time.Second, time.Millisecond)
	return h
}

// connect attaches peer h and waits until the service has taken it.
func (h *harness) connect(t *testing.T, handle transport.Handle) {
	t.Helper()
	h.svc.OnConnected(handle)
	require.Eventually(t, func() bool {
		return h.svc.Window().State() == window.PeerConnected
	}, time.Second, time.Millisecond)
}

// write sends cmd from peer handle in chunks of the default size.
func (h *harness) write(t *testing.T, handle transport.Handle, cmd wire.Command) {
	t.Helper()
	frame, err := wire.EncodeCommand(cmd)
	require.NoError(t, err)
	h.writeRaw(t, handle, frame)
}

func (h *harness) writeRaw(t *testing.T, handle transport.Handle, frame []byte) {
	t.Helper()
	for _, c := range transport.Split(frame, transport.DefaultChunkSize) {
		require.Equal(t, transport.AttSuccess, h.svc.OnCharacteristicWrite(handle, transport.CharCommand, c))
	}
}

// waitDispatched waits until n frames were dispatched.
func (h *harness) waitDispatched(t *testing.T, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.svc.Stats().FramesDispatched >= n
	}, time.Second, time.Millisecond)
}

// waitStatus waits until the status mirror reports code.
func (h *harness) waitStatus(t *testing.T, code wire.StatusCode) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.svc.State().StatusCode() == code
	}, time.Second, time.Millisecond)
}

// sync round-trips an ignored frame through the event loop so everything
// queued before it has been handled.
func (h *harness) sync(t *testing.T, handle transport.Handle) {
	t.Helper()
	before := h.svc.Stats().UnknownOpcodes
	h.writeRaw(t, handle, []byte{0x02, 0x7f, 0x00})
	require.Eventually(t, func() bool {
		return h.svc.Stats().UnknownOpcodes > before
	}, time.Second, time.Millisecond)
}
