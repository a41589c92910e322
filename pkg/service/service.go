package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/provisioning"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/window"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Stats counts protocol activity since the service was created.
type Stats struct {
	FramesDispatched   uint64
	FramesRejected     uint64
	UnknownOpcodes     uint64
	NotificationsSent  uint64
	ScanResultsRelayed uint64
	ScanResultsDropped uint64
	PeersRefused       uint64
}

type counters struct {
	framesDispatched   atomic.Uint64
	framesRejected     atomic.Uint64
	unknownOpcodes     atomic.Uint64
	notificationsSent  atomic.Uint64
	scanResultsRelayed atomic.Uint64
	scanResultsDropped atomic.Uint64
	peersRefused       atomic.Uint64
}

type eventKind uint8

const (
	eventConnected eventKind = iota
	eventDisconnected
	eventWrite
	eventJoinResult
)

type event struct {
	kind   eventKind
	handle transport.Handle
	ctx    context.Context
	data   []byte
	join   wifi.JoinResult
}

// Service runs the provisioning protocol. Create it with New, register it
// as the peripheral's handler and call Run.
type Service struct {
	config      Config
	logger      *slog.Logger
	plog        log.Logger
	peripheral  transport.Peripheral
	store       CredentialStore
	scanner     Scanner
	provisioner Provisioner
	resetter    Resetter
	window      *window.Window

	events  chan event
	stopped chan struct{}
	running atomic.Bool
	status  atomic.Uint32
	stats   counters

	// Connection contexts, cancelled directly from OnDisconnected so that a
	// running notification burst stops without waiting for the event loop.
	connMu sync.Mutex
	conns  map[transport.Handle]context.CancelFunc

	// Owned by the Run goroutine.
	runCtx      context.Context
	connCtx     context.Context
	session     *provisioning.Session
	pipe        *transport.Pipe
	reassembler *transport.Reassembler
	notifier    *transport.Notifier
	builder     wire.Builder
	relay       *scanRelay
	pendingJoin *wifi.JoinResult
	provisioned bool
}

// New creates a Service.
func New(config Config, deps Deps) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if deps.Peripheral == nil || deps.Store == nil || deps.Scanner == nil || deps.Provisioner == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrInvalidConfig)
	}

	win, err := window.New(deps.Peripheral, config.WindowTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	interval := config.ChunkInterval
	if interval == 0 {
		interval = -1
	}

	s := &Service{
		config:      config,
		logger:      config.Logger,
		plog:        config.ProtocolLogger,
		peripheral:  deps.Peripheral,
		store:       deps.Store,
		scanner:     deps.Scanner,
		provisioner: deps.Provisioner,
		resetter:    deps.Resetter,
		window:      win,
		events:      make(chan event, config.EventQueueSize),
		stopped:     make(chan struct{}),
		conns:       make(map[transport.Handle]context.CancelFunc),
		session:     provisioning.NewSession(),
		pipe:        &transport.Pipe{},
	}
	s.reassembler = transport.NewReassembler(s.pipe, config.ChunkSize)
	s.notifier = transport.NewNotifier(s.pipe, deps.Peripheral, transport.NotifierConfig{
		ChunkSize:     config.ChunkSize,
		ChunkInterval: interval,
	})
	s.relay = newScanRelay(config.ScanQueueSize, s.dropScanResult)
	s.status.Store(uint32(provisioning.StateIdle.StatusCode()))

	win.OnStateChange(func(old, new window.State) {
		s.debugLog("window: state changed", "from", old, "to", new)
		s.logState(log.StateEntityAdvertising, old.String(), new.String(), "")
	})
	return s, nil
}

// Run opens the advertising window and processes events until ctx is
// cancelled or the device was reset after provisioning.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.shutdown()

	s.runCtx = ctx
	s.connCtx = ctx

	if err := s.window.Open(window.TriggerStartup); err != nil {
		return fmt.Errorf("open advertising window: %w", err)
	}
	s.debugLog("service: running", "chunkSize", s.config.ChunkSize, "chunkInterval", s.config.ChunkInterval)

	for {
		// Inbound events first, then one queued output per iteration.
		select {
		case ev := <-s.events:
			s.handleEvent(ev)
			continue
		case <-ctx.Done():
			return nil
		default:
		}

		if s.pipe.Available() && s.flushPending() {
			continue
		}

		select {
		case ev := <-s.events:
			s.handleEvent(ev)
		case <-s.relay.wake:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Service) shutdown() {
	close(s.stopped)

	s.connMu.Lock()
	for h, cancel := range s.conns {
		cancel()
		delete(s.conns, h)
	}
	s.connMu.Unlock()

	if err := s.window.Close(); err != nil {
		s.debugLog("service: close window", "error", err)
	}
	s.debugLog("service: stopped")
}

// flushPending emits one deferred output: a held join result, a queued
// scan result or the scan completion. It reports whether it did anything.
func (s *Service) flushPending() bool {
	if s.pendingJoin != nil {
		res := *s.pendingJoin
		s.pendingJoin = nil
		s.finishJoin(res)
		return true
	}

	ap, ok, complete := s.relay.next()
	switch {
	case ok:
		s.relayScanResult(ap)
		return true
	case complete:
		if t := s.session.ScanFinished(); t.Changed() {
			s.apply(t, "scan complete")
		}
		return true
	}
	return false
}

// State returns the current provisioning state. Safe for concurrent use.
func (s *Service) State() provisioning.State {
	st, _ := provisioning.StateFromStatus(wire.StatusCode(s.status.Load()))
	return st
}

// Stats returns a snapshot of the protocol counters.
func (s *Service) Stats() Stats {
	return Stats{
		FramesDispatched:   s.stats.framesDispatched.Load(),
		FramesRejected:     s.stats.framesRejected.Load(),
		UnknownOpcodes:     s.stats.unknownOpcodes.Load(),
		NotificationsSent:  s.stats.notificationsSent.Load(),
		ScanResultsRelayed: s.stats.scanResultsRelayed.Load(),
		ScanResultsDropped: s.stats.scanResultsDropped.Load(),
		PeersRefused:       s.stats.peersRefused.Load(),
	}
}

// Window returns the advertising window.
func (s *Service) Window() *window.Window {
	return s.window
}

// OpenWindow restarts advertising on operator request.
func (s *Service) OpenWindow() error {
	return s.window.Open(window.TriggerButton)
}

// Done is closed when Run has returned.
func (s *Service) Done() <-chan struct{} {
	return s.stopped
}

// ---------------------------------------------------------------------------
// transport.Handler
// ---------------------------------------------------------------------------

// OnConnected registers a new peer.
func (s *Service) OnConnected(h transport.Handle) {
	ctx, cancel := context.WithCancel(context.Background())
	s.connMu.Lock()
	if old, ok := s.conns[h]; ok {
		old()
	}
	s.conns[h] = cancel
	s.connMu.Unlock()

	if err := s.enqueue(event{kind: eventConnected, handle: h, ctx: ctx}); err != nil {
		cancel()
		s.debugLog("service: connect dropped", "handle", h, "error", err)
	}
}

// OnDisconnected cancels the peer's pending output and detaches it.
func (s *Service) OnDisconnected(h transport.Handle) {
	s.connMu.Lock()
	if cancel, ok := s.conns[h]; ok {
		cancel()
		delete(s.conns, h)
	}
	s.connMu.Unlock()

	if err := s.enqueue(event{kind: eventDisconnected, handle: h}); err != nil {
		s.debugLog("service: disconnect dropped", "handle", h, "error", err)
	}
}

// OnCharacteristicWrite queues a chunk written to the command
// characteristic. It blocks while the event queue is full.
func (s *Service) OnCharacteristicWrite(h transport.Handle, char transport.Characteristic, data []byte) transport.AttStatus {
	if char != transport.CharCommand {
		return transport.AttWriteNotPermitted
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)
	if err := s.enqueue(event{kind: eventWrite, handle: h, data: chunk}); err != nil {
		return transport.AttUnlikelyError
	}
	if len(data) > s.config.ChunkSize {
		return transport.AttInvalidAttributeLength
	}
	return transport.AttSuccess
}

// OnCharacteristicRead returns the status byte.
func (s *Service) OnCharacteristicRead(h transport.Handle, char transport.Characteristic) []byte {
	if char != transport.CharStatus {
		return nil
	}
	return []byte{byte(s.status.Load())}
}

// OnJoinResult reports the outcome of a join started by CONNECT_AP.
func (s *Service) OnJoinResult(res wifi.JoinResult) {
	if err := s.enqueue(event{kind: eventJoinResult, join: res}); err != nil {
		s.debugLog("service: join result dropped", "success", res.Success, "error", err)
	}
}

func (s *Service) enqueue(ev event) error {
	select {
	case <-s.stopped:
		return ErrServiceStopped
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.stopped:
		return ErrServiceStopped
	}
}

// ---------------------------------------------------------------------------
// Event handling (Run goroutine)
// ---------------------------------------------------------------------------

func (s *Service) handleEvent(ev event) {
	switch ev.kind {
	case eventConnected:
		s.handleConnected(ev.handle, ev.ctx)
	case eventDisconnected:
		s.handleDisconnected(ev.handle)
	case eventWrite:
		s.handleWrite(ev.handle, ev.data)
	case eventJoinResult:
		res := ev.join
		if s.pipe.State() == transport.PipeBusyWrite {
			s.abandonPartialFrame("join result")
		}
		if s.pipe.Available() {
			s.finishJoin(res)
		} else {
			s.pendingJoin = &res
		}
	}
}

func (s *Service) handleConnected(h transport.Handle, ctx context.Context) {
	connID := uuid.NewString()
	if !s.session.Attach(h, connID) {
		s.stats.peersRefused.Add(1)
		s.debugLog("service: refusing second peer", "handle", h, "active", s.session.Handle())
		s.logConn(h, "", "", "REFUSED", "peer already connected")
		s.cancelConn(h)
		if err := s.peripheral.Disconnect(h); err != nil {
			s.debugLog("service: disconnect refused peer", "handle", h, "error", err)
		}
		return
	}

	s.connCtx = ctx
	s.reassembler.Reset()
	s.pipe.Reset()
	if s.plog != nil {
		s.pipe.SetLogger(s.plog, connID)
		s.reassembler.SetLogger(s.plog, connID)
		s.notifier.SetLogger(s.plog, connID)
	}

	s.debugLog("service: peer connected", "handle", h, "connectionID", connID, "state", s.session.State())
	s.logConn(h, connID, "DISCONNECTED", "CONNECTED", "")
	if err := s.window.PeerConnected(); err != nil {
		s.debugLog("service: pause advertising", "error", err)
	}
}

func (s *Service) handleDisconnected(h transport.Handle) {
	if !s.session.Owns(h) {
		return
	}
	connID := s.session.ConnectionID()
	received, expected := s.reassembler.Pending()

	s.session.Detach(h)
	s.reassembler.Reset()
	s.pipe.Reset()
	s.connCtx = s.runCtx

	s.debugLog("service: peer disconnected", "handle", h, "connectionID", connID,
		"partialFrame", received, "expected", expected)
	s.logConn(h, connID, "CONNECTED", "DISCONNECTED", "")

	s.pipe.SetLogger(nil, "")
	s.reassembler.SetLogger(nil, "")
	s.notifier.SetLogger(nil, "")

	if err := s.window.PeerDisconnected(!s.provisioned); err != nil {
		s.debugLog("service: resume advertising", "error", err)
	}
}

func (s *Service) handleWrite(h transport.Handle, chunk []byte) {
	if !s.session.Owns(h) {
		s.debugLog("service: write from unknown peer", "handle", h, "size", len(chunk))
		return
	}
	frame, err := s.reassembler.Feed(chunk)
	if err != nil {
		s.stats.framesRejected.Add(1)
		s.debugLog("service: chunk rejected", "error", err, "size", len(chunk))
		return
	}
	if frame == nil {
		return
	}
	s.dispatch(frame)
}

// abandonPartialFrame drops the inbound frame being assembled so the pipe
// can carry output again.
func (s *Service) abandonPartialFrame(reason string) {
	received, expected := s.reassembler.Pending()
	s.reassembler.Reset()
	s.stats.framesRejected.Add(1)
	s.debugLog("service: partial frame abandoned", "reason", reason,
		"received", received, "expected", expected)
	s.logDrop(log.DirectionIn, log.DropIgnored, received,
		fmt.Sprintf("partial frame %d/%d: %s", received, expected, reason))
}

func (s *Service) cancelConn(h transport.Handle) {
	s.connMu.Lock()
	if cancel, ok := s.conns[h]; ok {
		cancel()
		delete(s.conns, h)
	}
	s.connMu.Unlock()
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// apply publishes a provisioning state and notifies the peer.
func (s *Service) apply(t provisioning.Transition, reason string) {
	s.status.Store(uint32(t.To.StatusCode()))
	if t.Changed() {
		s.debugLog("service: state changed", "from", t.From, "to", t.To, "reason", reason)
		s.logState(log.StateEntityProvisioning, t.From.String(), t.To.String(), reason)
	}
	s.notifyStatus(t.To)
}

func (s *Service) notifyStatus(st provisioning.State) {
	if !s.session.Connected() {
		return
	}
	err := s.notifier.NotifyValue(s.connCtx, s.session.Handle(), transport.CharStatus, []byte{byte(st.StatusCode())})
	switch {
	case err == nil:
		s.stats.notificationsSent.Add(1)
	case errors.Is(err, transport.ErrNotSubscribed):
		s.logDrop(log.DirectionOut, log.DropNotSubscribed, 1, "status "+st.String())
	default:
		s.debugLog("service: status notify failed", "error", err)
		s.logError(log.LayerLink, err, "notify status")
	}
}

// send builds m and streams it on the command characteristic.
func (s *Service) send(m wire.Message) error {
	if !s.session.Connected() {
		s.logDrop(log.DirectionOut, log.DropNotSubscribed, 0, m.Opcode().String()+": no peer")
		return transport.ErrNotSubscribed
	}
	frame, err := s.builder.Build(m)
	if err != nil {
		s.debugLog("service: build failed", "opcode", m.Opcode(), "error", err)
		s.logError(log.LayerFrame, err, "build "+m.Opcode().String())
		return err
	}
	s.logFrame(log.DirectionOut, frame[1:], summarize(m))

	err = s.notifier.Send(s.connCtx, s.session.Handle(), transport.CharCommand, frame)
	switch {
	case err == nil:
		s.stats.notificationsSent.Add(1)
	case errors.Is(err, transport.ErrNotSubscribed):
		s.logDrop(log.DirectionOut, log.DropNotSubscribed, len(frame), m.Opcode().String())
	case errors.Is(err, context.Canceled):
		s.debugLog("service: notification aborted", "opcode", m.Opcode())
	default:
		s.debugLog("service: notification failed", "opcode", m.Opcode(), "error", err)
		s.logError(log.LayerLink, err, "send "+m.Opcode().String())
	}
	return err
}

func (s *Service) relayScanResult(ap wifi.AccessPoint) {
	state := wire.APStateScanned
	if bssid, ok := s.store.ConfiguredBSSID(s.runCtx); ok && bssid.String() == ap.BSSID.String() {
		state = wire.APStateConfigured
	}
	err := s.send(wire.APDetails{
		State:    state,
		RSSI:     ap.RSSI,
		Channel:  ap.Channel,
		BSSID:    ap.BSSID,
		Security: uint32(ap.Security),
		SSID:     ap.SSID,
	})
	if err == nil {
		s.stats.scanResultsRelayed.Add(1)
	}
}

// dropScanResult runs on the scanner's goroutine.
func (s *Service) dropScanResult(ap wifi.AccessPoint) {
	s.stats.scanResultsDropped.Add(1)
	s.debugLog("service: scan result dropped", "ssid", ap.SSID, "bssid", ap.BSSID.String())
	s.logDrop(log.DirectionOut, log.DropQueueFull, 0, "scan result "+ap.SSID)
}

// finishJoin reports the join outcome to the peer and ends the session.
func (s *Service) finishJoin(res wifi.JoinResult) {
	h, connected := s.session.Handle(), s.session.Connected()

	if !res.Success {
		reason := "join failed"
		if res.Err != nil {
			reason = res.Err.Error()
		}
		s.apply(s.session.JoinFailed(), reason)
		if connected {
			s.disconnect(h)
		}
		return
	}

	s.apply(s.session.JoinSucceeded(), "joined "+res.SSID)
	_ = s.send(wire.IPConfig{
		StationIP:  res.StationIP,
		GatewayIP:  res.GatewayIP,
		GatewayMAC: res.GatewayMAC,
		SSID:       res.SSID,
	})
	s.provisioned = true
	if connected {
		s.disconnect(h)
	}
	if s.resetter != nil {
		s.debugLog("service: resetting device")
		if err := s.resetter.Reset(s.runCtx); err != nil {
			s.debugLog("service: reset failed", "error", err)
			s.logError(log.LayerSession, err, "reset")
		}
	}
}

func (s *Service) disconnect(h transport.Handle) {
	if err := s.peripheral.Disconnect(h); err != nil {
		s.debugLog("service: disconnect failed", "handle", h, "error", err)
	}
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

func (s *Service) debugLog(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Service) logEvent(ev log.Event) {
	if s.plog == nil {
		return
	}
	ev.Timestamp = time.Now()
	if ev.DeviceID == "" {
		ev.DeviceID = fmt.Sprintf("%x", s.config.DeviceID)
	}
	s.plog.Log(ev)
}

// current fills connection fields. Only valid on the Run goroutine.
func (s *Service) current(ev log.Event) log.Event {
	if s.session.Connected() {
		ev.ConnectionID = s.session.ConnectionID()
		ev.Handle = uint16(s.session.Handle())
	}
	return ev
}

func (s *Service) logConn(h transport.Handle, connID, old, new, reason string) {
	s.logEvent(log.Event{
		ConnectionID: connID,
		Handle:       uint16(h),
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: old,
			NewState: new,
			Reason:   reason,
		},
	})
}

// logState may run off the Run goroutine for window changes, so it does not
// read the session.
func (s *Service) logState(entity log.StateEntity, old, new, reason string) {
	s.logEvent(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: new,
			Reason:   reason,
		},
	})
}

func (s *Service) logFrame(dir log.Direction, body []byte, summary string) {
	if s.plog == nil || len(body) == 0 {
		return
	}
	data := make([]byte, len(body))
	copy(data, body)
	s.logEvent(s.current(log.Event{
		Direction: dir,
		Layer:     log.LayerFrame,
		Category:  log.CategoryData,
		Frame: &log.FrameEvent{
			Opcode:  body[0],
			Size:    len(body) + 1,
			Data:    data,
			Summary: summary,
		},
	}))
}

// logDrop may run on the scanner's goroutine and does not read the session.
func (s *Service) logDrop(dir log.Direction, reason log.DropReason, size int, detail string) {
	s.logEvent(log.Event{
		Direction: dir,
		Layer:     log.LayerFrame,
		Category:  log.CategoryDrop,
		Drop:      &log.DropEvent{Reason: reason, Size: size, Detail: detail},
	})
}

func (s *Service) logError(layer log.Layer, err error, context string) {
	s.logEvent(s.current(log.Event{
		Layer:    layer,
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context},
	}))
}

func summarize(v any) string {
	return fmt.Sprintf("%T%+v", v, v)
}
