package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Emulator defaults.
const (
	DefaultEmulatorPath         = "/gatt"
	DefaultEmulatorPingInterval = 20 * time.Second
	emulatorSendQueue           = 32
)

// Emulator errors.
var (
	ErrUnknownHandle  = errors.New("unknown connection handle")
	ErrConnClosed     = errors.New("connection closed")
	ErrAlreadyRunning = errors.New("emulator already running")
	ErrNoHandler      = errors.New("no handler set")
)

// EmulatorConfig configures an Emulator.
type EmulatorConfig struct {
	// Address to listen on. Default ":0".
	Address string

	// Path of the WebSocket endpoint. Default "/gatt".
	Path string

	// PingInterval between WebSocket pings. Default 20s.
	PingInterval time.Duration

	// Logger for operational logging (optional).
	Logger *slog.Logger
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// Emulator is a GATT peripheral reachable over WebSocket. Peers connect only
// while advertising, as with a real radio.
type Emulator struct {
	config  EmulatorConfig
	handler Handler

	listener net.Listener
	httpSrv  *http.Server

	mu         sync.Mutex
	conns      map[Handle]*emuConn
	nextHandle Handle

	advertising atomic.Bool
	running     atomic.Bool
	wg          sync.WaitGroup
}

// NewEmulator returns an emulator that is not yet listening.
func NewEmulator(cfg EmulatorConfig) *Emulator {
	if cfg.Address == "" {
		cfg.Address = ":0"
	}
	if cfg.Path == "" {
		cfg.Path = DefaultEmulatorPath
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultEmulatorPingInterval
	}
	return &Emulator{
		config: cfg,
		conns:  make(map[Handle]*emuConn),
	}
}

// SetHandler installs the receiver of link events. Must be called before Start.
func (e *Emulator) SetHandler(h Handler) {
	e.handler = h
}

// Start listens and serves until Stop or ctx is done.
func (e *Emulator) Start(ctx context.Context) error {
	if e.handler == nil {
		return ErrNoHandler
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", e.config.Address)
	if err != nil {
		e.running.Store(false)
		return fmt.Errorf("listen: %w", err)
	}
	e.listener = ln

	mux := http.NewServeMux()
	mux.Handle(e.config.Path, e)
	e.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.debugLog("emulator: serve", "error", err)
		}
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		<-ctx.Done()
		_ = e.Stop()
	}()

	e.debugLog("emulator: listening", "addr", ln.Addr().String(), "path", e.config.Path)
	return nil
}

// Stop closes the listener and every connection.
func (e *Emulator) Stop() error {
	e.mu.Lock()
	if !e.running.CompareAndSwap(true, false) {
		e.mu.Unlock()
		return nil
	}
	for _, c := range e.conns {
		c.close()
	}
	e.mu.Unlock()

	return e.httpSrv.Close()
}

// Wait blocks until all emulator goroutines have exited, including the
// OnDisconnected callbacks of peers closed by Stop.
func (e *Emulator) Wait() {
	e.wg.Wait()
}

// Addr returns the listen address, nil before Start.
func (e *Emulator) Addr() net.Addr {
	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}

// Port returns the TCP port, 0 before Start.
func (e *Emulator) Port() int {
	if a, ok := e.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// URL returns the WebSocket URL for host.
func (e *Emulator) URL(host string) string {
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, fmt.Sprint(e.Port())), e.config.Path)
}

// Path returns the WebSocket endpoint path.
func (e *Emulator) Path() string {
	return e.config.Path
}

// ConnectionCount returns the number of open connections.
func (e *Emulator) ConnectionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

// Advertising reports whether new peers are accepted.
func (e *Emulator) Advertising() bool {
	return e.advertising.Load()
}

// StartAdvertising accepts new peers.
func (e *Emulator) StartAdvertising() error {
	e.advertising.Store(true)
	e.debugLog("emulator: advertising started")
	return nil
}

// StopAdvertising refuses new peers. Open connections are kept.
func (e *Emulator) StopAdvertising() error {
	e.advertising.Store(false)
	e.debugLog("emulator: advertising stopped")
	return nil
}

// Notify queues one notification for h.
func (e *Emulator) Notify(ctx context.Context, h Handle, char Characteristic, data []byte) error {
	c := e.conn(h)
	if c == nil {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return c.enqueue(ctx, EncodePDU(PDU{Kind: PDUNotify, Char: char, Data: data}))
}

// Subscribed reports whether h enabled notifications on char.
func (e *Emulator) Subscribed(h Handle, char Characteristic) bool {
	c := e.conn(h)
	if c == nil {
		return false
	}
	return c.subscribed(char)
}

// Disconnect closes the connection to h.
func (e *Emulator) Disconnect(h Handle) error {
	c := e.conn(h)
	if c == nil {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	c.disconnect()
	return nil
}

// ServeHTTP upgrades a peer connection.
func (e *Emulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Stop holds e.mu while it clears running, so no Add follows Wait.
	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	if !e.advertising.Load() {
		http.Error(w, "not advertising", http.StatusServiceUnavailable)
		return
	}
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		e.debugLog("emulator: ws upgrade", "error", err)
		return
	}

	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		_ = ws.Close()
		return
	}
	e.nextHandle++
	if e.nextHandle == 0 {
		e.nextHandle = 1
	}
	c := &emuConn{
		handle:  e.nextHandle,
		ws:      ws,
		send:    make(chan []byte, emulatorSendQueue),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		subs:    make(map[Characteristic]bool),
	}
	e.conns[c.handle] = c
	e.mu.Unlock()

	e.debugLog("emulator: peer connected", "handle", c.handle, "remote", r.RemoteAddr)

	go c.writeLoop(e.config.PingInterval)
	e.handler.OnConnected(c.handle)
	e.readLoop(c)

	e.mu.Lock()
	delete(e.conns, c.handle)
	e.mu.Unlock()
	c.close()

	e.debugLog("emulator: peer disconnected", "handle", c.handle)
	e.handler.OnDisconnected(c.handle)
}

func (e *Emulator) readLoop(c *emuConn) {
	for {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		p, err := DecodePDU(msg)
		if err != nil {
			e.debugLog("emulator: bad pdu", "handle", c.handle, "error", err)
			continue
		}

		switch p.Kind {
		case PDUWrite:
			status := e.handler.OnCharacteristicWrite(c.handle, p.Char, p.Data)
			_ = c.enqueue(context.Background(), EncodePDU(PDU{Kind: PDUWriteResp, Char: p.Char, Data: []byte{byte(status)}}))
		case PDUSubscribe:
			c.setSubscribed(p.Char, true)
		case PDUUnsubscribe:
			c.setSubscribed(p.Char, false)
		case PDUReadReq:
			value := e.handler.OnCharacteristicRead(c.handle, p.Char)
			_ = c.enqueue(context.Background(), EncodePDU(PDU{Kind: PDUReadResp, Char: p.Char, Data: value}))
		default:
			e.debugLog("emulator: unexpected pdu", "handle", c.handle, "kind", p.Kind.String())
		}
	}
}

func (e *Emulator) conn(h Handle) *emuConn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conns[h]
}

func (e *Emulator) debugLog(msg string, args ...any) {
	if e.config.Logger != nil {
		e.config.Logger.Debug(msg, args...)
	}
}

// emuConn is one WebSocket peer.
type emuConn struct {
	handle Handle
	ws     *websocket.Conn
	send   chan []byte

	closing     chan struct{}
	closingOnce sync.Once
	done        chan struct{}
	closeOnce   sync.Once

	mu   sync.Mutex
	subs map[Characteristic]bool
}

func (c *emuConn) enqueue(ctx context.Context, msg []byte) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *emuConn) writeLoop(pingInterval time.Duration) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-c.send:
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closing:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "disconnect"),
				time.Now().Add(time.Second))
			c.close()
			return
		case <-c.done:
			return
		}
	}
}

// flush writes whatever is still queued.
func (c *emuConn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// disconnect closes the connection after queued messages are written.
func (c *emuConn) disconnect() {
	c.closingOnce.Do(func() { close(c.closing) })
}

func (c *emuConn) subscribed(char Characteristic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[char]
}

func (c *emuConn) setSubscribed(char Characteristic, on bool) {
	c.mu.Lock()
	c.subs[char] = on
	c.mu.Unlock()
}

// close stops the write loop and closes the socket, which ends the read loop.
func (c *emuConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
