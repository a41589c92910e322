package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client errors.
var (
	ErrWriteRejected = errors.New("write rejected")
	ErrUnexpectedPDU = errors.New("unexpected response pdu")
)

// Notification is one notification received by an EmulatorClient.
type Notification struct {
	Char Characteristic
	Data []byte
	At   time.Time
}

// EmulatorClient is the peer side of an Emulator connection.
type EmulatorClient struct {
	ws        *websocket.Conn
	chunkSize int

	notifications chan Notification
	responses     chan PDU

	reqMu   sync.Mutex
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// DialEmulator connects to an emulator WebSocket URL. A chunkSize of zero
// selects DefaultChunkSize.
func DialEmulator(ctx context.Context, url string, chunkSize int) (*EmulatorClient, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &EmulatorClient{
		ws:            ws,
		chunkSize:     chunkSize,
		notifications: make(chan Notification, 256),
		responses:     make(chan PDU, 1),
		done:          make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Notifications delivers notifications in arrival order.
func (c *EmulatorClient) Notifications() <-chan Notification {
	return c.notifications
}

// Done is closed when the connection ends, including a device-side disconnect.
func (c *EmulatorClient) Done() <-chan struct{} {
	return c.done
}

// Subscribe enables notifications on char.
func (c *EmulatorClient) Subscribe(char Characteristic) error {
	return c.send(PDU{Kind: PDUSubscribe, Char: char})
}

// Unsubscribe disables notifications on char.
func (c *EmulatorClient) Unsubscribe(char Characteristic) error {
	return c.send(PDU{Kind: PDUUnsubscribe, Char: char})
}

// Write performs one attribute write and returns the device's ATT status.
func (c *EmulatorClient) Write(ctx context.Context, char Characteristic, data []byte) (AttStatus, error) {
	p, err := c.request(ctx, PDU{Kind: PDUWrite, Char: char, Data: data}, PDUWriteResp)
	if err != nil {
		return 0, err
	}
	if len(p.Data) != 1 {
		return 0, fmt.Errorf("%w: write response of %d bytes", ErrUnexpectedPDU, len(p.Data))
	}
	return AttStatus(p.Data[0]), nil
}

// WriteFrame splits frame into chunks and writes them to the command
// characteristic in order.
func (c *EmulatorClient) WriteFrame(ctx context.Context, frame []byte) error {
	for _, chunk := range Split(frame, c.chunkSize) {
		status, err := c.Write(ctx, CharCommand, chunk)
		if err != nil {
			return err
		}
		if status != AttSuccess {
			return fmt.Errorf("%w: %s", ErrWriteRejected, status)
		}
	}
	return nil
}

// Read reads the current value of char.
func (c *EmulatorClient) Read(ctx context.Context, char Characteristic) ([]byte, error) {
	p, err := c.request(ctx, PDU{Kind: PDUReadReq, Char: char}, PDUReadResp)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}

// Close ends the connection.
func (c *EmulatorClient) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.shutdown()
}

func (c *EmulatorClient) request(ctx context.Context, p PDU, want PDUKind) (PDU, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	if err := c.send(p); err != nil {
		return PDU{}, err
	}
	select {
	case resp := <-c.responses:
		if resp.Kind != want {
			return PDU{}, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedPDU, resp.Kind, want)
		}
		return resp, nil
	case <-c.done:
		return PDU{}, ErrConnClosed
	case <-ctx.Done():
		return PDU{}, ctx.Err()
	}
}

func (c *EmulatorClient) send(p PDU) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, EncodePDU(p))
}

func (c *EmulatorClient) readLoop() {
	defer c.shutdown()
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
			continue
		}
		switch p.Kind {
		case PDUNotify:
			n := Notification{Char: p.Char, Data: p.Data, At: time.Now()}
			select {
			case c.notifications <- n:
			case <-c.done:
				return
			}
		case PDUWriteResp, PDUReadResp:
			select {
			case c.responses <- p:
			case <-c.done:
				return
			}
		}
	}
}

func (c *EmulatorClient) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
