package transport

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

const peerQueue = 64

// Peer drives an emulator connection from the phone side. Commands are
// encoded and chunked on the way out; command notifications are reassembled
// and decoded into messages.
type Peer struct {
	client *EmulatorClient

	pipe  Pipe
	reasm *Reassembler

	messages chan wire.Message
	statuses chan wire.StatusCode
	dropped  atomic.Uint64
	done     chan struct{}
}

// NewPeer wraps client and starts reading its notifications.
func NewPeer(client *EmulatorClient) *Peer {
	p := &Peer{
		client:   client,
		messages: make(chan wire.Message, peerQueue),
		statuses: make(chan wire.StatusCode, peerQueue),
		done:     make(chan struct{}),
	}
	p.reasm = NewReassembler(&p.pipe, wire.ScratchSize)
	go p.pump()
	return p
}

// DialPeer connects to url and subscribes to both characteristics.
func DialPeer(ctx context.Context, url string, chunkSize int) (*Peer, error) {
	c, err := DialEmulator(ctx, url, chunkSize)
	if err != nil {
		return nil, err
	}
	p := NewPeer(c)
	for _, char := range []Characteristic{CharCommand, CharStatus} {
		if err := c.Subscribe(char); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("subscribe %s: %w", char, err)
		}
	}
	return p, nil
}

// Send encodes cmd and writes it to the command characteristic.
func (p *Peer) Send(ctx context.Context, cmd wire.Command) error {
	frame, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return p.client.WriteFrame(ctx, frame)
}

// SendRaw writes pre-chunked data to the command characteristic and returns
// the status of each write.
func (p *Peer) SendRaw(ctx context.Context, chunks ...[]byte) ([]AttStatus, error) {
	out := make([]AttStatus, 0, len(chunks))
	for _, c := range chunks {
		st, err := p.client.Write(ctx, CharCommand, c)
		if err != nil {
			return out, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ReadStatus reads the status characteristic.
func (p *Peer) ReadStatus(ctx context.Context) (wire.StatusCode, error) {
	b, err := p.client.Read(ctx, CharStatus)
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: status of %d bytes", ErrUnexpectedPDU, len(b))
	}
	return wire.StatusCode(b[0]), nil
}

// Messages delivers decoded responses in order.
func (p *Peer) Messages() <-chan wire.Message {
	return p.messages
}

// Statuses delivers status notifications in order.
func (p *Peer) Statuses() <-chan wire.StatusCode {
	return p.statuses
}

// Dropped returns how many notifications could not be decoded.
func (p *Peer) Dropped() uint64 {
	return p.dropped.Load()
}

// Done is closed when the connection has ended and all notifications were
// delivered.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Close ends the connection.
func (p *Peer) Close() error {
	return p.client.Close()
}

func (p *Peer) pump() {
	defer close(p.done)
	for {
		select {
		case n := <-p.client.Notifications():
			p.handle(n)
		case <-p.client.Done():
			// Deliver what was queued before the close.
			for {
				select {
				case n := <-p.client.Notifications():
					p.handle(n)
				default:
					return
				}
			}
		}
	}
}

func (p *Peer) handle(n Notification) {
	switch n.Char {
	case CharStatus:
		if len(n.Data) != 1 {
			p.dropped.Add(1)
			return
		}
		p.statuses <- wire.StatusCode(n.Data[0])
	case CharCommand:
		body, err := p.reasm.Feed(n.Data)
		if err != nil {
			p.reasm.Reset()
			p.dropped.Add(1)
			return
		}
		if body == nil {
			return
		}
		m, err := wire.DecodeMessage(body)
		if err != nil {
			p.dropped.Add(1)
			return
		}
		p.messages <- m
	}
}
