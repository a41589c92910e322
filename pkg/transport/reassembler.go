package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Link constants.
const (
	// DefaultChunkSize is the attribute payload size of the default ATT MTU.
	DefaultChunkSize = 20

	// DefaultChunkInterval separates consecutive notifications of one burst.
	DefaultChunkInterval = 20 * time.Millisecond
)

// Reassembly errors. All of them mean the chunk was discarded.
var (
	ErrEmptyChunk      = errors.New("empty chunk")
	ErrChunkTooLarge   = errors.New("chunk exceeds chunk size")
	ErrMalformedLength = errors.New("declared frame length below minimum")
	ErrFrameOversize   = errors.New("declared frame length exceeds scratch buffer")
	ErrPipeBusy        = errors.New("pipe busy")
)

// Reassembler rebuilds length-prefixed frames from attribute writes.
//
// The first chunk of a frame starts with the declared length L, which counts
// the opcode and payload. Once L bytes have been collected the frame is
// returned and the pipe is released. Bytes past L are discarded.
//
// A first chunk of exactly [0x02, op] where op takes no arguments completes
// on its own; the missing pad byte is never waited for.
type Reassembler struct {
	pipe      *Pipe
	chunkSize int

	buf      [wire.ScratchSize]byte
	expected int
	cursor   int

	logger log.Logger
	connID string
}

// NewReassembler returns a Reassembler that claims pipe while assembling.
// A chunkSize of zero selects DefaultChunkSize.
func NewReassembler(pipe *Pipe, chunkSize int) *Reassembler {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reassembler{pipe: pipe, chunkSize: chunkSize}
}

// SetLogger records chunks and drops to logger. Pass nil to disable.
func (r *Reassembler) SetLogger(logger log.Logger, connID string) {
	r.logger = logger
	r.connID = connID
}

// Pending reports the bytes collected and expected for a partial frame.
func (r *Reassembler) Pending() (received, expected int) {
	return r.cursor, r.expected
}

// Feed consumes one chunk. It returns the frame body (opcode and payload)
// when the chunk completes a frame, and nil otherwise. The returned slice is
// a copy owned by the caller.
func (r *Reassembler) Feed(chunk []byte) ([]byte, error) {
	r.logChunk(chunk)

	if len(chunk) > r.chunkSize {
		r.logDrop(log.DropChunkTooLarge, len(chunk), fmt.Sprintf("limit %d", r.chunkSize))
		return nil, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, len(chunk), r.chunkSize)
	}

	switch r.pipe.State() {
	case PipeAvailable:
		if len(chunk) == 0 {
			return nil, ErrEmptyChunk
		}
		l := int(chunk[0])
		if l < wire.MinFrameLength {
			r.logDrop(log.DropMalformedLength, len(chunk), fmt.Sprintf("declared %d", l))
			return nil, fmt.Errorf("%w: %d", ErrMalformedLength, l)
		}
		if l > wire.MaxFrameLength {
			r.logDrop(log.DropOversize, len(chunk), fmt.Sprintf("declared %d", l))
			return nil, fmt.Errorf("%w: %d", ErrFrameOversize, l)
		}
		if l == wire.MinFrameLength && len(chunk) == 2 && wire.Opcode(chunk[1]).Bare() {
			r.pipe.set(PipeBusyWrite)
			r.pipe.set(PipeAvailable)
			return []byte{chunk[1]}, nil
		}
		r.expected = l
		r.cursor = 0
		r.pipe.set(PipeBusyWrite)
		r.append(chunk[1:])

	case PipeBusyWrite:
		r.append(chunk)

	default:
		r.logDrop(log.DropIgnored, len(chunk), "pipe "+r.pipe.State().String())
		return nil, ErrPipeBusy
	}

	if r.cursor < r.expected {
		return nil, nil
	}

	frame := make([]byte, r.expected)
	copy(frame, r.buf[:r.expected])
	r.expected = 0
	r.cursor = 0
	r.pipe.set(PipeAvailable)
	return frame, nil
}

// Reset drops any partial frame and releases the pipe if it was assembling.
func (r *Reassembler) Reset() {
	r.expected = 0
	r.cursor = 0
	if r.pipe.State() == PipeBusyWrite {
		r.pipe.set(PipeAvailable)
	}
}

// append copies p at the cursor, clamped to the declared length.
func (r *Reassembler) append(p []byte) {
	room := r.expected - r.cursor
	if len(p) > room {
		r.logDrop(log.DropOverflow, len(p)-room, "bytes past declared length")
		p = p[:room]
	}
	r.cursor += copy(r.buf[r.cursor:r.expected], p)
}

func (r *Reassembler) logChunk(chunk []byte) {
	if r.logger == nil {
		return
	}
	data := make([]byte, len(chunk))
	copy(data, chunk)
	r.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerLink,
		Category:     log.CategoryData,
		Chunk: &log.ChunkEvent{
			Characteristic: uint8(CharCommand),
			Size:           len(chunk),
			Data:           data,
		},
	})
}

func (r *Reassembler) logDrop(reason log.DropReason, size int, detail string) {
	if r.logger == nil {
		return
	}
	r.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerLink,
		Category:     log.CategoryDrop,
		Drop:         &log.DropEvent{Reason: reason, Size: size, Detail: detail},
	})
}
