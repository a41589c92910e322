package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/log"
)

// Notification errors.
var (
	ErrNotSubscribed = errors.New("peer has not enabled notifications")
	ErrValueTooLarge = errors.New("value exceeds chunk size")
)

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	// ChunkSize is the largest notification payload. Default: 20.
	ChunkSize int

	// ChunkInterval is the pause between notifications of one burst.
	// Default: 20ms. Zero after defaults disables pacing.
	ChunkInterval time.Duration
}

// Notifier streams responses to the peer as paced notifications.
type Notifier struct {
	pipe       *Pipe
	peripheral Peripheral
	chunkSize  int
	interval   time.Duration

	logger log.Logger
	connID string

	// Replaced in tests.
	newTimer func(d time.Duration) (<-chan time.Time, func() bool)
}

// NewNotifier returns a Notifier that claims pipe while sending through p.
// A zero ChunkSize selects DefaultChunkSize. A negative ChunkInterval
// disables pacing; zero selects DefaultChunkInterval.
func NewNotifier(pipe *Pipe, p Peripheral, cfg NotifierConfig) *Notifier {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkInterval == 0 {
		cfg.ChunkInterval = DefaultChunkInterval
	}
	if cfg.ChunkInterval < 0 {
		cfg.ChunkInterval = 0
	}
	return &Notifier{
		pipe:       pipe,
		peripheral: p,
		chunkSize:  cfg.ChunkSize,
		interval:   cfg.ChunkInterval,
		newTimer: func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		},
	}
}

// SetLogger records outbound chunks to logger. Pass nil to disable.
func (n *Notifier) SetLogger(logger log.Logger, connID string) {
	n.logger = logger
	n.connID = connID
}

// Send streams msg to char of h. It requires the peer to be subscribed and
// the pipe to be Available, holds the pipe BusyNotify for the burst and
// releases it when the burst ends, also on error. Cancelling ctx aborts the
// burst between chunks.
func (n *Notifier) Send(ctx context.Context, h Handle, char Characteristic, msg []byte) error {
	if !n.peripheral.Subscribed(h, char) {
		return ErrNotSubscribed
	}
	if !n.pipe.Available() {
		return fmt.Errorf("%w: %s", ErrPipeBusy, n.pipe.State())
	}

	n.pipe.set(PipeBusyNotify)
	defer n.pipe.set(PipeAvailable)

	chunks := Split(msg, n.chunkSize)
	for i, c := range chunks {
		if i > 0 && n.interval > 0 {
			if err := n.wait(ctx); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.peripheral.Notify(ctx, h, char, c); err != nil {
			return fmt.Errorf("notify chunk %d/%d: %w", i+1, len(chunks), err)
		}
		n.logChunk(char, c)
	}
	return nil
}

// NotifyValue sends a single-chunk value such as the status byte. It does
// not claim the pipe.
func (n *Notifier) NotifyValue(ctx context.Context, h Handle, char Characteristic, value []byte) error {
	if len(value) > n.chunkSize {
		return fmt.Errorf("%w: %d > %d", ErrValueTooLarge, len(value), n.chunkSize)
	}
	if !n.peripheral.Subscribed(h, char) {
		return ErrNotSubscribed
	}
	if err := n.peripheral.Notify(ctx, h, char, value); err != nil {
		return err
	}
	n.logChunk(char, value)
	return nil
}

func (n *Notifier) wait(ctx context.Context) error {
	c, stop := n.newTimer(n.interval)
	select {
	case <-c:
		return nil
	case <-ctx.Done():
		stop()
		return ctx.Err()
	}
}

func (n *Notifier) logChunk(char Characteristic, c []byte) {
	if n.logger == nil {
		return
	}
	data := make([]byte, len(c))
	copy(data, c)
	n.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: n.connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerLink,
		Category:     log.CategoryData,
		Chunk:        &log.ChunkEvent{Characteristic: uint8(char), Size: len(c), Data: data},
	})
}

// Split cuts data into consecutive slices of at most size bytes. The slices
// alias data.
func Split(data []byte, size int) [][]byte {
	if size <= 0 || len(data) == 0 {
		return nil
	}
	out := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > size {
		out = append(out, data[:size])
		data = data[size:]
	}
	return append(out, data)
}
