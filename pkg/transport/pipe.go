package transport

import (
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/log"
)

// PipeState is the state of the single in-flight slot.
type PipeState uint8

const (
	// PipeAvailable accepts a new frame or a new response.
	PipeAvailable PipeState = iota

	// PipeBusyWrite is assembling an inbound frame.
	PipeBusyWrite

	// PipeBusyNotify is sending a chunked response.
	PipeBusyNotify
)

// String returns the pipe state name.
func (s PipeState) String() string {
	switch s {
	case PipeAvailable:
		return "AVAILABLE"
	case PipeBusyWrite:
		return "BUSY_WRITE"
	case PipeBusyNotify:
		return "BUSY_NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// Pipe serializes inbound frame assembly and outbound notification bursts.
type Pipe struct {
	state PipeState

	logger log.Logger
	connID string
}

// SetLogger records pipe transitions to logger. Pass nil to disable.
func (p *Pipe) SetLogger(logger log.Logger, connID string) {
	p.logger = logger
	p.connID = connID
}

// State returns the current state.
func (p *Pipe) State() PipeState {
	return p.state
}

// Available reports whether the pipe is free.
func (p *Pipe) Available() bool {
	return p.state == PipeAvailable
}

// Reset returns the pipe to Available.
func (p *Pipe) Reset() {
	p.set(PipeAvailable)
}

func (p *Pipe) set(s PipeState) {
	if p.state == s {
		return
	}
	old := p.state
	p.state = s
	if p.logger != nil {
		p.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: p.connID,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityPipe,
				OldState: old.String(),
				NewState: s.String(),
			},
		})
	}
}
