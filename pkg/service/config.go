package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/version"
	"github.com/wifiprov/wifiprov-go/pkg/window"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Service errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrServiceStopped = errors.New("service stopped")
	ErrAlreadyRunning = errors.New("service already running")
)

// Config configures a Service.
type Config struct {
	// DeviceID is reported in SysInfo.
	DeviceID [wire.DeviceIDLength]byte

	// Firmware is reported in SysInfo as four version words.
	Firmware version.Firmware

	// Release is the free-form release name reported in SysInfo.
	Release string

	// ChunkSize is the attribute payload size for writes and notifications.
	ChunkSize int

	// ChunkInterval separates the notifications of one response.
	// Zero disables pacing.
	ChunkInterval time.Duration

	// ScanQueueSize bounds the scan results waiting to be relayed. Results
	// arriving while the queue is full are dropped.
	ScanQueueSize int

	// EventQueueSize is the buffer between peripheral callbacks and the
	// owning goroutine. Producers block when it is full.
	EventQueueSize int

	// WindowTimeout closes an idle advertising window. Zero keeps it open.
	WindowTimeout time.Duration

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// ProtocolLogger captures chunks, frames, state changes and drops.
	// Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Firmware:       version.MustParse("1.0"),
		Release:        "wifiprov",
		ChunkSize:      transport.DefaultChunkSize,
		ChunkInterval:  transport.DefaultChunkInterval,
		ScanQueueSize:  16,
		EventQueueSize: 64,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.ChunkSize < 1 || c.ChunkSize > wire.ScratchSize {
		return fmt.Errorf("%w: chunk size %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkInterval < 0 {
		return fmt.Errorf("%w: negative chunk interval", ErrInvalidConfig)
	}
	if c.ScanQueueSize < 1 {
		return fmt.Errorf("%w: scan queue size %d", ErrInvalidConfig, c.ScanQueueSize)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("%w: event queue size %d", ErrInvalidConfig, c.EventQueueSize)
	}
	if c.WindowTimeout != 0 && (c.WindowTimeout < window.MinTimeout || c.WindowTimeout > window.MaxTimeout) {
		return fmt.Errorf("%w: window timeout %s", ErrInvalidConfig, c.WindowTimeout)
	}

	var b wire.Builder
	if _, err := b.BuildSysInfo(c.sysInfo()); err != nil {
		return fmt.Errorf("%w: release %q: %v", ErrInvalidConfig, c.Release, err)
	}
	return nil
}

func (c *Config) sysInfo() wire.SysInfo {
	return wire.SysInfo{
		DeviceID: c.DeviceID,
		Versions: c.Firmware.Words(),
		Release:  c.Release,
	}
}
