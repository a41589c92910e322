//go:build !linux

package ble

import (
	"context"

	"github.com/wifiprov/wifiprov-go/pkg/transport"
)

// Peripheral is unavailable on this platform.
type Peripheral struct{}

// New returns ErrUnsupportedPlatform.
func New(cfg Config) (*Peripheral, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrUnsupportedPlatform
}

func (p *Peripheral) SetHandler(transport.Handler) {}
func (p *Peripheral) Start(context.Context) error { return ErrUnsupportedPlatform }
func (p *Peripheral) Stop() error { return nil }
func (p *Peripheral) StartAdvertising() error { return ErrUnsupportedPlatform }
func (p *Peripheral) StopAdvertising() error { return nil }
func (p *Peripheral) Disconnect(transport.Handle) error { return ErrUnsupportedPlatform }

func (p *Peripheral) Notify(context.Context, transport.Handle, transport.Characteristic, []byte) error {
	return ErrUnsupportedPlatform
}

func (p *Peripheral) Subscribed(transport.Handle, transport.Characteristic) bool { return false }

var _ transport.Peripheral = (*Peripheral)(nil)
