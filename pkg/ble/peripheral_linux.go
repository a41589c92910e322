//go:build linux

package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"

	"github.com/wifiprov/wifiprov-go/pkg/transport"
)

const (
	bluezBus         = "org.bluez"
	bluezDevice      = "org.bluez.Device1"
	propertiesIface  = "org.freedesktop.DBus.Properties"
	propertiesSignal = propertiesIface + ".PropertiesChanged"

	// unknownDevice stands for a peer that wrote before its connection was
	// seen on the bus.
	unknownDevice = "?"
)

// Peripheral serves the provisioning GATT service through BlueZ.
type Peripheral struct {
	config  Config
	uuids   UUIDs
	handler transport.Handler
	conns   *tracker

	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	command bluetooth.Characteristic
	status  bluetooth.Characteristic
	bus     *dbus.Conn
	signals chan *dbus.Signal

	writeMu sync.Mutex

	mu          sync.Mutex
	started     bool
	advertising bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// New validates cfg. No adapter is touched until Start.
func New(cfg Config) (*Peripheral, error) {
	u, err := cfg.UUIDs()
	if err != nil {
		return nil, err
	}
	return &Peripheral{
		config:  cfg,
		uuids:   u,
		conns:   newTracker(),
		adapter: bluetooth.DefaultAdapter,
	}, nil
}

// SetHandler sets the receiver of link events. Must be called before Start.
func (p *Peripheral) SetHandler(h transport.Handler) {
	p.handler = h
}

// Start enables the adapter, registers the GATT service and starts watching
// device connections. Advertising is left to StartAdvertising.
func (p *Peripheral) Start(ctx context.Context) error {
	if p.handler == nil {
		return transport.ErrNoHandler
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return transport.ErrAlreadyRunning
	}

	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}

	svc := &bluetooth.Service{
		UUID: bluetooth.NewUUID(p.uuids.Service),
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &p.command,
				UUID:   bluetooth.NewUUID(p.uuids.Command),
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission |
					bluetooth.CharacteristicNotifyPermission,
				WriteEvent: p.onWrite(transport.CharCommand),
			},
			{
				Handle: &p.status,
				UUID:   bluetooth.NewUUID(p.uuids.Status),
				Value:  p.handler.OnCharacteristicRead(0, transport.CharStatus),
				Flags: bluetooth.CharacteristicReadPermission |
					bluetooth.CharacteristicNotifyPermission,
				WriteEvent: p.onWrite(transport.CharStatus),
			},
		},
	}
	if err := p.adapter.AddService(svc); err != nil {
		return fmt.Errorf("add gatt service: %w", err)
	}

	p.adv = p.adapter.DefaultAdvertisement()
	if err := p.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.config.LocalName,
		ServiceUUIDs: []bluetooth.UUID{bluetooth.NewUUID(p.uuids.Service)},
	}); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}

	bus, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	if err := bus.AddMatchSignal(
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, bluezDevice),
	); err != nil {
		bus.Close()
		return fmt.Errorf("watch devices: %w", err)
	}
	p.bus = bus
	p.signals = make(chan *dbus.Signal, 16)
	bus.Signal(p.signals)

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.started = true
	go p.watch(ctx)

	p.debugLog("ble: service registered", "service", p.uuids.Service.String())
	return nil
}

// Stop stops advertising and connection tracking. Tracked peers are reported
// as disconnected.
func (p *Peripheral) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	if p.advertising {
		_ = p.adv.Stop()
		p.advertising = false
	}
	p.cancel()
	done := p.done
	p.mu.Unlock()

	<-done
	p.bus.RemoveSignal(p.signals)
	err := p.bus.Close()

	for _, h := range p.conns.reset() {
		p.handler.OnDisconnected(h)
	}
	return err
}

// StartAdvertising starts the default advertisement.
func (p *Peripheral) StartAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return ErrNotStarted
	}
	if p.advertising {
		return nil
	}
	if err := p.adv.Start(); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	p.advertising = true
	p.debugLog("ble: advertising started")
	return nil
}

// StopAdvertising stops the default advertisement.
func (p *Peripheral) StopAdvertising() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || !p.advertising {
		return nil
	}
	if err := p.adv.Stop(); err != nil {
		return fmt.Errorf("stop advertising: %w", err)
	}
	p.advertising = false
	p.debugLog("ble: advertising stopped")
	return nil
}

// Notify updates the characteristic value, which BlueZ sends to subscribed
// peers.
func (p *Peripheral) Notify(ctx context.Context, h transport.Handle, char transport.Characteristic, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cur, ok := p.conns.current(); !ok || cur != h {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	var err error
	switch char {
	case transport.CharCommand:
		_, err = p.command.Write(data)
	case transport.CharStatus:
		_, err = p.status.Write(data)
	default:
		return fmt.Errorf("notify %s: unknown characteristic", char)
	}
	if err != nil {
		return fmt.Errorf("notify %s: %w", char, err)
	}
	return nil
}

// Subscribed always reports true. BlueZ tracks the client configuration
// descriptor and drops notifications for peers that did not subscribe.
func (p *Peripheral) Subscribed(transport.Handle, transport.Characteristic) bool {
	return true
}

// Disconnect asks BlueZ to drop the device behind h. The handler learns about
// it from the resulting property change.
func (p *Peripheral) Disconnect(h transport.Handle) error {
	path, ok := p.conns.path(h)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if path == unknownDevice {
		if h, ok := p.conns.disconnected(path); ok {
			go p.handler.OnDisconnected(h)
		}
		return nil
	}
	call := p.bus.Object(bluezBus, dbus.ObjectPath(path)).Call(bluezDevice+".Disconnect", 0)
	if call.Err != nil {
		return fmt.Errorf("disconnect %s: %w", path, call.Err)
	}
	return nil
}

func (p *Peripheral) onWrite(char transport.Characteristic) func(bluetooth.Connection, int, []byte) {
	return func(_ bluetooth.Connection, offset int, value []byte) {
		h, ok := p.conns.current()
		if !ok {
			var fresh bool
			h, fresh = p.conns.connected(unknownDevice)
			if fresh {
				p.handler.OnConnected(h)
			}
		}
		if offset != 0 {
			p.debugLog("ble: offset write ignored", "char", char.String(), "offset", offset)
			return
		}
		data := append([]byte(nil), value...)
		if st := p.handler.OnCharacteristicWrite(h, char, data); st != transport.AttSuccess {
			// BlueZ has already acknowledged the write.
			p.debugLog("ble: write rejected", "char", char.String(), "status", st.String())
		}
	}
}

// watch forwards Device1 connection changes to the handler.
func (p *Peripheral) watch(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			path, connected, ok := connectionChange(sig)
			if !ok {
				continue
			}
			if connected {
				if h, fresh := p.conns.connected(path); fresh {
					p.debugLog("ble: device connected", "device", path, "handle", h)
					p.handler.OnConnected(h)
				}
				continue
			}
			if h, ok := p.conns.disconnected(path); ok {
				p.debugLog("ble: device disconnected", "device", path, "handle", h)
				p.handler.OnDisconnected(h)
			} else if h, ok := p.conns.disconnected(unknownDevice); ok {
				p.handler.OnDisconnected(h)
			}
		}
	}
}

// connectionChange extracts a Device1 Connected change from sig.
func connectionChange(sig *dbus.Signal) (path string, connected, ok bool) {
	if sig == nil || sig.Name != propertiesSignal || len(sig.Body) < 2 {
		return "", false, false
	}
	if iface, _ := sig.Body[0].(string); iface != bluezDevice {
		return "", false, false
	}
	changed, _ := sig.Body[1].(map[string]dbus.Variant)
	v, found := changed["Connected"]
	if !found {
		return "", false, false
	}
	connected, ok = v.Value().(bool)
	path = string(sig.Path)
	return path, connected, ok && strings.HasPrefix(path, "/org/bluez/")
}

func (p *Peripheral) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}

var _ transport.Peripheral = (*Peripheral)(nil)
