// Package nm is a wifi.Backend for NetworkManager over the D-Bus system bus.
package nm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
)

const (
	busName       = "org.freedesktop.NetworkManager"
	rootPath      = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	ifaceDevice   = busName + ".Device"
	ifaceWireless = busName + ".Device.Wireless"
	ifaceAP       = busName + ".AccessPoint"
	ifaceActive   = busName + ".Connection.Active"
	ifaceIP4      = busName + ".IP4Config"

	deviceTypeWifi = 2

	activeStateActivated   = 2
	activeStateDeactivated = 4
)

// Errors.
var (
	ErrNoWifiDevice = errors.New("no wifi device found")
	ErrScanBusy     = errors.New("scan already running")
	ErrActivation   = errors.New("connection activation failed")
)

// Config configures a Client.
type Config struct {
	// Interface selects the wifi device by name. Empty picks the first.
	Interface string

	// ScanWait is how long results are collected after RequestScan. Default 5s.
	ScanWait time.Duration

	// PollInterval for activation state. Default 250ms.
	PollInterval time.Duration

	// ARPTable is the neighbour table used to resolve the gateway MAC.
	// Default /proc/net/arp.
	ARPTable string

	Logger *slog.Logger
}

// Client drives one NetworkManager wifi device.
type Client struct {
	config Config
	conn   *dbus.Conn
	device dbus.ObjectPath

	mu       sync.Mutex
	scanning bool
}

var _ wifi.Backend = (*Client)(nil)

// New connects to the system bus and selects the wifi device.
func New(cfg Config) (*Client, error) {
	if cfg.ScanWait <= 0 {
		cfg.ScanWait = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.ARPTable == "" {
		cfg.ARPTable = "/proc/net/arp"
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("system bus: %w", err)
	}
	c := &Client{config: cfg, conn: conn}

	dev, err := c.findDevice()
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.device = dev
	c.debugLog("nm: using device", "path", string(dev))
	return c, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) findDevice() (dbus.ObjectPath, error) {
	var devices []dbus.ObjectPath
	if err := c.conn.Object(busName, rootPath).Call(busName+".GetDevices", 0).Store(&devices); err != nil {
		return "", fmt.Errorf("GetDevices: %w", err)
	}
	for _, d := range devices {
		var typ uint32
		if err := c.prop(d, ifaceDevice, "DeviceType", &typ); err != nil || typ != deviceTypeWifi {
			continue
		}
		if c.config.Interface != "" {
			var name string
			if err := c.prop(d, ifaceDevice, "Interface", &name); err != nil || name != c.config.Interface {
				continue
			}
		}
		return d, nil
	}
	return "", ErrNoWifiDevice
}

// StartScan requests a scan and reports the access point list after ScanWait.
func (c *Client) StartScan(ctx context.Context, h wifi.ScanHandler) error {
	c.mu.Lock()
	if c.scanning {
		c.mu.Unlock()
		return ErrScanBusy
	}
	c.scanning = true
	c.mu.Unlock()

	obj := c.conn.Object(busName, c.device)
	if call := obj.CallWithContext(ctx, ifaceWireless+".RequestScan", 0, map[string]dbus.Variant{}); call.Err != nil {
		// A scan requested too soon after the last one fails; the cached
		// list is still reported.
		c.debugLog("nm: RequestScan", "error", call.Err)
	}

	go func() {
		defer func() {
			c.mu.Lock()
			c.scanning = false
			c.mu.Unlock()
			h.OnScanComplete()
		}()

		select {
		case <-time.After(c.config.ScanWait):
		case <-ctx.Done():
			return
		}

		var aps []dbus.ObjectPath
		if err := obj.Call(ifaceWireless+".GetAllAccessPoints", 0).Store(&aps); err != nil {
			c.debugLog("nm: GetAllAccessPoints", "error", err)
			return
		}
		for _, p := range aps {
			ap, err := c.accessPoint(p)
			if err != nil {
				c.debugLog("nm: access point", "path", string(p), "error", err)
				continue
			}
			h.OnScanResult(ap)
		}
	}()
	return nil
}

func (c *Client) accessPoint(p dbus.ObjectPath) (wifi.AccessPoint, error) {
	var (
		ssid              []byte
		hw                string
		strength          uint8
		freq              uint32
		flags, wpaF, rsnF uint32
	)
	for _, f := range []struct {
		name string
		dst  any
	}{
		{"Ssid", &ssid}, {"HwAddress", &hw}, {"Strength", &strength}, {"Frequency", &freq},
		{"Flags", &flags}, {"WpaFlags", &wpaF}, {"RsnFlags", &rsnF},
	} {
		if err := c.prop(p, ifaceAP, f.name, f.dst); err != nil {
			return wifi.AccessPoint{}, err
		}
	}
	bssid, err := net.ParseMAC(hw)
	if err != nil {
		return wifi.AccessPoint{}, fmt.Errorf("HwAddress %q: %w", hw, err)
	}
	if len(ssid) > 32 {
		ssid = ssid[:32]
	}
	return wifi.AccessPoint{
		SSID:     string(ssid),
		BSSID:    bssid,
		RSSI:     StrengthToRSSI(strength),
		Channel:  wifi.ChannelFromFrequency(freq),
		Security: SecurityFromFlags(flags, wpaF, rsnF),
	}, nil
}

// Join adds a connection profile for cred, activates it and waits for an
// IPv4 configuration.
func (c *Client) Join(ctx context.Context, cred wifi.Credential) (wifi.JoinResult, error) {
	settings := ConnectionSettings(cred, uuid.NewString())

	var profile, active dbus.ObjectPath
	err := c.conn.Object(busName, rootPath).
		CallWithContext(ctx, busName+".AddAndActivateConnection", 0, settings, c.device, dbus.ObjectPath("/")).
		Store(&profile, &active)
	if err != nil {
		return wifi.JoinResult{}, fmt.Errorf("AddAndActivateConnection: %w", err)
	}
	c.debugLog("nm: activating", "profile", string(profile), "active", string(active))

	if err := c.waitActivated(ctx, active); err != nil {
		return wifi.JoinResult{Err: err}, nil
	}

	res := wifi.JoinResult{Success: true, SSID: cred.SSID}

	var apPath dbus.ObjectPath
	if err := c.prop(active, ifaceActive, "SpecificObject", &apPath); err == nil && apPath != "/" {
		var hw string
		if c.prop(apPath, ifaceAP, "HwAddress", &hw) == nil {
			res.BSSID, _ = net.ParseMAC(hw)
		}
	}

	var ip4 dbus.ObjectPath
	if err := c.prop(active, ifaceActive, "Ip4Config", &ip4); err != nil {
		return wifi.JoinResult{Err: fmt.Errorf("Ip4Config: %w", err)}, nil
	}
	var addrs []map[string]dbus.Variant
	if err := c.prop(ip4, ifaceIP4, "AddressData", &addrs); err == nil && len(addrs) > 0 {
		if s, ok := addrs[0]["address"].Value().(string); ok {
			res.StationIP = net.ParseIP(s)
		}
	}
	var gw string
	if err := c.prop(ip4, ifaceIP4, "Gateway", &gw); err == nil {
		res.GatewayIP = net.ParseIP(gw)
	}
	if res.StationIP == nil || res.GatewayIP == nil {
		return wifi.JoinResult{Err: errors.New("no IPv4 configuration")}, nil
	}
	if mac, err := LookupARP(c.config.ARPTable, res.GatewayIP); err == nil {
		res.GatewayMAC = mac
	} else {
		res.GatewayMAC = make(net.HardwareAddr, 6)
		c.debugLog("nm: gateway mac", "error", err)
	}
	return res, nil
}

func (c *Client) waitActivated(ctx context.Context, active dbus.ObjectPath) error {
	t := time.NewTicker(c.config.PollInterval)
	defer t.Stop()
	for {
		var state uint32
		if err := c.prop(active, ifaceActive, "State", &state); err != nil {
			return fmt.Errorf("%w: %v", ErrActivation, err)
		}
		switch state {
		case activeStateActivated:
			return nil
		case activeStateDeactivated:
			return ErrActivation
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) prop(p dbus.ObjectPath, iface, name string, dst any) error {
	v, err := c.conn.Object(busName, p).GetProperty(iface + "." + name)
	if err != nil {
		return err
	}
	return v.Store(dst)
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}
