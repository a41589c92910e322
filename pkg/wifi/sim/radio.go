// Package sim is a simulated Wi-Fi radio for development and tests.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
)

// Errors.
var (
	ErrScanBusy     = errors.New("scan already running")
	ErrUnknownSSID  = errors.New("ssid not in range")
	ErrWrongKey     = errors.New("authentication rejected")
	ErrJoinRejected = errors.New("join rejected by configuration")
)

// AccessPointConfig describes one simulated access point.
type AccessPointConfig struct {
	SSID     string `yaml:"ssid"`
	BSSID    string `yaml:"bssid"`
	RSSI     int16  `yaml:"rssi"`
	Channel  uint8  `yaml:"channel"`
	Security string `yaml:"security"`

	// Key is the expected Credential.Key. Empty accepts any key.
	Key string `yaml:"key,omitempty"`
}

// Config configures a Radio.
type Config struct {
	AccessPoints []AccessPointConfig `yaml:"access_points"`

	// ScanDelay separates scan results.
	ScanDelay time.Duration `yaml:"scan_delay"`

	// JoinDelay is how long a join takes.
	JoinDelay time.Duration `yaml:"join_delay"`

	// FailJoin makes every join fail.
	FailJoin bool `yaml:"fail_join"`

	StationIP  string `yaml:"station_ip"`
	GatewayIP  string `yaml:"gateway_ip"`
	GatewayMAC string `yaml:"gateway_mac"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns two access points and a private IPv4 network.
func DefaultConfig() Config {
	return Config{
		AccessPoints: []AccessPointConfig{
			{SSID: "HomeNet", BSSID: "02:00:00:00:01:01", RSSI: -48, Channel: 6, Security: "WPA2_AES_PSK"},
			{SSID: "CafeGuest", BSSID: "02:00:00:00:02:02", RSSI: -71, Channel: 11, Security: "OPEN"},
		},
		StationIP:  "192.168.50.23",
		GatewayIP:  "192.168.50.1",
		GatewayMAC: "02:00:00:00:01:fe",
	}
}

// Radio implements wifi.Backend without hardware.
type Radio struct {
	config Config
	aps    []wifi.AccessPoint
	keys   []string

	stationIP  net.IP
	gatewayIP  net.IP
	gatewayMAC net.HardwareAddr

	mu       sync.Mutex
	scanning bool
	scans    int
	joins    []wifi.Credential
	wg       sync.WaitGroup
}

var _ wifi.Backend = (*Radio)(nil)

// New validates cfg and returns a Radio.
func New(cfg Config) (*Radio, error) {
	r := &Radio{config: cfg}
	for i, ap := range cfg.AccessPoints {
		bssid, err := net.ParseMAC(ap.BSSID)
		if err != nil || len(bssid) != 6 {
			return nil, fmt.Errorf("access point %d: bssid %q: invalid", i, ap.BSSID)
		}
		sec, ok := wifi.ParseSecurity(ap.Security)
		if ap.Security == "" {
			sec, ok = wifi.SecurityOpen, true
		}
		if !ok {
			return nil, fmt.Errorf("access point %d: unknown security %q", i, ap.Security)
		}
		if len(ap.SSID) == 0 || len(ap.SSID) > 32 {
			return nil, fmt.Errorf("access point %d: ssid length %d", i, len(ap.SSID))
		}
		r.aps = append(r.aps, wifi.AccessPoint{
			SSID:     ap.SSID,
			BSSID:    bssid,
			RSSI:     ap.RSSI,
			Channel:  ap.Channel,
			Security: sec,
		})
		r.keys = append(r.keys, ap.Key)
	}

	var err error
	if r.stationIP, err = parseIP(cfg.StationIP, "192.168.50.23"); err != nil {
		return nil, fmt.Errorf("station_ip: %w", err)
	}
	if r.gatewayIP, err = parseIP(cfg.GatewayIP, "192.168.50.1"); err != nil {
		return nil, fmt.Errorf("gateway_ip: %w", err)
	}
	mac := cfg.GatewayMAC
	if mac == "" {
		mac = "02:00:00:00:01:fe"
	}
	if r.gatewayMAC, err = net.ParseMAC(mac); err != nil || len(r.gatewayMAC) != 6 {
		return nil, fmt.Errorf("gateway_mac %q: invalid", cfg.GatewayMAC)
	}
	return r, nil
}

func parseIP(s, def string) (net.IP, error) {
	if s == "" {
		s = def
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid address %q", s)
	}
	return ip, nil
}

// AccessPoints returns the simulated access points.
func (r *Radio) AccessPoints() []wifi.AccessPoint {
	return append([]wifi.AccessPoint(nil), r.aps...)
}

// StartScan reports every access point to h from a background goroutine.
func (r *Radio) StartScan(ctx context.Context, h wifi.ScanHandler) error {
	r.mu.Lock()
	if r.scanning {
		r.mu.Unlock()
		return ErrScanBusy
	}
	r.scanning = true
	r.scans++
	r.mu.Unlock()

	r.debugLog("sim: scan started", "aps", len(r.aps))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.scanning = false
			r.mu.Unlock()
			h.OnScanComplete()
		}()

		for i, ap := range r.aps {
			if i > 0 && r.config.ScanDelay > 0 {
				select {
				case <-time.After(r.config.ScanDelay):
				case <-ctx.Done():
					return
				}
			}
			h.OnScanResult(ap)
		}
	}()
	return nil
}

// Join simulates association and DHCP.
func (r *Radio) Join(ctx context.Context, cred wifi.Credential) (wifi.JoinResult, error) {
	r.mu.Lock()
	r.joins = append(r.joins, cred)
	r.mu.Unlock()

	if r.config.JoinDelay > 0 {
		select {
		case <-time.After(r.config.JoinDelay):
		case <-ctx.Done():
			return wifi.JoinResult{}, ctx.Err()
		}
	}

	if r.config.FailJoin {
		return wifi.JoinResult{Err: ErrJoinRejected}, nil
	}

	for i, ap := range r.aps {
		if ap.SSID != cred.SSID {
			continue
		}
		if r.keys[i] != "" && r.keys[i] != cred.Key {
			return wifi.JoinResult{Err: ErrWrongKey}, nil
		}
		return wifi.JoinResult{
			Success:    true,
			SSID:       ap.SSID,
			BSSID:      ap.BSSID,
			StationIP:  r.stationIP,
			GatewayIP:  r.gatewayIP,
			GatewayMAC: r.gatewayMAC,
		}, nil
	}
	return wifi.JoinResult{Err: fmt.Errorf("%w: %q", ErrUnknownSSID, cred.SSID)}, nil
}

// Scans returns how many scans were started.
func (r *Radio) Scans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}

// Joins returns the credentials of every join attempt.
func (r *Radio) Joins() []wifi.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]wifi.Credential(nil), r.joins...)
}

// Wait blocks until running scans have completed.
func (r *Radio) Wait() {
	r.wg.Wait()
}

func (r *Radio) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}
