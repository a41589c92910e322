package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service constants.
const (
	// ServiceType is the DNS-SD service type of the GATT emulator.
	ServiceType = "_wifiprov._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// InstancePrefix starts every instance name.
	InstancePrefix = "wifiprov-"

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// BrowseTimeout bounds FindFirst when the context has no deadline.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys.
const (
	TXTKeyDeviceID = "id"
	TXTKeyFirmware = "fw"
	TXTKeyRelease  = "rel"
	TXTKeyPath     = "path"
	TXTKeyProtocol = "pv"
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInvalidDeviceID     = errors.New("invalid device id")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// EmulatorInfo is what an emulator advertises.
type EmulatorInfo struct {
	DeviceID string // hex
	Firmware string
	Release  string
	Path     string
	Protocol string
	Port     uint16
}

// InstanceName returns the DNS-SD instance name for info.
func (i *EmulatorInfo) InstanceName() string {
	name := InstancePrefix + i.DeviceID
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// EmulatorService is a discovered emulator.
type EmulatorService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	DeviceID string
	Firmware string
	Release  string
	Path     string
	Protocol string
}

// URL returns the WebSocket URL of the emulator using its first address.
func (s *EmulatorService) URL() (string, error) {
	if len(s.Addresses) == 0 {
		return "", fmt.Errorf("%w: %s has no address", ErrNotFound, s.InstanceName)
	}
	host := net.JoinHostPort(s.Addresses[0], strconv.Itoa(int(s.Port)))
	path := s.Path
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return "ws://" + host + path, nil
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one interface. Empty means all.
	Interface string

	// TTL of the records. Zero uses the library default.
	TTL time.Duration
}

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Interface restricts browsing to one interface. Empty means all.
	Interface string
}

// Advertiser publishes an emulator.
type Advertiser interface {
	Advertise(ctx context.Context, info *EmulatorInfo) error
	Stop() error
}

// Browser finds emulators.
type Browser interface {
	Browse(ctx context.Context) (<-chan *EmulatorService, error)
	FindFirst(ctx context.Context, deviceID string) (*EmulatorService, error)
}
