package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wifiprov/wifiprov-go/pkg/ble"
	"github.com/wifiprov/wifiprov-go/pkg/service"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/version"
	"github.com/wifiprov/wifiprov-go/pkg/wifi/sim"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Transport and Wi-Fi backend names.
const (
	TransportBLE = "ble"
	TransportSim = "sim"

	WiFiNM  = "nm"
	WiFiSim = "sim"
)

var errUsage = errors.New("usage")

// Config holds the daemon configuration. File values are overridden by
// flags given on the command line.
type Config struct {
	DeviceID      string        `yaml:"device_id"`
	Firmware      string        `yaml:"firmware"`
	Release       string        `yaml:"release"`
	ChunkSize     int           `yaml:"chunk_size"`
	ChunkInterval time.Duration `yaml:"chunk_interval"`
	ScanQueueSize int           `yaml:"scan_queue_size"`
	WindowTimeout time.Duration `yaml:"window_timeout"`
	JoinTimeout   time.Duration `yaml:"join_timeout"`

	Transport string         `yaml:"transport"`
	BLE       ble.Config     `yaml:"ble"`
	Emulator  EmulatorConfig `yaml:"emulator"`

	WiFi  string     `yaml:"wifi"`
	NM    NMConfig   `yaml:"nm"`
	Radio sim.Config `yaml:"radio"`

	// At most one of CredentialDB and CredentialFile is set. Neither keeps
	// the credential in memory.
	CredentialDB   string `yaml:"credential_db"`
	CredentialFile string `yaml:"credential_file"`

	ProtocolLog string `yaml:"protocol_log"`
	LogLevel    string `yaml:"log_level"`
}

// EmulatorConfig configures the WebSocket emulator used by the sim transport.
type EmulatorConfig struct {
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	MDNS      bool   `yaml:"mdns"`
	Interface string `yaml:"interface"`
}

// NMConfig configures the NetworkManager backend.
type NMConfig struct {
	Interface string        `yaml:"interface"`
	ScanWait  time.Duration `yaml:"scan_wait"`
}

func defaultConfig() Config {
	return Config{
		Firmware:      "1.0",
		Release:       "wifiprov",
		ChunkSize:     transport.DefaultChunkSize,
		ChunkInterval: transport.DefaultChunkInterval,
		ScanQueueSize: 16,
		JoinTimeout:   30 * time.Second,
		Transport:     TransportBLE,
		BLE:           ble.DefaultConfig(),
		Emulator: EmulatorConfig{
			Listen: ":8765",
			Path:   transport.DefaultEmulatorPath,
			MDNS:   true,
		},
		WiFi:     WiFiNM,
		Radio:    sim.DefaultConfig(),
		LogLevel: "info",
	}
}

// parseConfig parses args, loads the -config file and applies the flags
// that were set explicitly.
func parseConfig(args []string) (Config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("wifiprov-device", flag.ContinueOnError)
	configPath := fs.String("config", "", "Configuration file path (YAML)")
	var flags Config
	fs.StringVar(&flags.DeviceID, "device-id", "", "Device id, 24 hex digits (derived from the host name if empty)")
	fs.StringVar(&flags.Firmware, "firmware", cfg.Firmware, "Firmware version a.b.c.d")
	fs.StringVar(&flags.Release, "release", cfg.Release, "Release name reported in SysInfo")
	fs.StringVar(&flags.Transport, "transport", cfg.Transport, "Transport: ble, sim")
	fs.StringVar(&flags.WiFi, "wifi", cfg.WiFi, "Wi-Fi backend: nm, sim")
	fs.StringVar(&flags.Emulator.Listen, "listen", cfg.Emulator.Listen, "Emulator listen address (sim transport)")
	fs.BoolVar(&flags.Emulator.MDNS, "mdns", cfg.Emulator.MDNS, "Advertise the emulator with mDNS (sim transport)")
	fs.StringVar(&flags.CredentialDB, "db", "", "Credential database path (SQLite)")
	fs.StringVar(&flags.CredentialFile, "cred-file", "", "Credential file path (JSON)")
	fs.StringVar(&flags.ProtocolLog, "protocol-log", "", "Protocol log file (.plog)")
	fs.StringVar(&flags.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.DurationVar(&flags.WindowTimeout, "window-timeout", 0, "Close the advertising window after this long (0 keeps it open)")

	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", *configPath, err)
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device-id":
			cfg.DeviceID = flags.DeviceID
		case "firmware":
			cfg.Firmware = flags.Firmware
		case "release":
			cfg.Release = flags.Release
		case "transport":
			cfg.Transport = flags.Transport
		case "wifi":
			cfg.WiFi = flags.WiFi
		case "listen":
			cfg.Emulator.Listen = flags.Emulator.Listen
		case "mdns":
			cfg.Emulator.MDNS = flags.Emulator.MDNS
		case "db":
			cfg.CredentialDB = flags.CredentialDB
		case "cred-file":
			cfg.CredentialFile = flags.CredentialFile
		case "protocol-log":
			cfg.ProtocolLog = flags.ProtocolLog
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "window-timeout":
			cfg.WindowTimeout = flags.WindowTimeout
		}
	})

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Transport {
	case TransportBLE:
		if err := c.BLE.Validate(); err != nil {
			return err
		}
	case TransportSim:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.WiFi {
	case WiFiNM, WiFiSim:
	default:
		return fmt.Errorf("unknown wifi backend %q", c.WiFi)
	}
	if c.CredentialDB != "" && c.CredentialFile != "" {
		return errors.New("credential_db and credential_file are exclusive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	_, err := c.serviceConfig()
	return err
}

// deviceID parses DeviceID or derives a stable id from the host name.
func (c Config) deviceID() ([wire.DeviceIDLength]byte, error) {
	var id [wire.DeviceIDLength]byte
	if c.DeviceID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "wifiprov"
		}
		u := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host))
		copy(id[:], u[:])
		return id, nil
	}
	b, err := hex.DecodeString(c.DeviceID)
	if err != nil || len(b) != wire.DeviceIDLength {
		return id, fmt.Errorf("device id %q: want %d hex bytes", c.DeviceID, wire.DeviceIDLength)
	}
	copy(id[:], b)
	return id, nil
}

// serviceConfig builds the service configuration. Loggers are set by the
// caller.
func (c Config) serviceConfig() (service.Config, error) {
	sc := service.DefaultConfig()

	id, err := c.deviceID()
	if err != nil {
		return sc, err
	}
	sc.DeviceID = id

	fw, err := version.Parse(c.Firmware)
	if err != nil {
		return sc, fmt.Errorf("firmware: %w", err)
	}
	sc.Firmware = fw
	sc.Release = c.Release
	sc.ChunkSize = c.ChunkSize
	sc.ChunkInterval = c.ChunkInterval
	sc.ScanQueueSize = c.ScanQueueSize
	sc.WindowTimeout = c.WindowTimeout

	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}
