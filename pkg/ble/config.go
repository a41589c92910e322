package ble

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Default UUIDs of the provisioning service.
const (
	DefaultServiceUUID = "6e400001-7772-4966-8950-726f76697369"
	DefaultCommandUUID = "6e400002-7772-4966-8950-726f76697369"
	DefaultStatusUUID  = "6e400003-7772-4966-8950-726f76697369"
)

// Errors.
var (
	ErrInvalidConfig       = errors.New("invalid ble configuration")
	ErrUnsupportedPlatform = errors.New("ble peripheral not supported on this platform")
	ErrUnknownHandle       = errors.New("unknown connection handle")
	ErrNotStarted          = errors.New("peripheral not started")
)

// Config configures a Peripheral.
type Config struct {
	// LocalName is advertised in the scan response.
	LocalName string `yaml:"local_name"`

	ServiceUUID string `yaml:"service_uuid"`
	CommandUUID string `yaml:"command_uuid"`
	StatusUUID  string `yaml:"status_uuid"`

	// Logger for operational logging (optional).
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the default UUIDs and name.
func DefaultConfig() Config {
	return Config{
		LocalName:   "wifiprov",
		ServiceUUID: DefaultServiceUUID,
		CommandUUID: DefaultCommandUUID,
		StatusUUID:  DefaultStatusUUID,
	}
}

// UUIDs holds the parsed UUIDs of a Config.
type UUIDs struct {
	Service uuid.UUID
	Command uuid.UUID
	Status  uuid.UUID
}

// Validate checks the configuration.
func (c Config) Validate() error {
	_, err := c.UUIDs()
	return err
}

// UUIDs parses the configured UUIDs. They must be distinct.
func (c Config) UUIDs() (UUIDs, error) {
	var u UUIDs
	var err error
	if u.Service, err = uuid.Parse(c.ServiceUUID); err != nil {
		return u, fmt.Errorf("%w: service uuid %q: %w", ErrInvalidConfig, c.ServiceUUID, err)
	}
	if u.Command, err = uuid.Parse(c.CommandUUID); err != nil {
		return u, fmt.Errorf("%w: command uuid %q: %w", ErrInvalidConfig, c.CommandUUID, err)
	}
	if u.Status, err = uuid.Parse(c.StatusUUID); err != nil {
		return u, fmt.Errorf("%w: status uuid %q: %w", ErrInvalidConfig, c.StatusUUID, err)
	}
	if u.Service == u.Command || u.Service == u.Status || u.Command == u.Status {
		return u, fmt.Errorf("%w: uuids must be distinct", ErrInvalidConfig)
	}
	if len(c.LocalName) > 29 {
		return u, fmt.Errorf("%w: local name longer than 29 bytes", ErrInvalidConfig)
	}
	return u, nil
}
