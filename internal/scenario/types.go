// Package scenario runs YAML provisioning scenarios end to end: a device
// service behind the WebSocket emulator, a simulated radio and a scripted
// peer.
package scenario

import (
	"fmt"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/wifi/sim"
)

// Scenario is one scripted provisioning session.
type Scenario struct {
	// ID is the unique scenario identifier (e.g., "SC-SCAN-001").
	ID string `yaml:"id"`

	// Name is a human-readable name.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description,omitempty"`

	// Device overrides service defaults.
	Device DeviceConfig `yaml:"device,omitempty"`

	// Radio configures the simulated Wi-Fi radio. Without access points the
	// radio defaults are used.
	Radio sim.Config `yaml:"radio,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Timeout bounds the whole scenario (e.g., "10s").
	Timeout string `yaml:"timeout,omitempty"`

	// Tags for selecting scenarios.
	Tags []string `yaml:"tags,omitempty"`
}

// DeviceConfig holds the service settings a scenario may change.
type DeviceConfig struct {
	Release       string        `yaml:"release,omitempty"`
	ChunkSize     int           `yaml:"chunk_size,omitempty"`
	ChunkInterval time.Duration `yaml:"chunk_interval,omitempty"`
	ScanQueueSize int           `yaml:"scan_queue_size,omitempty"`
}

// Step actions.
const (
	ActionConnect          = "connect"
	ActionDisconnect       = "disconnect"
	ActionSend             = "send"
	ActionSendRaw          = "send_raw"
	ActionExpectStatus     = "expect_status"
	ActionReadStatus       = "read_status"
	ActionExpectMessages   = "expect_messages"
	ActionExpectNoMessage  = "expect_no_message"
	ActionExpectDisconnect = "expect_disconnect"
	ActionExpectReset      = "expect_reset"
	ActionWait             = "wait"
)

var knownActions = map[string]bool{
	ActionConnect: true, ActionDisconnect: true, ActionSend: true, ActionSendRaw: true,
	ActionExpectStatus: true, ActionReadStatus: true, ActionExpectMessages: true,
	ActionExpectNoMessage: true, ActionExpectDisconnect: true, ActionExpectReset: true,
	ActionWait: true,
}

// Step is a single action.
type Step struct {
	Action      string `yaml:"action"`
	Description string `yaml:"description,omitempty"`

	// Command for send.
	Command *CommandSpec `yaml:"command,omitempty"`

	// Chunks for send_raw, hex encoded, written one per attribute write.
	Chunks []string `yaml:"chunks,omitempty"`

	// Status for expect_status and read_status (e.g., "SCANNING").
	Status string `yaml:"status,omitempty"`

	// Messages for expect_messages, in order.
	Messages []MessageSpec `yaml:"messages,omitempty"`

	// Duration for wait and expect_no_message.
	Duration time.Duration `yaml:"duration,omitempty"`

	// Timeout overrides the step timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CommandSpec describes a command to send.
type CommandSpec struct {
	// Type is scan_request, config_ap_entry, connect_ap or notify_sys_info.
	Type string `yaml:"type"`

	SSID     string `yaml:"ssid,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Security string `yaml:"security,omitempty"`
	Channel  uint8  `yaml:"channel,omitempty"`
}

// MessageSpec describes an expected response. Empty fields are not checked.
type MessageSpec struct {
	// Type is ap_details, sys_info or ip_config.
	Type string `yaml:"type"`

	SSID    string `yaml:"ssid,omitempty"`
	State   string `yaml:"state,omitempty"`
	Release string `yaml:"release,omitempty"`
	IP      string `yaml:"ip,omitempty"`
}

// LoadError provides details about a scenario loading error.
type LoadError struct {
	// File is the path that failed to load.
	File string

	// Step is the 1-based step index, 0 if not step specific.
	Step int

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Step > 0 {
		msg = fmt.Sprintf("step %d: %s", e.Step, msg)
	}
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
