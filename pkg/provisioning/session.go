package provisioning

import (
	"github.com/wifiprov/wifiprov-go/pkg/transport"
)

// Transition is a state change produced by a Session method.
type Transition struct {
	From State
	To   State
}

// Changed reports whether the transition moved the state.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Session is the provisioning state of the device and the peer currently
// attached to it. The state outlives connections; the connection fields and
// the configured flag are cleared on Detach.
//
// Session is not safe for concurrent use.
type Session struct {
	state State

	handle       transport.Handle
	connectionID string
	connected    bool
	configured   bool
}

// NewSession returns a Session in StateIdle with no peer attached.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Handle returns the attached peer.
func (s *Session) Handle() transport.Handle {
	return s.handle
}

// ConnectionID returns the identifier of the attached connection.
func (s *Session) ConnectionID() string {
	return s.connectionID
}

// Connected reports whether a peer is attached.
func (s *Session) Connected() bool {
	return s.connected
}

// Configured reports whether credentials were accepted on this connection.
func (s *Session) Configured() bool {
	return s.configured
}

// Attach binds a newly connected peer. It returns false when another peer
// is already attached.
func (s *Session) Attach(h transport.Handle, connectionID string) bool {
	if s.connected {
		return false
	}
	s.handle = h
	s.connectionID = connectionID
	s.connected = true
	s.configured = false
	return true
}

// Detach clears the connection fields if h is the attached peer.
func (s *Session) Detach(h transport.Handle) bool {
	if !s.connected || s.handle != h {
		return false
	}
	s.handle = 0
	s.connectionID = ""
	s.connected = false
	s.configured = false
	return true
}

// Owns reports whether h is the attached peer.
func (s *Session) Owns(h transport.Handle) bool {
	return s.connected && s.handle == h
}

// BeginScan enters StateScanning. It returns false while a scan is running.
func (s *Session) BeginScan() (Transition, bool) {
	if s.state == StateScanning {
		return Transition{s.state, s.state}, false
	}
	return s.set(StateScanning), true
}

// AbortScan leaves StateScanning after the scan could not be started.
func (s *Session) AbortScan() Transition {
	return s.ScanFinished()
}

// ScanFinished enters StateScanComplete if a scan was running.
func (s *Session) ScanFinished() Transition {
	if s.state != StateScanning {
		return Transition{s.state, s.state}
	}
	return s.set(StateScanComplete)
}

// Configure records accepted credentials and enters StateConfigAP.
func (s *Session) Configure() Transition {
	s.configured = true
	return s.set(StateConfigAP)
}

// BeginConnect enters StateConnecting. It returns false when no credentials
// were accepted on this connection.
func (s *Session) BeginConnect() (Transition, bool) {
	if !s.configured {
		return Transition{s.state, s.state}, false
	}
	return s.set(StateConnecting), true
}

// JoinSucceeded enters StateConnected.
func (s *Session) JoinSucceeded() Transition {
	return s.set(StateConnected)
}

// JoinFailed enters StateConnectFailed.
func (s *Session) JoinFailed() Transition {
	return s.set(StateConnectFailed)
}

// CanSendSysInfo reports whether a SysInfo response may be sent.
func (s *Session) CanSendSysInfo() bool {
	return s.state != StateScanning
}

func (s *Session) set(to State) Transition {
	t := Transition{From: s.state, To: to}
	s.state = to
	return t
}
