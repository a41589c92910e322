package service

import (
	"errors"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// dispatch decodes a reassembled frame and runs the command. The pipe is
// Available again when dispatch is called.
func (s *Service) dispatch(frame []byte) {
	cmd, err := wire.DecodeCommand(frame)
	if err != nil {
		s.stats.framesRejected.Add(1)
		s.debugLog("dispatch: invalid command", "opcode", wire.Opcode(frame[0]), "error", err)
		s.logDrop(log.DirectionIn, log.DropInvalidCommand, len(frame)+1, err.Error())
		return
	}
	s.logFrame(log.DirectionIn, frame, summarize(cmd))

	switch c := cmd.(type) {
	case wire.ScanRequest:
		s.stats.framesDispatched.Add(1)
		s.handleScanRequest()
	case wire.ConfigAPEntry:
		s.stats.framesDispatched.Add(1)
		s.handleConfigAPEntry(c)
	case wire.ConnectAP:
		s.stats.framesDispatched.Add(1)
		s.handleConnectAP()
	case wire.NotifySysInfo:
		s.stats.framesDispatched.Add(1)
		s.handleNotifySysInfo()
	case wire.UnknownCommand:
		s.stats.unknownOpcodes.Add(1)
		s.debugLog("dispatch: unknown opcode", "opcode", c.Op, "payload", len(c.Payload))
		s.logDrop(log.DirectionIn, log.DropUnknownOpcode, len(frame)+1, c.Op.String())
	}
}

func (s *Service) handleScanRequest() {
	t, ok := s.session.BeginScan()
	if !ok {
		s.ignore(wire.OpScanRequest, "scan in progress")
		return
	}
	s.apply(t, "scan requested")

	if err := s.scanner.StartScan(s.runCtx, s.relay); err != nil {
		s.debugLog("dispatch: start scan failed", "error", err)
		s.logError(log.LayerSession, err, "start scan")
		s.apply(s.session.AbortScan(), "scan failed: "+err.Error())
	}
}

func (s *Service) handleConfigAPEntry(entry wire.ConfigAPEntry) {
	if err := s.store.AddCredentials(s.connCtx, entry); err != nil {
		s.debugLog("dispatch: credentials rejected", "ssid", entry.SSID, "error", err)
		s.logError(log.LayerSession, err, "add credentials")
		return
	}
	s.debugLog("dispatch: credentials stored", "ssid", entry.SSID, "channel", entry.Channel,
		"security", wifi.Security(entry.Security).String())
	s.apply(s.session.Configure(), "credentials for "+entry.SSID)
}

func (s *Service) handleConnectAP() {
	t, ok := s.session.BeginConnect()
	if !ok {
		s.ignore(wire.OpConnectAP, "not configured")
		return
	}
	s.apply(t, "connect requested")

	err := s.provisioner.ProvisioningDone(s.runCtx)
	switch {
	case err == nil:
	case errors.Is(err, wifi.ErrJoinInProgress):
		s.debugLog("dispatch: join already running")
	default:
		s.debugLog("dispatch: provisioning failed", "error", err)
		s.finishJoin(wifi.JoinResult{Err: err})
	}
}

func (s *Service) handleNotifySysInfo() {
	if !s.session.CanSendSysInfo() {
		s.ignore(wire.OpNotifySysInfo, "scan in progress")
		return
	}
	_ = s.send(s.config.sysInfo())
}

func (s *Service) ignore(op wire.Opcode, reason string) {
	s.debugLog("dispatch: command ignored", "opcode", op, "reason", reason, "state", s.session.State())
	s.logDrop(log.DirectionIn, log.DropIgnored, 0, op.String()+": "+reason)
}
