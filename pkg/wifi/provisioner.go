package wifi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Provisioner errors.
var (
	ErrNoCredential   = errors.New("no credential stored")
	ErrJoinInProgress = errors.New("join already in progress")
)

// CredentialSource provides the stored credential and records the network
// that was joined with it.
type CredentialSource interface {
	Credential(ctx context.Context) (Credential, error)
	RecordJoin(ctx context.Context, ssid string, bssid net.HardwareAddr) error
}

// ProvisionerConfig configures a Provisioner.
type ProvisionerConfig struct {
	// JoinTimeout bounds one join attempt. Default 30s.
	JoinTimeout time.Duration

	// Logger for operational logging (optional).
	Logger *slog.Logger
}

// Provisioner starts a join with the stored credential when provisioning is
// done and reports the outcome through a callback.
type Provisioner struct {
	config  ProvisionerConfig
	backend Backend
	source  CredentialSource
	report  func(JoinResult)

	mu      sync.Mutex
	joining bool
	wg      sync.WaitGroup
}

// NewProvisioner returns a Provisioner. report is called once per join
// attempt from the join goroutine.
func NewProvisioner(cfg ProvisionerConfig, backend Backend, source CredentialSource, report func(JoinResult)) *Provisioner {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 30 * time.Second
	}
	return &Provisioner{config: cfg, backend: backend, source: source, report: report}
}

// SetReport replaces the result callback. Must be called before the first
// ProvisioningDone.
func (p *Provisioner) SetReport(report func(JoinResult)) {
	p.report = report
}

// ProvisioningDone loads the credential and starts the join in the
// background. It fails fast when no credential is stored or a join is
// already running.
func (p *Provisioner) ProvisioningDone(ctx context.Context) error {
	cred, err := p.source.Credential(ctx)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	p.mu.Lock()
	if p.joining {
		p.mu.Unlock()
		return ErrJoinInProgress
	}
	p.joining = true
	p.mu.Unlock()

	p.debugLog("provisioner: join started", "ssid", cred.SSID, "security", cred.Security.String())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		res := p.join(cred)

		p.mu.Lock()
		p.joining = false
		p.mu.Unlock()

		if p.report != nil {
			p.report(res)
		}
	}()
	return nil
}

// Wait blocks until a running join has reported.
func (p *Provisioner) Wait() {
	p.wg.Wait()
}

func (p *Provisioner) join(cred Credential) JoinResult {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JoinTimeout)
	defer cancel()

	res, err := p.backend.Join(ctx, cred)
	if err != nil {
		p.debugLog("provisioner: join failed", "ssid", cred.SSID, "error", err)
		return JoinResult{Err: err}
	}
	if !res.Success {
		if res.Err == nil {
			res.Err = errors.New("join failed")
		}
		return res
	}
	if res.SSID == "" {
		res.SSID = cred.SSID
	}
	if err := p.source.RecordJoin(ctx, res.SSID, res.BSSID); err != nil {
		p.debugLog("provisioner: record join", "error", err)
	}
	p.debugLog("provisioner: joined", "ssid", res.SSID, "ip", res.StationIP.String())
	return res
}

func (p *Provisioner) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}
