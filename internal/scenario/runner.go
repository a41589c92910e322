package scenario

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/credstore"
	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/service"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wifi/sim"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Runner defaults.
const (
	DefaultStepTimeout     = 2 * time.Second
	DefaultScenarioTimeout = 30 * time.Second
)

// Runner errors.
var (
	ErrTimeout      = errors.New("timed out")
	ErrNotConnected = errors.New("peer not connected")
	ErrMismatch     = errors.New("unexpected value")
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// StepTimeout applies to steps without their own timeout. Default 2s.
	StepTimeout time.Duration

	// Logger for operational logging of the device side (optional).
	Logger *slog.Logger

	// ProtocolLogger records device protocol events (optional).
	ProtocolLogger log.Logger
}

// Result is the outcome of one scenario.
type Result struct {
	ID       string
	Name     string
	Passed   bool
	Steps    []StepResult
	Duration time.Duration
}

// Failed returns the first failed step, or nil.
func (r *Result) Failed() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Err != nil {
			return &r.Steps[i]
		}
	}
	return nil
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int
	Action   string
	Err      error
	Duration time.Duration
}

// Runner executes scenarios against a fresh device per scenario.
type Runner struct {
	config RunnerConfig
}

// NewRunner returns a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	return &Runner{config: cfg}
}

// Run executes sc. The error is non-nil only when the device could not be
// set up; step failures are reported in the Result.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	timeout := DefaultScenarioTimeout
	if sc.Timeout != "" {
		d, err := time.ParseDuration(sc.Timeout)
		if err != nil {
			return nil, &LoadError{Message: "invalid timeout", Cause: err}
		}
		timeout = d
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	d, err := r.startDevice(ctx, sc)
	if err != nil {
		return nil, err
	}
	defer d.stop()

	res := &Result{ID: sc.ID, Name: sc.Name, Passed: true}
	for i, st := range sc.Steps {
		stepStart := time.Now()
		err := d.step(ctx, st, r.stepTimeout(st))
		if err != nil {
			err = fmt.Errorf("%s: %w", st.Action, err)
		}
		res.Steps = append(res.Steps, StepResult{
			Index:    i + 1,
			Action:   st.Action,
			Err:      err,
			Duration: time.Since(stepStart),
		})
		if err != nil {
			res.Passed = false
			break
		}
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (r *Runner) stepTimeout(st Step) time.Duration {
	if st.Timeout > 0 {
		return st.Timeout
	}
	return r.config.StepTimeout
}

// device is one service instance behind an emulator.
type device struct {
	svc    *service.Service
	emu    *transport.Emulator
	radio  *sim.Radio
	prov   *wifi.Provisioner
	peer   *transport.Peer
	resets chan struct{}
	cancel context.CancelFunc
}

func (r *Runner) startDevice(ctx context.Context, sc *Scenario) (*device, error) {
	radioCfg := sc.Radio
	if len(radioCfg.AccessPoints) == 0 {
		radioCfg.AccessPoints = sim.DefaultConfig().AccessPoints
	}
	radioCfg.Logger = r.config.Logger
	radio, err := sim.New(radioCfg)
	if err != nil {
		return nil, fmt.Errorf("radio: %w", err)
	}

	store := credstore.NewMemory()
	prov := wifi.NewProvisioner(wifi.ProvisionerConfig{Logger: r.config.Logger}, radio, store, nil)

	cfg := service.DefaultConfig()
	cfg.DeviceID = [wire.DeviceIDLength]byte{0xde, 0xad, 0xbe, 0xef}
	cfg.Logger = r.config.Logger
	cfg.ProtocolLogger = r.config.ProtocolLogger
	if sc.Device.Release != "" {
		cfg.Release = sc.Device.Release
	}
	if sc.Device.ChunkSize > 0 {
		cfg.ChunkSize = sc.Device.ChunkSize
	}
	if sc.Device.ChunkInterval > 0 {
		cfg.ChunkInterval = sc.Device.ChunkInterval
	}
	if sc.Device.ScanQueueSize > 0 {
		cfg.ScanQueueSize = sc.Device.ScanQueueSize
	}

	d := &device{
		radio:  radio,
		prov:   prov,
		resets: make(chan struct{}, 1),
	}
	d.emu = transport.NewEmulator(transport.EmulatorConfig{Address: "127.0.0.1:0", Logger: r.config.Logger})

	svc, err := service.New(cfg, service.Deps{
		Peripheral:  d.emu,
		Store:       store,
		Scanner:     radio,
		Provisioner: prov,
		Resetter: service.ResetFunc(func(context.Context) error {
			select {
			case d.resets <- struct{}{}:
			default:
			}
			return nil
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	d.svc = svc
	prov.SetReport(svc.OnJoinResult)
	d.emu.SetHandler(svc)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.emu.Start(runCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("emulator: %w", err)
	}
	go func() { _ = svc.Run(runCtx) }()

	if err := poll(ctx, DefaultStepTimeout, d.emu.Advertising); err != nil {
		d.stop()
		return nil, fmt.Errorf("device not advertising: %w", err)
	}
	return d, nil
}

func (d *device) stop() {
	if d.peer != nil {
		_ = d.peer.Close()
	}
	d.cancel()
	<-d.svc.Done()
	d.emu.Wait()
	d.prov.Wait()
	d.radio.Wait()
}

func (d *device) step(ctx context.Context, st Step, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch st.Action {
	case ActionConnect:
		p, err := transport.DialPeer(ctx, d.emu.URL("127.0.0.1"), 0)
		if err != nil {
			return err
		}
		d.peer = p
		return nil

	case ActionDisconnect:
		p, err := d.connected()
		if err != nil {
			return err
		}
		_ = p.Close()
		d.peer = nil
		return poll(ctx, timeout, func() bool { return d.emu.ConnectionCount() == 0 })

	case ActionSend:
		p, err := d.connected()
		if err != nil {
			return err
		}
		cmd, err := st.Command.build()
		if err != nil {
			return err
		}
		return p.Send(ctx, cmd)

	case ActionSendRaw:
		p, err := d.connected()
		if err != nil {
			return err
		}
		chunks := make([][]byte, 0, len(st.Chunks))
		for _, c := range st.Chunks {
			b, err := hex.DecodeString(c)
			if err != nil {
				return err
			}
			chunks = append(chunks, b)
		}
		statuses, err := p.SendRaw(ctx, chunks...)
		if err != nil {
			return err
		}
		for i, s := range statuses {
			if s != transport.AttSuccess {
				return fmt.Errorf("%w: chunk %d: %s", ErrMismatch, i+1, s)
			}
		}
		return nil

	case ActionExpectStatus:
		p, err := d.connected()
		if err != nil {
			return err
		}
		want, _ := parseStatus(st.Status)
		var seen []string
		for {
			select {
			case got := <-p.Statuses():
				if got == want.StatusCode() {
					return nil
				}
				seen = append(seen, got.String())
			case <-ctx.Done():
				return fmt.Errorf("%w waiting for %s (seen %v)", ErrTimeout, want, seen)
			}
		}

	case ActionReadStatus:
		p, err := d.connected()
		if err != nil {
			return err
		}
		want, _ := parseStatus(st.Status)
		got, err := p.ReadStatus(ctx)
		if err != nil {
			return err
		}
		if got != want.StatusCode() {
			return fmt.Errorf("%w: got %s, want %s", ErrMismatch, got, want)
		}
		return nil

	case ActionExpectMessages:
		p, err := d.connected()
		if err != nil {
			return err
		}
		for i, spec := range st.Messages {
			select {
			case m := <-p.Messages():
				if err := spec.match(m); err != nil {
					return fmt.Errorf("message %d: %w", i+1, err)
				}
			case <-ctx.Done():
				return fmt.Errorf("%w waiting for message %d (%s)", ErrTimeout, i+1, spec.Type)
			}
		}
		return nil

	case ActionExpectNoMessage:
		p, err := d.connected()
		if err != nil {
			return err
		}
		select {
		case m := <-p.Messages():
			return fmt.Errorf("%w: got %T", ErrMismatch, m)
		case <-time.After(st.Duration):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case ActionExpectDisconnect:
		p, err := d.connected()
		if err != nil {
			return err
		}
		select {
		case <-p.Done():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w waiting for disconnect", ErrTimeout)
		}

	case ActionExpectReset:
		select {
		case <-d.resets:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w waiting for reset", ErrTimeout)
		}

	case ActionWait:
		select {
		case <-time.After(st.Duration):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

func (d *device) connected() (*transport.Peer, error) {
	if d.peer == nil {
		return nil, ErrNotConnected
	}
	return d.peer, nil
}

// poll waits until cond holds.
func poll(ctx context.Context, timeout time.Duration, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t := time.NewTicker(5 * time.Millisecond)
	defer t.Stop()
	for !cond() {
		select {
		case <-t.C:
		case <-ctx.Done():
			return ErrTimeout
		}
	}
	return nil
}

func (c *CommandSpec) build() (wire.Command, error) {
	switch c.Type {
	case "scan_request":
		return wire.ScanRequest{}, nil
	case "connect_ap":
		return wire.ConnectAP{}, nil
	case "notify_sys_info":
		return wire.NotifySysInfo{}, nil
	case "config_ap_entry":
		sec, ok := parseSecurity(c.Security)
		if !ok {
			return nil, fmt.Errorf("unknown security %q", c.Security)
		}
		return wire.ConfigAPEntry{
			Channel:  c.Channel,
			Security: uint32(sec),
			SSID:     c.SSID,
			Key:      c.Key,
		}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q", c.Type)
	}
}

func (m MessageSpec) match(msg wire.Message) error {
	switch m.Type {
	case "ap_details":
		ap, ok := msg.(wire.APDetails)
		if !ok {
			return fmt.Errorf("%w: got %T, want APDetails", ErrMismatch, msg)
		}
		if m.SSID != "" && ap.SSID != m.SSID {
			return fmt.Errorf("%w: ssid %q, want %q", ErrMismatch, ap.SSID, m.SSID)
		}
		if m.State != "" && !strings.EqualFold(ap.State.String(), m.State) {
			return fmt.Errorf("%w: state %s, want %s", ErrMismatch, ap.State, m.State)
		}
	case "sys_info":
		si, ok := msg.(wire.SysInfo)
		if !ok {
			return fmt.Errorf("%w: got %T, want SysInfo", ErrMismatch, msg)
		}
		if m.Release != "" && si.Release != m.Release {
			return fmt.Errorf("%w: release %q, want %q", ErrMismatch, si.Release, m.Release)
		}
	case "ip_config":
		ip, ok := msg.(wire.IPConfig)
		if !ok {
			return fmt.Errorf("%w: got %T, want IPConfig", ErrMismatch, msg)
		}
		if m.SSID != "" && ip.SSID != m.SSID {
			return fmt.Errorf("%w: ssid %q, want %q", ErrMismatch, ip.SSID, m.SSID)
		}
		if m.IP != "" && ip.StationIP.String() != m.IP {
			return fmt.Errorf("%w: ip %s, want %s", ErrMismatch, ip.StationIP, m.IP)
		}
	}
	return nil
}
