// Command wifiprov-device is the device-side provisioning daemon.
//
// It serves the provisioning GATT service over BlueZ (or over the WebSocket
// emulator for development), scans and joins through NetworkManager (or a
// simulated radio), and exits after a successful join so the supervisor can
// restart the device in station mode.
//
// Usage:
//
//	wifiprov-device [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-device-id string       Device id, 24 hex digits
//	-firmware string        Firmware version a.b.c.d (default "1.0")
//	-release string         Release name reported in SysInfo (default "wifiprov")
//	-transport string       Transport: ble, sim (default "ble")
//	-wifi string            Wi-Fi backend: nm, sim (default "nm")
//	-listen string          Emulator listen address (default ":8765")
//	-mdns                   Advertise the emulator with mDNS (default true)
//	-db string              Credential database path (SQLite)
//	-cred-file string       Credential file path (JSON)
//	-protocol-log string    Protocol log file (.plog)
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-window-timeout dur     Close the advertising window after this long
//
// Send SIGUSR1 to reopen a closed advertising window.
//
// Examples:
//
//	# Development setup: emulator, simulated radio, protocol capture
//	wifiprov-device -transport sim -wifi sim -protocol-log /tmp/session.plog
//
//	# Production setup from a config file
//	wifiprov-device -config /etc/wifiprov/device.yaml
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/wifiprov/wifiprov-go/pkg/ble"
	"github.com/wifiprov/wifiprov-go/pkg/credstore"
	"github.com/wifiprov/wifiprov-go/pkg/discovery"
	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/service"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/version"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wifi/nm"
	"github.com/wifiprov/wifiprov-go/pkg/wifi/sim"
)

// exitProvisioned is returned after a successful join and reset.
const exitProvisioned = 3

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "wifiprov-device: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wifiprov-device: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provisioned, err := run(ctx, cfg, logger)
	if err != nil {
		logger.Error("device stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	if provisioned {
		logger.Info("provisioned, exiting for restart")
		_ = logger.Sync()
		os.Exit(exitProvisioned)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// run wires the components and blocks until ctx is done or the device was
// provisioned.
func run(ctx context.Context, cfg Config, logger *zap.Logger) (bool, error) {
	slogger := slog.New(zapslog.NewHandler(logger.Core()))

	svcCfg, err := cfg.serviceConfig()
	if err != nil {
		return false, err
	}
	svcCfg.Logger = slogger

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// Protocol capture
	var captures []log.Logger
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return false, fmt.Errorf("protocol log: %w", err)
		}
		cleanup = append(cleanup, func() { _ = fl.Close() })
		captures = append(captures, fl)
	}
	if cfg.LogLevel == "debug" {
		captures = append(captures, log.NewSlogAdapter(slogger.With("component", "protocol")))
	}
	switch len(captures) {
	case 0:
	case 1:
		svcCfg.ProtocolLogger = captures[0]
	default:
		svcCfg.ProtocolLogger = log.NewMultiLogger(captures...)
	}

	// Credential store
	var store interface {
		service.CredentialStore
		wifi.CredentialSource
		Close() error
	}
	switch {
	case cfg.CredentialDB != "":
		db, err := credstore.OpenSQLite(cfg.CredentialDB)
		if err != nil {
			return false, err
		}
		store = db
	case cfg.CredentialFile != "":
		f, err := credstore.OpenFile(cfg.CredentialFile)
		if err != nil {
			return false, err
		}
		store = f
	default:
		store = credstore.NewMemory()
	}
	cleanup = append(cleanup, func() { _ = store.Close() })

	// Wi-Fi backend
	var backend wifi.Backend
	switch cfg.WiFi {
	case WiFiNM:
		c, err := nm.New(nm.Config{
			Interface: cfg.NM.Interface,
			ScanWait:  cfg.NM.ScanWait,
			Logger:    slogger,
		})
		if err != nil {
			return false, fmt.Errorf("networkmanager: %w", err)
		}
		cleanup = append(cleanup, func() { _ = c.Close() })
		backend = c
	case WiFiSim:
		rcfg := cfg.Radio
		rcfg.Logger = slogger
		r, err := sim.New(rcfg)
		if err != nil {
			return false, fmt.Errorf("simulated radio: %w", err)
		}
		cleanup = append(cleanup, r.Wait)
		backend = r
	}

	prov := wifi.NewProvisioner(wifi.ProvisionerConfig{
		JoinTimeout: cfg.JoinTimeout,
		Logger:      slogger,
	}, backend, store, nil)
	cleanup = append(cleanup, prov.Wait)

	// Peripheral
	var (
		peripheral transport.Peripheral
		setHandler func(transport.Handler)
		start      func(context.Context) error
	)
	switch cfg.Transport {
	case TransportBLE:
		bcfg := cfg.BLE
		bcfg.Logger = slogger
		p, err := ble.New(bcfg)
		if err != nil {
			return false, err
		}
		peripheral, setHandler = p, p.SetHandler
		start = func(ctx context.Context) error {
			if err := p.Start(ctx); err != nil {
				return err
			}
			cleanup = append(cleanup, func() { _ = p.Stop() })
			return nil
		}
	case TransportSim:
		emu := transport.NewEmulator(transport.EmulatorConfig{
			Address: cfg.Emulator.Listen,
			Path:    cfg.Emulator.Path,
			Logger:  slogger,
		})
		peripheral, setHandler = emu, emu.SetHandler
		start = func(ctx context.Context) error {
			if err := emu.Start(ctx); err != nil {
				return err
			}
			cleanup = append(cleanup, emu.Wait)
			logger.Info("emulator listening", zap.String("url", emu.URL("localhost")))
			if cfg.Emulator.MDNS {
				return advertiseEmulator(ctx, cfg, svcCfg.Firmware, emu, logger, &cleanup)
			}
			return nil
		}
	}

	var provisioned atomic.Bool
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := service.New(svcCfg, service.Deps{
		Peripheral:  peripheral,
		Store:       store,
		Scanner:     backend,
		Provisioner: prov,
		Resetter: service.ResetFunc(func(context.Context) error {
			provisioned.Store(true)
			cancel()
			return nil
		}),
	})
	if err != nil {
		return false, err
	}
	prov.SetReport(svc.OnJoinResult)
	setHandler(svc)

	if err := start(ctx); err != nil {
		return false, err
	}

	logger.Info("device started",
		zap.String("device_id", hex.EncodeToString(svcCfg.DeviceID[:])),
		zap.String("firmware", svcCfg.Firmware.String()),
		zap.String("transport", cfg.Transport),
		zap.String("wifi", cfg.WiFi),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		return handleWindowSignal(gctx, svc, logger)
	})

	err = g.Wait()
	st := svc.Stats()
	logger.Info("device stopped",
		zap.String("state", svc.State().String()),
		zap.Uint64("frames", st.FramesDispatched),
		zap.Uint64("rejected", st.FramesRejected),
		zap.Uint64("notifications", st.NotificationsSent),
		zap.Uint64("scan_dropped", st.ScanResultsDropped),
	)
	return provisioned.Load(), err
}

// handleWindowSignal reopens the advertising window on SIGUSR1.
func handleWindowSignal(ctx context.Context, svc *service.Service, logger *zap.Logger) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			if err := svc.OpenWindow(); err != nil {
				logger.Warn("open window", zap.Error(err))
				continue
			}
			logger.Info("advertising window opened")
		}
	}
}

func advertiseEmulator(ctx context.Context, cfg Config, fw version.Firmware, emu *transport.Emulator, logger *zap.Logger, cleanup *[]func()) error {
	id, err := cfg.deviceID()
	if err != nil {
		return err
	}
	adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{Interface: cfg.Emulator.Interface})
	info := &discovery.EmulatorInfo{
		DeviceID: hex.EncodeToString(id[:]),
		Firmware: fw.String(),
		Release:  cfg.Release,
		Path:     emu.Path(),
		Protocol: version.Protocol,
		Port:     uint16(emu.Port()),
	}
	if err := adv.Advertise(ctx, info); err != nil {
		// The emulator is still reachable by URL.
		logger.Warn("mdns advertise", zap.Error(err))
		return nil
	}
	*cleanup = append(*cleanup, func() { _ = adv.Stop() })
	logger.Info("emulator advertised", zap.String("instance", info.InstanceName()))
	return nil
}
