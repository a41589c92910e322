// Command wifiprov-peer is an interactive phone-side client for the
// provisioning emulator.
//
// It connects to a wifiprov-device running with -transport sim, either at an
// explicit URL or by browsing mDNS for the first emulator, and lets you send
// provisioning commands by hand.
//
// Usage:
//
//	wifiprov-peer [flags]
//
// Flags:
//
//	-url string          Emulator URL (ws://host:port/path); browse mDNS if empty
//	-device string       Device id prefix to look for when browsing
//	-interface string    Network interface for mDNS
//	-chunk-size int      Write chunk size (default 20)
//	-timeout duration    Discovery and dial timeout (default 10s)
//
// Examples:
//
//	# First emulator on the local network
//	wifiprov-peer
//
//	# Explicit emulator
//	wifiprov-peer -url ws://127.0.0.1:8765/wifiprov
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/discovery"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
)

var (
	url       = flag.String("url", "", "Emulator URL; browse mDNS if empty")
	deviceID  = flag.String("device", "", "Device id prefix to look for when browsing")
	iface     = flag.String("interface", "", "Network interface for mDNS")
	chunkSize = flag.Int("chunk-size", transport.DefaultChunkSize, "Write chunk size")
	timeout   = flag.Duration("timeout", 10*time.Second, "Discovery and dial timeout")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "wifiprov-peer: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	target, err := resolve(ctx)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, *timeout)
	peer, err := transport.DialPeer(dialCtx, target, *chunkSize)
	cancel()
	if err != nil {
		return fmt.Errorf("connect %s: %w", target, err)
	}
	defer peer.Close()

	con, err := NewConsole(peer, target)
	if err != nil {
		return err
	}

	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	con.Run(ctx, cancelRun)
	return nil
}

// resolve returns the -url flag or the URL of the first emulator found.
func resolve(ctx context.Context) (string, error) {
	if *url != "" {
		return *url, nil
	}

	fmt.Printf("Browsing for %s emulators...\n", discovery.ServiceType)
	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{Interface: *iface})

	findCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	svc, err := browser.FindFirst(findCtx, *deviceID)
	if err != nil {
		return "", fmt.Errorf("discovery: %w", err)
	}
	fmt.Printf("Found %s (device %s, release %q)\n", svc.InstanceName, svc.DeviceID, svc.Release)
	return svc.URL()
}
