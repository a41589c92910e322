package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

var errUsage = errors.New("usage")

// Console is the interactive command loop.
type Console struct {
	peer   *transport.Peer
	target string
	rl     *readline.Instance
}

// NewConsole creates a console for peer.
func NewConsole(peer *transport.Peer, target string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "peer> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{peer: peer, target: target, rl: rl}, nil
}

// Run prints notifications as they arrive and reads commands until quit,
// EOF, or the connection ends.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	fmt.Fprintf(c.rl.Stdout(), "Connected to %s\n", c.target)
	c.printHelp()

	go c.watch(ctx, cancel)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "st":
			c.cmdStatus(ctx)

		case "raw":
			c.cmdRaw(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			w, err := parseCommand(cmd, args)
			if err != nil {
				if errors.Is(err, errUnknownCommand) {
					fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
				} else {
					fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
				}
				continue
			}
			if err := c.peer.Send(ctx, w); err != nil {
				fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
			}
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Provisioning Commands:
  scan                                  Start an access point scan
  config <ssid> <security> [key] [ch]   Store credentials (security: OPEN, WPA2_AES_PSK, ... or 0x hex)
  connect                               Finish provisioning and join
  sysinfo                               Request device information

Link:
  status                                Read the status characteristic
  raw <hex> [<hex>...]                  Write raw chunks to the command characteristic

  help                                  Show this help
  quit                                  Exit`)
}

// watch prints notifications until the connection ends.
func (c *Console) watch(ctx context.Context, cancel context.CancelFunc) {
	out := c.rl.Stdout()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.peer.Messages():
			fmt.Fprintf(out, "<< %s\n", formatMessage(m))
		case s := <-c.peer.Statuses():
			fmt.Fprintf(out, "<< status %s (0x%02X)\n", s, uint8(s))
		case <-c.peer.Done():
			drain(out, c.peer)
			fmt.Fprintln(out, "Disconnected by device")
			cancel()
			c.rl.Close()
			return
		}
	}
}

// drain prints notifications still queued after the connection ended.
func drain(w io.Writer, p *transport.Peer) {
	for {
		select {
		case m := <-p.Messages():
			fmt.Fprintf(w, "<< %s\n", formatMessage(m))
		case s := <-p.Statuses():
			fmt.Fprintf(w, "<< status %s (0x%02X)\n", s, uint8(s))
		default:
			return
		}
	}
}

func (c *Console) cmdStatus(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s, err := c.peer.ReadStatus(ctx)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Read failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Status: %s (0x%02X)\n", s, uint8(s))
}

func (c *Console) cmdRaw(ctx context.Context, args []string) {
	chunks, err := parseChunks(args)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	st, err := c.peer.SendRaw(ctx, chunks...)
	for i, s := range st {
		fmt.Fprintf(c.rl.Stdout(), "chunk %d: %s\n", i, s)
	}
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
	}
}

var errUnknownCommand = errors.New("unknown command")

// parseCommand builds the provisioning command for a console line.
func parseCommand(cmd string, args []string) (wire.Command, error) {
	switch cmd {
	case "scan", "s":
		return wire.ScanRequest{}, nil
	case "connect", "c":
		return wire.ConnectAP{}, nil
	case "sysinfo", "info":
		return wire.NotifySysInfo{}, nil
	case "config", "cfg":
		return parseConfigEntry(args)
	default:
		return nil, errUnknownCommand
	}
}

// parseConfigEntry parses: <ssid> <security> [key] [channel].
func parseConfigEntry(args []string) (wire.Command, error) {
	if len(args) < 2 || len(args) > 4 {
		return nil, fmt.Errorf("%w: config <ssid> <security> [key] [channel]", errUsage)
	}
	sec, err := parseSecurity(args[1])
	if err != nil {
		return nil, err
	}
	e := wire.ConfigAPEntry{SSID: args[0], Security: uint32(sec)}
	if len(args) > 2 {
		e.Key = args[2]
	}
	if len(args) > 3 {
		ch, err := strconv.ParseUint(args[3], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q", args[3])
		}
		e.Channel = uint8(ch)
	}
	return e, nil
}

// parseSecurity accepts a security name or a 0x-prefixed code.
func parseSecurity(s string) (wifi.Security, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid security code %q", s)
		}
		return wifi.Security(v), nil
	}
	sec, ok := wifi.ParseSecurity(s)
	if !ok {
		return 0, fmt.Errorf("unknown security %q", s)
	}
	return sec, nil
}

// parseChunks decodes each argument as one hex chunk.
func parseChunks(args []string) ([][]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: raw <hex> [<hex>...]", errUsage)
	}
	out := make([][]byte, 0, len(args))
	for _, a := range args {
		b, err := hex.DecodeString(a)
		if err != nil {
			return nil, fmt.Errorf("chunk %q: %w", a, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// formatMessage renders a decoded response on one line.
func formatMessage(m wire.Message) string {
	switch v := m.(type) {
	case wire.SysInfo:
		return fmt.Sprintf("SYSINFO id=%x version=%d.%d.%d.%d release=%q",
			v.DeviceID[:], v.Versions[0], v.Versions[1], v.Versions[2], v.Versions[3], v.Release)
	case wire.APDetails:
		return fmt.Sprintf("AP %-10s ssid=%q bssid=%s rssi=%d ch=%d security=%s",
			v.State, v.SSID, v.BSSID, v.RSSI, v.Channel, wifi.Security(v.Security))
	case wire.IPConfig:
		return fmt.Sprintf("IPCONFIG ssid=%q ip=%s gateway=%s gateway_mac=%s",
			v.SSID, v.StationIP, v.GatewayIP, v.GatewayMAC)
	default:
		return m.Opcode().String()
	}
}
