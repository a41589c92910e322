package main

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wifiprov/wifiprov-go/pkg/wifi"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
		want wire.Command
	}{
		{"scan", "scan", nil, wire.ScanRequest{}},
		{"connect", "c", nil, wire.ConnectAP{}},
		{"sysinfo", "info", nil, wire.NotifySysInfo{}},
		{
			name: "open network",
			cmd:  "config",
			args: []string{"CafeGuest", "OPEN"},
			want: wire.ConfigAPEntry{SSID: "CafeGuest", Security: uint32(wifi.SecurityOpen)},
		},
		{
			name: "wpa2 with key and channel",
			cmd:  "cfg",
			args: []string{"HomeNet", "wpa2_aes_psk", "hunter22", "6"},
			want: wire.ConfigAPEntry{SSID: "HomeNet", Security: uint32(wifi.SecurityWPA2AESPSK), Key: "hunter22", Channel: 6},
		},
		{
			name: "hex security",
			cmd:  "config",
			args: []string{"HomeNet", "0x00400004", "hunter22"},
			want: wire.ConfigAPEntry{SSID: "HomeNet", Security: 0x00400004, Key: "hunter22"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.cmd, tt.args)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
		want error
	}{
		{"unknown", "join", nil, errUnknownCommand},
		{"missing security", "config", []string{"HomeNet"}, errUsage},
		{"too many args", "config", []string{"a", "OPEN", "k", "6", "x"}, errUsage},
		{"bad security", "config", []string{"HomeNet", "WPA9"}, nil},
		{"bad hex security", "config", []string{"HomeNet", "0xzz"}, nil},
		{"bad channel", "config", []string{"HomeNet", "OPEN", "", "300"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCommand(tt.cmd, tt.args)
			require.Error(t, err)
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseChunks(t *testing.T) {
	chunks, err := parseChunks([]string{"0201", "00"})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x02, 0x01}, {0x00}}, chunks)

	_, err = parseChunks(nil)
	assert.ErrorIs(t, err, errUsage)

	_, err = parseChunks([]string{"0g"})
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	bssid, _ := net.ParseMAC("02:00:00:00:01:01")
	gwMAC, _ := net.ParseMAC("02:00:00:00:01:fe")

	tests := []struct {
		name string
		msg  wire.Message
		want string
	}{
		{
			name: "sysinfo",
			msg: wire.SysInfo{
				DeviceID: [wire.DeviceIDLength]byte{0xde, 0xad, 0xbe, 0xef},
				Versions: [4]uint16{1, 2, 0, 7},
				Release:  "wifiprov",
			},
			want: `SYSINFO id=deadbeef0000000000000000 version=1.2.0.7 release="wifiprov"`,
		},
		{
			name: "access point",
			msg: wire.APDetails{
				State:    wire.APStateScanned,
				RSSI:     -48,
				Channel:  6,
				BSSID:    bssid,
				Security: uint32(wifi.SecurityWPA2AESPSK),
				SSID:     "HomeNet",
			},
			want: `AP SCANNED    ssid="HomeNet" bssid=02:00:00:00:01:01 rssi=-48 ch=6 security=WPA2_AES_PSK`,
		},
		{
			name: "ip config",
			msg: wire.IPConfig{
				StationIP:  net.ParseIP("192.168.50.23"),
				GatewayIP:  net.ParseIP("192.168.50.1"),
				GatewayMAC: gwMAC,
				SSID:       "HomeNet",
			},
			want: `IPCONFIG ssid="HomeNet" ip=192.168.50.23 gateway=192.168.50.1 gateway_mac=02:00:00:00:01:fe`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMessage(tt.msg); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
