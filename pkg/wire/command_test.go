package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeConfigAPEntryOffsets(t *testing.T) {
	payload := []byte{
		0x06,                   // channel
		0x04, 0x00, 0x00, 0x00, // security LE
		0x05, 'M', 'y', 'N', 'e', 't',
		0x07, 'h', 'u', 'n', 't', 'e', 'r', '2',
	}
	frame := append([]byte{byte(OpConfigAPEntry)}, payload...)

	cmd, err := DecodeCommand(frame)
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	entry, ok := cmd.(ConfigAPEntry)
	if !ok {
		t.Fatalf("got %T, want ConfigAPEntry", cmd)
	}
	if entry.Channel != 6 {
		t.Errorf("Channel: got %d, want 6", entry.Channel)
	}
	if entry.Security != 0x00000004 {
		t.Errorf("Security: got 0x%08X, want 0x00000004", entry.Security)
	}
	if entry.SSID != "MyNet" {
		t.Errorf("SSID: got %q, want %q", entry.SSID, "MyNet")
	}
	if entry.Key != "hunter2" {
		t.Errorf("Key: got %q, want %q", entry.Key, "hunter2")
	}

	// Encoding the decoded entry reproduces the same bytes behind the length.
	encoded, err := EncodeCommand(entry)
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}
	if encoded[0] != byte(len(frame)) {
		t.Errorf("length byte: got %d, want %d", encoded[0], len(frame))
	}
	if !bytes.Equal(encoded[1:], frame) {
		t.Errorf("encoded: got % X, want % X", encoded[1:], frame)
	}
}

func TestDecodeConfigAPEntryRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		wantErr error
	}{
		{
			name:    "empty",
			payload: nil,
			wantErr: ErrShortPayload,
		},
		{
			name:    "below minimum",
			payload: []byte{6, 4, 0, 0, 0, 1, 'a', 0},
			wantErr: ErrShortPayload,
		},
		{
			name:    "ssid length past end",
			payload: []byte{6, 4, 0, 0, 0, 20, 'a', 'b', 'c'},
			wantErr: ErrInconsistent,
		},
		{
			name:    "key length past end",
			payload: []byte{6, 4, 0, 0, 0, 1, 'a', 9, 'k', 'e'},
			wantErr: ErrInconsistent,
		},
		{
			name:    "ssid over limit",
			payload: append([]byte{6, 4, 0, 0, 0, 33}, make([]byte, 40)...),
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "key over limit",
			payload: append([]byte{6, 4, 0, 0, 0, 1, 'a', 65}, make([]byte, 70)...),
			wantErr: ErrFieldTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := append([]byte{byte(OpConfigAPEntry)}, tt.payload...)
			cmd, err := DecodeCommand(frame)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
			if cmd != nil {
				t.Errorf("got command %v, want nil", cmd)
			}
		})
	}
}

func TestDecodeCommandVariants(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  Command
	}{
		{"scan request", []byte{0xA0}, ScanRequest{}},
		{"scan request padded", []byte{0xA0, 0x00}, ScanRequest{}},
		{"connect", []byte{0xA2, 0x00}, ConnectAP{}},
		{"sys info", []byte{0xA4, 0x00}, NotifySysInfo{}},
		{"relay-only AP type", []byte{0xA3, 0x01}, UnknownCommand{Op: OpNotifyAP, Payload: []byte{0x01}}},
		{"relay-only IP type", []byte{0xA5}, UnknownCommand{Op: OpNotifyIPConfig, Payload: []byte{}}},
		{"unknown", []byte{0x42, 0x01, 0x02}, UnknownCommand{Op: 0x42, Payload: []byte{0x01, 0x02}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand(tt.frame)
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}
			if got.Opcode() != tt.want.Opcode() {
				t.Errorf("Opcode: got %s, want %s", got.Opcode(), tt.want.Opcode())
			}
			if u, ok := tt.want.(UnknownCommand); ok {
				gu, ok := got.(UnknownCommand)
				if !ok {
					t.Fatalf("got %T, want UnknownCommand", got)
				}
				if !bytes.Equal(gu.Payload, u.Payload) {
					t.Errorf("Payload: got % X, want % X", gu.Payload, u.Payload)
				}
			} else if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := DecodeCommand(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("empty frame: got %v, want ErrEmptyFrame", err)
	}
}

func TestEncodeCommandPadsEmptyCommands(t *testing.T) {
	for _, cmd := range []Command{ScanRequest{}, ConnectAP{}, NotifySysInfo{}} {
		got, err := EncodeCommand(cmd)
		if err != nil {
			t.Fatalf("EncodeCommand(%s) failed: %v", cmd.Opcode(), err)
		}
		want := []byte{0x02, byte(cmd.Opcode()), 0x00}
		if !bytes.Equal(got, want) {
			t.Errorf("EncodeCommand(%s): got % X, want % X", cmd.Opcode(), got, want)
		}
	}
}

func TestEncodeCommandLimits(t *testing.T) {
	_, err := EncodeCommand(ConfigAPEntry{SSID: string(make([]byte, 33))})
	if !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("long ssid: got %v, want ErrFieldTooLong", err)
	}
	_, err = EncodeCommand(ConfigAPEntry{SSID: "x", Key: string(make([]byte, 65))})
	if !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("long key: got %v, want ErrFieldTooLong", err)
	}
	_, err = EncodeCommand(UnknownCommand{Op: 0x42, Payload: make([]byte, ScratchSize)})
	if !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("oversized frame: got %v, want ErrFrameTooLong", err)
	}
}

func TestFrameLengthBound(t *testing.T) {
	got, err := Frame(0x42, make([]byte, MaxFrameLength-1))
	if err != nil {
		t.Fatalf("largest frame: %v", err)
	}
	if len(got) != ScratchSize {
		t.Errorf("largest frame: got %d bytes, want %d", len(got), ScratchSize)
	}
	if got[0] != MaxFrameLength {
		t.Errorf("declared length: got %d, want %d", got[0], MaxFrameLength)
	}

	_, err = Frame(0x42, make([]byte, MaxFrameLength))
	if !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("one past largest: got %v, want ErrFrameTooLong", err)
	}
}

func TestOpcodeBare(t *testing.T) {
	for _, op := range []Opcode{OpScanRequest, OpConnectAP, OpNotifySysInfo} {
		if !op.Bare() {
			t.Errorf("%s: got false, want true", op)
		}
	}
	for _, op := range []Opcode{OpConfigAPEntry, OpNotifyAP, OpNotifyIPConfig, 0x42} {
		if op.Bare() {
			t.Errorf("%s: got true, want false", op)
		}
	}
}

func TestConfigAPEntryStringHidesKey(t *testing.T) {
	s := ConfigAPEntry{SSID: "MyNet", Key: "hunter2"}.String()
	if bytes.Contains([]byte(s), []byte("hunter2")) {
		t.Errorf("String() leaks key: %s", s)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpScanRequest, "SCAN_REQUEST"},
		{OpConfigAPEntry, "CONFIG_AP_ENTRY"},
		{OpConnectAP, "CONNECT_AP"},
		{OpNotifyAP, "NOTIFY_AP"},
		{OpNotifySysInfo, "NOTIFY_SYS_INFO"},
		{OpNotifyIPConfig, "NOTIFY_IP_CONFIG"},
		{Opcode(0x42), "UNKNOWN(0x42)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String(): got %q, want %q", uint8(tt.op), got, tt.want)
		}
	}
	if StatusConnectFailed.String() != "CONNECT_FAILED" {
		t.Errorf("StatusConnectFailed.String(): got %q", StatusConnectFailed.String())
	}
	if APStateConfigured.String() != "CONFIGURED" {
		t.Errorf("APStateConfigured.String(): got %q", APStateConfigured.String())
	}
}
