package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

func TestFormatChunkEvent(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 123456000, time.UTC)
	event := log.Event{
		Timestamp:    ts,
		ConnectionID: "7c1e2f90-5b4d-4e0a-9d61-0c2b7f3a8e11",
		Direction:    log.DirectionIn,
		Layer:        log.LayerLink,
		Category:     log.CategoryData,
		Chunk:        &log.ChunkEvent{Characteristic: uint8(transport.CharCommand), Size: 3, Data: []byte{0x02, 0xa0, 0x00}},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-03-02T09:30:00.123456Z",
		"[conn:7c1e2f90]",
		"IN  LINK Chunk",
		"Characteristic: COMMAND",
		"Size: 3 bytes",
		"Data: 02a000",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatFrameEvent(t *testing.T) {
	event := log.Event{
		Direction: log.DirectionOut,
		Layer:     log.LayerFrame,
		Frame:     &log.FrameEvent{Opcode: uint8(wire.OpNotifyIPConfig), Size: 20, Summary: "IPCONFIG HomeNet"},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	assert.Contains(t, output, "[conn:-]")
	assert.Contains(t, output, "OUT FRAME NOTIFY_IP_CONFIG")
	assert.Contains(t, output, "Summary: IPCONFIG HomeNet")
	assert.NotContains(t, output, "Data:")
}

func TestFormatStateDropError(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{StateChange: &log.StateChangeEvent{
		Entity: log.StateEntityProvisioning, NewState: "CONFIG_AP", Reason: "CONFIG_AP_ENTRY",
	}})
	formatEvent(&buf, log.Event{Drop: &log.DropEvent{Reason: log.DropOversize, Size: 200}})
	formatEvent(&buf, log.Event{Error: &log.ErrorEventData{Layer: log.LayerLink, Message: "write failed"}})
	output := buf.String()

	assert.Contains(t, output, "Entity: PROVISIONING")
	assert.Contains(t, output, "  -> CONFIG_AP")
	assert.Contains(t, output, "Reason: CONFIG_AP_ENTRY")
	assert.Contains(t, output, "Reason: OVERSIZE")
	assert.Contains(t, output, "Size: 200 bytes")
	assert.Contains(t, output, "Message: write failed")
}

func TestRunViewFilters(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path := createTestLogFile(t, session(ts))

	layer := log.LayerFrame
	dir := log.DirectionIn
	var buf bytes.Buffer
	require.NoError(t, RunView(path, log.Filter{Layer: &layer, Direction: &dir}, &buf))

	output := buf.String()
	assert.Contains(t, output, "SCAN_REQUEST")
	assert.Contains(t, output, "UNKNOWN_OPCODE")
	assert.NotContains(t, output, "NOTIFY_AP")
	assert.NotContains(t, output, "Chunk")
}

func TestRunViewMissingFile(t *testing.T) {
	err := RunView("/nonexistent/session.plog", log.Filter{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	l, err := ParseLayerFlag("Frame")
	require.NoError(t, err)
	assert.Equal(t, log.LayerFrame, l)
	_, err = ParseLayerFlag("wire")
	assert.Error(t, err)

	d, err := ParseDirectionFlag("OUT")
	require.NoError(t, err)
	assert.Equal(t, log.DirectionOut, d)
	_, err = ParseDirectionFlag("sideways")
	assert.Error(t, err)

	c, err := ParseCategoryFlag("drop")
	require.NoError(t, err)
	assert.Equal(t, log.CategoryDrop, c)
	_, err = ParseCategoryFlag("message")
	assert.Error(t, err)
}

func TestParseOpcodeFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"SCAN_REQUEST", 0xa0, false},
		{"notify_ap", 0xa3, false},
		{"0xA5", 0xa5, false},
		{"0x7f", 0x7f, false},
		{"0x100", 0, true},
		{"JOIN", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOpcodeFlag(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("got 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}
