package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/transport"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.plog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

// session returns the capture of one connection that scanned once.
func session(ts time.Time) []log.Event {
	const conn = "7c1e2f90-5b4d-4e0a-9d61-0c2b7f3a8e11"
	at := func(ms int) time.Time { return ts.Add(time.Duration(ms) * time.Millisecond) }
	return []log.Event{
		{
			Timestamp: at(0), Layer: log.LayerSession, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityAdvertising, OldState: "IDLE", NewState: "ADVERTISING"},
		},
		{
			Timestamp: at(10), ConnectionID: conn, Handle: 1, Layer: log.LayerSession, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityConnection, NewState: "CONNECTED"},
		},
		{
			Timestamp: at(20), ConnectionID: conn, Handle: 1, Direction: log.DirectionIn, Layer: log.LayerLink, Category: log.CategoryData,
			Chunk: &log.ChunkEvent{Characteristic: uint8(transport.CharCommand), Size: 3, Data: []byte{0x02, 0xa0, 0x00}},
		},
		{
			Timestamp: at(21), ConnectionID: conn, Handle: 1, Direction: log.DirectionIn, Layer: log.LayerFrame, Category: log.CategoryData,
			Frame: &log.FrameEvent{Opcode: uint8(wire.OpScanRequest), Size: 3, Data: []byte{0xa0, 0x00}, Summary: "SCAN_REQUEST"},
		},
		{
			Timestamp: at(22), ConnectionID: conn, Handle: 1, Layer: log.LayerSession, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityProvisioning, OldState: "IDLE", NewState: "SCANNING"},
		},
		{
			Timestamp: at(40), ConnectionID: conn, Handle: 1, Direction: log.DirectionOut, Layer: log.LayerFrame, Category: log.CategoryData,
			Frame: &log.FrameEvent{Opcode: uint8(wire.OpNotifyAP), Size: 25, Summary: "AP HomeNet"},
		},
		{
			Timestamp: at(50), ConnectionID: conn, Handle: 1, Direction: log.DirectionIn, Layer: log.LayerFrame, Category: log.CategoryDrop,
			Drop: &log.DropEvent{Reason: log.DropUnknownOpcode, Size: 2, Detail: "opcode 0x7F"},
		},
		{
			Timestamp: at(60), ConnectionID: conn, Handle: 1, Layer: log.LayerSession, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityProvisioning, OldState: "SCANNING", NewState: "SCAN_COMPLETE"},
		},
		{
			Timestamp: at(70), ConnectionID: conn, Handle: 1, Layer: log.LayerSession, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerSession, Message: "notify failed", Context: "status"},
		},
	}
}
