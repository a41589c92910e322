package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEncodeDecode(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "chunk",
			event: Event{
				Timestamp:    ts,
				ConnectionID: "c0ffee00-0000-4000-8000-000000000001",
				Direction:    DirectionIn,
				Layer:        LayerLink,
				Category:     CategoryData,
				Handle:       7,
				Chunk:        &ChunkEvent{Characteristic: 1, Size: 3, Data: []byte{0x02, 0xA0, 0x00}},
			},
		},
		{
			name: "frame",
			event: Event{
				Timestamp: ts,
				Direction: DirectionOut,
				Layer:     LayerFrame,
				Category:  CategoryData,
				DeviceID:  "WPV-00000042",
				Frame:     &FrameEvent{Opcode: 0xA3, Size: 22, Data: []byte{0xA3, 0xD0}, Summary: "NOTIFY_AP"},
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp:   ts,
				Layer:       LayerSession,
				Category:    CategoryState,
				StateChange: &StateChangeEvent{Entity: StateEntityProvisioning, OldState: "IDLE", NewState: "SCANNING"},
			},
		},
		{
			name: "drop",
			event: Event{
				Timestamp: ts,
				Layer:     LayerLink,
				Category:  CategoryDrop,
				Drop:      &DropEvent{Reason: DropMalformedLength, Size: 1},
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp: ts,
				Layer:     LayerSession,
				Category:  CategoryError,
				Error:     &ErrorEventData{Layer: LayerSession, Message: "disk full", Context: "add credentials"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			require.NoError(t, err)

			got, err := DecodeEvent(data)
			require.NoError(t, err)

			assert.True(t, tt.event.Timestamp.Equal(got.Timestamp), "timestamp: got %v, want %v", got.Timestamp, tt.event.Timestamp)
			got.Timestamp = tt.event.Timestamp
			assert.Equal(t, tt.event, got)
		})
	}
}

func TestEncoderStream(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := 0; i < 3; i++ {
		require.NoError(t, enc.Encode(Event{Handle: uint16(i + 1)}))
	}

	dec := NewDecoder(&buf)
	for i := 0; i < 3; i++ {
		var e Event
		require.NoError(t, dec.Decode(&e))
		assert.Equal(t, uint16(i+1), e.Handle)
	}
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "IN", DirectionIn.String())
	assert.Equal(t, "OUT", DirectionOut.String())
	assert.Equal(t, "LINK", LayerLink.String())
	assert.Equal(t, "SESSION", LayerSession.String())
	assert.Equal(t, "DROP", CategoryDrop.String())
	assert.Equal(t, "PIPE", StateEntityPipe.String())
	assert.Equal(t, "QUEUE_FULL", DropQueueFull.String())
	assert.Equal(t, "UNKNOWN", DropReason(200).String())
}
