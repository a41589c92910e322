package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var out []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, event)
	}
}

func TestFilterByConnectionID(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryData},
		{Timestamp: ts, ConnectionID: "conn-2", Category: log.CategoryData},
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryState},
	}
	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "filtered.plog")

	n, err := RunFilter(path, out, FilterOptions{ConnID: "conn-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, e := range readAll(t, out) {
		if e.ConnectionID != "conn-1" {
			t.Errorf("got %s, want conn-1", e.ConnectionID)
		}
	}
}

func TestFilterByOpcode(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path := createTestLogFile(t, session(ts))
	out := filepath.Join(t.TempDir(), "frames.plog")

	n, err := RunFilter(path, out, FilterOptions{Opcode: "NOTIFY_AP"})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got := readAll(t, out)
	require.NotNil(t, got[0].Frame)
	assert.Equal(t, uint8(wire.OpNotifyAP), got[0].Frame.Opcode)
}

func TestFilterByTimeRange(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts},
		{Timestamp: ts.Add(time.Minute)},
		{Timestamp: ts.Add(2 * time.Minute)},
	}
	path := createTestLogFile(t, events)
	out := filepath.Join(t.TempDir(), "window.plog")

	n, err := RunFilter(path, out, FilterOptions{
		TimeStart: ts.Add(30 * time.Second).Format(time.RFC3339),
		TimeEnd:   ts.Add(90 * time.Second).Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFilterOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"time start", FilterOptions{TimeStart: "yesterday"}},
		{"time end", FilterOptions{TimeEnd: "2026-13-01"}},
		{"layer", FilterOptions{Layer: "transport"}},
		{"direction", FilterOptions{Direction: "up"}},
		{"category", FilterOptions{Category: "message"}},
		{"opcode", FilterOptions{Opcode: "0xzz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Build()
			assert.Error(t, err)
		})
	}
}
