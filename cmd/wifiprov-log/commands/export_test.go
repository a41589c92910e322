package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wifiprov/wifiprov-go/pkg/log"
)

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path := createTestLogFile(t, session(ts))
	out := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, RunExport(path, "jsonl", out, log.Filter{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, len(session(ts)))

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Contains(t, first, "StateChange")
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	path := createTestLogFile(t, session(ts))
	out := filepath.Join(t.TempDir(), "out.csv")

	cat := log.CategoryDrop
	require.NoError(t, RunExport(path, "csv", out, log.Filter{Category: &cat}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "timestamp", rows[0][0])
	row := rows[1]
	assert.Equal(t, "1", row[2])
	assert.Equal(t, "IN", row[3])
	assert.Equal(t, "Drop", row[7])
	assert.Equal(t, "2", row[8])
	assert.Equal(t, "UNKNOWN_OPCODE", row[9])
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml"), log.Filter{})
	assert.Error(t, err)
}
