package log

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T, events ...Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.plog")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		fl.Log(e)
	}
	require.NoError(t, fl.Close())
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var out []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, e)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := writeCapture(t,
		Event{Layer: LayerLink, Chunk: &ChunkEvent{Size: 3}},
		Event{Layer: LayerFrame, Frame: &FrameEvent{Opcode: 0xA0, Size: 3}},
	)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	events := readAll(t, r)
	require.Len(t, events, 2)
	assert.NotNil(t, events[0].Chunk)
	assert.Equal(t, uint8(0xA0), events[1].Frame.Opcode)
}

func TestFileLoggerAppends(t *testing.T) {
	path := writeCapture(t, Event{Handle: 1})

	fl, err := NewFileLogger(path)
	require.NoError(t, err)
	fl.Log(Event{Handle: 2})
	require.NoError(t, fl.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 2)
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "x.plog"))
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
	fl.Log(Event{}) // ignored after close
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.plog")
	fl, err := NewFileLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				fl.Log(Event{Timestamp: time.Now(), Chunk: &ChunkEvent{Size: i}})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, fl.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Len(t, readAll(t, r), 400)
}

func TestNewFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.plog"))
	assert.Error(t, err)
}
