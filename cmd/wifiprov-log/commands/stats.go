package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/wifiprov/wifiprov-go/pkg/log"
	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	FramesByOpcode   map[uint8]int
	DropsByReason    map[log.DropReason]int
	Connections      map[string]*ConnectionStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	DeviceID  string
	Handle    uint16
	FramesIn  int
	FramesOut int
	Drops     int

	// States is the sequence of provisioning states entered.
	States []string
}

// CollectStats reads every event of path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		FramesByOpcode:   make(map[uint8]int),
		DropsByReason:    make(map[log.DropReason]int),
		Connections:      make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Frame != nil {
		s.FramesByOpcode[event.Frame.Opcode]++
	}
	if event.Drop != nil {
		s.DropsByReason[event.Drop.Reason]++
	}
	if event.Error != nil {
		s.Errors++
	}

	// Events outside a connection only count towards the totals.
	if event.ConnectionID == "" {
		return
	}
	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp, Handle: event.Handle}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.DeviceID != "" && conn.DeviceID == "" {
		conn.DeviceID = event.DeviceID
	}
	switch {
	case event.Frame != nil && event.Direction == log.DirectionIn:
		conn.FramesIn++
	case event.Frame != nil:
		conn.FramesOut++
	case event.Drop != nil:
		conn.Drops++
	case event.StateChange != nil && event.StateChange.Entity == log.StateEntityProvisioning:
		conn.States = append(conn.States, event.StateChange.NewState)
	}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Provisioning Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerLink, log.LayerFrame, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryData, log.CategoryState, log.CategoryDrop, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}

	if len(stats.FramesByOpcode) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Frames by Type:")
		ops := make([]int, 0, len(stats.FramesByOpcode))
		for op := range stats.FramesByOpcode {
			ops = append(ops, int(op))
		}
		sort.Ints(ops)
		for _, op := range ops {
			fmt.Fprintf(w, "  %-18s %d\n", wire.Opcode(op).String()+":", stats.FramesByOpcode[uint8(op)])
		}
	}

	if len(stats.DropsByReason) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Drops by Reason:")
		reasons := make([]int, 0, len(stats.DropsByReason))
		for r := range stats.DropsByReason {
			reasons = append(reasons, int(r))
		}
		sort.Ints(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %-18s %d\n", log.DropReason(r).String()+":", stats.DropsByReason[log.DropReason(r)])
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] handle %d, %d events, duration %s\n",
				shortenConnID(c.id), c.stats.Handle, c.stats.Events, duration)
			fmt.Fprintf(w, "           Frames: %d in, %d out\n", c.stats.FramesIn, c.stats.FramesOut)
			if c.stats.Drops > 0 {
				fmt.Fprintf(w, "           Drops: %d\n", c.stats.Drops)
			}
			if len(c.stats.States) > 0 {
				fmt.Fprintf(w, "           States: %s\n", strings.Join(c.stats.States, " -> "))
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

