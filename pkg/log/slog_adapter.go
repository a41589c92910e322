package log

import (
	"context"
	"log/slog"

	"github.com/wifiprov/wifiprov-go/pkg/wire"
)

// SlogAdapter writes events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns an adapter over logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}

	switch {
	case event.Chunk != nil:
		attrs = append(attrs,
			slog.Int("char", int(event.Chunk.Characteristic)),
			slog.Int("size", event.Chunk.Size),
		)
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("opcode", wire.Opcode(event.Frame.Opcode).String()),
			slog.Int("size", event.Frame.Size),
		)
		if event.Frame.Summary != "" {
			attrs = append(attrs, slog.String("summary", event.Frame.Summary))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Drop != nil:
		attrs = append(attrs,
			slog.String("reason", event.Drop.Reason.String()),
			slog.Int("size", event.Drop.Size),
		)
		if event.Drop.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Drop.Detail))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
