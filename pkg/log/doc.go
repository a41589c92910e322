// Package log provides structured protocol capture for the provisioning link.
//
// It is separate from operational logging (slog). Protocol capture records
// every chunk, frame and state transition on the GATT link so that a session
// can be replayed and inspected after the fact.
//
// # Basic Usage
//
//	// Console during development
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture file
//	fl, _ := log.NewFileLogger("/var/log/wifiprov/device.plog")
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Layers
//
//   - Link: attribute-sized chunks as written or notified (ChunkEvent)
//   - Frame: reassembled commands and built responses (FrameEvent)
//   - Session: connection, pipe, provisioning and advertising state (StateChangeEvent)
//
// Rejected input and queue overflow are recorded as DropEvent, failures of
// collaborators as ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with integer keys and the
// .plog extension. The wifiprov-log tool views, filters and exports them.
package log
