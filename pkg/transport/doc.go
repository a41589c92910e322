// Package transport moves provisioning frames over a GATT link.
//
// Attribute writes arrive as chunks of at most ChunkSize bytes. The
// Reassembler turns them back into frames. Responses leave through the
// Notifier, which splits them into chunks and paces the notifications so the
// peer's BLE stack is not overrun.
//
// A single Pipe guards both directions: while a frame is being assembled no
// response is sent, and while a response is being sent no new frame starts.
// Pipe, Reassembler and Notifier are not safe for concurrent use; they are
// owned by one goroutine.
//
// The package also carries a GATT emulator over WebSocket (Emulator and
// EmulatorClient). Each WebSocket binary message is one attribute operation,
// so the engine can be driven without a radio.
package transport
