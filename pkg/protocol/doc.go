// Package protocol implements the binary wire format between the client
// bridge and the server.
//
// Two message kinds flow over one WebSocket connection: location reports
// from client to server, and navigation commands from server to client.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Version      │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameReport (0x01): Client → Server location report
//   - FrameCommand (0x02): Server → Client navigation command
//   - FrameError (0x05): Error message, either direction
//
// # Encoding
//
//   - Varint: compact unsigned integers (protobuf-style)
//   - Length-prefixed: strings prefixed with their varint length
//   - Big-endian: fixed-width integers
//
// A report for "/blog?page=2" after a back navigation encodes as
//
//	[Seq: varint][Cause: 0x02][Pathname: "/blog"][Search: "?page=2"]
//
// which is 16 bytes of payload for a single-byte sequence number.
package protocol
