// Package transport provides CAN bus access for drivecan.
//
// The central type is Bus, which serializes command/response exchanges
// over a CANConn adapter. Three adapters are provided:
//
//   - SerialConn: SLCAN-compatible USB-CAN adapters via a serial port
//   - TCPConn: CAN-over-Ethernet gateways speaking raw SLCAN over TCP
//   - Loopback: an in-memory pair for tests and the device simulator
//
// # Addressing
//
// A command for motor address A is sent on CAN ID A<<8. Commands longer
// than 8 bytes are split across consecutive IDs (A<<8+1, A<<8+2, ...),
// each carrying the function code plus up to 7 payload bytes. Responses
// arrive the same way, starting at A<<8.
//
// # Concurrency
//
// A Bus allows one exchange at a time; concurrent callers queue on an
// internal mutex. This matches the drive protocol, which has no message
// correlation: the only way to pair a response with its command is to
// keep a single exchange in flight per bus.
//
// # Retries
//
// Timed-out or corrupted exchanges are retried only for read commands,
// which are idempotent. A write that times out may still have been
// executed by the drive, so it is surfaced as an error instead.
package transport
