// Package connection provides bus adapter lifecycle management for drivecan.
//
// This package handles:
//   - Exponential backoff for adapter reconnection attempts
//   - Jitter to avoid synchronized retries across multiple buses
//   - Adapter state tracking
//   - Automatic reconnection when a serial port or gateway drops
//
// # Reconnection Strategy
//
// When an adapter is lost (serial unplug, gateway connection reset), the
// manager uses exponential backoff:
//
//  1. Initial delay: 500 milliseconds
//  2. Exponential increase: 1s, 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Continue at 30s until successful
//  5. Reset to 500ms on successful reconnection
//
// # Jitter
//
// To avoid synchronized retries when several adapters reconnect:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// Reconnecting the adapter does not retry in-flight commands; pending
// exchanges fail and callers decide whether to reissue them.
package connection
