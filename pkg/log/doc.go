// Package log provides structured protocol logging for drivecan.
//
// This package defines the Logger interface and Event types for capturing
// bus traffic and controller activity at multiple layers (transport, frame,
// controller). It is separate from operational logging (slog) - protocol
// capture produces a complete machine-readable trace of every CAN packet,
// decoded command and state change for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/drivecan/bus.dlog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/drivecan/bus.dlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw CAN packets (PacketEvent)
//   - Frame: Decoded commands and responses (CommandEvent)
//   - Controller: Homing and motion state changes (StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Log files use CBOR encoding with .dlog extension. The drivecan-log CLI
// tool provides viewing, filtering, and export capabilities.
package log
