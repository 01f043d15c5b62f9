// Package devicesim emulates stepper drives on a CAN bus for tests and
// for running the CLI without hardware.
//
// A Simulator implements transport.CANConn; point a transport.Bus at
// it and the full stack above runs unchanged. Each attached Motor
// keeps working and saved copies of its configuration so the
// save-to-flash and power-cycle semantics of a real drive can be
// exercised, and exposes knobs (SetStalled, FailNextHoming,
// DropResponses, CorruptResponses) for fault-path tests.
package devicesim
