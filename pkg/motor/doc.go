// Package motor provides the host-side controller for a single drive
// on a CAN bus.
//
// A Controller wraps a transport.Bus and a motor address and exposes
// the drive's command set through five sub-interfaces:
//
//	ctrl := motor.NewController(bus, 1, motor.ControllerConfig{})
//	ctrl.Control() // enable, motion, stop, synchronized start
//	ctrl.Read()    // status and parameter reads
//	ctrl.Modify()  // parameter writes (validated, read-modify-write)
//	ctrl.Homing()  // homing procedure and zero-point management
//	ctrl.Trigger() // one-shot actions (calibration, factory reset)
//
// All operations take a context.Context and return errors wrapped in
// *OpError, which carries the motor address and operation name.
//
// # Synchronized motion
//
// Motion commands accept a Deferred flag. A deferred command is stored
// by the drive instead of being executed; once every participating
// motor has acknowledged its deferred command, Control().SyncMotion()
// broadcasts the start trigger and all drives begin moving in the same
// bus cycle. The bus SyncGroup tracks acknowledged deferred commands so
// a lost command can never cause a partial group start.
//
// # Homing
//
// The homing procedure is asynchronous on the drive. Homing() tracks it
// with a host-side state machine advanced only by status polls; see
// HomingState.
package motor
