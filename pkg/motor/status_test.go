package motor

import "testing"

func TestDecodeMotorStatus(t *testing.T) {
	tests := []struct {
		name string
		in   byte
		want MotorStatus
	}{
		{"all clear", 0x00, MotorStatus{}},
		{"enabled", 0x01, MotorStatus{Enabled: true}},
		{"enabled in position", 0x03, MotorStatus{Enabled: true, InPosition: true}},
		{"stalled with protection", 0x0D, MotorStatus{Enabled: true, Stalled: true, StallProtection: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeMotorStatus(tt.in)
			if got != tt.want {
				t.Errorf("DecodeMotorStatus(0x%02X) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.Byte() != tt.in {
				t.Errorf("Byte() = 0x%02X, want 0x%02X", got.Byte(), tt.in)
			}
		})
	}
}

func TestMotorStatusString(t *testing.T) {
	tests := []struct {
		in   MotorStatus
		want string
	}{
		{MotorStatus{}, "disabled"},
		{MotorStatus{Enabled: true}, "enabled"},
		{MotorStatus{Enabled: true, InPosition: true}, "enabled,in-position"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDecodeHomingStatus(t *testing.T) {
	got := DecodeHomingStatus(0x87)
	want := HomingStatus{
		EncoderReady:          true,
		CalibrationTableReady: true,
		InProgress:            true,
		PositionPrecisionHigh: true,
	}
	if got != want {
		t.Errorf("DecodeHomingStatus(0x87) = %+v, want %+v", got, want)
	}
	if got.Byte() != 0x87 {
		t.Errorf("Byte() = 0x%02X, want 0x87", got.Byte())
	}
}

func TestHomingStateString(t *testing.T) {
	tests := []struct {
		in   HomingState
		want string
	}{
		{HomingIdle, "idle"},
		{HomingRequested, "requested"},
		{HomingInProgress, "in_progress"},
		{HomingCompleted, "completed"},
		{HomingFailed, "failed"},
		{HomingTimedOut, "timed_out"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("HomingState(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHomingModeString(t *testing.T) {
	tests := []struct {
		in   HomingMode
		want string
	}{
		{HomingModeNearest, "nearest"},
		{HomingModeDirectional, "directional"},
		{HomingModeCollision, "collision"},
		{HomingModeLimitSwitch, "limit_switch"},
		{HomingModeAbsoluteZero, "absolute_zero"},
		{HomingModeLastPowerDown, "last_power_down"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("HomingMode(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
