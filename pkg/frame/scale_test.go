package frame

import (
	"errors"
	"testing"
)

func TestSpeedToWire(t *testing.T) {
	tests := []struct {
		rpm      float64
		wantSign byte
		wantMag  uint16
		wantErr  bool
	}{
		{0, 0x00, 0, false},
		{500.0, 0x00, 5000, false},
		{-2000.0, 0x01, 20000, false},
		{6553.5, 0x00, 65535, false},
		{6553.6, 0, 0, true},
		{-7000, 0, 0, true},
	}
	for _, tt := range tests {
		sign, mag, err := SpeedToWire(tt.rpm)
		if (err != nil) != tt.wantErr {
			t.Errorf("SpeedToWire(%v) error = %v, wantErr %v", tt.rpm, err, tt.wantErr)
			continue
		}
		if err != nil {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("SpeedToWire(%v) error type = %T, want *ValidationError", tt.rpm, err)
			}
			continue
		}
		if sign != tt.wantSign || mag != tt.wantMag {
			t.Errorf("SpeedToWire(%v) = (0x%02X, %d), want (0x%02X, %d)", tt.rpm, sign, mag, tt.wantSign, tt.wantMag)
		}
	}
}

func TestPositionToWire(t *testing.T) {
	sign, mag, err := PositionToWire(90.0)
	if err != nil {
		t.Fatalf("PositionToWire(90) error = %v", err)
	}
	if sign != 0x00 || mag != 900 {
		t.Errorf("PositionToWire(90) = (0x%02X, %d), want (0x00, 900)", sign, mag)
	}

	sign, mag, err = PositionToWire(-360.0)
	if err != nil {
		t.Fatalf("PositionToWire(-360) error = %v", err)
	}
	if sign != 0x01 || mag != 3600 {
		t.Errorf("PositionToWire(-360) = (0x%02X, %d), want (0x01, 3600)", sign, mag)
	}
}

func TestWireRoundTrips(t *testing.T) {
	for _, rpm := range []float64{0, 0.1, 123.4, -6553.5} {
		sign, mag, err := SpeedToWire(rpm)
		if err != nil {
			t.Fatalf("SpeedToWire(%v) error = %v", rpm, err)
		}
		if got := WireToSpeed(sign, mag); got != rpm {
			t.Errorf("speed round trip %v -> %v", rpm, got)
		}
	}
	for _, deg := range []float64{0, 719.3, -0.1, 429496729.5} {
		sign, mag, err := PositionToWire(deg)
		if err != nil {
			t.Fatalf("PositionToWire(%v) error = %v", deg, err)
		}
		if got := WireToPosition(sign, mag); got != deg {
			t.Errorf("position round trip %v -> %v", deg, got)
		}
	}
}

func TestWireToPositionError(t *testing.T) {
	// Documented example: 01 00 00 00 08 -> -0.08 degrees.
	if got := WireToPositionError(0x01, 8); got != -0.08 {
		t.Errorf("WireToPositionError = %v, want -0.08", got)
	}
}

func TestEncoderConversions(t *testing.T) {
	if got := EncoderRawToDegrees(0); got != 0 {
		t.Errorf("EncoderRawToDegrees(0) = %v, want 0", got)
	}
	if got := EncoderRawToDegrees(8192); got != 180.0 {
		t.Errorf("EncoderRawToDegrees(8192) = %v, want 180", got)
	}
	if got := EncoderCalibratedToDegrees(32768); got != 180.0 {
		t.Errorf("EncoderCalibratedToDegrees(32768) = %v, want 180", got)
	}
}

func TestByteOrderHelpers(t *testing.T) {
	b := AppendUint16(nil, 0x1234)
	b = AppendUint32(b, 0xDEADBEEF)

	if got := Uint16(b, 0); got != 0x1234 {
		t.Errorf("Uint16 = 0x%04X, want 0x1234", got)
	}
	if got := Uint32(b, 2); got != 0xDEADBEEF {
		t.Errorf("Uint32 = 0x%08X, want 0xDEADBEEF", got)
	}
}
