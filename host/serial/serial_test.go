package serial

import "testing"

func TestOpenRejectsMissingDevice(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := Open(DefaultConfig("")); err == nil {
		t.Error("expected error for empty device")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" || cfg.Baud != 115200 || cfg.ReadTimeout != 100 {
		t.Errorf("config = %+v", cfg)
	}
}
