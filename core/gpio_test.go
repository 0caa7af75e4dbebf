package core

import "testing"

func TestMaskOf(t *testing.T) {
	m := MaskOf(13, 14)
	if m != 1<<13|1<<14 {
		t.Errorf("MaskOf(13, 14) = %#x", uint64(m))
	}
	if !m.Has(13) || !m.Has(14) || m.Has(12) {
		t.Errorf("Has() wrong for mask %#x", uint64(m))
	}
	if MaskOf(64) != 0 {
		t.Error("pin 64 should be ignored")
	}
}

func TestConfigurePinsRejectsUnsupportedModes(t *testing.T) {
	drv := newMockGPIO()
	cases := []PinConfig{
		{Mask: MaskOf(1), Mode: PinModeInput},
		{Mask: MaskOf(1), Mode: PinModeOutput, PullUp: true},
		{Mask: MaskOf(1), Mode: PinModeOutput, PullDown: true},
		{Mask: MaskOf(1), Mode: PinModeOutput, IntrEnabled: true},
	}
	for i, cfg := range cases {
		if err := ConfigurePins(drv, cfg); err != ErrUnsupportedPinConfig {
			t.Errorf("case %d: expected ErrUnsupportedPinConfig, got %v", i, err)
		}
	}
	if err := ConfigurePins(drv, PinConfig{Mode: PinModeOutput}); err != ErrInvalidPin {
		t.Errorf("empty mask: expected ErrInvalidPin, got %v", err)
	}
}

func TestSignalPinsConfigure(t *testing.T) {
	drv := newMockGPIO()
	pins := NewSignalPins(drv, 14, 13)

	if err := pins.SetReading(true); err != ErrPinsNotConfigured {
		t.Errorf("SetReading before Configure: expected ErrPinsNotConfigured, got %v", err)
	}

	if err := pins.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if !drv.outputs[13] || !drv.outputs[14] {
		t.Errorf("expected pins 13 and 14 configured as outputs, got %v", drv.outputs)
	}
	if drv.levels[13] || drv.levels[14] {
		t.Error("expected both pins low after Configure")
	}

	pins.SetToggle(true)
	if !drv.levels[14] {
		t.Error("toggle pin should be high")
	}
	if err := pins.SetReading(true); err != nil {
		t.Fatalf("SetReading failed: %v", err)
	}
	if !drv.levels[13] {
		t.Error("reading pin should be high")
	}
}

func TestSignalPinsRejectSamePin(t *testing.T) {
	pins := NewSignalPins(newMockGPIO(), 5, 5)
	if err := pins.Configure(); err != ErrInvalidPin {
		t.Errorf("expected ErrInvalidPin, got %v", err)
	}
}

func TestSetToggleBeforeConfigureIsIgnored(t *testing.T) {
	drv := newMockGPIO()
	pins := NewSignalPins(drv, 14, 13)
	pins.SetToggle(true)
	if len(drv.history[14]) != 0 {
		t.Error("unconfigured toggle pin was written")
	}
}
