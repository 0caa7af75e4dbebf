// Signal pins: the two outputs a logic analyzer watches
package core

// SignalPins owns the toggle pin, written only from the alarm callback, and
// the reading pin, written only by the foreground read loop. Ownership is
// split by pin; nothing else synchronizes them.
type SignalPins struct {
	drv        GPIODriver
	toggle     GPIOPin
	reading    GPIOPin
	configured bool
}

// NewSignalPins binds the two pins to a driver. Nothing touches hardware
// until Configure.
func NewSignalPins(drv GPIODriver, toggle, reading GPIOPin) *SignalPins {
	return &SignalPins{drv: drv, toggle: toggle, reading: reading}
}

// Configure sets both pins up as outputs and drives them low.
func (p *SignalPins) Configure() error {
	if p.toggle > MaxGPIOPin || p.reading > MaxGPIOPin || p.toggle == p.reading {
		return ErrInvalidPin
	}

	cfg := PinConfig{
		Mask: MaskOf(p.toggle, p.reading),
		Mode: PinModeOutput,
	}
	if err := ConfigurePins(p.drv, cfg); err != nil {
		return err
	}
	if err := p.drv.SetPin(p.toggle, false); err != nil {
		return err
	}
	if err := p.drv.SetPin(p.reading, false); err != nil {
		return err
	}

	p.configured = true
	return nil
}

// Configured reports whether Configure succeeded.
func (p *SignalPins) Configured() bool {
	return p.configured
}

// TogglePin returns the pin driven by the alarm callback.
func (p *SignalPins) TogglePin() GPIOPin {
	return p.toggle
}

// ReadingPin returns the pin raised around file reads.
func (p *SignalPins) ReadingPin() GPIOPin {
	return p.reading
}

// SetToggle drives the toggle pin. Called from interrupt context: errors are
// dropped because there is nowhere safe to report them.
func (p *SignalPins) SetToggle(level bool) {
	if !p.configured {
		return
	}
	_ = p.drv.SetPin(p.toggle, level)
}

// SetReading drives the reading pin.
func (p *SignalPins) SetReading(level bool) error {
	if !p.configured {
		return ErrPinsNotConfigured
	}
	return p.drv.SetPin(p.reading, level)
}
