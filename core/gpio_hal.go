package core

import "errors"

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// MaxGPIOPin is the highest pin a PinMask can select.
const MaxGPIOPin = 63

// PinMask selects a set of pins, bit n for GPIO n.
type PinMask uint64

// MaskOf builds a mask from individual pins.
func MaskOf(pins ...GPIOPin) PinMask {
	var m PinMask
	for _, p := range pins {
		if p <= MaxGPIOPin {
			m |= 1 << p
		}
	}
	return m
}

// Has reports whether pin is selected.
func (m PinMask) Has(pin GPIOPin) bool {
	return pin <= MaxGPIOPin && m&(1<<pin) != 0
}

// PinMode is the direction a pin is configured for.
type PinMode uint8

const (
	PinModeDisabled PinMode = iota
	PinModeOutput
	PinModeInput
)

// PinConfig configures a group of pins at once.
type PinConfig struct {
	Mask        PinMask
	Mode        PinMode
	PullUp      bool
	PullDown    bool
	IntrEnabled bool
}

var (
	ErrInvalidPin           = errors.New("invalid GPIO pin")
	ErrUnsupportedPinConfig = errors.New("unsupported pin configuration")
	ErrPinsNotConfigured    = errors.New("signal pins not configured")
)

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a push-pull digital output with
	// pulls and edge interrupts disabled
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false). Implementations
	// must be safe to call from an alarm callback: no allocation, no locks
	// that the foreground can hold.
	SetPin(pin GPIOPin, value bool) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)
}

// ConfigurePins applies cfg to every pin in its mask. Only plain outputs are
// supported; the harness never needs inputs, pulls or pin interrupts.
func ConfigurePins(d GPIODriver, cfg PinConfig) error {
	if cfg.Mode != PinModeOutput || cfg.PullUp || cfg.PullDown || cfg.IntrEnabled {
		return ErrUnsupportedPinConfig
	}
	if cfg.Mask == 0 {
		return ErrInvalidPin
	}
	for pin := GPIOPin(0); pin <= MaxGPIOPin; pin++ {
		if !cfg.Mask.Has(pin) {
			continue
		}
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
	}
	return nil
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
