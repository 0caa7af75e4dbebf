//go:build rp2040

package main

import (
	"machine"

	"flashjitter/core"
)

const numGPIO = 30

// RPGPIODriver implements the GPIODriver interface for RP2040
type RPGPIODriver struct {
	// Bit per pin configured as output. Written only during setup, read
	// from the alarm interrupt.
	outputs uint32
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{}
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	if pin >= numGPIO {
		return core.ErrInvalidPin
	}
	// Output mode leaves pulls and edge interrupts off
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.outputs |= 1 << pin
	return nil
}

// SetPin writes the SIO output register. Safe from interrupt context.
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if pin >= numGPIO || d.outputs&(1<<pin) == 0 {
		return core.ErrInvalidPin
	}
	machine.Pin(pin).Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	if pin >= numGPIO {
		return false, core.ErrInvalidPin
	}
	return machine.Pin(pin).Get(), nil
}
