//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// The reference program holds each level for 32 cycles, 64 per period.
const (
	refClockCyclesPerPeriod = 64
	refClockOrigin          = -1 // load anywhere
)

var errRefClockRange = errors.New("reference clock frequency out of range")

// buildRefClockProgram creates the square wave PIO program using AssemblerV0
func buildRefClockProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Set(rp2pio.SetDestPins, 1).Delay(31).Encode(), // 0: set pins, 1 [31]
		asm.Set(rp2pio.SetDestPins, 0).Delay(31).Encode(), // 1: set pins, 0 [31]
		// .wrap
	}
}

// startRefClock drives pin with an interrupt-free square wave at hz, so an
// analyzer can compare the alarm-driven toggle against a clean edge train.
func startRefClock(pin machine.Pin, hz uint32) error {
	if hz == 0 {
		return errRefClockRange
	}
	// 8.8 fixed point divider from the system clock
	div256 := uint64(machine.CPUFrequency()) * 256 / (uint64(hz) * refClockCyclesPerPeriod)
	whole := div256 >> 8
	if whole == 0 || whole > 0xffff {
		return errRefClockRange
	}

	sm := rp2pio.PIO0.StateMachine(0)
	sm.TryClaim()

	program := buildRefClockProgram()
	offset, err := rp2pio.PIO0.AddProgram(program, refClockOrigin)
	if err != nil {
		return err
	}

	pin.Configure(machine.PinConfig{Mode: rp2pio.PIO0.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(uint16(whole), uint8(div256&0xff))

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(pin, 1, true)
	sm.SetEnabled(true)
	return nil
}
