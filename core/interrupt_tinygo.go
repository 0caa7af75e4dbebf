//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts and returns the previous state
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores a state returned by disableInterrupts
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// EnterInterrupt is a no-op on hardware; the CPU already excludes the
// foreground while a handler runs.
func EnterInterrupt() {}

// ExitInterrupt is a no-op on hardware.
func ExitInterrupt() {}
