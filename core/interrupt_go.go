//go:build !tinygo

package core

import "sync"

// State is the saved interrupt mask. On the host there is no mask; a mutex
// stands in so the simulated alarm goroutine and the foreground see
// consistent snapshots.
type State uintptr

var hostIRQ sync.Mutex

// disableInterrupts blocks the simulated interrupt context
func disableInterrupts() State {
	hostIRQ.Lock()
	return 0
}

// restoreInterrupts releases the simulated interrupt context
func restoreInterrupts(state State) {
	hostIRQ.Unlock()
}

// EnterInterrupt is called by host timer drivers around each alarm callback
// so foreground sections masked with disableInterrupts exclude it.
func EnterInterrupt() {
	hostIRQ.Lock()
}

// ExitInterrupt ends a host alarm callback.
func ExitInterrupt() {
	hostIRQ.Unlock()
}
