// Package sim provides host implementations of the harness drivers. A Bench
// runs the complete harness in simulated time: sleeping advances the clock
// and the counters together, so alarms interleave with file reads the way
// they would on a device.
package sim

import (
	"time"

	"flashjitter/core"
)

// DefaultQuantum is the simulated time step used by Bench.Sleep.
const DefaultQuantum = 10 * time.Microsecond

// Bench bundles the simulated drivers with one shared clock.
type Bench struct {
	Clock  *Clock
	GPIO   *GPIO
	Timers *TimerDriver
	FS     *Filesystem

	Quantum time.Duration
}

// NewBench wires the drivers so that filesystem read delays also advance
// simulated time.
func NewBench() *Bench {
	b := &Bench{
		Clock:   &Clock{},
		GPIO:    NewGPIO(),
		Timers:  NewTimerDriver(),
		FS:      NewFilesystem(),
		Quantum: DefaultQuantum,
	}
	b.FS.SetSleeper(b.Sleep)
	return b
}

// Install makes the bench clock the core uptime source and registers the
// drivers globally.
func (b *Bench) Install() {
	core.SetClockSource(b.Clock.Now)
	core.SetGPIODriver(b.GPIO)
	core.SetTimerDriver(b.Timers)
	core.SetFilesystemDriver(b.FS)
}

// Platform returns the bench drivers for core.NewHarness.
func (b *Bench) Platform() core.Platform {
	return core.Platform{GPIO: b.GPIO, Timer: b.Timers, FS: b.FS}
}

// Sleep advances simulated time by d in Quantum steps, delivering alarms as
// it goes. It is a drop-in for time.Sleep.
func (b *Bench) Sleep(d time.Duration) {
	q := b.Quantum
	if q <= 0 {
		q = DefaultQuantum
	}
	for d > 0 {
		step := q
		if d < step {
			step = d
		}
		b.Clock.Advance(step)
		b.Timers.Advance(step)
		d -= step
	}
}
