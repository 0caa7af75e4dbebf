// Periodic timer: toggles the signal pin from the alarm callback
package core

import (
	"sync/atomic"
	"time"
)

// ToggleState is the level last written to the toggle pin. The alarm
// callback is its only writer; anything else may only Load it. The atomic
// documents that contract and keeps a second writer from tearing it.
type ToggleState struct {
	v atomic.Bool
}

// Flip complements the state and returns the new value.
func (s *ToggleState) Flip() bool {
	next := !s.v.Load()
	s.v.Store(next)
	return next
}

// Load returns the current state.
func (s *ToggleState) Load() bool {
	return s.v.Load()
}

// PeriodicTimerConfig describes the square wave to generate.
type PeriodicTimerConfig struct {
	ResolutionHz uint32
	AlarmTicks   uint64
	IntrPriority uint8

	// LatencyProbe makes the callback read the counter on entry and keep
	// the largest value seen, i.e. ticks between the alarm and the callback.
	LatencyProbe bool
}

// TimerStats is a consistent snapshot of the callback counters.
type TimerStats struct {
	Firings         uint32
	Level           bool
	MaxLatencyTicks uint32
}

// PeriodicTimer drives the toggle pin from a free-running counter with an
// auto-reloading alarm. It is created once and owned by the Harness.
type PeriodicTimer struct {
	handle  GPTimer
	pins    *SignalPins
	state   ToggleState
	cfg     PeriodicTimerConfig
	running bool

	firings    atomic.Uint32
	maxLatency atomic.Uint32
}

// NewPeriodicTimer allocates the counter and fully configures it: callback,
// alarm, enable. The timer is left stopped; call Start.
func NewPeriodicTimer(drv TimerDriver, cfg PeriodicTimerConfig, pins *SignalPins) (*PeriodicTimer, error) {
	if cfg.ResolutionHz == 0 || cfg.AlarmTicks == 0 || pins == nil {
		return nil, ErrTimerConfig
	}

	h, err := drv.NewTimer(TimerConfig{
		ResolutionHz: cfg.ResolutionHz,
		Direction:    CountUp,
		IntrPriority: cfg.IntrPriority,
	})
	if err != nil {
		return nil, err
	}

	t := &PeriodicTimer{handle: h, pins: pins, cfg: cfg}
	if err := h.RegisterAlarmCallback(t.onAlarm); err != nil {
		return nil, err
	}
	if err := h.Enable(); err != nil {
		return nil, err
	}
	err = h.SetAlarmAction(AlarmConfig{
		AlarmCount:  cfg.AlarmTicks,
		ReloadCount: 0,
		AutoReload:  true,
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// onAlarm is the interrupt-context callback. It only touches the counter,
// two atomics, the toggle state and the toggle pin.
func (t *PeriodicTimer) onAlarm(h GPTimer, _ *AlarmEvent) bool {
	if t.cfg.LatencyProbe {
		if raw, err := h.RawCount(); err == nil {
			if lat := uint32(raw); lat > t.maxLatency.Load() {
				t.maxLatency.Store(lat)
			}
		}
	}

	// Period is measured from this firing, not from the previous alarm.
	_ = h.SetRawCount(0)
	t.pins.SetToggle(t.state.Flip())
	t.firings.Add(1)
	return false
}

// Start begins counting. The callback fires every AlarmTicks ticks until Stop.
func (t *PeriodicTimer) Start() error {
	if t.running {
		return ErrTimerState
	}
	if err := t.handle.Start(); err != nil {
		return err
	}
	t.running = true
	RecordTiming(EvtTimerStart, uint32(t.cfg.AlarmTicks), t.cfg.ResolutionHz)
	return nil
}

// Stop halts counting. The harness never calls it in normal operation.
func (t *PeriodicTimer) Stop() error {
	if !t.running {
		return ErrTimerState
	}
	if err := t.handle.Stop(); err != nil {
		return err
	}
	t.running = false
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (t *PeriodicTimer) Running() bool {
	return t.running
}

// Handle returns the underlying counter for queries.
func (t *PeriodicTimer) Handle() GPTimer {
	return t.handle
}

// Level returns the current toggle state.
func (t *PeriodicTimer) Level() bool {
	return t.state.Load()
}

// Stats snapshots the callback counters with interrupts masked so the three
// values belong to the same firing.
func (t *PeriodicTimer) Stats() TimerStats {
	state := disableInterrupts()
	s := TimerStats{
		Firings:         t.firings.Load(),
		Level:           t.state.Load(),
		MaxLatencyTicks: t.maxLatency.Load(),
	}
	restoreInterrupts(state)
	return s
}

// HalfPeriod is the nominal time between firings.
func (t *PeriodicTimer) HalfPeriod() time.Duration {
	return time.Duration(t.cfg.AlarmTicks) * time.Second / time.Duration(t.cfg.ResolutionHz)
}

// ToggleFrequency is the nominal square wave frequency in Hz. Two firings
// make one full cycle.
func (t *PeriodicTimer) ToggleFrequency() uint32 {
	return uint32(uint64(t.cfg.ResolutionHz) / (2 * t.cfg.AlarmTicks))
}

// Config returns the configuration the timer was created with.
func (t *PeriodicTimer) Config() PeriodicTimerConfig {
	return t.cfg
}
