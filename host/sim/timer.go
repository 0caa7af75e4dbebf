package sim

import (
	"math/bits"
	"sync"
	"time"

	"flashjitter/core"
)

// MaxResolutionHz is the fastest counter the simulated driver accepts.
const MaxResolutionHz = 80000000

// LatencyFunc returns how many ticks pass between an alarm and its callback.
type LatencyFunc func() uint64

// TimerDriver hands out simulated counters. Counters only move when Advance
// is called, either by a test or by Run in wall-clock time.
type TimerDriver struct {
	mu      sync.Mutex
	timers  []*Timer
	latency LatencyFunc
}

func NewTimerDriver() *TimerDriver {
	return &TimerDriver{}
}

// SetLatency installs a latency source for timers created afterwards.
func (d *TimerDriver) SetLatency(f LatencyFunc) {
	d.mu.Lock()
	d.latency = f
	d.mu.Unlock()
}

func (d *TimerDriver) NewTimer(cfg core.TimerConfig) (core.GPTimer, error) {
	if cfg.ResolutionHz == 0 || cfg.ResolutionHz > MaxResolutionHz {
		return nil, core.ErrTimerConfig
	}
	if cfg.Direction != core.CountUp || cfg.IntrPriority > 3 {
		return nil, core.ErrTimerConfig
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	t := &Timer{cfg: cfg, latency: d.latency}
	d.timers = append(d.timers, t)
	return t, nil
}

// Timers returns every counter handed out so far.
func (d *TimerDriver) Timers() []*Timer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Timer, len(d.timers))
	copy(out, d.timers)
	return out
}

// Advance moves every counter forward by d of simulated time.
func (d *TimerDriver) Advance(dt time.Duration) {
	for _, t := range d.Timers() {
		t.AdvanceTime(dt)
	}
}

// Run advances the counters in step with the wall clock until stop is
// closed. quantum sets how often the counters catch up.
func (d *TimerDriver) Run(stop <-chan struct{}, quantum time.Duration) {
	ticker := time.NewTicker(quantum)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			d.Advance(now.Sub(last))
			last = now
		}
	}
}

// Timer is one simulated up-counter with a single alarm.
type Timer struct {
	mu      sync.Mutex
	cfg     core.TimerConfig
	alarm   core.AlarmConfig
	armed   bool
	cb      core.AlarmCallback
	enabled bool
	running bool
	count   uint64
	latency LatencyFunc
	firings uint64
	simNS   uint64 // simulated time fed through AdvanceTime
	ticked  uint64 // ticks already derived from simNS

	// An alarm that has fired but whose callback waits out its latency.
	pending bool
	delay   uint64
	event   core.AlarmEvent
}

func (t *Timer) RegisterAlarmCallback(cb core.AlarmCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return core.ErrTimerState
	}
	t.cb = cb
	return nil
}

func (t *Timer) SetAlarmAction(cfg core.AlarmConfig) error {
	if cfg.AutoReload && cfg.ReloadCount >= cfg.AlarmCount {
		return core.ErrTimerConfig
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alarm = cfg
	t.armed = true
	return nil
}

func (t *Timer) Enable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		return core.ErrTimerState
	}
	t.enabled = true
	return nil
}

func (t *Timer) Disable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || t.running {
		return core.ErrTimerState
	}
	t.enabled = false
	return nil
}

func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case !t.enabled || t.running:
		return core.ErrTimerState
	case t.cb == nil:
		return core.ErrNoCallback
	}
	t.running = true
	return nil
}

func (t *Timer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return core.ErrTimerState
	}
	t.running = false
	return nil
}

func (t *Timer) SetRawCount(count uint64) error {
	t.mu.Lock()
	t.count = count
	t.mu.Unlock()
	return nil
}

func (t *Timer) RawCount() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count, nil
}

func (t *Timer) Resolution() uint32 {
	return t.cfg.ResolutionHz
}

// Config returns the configuration the counter was allocated with.
func (t *Timer) Config() core.TimerConfig {
	return t.cfg
}

// Alarm returns the current alarm action and whether it is armed.
func (t *Timer) Alarm() (core.AlarmConfig, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alarm, t.armed
}

// Firings counts alarms delivered to the callback.
func (t *Timer) Firings() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firings
}

// AdvanceTime converts simulated time to ticks. Time is kept in nanoseconds
// and ticks are derived from the running total, so many short steps add up to
// the same count as one long one.
func (t *Timer) AdvanceTime(dt time.Duration) {
	if dt <= 0 {
		return
	}
	t.mu.Lock()
	t.simNS += uint64(dt)
	hi, lo := bits.Mul64(t.simNS, uint64(t.cfg.ResolutionHz))
	due, _ := bits.Div64(hi, lo, uint64(time.Second))
	ticks := due - t.ticked
	t.ticked = due
	t.mu.Unlock()

	t.Advance(ticks)
}

// Advance counts ticks, delivering every alarm on the way. An alarm's
// callback runs once the injected latency has elapsed, without the timer lock
// held and inside core.EnterInterrupt, the way a real alarm preempts the
// foreground.
func (t *Timer) Advance(ticks uint64) {
	for {
		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			return
		}

		if !t.pending {
			if !t.armed {
				t.count += ticks
				t.mu.Unlock()
				return
			}

			// A counter already past its alarm fires on the next tick.
			toAlarm := uint64(1)
			if t.count < t.alarm.AlarmCount {
				toAlarm = t.alarm.AlarmCount - t.count
			}
			if toAlarm > ticks {
				t.count += ticks
				t.mu.Unlock()
				return
			}
			ticks -= toAlarm

			t.event = core.AlarmEvent{Count: t.alarm.AlarmCount, AlarmValue: t.alarm.AlarmCount}
			if t.alarm.AutoReload {
				t.count = t.alarm.ReloadCount
			} else {
				t.count = t.alarm.AlarmCount
				t.armed = false
			}
			t.pending = true
			t.delay = 0
			if t.latency != nil {
				t.delay = t.latency()
			}
		}

		if t.delay > ticks {
			t.count += ticks
			t.delay -= ticks
			t.mu.Unlock()
			return
		}
		t.count += t.delay
		ticks -= t.delay
		t.pending = false
		t.firings++
		ev := t.event
		cb := t.cb
		t.mu.Unlock()

		core.EnterInterrupt()
		disarm := cb(t, &ev)
		core.ExitInterrupt()

		if disarm {
			t.mu.Lock()
			t.armed = false
			t.mu.Unlock()
		}
	}
}
