//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"flashjitter/core"
)

const alarm1Bit = 1 << 1

var (
	alarm1Reg   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	armedReg    = (*volatile.Register32)(unsafe.Pointer(uintptr(timerARMED)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	activeAlarm *alarmTimer

	// Handed to the callback by pointer; kept out of the interrupt stack
	// frame so the handler never allocates.
	alarmEvent core.AlarmEvent
)

// AlarmTimerDriver hands out the one counter backed by TIMER alarm 1.
type AlarmTimerDriver struct{}

func NewAlarmTimerDriver() *AlarmTimerDriver {
	return &AlarmTimerDriver{}
}

// NewTimer emulates a resettable counter on the free running 1 MHz timer.
// The resolution must divide 1 MHz.
func (d *AlarmTimerDriver) NewTimer(cfg core.TimerConfig) (core.GPTimer, error) {
	if cfg.ResolutionHz == 0 || cfg.ResolutionHz > timerHz || timerHz%cfg.ResolutionHz != 0 {
		return nil, core.ErrTimerConfig
	}
	if cfg.Direction != core.CountUp || cfg.IntrPriority > 3 {
		return nil, core.ErrTimerConfig
	}
	if activeAlarm != nil {
		return nil, &core.DriverError{Op: "timer", Msg: "alarm 1 already in use"}
	}

	t := &alarmTimer{
		cfg: cfg,
		div: uint64(timerHz / cfg.ResolutionHz),
	}
	t.irq = interrupt.New(rp.IRQ_TIMER_IRQ_1, handleAlarm1)
	if cfg.IntrPriority != 0 {
		// Cortex-M0+ uses the top two priority bits; lower is more urgent.
		t.irq.SetPriority(uint8(3-cfg.IntrPriority) << 6)
	}
	activeAlarm = t
	return t, nil
}

// alarmTimer counts in cfg.ResolutionHz ticks from base. The hardware counter
// cannot be reset without disturbing the runtime, so a reset moves base.
type alarmTimer struct {
	cfg     core.TimerConfig
	div     uint64 // microseconds per tick
	base    uint64 // hardware time at count zero
	alarm   core.AlarmConfig
	armed   bool
	target  uint64 // hardware time of the next alarm
	cb      core.AlarmCallback
	enabled bool
	running bool
	irq     interrupt.Interrupt
}

func (t *alarmTimer) RegisterAlarmCallback(cb core.AlarmCallback) error {
	if t.enabled {
		return core.ErrTimerState
	}
	t.cb = cb
	return nil
}

func (t *alarmTimer) SetAlarmAction(cfg core.AlarmConfig) error {
	if cfg.AutoReload && cfg.ReloadCount >= cfg.AlarmCount {
		return core.ErrTimerConfig
	}
	t.alarm = cfg
	t.armed = true
	if t.running {
		t.arm()
	}
	return nil
}

func (t *alarmTimer) Enable() error {
	if t.enabled {
		return core.ErrTimerState
	}
	timerIntr.Set(alarm1Bit)
	timerInte.SetBits(alarm1Bit)
	t.irq.Enable()
	t.enabled = true
	return nil
}

func (t *alarmTimer) Disable() error {
	if !t.enabled || t.running {
		return core.ErrTimerState
	}
	t.irq.Disable()
	timerInte.ClearBits(alarm1Bit)
	t.enabled = false
	return nil
}

func (t *alarmTimer) Start() error {
	switch {
	case !t.enabled || t.running:
		return core.ErrTimerState
	case t.cb == nil:
		return core.ErrNoCallback
	}
	t.base = hardwareUptime()
	t.running = true
	if t.armed {
		t.arm()
	}
	return nil
}

func (t *alarmTimer) Stop() error {
	if !t.running {
		return core.ErrTimerState
	}
	t.running = false
	armedReg.Set(alarm1Bit) // write 1 to disarm
	return nil
}

func (t *alarmTimer) SetRawCount(count uint64) error {
	t.base = hardwareUptime() - count*t.div
	return nil
}

func (t *alarmTimer) RawCount() (uint64, error) {
	return (hardwareUptime() - t.base) / t.div, nil
}

func (t *alarmTimer) Resolution() uint32 {
	return t.cfg.ResolutionHz
}

// arm programs ALARM1 for base + AlarmCount ticks. Writing ALARM1 arms it.
// A target already in the past fires on the next microsecond instead of
// waiting for the 32-bit compare to wrap.
func (t *alarmTimer) arm() {
	t.target = t.base + t.alarm.AlarmCount*t.div
	now := hardwareUptime()
	if int64(t.target-now) <= 0 {
		t.target = now + 1
	}
	alarm1Reg.Set(uint32(t.target))
}

// handleAlarm1 runs at the configured priority on every alarm 1 match.
func handleAlarm1(interrupt.Interrupt) {
	timerIntr.Set(alarm1Bit)
	t := activeAlarm
	if t == nil || !t.running || !t.armed {
		return
	}

	alarmEvent = core.AlarmEvent{
		Count:      t.alarm.AlarmCount,
		AlarmValue: t.alarm.AlarmCount,
	}
	if t.alarm.AutoReload {
		t.base = t.target - t.alarm.ReloadCount*t.div
	} else {
		t.armed = false
	}

	if t.cb(t, &alarmEvent) {
		t.armed = false
	}
	if t.armed && t.running {
		t.arm()
	}
}
