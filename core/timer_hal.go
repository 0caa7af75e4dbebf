package core

import "errors"

var (
	ErrTimerConfig = errors.New("invalid timer configuration")
	ErrTimerState  = errors.New("timer in wrong state for operation")
	ErrNoCallback  = errors.New("alarm callback not registered")
)

// CountDirection selects whether the counter counts up or down.
type CountDirection uint8

const (
	CountUp CountDirection = iota
	CountDown
)

// TimerConfig describes the counter to allocate.
type TimerConfig struct {
	ResolutionHz uint32 // counter ticks per second
	Direction    CountDirection
	IntrPriority uint8 // 1 (lowest) to 3 (highest); 0 lets the driver choose
}

// AlarmConfig describes the alarm action on a counter.
type AlarmConfig struct {
	AlarmCount  uint64 // fire when the counter reaches this value
	ReloadCount uint64 // value loaded into the counter on alarm when AutoReload is set
	AutoReload  bool
}

// AlarmEvent is passed to the callback on every alarm.
type AlarmEvent struct {
	Count      uint64 // counter value when the alarm fired
	AlarmValue uint64 // configured alarm threshold
}

// AlarmCallback runs in interrupt context on every alarm. It must not block,
// allocate, log, or touch the filesystem. Returning true asks the driver to
// disarm the alarm after this firing.
type AlarmCallback func(timer GPTimer, event *AlarmEvent) bool

// GPTimer is a general purpose hardware counter with one alarm.
//
// Drivers enforce the configuration order: RegisterAlarmCallback before
// Enable, Enable before Start, and Start only with a callback and alarm in
// place, so an alarm can never fire without a valid callback.
type GPTimer interface {
	RegisterAlarmCallback(cb AlarmCallback) error
	SetAlarmAction(cfg AlarmConfig) error
	Enable() error
	Disable() error
	Start() error
	Stop() error

	// SetRawCount and RawCount are safe to call from the alarm callback.
	SetRawCount(count uint64) error
	RawCount() (uint64, error)

	Resolution() uint32
}

// TimerDriver allocates hardware counters.
type TimerDriver interface {
	NewTimer(cfg TimerConfig) (GPTimer, error)
}

var timerDriver TimerDriver

// SetTimerDriver is called by target-specific code to register its driver.
func SetTimerDriver(d TimerDriver) {
	timerDriver = d
}

// MustTimer returns the configured driver or panics if missing.
func MustTimer() TimerDriver {
	if timerDriver == nil {
		panic("timer driver not configured")
	}
	return timerDriver
}
