// Application orchestrator
package core

import (
	"errors"
	"time"
)

const harnessTag = "harness"

var ErrAlreadyInitialized = errors.New("harness already initialized")

// HarnessState tracks initialization progress. States only move forward.
// StateFilesystemReady means the mount step has run, not that it succeeded:
// a failed mount still advances the state. Use FilesystemAvailable to tell.
type HarnessState uint8

const (
	StateUninitialized HarnessState = iota
	StateFilesystemReady
	StateIOConfigured
	StateTimerRunning
	StateSteadyState
)

func (s HarnessState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateFilesystemReady:
		return "filesystem-ready"
	case StateIOConfigured:
		return "io-configured"
	case StateTimerRunning:
		return "timer-running"
	case StateSteadyState:
		return "steady-state"
	}
	return "unknown"
}

// Platform bundles the hardware drivers the harness needs.
type Platform struct {
	GPIO  GPIODriver
	Timer TimerDriver
	FS    FilesystemDriver
}

// DefaultPlatform returns the drivers registered by the target.
func DefaultPlatform() Platform {
	return Platform{
		GPIO:  MustGPIO(),
		Timer: MustTimer(),
		FS:    MustFilesystem(),
	}
}

// Harness sequences filesystem, pins and timer setup once, then runs the
// read loop forever. It owns the timer handle for the life of the process.
type Harness struct {
	cfg   Config
	plat  Platform
	state HarnessState

	mount     *MountService
	mountInfo MountInfo
	mountErr  error

	pins   *SignalPins
	timer  *PeriodicTimer
	reader *FileReadLoop

	telemetry *Telemetry
	sleep     func(time.Duration)
}

// NewHarness prepares a harness. Nothing touches hardware until Init.
func NewHarness(cfg Config, plat Platform) *Harness {
	return &Harness{
		cfg:   cfg,
		plat:  plat,
		sleep: time.Sleep,
	}
}

// SetTelemetry enables block reports. Pass nil to disable.
func (h *Harness) SetTelemetry(t *Telemetry) {
	h.telemetry = t
}

// SetSleeper replaces time.Sleep for the cadence wait.
func (h *Harness) SetSleeper(sleep func(time.Duration)) {
	h.sleep = sleep
}

// State returns the current initialization state.
func (h *Harness) State() HarnessState {
	return h.state
}

// Timer returns the periodic timer once it has been created.
func (h *Harness) Timer() *PeriodicTimer {
	return h.timer
}

// Pins returns the signal pins once they have been created.
func (h *Harness) Pins() *SignalPins {
	return h.pins
}

// Reader returns the read loop once the harness is initialized.
func (h *Harness) Reader() *FileReadLoop {
	return h.reader
}

// Mount returns the capacity and the mount error, if any.
func (h *Harness) Mount() (MountInfo, error) {
	return h.mountInfo, h.mountErr
}

// FilesystemAvailable reports whether the mount step left a usable
// filesystem. It is false before Init and after any mount failure, including
// a capacity query failure that ended in a reformat.
func (h *Harness) FilesystemAvailable() bool {
	return h.mount != nil && h.mount.Mounted() && h.mountErr == nil
}

// Init mounts the filesystem, configures the pins, then configures and
// starts the timer.
//
// A mount failure is logged and the harness continues without a filesystem;
// every read cycle will then fail to open and say so. A pin or timer failure
// stops initialization: Init returns the error and the timer never starts.
func (h *Harness) Init() error {
	if h.state != StateUninitialized {
		return ErrAlreadyInitialized
	}
	if err := h.cfg.Validate(); err != nil {
		LogError(harnessTag, err.Error())
		return err
	}

	h.initFilesystem()
	h.state = StateFilesystemReady

	if err := h.initIO(); err != nil {
		LogError(harnessTag, "IO configuration failed ("+err.Error()+")")
		return err
	}
	h.state = StateIOConfigured

	if err := h.initTimer(); err != nil {
		LogError(harnessTag, "Timer configuration failed ("+err.Error()+")")
		return err
	}
	h.state = StateTimerRunning
	return nil
}

func (h *Harness) initFilesystem() {
	h.mount = NewMountService(h.plat.FS, h.cfg.Mount)
	h.mountInfo, h.mountErr = h.mount.Mount()
	h.telemetry.ReportMount(h.mountInfo, h.mountErr)

	if h.mountErr == nil && h.cfg.Reader.SeedSize > 0 {
		if err := SeedAsset(h.plat.FS, h.cfg.Reader.Path, h.cfg.Reader.SeedSize); err != nil {
			LogWarn(harnessTag, "Seeding "+h.cfg.Reader.Path+" failed ("+err.Error()+")")
		}
	}
}

func (h *Harness) initIO() error {
	LogInfo(harnessTag, "Initializing IO")
	h.pins = NewSignalPins(h.plat.GPIO, h.cfg.Pins.Toggle, h.cfg.Pins.Reading)
	return h.pins.Configure()
}

func (h *Harness) initTimer() error {
	LogInfo(harnessTag, "Initializing timer")
	t, err := NewPeriodicTimer(h.plat.Timer, PeriodicTimerConfig{
		ResolutionHz: h.cfg.Timer.ResolutionHz,
		AlarmTicks:   h.cfg.Timer.AlarmTicks,
		IntrPriority: h.cfg.Timer.IntrPriority,
		LatencyProbe: h.cfg.Timer.LatencyProbe,
	}, h.pins)
	if err != nil {
		return err
	}
	if err := t.Start(); err != nil {
		return err
	}
	h.timer = t
	h.reader = NewFileReadLoop(h.plat.FS, h.pins, h.cfg.Reader.Path)
	LogInfo(harnessTag, "Timer running, toggle "+utoa(t.ToggleFrequency())+" Hz")
	return nil
}

// Interval is the read loop cadence.
func (h *Harness) Interval() time.Duration {
	return time.Duration(h.cfg.Reader.IntervalMS) * time.Millisecond
}

// Step runs one read cycle (if enabled), reports it, and sleeps for the rest
// of the interval. It returns false without doing anything if Init did not
// reach StateTimerRunning.
func (h *Harness) Step() (CycleResult, bool) {
	if h.state < StateTimerRunning {
		return CycleResult{}, false
	}
	h.state = StateSteadyState

	start := Uptime()
	var res CycleResult
	if h.cfg.Reader.Enabled {
		res = h.reader.Cycle()
		h.telemetry.ReportCycle(res)
	}
	h.telemetry.ReportTimer(h.timer.Stats(), h.timer.Config())

	elapsed := time.Duration(Uptime()-start) * time.Microsecond
	if remain := h.Interval() - elapsed; remain > 0 {
		h.sleep(remain)
	}
	return res, true
}

// Run steps forever, or until stop is closed. A harness whose Init failed
// returns at once.
func (h *Harness) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if _, ok := h.Step(); !ok {
			return
		}
	}
}
