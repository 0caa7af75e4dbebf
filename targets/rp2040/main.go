//go:build rp2040

package main

import (
	_ "embed"
	"machine"
	"time"

	"flashjitter/core"
)

const mainTag = "main"

//go:embed harness.json
var harnessJSON []byte

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	// This prevents issues with watchdog persisting across resets
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// Initialize USB CDC immediately
	InitUSB()

	core.SetClockSource(hardwareUptime)
	core.SetDebugWriter(consoleLine)
	// USB writes stall while the host is not reading; keep them off the
	// read loop.
	core.InitAsyncDebug()

	cfg, err := core.LoadConfig(harnessJSON)
	if err != nil {
		core.LogWarn(mainTag, "bad embedded config ("+err.Error()+"), using defaults")
		cfg = core.DefaultConfig()
	}

	// Register drivers
	core.SetGPIODriver(NewRPGPIODriver())
	core.SetTimerDriver(NewAlarmTimerDriver())
	dev, err := flashDevice()
	if err != nil {
		core.LogError(mainTag, "flash device: "+err.Error())
	}
	core.SetFilesystemDriver(NewLittleFSDriver(dev))

	h := core.NewHarness(cfg, core.DefaultPlatform())
	if cfg.Telemetry {
		// Log lines travel as blocks; plain text would only be skipped by
		// the decoder.
		tel := core.NewTelemetry(USBWriteBytes)
		h.SetTelemetry(tel)
		core.SetLogHook(tel.ReportLog)
		core.SetDebugWriter(func(string) {})
	}

	if err := h.Init(); err != nil {
		// Pins or timer unusable: nothing to measure
		failed()
	}

	if cfg.Pins.RefClock >= 0 {
		hz := h.Timer().ToggleFrequency()
		if err := startRefClock(machine.Pin(cfg.Pins.RefClock), hz); err != nil {
			core.LogWarn(mainTag, "reference clock: "+err.Error())
		}
	}

	h.Run(nil)
}

// failed blinks the LED rapidly forever
func failed() {
	// Flush queued lines so the dump follows the error that caused it.
	core.StopAsyncDebug()
	core.DumpTimingRing()
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
