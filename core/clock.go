package core

import "time"

// ClockSource returns a free-running microsecond count.
type ClockSource func() uint64

var bootTime = time.Now()

var clockSource ClockSource = func() uint64 {
	return uint64(time.Since(bootTime) / time.Microsecond)
}

// SetClockSource replaces the uptime source. Targets install their hardware
// microsecond counter; tests install a manual clock.
func SetClockSource(src ClockSource) {
	clockSource = src
}

// Uptime returns microseconds since boot.
func Uptime() uint64 {
	return clockSource()
}

// UptimeMS returns milliseconds since boot, truncated to 32 bits.
func UptimeMS() uint32 {
	return uint32(clockSource() / 1000)
}
