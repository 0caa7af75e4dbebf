package core

import "flashjitter/protocol"

// TelemetrySink writes one encoded block to the host link. The slice is only
// valid for the duration of the call.
type TelemetrySink func(block []byte)

// Telemetry encodes harness reports into protocol blocks. It reuses one frame
// buffer and must only be used from the foreground.
type Telemetry struct {
	sink  TelemetrySink
	frame protocol.Frame
	seq   uint8
}

// NewTelemetry returns an encoder that writes to sink.
func NewTelemetry(sink TelemetrySink) *Telemetry {
	return &Telemetry{sink: sink}
}

func (t *Telemetry) send() {
	block := t.frame.Finish(t.seq)
	t.seq = (t.seq + 1) & protocol.SeqMask
	t.sink(block)
}

// ReportLog forwards a log line. Its signature matches LogHook.
func (t *Telemetry) ReportLog(level LogLevel, tag, msg string) {
	if t == nil {
		return
	}
	m := protocol.LogMsg{Level: uint8(level), UptimeMS: UptimeMS(), Tag: tag, Text: msg}
	m.Encode(&t.frame)
	t.send()
}

// ReportMount sends the mount outcome.
func (t *Telemetry) ReportMount(info MountInfo, err error) {
	if t == nil {
		return
	}
	m := protocol.MountMsg{
		Status: mountStatus(err),
		Total:  uint32(info.Total),
		Used:   uint32(info.Used),
	}
	m.Encode(&t.frame)
	t.send()
}

// ReportCycle sends one read cycle.
func (t *Telemetry) ReportCycle(res CycleResult) {
	if t == nil {
		return
	}
	m := protocol.CycleMsg{
		Cycle:     res.Cycle,
		StartUS:   uint32(res.Start),
		ElapsedUS: uint32(res.Elapsed),
		Opened:    res.Opened,
		Reads:     uint32(res.Reads),
		Bytes:     uint32(res.Bytes),
	}
	m.Encode(&t.frame)
	t.send()
}

// ReportTimer sends the timer counters.
func (t *Telemetry) ReportTimer(s TimerStats, cfg PeriodicTimerConfig) {
	if t == nil {
		return
	}
	m := protocol.TimerMsg{
		Firings:      s.Firings,
		Level:        s.Level,
		MaxLatency:   s.MaxLatencyTicks,
		AlarmTicks:   uint32(cfg.AlarmTicks),
		ResolutionHz: cfg.ResolutionHz,
	}
	m.Encode(&t.frame)
	t.send()
}

func mountStatus(err error) uint8 {
	if err == nil {
		return protocol.MountOK
	}
	me, ok := err.(*MountError)
	if !ok {
		return protocol.MountDriver
	}
	switch me.Kind {
	case MountFailGeneric:
		return protocol.MountGeneric
	case MountFailNotFound:
		return protocol.MountNotFound
	case MountFailInfo:
		return protocol.MountFormatted
	}
	return protocol.MountDriver
}
