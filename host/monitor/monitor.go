// Package monitor decodes harness telemetry and aggregates read window and
// timer statistics.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"flashjitter/protocol"
)

// LinkStats counts what the decoder saw on the wire.
type LinkStats struct {
	Blocks       uint64
	Dropped      uint64
	CRCErrors    uint64
	SeqGaps      uint64
	DecodeErrors uint64
}

// Monitor consumes a telemetry byte stream. It is not safe for concurrent use.
type Monitor struct {
	dec   *protocol.Decoder
	onLog func(*protocol.LogMsg)

	blocks       uint64
	decodeErrors uint64

	mount *protocol.MountMsg

	cycles       uint64
	openFailures uint64
	windows      []float64 // reading pin high time per cycle
	cadence      []float64 // start to start interval
	lastStart    uint32
	haveStart    bool

	timer     protocol.TimerMsg
	haveTimer bool
	firstFire uint32
	spanUS    uint64 // cycle time covered since firstFire
	haveFirst bool
}

// New returns an empty monitor.
func New() *Monitor {
	return &Monitor{dec: protocol.NewDecoder()}
}

// OnLog installs a handler for forwarded log lines.
func (m *Monitor) OnLog(f func(*protocol.LogMsg)) {
	m.onLog = f
}

// Feed decodes p and processes every complete block.
func (m *Monitor) Feed(p []byte) {
	m.dec.Feed(p)
	for {
		b, ok := m.dec.Next()
		if !ok {
			return
		}
		m.blocks++
		msg, err := protocol.Decode(b.Payload)
		if err != nil {
			m.decodeErrors++
			continue
		}
		m.Handle(msg)
	}
}

// Handle folds one decoded message into the statistics.
func (m *Monitor) Handle(msg interface{}) {
	switch v := msg.(type) {
	case *protocol.LogMsg:
		if m.onLog != nil {
			m.onLog(v)
		}
	case *protocol.MountMsg:
		m.mount = v
	case *protocol.CycleMsg:
		m.handleCycle(v)
	case *protocol.TimerMsg:
		m.handleTimer(v)
	}
}

func (m *Monitor) handleCycle(c *protocol.CycleMsg) {
	m.cycles++
	if !c.Opened {
		m.openFailures++
	}
	m.windows = append(m.windows, float64(c.ElapsedUS))
	if m.haveStart {
		// uint32 wrap is fine, the interval is short
		d := c.StartUS - m.lastStart
		m.cadence = append(m.cadence, float64(d))
		if m.haveFirst {
			m.spanUS += uint64(d)
		}
	}
	m.lastStart = c.StartUS
	m.haveStart = true
}

func (m *Monitor) handleTimer(t *protocol.TimerMsg) {
	m.timer = *t
	m.haveTimer = true
	if !m.haveFirst && m.haveStart {
		m.firstFire = t.Firings
		m.haveFirst = true
	}
}

// Mount returns the last mount report, or nil.
func (m *Monitor) Mount() *protocol.MountMsg {
	return m.mount
}

// Cycles returns the number of cycles seen and how many failed to open.
func (m *Monitor) Cycles() (total, openFailures uint64) {
	return m.cycles, m.openFailures
}

// ReadWindow summarizes how long the reading pin stayed high.
func (m *Monitor) ReadWindow() Summary {
	return Summarize(m.windows)
}

// Cadence summarizes the interval between cycle starts.
func (m *Monitor) Cadence() Summary {
	return Summarize(m.cadence)
}

// Timer returns the latest timer report.
func (m *Monitor) Timer() (protocol.TimerMsg, bool) {
	return m.timer, m.haveTimer
}

// MaxLatency converts the worst callback latency to time.
func (m *Monitor) MaxLatency() time.Duration {
	if !m.haveTimer || m.timer.ResolutionHz == 0 {
		return 0
	}
	return time.Duration(uint64(m.timer.MaxLatency) * uint64(time.Second) / uint64(m.timer.ResolutionHz))
}

// ToggleHz estimates the square wave frequency from the firing count over
// the cycle timeline. It needs at least two cycles with timer reports.
func (m *Monitor) ToggleHz() (float64, bool) {
	if !m.haveFirst || m.spanUS == 0 {
		return 0, false
	}
	fires := m.timer.Firings - m.firstFire
	return float64(fires) / 2 / (float64(m.spanUS) / 1e6), true
}

// NominalHz is the configured square wave frequency.
func (m *Monitor) NominalHz() float64 {
	if !m.haveTimer || m.timer.AlarmTicks == 0 {
		return 0
	}
	return float64(m.timer.ResolutionHz) / float64(2*m.timer.AlarmTicks)
}

// Link returns decoder counters.
func (m *Monitor) Link() LinkStats {
	return LinkStats{
		Blocks:       m.blocks,
		Dropped:      m.dec.Dropped,
		CRCErrors:    m.dec.CRCErrors,
		SeqGaps:      m.dec.SeqGaps,
		DecodeErrors: m.decodeErrors,
	}
}

// Consume reads r until EOF or ctx is done. Reads returning io.EOF on a live
// port are treated as timeouts when live is set.
func (m *Monitor) Consume(ctx context.Context, r io.Reader, live bool) error {
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if !live {
				return nil
			}
		default:
			return fmt.Errorf("read telemetry: %w", err)
		}
	}
}

// Report writes a human readable summary.
func (m *Monitor) Report(w io.Writer) {
	if mt := m.mount; mt != nil {
		fmt.Fprintf(w, "mount: status=%d total=%d used=%d\n", mt.Status, mt.Total, mt.Used)
	} else {
		fmt.Fprintln(w, "mount: no report")
	}

	total, failed := m.Cycles()
	fmt.Fprintf(w, "cycles: %d (%d failed to open)\n", total, failed)
	writeSummary(w, "read window", m.ReadWindow())
	writeSummary(w, "cadence", m.Cadence())

	if t, ok := m.Timer(); ok {
		fmt.Fprintf(w, "timer: firings=%d level=%v nominal=%.1f Hz max latency=%v (%d ticks)\n",
			t.Firings, t.Level, m.NominalHz(), m.MaxLatency(), t.MaxLatency)
		if hz, ok := m.ToggleHz(); ok {
			fmt.Fprintf(w, "timer: measured=%.1f Hz\n", hz)
		}
	}

	l := m.Link()
	fmt.Fprintf(w, "link: blocks=%d dropped=%d crc=%d gaps=%d decode=%d\n",
		l.Blocks, l.Dropped, l.CRCErrors, l.SeqGaps, l.DecodeErrors)
}

func writeSummary(w io.Writer, name string, s Summary) {
	if s.Count == 0 {
		fmt.Fprintf(w, "%s: no samples\n", name)
		return
	}
	fmt.Fprintf(w, "%s: n=%d mean=%.0fus sd=%.0fus min=%.0fus p50=%.0fus p95=%.0fus p99=%.0fus max=%.0fus\n",
		name, s.Count, s.Mean, s.StdDev, s.Min, s.P50, s.P95, s.P99, s.Max)
}
