package monitor

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"flashjitter/protocol"
)

type encoder interface {
	Encode(f *protocol.Frame)
}

// stream frames msgs with consecutive sequence numbers.
func stream(msgs ...encoder) []byte {
	var out []byte
	var f protocol.Frame
	for i, m := range msgs {
		m.Encode(&f)
		out = append(out, f.Finish(uint8(i))...)
	}
	return out
}

func referenceRun() []byte {
	return stream(
		&protocol.LogMsg{Level: 3, UptimeMS: 1, Tag: "flashfs", Text: "Initializing flash filesystem"},
		&protocol.MountMsg{Status: protocol.MountOK, Total: 1 << 20, Used: 5120},
		&protocol.CycleMsg{Cycle: 1, StartUS: 0, ElapsedUS: 800, Opened: true, Reads: 5, Bytes: 5000},
		&protocol.TimerMsg{Firings: 20000, MaxLatency: 3, AlarmTicks: 50, ResolutionHz: 1000000},
		&protocol.CycleMsg{Cycle: 2, StartUS: 1000000, ElapsedUS: 900, Opened: true, Reads: 5, Bytes: 5000},
		&protocol.TimerMsg{Firings: 40000, MaxLatency: 3, AlarmTicks: 50, ResolutionHz: 1000000},
		&protocol.CycleMsg{Cycle: 3, StartUS: 2000000, ElapsedUS: 1000, Opened: false},
		&protocol.TimerMsg{Firings: 60000, MaxLatency: 5, AlarmTicks: 50, ResolutionHz: 1000000},
	)
}

func TestMonitorAggregates(t *testing.T) {
	m := New()
	var logs []string
	m.OnLog(func(l *protocol.LogMsg) { logs = append(logs, l.Tag+": "+l.Text) })

	m.Feed(append([]byte("boot\n"), referenceRun()...))

	if len(logs) != 1 || logs[0] != "flashfs: Initializing flash filesystem" {
		t.Errorf("logs = %q", logs)
	}
	if mt := m.Mount(); mt == nil || mt.Used != 5120 {
		t.Errorf("mount = %+v", mt)
	}
	if total, failed := m.Cycles(); total != 3 || failed != 1 {
		t.Errorf("cycles = %d/%d", total, failed)
	}

	w := m.ReadWindow()
	if w.Count != 3 || w.Mean != 900 || w.Min != 800 || w.Max != 1000 || w.P50 != 900 || w.StdDev != 100 {
		t.Errorf("read window = %+v", w)
	}
	if c := m.Cadence(); c.Count != 2 || c.Mean != 1000000 || c.StdDev != 0 {
		t.Errorf("cadence = %+v", c)
	}

	if hz, ok := m.ToggleHz(); !ok || hz != 10000 {
		t.Errorf("toggle = %v %v, want 10000", hz, ok)
	}
	if m.NominalHz() != 10000 {
		t.Errorf("nominal = %v", m.NominalHz())
	}
	if m.MaxLatency() != 5*time.Microsecond {
		t.Errorf("max latency = %v", m.MaxLatency())
	}

	l := m.Link()
	if l.Blocks != 8 || l.Dropped == 0 || l.CRCErrors != 0 || l.SeqGaps != 0 {
		t.Errorf("link = %+v", l)
	}
}

func TestMonitorSplitFeed(t *testing.T) {
	m := New()
	data := referenceRun()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		m.Feed(data[i:end])
	}
	if total, _ := m.Cycles(); total != 3 {
		t.Errorf("cycles = %d", total)
	}
}

func TestMonitorConsumeReport(t *testing.T) {
	m := New()
	if err := m.Consume(context.Background(), bytes.NewReader(referenceRun()), false); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	var out strings.Builder
	m.Report(&out)
	for _, want := range []string{"cycles: 3 (1 failed to open)", "read window: n=3 mean=900us", "measured=10000.0 Hz", "crc=0"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestMonitorEmptyReport(t *testing.T) {
	var out strings.Builder
	New().Report(&out)
	if !strings.Contains(out.String(), "mount: no report") || !strings.Contains(out.String(), "read window: no samples") {
		t.Errorf("report = %s", out.String())
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s.Count != 0 {
		t.Errorf("empty = %+v", s)
	}
	if s := Summarize([]float64{42}); s.StdDev != 0 || s.P99 != 42 || s.Mean != 42 {
		t.Errorf("single = %+v", s)
	}

	in := []float64{5, 1, 4, 2, 3}
	s := Summarize(in)
	if s.Min != 1 || s.Max != 5 || s.P50 != 3 {
		t.Errorf("summary = %+v", s)
	}
	if in[0] != 5 {
		t.Error("Summarize sorted its input")
	}
}
