package sim

import (
	"errors"
	"testing"
	"time"

	"flashjitter/core"
)

const (
	togglePin  = core.GPIOPin(14)
	readingPin = core.GPIOPin(13)
)

func newBenchHarness(t *testing.T, cfg core.Config) (*Bench, *core.Harness) {
	t.Helper()
	b := NewBench()
	b.Install()
	h := core.NewHarness(cfg, b.Platform())
	h.SetSleeper(b.Sleep)
	return b, h
}

func TestBenchReferenceHarness(t *testing.T) {
	b, h := newBenchHarness(t, core.DefaultConfig())
	b.FS.Put("/logo.png", make([]byte, 5000))

	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	res, ok := h.Step()
	if !ok {
		t.Fatal("Step refused to run")
	}

	if !res.Opened || res.Reads != 5 || res.Bytes != 5000 {
		t.Errorf("cycle = %+v", res)
	}
	stats := h.Timer().Stats()
	if stats.Firings != 20000 {
		t.Errorf("firings in one second = %d, want 20000", stats.Firings)
	}
	if stats.Level {
		t.Error("an even number of firings should leave the pin low")
	}
	if b.GPIO.Writes(togglePin) != 20001 {
		t.Errorf("toggle writes = %d, want 20001", b.GPIO.Writes(togglePin))
	}

	edges := b.GPIO.Edges(togglePin)
	for i := 2; i < 200; i++ {
		if d := edges[i].At - edges[i-1].At; d != 50 {
			t.Fatalf("edge %d came %d us after the previous one, want 50", i, d)
		}
		if edges[i].Level == edges[i-1].Level {
			t.Fatalf("edge %d did not change level", i)
		}
	}
	if b.FS.OpenFiles() != 0 {
		t.Error("file left open")
	}
}

func TestBenchStoppedTimerHoldsCount(t *testing.T) {
	b, h := newBenchHarness(t, core.DefaultConfig())
	b.FS.Put("/logo.png", make([]byte, 5000))
	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	b.Sleep(1030 * time.Microsecond)

	pt := h.Timer()
	if err := pt.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	count, err := pt.Handle().RawCount()
	if err != nil {
		t.Fatalf("RawCount: %v", err)
	}
	if count != 30 {
		t.Errorf("count at stop = %d, want 30", count)
	}
	firings := pt.Stats().Firings

	b.Sleep(time.Second)
	if after, _ := pt.Handle().RawCount(); after != count {
		t.Errorf("stopped counter moved from %d to %d", count, after)
	}
	if pt.Stats().Firings != firings {
		t.Errorf("firings went from %d to %d after stop", firings, pt.Stats().Firings)
	}
	if err := pt.Stop(); err != core.ErrTimerState {
		t.Errorf("second Stop = %v, want ErrTimerState", err)
	}
}

func TestBenchReadingWindow(t *testing.T) {
	b, h := newBenchHarness(t, core.DefaultConfig())
	b.FS.Put("/logo.png", make([]byte, 5000))
	b.FS.ReadDelay = 2 * time.Millisecond

	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	res, _ := h.Step()

	if res.Elapsed != 10000 {
		t.Errorf("elapsed = %d us, want 10000", res.Elapsed)
	}
	if iv := b.GPIO.HighIntervals(readingPin); len(iv) != 1 || iv[0] != 10000 {
		t.Errorf("reading pin high intervals = %v", iv)
	}
	if n := h.Timer().Stats().Firings; n != 20000 {
		t.Errorf("firings = %d, want 20000 with reads overlapping the timer", n)
	}
	if b.Clock.Now() != 1000000 {
		t.Errorf("cycle took %d us, want the 1 s cadence", b.Clock.Now())
	}
}

func TestBenchMissingPartition(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Mount.PartitionLabel = "spiffs"
	b, h := newBenchHarness(t, cfg)
	b.FS.Label = "storage"

	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_, err := h.Mount()
	var me *core.MountError
	if !errors.As(err, &me) || me.Kind != core.MountFailNotFound {
		t.Fatalf("mount error = %v", err)
	}

	for i := 0; i < 3; i++ {
		res, ok := h.Step()
		if !ok || res.Opened {
			t.Fatalf("cycle %d = %+v", i, res)
		}
	}
	if h.State() != core.StateSteadyState {
		t.Errorf("state = %v", h.State())
	}
	if n := len(b.GPIO.HighIntervals(readingPin)); n != 3 {
		t.Errorf("reading pin pulsed %d times, want 3", n)
	}
	if h.Timer().Stats().Firings != 60000 {
		t.Errorf("timer did not keep running: %d", h.Timer().Stats().Firings)
	}
}

func TestBenchCorruptPartitionIsFormattedAndSeeded(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Reader.SeedSize = 3000
	b, h := newBenchHarness(t, cfg)
	b.FS.Corrupt = true

	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if b.FS.Formats != 1 {
		t.Errorf("formats = %d", b.FS.Formats)
	}
	res, _ := h.Step()
	if res.Reads != 3 || res.Bytes != 3000 {
		t.Errorf("cycle = %+v", res)
	}
}

func TestBenchInfoFailureFormats(t *testing.T) {
	b, h := newBenchHarness(t, core.DefaultConfig())
	b.FS.Put("/logo.png", make([]byte, 100))
	b.FS.InfoErr = errors.New("bad superblock")

	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if b.FS.Formats != 1 {
		t.Errorf("formats = %d, want 1", b.FS.Formats)
	}
	res, _ := h.Step()
	if res.Opened {
		t.Error("file survived the format")
	}
}

func TestBenchLatencyProbe(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Timer.LatencyProbe = true
	b, h := newBenchHarness(t, cfg)
	b.Timers.SetLatency(func() uint64 { return 3 })

	if err := h.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	h.Step()

	s := h.Timer().Stats()
	if s.MaxLatencyTicks != 3 {
		t.Errorf("max latency = %d, want 3", s.MaxLatencyTicks)
	}
	// The period restarts at the callback, so latency stretches it.
	if want := uint32(1000000 / 53); s.Firings != want {
		t.Errorf("firings = %d, want %d", s.Firings, want)
	}
}

func TestBenchTimerFailureIsFailStop(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Timer.ResolutionHz = MaxResolutionHz + 1
	b, h := newBenchHarness(t, cfg)

	if err := h.Init(); err != core.ErrTimerConfig {
		t.Fatalf("Init = %v, want ErrTimerConfig", err)
	}
	if len(b.Timers.Timers()) != 0 {
		t.Error("timer allocated")
	}
	if _, ok := h.Step(); ok {
		t.Error("Step ran after failed Init")
	}
}
