package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// LogLevel orders log lines by severity. Lower is more severe.
type LogLevel uint8

const (
	LevelError LogLevel = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
)

// letter returns the single character prefix used on the console.
func (l LogLevel) letter() string {
	switch l {
	case LevelError:
		return "E"
	case LevelWarn:
		return "W"
	case LevelInfo:
		return "I"
	case LevelDebug:
		return "D"
	}
	return "?"
}

// LogHook receives every log line that passes the level filter. The target
// installs one to forward lines as telemetry.
type LogHook func(level LogLevel, tag, msg string)

// TimingEvent captures a harness event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // Uptime in microseconds, low 32 bits
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtMount      = 1 // filesystem mounted, v1=total v2=used
	EvtMountFail  = 2 // mount failed, v1=failure kind
	EvtFormat     = 3 // partition formatted after info failure
	EvtCycleStart = 4 // read cycle started, v1=cycle
	EvtCycleEnd   = 5 // read cycle finished, v1=reads v2=elapsed us
	EvtOpenFail   = 6 // file open failed, v1=cycle
	EvtTimerStart = 7 // periodic timer started, v1=alarm ticks
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global output function (set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates LevelDebug lines
	debugEnabled bool

	logLevel = LevelInfo
	logHook  LogHook

	// Timing capture ring buffer, foreground only
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8

	// Async debug output channel
	debugChan    chan string
	debugDone    chan struct{}
	debugDropped atomic.Uint32
)

// SetDebugWriter sets the platform-specific output function
// This allows platforms to redirect output to UART, USB, stdout, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// SetLogLevel drops lines less severe than level.
func SetLogLevel(level LogLevel) {
	logLevel = level
}

// SetLogHook installs a hook that sees every emitted line. Pass nil to remove it.
func SetLogHook(hook LogHook) {
	logHook = hook
}

// AsyncDebugDepth is how many lines the async worker buffers before new
// lines are dropped.
const AsyncDebugDepth = 16

// InitAsyncDebug starts the async output goroutine. Call it from main() after
// SetDebugWriter. Log calls then return without waiting on the console, and
// lines that arrive while the queue is full are dropped and counted.
func InitAsyncDebug() {
	if debugChan != nil {
		return
	}
	debugChan = make(chan string, AsyncDebugDepth)
	debugDone = make(chan struct{})
	go debugOutputWorker(debugChan, debugDone)
}

// StopAsyncDebug flushes queued lines and returns to synchronous output.
func StopAsyncDebug() {
	if debugChan == nil {
		return
	}
	close(debugChan)
	<-debugDone
	debugChan, debugDone = nil, nil
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch <-chan string, done chan<- struct{}) {
	for msg := range ch {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
	close(done)
}

// DebugAsync queues a message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			debugDropped.Add(1)
		}
	}
}

// DroppedDebugLines returns how many lines the async queue has dropped.
func DroppedDebugLines() uint32 {
	return debugDropped.Load()
}

// LogInfo, LogWarn and LogError emit "<L> (<uptime ms>) <tag>: <msg>".
// They must never be called from an alarm callback.
func LogInfo(tag, msg string) {
	logLine(LevelInfo, tag, msg)
}

func LogWarn(tag, msg string) {
	logLine(LevelWarn, tag, msg)
}

func LogError(tag, msg string) {
	logLine(LevelError, tag, msg)
}

// LogDebug emits only when debug output is enabled.
func LogDebug(tag, msg string) {
	if debugEnabled {
		logLine(LevelDebug, tag, msg)
	}
}

func logLine(level LogLevel, tag, msg string) {
	if level > logLevel && level != LevelDebug {
		return
	}
	if logHook != nil {
		logHook(level, tag, msg)
	}

	line := level.letter() + " (" + utoa(UptimeMS()) + ") " + tag + ": " + msg
	if debugChan != nil {
		DebugAsync(line)
		return
	}
	if debugPrintln != nil {
		debugPrintln(line)
	}
}

// RecordTiming captures an event in the ring buffer
// This is always non-blocking and never allocates
func RecordTiming(eventType uint8, value1, value2 uint32) {
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Clock:     uint32(Uptime()),
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the recorded events, oldest first.
func TimingEvents() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// DumpTimingRing outputs the timing ring buffer, oldest first
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		var name string
		switch evt.EventType {
		case EvtMount:
			name = "MOUNT"
		case EvtMountFail:
			name = "MOUNT_FAIL!"
		case EvtFormat:
			name = "FORMAT"
		case EvtCycleStart:
			name = "CYCLE_START"
		case EvtCycleEnd:
			name = "CYCLE_END"
		case EvtOpenFail:
			name = "OPEN_FAIL!"
		case EvtTimerStart:
			name = "TIMER_START"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TIMING] " + name +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
