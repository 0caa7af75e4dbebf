package core

import (
	"errors"
	"io"
)

// mockGPIO records pin levels and every transition.
type mockGPIO struct {
	outputs      map[GPIOPin]bool
	levels       map[GPIOPin]bool
	history      map[GPIOPin][]bool
	configureErr error
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		outputs: make(map[GPIOPin]bool),
		levels:  make(map[GPIOPin]bool),
		history: make(map[GPIOPin][]bool),
	}
}

func (m *mockGPIO) ConfigureOutput(pin GPIOPin) error {
	if m.configureErr != nil {
		return m.configureErr
	}
	m.outputs[pin] = true
	return nil
}

func (m *mockGPIO) SetPin(pin GPIOPin, value bool) error {
	if !m.outputs[pin] {
		return ErrInvalidPin
	}
	m.levels[pin] = value
	m.history[pin] = append(m.history[pin], value)
	return nil
}

func (m *mockGPIO) GetPin(pin GPIOPin) (bool, error) {
	return m.levels[pin], nil
}

// mockTimer is a manually fired counter. fire runs the callback the way an
// alarm interrupt would.
type mockTimer struct {
	cfg      TimerConfig
	alarm    AlarmConfig
	cb       AlarmCallback
	count    uint64
	enabled  bool
	running  bool
	alarmSet bool
	order    []string
	startErr error
}

type mockTimerDriver struct {
	timer  *mockTimer
	newErr error
}

func (d *mockTimerDriver) NewTimer(cfg TimerConfig) (GPTimer, error) {
	if d.newErr != nil {
		return nil, d.newErr
	}
	d.timer = &mockTimer{cfg: cfg}
	return d.timer, nil
}

func (t *mockTimer) RegisterAlarmCallback(cb AlarmCallback) error {
	if t.enabled {
		return ErrTimerState
	}
	t.cb = cb
	t.order = append(t.order, "register")
	return nil
}

func (t *mockTimer) SetAlarmAction(cfg AlarmConfig) error {
	t.alarm = cfg
	t.alarmSet = true
	t.order = append(t.order, "alarm")
	return nil
}

func (t *mockTimer) Enable() error {
	t.enabled = true
	t.order = append(t.order, "enable")
	return nil
}

func (t *mockTimer) Disable() error {
	t.enabled = false
	return nil
}

func (t *mockTimer) Start() error {
	if t.startErr != nil {
		return t.startErr
	}
	if !t.enabled {
		return ErrTimerState
	}
	if t.cb == nil {
		return ErrNoCallback
	}
	t.running = true
	t.order = append(t.order, "start")
	return nil
}

func (t *mockTimer) Stop() error {
	t.running = false
	return nil
}

func (t *mockTimer) SetRawCount(count uint64) error {
	t.count = count
	return nil
}

func (t *mockTimer) RawCount() (uint64, error) {
	return t.count, nil
}

func (t *mockTimer) Resolution() uint32 {
	return t.cfg.ResolutionHz
}

// fire advances the counter to the alarm, reloads, lets latency ticks pass,
// then runs the callback.
func (t *mockTimer) fire(latency uint64) bool {
	ev := AlarmEvent{Count: t.alarm.AlarmCount, AlarmValue: t.alarm.AlarmCount}
	if t.alarm.AutoReload {
		t.count = t.alarm.ReloadCount
	}
	t.count += latency
	return t.cb(t, &ev)
}

// mockFS is an in-memory filesystem with injectable failures.
type mockFS struct {
	files       map[string][]byte
	registerErr error
	infoErr     error
	openErr     error
	readErr     error
	total, used uint64

	registered  bool
	infoCalls   int
	formatCalls int
	opens       int
	closes      int
	readSizes   []int
}

func newMockFS() *mockFS {
	return &mockFS{files: make(map[string][]byte), total: 1 << 20}
}

func (m *mockFS) Register(cfg MountConfig) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered = true
	return nil
}

func (m *mockFS) Info(label string) (uint64, uint64, error) {
	m.infoCalls++
	if m.infoErr != nil {
		return 0, 0, m.infoErr
	}
	return m.total, m.used, nil
}

func (m *mockFS) Format(label string) error {
	m.formatCalls++
	m.files = make(map[string][]byte)
	return nil
}

func (m *mockFS) Open(path string) (File, error) {
	if !m.registered {
		return nil, ErrNotMounted
	}
	if m.openErr != nil {
		return nil, m.openErr
	}
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	m.opens++
	return &mockFile{fs: m, data: data}, nil
}

func (m *mockFS) Create(path string) (WritableFile, error) {
	if !m.registered {
		return nil, ErrNotMounted
	}
	return &mockWriter{fs: m, path: path}, nil
}

type mockFile struct {
	fs   *mockFS
	data []byte
	off  int
}

func (f *mockFile) Read(p []byte) (int, error) {
	if f.fs.readErr != nil {
		return 0, f.fs.readErr
	}
	if f.off >= len(f.data) {
		f.fs.readSizes = append(f.fs.readSizes, 0)
		return 0, io.EOF
	}
	n := copy(p, f.data[f.off:])
	f.off += n
	f.fs.readSizes = append(f.fs.readSizes, n)
	return n, nil
}

func (f *mockFile) Close() error {
	f.fs.closes++
	return nil
}

type mockWriter struct {
	fs   *mockFS
	path string
	buf  []byte
}

func (w *mockWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *mockWriter) Close() error {
	w.fs.files[w.path] = w.buf
	return nil
}
