package sim

import (
	"io"
	"sync"
	"time"

	"flashjitter/core"
)

const (
	// DefaultCapacity matches a 1 MiB data partition.
	DefaultCapacity = 1 << 20
	// PageSize is the allocation unit used for the used-bytes figure.
	PageSize = 256
)

// Filesystem is an in-memory flash partition. Fault fields are read on every
// call, so a test can change them between steps.
type Filesystem struct {
	mu sync.Mutex

	Label    string
	Capacity uint64

	// Corrupt makes Register fail unless FormatIfMountFailed is set, in
	// which case the partition is wiped and mounted.
	Corrupt bool

	RegisterErr error
	InfoErr     error
	OpenErr     error
	ReadErr     error

	// ReadDelay is spent in sleep on every Read call that returns data,
	// standing in for flash access time.
	ReadDelay time.Duration
	sleep     func(time.Duration)

	files    map[string][]byte
	mounted  bool
	maxFiles int
	open     int

	Opens   int
	Reads   int
	Formats int
}

// NewFilesystem returns an unmounted, empty partition with no label.
func NewFilesystem() *Filesystem {
	return &Filesystem{
		Capacity: DefaultCapacity,
		files:    make(map[string][]byte),
		sleep:    time.Sleep,
	}
}

// SetSleeper replaces time.Sleep for ReadDelay.
func (f *Filesystem) SetSleeper(sleep func(time.Duration)) {
	f.mu.Lock()
	f.sleep = sleep
	f.mu.Unlock()
}

// Put stores a file directly, mounted or not.
func (f *Filesystem) Put(path string, data []byte) {
	f.mu.Lock()
	f.files[path] = append([]byte(nil), data...)
	f.mu.Unlock()
}

// Get returns a copy of a stored file.
func (f *Filesystem) Get(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	return append([]byte(nil), data...), ok
}

// Mounted reports whether Register succeeded.
func (f *Filesystem) Mounted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounted
}

// OpenFiles is the number of handles not yet closed.
func (f *Filesystem) OpenFiles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Filesystem) Register(cfg core.MountConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	if cfg.PartitionLabel != "" && cfg.PartitionLabel != f.Label {
		return core.ErrPartitionNotFound
	}
	if cfg.MaxFiles < 1 {
		return &core.DriverError{Op: "register", Code: -1, Msg: "invalid max_files"}
	}
	if f.Corrupt {
		if !cfg.FormatIfMountFailed {
			return core.ErrMountFailed
		}
		f.format()
	}
	f.maxFiles = cfg.MaxFiles
	f.mounted = true
	return nil
}

func (f *Filesystem) Info(label string) (uint64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mounted {
		return 0, 0, core.ErrNotMounted
	}
	if f.InfoErr != nil {
		return 0, 0, f.InfoErr
	}
	var used uint64
	for _, data := range f.files {
		used += (uint64(len(data)) + PageSize - 1) / PageSize * PageSize
	}
	return f.Capacity, used, nil
}

func (f *Filesystem) Format(label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if label != "" && label != f.Label {
		return core.ErrPartitionNotFound
	}
	f.format()
	return nil
}

func (f *Filesystem) format() {
	f.files = make(map[string][]byte)
	f.Corrupt = false
	f.Formats++
}

func (f *Filesystem) Open(path string) (core.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mounted {
		return nil, core.ErrNotMounted
	}
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	if f.open >= f.maxFiles {
		return nil, core.ErrTooManyFiles
	}
	data, ok := f.files[path]
	if !ok {
		return nil, &core.DriverError{Op: "open", Code: -2, Msg: "no such file"}
	}
	f.open++
	f.Opens++
	return &file{fs: f, data: data}, nil
}

func (f *Filesystem) Create(path string) (core.WritableFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mounted {
		return nil, core.ErrNotMounted
	}
	if f.open >= f.maxFiles {
		return nil, core.ErrTooManyFiles
	}
	f.open++
	return &writer{fs: f, path: path}, nil
}

type file struct {
	fs     *Filesystem
	data   []byte
	off    int
	closed bool
}

func (r *file) Read(p []byte) (int, error) {
	f := r.fs
	f.mu.Lock()
	err, delay, sleep := f.ReadErr, f.ReadDelay, f.sleep
	f.Reads++
	f.mu.Unlock()

	if r.closed {
		return 0, core.ErrNotMounted
	}
	if err != nil {
		return 0, err
	}
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	if delay > 0 {
		sleep(delay)
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}

func (r *file) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.fs.mu.Lock()
	r.fs.open--
	r.fs.mu.Unlock()
	return nil
}

type writer struct {
	fs     *Filesystem
	path   string
	buf    []byte
	closed bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, core.ErrNotMounted
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	f := w.fs
	f.mu.Lock()
	defer f.mu.Unlock()
	if used := uint64(len(w.buf)); used > f.Capacity {
		f.open--
		return &core.DriverError{Op: "write", Code: -28, Msg: "no space left"}
	}
	f.files[w.path] = w.buf
	f.open--
	return nil
}
