// File read loop: the blocking I/O that competes with the alarm interrupt
package core

import "io"

const readerTag = "reader"

// ReadBufferSize is the size of every read issued by the loop.
const ReadBufferSize = 1024

// FileOpenError is returned for a cycle whose open failed. It is never fatal;
// the next cycle simply tries again.
type FileOpenError struct {
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return "open " + e.Path + ": " + e.Err.Error()
}

func (e *FileOpenError) Unwrap() error {
	return e.Err
}

// CycleResult describes one read cycle.
type CycleResult struct {
	Cycle   uint32
	Start   uint64 // uptime in microseconds when the reading pin went high
	Elapsed uint64 // microseconds the reading pin stayed high
	Opened  bool
	Reads   int // reads that returned data
	Bytes   int
	Err     error
}

// FileReadLoop opens one file per cycle and drains it into a buffer that
// lives as long as the loop, so no cycle allocates a buffer.
type FileReadLoop struct {
	fs     FilesystemDriver
	pins   *SignalPins
	path   string
	buf    [ReadBufferSize]byte
	cycles uint32
}

// NewFileReadLoop binds the loop to a filesystem, the signal pins and the
// asset path.
func NewFileReadLoop(fs FilesystemDriver, pins *SignalPins, path string) *FileReadLoop {
	return &FileReadLoop{fs: fs, pins: pins, path: path}
}

// Path returns the file read each cycle.
func (r *FileReadLoop) Path() string {
	return r.path
}

// Cycles returns the number of cycles run so far.
func (r *FileReadLoop) Cycles() uint32 {
	return r.cycles
}

// Cycle raises the reading pin, reads the whole file, and lowers the pin. An
// open failure is logged and reported in the result; the pin still goes
// high then low around the attempt.
func (r *FileReadLoop) Cycle() CycleResult {
	r.cycles++
	res := CycleResult{Cycle: r.cycles}
	RecordTiming(EvtCycleStart, r.cycles, 0)

	if err := r.pins.SetReading(true); err != nil {
		LogWarn(readerTag, "reading pin: "+err.Error())
	}
	res.Start = Uptime()

	res.Err = r.readFile(&res)

	res.Elapsed = Uptime() - res.Start
	if err := r.pins.SetReading(false); err != nil {
		LogWarn(readerTag, "reading pin: "+err.Error())
	}

	RecordTiming(EvtCycleEnd, uint32(res.Reads), uint32(res.Elapsed))
	if IsDebugEnabled() {
		LogDebug(readerTag, "cycle "+utoa(res.Cycle)+": "+itoa(res.Reads)+" reads, "+
			itoa(res.Bytes)+" bytes in "+utoa64(res.Elapsed)+" us")
	}
	return res
}

// readFile reads until a read returns no data. The file is closed on every
// path out.
func (r *FileReadLoop) readFile(res *CycleResult) error {
	f, err := r.fs.Open(r.path)
	if err != nil {
		LogError(readerTag, "Failed to open file for reading")
		RecordTiming(EvtOpenFail, r.cycles, 0)
		return &FileOpenError{Path: r.path, Err: err}
	}
	res.Opened = true
	defer func() {
		if cerr := f.Close(); cerr != nil {
			LogWarn(readerTag, "close: "+cerr.Error())
		}
	}()

	for {
		n, err := f.Read(r.buf[:])
		if n > 0 {
			res.Reads++
			res.Bytes += n
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			LogError(readerTag, "Read failed ("+err.Error()+")")
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
