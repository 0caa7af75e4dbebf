// Filesystem mount service
package core

import "errors"

const mountTag = "flashfs"

// MountInfo is the capacity reported after a successful mount.
type MountInfo struct {
	Total uint64
	Used  uint64
}

// MountFailure classifies a MountError.
type MountFailure uint8

const (
	MountFailGeneric  MountFailure = iota + 1 // could not mount or format
	MountFailNotFound                         // no such partition
	MountFailDriver                           // other driver error
	MountFailInfo                             // mounted, capacity query failed, partition reformatted
)

func (k MountFailure) String() string {
	switch k {
	case MountFailGeneric:
		return "mount failed"
	case MountFailNotFound:
		return "partition not found"
	case MountFailDriver:
		return "driver error"
	case MountFailInfo:
		return "info failed, formatted"
	}
	return "unknown"
}

// MountError reports why the filesystem is unusable for this run.
type MountError struct {
	Kind MountFailure
	Err  error
}

func (e *MountError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *MountError) Unwrap() error {
	return e.Err
}

// MountService mounts the flash filesystem once per run.
type MountService struct {
	drv     FilesystemDriver
	cfg     MountConfig
	mounted bool
}

// NewMountService binds a driver and configuration.
func NewMountService(drv FilesystemDriver, cfg MountConfig) *MountService {
	return &MountService{drv: drv, cfg: cfg}
}

// Mounted reports whether Register succeeded. A partition reformatted after
// a failed capacity query stays mounted.
func (m *MountService) Mounted() bool {
	return m.mounted
}

// Mount registers the filesystem and queries its capacity. Every failure is
// logged here; callers only decide whether to carry on without a filesystem.
//
// If the capacity query fails after a good mount, the partition is formatted
// and Mount returns without querying again. That trades the partition's
// contents for a usable filesystem on the next boot.
func (m *MountService) Mount() (MountInfo, error) {
	LogInfo(mountTag, "Initializing flash filesystem")

	if err := m.drv.Register(m.cfg); err != nil {
		kind := classifyMountError(err)
		switch kind {
		case MountFailGeneric:
			LogError(mountTag, "Failed to mount or format filesystem")
		case MountFailNotFound:
			LogError(mountTag, "Failed to find flash partition")
		default:
			LogError(mountTag, "Failed to initialize filesystem ("+err.Error()+")")
		}
		RecordTiming(EvtMountFail, uint32(kind), 0)
		return MountInfo{}, &MountError{Kind: kind, Err: err}
	}
	m.mounted = true

	total, used, err := m.drv.Info(m.cfg.PartitionLabel)
	if err != nil {
		LogError(mountTag, "Failed to get partition information ("+err.Error()+"). Formatting...")
		if ferr := m.drv.Format(m.cfg.PartitionLabel); ferr != nil {
			LogError(mountTag, "Format failed ("+ferr.Error()+")")
		}
		RecordTiming(EvtFormat, 0, 0)
		return MountInfo{}, &MountError{Kind: MountFailInfo, Err: err}
	}

	LogInfo(mountTag, "Partition size: total: "+utoa64(total)+", used: "+utoa64(used))
	RecordTiming(EvtMount, uint32(total), uint32(used))
	return MountInfo{Total: total, Used: used}, nil
}

func classifyMountError(err error) MountFailure {
	switch {
	case errors.Is(err, ErrMountFailed):
		return MountFailGeneric
	case errors.Is(err, ErrPartitionNotFound):
		return MountFailNotFound
	}
	return MountFailDriver
}

// SeedAsset writes size bytes of a repeating pattern to path if the file
// cannot be opened. Filesystems without FileCreator are left alone.
func SeedAsset(drv FilesystemDriver, path string, size int) error {
	if size <= 0 {
		return nil
	}
	if f, err := drv.Open(path); err == nil {
		return f.Close()
	}

	fc, ok := drv.(FileCreator)
	if !ok {
		return nil
	}
	w, err := fc.Create(path)
	if err != nil {
		return err
	}

	var chunk [256]byte
	for i := range chunk {
		chunk[i] = byte(i)
	}
	for size > 0 {
		n := size
		if n > len(chunk) {
			n = len(chunk)
		}
		if _, err := w.Write(chunk[:n]); err != nil {
			w.Close()
			return err
		}
		size -= n
	}
	if err := w.Close(); err != nil {
		return err
	}
	LogInfo(mountTag, "Seeded "+path)
	return nil
}
