package core

import "errors"

var (
	// ErrMountFailed means the partition could not be mounted or formatted.
	ErrMountFailed = errors.New("failed to mount or format filesystem")
	// ErrPartitionNotFound means no partition matched the label.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrNotMounted is returned by filesystem calls made before a mount.
	ErrNotMounted = errors.New("filesystem not mounted")
	// ErrTooManyFiles is returned when MaxFiles handles are already open.
	ErrTooManyFiles = errors.New("too many open files")
)

// MountConfig configures the flash filesystem.
type MountConfig struct {
	BasePath            string `json:"base_path" yaml:"base_path"`
	PartitionLabel      string `json:"partition_label" yaml:"partition_label"`
	MaxFiles            int    `json:"max_files" yaml:"max_files"`
	FormatIfMountFailed bool   `json:"format_if_mount_failed" yaml:"format_if_mount_failed"`
}

// File is an open file on the mounted filesystem.
type File interface {
	// Read blocks until data is available. It returns 0 at end of file.
	Read(p []byte) (int, error)
	Close() error
}

// WritableFile is a file opened for writing.
type WritableFile interface {
	Write(p []byte) (int, error)
	Close() error
}

// FilesystemDriver is the flash filesystem. It is an external collaborator:
// block allocation and wear levelling are its business.
type FilesystemDriver interface {
	// Register mounts the partition described by cfg. Errors are
	// ErrMountFailed, ErrPartitionNotFound or a *DriverError.
	Register(cfg MountConfig) error

	// Info reports partition capacity in bytes.
	Info(label string) (total, used uint64, err error)

	// Format erases the partition. All data is lost.
	Format(label string) error

	// Open opens path for reading.
	Open(path string) (File, error)
}

// FileCreator is implemented by filesystems that can create files. The
// harness uses it only to seed the test asset.
type FileCreator interface {
	Create(path string) (WritableFile, error)
}

// DriverError carries a driver-specific failure code and message.
type DriverError struct {
	Op   string
	Code int32
	Msg  string
}

func (e *DriverError) Error() string {
	s := e.Op + ": " + e.Msg
	if e.Code != 0 {
		s += " (code " + itoa(int(e.Code)) + ")"
	}
	return s
}

var fsDriver FilesystemDriver

// SetFilesystemDriver is called by target-specific code to register its driver.
func SetFilesystemDriver(d FilesystemDriver) {
	fsDriver = d
}

// MustFilesystem returns the configured driver or panics if missing.
func MustFilesystem() FilesystemDriver {
	if fsDriver == nil {
		panic("filesystem driver not configured")
	}
	return fsDriver
}
