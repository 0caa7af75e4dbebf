//go:build rp2040

package main

import (
	"os"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"

	"flashjitter/core"
)

// flashLabel names the one data partition this target has.
const flashLabel = "storage"

// LittleFSDriver mounts littlefs on a flash block device.
type LittleFSDriver struct {
	dev      tinyfs.BlockDevice
	lfs      *littlefs.LFS
	mounted  bool
	maxFiles int
	open     int
}

// NewLittleFSDriver wraps dev. A nil device reports no partition.
func NewLittleFSDriver(dev tinyfs.BlockDevice) *LittleFSDriver {
	return &LittleFSDriver{dev: dev}
}

func (d *LittleFSDriver) Register(cfg core.MountConfig) error {
	if cfg.PartitionLabel != "" && cfg.PartitionLabel != flashLabel {
		return core.ErrPartitionNotFound
	}
	if d.dev == nil || d.dev.Size() == 0 {
		return core.ErrPartitionNotFound
	}
	if d.mounted {
		return &core.DriverError{Op: "register", Msg: "already mounted"}
	}

	d.lfs = littlefs.New(d.dev)
	d.lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 512,
		BlockCycles:   100,
	})

	if err := d.lfs.Mount(); err != nil {
		if !cfg.FormatIfMountFailed {
			return core.ErrMountFailed
		}
		if err := d.lfs.Format(); err != nil {
			return core.ErrMountFailed
		}
		if err := d.lfs.Mount(); err != nil {
			return core.ErrMountFailed
		}
	}
	d.maxFiles = cfg.MaxFiles
	d.mounted = true
	return nil
}

func (d *LittleFSDriver) Info(label string) (uint64, uint64, error) {
	if !d.mounted {
		return 0, 0, core.ErrNotMounted
	}
	blocks, err := d.lfs.Size()
	if err != nil {
		return 0, 0, &core.DriverError{Op: "info", Msg: err.Error()}
	}
	return uint64(d.dev.Size()), uint64(blocks) * uint64(d.dev.EraseBlockSize()), nil
}

// Format wipes the partition and leaves it mounted.
func (d *LittleFSDriver) Format(label string) error {
	if label != "" && label != flashLabel {
		return core.ErrPartitionNotFound
	}
	if d.lfs == nil {
		return core.ErrNotMounted
	}
	if d.mounted {
		d.lfs.Unmount()
		d.mounted = false
	}
	if err := d.lfs.Format(); err != nil {
		return &core.DriverError{Op: "format", Msg: err.Error()}
	}
	if err := d.lfs.Mount(); err != nil {
		return &core.DriverError{Op: "mount", Msg: err.Error()}
	}
	d.mounted = true
	return nil
}

func (d *LittleFSDriver) Open(path string) (core.File, error) {
	if !d.mounted {
		return nil, core.ErrNotMounted
	}
	if d.open >= d.maxFiles {
		return nil, core.ErrTooManyFiles
	}
	f, err := d.lfs.Open(path)
	if err != nil {
		return nil, &core.DriverError{Op: "open", Msg: err.Error()}
	}
	d.open++
	return &lfsFile{d: d, f: f}, nil
}

func (d *LittleFSDriver) Create(path string) (core.WritableFile, error) {
	if !d.mounted {
		return nil, core.ErrNotMounted
	}
	if d.open >= d.maxFiles {
		return nil, core.ErrTooManyFiles
	}
	f, err := d.lfs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return nil, &core.DriverError{Op: "create", Msg: err.Error()}
	}
	d.open++
	return &lfsFile{d: d, f: f}, nil
}

type lfsFile struct {
	d      *LittleFSDriver
	f      tinyfs.File
	closed bool
}

func (f *lfsFile) Read(p []byte) (int, error) {
	return f.f.Read(p)
}

func (f *lfsFile) Write(p []byte) (int, error) {
	return f.f.Write(p)
}

func (f *lfsFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.d.open--
	return f.f.Close()
}
