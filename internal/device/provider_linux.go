//go:build linux

package device

import (
	"context"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

type linuxProvider struct {
	scanner sysfsScanner
	run     runner
}

// New returns the Provider for Linux.
func New() Provider {
	return &linuxProvider{
		scanner: sysfsScanner{root: "/sys", mounts: gopsutilMounts},
		run:     execRunner{},
	}
}

func (p *linuxProvider) Enumerate(ctx context.Context) ([]BlockDevice, error) {
	return p.scanner.scan(ctx)
}

func (p *linuxProvider) Unmount(ctx context.Context, path string) error {
	if err := linuxDevicePath(path); err != nil {
		return err
	}
	return unmountMountPoints(ctx, p.run, p.scanner.mounts, path)
}

func (p *linuxProvider) OpenForWrite(path string) (WriteHandle, error) {
	if err := linuxDevicePath(path); err != nil {
		return nil, err
	}
	// O_EXCL on a block device fails with EBUSY while anything holds it.
	f, err := openRaw(path, os.O_WRONLY|os.O_EXCL,
		"run with elevated privileges (sudo) to write to "+path, nil)
	if err != nil {
		return nil, err
	}
	return &rawFile{File: f, flush: flushLinux}, nil
}

func (p *linuxProvider) OpenForRead(path string) (io.ReadCloser, error) {
	if err := linuxDevicePath(path); err != nil {
		return nil, err
	}
	return openRaw(path, os.O_RDONLY,
		"run with elevated privileges (sudo) to read "+path, nil)
}

func (p *linuxProvider) Eject(ctx context.Context, path string) error {
	if err := linuxDevicePath(path); err != nil {
		return err
	}
	return ejectLinux(ctx, p.run, path)
}

// flushLinux fsyncs and then drops the device's buffer cache so a following
// read pass sees the media.
func flushLinux(f *os.File) error {
	if err := f.Sync(); err != nil {
		return err
	}
	// BLKFLSBUF needs CAP_SYS_ADMIN; without it the fsync above still holds.
	_ = unix.IoctlSetInt(int(f.Fd()), unix.BLKFLSBUF, 0)
	return nil
}
