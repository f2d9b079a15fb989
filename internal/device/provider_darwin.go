//go:build darwin

package device

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

type darwinProvider struct {
	run runner
}

// New returns the Provider for macOS.
func New() Provider {
	return &darwinProvider{run: execRunner{}}
}

func (p *darwinProvider) Enumerate(ctx context.Context) ([]BlockDevice, error) {
	return enumerateDiskutil(ctx, p.run)
}

func (p *darwinProvider) Unmount(ctx context.Context, path string) error {
	id, err := darwinDiskID(path)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(`do shell script "diskutil unmountDisk /dev/%s" with administrator privileges`, id)
	if err := runElevated(ctx, p.run,
		[]string{"diskutil", "unmountDisk", id},
		[]string{"osascript", "-e", script},
	); err != nil {
		return fmt.Errorf("failed to unmount disk %s: %w", id, err)
	}
	return nil
}

func (p *darwinProvider) OpenForWrite(path string) (WriteHandle, error) {
	raw, err := darwinRawPath(path)
	if err != nil {
		return nil, err
	}
	f, err := openRaw(raw, os.O_WRONLY, "run with sudo to write to "+raw, nil)
	if err != nil {
		return nil, err
	}
	return &rawFile{File: f, flush: flushDarwin}, nil
}

func (p *darwinProvider) OpenForRead(path string) (io.ReadCloser, error) {
	raw, err := darwinRawPath(path)
	if err != nil {
		return nil, err
	}
	return openRaw(raw, os.O_RDONLY, "run with sudo to read "+raw, nil)
}

func (p *darwinProvider) Eject(ctx context.Context, path string) error {
	id, err := darwinDiskID(path)
	if err != nil {
		return err
	}
	if _, err := p.run.Run(ctx, "diskutil", "eject", id); err != nil {
		return fmt.Errorf("failed to eject disk %s: %w", id, err)
	}
	return nil
}

// flushDarwin asks the drive itself to flush; fsync alone stops at the
// controller cache on macOS.
func flushDarwin(f *os.File) error {
	if _, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0); err == nil {
		return nil
	}
	return f.Sync()
}
