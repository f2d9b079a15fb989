//go:build windows

package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/windows"
)

type windowsProvider struct {
	run runner
}

// New returns the Provider for Windows.
func New() Provider {
	return &windowsProvider{run: execRunner{}}
}

func (p *windowsProvider) Enumerate(ctx context.Context) ([]BlockDevice, error) {
	out, err := powershell(ctx, p.run, listDisksScript)
	if err != nil {
		return nil, err
	}
	return parsePowerShellDisks(out)
}

// Unmount releases the disk as a unit: every lettered volume on it is ejected.
func (p *windowsProvider) Unmount(ctx context.Context, path string) error {
	num, err := windowsDiskNumber(path)
	if err != nil {
		return err
	}
	if err := ejectWindowsVolumes(ctx, p.run, num); err != nil {
		return fmt.Errorf("failed to release volumes of disk %d: %w", num, err)
	}
	return nil
}

func (p *windowsProvider) OpenForWrite(path string) (WriteHandle, error) {
	if _, err := windowsDiskNumber(path); err != nil {
		return nil, err
	}
	f, err := openRaw(path, os.O_RDWR, "run as Administrator to write to disk", isWindowsPermission)
	if err != nil {
		return nil, err
	}
	return &rawFile{File: f}, nil
}

func (p *windowsProvider) OpenForRead(path string) (io.ReadCloser, error) {
	if _, err := windowsDiskNumber(path); err != nil {
		return nil, err
	}
	return openRaw(path, os.O_RDONLY, "run as Administrator to read the disk", isWindowsPermission)
}

func (p *windowsProvider) Eject(ctx context.Context, path string) error {
	num, err := windowsDiskNumber(path)
	if err != nil {
		return err
	}
	if _, err := powershell(ctx, p.run, fmt.Sprintf(ejectVolumesScript, num)); err != nil {
		return fmt.Errorf("failed to eject disk %d: %w", num, err)
	}
	return nil
}

func isWindowsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, windows.ERROR_ACCESS_DENIED) ||
		errors.Is(err, windows.ERROR_PRIVILEGE_NOT_HELD)
}
