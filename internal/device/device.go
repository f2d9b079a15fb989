package device

import (
	"context"
	"errors"
	"io"
)

// Failure kinds surfaced by providers. Errors returned by this package wrap
// one of these together with the underlying cause.
var (
	ErrIO          = errors.New("I/O error")
	ErrCommand     = errors.New("command failed")
	ErrParse       = errors.New("parse error")
	ErrPermission  = errors.New("elevated privileges required")
	ErrNotFound    = errors.New("device not found")
	ErrInvalidPath = errors.New("invalid device path")
	ErrUnsupported = errors.New("unsupported platform")
)

// BlockDevice describes a removable whole-disk device.
type BlockDevice struct {
	Path        string   `json:"path"`
	Name        string   `json:"name"`
	Size        uint64   `json:"size"`
	SizeHuman   string   `json:"size_human"`
	Removable   bool     `json:"removable"`
	MountPoints []string `json:"mount_points"`
}

// NewBlockDevice builds a removable device entry. SizeHuman is derived from size.
func NewBlockDevice(path, name string, size uint64, mountPoints []string) BlockDevice {
	if name == "" {
		name = path
	}
	if mountPoints == nil {
		mountPoints = []string{}
	}
	return BlockDevice{
		Path:        path,
		Name:        name,
		Size:        size,
		SizeHuman:   FormatSize(size),
		Removable:   true,
		MountPoints: mountPoints,
	}
}

// WriteHandle is a raw, sequential write handle on a device.
// Sync must flush everything written so far to the physical media.
type WriteHandle interface {
	io.Writer
	Sync() error
	Close() error
}

// Provider is the per-OS device capability surface.
type Provider interface {
	// Enumerate returns removable whole-disk devices with a known capacity.
	Enumerate(ctx context.Context) ([]BlockDevice, error)
	// Unmount releases every filesystem mounted from the device.
	Unmount(ctx context.Context, path string) error
	// OpenForWrite opens the raw device for sequential writing.
	OpenForWrite(path string) (WriteHandle, error)
	// OpenForRead opens the raw device for sequential reading.
	OpenForRead(path string) (io.ReadCloser, error)
	// Eject physically ejects the device after use.
	Eject(ctx context.Context, path string) error
}
