//go:build !linux && !darwin && !windows

package device

import (
	"context"
	"io"
)

type unsupportedProvider struct{}

// New returns a Provider whose operations all fail with ErrUnsupported.
func New() Provider {
	return unsupportedProvider{}
}

func (unsupportedProvider) Enumerate(context.Context) ([]BlockDevice, error) {
	return nil, ErrUnsupported
}

func (unsupportedProvider) Unmount(context.Context, string) error {
	return ErrUnsupported
}

func (unsupportedProvider) OpenForWrite(string) (WriteHandle, error) {
	return nil, ErrUnsupported
}

func (unsupportedProvider) OpenForRead(string) (io.ReadCloser, error) {
	return nil, ErrUnsupported
}

func (unsupportedProvider) Eject(context.Context, string) error {
	return ErrUnsupported
}
