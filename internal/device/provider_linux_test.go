//go:build linux

package device

import (
	"context"
	"errors"
	"testing"
)

func TestLinuxProvider_RejectsNonDevicePaths(t *testing.T) {
	p := New()

	if _, err := p.OpenForWrite("/tmp/x"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("OpenForWrite: expected ErrInvalidPath, got %v", err)
	}
	if _, err := p.OpenForRead("/tmp/x"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("OpenForRead: expected ErrInvalidPath, got %v", err)
	}
	if err := p.Unmount(context.Background(), "sdb"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Unmount: expected ErrInvalidPath, got %v", err)
	}
}

func TestLinuxProvider_MissingNodeIsIO(t *testing.T) {
	_, err := New().OpenForRead("/dev/imgflash-test-missing")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
