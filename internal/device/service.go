package device

import (
	"context"
	"fmt"
)

// Service lists devices and re-resolves them by path before destructive use.
type Service struct {
	provider Provider
}

// NewService creates a service over provider.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// List returns the provider's current removable devices.
func (s *Service) List(ctx context.Context) ([]BlockDevice, error) {
	return s.provider.Enumerate(ctx)
}

// Resolve re-enumerates and returns the removable device at path.
func (s *Service) Resolve(ctx context.Context, path string) (BlockDevice, error) {
	devices, err := s.provider.Enumerate(ctx)
	if err != nil {
		return BlockDevice{}, err
	}
	for _, d := range devices {
		if d.Path == path && d.Removable {
			return d, nil
		}
	}
	return BlockDevice{}, fmt.Errorf("%w or not removable: %s", ErrNotFound, path)
}
