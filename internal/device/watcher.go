package device

import (
	"context"
	"slices"
	"time"
)

// Snapshot is one observation of the removable device set.
type Snapshot struct {
	Devices []BlockDevice
	Err     error
}

// Watcher polls a Service and reports device set changes.
type Watcher struct {
	service *Service
}

// NewWatcher creates a watcher over service.
func NewWatcher(service *Service) *Watcher {
	return &Watcher{service: service}
}

// Watch sends the current device set immediately and then again whenever it
// changes. The channel is closed when the context is cancelled.
func (w *Watcher) Watch(ctx context.Context, pollInterval time.Duration) <-chan Snapshot {
	snapshots := make(chan Snapshot)

	go func() {
		defer close(snapshots)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		// Check immediately on start
		last := w.poll(ctx)
		select {
		case snapshots <- last:
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current := w.poll(ctx)
				if sameSnapshot(last, current) {
					continue
				}
				last = current
				select {
				case snapshots <- current:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return snapshots
}

func (w *Watcher) poll(ctx context.Context) Snapshot {
	devices, err := w.service.List(ctx)
	return Snapshot{Devices: devices, Err: err}
}

func sameSnapshot(a, b Snapshot) bool {
	if (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if a.Err != nil {
		return a.Err.Error() == b.Err.Error()
	}
	return SameDevices(a.Devices, b.Devices)
}

// SameDevices compares two enumerations field by field, ignoring mount point order.
func SameDevices(a, b []BlockDevice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Path != y.Path || x.Name != y.Name || x.Size != y.Size ||
			x.SizeHuman != y.SizeHuman || x.Removable != y.Removable {
			return false
		}
		mx, my := slices.Clone(x.MountPoints), slices.Clone(y.MountPoints)
		slices.Sort(mx)
		slices.Sort(my)
		if !slices.Equal(mx, my) {
			return false
		}
	}
	return true
}
