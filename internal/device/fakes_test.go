package device

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// fakeRunner answers commands from a table keyed by the joined argv.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	fail    map[string]bool
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, fail: map[string]bool{}}
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, key)
	if r.fail[key] {
		return nil, fmt.Errorf("%w: %s: exit status 1", ErrCommand, name)
	}
	out, ok := r.outputs[key]
	if !ok {
		return nil, nil
	}
	return []byte(out), nil
}

func (r *fakeRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fakeProvider is an in-memory Provider whose device set can change.
type fakeProvider struct {
	mu      sync.Mutex
	devices []BlockDevice
	err     error
	calls   int
}

func (p *fakeProvider) set(devices ...BlockDevice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = devices
}

func (p *fakeProvider) Enumerate(ctx context.Context) ([]BlockDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]BlockDevice, len(p.devices))
	copy(out, p.devices)
	return out, nil
}

func (p *fakeProvider) Unmount(ctx context.Context, path string) error { return nil }

func (p *fakeProvider) OpenForWrite(path string) (WriteHandle, error) { return nil, ErrUnsupported }

func (p *fakeProvider) OpenForRead(path string) (io.ReadCloser, error) { return nil, ErrUnsupported }

func (p *fakeProvider) Eject(ctx context.Context, path string) error { return nil }

func staticMounts(entries ...mountEntry) mountLister {
	return func(context.Context) ([]mountEntry, error) {
		return entries, nil
	}
}
