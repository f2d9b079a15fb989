// Package writer streams an image onto a removable device and optionally
// reads it back to verify the copy.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/dhavalsavalia/imgflash/internal/device"
)

// DefaultBlockSize is the transfer unit for both write and verify.
const DefaultBlockSize = 4 << 20

var (
	ErrNotRegularFile = errors.New("selected image is not a file")
	ErrEmptyImage     = errors.New("selected image is empty")
	ErrImageTooLarge  = errors.New("image exceeds device capacity")
	ErrVerifyMismatch = errors.New("verification failed: data mismatch detected")
)

// State is a step of a write operation.
type State int

const (
	StateResolving State = iota
	StateUnmounting
	StateSourceOpen
	StateWriting
	StateSyncing
	StateVerifyOpen
	StateVerifying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateUnmounting:
		return "unmounting"
	case StateSourceOpen:
		return "source-open"
	case StateWriting:
		return "writing"
	case StateSyncing:
		return "syncing"
	case StateVerifyOpen:
		return "verify-open"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request describes one write.
type Request struct {
	ImagePath  string
	DevicePath string
	Verify     bool
}

// Result describes a finished or aborted write.
type Result struct {
	Device       device.BlockDevice
	BytesWritten uint64
	Verified     bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBlockSize overrides DefaultBlockSize. Non-positive values are ignored.
func WithBlockSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.blockSize = n
		}
	}
}

// WithClock replaces time.Now for throughput calculations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStateFunc registers an observer for state transitions.
func WithStateFunc(fn func(State)) Option {
	return func(e *Engine) { e.onState = fn }
}

// Engine runs write operations against a device provider.
type Engine struct {
	provider  device.Provider
	service   *device.Service
	blockSize int
	now       func() time.Time
	onState   func(State)
}

// New creates an engine over provider.
func New(provider device.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:  provider,
		service:   device.NewService(provider),
		blockSize: DefaultBlockSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// operation carries the in-flight state of one Write call.
type operation struct {
	*Engine
	req   Request
	sink  Sink
	state State
	total uint64
}

func (op *operation) enter(s State) {
	op.state = s
	log.Debug().Str("device", op.req.DevicePath).Stringer("state", s).Msg("write state")
	if op.onState != nil {
		op.onState(s)
	}
}

// Write copies req.ImagePath onto req.DevicePath. Progress is reported to
// sink after every block; sink may be nil. The device is re-resolved by path
// first, and ctx is checked between blocks.
func (e *Engine) Write(ctx context.Context, req Request, sink Sink) (Result, error) {
	if sink == nil {
		sink = discardSink{}
	}
	op := &operation{Engine: e, req: req, sink: sink}

	res, err := op.run(ctx)
	if err != nil {
		failedIn := op.state
		op.enter(StateFailed)
		log.Error().Err(err).
			Str("image", req.ImagePath).
			Str("device", req.DevicePath).
			Stringer("state", failedIn).
			Msg("write failed")
		return res, err
	}
	op.enter(StateDone)
	log.Info().
		Str("image", req.ImagePath).
		Str("device", req.DevicePath).
		Uint64("bytes", res.BytesWritten).
		Bool("verified", res.Verified).
		Msg("write complete")
	return res, nil
}

func (op *operation) run(ctx context.Context) (Result, error) {
	op.enter(StateResolving)
	dev, err := op.service.Resolve(ctx, op.req.DevicePath)
	if err != nil {
		return Result{}, err
	}
	res := Result{Device: dev}

	op.enter(StateUnmounting)
	if err := op.provider.Unmount(ctx, dev.Path); err != nil {
		return res, errors.Wrap(err, "failed to unmount device")
	}

	op.enter(StateSourceOpen)
	src, err := op.openSource(dev)
	if err != nil {
		return res, err
	}
	defer src.Close()

	op.enter(StateWriting)
	res.BytesWritten, err = op.write(ctx, src, dev.Path)
	if err != nil {
		return res, err
	}

	if !op.req.Verify {
		return res, nil
	}

	op.enter(StateVerifyOpen)
	if err := op.verify(ctx, dev.Path); err != nil {
		return res, err
	}
	res.Verified = true
	return res, nil
}

// openSource checks the image against the device capacity and opens it.
// The checks run before open so a FIFO or device node is never opened.
func (op *operation) openSource(dev device.BlockDevice) (*os.File, error) {
	info, err := os.Stat(op.req.ImagePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image file")
	}

	switch {
	case !info.Mode().IsRegular():
		err = ErrNotRegularFile
	case info.Size() == 0:
		err = ErrEmptyImage
	case dev.Size > 0 && uint64(info.Size()) > dev.Size:
		err = errors.Wrapf(ErrImageTooLarge, "image size (%s), device capacity (%s)",
			device.FormatSize(uint64(info.Size())), device.FormatSize(dev.Size))
	}
	if err != nil {
		return nil, err
	}

	src, err := os.Open(op.req.ImagePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image file")
	}

	op.total = uint64(info.Size())
	return src, nil
}

func (op *operation) write(ctx context.Context, src io.Reader, path string) (uint64, error) {
	dst, err := op.provider.OpenForWrite(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open device")
	}
	closed := false
	defer func() {
		if !closed {
			dst.Close()
		}
	}()

	m := newMeter(PhaseWriting, op.total, op.now)
	buf := make([]byte, op.blockSize)
	var written uint64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, rerr := io.ReadFull(src, buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, errors.Wrap(err, "failed to write to device")
			}
			written += uint64(n)
			op.sink.Progress(m.at(written))
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return written, errors.Wrap(rerr, "failed to read image")
		}
	}

	if written != op.total {
		return written, errors.Errorf("size mismatch: wrote %d, expected %d", written, op.total)
	}

	op.enter(StateSyncing)
	if err := dst.Sync(); err != nil {
		return written, errors.Wrap(err, "failed to sync device")
	}
	closed = true
	if err := dst.Close(); err != nil {
		return written, errors.Wrap(err, "failed to close device")
	}
	return written, nil
}

// verify re-reads the image and the device in lock-step and fails on the
// first differing block.
func (op *operation) verify(ctx context.Context, path string) error {
	src, err := os.Open(op.req.ImagePath)
	if err != nil {
		return errors.Wrap(err, "failed to open image for verification")
	}
	defer src.Close()

	dev, err := op.provider.OpenForRead(path)
	if err != nil {
		return errors.Wrap(err, "failed to open device for verification")
	}
	defer dev.Close()

	op.enter(StateVerifying)
	m := newMeter(PhaseVerifying, op.total, op.now)
	srcBuf := make([]byte, op.blockSize)
	devBuf := make([]byte, op.blockSize)
	var verified uint64

	for verified < op.total {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.ReadFull(src, srcBuf)
		if n == 0 {
			if err == nil || err == io.EOF {
				break
			}
			return errors.Wrap(err, "failed to read image during verification")
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return errors.Wrap(err, "failed to read image during verification")
		}

		if _, err := io.ReadFull(dev, devBuf[:n]); err != nil {
			return errors.Wrap(err, "failed to read device during verification")
		}
		if !bytes.Equal(srcBuf[:n], devBuf[:n]) {
			return fmt.Errorf("%w at offset %d", ErrVerifyMismatch, verified+firstDiff(srcBuf[:n], devBuf[:n]))
		}

		verified += uint64(n)
		op.sink.Progress(m.at(verified))
	}

	if verified != op.total {
		return errors.Errorf("image changed during verification: read %d of %d bytes", verified, op.total)
	}
	return nil
}

func firstDiff(a, b []byte) uint64 {
	for i := range a {
		if a[i] != b[i] {
			return uint64(i)
		}
	}
	return uint64(len(a))
}

// Eject re-resolves path and asks the provider to eject it.
func (e *Engine) Eject(ctx context.Context, path string) error {
	dev, err := e.service.Resolve(ctx, path)
	if err != nil {
		return err
	}
	if err := e.provider.Eject(ctx, dev.Path); err != nil {
		return errors.Wrap(err, "failed to eject device")
	}
	log.Info().Str("device", dev.Path).Msg("device ejected")
	return nil
}
