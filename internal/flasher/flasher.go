// Package flasher exposes the operations the CLI and TUI are built on.
package flasher

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/dhavalsavalia/imgflash/internal/checksum"
	"github.com/dhavalsavalia/imgflash/internal/device"
	"github.com/dhavalsavalia/imgflash/internal/history"
	"github.com/dhavalsavalia/imgflash/internal/image"
	"github.com/dhavalsavalia/imgflash/internal/writer"
)

// ProgressEvent is the event name write progress is emitted under.
const ProgressEvent = "write-progress"

// ErrHistoryDisabled is returned by History when no store is attached.
var ErrHistoryDisabled = errors.New("write history is disabled")

// Emitter delivers named events to the presentation layer.
type Emitter interface {
	Emit(event string, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any) error

func (f EmitterFunc) Emit(event string, payload any) error { return f(event, payload) }

// WriteOptions tune WriteImage beyond the per-call verify flag.
type WriteOptions struct {
	AutoEject bool
}

// Option configures a Flasher.
type Option func(*Flasher)

// WithEmitter sets the progress event receiver.
func WithEmitter(e Emitter) Option {
	return func(f *Flasher) { f.emitter = e }
}

// WithHistory records every write in store.
func WithHistory(store *history.Store) Option {
	return func(f *Flasher) { f.history = store }
}

// WithWriteOptions sets the default write options.
func WithWriteOptions(opts WriteOptions) Option {
	return func(f *Flasher) { f.writeOpts = opts }
}

// WithEngineOptions passes options through to the write engine.
func WithEngineOptions(opts ...writer.Option) Option {
	return func(f *Flasher) { f.engineOpts = append(f.engineOpts, opts...) }
}

// Flasher ties the device, image, checksum and writer packages together.
type Flasher struct {
	service    *device.Service
	engine     *writer.Engine
	emitter    Emitter
	history    *history.Store
	writeOpts  WriteOptions
	engineOpts []writer.Option
	now        func() time.Time
}

// New creates a Flasher over provider.
func New(provider device.Provider, opts ...Option) *Flasher {
	f := &Flasher{
		service: device.NewService(provider),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.engine = writer.New(provider, f.engineOpts...)
	return f
}

// ListDevices returns the removable devices currently attached.
func (f *Flasher) ListDevices(ctx context.Context) ([]device.BlockDevice, error) {
	return f.service.List(ctx)
}

// GetFileInfo returns metadata for the file at path.
func (f *Flasher) GetFileInfo(path string) (image.FileInfo, error) {
	return image.Stat(path)
}

// CalculateChecksum returns the hex digest of path.
func (f *Flasher) CalculateChecksum(ctx context.Context, path, algorithm string) (string, error) {
	return checksum.Calculate(ctx, path, algorithm)
}

// CalculateChecksumWithProgress is CalculateChecksum reporting bytes hashed.
func (f *Flasher) CalculateChecksumWithProgress(ctx context.Context, path, algorithm string, progress checksum.ProgressFunc) (string, error) {
	return checksum.CalculateWithProgress(ctx, path, algorithm, progress)
}

// VerifyChecksum computes the digest of path and compares it with expected.
func (f *Flasher) VerifyChecksum(ctx context.Context, path, algorithm, expected string) (string, bool, error) {
	actual, err := checksum.Calculate(ctx, path, algorithm)
	if err != nil {
		return "", false, err
	}
	return actual, checksum.Matches(expected, actual), nil
}

// ValidateImage inspects path and checks it against deviceSize when given.
func (f *Flasher) ValidateImage(path string, deviceSize *uint64) (image.Validation, error) {
	return image.Validate(path, deviceSize)
}

// WriteImage writes imagePath to devicePath, emitting writer.Progress
// events under ProgressEvent. Emit failures are logged and ignored.
func (f *Flasher) WriteImage(ctx context.Context, imagePath, devicePath string, verify bool) error {
	started := f.now()
	res, err := f.engine.Write(ctx, writer.Request{
		ImagePath:  imagePath,
		DevicePath: devicePath,
		Verify:     verify,
	}, writer.SinkFunc(f.emitProgress))

	ejected := false
	if err == nil && f.writeOpts.AutoEject {
		if eerr := f.engine.Eject(ctx, devicePath); eerr != nil {
			log.Warn().Err(eerr).Str("device", devicePath).Msg("auto-eject failed")
		} else {
			ejected = true
		}
	}

	f.record(ctx, history.Entry{
		ImagePath:  imagePath,
		DevicePath: devicePath,
		DeviceName: res.Device.Name,
		Bytes:      res.BytesWritten,
		Verified:   res.Verified,
		Ejected:    ejected,
		StartedAt:  started,
		FinishedAt: f.now(),
	}, err)

	return err
}

// StartWrite runs WriteImage on its own goroutine. The channel receives
// exactly one value.
func (f *Flasher) StartWrite(ctx context.Context, imagePath, devicePath string, verify bool) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- f.WriteImage(ctx, imagePath, devicePath, verify)
	}()
	return done
}

// EjectDevice re-resolves devicePath and ejects it.
func (f *Flasher) EjectDevice(ctx context.Context, devicePath string) error {
	return f.engine.Eject(ctx, devicePath)
}

// History lists up to limit recorded writes, newest first.
func (f *Flasher) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if f.history == nil {
		return nil, ErrHistoryDisabled
	}
	return f.history.List(ctx, limit)
}

func (f *Flasher) emitProgress(p writer.Progress) {
	if f.emitter == nil {
		return
	}
	if err := f.emitter.Emit(ProgressEvent, p); err != nil {
		log.Warn().Err(err).Str("event", ProgressEvent).Msg("failed to emit progress")
	}
}

func (f *Flasher) record(ctx context.Context, e history.Entry, writeErr error) {
	if f.history == nil {
		return
	}
	if writeErr != nil {
		e.Error = writeErr.Error()
	}
	// A cancelled write is still worth recording.
	if _, err := f.history.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Warn().Err(err).Msg("failed to record write history")
	}
}
