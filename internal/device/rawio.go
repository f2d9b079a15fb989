package device

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// rawFile is an opened device node with a platform specific flush.
type rawFile struct {
	*os.File
	flush func(*os.File) error
}

func (f *rawFile) Sync() error {
	if f.flush == nil {
		return f.File.Sync()
	}
	return f.flush(f.File)
}

// openRaw opens a device node, translating permission failures into
// ErrPermission carrying hint as the actionable message.
func openRaw(path string, flag int, hint string, isPermission func(error) bool) (*os.File, error) {
	if isPermission == nil {
		isPermission = func(err error) bool { return errors.Is(err, fs.ErrPermission) }
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if isPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermission, hint)
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return f, nil
}
