// Package image inspects disk image files before they are written.
package image

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dhavalsavalia/imgflash/internal/device"
)

// Image formats reported by Validate.
const (
	FormatUnknown = "Unknown"
	FormatISO9660 = "ISO 9660"
	FormatMBR     = "Disk Image (MBR)"
	FormatGPT     = "Disk Image (GPT)"
)

// MinImageSize is the smallest file that can hold a boot sector.
const MinImageSize = 512

const (
	isoDescriptorOffset = 32768
	mbrSignatureOffset  = 510
	gptHeaderOffset     = 512
)

var (
	isoMagic = []byte("CD001")
	mbrMagic = []byte{0x55, 0xAA}
	gptMagic = []byte("EFI PART")
)

// FileInfo is a snapshot of an image file's metadata.
type FileInfo struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Size      uint64 `json:"size"`
	SizeHuman string `json:"size_human"`
}

// Stat reads the metadata of the file at path.
func Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to read file: %w", err)
	}
	size := uint64(0)
	if info.Size() > 0 {
		size = uint64(info.Size())
	}
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		name = path
	}
	return FileInfo{
		Path:      path,
		Name:      name,
		Size:      size,
		SizeHuman: device.FormatSize(size),
	}, nil
}

// Validation is the outcome of Validate.
type Validation struct {
	IsValid  bool     `json:"is_valid"`
	Format   string   `json:"format"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate probes path for known disk-image signatures and checks its size
// against deviceSize when one is given. Probe read failures count as a
// missing signature; only failing to open or stat the file is an error.
func Validate(path string, deviceSize *uint64) (Validation, error) {
	f, err := os.Open(path)
	if err != nil {
		return Validation{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Validation{}, fmt.Errorf("failed to read file metadata: %w", err)
	}
	size := uint64(0)
	if info.Size() > 0 {
		size = uint64(info.Size())
	}

	v := Validation{Format: FormatUnknown, Errors: []string{}, Warnings: []string{}}

	if deviceSize != nil && size > *deviceSize {
		v.Errors = append(v.Errors, fmt.Sprintf(
			"Image size (%s) exceeds device capacity (%s)",
			device.FormatSize(size), device.FormatSize(*deviceSize),
		))
	}

	hasBootSignature := probe(f, mbrSignatureOffset, mbrMagic)

	// The ISO primary volume descriptor is "\x01CD001".
	if probe(f, isoDescriptorOffset+1, isoMagic) {
		v.Format = FormatISO9660
		if !hasBootSignature {
			v.Warnings = append(v.Warnings,
				"ISO image has no boot sector signature; it is not a hybrid image and may not boot from USB")
		}
	} else if hasBootSignature {
		v.Format = FormatMBR
	}

	// GPT disks carry a protective MBR, so GPT wins over MBR.
	if v.Format == FormatUnknown || v.Format == FormatMBR {
		if probe(f, gptHeaderOffset, gptMagic) {
			v.Format = FormatGPT
		}
	}

	if v.Format == FormatUnknown {
		v.Warnings = append(v.Warnings,
			"Could not determine image format. The file may not be a bootable disk image.")
	}

	if size < MinImageSize {
		v.Errors = append(v.Errors, "File is too small to be a valid disk image")
	}

	v.IsValid = len(v.Errors) == 0
	return v, nil
}

// probe reports whether magic is present at offset.
func probe(r io.ReaderAt, offset int64, magic []byte) bool {
	buf := make([]byte, len(magic))
	if _, err := r.ReadAt(buf, offset); err != nil {
		return false
	}
	return bytes.Equal(buf, magic)
}
