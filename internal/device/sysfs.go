package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"
)

// sysfs reports sizes in 512-byte sectors regardless of the logical block size.
const sysfsSectorSize = 512

// Kernel block devices that are never user media.
var skippedBlockPrefixes = []string{"loop", "ram", "zram", "dm-"}

type mountEntry struct {
	Device     string
	MountPoint string
}

type mountLister func(ctx context.Context) ([]mountEntry, error)

// gopsutilMounts lists every mounted filesystem with its source device.
func gopsutilMounts(ctx context.Context) ([]mountEntry, error) {
	parts, err := disk.PartitionsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: list mounts: %w", ErrIO, err)
	}
	mounts := make([]mountEntry, 0, len(parts))
	for _, p := range parts {
		mounts = append(mounts, mountEntry{Device: p.Device, MountPoint: p.Mountpoint})
	}
	return mounts, nil
}

// sysfsScanner enumerates removable disks from a sysfs tree.
type sysfsScanner struct {
	root   string // normally "/sys"
	mounts mountLister
}

func (s sysfsScanner) scan(ctx context.Context) ([]BlockDevice, error) {
	blockDir := filepath.Join(s.root, "block")
	entries, err := os.ReadDir(blockDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BlockDevice{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, blockDir, err)
	}

	mounts, err := s.mounts(ctx)
	if err != nil {
		// Mount info is optional metadata; the device list is still usable.
		log.Warn().Err(err).Msg("mount points unavailable")
	}

	devices := []BlockDevice{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if hasAnyPrefix(name, skippedBlockPrefixes) {
			continue
		}

		dir := filepath.Join(blockDir, name)
		if readTrimmed(filepath.Join(dir, "removable")) != "1" {
			continue
		}

		sectors, err := strconv.ParseUint(readTrimmed(filepath.Join(dir, "size")), 10, 64)
		if err != nil || sectors == 0 {
			continue
		}

		path := "/dev/" + name
		devices = append(devices, NewBlockDevice(
			path,
			sysfsDeviceName(dir, name),
			sectors*sysfsSectorSize,
			mountPointsFor(path, mounts),
		))
	}

	return devices, nil
}

// sysfsDeviceName prefers "vendor model", then either part, then the kernel name.
func sysfsDeviceName(dir, fallback string) string {
	vendor := readTrimmed(filepath.Join(dir, "device", "vendor"))
	model := readTrimmed(filepath.Join(dir, "device", "model"))
	switch {
	case vendor != "" && model != "":
		return vendor + " " + model
	case model != "":
		return model
	case vendor != "":
		return vendor
	default:
		return fallback
	}
}

// mountPointsFor returns mount points whose source is disk or one of its partitions.
func mountPointsFor(disk string, mounts []mountEntry) []string {
	points := []string{}
	for _, m := range mounts {
		if m.MountPoint != "" && belongsTo(m.Device, disk) {
			points = append(points, m.MountPoint)
		}
	}
	return points
}

// belongsTo reports whether dev is disk itself or a numbered partition of it
// (sdb1, mmcblk0p2).
func belongsTo(dev, disk string) bool {
	if dev == disk {
		return true
	}
	rest, ok := strings.CutPrefix(dev, disk)
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, "p")
	if rest == "" {
		return false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// linuxDevicePath accepts only /dev/ nodes.
func linuxDevicePath(path string) error {
	if !strings.HasPrefix(path, "/dev/") || len(path) == len("/dev/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// unmountMountPoints unmounts every filesystem of disk, retrying each one
// through pkexec when the plain umount is refused.
func unmountMountPoints(ctx context.Context, r runner, mounts mountLister, disk string) error {
	entries, err := mounts(ctx)
	if err != nil {
		return err
	}
	for _, mp := range mountPointsFor(disk, entries) {
		err := runElevated(ctx, r,
			[]string{"umount", mp},
			[]string{"pkexec", "umount", mp},
		)
		if err != nil {
			return fmt.Errorf("failed to unmount %s: %w", mp, err)
		}
		log.Info().Str("device", disk).Str("mountpoint", mp).Msg("unmounted")
	}
	return nil
}

// ejectLinux tries eject(1) and then udisksctl power-off.
func ejectLinux(ctx context.Context, r runner, path string) error {
	err := runElevated(ctx, r,
		[]string{"eject", path},
		[]string{"udisksctl", "power-off", "-b", path},
	)
	if err != nil {
		return fmt.Errorf("failed to eject %s: %w", path, err)
	}
	return nil
}
