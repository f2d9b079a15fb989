package device

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"howett.net/plist"
)

// diskutilList mirrors `diskutil list -plist`.
type diskutilList struct {
	AllDisks              []string       `plist:"AllDisks"`
	AllDisksAndPartitions []diskutilDisk `plist:"AllDisksAndPartitions"`
}

type diskutilDisk struct {
	DeviceIdentifier string           `plist:"DeviceIdentifier"`
	MountPoint       string           `plist:"MountPoint"`
	Partitions       []diskutilVolume `plist:"Partitions"`
	APFSVolumes      []diskutilVolume `plist:"APFSVolumes"`
}

type diskutilVolume struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	MountPoint       string `plist:"MountPoint"`
}

func parseDiskutilList(data []byte) (*diskutilList, error) {
	var list diskutilList
	if _, err := plist.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: diskutil list output: %w", ErrParse, err)
	}
	return &list, nil
}

// wholeDisks returns identifiers like disk4, skipping slices like disk4s1.
func (l *diskutilList) wholeDisks() []string {
	var ids []string
	for _, id := range l.AllDisks {
		if isWholeDiskID(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// mountPoints collects the mount points of a disk and all of its volumes.
func (l *diskutilList) mountPoints(id string) []string {
	points := []string{}
	for _, d := range l.AllDisksAndPartitions {
		if d.DeviceIdentifier != id {
			continue
		}
		if d.MountPoint != "" {
			points = append(points, d.MountPoint)
		}
		for _, vols := range [][]diskutilVolume{d.Partitions, d.APFSVolumes} {
			for _, v := range vols {
				if v.MountPoint != "" {
					points = append(points, v.MountPoint)
				}
			}
		}
	}
	return points
}

// parseDiskutilInfo decodes `diskutil info -plist diskN` into a device.
// ok is false when the disk is not removable or reports no capacity.
func parseDiskutilInfo(id string, data []byte, mountPoints []string) (BlockDevice, bool, error) {
	var info map[string]interface{}
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return BlockDevice{}, false, fmt.Errorf("%w: diskutil info %s: %w", ErrParse, id, err)
	}

	name := plistString(info, "MediaName")
	if name == "" {
		name = plistString(info, "IORegistryEntryName")
	}
	if name == "" {
		name = id
	}

	size := plistUint(info, "TotalSize")
	if size == 0 {
		size = plistUint(info, "Size")
	}

	removable := plistBool(info, "Removable") || plistBool(info, "RemovableMedia") || plistBool(info, "Ejectable")
	if internal, present := info["Internal"].(bool); present && !internal {
		removable = true
	}

	if !removable || size == 0 {
		return BlockDevice{}, false, nil
	}

	if mp := plistString(info, "MountPoint"); mp != "" && !slices.Contains(mountPoints, mp) {
		mountPoints = append(mountPoints, mp)
	}

	return NewBlockDevice("/dev/"+id, name, size, mountPoints), true, nil
}

// enumerateDiskutil drives diskutil and tolerates per-disk failures.
func enumerateDiskutil(ctx context.Context, r runner) ([]BlockDevice, error) {
	out, err := r.Run(ctx, "diskutil", "list", "-plist", "external", "physical")
	if err != nil {
		return nil, err
	}
	list, err := parseDiskutilList(out)
	if err != nil {
		return nil, err
	}

	devices := []BlockDevice{}
	for _, id := range list.wholeDisks() {
		data, err := r.Run(ctx, "diskutil", "info", "-plist", id)
		if err != nil {
			log.Warn().Err(err).Str("disk", id).Msg("skipping disk without info")
			continue
		}
		dev, ok, err := parseDiskutilInfo(id, data, list.mountPoints(id))
		if err != nil {
			log.Warn().Err(err).Str("disk", id).Msg("skipping disk with unreadable info")
			continue
		}
		if ok {
			devices = append(devices, dev)
		}
	}
	return devices, nil
}

func isWholeDiskID(id string) bool {
	n, ok := strings.CutPrefix(id, "disk")
	if !ok || n == "" {
		return false
	}
	for _, c := range n {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// darwinDiskID maps /dev/diskN or /dev/rdiskN to diskN.
func darwinDiskID(path string) (string, error) {
	id, ok := strings.CutPrefix(path, "/dev/r")
	if !ok {
		id, ok = strings.CutPrefix(path, "/dev/")
	}
	if !ok || !isWholeDiskID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return id, nil
}

// darwinRawPath maps a disk path to its unbuffered /dev/rdiskN node.
func darwinRawPath(path string) (string, error) {
	id, err := darwinDiskID(path)
	if err != nil {
		return "", err
	}
	return "/dev/r" + id, nil
}

func plistString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func plistBool(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func plistUint(m map[string]interface{}, key string) uint64 {
	switch v := m[key].(type) {
	case uint64:
		return v
	case int64:
		if v > 0 {
			return uint64(v)
		}
	case float64:
		if v > 0 {
			return uint64(v)
		}
	}
	return 0
}
