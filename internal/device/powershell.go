package device

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const physicalDrivePrefix = `\\.\PhysicalDrive`

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// listDisksScript emits one JSON object per removable-bus disk.
const listDisksScript = `Get-Disk | Where-Object { $_.BusType -in @('USB','SD','MMC') } | ForEach-Object {
    $disk = $_
    $partitions = Get-Partition -DiskNumber $disk.Number -ErrorAction SilentlyContinue
    $mountPoints = @()
    foreach ($p in $partitions) {
        $vol = Get-Volume -Partition $p -ErrorAction SilentlyContinue
        if ($vol.DriveLetter) {
            $mountPoints += "$($vol.DriveLetter):"
        }
    }
    [PSCustomObject]@{
        Number = $disk.Number
        FriendlyName = $disk.FriendlyName
        Size = $disk.Size
        MountPoints = $mountPoints -join ","
    }
} | ConvertTo-Json -Compress`

// ejectVolumesScript ejects every lettered volume of disk %d through the shell.
const ejectVolumesScript = `$ErrorActionPreference = 'Stop'
$partitions = Get-Partition -DiskNumber %d -ErrorAction SilentlyContinue
foreach ($p in $partitions) {
    $vol = Get-Volume -Partition $p -ErrorAction SilentlyContinue
    if ($vol.DriveLetter) {
        $driveLetter = "$($vol.DriveLetter):"
        $null = (New-Object -ComObject Shell.Application).Namespace(17).ParseName($driveLetter).InvokeVerb("Eject")
        Start-Sleep -Milliseconds 500
    }
}`

type psDisk struct {
	Number       int    `json:"Number"`
	FriendlyName string `json:"FriendlyName"`
	Size         uint64 `json:"Size"`
	MountPoints  string `json:"MountPoints"`
}

// parsePowerShellDisks accepts the empty, null, single-object and array
// shapes ConvertTo-Json produces.
func parsePowerShellDisks(out []byte) ([]BlockDevice, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []BlockDevice{}, nil
	}

	var disks []psDisk
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &disks); err != nil {
			return nil, fmt.Errorf("%w: disk list: %w", ErrParse, err)
		}
	} else {
		var disk psDisk
		if err := json.Unmarshal(trimmed, &disk); err != nil {
			return nil, fmt.Errorf("%w: disk info: %w", ErrParse, err)
		}
		disks = []psDisk{disk}
	}

	devices := []BlockDevice{}
	for _, d := range disks {
		if d.Size == 0 {
			continue
		}
		mountPoints := []string{}
		for _, mp := range strings.Split(d.MountPoints, ",") {
			if mp = strings.TrimSpace(mp); mp != "" {
				mountPoints = append(mountPoints, mp)
			}
		}
		path := physicalDrivePrefix + strconv.Itoa(d.Number)
		devices = append(devices, NewBlockDevice(path, strings.TrimSpace(d.FriendlyName), d.Size, mountPoints))
	}
	return devices, nil
}

// windowsDiskNumber extracts N from \\.\PhysicalDriveN.
func windowsDiskNumber(path string) (int, error) {
	n, ok := strings.CutPrefix(path, physicalDrivePrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	num, err := strconv.ParseUint(strings.TrimSpace(n), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return int(num), nil
}

func powershell(ctx context.Context, r runner, script string) ([]byte, error) {
	return r.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
}

// elevatedPowerShell wraps script in an administrator Start-Process that
// waits for completion and propagates the exit code.
func elevatedPowerShell(script string) []string {
	quoted := strings.ReplaceAll(script, "'", "''")
	wrapper := fmt.Sprintf(
		`$p = Start-Process powershell -Verb RunAs -Wait -PassThru -ArgumentList '-NoProfile','-NonInteractive','-Command','%s'; exit $p.ExitCode`,
		quoted,
	)
	return []string{"powershell", "-NoProfile", "-NonInteractive", "-Command", wrapper}
}

// ejectWindowsVolumes releases every volume of disk num, retrying elevated.
func ejectWindowsVolumes(ctx context.Context, r runner, num int) error {
	script := fmt.Sprintf(ejectVolumesScript, num)
	return runElevated(ctx, r,
		[]string{"powershell", "-NoProfile", "-NonInteractive", "-Command", script},
		elevatedPowerShell(script),
	)
}
