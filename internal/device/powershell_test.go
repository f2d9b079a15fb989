package device

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestParsePowerShellDisks_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"whitespace", "  \r\n", nil},
		{"null", "null\r\n", nil},
		{
			"single object",
			`{"Number":2,"FriendlyName":"SanDisk Cruzer","Size":32010928128,"MountPoints":"E:"}`,
			[]string{`\\.\PhysicalDrive2`},
		},
		{
			"array",
			`[{"Number":2,"FriendlyName":"A","Size":1024,"MountPoints":""},{"Number":3,"FriendlyName":"B","Size":2048,"MountPoints":"F:,G:"}]`,
			[]string{`\\.\PhysicalDrive2`, `\\.\PhysicalDrive3`},
		},
		{
			"zero size skipped",
			`[{"Number":4,"FriendlyName":"Empty Reader","Size":0,"MountPoints":""}]`,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := parsePowerShellDisks([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if devices == nil {
				t.Fatal("expected non-nil slice")
			}
			var paths []string
			for _, d := range devices {
				paths = append(paths, d.Path)
			}
			if !slices.Equal(paths, tt.want) {
				t.Errorf("paths = %v, want %v", paths, tt.want)
			}
		})
	}
}

func TestParsePowerShellDisks_Fields(t *testing.T) {
	out := `{"Number":3,"FriendlyName":"  Kingston DataTraveler ","Size":16106127360,"MountPoints":"F:, G:"}`

	devices, err := parsePowerShellDisks([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	dev := devices[0]
	if dev.Name != "Kingston DataTraveler" {
		t.Errorf("name = %q", dev.Name)
	}
	if dev.SizeHuman != "15.0 GB" {
		t.Errorf("size_human = %q", dev.SizeHuman)
	}
	if !slices.Equal(dev.MountPoints, []string{"F:", "G:"}) {
		t.Errorf("mount points = %v", dev.MountPoints)
	}
}

func TestParsePowerShellDisks_Malformed(t *testing.T) {
	_, err := parsePowerShellDisks([]byte(`[{"Number":`))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestWindowsDiskNumber(t *testing.T) {
	n, err := windowsDiskNumber(`\\.\PhysicalDrive7`)
	if err != nil || n != 7 {
		t.Errorf("got %d, %v; want 7", n, err)
	}

	for _, bad := range []string{`C:`, `\\.\PhysicalDrive`, `\\.\PhysicalDriveX`, "/dev/sdb"} {
		if _, err := windowsDiskNumber(bad); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("windowsDiskNumber(%q) = %v, want ErrInvalidPath", bad, err)
		}
	}
}

func TestEjectWindowsVolumes_ElevatedRetry(t *testing.T) {
	r := newFakeRunner()
	script := strings.Replace(ejectVolumesScript, "%d", "2", 1)
	r.fail["powershell -NoProfile -NonInteractive -Command "+script] = true

	if err := ejectWindowsVolumes(context.Background(), r, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := r.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected plain and elevated attempts, got %d", len(calls))
	}
	if !strings.Contains(calls[1], "-Verb RunAs") {
		t.Errorf("second attempt not elevated: %s", calls[1])
	}
}
