package ui

import (
	"strings"
	"testing"

	"github.com/dhavalsavalia/imgflash/internal/device"
)

func TestDevicePanel_Navigation(t *testing.T) {
	p := NewDevicePanel()
	if p.Selected() != nil {
		t.Fatal("empty panel should have no selection")
	}

	p.SetDevices([]device.BlockDevice{
		device.NewBlockDevice("/dev/sdb", "A", gib, nil),
		device.NewBlockDevice("/dev/sdc", "B", gib, nil),
	})

	p.MoveUp()
	if p.Selected().Path != "/dev/sdb" {
		t.Errorf("MoveUp at top moved selection to %s", p.Selected().Path)
	}
	p.MoveDown()
	p.MoveDown()
	if p.Selected().Path != "/dev/sdc" {
		t.Errorf("MoveDown at bottom moved selection to %s", p.Selected().Path)
	}

	// Selected device removed falls back to the first entry
	p.SetDevices([]device.BlockDevice{device.NewBlockDevice("/dev/sdd", "C", gib, nil)})
	if p.Selected().Path != "/dev/sdd" {
		t.Errorf("selected = %s", p.Selected().Path)
	}
}

func TestDevicePanel_ViewShowsMountPoints(t *testing.T) {
	p := NewDevicePanel()
	p.SetDevices([]device.BlockDevice{
		device.NewBlockDevice("/dev/sdb", "SanDisk", gib, []string{"/media/usb"}),
	})

	view := p.View()
	for _, want := range []string{"SanDisk", "/dev/sdb", "/media/usb"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLogPanel_KeepsLastEntries(t *testing.T) {
	p := NewLogPanel()
	for i := 0; i < 60; i++ {
		p.Add(LogInfo, "entry")
	}
	if got := len(p.Entries()); got != 50 {
		t.Errorf("entries = %d, want 50", got)
	}
}

func TestPathDialog_Value(t *testing.T) {
	d := NewPathDialog("")
	d.Insert([]rune(` "/tmp/my image.iso" `))
	if got := d.Value(); got != "/tmp/my image.iso" {
		t.Errorf("value = %q", got)
	}

	d = NewPathDialog("ab")
	d.Backspace()
	d.Backspace()
	d.Backspace()
	if got := d.Value(); got != "" {
		t.Errorf("value = %q", got)
	}
}

func TestRenderProgressBar_Clamps(t *testing.T) {
	if got := RenderProgressBar(150, 20); !strings.Contains(got, "100%") {
		t.Errorf("expected clamp to 100%%, got %q", got)
	}
	if got := RenderProgressBar(-5, 20); !strings.Contains(got, "  0%") {
		t.Errorf("expected clamp to 0%%, got %q", got)
	}
}
