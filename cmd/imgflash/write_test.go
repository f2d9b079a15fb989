package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dhavalsavalia/imgflash/internal/writer"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Erase?")
		if err != nil {
			t.Fatalf("confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Erase? [y/N]: " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestFormatProgress(t *testing.T) {
	got := formatProgress(writer.Progress{
		Phase:        writer.PhaseWriting,
		BytesWritten: 512 << 20,
		TotalBytes:   1 << 30,
		SpeedBps:     16 << 20,
		EtaSeconds:   32,
	})
	want := "writing    50.0%  512 MiB / 1.0 GiB  16 MiB/s  ETA 32s"
	if got != want {
		t.Errorf("formatProgress = %q, want %q", got, want)
	}

	got = formatProgress(writer.Progress{Phase: writer.PhaseVerifying, TotalBytes: 1024})
	if strings.Contains(got, "ETA") {
		t.Errorf("no rate yet, got %q", got)
	}
}

func TestProgressPrinter_RejectsUnknownPayload(t *testing.T) {
	var out bytes.Buffer
	p := newProgressPrinter(&out)

	if err := p.Emit("write-progress", 42); err == nil {
		t.Error("expected error for non-progress payload")
	}
	if err := p.Emit("write-progress", writer.Progress{Phase: writer.PhaseWriting, TotalBytes: 10}); err != nil {
		t.Fatal(err)
	}
	p.finish()
	if !strings.HasPrefix(out.String(), "\rwriting") || !strings.HasSuffix(out.String(), "\n") {
		t.Errorf("output = %q", out.String())
	}
}
