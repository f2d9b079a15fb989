package checksum

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCalculate_KnownDigests(t *testing.T) {
	path := writeFile(t, "abc.img", []byte("abc"))

	tests := []struct {
		algorithm string
		want      string
	}{
		{"sha256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"SHA256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"md5", "900150983cd24fb0d6963f7d28e17f72"},
		{"MD5", "900150983cd24fb0d6963f7d28e17f72"},
	}

	for _, tt := range tests {
		got, err := Calculate(context.Background(), path, tt.algorithm)
		if err != nil {
			t.Fatalf("Calculate(%s) failed: %v", tt.algorithm, err)
		}
		if got != tt.want {
			t.Errorf("Calculate(%s) = %s, want %s", tt.algorithm, got, tt.want)
		}
	}
}

func TestCalculate_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.img", nil)

	got, err := Calculate(context.Background(), path, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	if want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	data := make([]byte, BufferSize+12345)
	for i := range data {
		data[i] = byte(i * 7)
	}
	path := writeFile(t, "big.img", data)

	first, err := Calculate(context.Background(), path, "blake2b")
	if err != nil {
		t.Fatal(err)
	}
	second, err := Calculate(context.Background(), path, "blake2b")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("digests differ: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("expected 256-bit digest, got %d hex chars", len(first))
	}
}

func TestCalculate_UnsupportedAlgorithm(t *testing.T) {
	// The file does not exist: the selector must be rejected before any I/O.
	_, err := Calculate(context.Background(), "/nonexistent/image.iso", "sha1")
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestCalculate_MissingFile(t *testing.T) {
	_, err := Calculate(context.Background(), filepath.Join(t.TempDir(), "missing.img"), "sha256")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestCalculate_Cancelled(t *testing.T) {
	path := writeFile(t, "abc.img", []byte("abc"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Calculate(ctx, path, "sha256")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCalculateWithProgress(t *testing.T) {
	size := 2*BufferSize + 10
	path := writeFile(t, "progress.img", make([]byte, size))

	var calls []uint64
	_, err := CalculateWithProgress(context.Background(), path, "md5", func(processed, total uint64) {
		if total != uint64(size) {
			t.Errorf("total = %d, want %d", total, size)
		}
		calls = append(calls, processed)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(calls) == 0 || calls[len(calls)-1] != uint64(size) {
		t.Fatalf("final progress = %v, want %d", calls, size)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] <= calls[i-1] {
			t.Errorf("progress not increasing: %v", calls)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	if a, err := ParseAlgorithm(" Blake2B "); err != nil || a != BLAKE2b {
		t.Errorf("got %q, %v", a, err)
	}
	if _, err := ParseAlgorithm("crc32"); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestMatches(t *testing.T) {
	if !Matches("  BA7816BF\n", "ba7816bf") {
		t.Error("expected case/whitespace-insensitive match")
	}
	if Matches("", "") {
		t.Error("empty expectation should never match")
	}
	if Matches("abc", "abd") {
		t.Error("different digests matched")
	}
}
