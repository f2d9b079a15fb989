package device

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestRunElevated(t *testing.T) {
	t.Run("plain success skips elevation", func(t *testing.T) {
		r := newFakeRunner()
		if err := runElevated(context.Background(), r, []string{"umount", "/m"}, []string{"pkexec", "umount", "/m"}); err != nil {
			t.Fatal(err)
		}
		if got := r.Calls(); !slices.Equal(got, []string{"umount /m"}) {
			t.Errorf("calls = %v", got)
		}
	})

	t.Run("no elevated variant", func(t *testing.T) {
		r := newFakeRunner()
		r.fail["diskutil eject disk4"] = true
		err := runElevated(context.Background(), r, []string{"diskutil", "eject", "disk4"}, nil)
		if !errors.Is(err, ErrCommand) {
			t.Fatalf("expected ErrCommand, got %v", err)
		}
		if len(r.Calls()) != 1 {
			t.Errorf("expected a single attempt, got %v", r.Calls())
		}
	})

	t.Run("both fail", func(t *testing.T) {
		r := newFakeRunner()
		r.fail["umount /m"] = true
		r.fail["pkexec umount /m"] = true
		err := runElevated(context.Background(), r, []string{"umount", "/m"}, []string{"pkexec", "umount", "/m"})
		if !errors.Is(err, ErrCommand) {
			t.Fatalf("expected ErrCommand, got %v", err)
		}
	})
}
