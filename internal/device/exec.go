package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// runner executes an external tool and returns its stdout.
type runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log.Debug().Str("cmd", name).Strs("args", args).Msg("running external tool")

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s is not installed: %w", ErrCommand, name, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return out, fmt.Errorf("%w: %s: %s", ErrCommand, name, msg)
	}
	return out, nil
}

// runElevated runs argv and, if it fails, retries once with the elevated
// variant. Only the combined failure of both attempts is returned.
func runElevated(ctx context.Context, r runner, argv, elevated []string) error {
	_, err := r.Run(ctx, argv[0], argv[1:]...)
	if err == nil {
		return nil
	}
	if len(elevated) == 0 {
		return err
	}

	log.Warn().Err(err).Strs("argv", argv).Msg("unprivileged attempt failed, retrying elevated")

	if _, rerr := r.Run(ctx, elevated[0], elevated[1:]...); rerr != nil {
		return fmt.Errorf("%w (elevated retry: %w)", err, rerr)
	}
	return nil
}
