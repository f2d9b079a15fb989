package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dhavalsavalia/imgflash/internal/device"
	"github.com/dhavalsavalia/imgflash/internal/flasher"
	"github.com/dhavalsavalia/imgflash/internal/writer"
)

var errAborted = errors.New("aborted")

func newWriteCmd() *cobra.Command {
	var (
		flagVerify bool
		flagEject  bool
		flagYes    bool
	)

	cmd := &cobra.Command{
		Use:   "write IMAGE DEVICE",
		Short: "Write an image to a removable device",
		Long: `write copies IMAGE onto DEVICE block by block, optionally reading it back
to verify. Everything on DEVICE is destroyed. DEVICE must be one of the paths
listed by "imgflash devices".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath, devicePath := args[0], args[1]

			cfg := *appConfig
			if cmd.Flags().Changed("verify") {
				cfg.Write.Verify = flagVerify
			}
			if cmd.Flags().Changed("eject") {
				cfg.Write.AutoEject = flagEject
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			progress := newProgressPrinter(os.Stderr)
			fl, release, err := newFlasher(&cfg, flasher.WithEmitter(progress))
			if err != nil {
				return err
			}
			defer release()

			dev, err := device.NewService(device.New()).Resolve(ctx, devicePath)
			if err != nil {
				return err
			}

			v, err := fl.ValidateImage(imagePath, &dev.Size)
			if err != nil {
				return err
			}
			for _, w := range v.Warnings {
				log.Warn().Str("image", imagePath).Msg(w)
			}
			if !v.IsValid {
				return errors.Errorf("cannot write %s: %s", imagePath, strings.Join(v.Errors, "; "))
			}

			if !flagYes {
				prompt := fmt.Sprintf("Write %s to %s (%s, %s)? All data on the device will be erased",
					imagePath, dev.Name, dev.SizeHuman, dev.Path)
				ok, err := confirm(os.Stdin, os.Stderr, prompt)
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}

			log.Info().
				Str("image", imagePath).
				Str("device", dev.Path).
				Str("format", v.Format).
				Bool("verify", cfg.Write.Verify).
				Msg("starting write")

			started := time.Now()
			err = fl.WriteImage(ctx, imagePath, dev.Path, cfg.Write.Verify)
			progress.finish()
			if err != nil {
				return err
			}

			log.Info().
				Str("device", dev.Path).
				Dur("elapsed", time.Since(started).Round(time.Second)).
				Msg("write complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagVerify, "verify", true, "Read the device back and compare (default from config)")
	cmd.Flags().BoolVar(&flagEject, "eject", false, "Eject the device when done (default from config)")
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "failed to read answer")
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// progressPrinter renders write progress on a single terminal line.
type progressPrinter struct {
	out     io.Writer
	printed bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out}
}

func (p *progressPrinter) Emit(event string, payload any) error {
	progress, ok := payload.(writer.Progress)
	if !ok {
		return errors.Errorf("unexpected %s payload %T", event, payload)
	}
	_, err := fmt.Fprintf(p.out, "\r%-80s", formatProgress(progress))
	p.printed = true
	return err
}

func (p *progressPrinter) finish() {
	if p.printed {
		fmt.Fprintln(p.out)
	}
}

func formatProgress(p writer.Progress) string {
	line := fmt.Sprintf("%-9s %5.1f%%  %s / %s",
		p.Phase, p.Percent(), humanize.IBytes(p.BytesWritten), humanize.IBytes(p.TotalBytes))
	if p.SpeedBps > 0 {
		line += fmt.Sprintf("  %s/s  ETA %s",
			humanize.IBytes(p.SpeedBps), time.Duration(p.EtaSeconds)*time.Second)
	}
	return line
}
