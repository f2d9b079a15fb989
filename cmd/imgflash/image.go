package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dhavalsavalia/imgflash/internal/device"
	"github.com/dhavalsavalia/imgflash/internal/flasher"
)

var errChecksumMismatch = errors.New("checksum mismatch")

func newInfoCmd() *cobra.Command {
	var flagJSON bool

	cmd := &cobra.Command{
		Use:   "info IMAGE",
		Short: "Show image file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := flasher.New(device.New())

			info, err := fl.GetFileInfo(args[0])
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(info)
			}

			fmt.Printf("Name: %s\n", info.Name)
			fmt.Printf("Path: %s\n", info.Path)
			fmt.Printf("Size: %s (%s bytes)\n", info.SizeHuman, humanize.Comma(int64(info.Size)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print metadata as JSON")
	return cmd
}

func newChecksumCmd() *cobra.Command {
	var (
		flagAlgorithm string
		flagExpect    string
	)

	cmd := &cobra.Command{
		Use:   "checksum IMAGE",
		Short: "Compute or verify the digest of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algorithm := flagAlgorithm
			if algorithm == "" {
				algorithm = appConfig.Checksum.Algorithm
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			fl := flasher.New(device.New())

			if flagExpect == "" {
				sum, err := fl.CalculateChecksum(ctx, args[0], algorithm)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", sum, args[0])
				return nil
			}

			actual, ok, err := fl.VerifyChecksum(ctx, args[0], algorithm, flagExpect)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Wrapf(errChecksumMismatch, "%s: got %s", args[0], actual)
			}
			fmt.Printf("%s: OK\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&flagAlgorithm, "algorithm", "", "Digest algorithm: sha256, md5 or blake2b (default from config)")
	cmd.Flags().StringVar(&flagExpect, "expect", "", "Expected digest; fail on mismatch")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var (
		flagDevice     string
		flagDeviceSize string
		flagJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "validate IMAGE",
		Short: "Detect the image format and check it fits a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := flasher.New(device.New())

			var deviceSize *uint64
			switch {
			case flagDevice != "" && flagDeviceSize != "":
				return errors.New("--device and --device-size are mutually exclusive")
			case flagDevice != "":
				dev, err := device.NewService(device.New()).Resolve(context.Background(), flagDevice)
				if err != nil {
					return err
				}
				deviceSize = &dev.Size
			case flagDeviceSize != "":
				size, err := humanize.ParseBytes(flagDeviceSize)
				if err != nil {
					return errors.Wrapf(err, "invalid --device-size %q", flagDeviceSize)
				}
				deviceSize = &size
			}

			v, err := fl.ValidateImage(args[0], deviceSize)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(v)
			}

			fmt.Printf("Format: %s\n", v.Format)
			for _, e := range v.Errors {
				fmt.Printf("Error: %s\n", e)
			}
			for _, w := range v.Warnings {
				fmt.Printf("Warning: %s\n", w)
			}
			if !v.IsValid {
				return errors.Errorf("%s is not a valid image", args[0])
			}
			fmt.Println("Valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDevice, "device", "", "Check capacity against this device")
	cmd.Flags().StringVar(&flagDeviceSize, "device-size", "", "Check capacity against a size such as 8GB")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print the result as JSON")
	return cmd
}
