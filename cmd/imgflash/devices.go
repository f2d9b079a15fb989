package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newDevicesCmd() *cobra.Command {
	var flagJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List removable devices that can be written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, release, err := newFlasher(appConfig)
			if err != nil {
				return err
			}
			defer release()

			devices, err := fl.ListDevices(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			if flagJSON {
				return printJSON(devices)
			}
			if len(devices) == 0 {
				fmt.Println("No removable devices found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME\tSIZE\tMOUNTED")
			for _, d := range devices {
				mounts := strings.Join(d.MountPoints, ",")
				if mounts == "" {
					mounts = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Path, d.Name, d.SizeHuman, mounts)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print devices as JSON")
	return cmd
}

func newEjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eject DEVICE",
		Short: "Unmount and eject a removable device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, release, err := newFlasher(appConfig)
			if err != nil {
				return err
			}
			defer release()

			if err := fl.EjectDevice(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Ejected %s\n", args[0])
			return nil
		},
	}
}
