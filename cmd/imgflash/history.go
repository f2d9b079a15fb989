package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dhavalsavalia/imgflash/internal/config"
)

func newHistoryCmd() *cobra.Command {
	var (
		flagLimit int
		flagJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fl, release, err := newFlasher(appConfig)
			if err != nil {
				return err
			}
			defer release()

			entries, err := fl.History(context.Background(), flagLimit)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No writes recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSTATUS\tIMAGE\tDEVICE\tSIZE\tTOOK")
			for _, e := range entries {
				status := "ok"
				if !e.Succeeded() {
					status = "failed: " + e.Error
				} else if e.Verified {
					status = "ok, verified"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(e.StartedAt),
					status,
					filepath.Base(e.ImagePath),
					e.DevicePath,
					humanize.IBytes(e.Bytes),
					e.Duration().Round(time.Second),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		Args:  cobra.NoArgs,
		// The config being created may not exist or parse yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GenerateExampleConfig(config.PathFromEnv(flagConfig))
			if err != nil {
				return err
			}
			fmt.Printf("Created config at %s\n", path)
			return nil
		},
	}
}
