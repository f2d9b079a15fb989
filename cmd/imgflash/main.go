package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dhavalsavalia/imgflash/internal/config"
	"github.com/dhavalsavalia/imgflash/internal/device"
	"github.com/dhavalsavalia/imgflash/internal/flasher"
	"github.com/dhavalsavalia/imgflash/internal/history"
	"github.com/dhavalsavalia/imgflash/internal/ui"
	"github.com/dhavalsavalia/imgflash/internal/writer"
)

var version = "dev"

var (
	flagConfig string
	appConfig  *config.Config
	dotEnvErr  error
)

var rootCmd = &cobra.Command{
	Use:   "imgflash [IMAGE]",
	Short: "Write disk images to removable drives",
	Long: `imgflash writes ISO and raw disk images to USB sticks and SD cards.
Run without a subcommand to open the interactive interface, optionally with
the image to write already selected.`,
	Version:           version,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath := ""
		if len(args) == 1 {
			imagePath = args[0]
		}
		return runTUI(imagePath)
	},
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (env "+config.EnvConfig+")")

	rootCmd.AddCommand(
		newTUICmd(),
		newDevicesCmd(),
		newInfoCmd(),
		newChecksumCmd(),
		newValidateCmd(),
		newWriteCmd(),
		newEjectCmd(),
		newHistoryCmd(),
		newInitCmd(),
	)
	dotEnvErr = config.EnsureDotEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("imgflash command failed")
	}
}

// loadConfig resolves the config file and applies the log level.
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(config.PathFromEnv(flagConfig))
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	if dotEnvErr != nil {
		log.Warn().Err(dotEnvErr).Msg("failed to load .env")
	}
	if path := config.LoadedDotEnv(); path != "" {
		log.Debug().Str("path", path).Msg("loaded .env")
	}

	appConfig = cfg
	return nil
}

// openHistory opens the write log when it is enabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// newFlasher builds a Flasher from the loaded config. The returned func
// releases the history store.
func newFlasher(cfg *config.Config, opts ...flasher.Option) (*flasher.Flasher, func(), error) {
	store, err := openHistory(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]flasher.Option{
		flasher.WithWriteOptions(flasher.WriteOptions{AutoEject: cfg.Write.AutoEject}),
		flasher.WithEngineOptions(writer.WithBlockSize(int(cfg.Write.BlockSize))),
	}, opts...)

	release := func() {}
	if store != nil {
		opts = append(opts, flasher.WithHistory(store))
		release = func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close history")
			}
		}
	}

	return flasher.New(device.New(), opts...), release, nil
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [IMAGE]",
		Short: "Open the interactive interface",
		Args:  cobra.MaximumNArgs(1),
		RunE:  rootCmd.RunE,
	}
}

// runTUI launches the interactive interface. Logs go to the configured
// file, or nowhere, so they do not tear the screen.
func runTUI(imagePath string) error {
	cfg := appConfig

	var logOut io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log.Logger = zerolog.New(logOut).With().Timestamp().Logger()

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	model := ui.NewModel(cfg, ui.Options{History: store, ImagePath: imagePath})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
