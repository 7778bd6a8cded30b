// joythm turns Joy-Con swings into keyboard events for rhythm games.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/joythm/internal/config"
	"github.com/ayusman/joythm/internal/store"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "joythm",
		Short: "Drive a keyboard key with a pair of Joy-Cons",
		Long: `joythm keeps a Left+Right Joy-Con pair connected, classifies every
motion sample into a gesture state and presses or releases one key
accordingly. Running it without a subcommand is the same as "joythm run".`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.joythm/config.yaml)")

	root.AddCommand(
		newRunCmd(&configPath),
		newDevicesCmd(),
		newConfigCmd(&configPath),
	)
	return root
}

// loadConfig reads the config file, opens the settings database and applies
// its overrides. The caller closes the store.
func loadConfig(path string) (config.Config, *store.Store, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return cfg, nil, err
	}

	overrides, err := st.Settings().Map()
	if err != nil {
		st.Close()
		return cfg, nil, fmt.Errorf("read settings: %w", err)
	}
	cfg, err = cfg.ApplySettings(overrides)
	if err != nil {
		st.Close()
		return cfg, nil, fmt.Errorf("stored settings: %w", err)
	}
	return cfg, st, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.SettingsDB), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.SettingsDB)
	if err != nil {
		return nil, fmt.Errorf("open settings database: %w", err)
	}
	return st, nil
}
