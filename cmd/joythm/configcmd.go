package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/joythm/internal/config"
	"github.com/ayusman/joythm/internal/store"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and override settings",
		Long: `Overrides are stored in the settings database and applied on top of the
config file at the next run. Keys use the config file names.`,
	}

	withStore := func(fn func(*cobra.Command, *store.Store, []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			return fn(cmd, st, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, st, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				st.Close()
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored overrides",
			Args:  cobra.NoArgs,
			RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
				settings, err := st.Settings().List()
				if err != nil {
					return err
				}
				for _, s := range settings {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", s.Key, s.Value)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a stored override",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
				s, err := st.Settings().Get(args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("%s is not overridden", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.Value)
				return nil
			}),
		},
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Store an override",
			Args:      cobra.ExactArgs(2),
			ValidArgs: config.SettingKeys,
			RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
				if err := config.CheckSetting(args[0], args[1]); err != nil {
					return err
				}
				return st.Settings().Set(args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a stored override",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(func(cmd *cobra.Command, st *store.Store, args []string) error {
				err := st.Settings().Delete(args[0])
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				return err
			}),
		},
	)
	return cmd
}
