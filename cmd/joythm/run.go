package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/joythm/internal/app"
	"github.com/ayusman/joythm/internal/bluez"
	"github.com/ayusman/joythm/internal/config"
	"github.com/ayusman/joythm/internal/joycon"
	"github.com/ayusman/joythm/internal/keys"
	"github.com/ayusman/joythm/internal/server"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect a Joy-Con pair and emit key events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), *configPath)
		},
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, st, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	injector, err := keys.NewUinputInjector("joythm", injectorKeys(cfg))
	if err != nil {
		return fmt.Errorf("create virtual keyboard: %w", err)
	}
	defer injector.Close()

	transportConfig := joycon.Config{}
	bz, err := bluez.New()
	if err != nil {
		log.Printf("BlueZ unavailable, disconnect at exit only closes the controllers: %v", err)
	} else {
		defer bz.Close()
		transportConfig.Linker = bz
	}
	transport := joycon.New(transportConfig)

	if bz != nil {
		if err := bz.WatchDisconnects(ctx, transport.MarkDisconnected); err != nil {
			log.Printf("Failed to watch Bluetooth disconnects: %v", err)
		}
	}

	a := app.New(app.Config{
		Settings:  cfg,
		Transport: transport,
		Injector:  injector,
	})

	if cfg.StatusAddr != "" {
		srv := server.New(server.Config{Source: a, Store: st})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				log.Printf("Status server failed: %v", err)
			}
		}()
	}

	log.Printf("Air key %s, emission policy %s", cfg.AirKey, cfg.Policy())
	err = a.Run(ctx)
	a.Shutdown()
	return err
}

// injectorKeys lists the codes the virtual keyboard advertises. The air key
// may be a numeric code outside the named set.
func injectorKeys(cfg config.Config) []keys.KeyCode {
	return keys.InjectorKeys(cfg.Key())
}
