// Package app wires discovery, classification and key emission into the
// joythm monitor loop.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ayusman/joythm/internal/config"
	"github.com/ayusman/joythm/internal/device"
	"github.com/ayusman/joythm/internal/discovery"
	"github.com/ayusman/joythm/internal/gesture"
	"github.com/ayusman/joythm/internal/keys"
)

// Config holds configuration options for the application.
type Config struct {
	Settings  config.Config
	Transport device.Transport
	Injector  keys.Injector
	// Console receives the status line and battery report. Defaults to stdout.
	Console io.Writer
	Logger  *log.Logger
}

// App is the main application: it keeps a pair of controllers registered
// and turns their samples into key events.
type App struct {
	config     Config
	logger     *log.Logger
	registry   *device.Registry
	scanner    *discovery.Scanner
	classifier gesture.Classifier
	emitter    *keys.Emitter
	policy     keys.Policy

	accepting atomic.Bool
	lastLen   int
	hadLive   bool
	started   time.Time
}

// scanDrainTimeout bounds how long Shutdown waits for an in-flight scan.
const scanDrainTimeout = 2 * time.Second

// New creates a new App instance with the given configuration.
// config.Settings must be validated.
func New(config Config) *App {
	if config.Console == nil {
		config.Console = os.Stdout
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &App{
		config:     config,
		logger:     logger,
		registry:   device.NewRegistry(),
		classifier: config.Settings.Classifier(),
		emitter:    keys.NewEmitter(config.Injector, config.Settings.Key()),
		policy:     config.Settings.Policy(),
		started:    time.Now(),
	}
	a.scanner = discovery.New(discovery.Config{
		Transport: config.Transport,
		Registry:  a.registry,
		Attach:    a.attach,
		Interval:  config.Settings.ScanInterval,
		Timeout:   config.Settings.ScanTimeout,
		Logger:    logger,
	})
	a.accepting.Store(true)
	return a
}

// Registry returns the device registry.
func (a *App) Registry() *device.Registry {
	return a.registry
}

// Scanner returns the discovery scanner.
func (a *App) Scanner() *discovery.Scanner {
	return a.scanner
}

// Scanning reports whether a discovery scan is in flight.
func (a *App) Scanning() bool {
	return a.scanner.IsRunning()
}

// Devices returns a snapshot of the registered devices.
func (a *App) Devices() []device.Snapshot {
	active := a.registry.Active()
	snaps := make([]device.Snapshot, len(active))
	for i, d := range active {
		snaps[i] = d.Snapshot()
	}
	return snaps
}

// Uptime returns the time since the app was created.
func (a *App) Uptime() time.Duration {
	return time.Since(a.started)
}

// Run ticks the monitor loop until ctx is done. Scans started by the loop
// are cancelled with ctx.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.config.Settings.TickInterval())
	defer ticker.Stop()

	a.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Tick(ctx)
		}
	}
}

// Tick runs one monitor iteration: start a scan when the registry is not
// healthy, then redraw the status line.
func (a *App) Tick(ctx context.Context) {
	if !a.registry.Healthy() {
		a.scanner.TryStart(ctx)
	}
	active := a.registry.Active()
	a.releaseIfIdle(active)
	a.render(FormatStatus(active))
}

// releaseIfIdle lifts the air key once the last live controller is gone.
// Best effort: the error is ignored.
func (a *App) releaseIfIdle(devices []*device.Device) {
	live := false
	for _, d := range devices {
		if d.Alive() {
			live = true
			break
		}
	}
	if a.hadLive && !live {
		_ = a.emitter.Release()
	}
	a.hadLive = live
}

// render overwrites the previous status line in place.
func (a *App) render(line string) {
	pad := ""
	if n := a.lastLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	a.lastLen = len(line)
	fmt.Fprintf(a.config.Console, "\r%s%s", line, pad)
}

// FormatStatus renders the one-line status of the given devices.
func FormatStatus(devices []*device.Device) string {
	parts := make([]string, len(devices))
	for i, d := range devices {
		parts[i] = fmt.Sprintf("[%s (is_alive=%t)] State: %s", d.Name(), d.Alive(), d.State())
	}
	return strings.Join(parts, " ")
}

// waitScanIdle blocks until no scan is in flight or scanDrainTimeout passes.
func (a *App) waitScanIdle() {
	deadline := time.Now().Add(scanDrainTimeout)
	for a.scanner.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if a.scanner.IsRunning() {
		a.logger.Println("Scan still running at shutdown")
	}
}

// Shutdown stops sample processing, waits for a running scan to return,
// prunes dead devices, reports battery levels and, if configured,
// disconnects the remaining controllers. Failures are logged and not retried.
func (a *App) Shutdown() {
	a.accepting.Store(false)
	fmt.Fprintln(a.config.Console)

	a.waitScanIdle()
	for _, d := range a.registry.Prune() {
		a.logger.Printf("Pruned %s", d.Name())
	}

	remaining := a.registry.Active()
	a.releaseIfIdle(remaining)
	for _, d := range remaining {
		level, err := d.Session().BatteryLevel()
		if err != nil {
			fmt.Fprintf(a.config.Console, "[%s] Battery level: unknown\n", d.Name())
			continue
		}
		fmt.Fprintf(a.config.Console, "[%s] Battery level: %d\n", d.Name(), level)
	}

	if !a.config.Settings.DisconnectAtExit {
		return
	}
	for _, d := range remaining {
		if err := d.Session().Disconnect(); err != nil {
			a.logger.Printf("Failed to disconnect %s: %v", d.Name(), err)
			continue
		}
		a.logger.Printf("Disconnected %s", d.Name())
	}
}
