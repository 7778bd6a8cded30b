// Package discovery finds a Left+Right controller pair and registers it.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ayusman/joythm/internal/device"
	"github.com/ayusman/joythm/internal/gesture"
)

// DefaultInterval is the pause between two discovery polls.
const DefaultInterval = 500 * time.Millisecond

// ErrScanTimeout is returned when no pair shows up within the configured bound.
var ErrScanTimeout = errors.New("scan timed out waiting for a Left+Right pair")

// State is the lifecycle of the scanner task.
type State int32

const (
	// Idle means no scan is in flight.
	Idle State = iota
	// Running means a scan is in flight.
	Running
)

// String returns the state name.
func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// AttachFunc returns the sample callback wired to a newly created device.
type AttachFunc func(d *device.Device) device.SampleFunc

// Config holds configuration options for the Scanner.
type Config struct {
	Transport device.Transport
	Registry  *device.Registry
	Attach    AttachFunc
	Interval  time.Duration // pause between polls, DefaultInterval if zero
	Timeout   time.Duration // zero means poll until a pair is found
	Logger    *log.Logger
}

// Scanner polls the transport for a controller pair and merges new devices
// into the registry. At most one scan runs at a time.
type Scanner struct {
	config Config
	logger *log.Logger
	state  atomic.Int32
	runs   atomic.Int64
}

// New creates a Scanner with the given configuration.
func New(config Config) *Scanner {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{config: config, logger: logger}
}

// State returns the current task state.
func (s *Scanner) State() State {
	return State(s.state.Load())
}

// IsRunning reports whether a scan is in flight.
func (s *Scanner) IsRunning() bool {
	return s.State() == Running
}

// Runs returns the number of scans started so far.
func (s *Scanner) Runs() int64 {
	return s.runs.Load()
}

// TryStart starts a background scan unless one is already running, in which
// case the request is dropped. Returns true if a scan was started.
func (s *Scanner) TryStart(ctx context.Context) bool {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return false
	}
	s.runs.Add(1)

	go func() {
		defer s.state.Store(int32(Idle))

		added, err := s.Scan(ctx)
		switch {
		case err == nil:
			s.logger.Printf("Scan complete, %d new device(s)", added)
		case errors.Is(err, context.Canceled):
		default:
			s.logger.Printf("Scan failed: %v", err)
		}
	}()
	return true
}

// Scan polls until one poll contains both a Left and a Right controller,
// then prunes the registry and registers the devices it does not know yet.
// It returns the number of devices added. Once ctx is done no further
// controller is connected.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	ids, err := s.waitForPair(ctx)
	if err != nil {
		return 0, err
	}

	// Devices may have died while we were polling.
	for _, d := range s.config.Registry.Prune() {
		s.logger.Printf("Pruned %s", d.Name())
	}

	added := 0
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id.Serial] || s.config.Registry.Has(id.Serial) {
			continue
		}
		seen[id.Serial] = true

		if err := ctx.Err(); err != nil {
			return added, err
		}
		session, err := s.config.Transport.Connect(id)
		if err != nil {
			s.logger.Printf("Failed to connect %s (%s): %v", id.Serial, id.Handle, err)
			continue
		}

		d := device.New(id, session)
		if s.config.Attach != nil {
			session.OnSample(s.config.Attach(d))
		}
		if s.config.Registry.Upsert(d) {
			s.logger.Printf("Connected %s", d.Name())
			added++
		}
	}

	return added, nil
}

// waitForPair polls the transport until a single snapshot holds a pair.
func (s *Scanner) waitForPair(ctx context.Context) ([]device.Identity, error) {
	var deadline <-chan time.Time
	if s.config.Timeout > 0 {
		timer := time.NewTimer(s.config.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		s.logger.Println("Scanning for a pair of L&R Joy-Cons")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("%w after %s", ErrScanTimeout, s.config.Timeout)
		case <-ticker.C:
		}

		ids, err := s.config.Transport.Discover()
		if err != nil {
			s.logger.Printf("Discovery failed: %v", err)
			continue
		}
		s.logger.Printf("Found %v", ids)

		if HasPair(ids) {
			return ids, nil
		}
	}
}

// HasPair reports whether ids contains at least one Left and one Right controller.
func HasPair(ids []device.Identity) bool {
	var left, right bool
	for _, id := range ids {
		switch id.Hand {
		case gesture.Left:
			left = true
		case gesture.Right:
			right = true
		}
	}
	return left && right
}
