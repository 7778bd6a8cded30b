package joycon

import (
	"errors"
	"math"
	"net"
	"sync"
	"sync/atomic"

	hidjoycon "github.com/nobonobo/joycon"

	"github.com/ayusman/joythm/internal/device"
)

var (
	// ErrNoReport is returned by BatteryLevel before the first state report.
	ErrNoReport = errors.New("no state report received yet")
	// ErrNoLinker is returned by Disconnect when the link cannot be dropped
	// over BlueZ. The controller is still closed.
	ErrNoLinker = errors.New("no bluetooth linker for controller")
)

// Scale of the IMU readings reported by the driver: accelerometer in g at
// the ±8g range, gyroscope in degrees per second at the ±2000dps range.
const (
	countsPerG   = 4096.0
	countsPerDPS = 1 / 0.06103
)

// Linker drops the Bluetooth link of a controller by MAC address.
type Linker interface {
	Disconnect(addr string) error
}

// Session is an open connection to one controller.
type Session struct {
	id     device.Identity
	c      *Controller
	linker Linker

	mu       sync.Mutex
	onSample device.SampleFunc

	alive   atomic.Bool
	battery atomic.Int32

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id device.Identity, c *Controller, linker Linker) *Session {
	s := &Session{
		id:     id,
		c:      c,
		linker: linker,
		done:   make(chan struct{}),
	}
	s.alive.Store(true)
	s.battery.Store(-1)
	return s
}

// pump delivers samples until either stream closes or the session ends.
func (s *Session) pump() {
	defer s.close()

	for {
		select {
		case <-s.done:
			return
		case st, ok := <-s.c.States:
			if !ok {
				return
			}
			s.battery.Store(int32(st.Battery))
		case sn, ok := <-s.c.Sensors:
			if !ok {
				return
			}
			s.mu.Lock()
			fn := s.onSample
			s.mu.Unlock()
			if fn != nil {
				fn(toSample(sn))
			}
		}
	}
}

// toSample converts a sensor report back to raw IMU counts, the unit the
// gesture thresholds are expressed in.
func toSample(sn hidjoycon.Sensor) device.Sample {
	return device.Sample{
		AccelX: int(math.Round(float64(sn.Accel.X) * countsPerG)),
		GyroY:  int(math.Round(float64(sn.Gyro.Y) * countsPerDPS)),
	}
}

// OnSample registers the callback for incoming samples.
func (s *Session) OnSample(fn device.SampleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSample = fn
}

// IsAlive reports whether both report streams are still open.
func (s *Session) IsAlive() bool {
	return s.alive.Load()
}

// BatteryLevel returns the battery percentage of the last state report.
func (s *Session) BatteryLevel() (int, error) {
	level := s.battery.Load()
	if level < 0 {
		return 0, ErrNoReport
	}
	return int(level), nil
}

// Disconnect drops the controller's Bluetooth link and closes it. Without
// BlueZ, or for a controller not keyed by MAC address, only the HID handle
// is closed and ErrNoLinker is returned.
func (s *Session) Disconnect() error {
	err := ErrNoLinker
	if s.linker != nil && isMAC(s.id.Serial) {
		err = s.linker.Disconnect(s.id.Serial)
	}
	s.close()
	return err
}

// markDisconnected is called when the link is known to be gone.
func (s *Session) markDisconnected() {
	s.close()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
		s.c.Close()
	})
}

func isMAC(serial string) bool {
	hw, err := net.ParseMAC(serial)
	return err == nil && len(hw) == 6
}
