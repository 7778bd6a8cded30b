// Package device tracks connected motion controllers and their transport sessions.
package device

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ayusman/joythm/internal/gesture"
)

// Identity is one controller seen by a discovery poll.
type Identity struct {
	Handle string             // transport-specific handle, e.g. a hidraw path
	Hand   gesture.Handedness // Left or Right role
	Serial string             // stable controller serial
}

// Sample is one motion reading delivered by a session.
type Sample struct {
	AccelX int
	GyroY  int
}

// SampleFunc receives samples. A session calls it from a single goroutine,
// so samples of one device never interleave.
type SampleFunc func(Sample)

// Session is an open connection to one controller.
type Session interface {
	// OnSample registers the callback for incoming samples.
	OnSample(fn SampleFunc)
	// IsAlive reports whether the session's read path is still active.
	IsAlive() bool
	// BatteryLevel returns the last battery level reported by the controller.
	BatteryLevel() (int, error)
	// Disconnect closes the session and asks the controller to disconnect.
	Disconnect() error
}

// Transport discovers and connects controllers.
type Transport interface {
	Discover() ([]Identity, error)
	Connect(id Identity) (Session, error)
}

// Device is a registered controller: its identity, its transport session and
// the state derived from its samples.
type Device struct {
	id      string
	serial  string
	hand    gesture.Handedness
	name    string
	session Session

	state atomic.Int32
	alive atomic.Bool
}

// New creates a Device for an identity and its connected session.
// The initial gesture state is PutDown.
func New(id Identity, session Session) *Device {
	d := &Device{
		id:      uuid.NewString(),
		serial:  id.Serial,
		hand:    id.Hand,
		name:    fmt.Sprintf("Joy-Con (%s) %s", id.Hand, id.Serial),
		session: session,
	}
	d.state.Store(int32(gesture.PutDown))
	d.alive.Store(true)
	return d
}

// ID returns the per-connection session id. A reconnected controller gets a
// new one.
func (d *Device) ID() string { return d.id }

// Serial returns the controller serial.
func (d *Device) Serial() string { return d.serial }

// Hand returns the controller role.
func (d *Device) Hand() gesture.Handedness { return d.hand }

// Name returns the display name.
func (d *Device) Name() string { return d.name }

// Session returns the transport session.
func (d *Device) Session() Session { return d.session }

// State returns the current gesture state.
func (d *Device) State() gesture.State {
	return gesture.State(d.state.Load())
}

// SetState stores s and returns the previous state.
func (d *Device) SetState(s gesture.State) gesture.State {
	return gesture.State(d.state.Swap(int32(s)))
}

// Alive returns the liveness observed by the last Refresh.
func (d *Device) Alive() bool {
	return d.alive.Load()
}

// Refresh queries the session's liveness and caches the result.
func (d *Device) Refresh() bool {
	alive := d.session.IsAlive()
	d.alive.Store(alive)
	return alive
}

// Snapshot is a point-in-time copy of a Device, safe to serialise.
type Snapshot struct {
	ID     string             `json:"id"`
	Serial string             `json:"serial"`
	Hand   gesture.Handedness `json:"hand"`
	Name   string             `json:"name"`
	Alive  bool               `json:"alive"`
	State  gesture.State      `json:"state"`
}

// Snapshot returns the current view of the device.
func (d *Device) Snapshot() Snapshot {
	return Snapshot{
		ID:     d.id,
		Serial: d.serial,
		Hand:   d.hand,
		Name:   d.name,
		Alive:  d.Alive(),
		State:  d.State(),
	}
}
