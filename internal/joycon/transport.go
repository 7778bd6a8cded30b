// Package joycon connects Joy-Con controllers through github.com/nobonobo/joycon.
package joycon

import (
	"fmt"
	"log"
	"strings"
	"sync"

	hidjoycon "github.com/nobonobo/joycon"

	"github.com/ayusman/joythm/internal/device"
	"github.com/ayusman/joythm/internal/gesture"
)

// Nintendo USB product ids.
const (
	ProductLeft  = 0x2006
	ProductRight = 0x2007
)

// HIDInfo describes one HID node returned by a search.
type HIDInfo struct {
	Path      string
	ProductID uint16
	Serial    string
}

// Controller is the pair of report streams of an open controller. Both
// channels are closed when the controller goes away.
type Controller struct {
	States  <-chan hidjoycon.State
	Sensors <-chan hidjoycon.Sensor
	Close   func()
}

// Config holds configuration options for the Transport.
type Config struct {
	// Linker, when set, is used to disconnect controllers over BlueZ.
	Linker Linker
	// Search lists Nintendo HID nodes. Defaults to joycon.Search.
	Search func() ([]HIDInfo, error)
	// Open opens a controller by path. Defaults to joycon.NewJoycon.
	Open   func(path string) (*Controller, error)
	Logger *log.Logger
}

// Transport discovers and connects controllers.
type Transport struct {
	config Config
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a Transport with the given configuration.
func New(config Config) *Transport {
	if config.Search == nil {
		config.Search = searchHID
	}
	if config.Open == nil {
		config.Open = openHID
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Transport{
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

func searchHID() ([]HIDInfo, error) {
	devs, err := hidjoycon.Search()
	if err != nil {
		return nil, err
	}
	infos := make([]HIDInfo, 0, len(devs))
	for _, d := range devs {
		infos = append(infos, HIDInfo{
			Path:      d.Path,
			ProductID: uint16(d.ProductID),
			Serial:    d.SerialNumber,
		})
	}
	return infos, nil
}

func openHID(path string) (*Controller, error) {
	jc, err := hidjoycon.NewJoycon(path)
	if err != nil {
		return nil, err
	}
	return &Controller{
		States:  jc.State(),
		Sensors: jc.Sensor(),
		Close:   func() { jc.Close() },
	}, nil
}

// Discover lists the controllers currently visible. Nodes that are not a
// left or right Joy-Con are skipped.
func (t *Transport) Discover() ([]device.Identity, error) {
	infos, err := t.config.Search()
	if err != nil {
		return nil, fmt.Errorf("search controllers: %w", err)
	}
	var ids []device.Identity
	for _, info := range infos {
		if id, ok := identify(info); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// identify maps a HID node to a controller identity. Controllers without a
// serial number are keyed by their path.
func identify(info HIDInfo) (device.Identity, bool) {
	var hand gesture.Handedness
	switch info.ProductID {
	case ProductLeft:
		hand = gesture.Left
	case ProductRight:
		hand = gesture.Right
	default:
		return device.Identity{}, false
	}
	serial := strings.ToUpper(strings.TrimSpace(info.Serial))
	if serial == "" {
		serial = info.Path
	}
	return device.Identity{Handle: info.Path, Hand: hand, Serial: serial}, true
}

// Connect opens the controller and starts pumping its reports.
func (t *Transport) Connect(id device.Identity) (device.Session, error) {
	c, err := t.config.Open(id.Handle)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id.Handle, err)
	}

	s := newSession(id, c, t.config.Linker)
	go s.pump()

	t.mu.Lock()
	t.sessions[strings.ToUpper(id.Serial)] = s
	t.mu.Unlock()

	return s, nil
}

// MarkDisconnected ends the session of the controller with the given
// serial, if any. Used when BlueZ reports the link as gone.
func (t *Transport) MarkDisconnected(serial string) {
	t.mu.Lock()
	s, ok := t.sessions[strings.ToUpper(serial)]
	delete(t.sessions, strings.ToUpper(serial))
	t.mu.Unlock()

	if ok {
		t.logger.Printf("Link lost: %s", serial)
		s.markDisconnected()
	}
}
