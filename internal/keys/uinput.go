package keys

import (
	"fmt"
	"os"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

const busUSB = 0x03

// UinputInjector is a virtual keyboard created through uinput.
type UinputInjector struct {
	mu  sync.Mutex
	dev *evdev.InputDevice
}

// NewUinputInjector creates a virtual keyboard named name that can emit every
// key in codes.
func NewUinputInjector(name string, codes []KeyCode) (*UinputInjector, error) {
	dev, err := evdev.CreateDevice(name, evdev.InputID{
		BusType: busUSB,
		Vendor:  0x1d6b,
		Product: 0x0104,
		Version: 1,
	}, capabilities(codes))
	if err != nil {
		return nil, fmt.Errorf("create uinput device: %w", err)
	}
	return &UinputInjector{dev: dev}, nil
}

// capabilities builds the EV_KEY capability set for codes.
func capabilities(codes []KeyCode) map[evdev.EvType][]evdev.EvCode {
	keys := make([]evdev.EvCode, 0, len(codes))
	for _, c := range codes {
		keys = append(keys, evdev.EvCode(c))
	}
	return map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keys,
	}
}

// Press sends a key down event followed by a sync report.
func (u *UinputInjector) Press(code KeyCode) error {
	return u.write(code, 1)
}

// Release sends a key up event followed by a sync report.
func (u *UinputInjector) Release(code KeyCode) error {
	return u.write(code, 0)
}

func (u *UinputInjector) write(code KeyCode, value int32) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return os.ErrClosed
	}
	for _, ev := range keyEvents(code, value) {
		if err := u.dev.WriteOne(ev); err != nil {
			return err
		}
	}
	return nil
}

// keyEvents returns an EV_KEY event and its EV_SYN report. The kernel fills
// in the timestamps.
func keyEvents(code KeyCode, value int32) []*evdev.InputEvent {
	return []*evdev.InputEvent{
		{Type: evdev.EV_KEY, Code: evdev.EvCode(code), Value: value},
		{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT, Value: 0},
	}
}

// Close destroys the virtual keyboard.
func (u *UinputInjector) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.dev == nil {
		return nil
	}
	err := u.dev.Close()
	u.dev = nil
	return err
}
