// Package bluez talks to the BlueZ daemon over the system D-Bus.
package bluez

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterPath  = "/org/bluez/hci0"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	propsSignal  = "org.freedesktop.DBus.Properties.PropertiesChanged"
	matchChanged = "type='signal',interface='" + propsIface + "',member='PropertiesChanged',path_namespace='/org/bluez'"
)

// ErrUnavailable is returned when BlueZ is not on the system bus.
var ErrUnavailable = errors.New("org.bluez not found on system bus")

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(adapterPath + "/dev_" + escaped)
}

// macFromPath extracts a MAC address from a BlueZ device object path.
func macFromPath(path dbus.ObjectPath) string {
	s := string(path)
	prefix := adapterPath + "/dev_"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	rest := s[len(prefix):]
	// Child objects such as GATT services live below the device path.
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return ""
	}
	return strings.ReplaceAll(rest, "_", ":")
}

// Client wraps a system D-Bus connection for BlueZ operations.
type Client struct {
	conn *dbus.Conn
}

// New connects to the system bus and checks that BlueZ is running.
func New() (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	for _, n := range names {
		if n == busName {
			return &Client{conn: conn}, nil
		}
	}
	conn.Close()
	return nil, ErrUnavailable
}

// Close closes the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Connected reports the Connected property of the device with the given MAC.
func (c *Client) Connected(addr string) (bool, error) {
	obj := c.conn.Object(busName, deviceObjectPath(addr))
	var v dbus.Variant
	if err := obj.Call(propsIface+".Get", 0, deviceIface, "Connected").Store(&v); err != nil {
		return false, err
	}
	connected, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property Connected is not bool")
	}
	return connected, nil
}

// Disconnect drops the Bluetooth link of the device with the given MAC.
func (c *Client) Disconnect(addr string) error {
	obj := c.conn.Object(busName, deviceObjectPath(addr))
	if err := obj.Call(deviceIface+".Disconnect", 0).Err; err != nil {
		return fmt.Errorf("disconnect %s: %w", addr, err)
	}
	return nil
}

// WatchDisconnects calls fn with the MAC of every device whose Connected
// property flips to false, until ctx is done.
func (c *Client) WatchDisconnects(ctx context.Context, fn func(addr string)) error {
	if err := c.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchChanged).Err; err != nil {
		return fmt.Errorf("add match: %w", err)
	}
	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)

	go func() {
		defer c.conn.RemoveSignal(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-ch:
				if !ok {
					return
				}
				if addr := disconnectedAddr(sig); addr != "" {
					fn(addr)
				}
			}
		}
	}()
	return nil
}

// disconnectedAddr returns the device MAC if sig reports Connected=false.
func disconnectedAddr(sig *dbus.Signal) string {
	if sig == nil || sig.Name != propsSignal {
		return ""
	}
	// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
	if len(sig.Body) < 2 {
		return ""
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return ""
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return ""
	}
	connVar, ok := changed["Connected"]
	if !ok {
		return ""
	}
	connected, ok := connVar.Value().(bool)
	if !ok || connected {
		return ""
	}
	return macFromPath(sig.Path)
}
