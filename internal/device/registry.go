package device

import (
	"sort"
	"sync"
)

// Registry holds the currently known devices keyed by serial.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
	}
}

// Upsert adds d unless a device with the same serial is already registered.
// Returns true if d was added.
func (r *Registry) Upsert(d *Device) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[d.Serial()]; ok {
		return false
	}
	r.devices[d.Serial()] = d
	return true
}

// Has reports whether a device with the given serial is registered.
func (r *Registry) Has(serial string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[serial]
	return ok
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Prune checks every device and removes those that are no longer alive.
// Returns the removed devices.
func (r *Registry) Prune() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []*Device
	for serial, d := range r.devices {
		if !d.Refresh() {
			delete(r.devices, serial)
			pruned = append(pruned, d)
		}
	}
	return pruned
}

// Active returns a snapshot of the registered devices ordered by name.
// Dead devices stay listed until the next Prune.
func (r *Registry) Active() []*Device {
	r.mu.RLock()
	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	r.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Name() < devices[j].Name()
	})
	return devices
}

// Healthy reports whether at least two devices are registered and all of
// them are alive. It refreshes each device's liveness cache.
func (r *Registry) Healthy() bool {
	devices := r.Active()
	healthy := len(devices) >= 2
	for _, d := range devices {
		if !d.Refresh() {
			healthy = false
		}
	}
	return healthy
}
