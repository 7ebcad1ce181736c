package device

import "sync"

// Registry is the ordered set of connected devices.
// Insertion order is preserved and IDs are unique. All operations are total:
// connecting a device twice or disconnecting an unknown ID is a no-op.
type Registry struct {
	mu      sync.RWMutex
	devices []Device
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Connect adds d unless a device with the same ID is already present.
// Returns true if the device was added.
func (r *Registry) Connect(d Device) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(d.ID) >= 0 {
		return false
	}
	r.devices = append(r.devices, d)
	return true
}

// Disconnect removes the device with the given ID.
// Returns true if a device was removed.
func (r *Registry) Disconnect(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	r.devices = append(r.devices[:idx:idx], r.devices[idx+1:]...)
	return true
}

// IsConnected reports whether a device with the given ID is connected
func (r *Registry) IsConnected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(id) >= 0
}

// List returns a copy of the connected devices in insertion order
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of connected devices
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Names returns the display names of connected devices in insertion order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.devices))
	for i, d := range r.devices {
		names[i] = d.Name
	}
	return names
}

// Clear disconnects every device
func (r *Registry) Clear() {
	r.mu.Lock()
	r.devices = nil
	r.mu.Unlock()
}

// indexOf must be called with the lock held
func (r *Registry) indexOf(id string) int {
	for i, d := range r.devices {
		if d.ID == id {
			return i
		}
	}
	return -1
}
