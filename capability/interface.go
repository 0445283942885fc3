package capability

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/zigbee"
)

type DetachType int

const (
	// DeviceRemoved is used when a device has been removed from the network, this has already occurred, and it
	// should be assumed that no communication is possible.
	DeviceRemoved DetachType = iota
	// Shutdown is used when the driver is stopping, persisted state must be kept.
	Shutdown
)

// Implementation is a capability implementation bound to a single device.
type Implementation interface {
	Capability() da.Capability
	Name() string
	// Init is used upon creation of the capability to provide persistence.
	Init(zigbee.IEEEAddress, persistence.Section)
	// Load restores state from persistence, either after a restart or immediately after Init for a new device.
	Load(context.Context) error
	// Detach is called when a capability is removed from a device, or the driver is stopping.
	Detach(context.Context, DetachType) error
}

// Emitter accepts normalised events for delivery to the capability layer.
type Emitter interface {
	Emit(event any)
}

type EmitterFunc func(event any)

func (f EmitterFunc) Emit(event any) {
	f(event)
}
