package gamepad

import (
	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

// arena allocates gamepad slots. IDs are dense, starting at zero, and are
// never handed to a different device: a disconnected slot stays reserved for
// its signature so a reconnecting device gets its old ID back.
type arena struct {
	pads []*Gamepad
}

// acquire returns the slot for a connecting device: a reserved slot with a
// matching GUID when one exists, otherwise a fresh one. reused reports
// whether the device reclaimed an earlier slot.
func (a *arena) acquire(sig backend.DeviceSignature) (pad *Gamepad, reused bool) {
	for _, g := range a.pads {
		if g.status == StatusDisconnected && g.sig.UUID == sig.UUID {
			g.sig = sig
			return g, true
		}
	}
	g := &Gamepad{
		id:          event.GamepadID(len(a.pads)),
		sig:         sig,
		state:       event.NewGamepadState(),
		analogEdges: make(map[event.Code]bool),
	}
	a.pads = append(a.pads, g)
	return g, false
}

// byID returns the slot with the given ID, nil when it was never allocated.
func (a *arena) byID(id event.GamepadID) *Gamepad {
	if id < 0 || int(id) >= len(a.pads) {
		return nil
	}
	return a.pads[id]
}

// bySignature returns the connected slot for a signature, nil when the
// device is unknown.
func (a *arena) bySignature(sig backend.DeviceSignature) *Gamepad {
	for _, g := range a.pads {
		if g.status == StatusConnected && g.sig.UUID == sig.UUID {
			return g
		}
	}
	return nil
}

// allIDs lists every allocated slot ID in ascending order, connected or not.
func (a *arena) allIDs() []event.GamepadID {
	ids := make([]event.GamepadID, len(a.pads))
	for i, g := range a.pads {
		ids[i] = g.id
	}
	return ids
}

// connectedIDs lists the IDs of connected slots in ascending order.
func (a *arena) connectedIDs() []event.GamepadID {
	var ids []event.GamepadID
	for _, g := range a.pads {
		if g.status == StatusConnected {
			ids = append(ids, g.id)
		}
	}
	return ids
}
