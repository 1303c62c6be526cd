// Package gamepad ties the pieces together: it consumes a backend's raw
// stream, resolves controls through the mapping database, normalizes values,
// runs the filter chain and exposes the unified event stream plus cached
// per-gamepad state and force feedback.
package gamepad

import (
	"github.com/google/uuid"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
	"github.com/soar/padkit/mapping"
)

// Status is the connection state of a gamepad slot.
type Status uint8

const (
	// StatusDisconnected means the slot's device is gone; the slot keeps its
	// ID and last state snapshot.
	StatusDisconnected Status = iota
	// StatusConnected means the slot has a live device.
	StatusConnected
)

// Gamepad is one allocated slot: a stable ID bound to a device signature,
// with cached state and the resolved mapping. Accessors are safe to call
// from the event-draining goroutine; for cross-goroutine access go through
// Context, which synchronizes.
type Gamepad struct {
	id        event.GamepadID
	sig       backend.DeviceSignature
	status    Status
	state     *event.GamepadState
	mapping   *mapping.Mapping
	ffCapable bool

	// analogEdges tracks which analog sources currently count as pressed,
	// keyed by their native code. Kept outside GamepadState because axis and
	// button codes share values across namespaces.
	analogEdges map[event.Code]bool
}

// ID returns the slot's stable identifier.
func (g *Gamepad) ID() event.GamepadID { return g.id }

// Name returns the mapping record's device name when one matched, otherwise
// the name the backend reported.
func (g *Gamepad) Name() string {
	if g.mapping != nil && g.mapping.Name() != "" {
		return g.mapping.Name()
	}
	return g.sig.Name
}

// UUID returns the device GUID.
func (g *Gamepad) UUID() uuid.UUID { return g.sig.UUID }

// VendorID returns the USB vendor identifier, zero when unknown.
func (g *Gamepad) VendorID() uint16 { return g.sig.Vendor }

// ProductID returns the USB product identifier, zero when unknown.
func (g *Gamepad) ProductID() uint16 { return g.sig.Product }

// IsConnected reports whether the slot currently has a device.
func (g *Gamepad) IsConnected() bool { return g.status == StatusConnected }

// IsFFSupported reports whether the device can rumble.
func (g *Gamepad) IsFFSupported() bool { return g.ffCapable }

// State returns the cached control state.
func (g *Gamepad) State() *event.GamepadState { return g.state }

// Mapping returns the resolved mapping record, nil when the database has no
// entry for the device.
func (g *Gamepad) Mapping() *mapping.Mapping { return g.mapping }

// IsPressed reports whether a semantic button is held.
func (g *Gamepad) IsPressed(btn event.Button) bool { return g.state.IsPressed(btn) }

// Value returns the last normalized value of a semantic axis.
func (g *Gamepad) Value(axis event.Axis) float32 { return g.state.Value(axis) }
