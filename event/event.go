// Package event defines the unified gamepad event model: semantic buttons and
// axes, the Event variant emitted by the pipeline, per-gamepad cached state
// and the filter chain applied while events are drained.
package event

import "time"

// GamepadID is the stable, consumer-facing identifier of a gamepad slot. It
// is decoupled from the physical device; the same ID is handed back to a
// device that reconnects with an identical signature.
type GamepadID int

// Code is an opaque platform-specific identifier of a physical button or
// axis. Its meaning varies between platforms, drivers and even devices, and
// button and axis codes live in separate namespaces.
type Code uint32

// Kind discriminates the Event variants.
type Kind uint8

const (
	// KindDropped replaces events discarded by a filter. Consumers should
	// ignore it; it exists so filters never swallow events outright.
	KindDropped Kind = iota
	// KindConnected is emitted when a device is plugged in or reconnects.
	KindConnected
	// KindDisconnected is emitted when a device is removed. The gamepad
	// keeps its ID and last snapshot but generates no further events.
	KindDisconnected
	// KindButtonPressed is a digital press.
	KindButtonPressed
	// KindButtonReleased is a digital release.
	KindButtonReleased
	// KindButtonRepeated is synthesized by the Repeat filter while a button
	// stays held; no hardware input is involved.
	KindButtonRepeated
	// KindButtonChanged carries the analog value of a pressure-reporting
	// button in [0, 1].
	KindButtonChanged
	// KindAxisChanged carries a normalized axis value, [-1, 1] for sticks
	// and [0, 1] for triggers.
	KindAxisChanged
)

var kindNames = map[Kind]string{
	KindDropped:        "Dropped",
	KindConnected:      "Connected",
	KindDisconnected:   "Disconnected",
	KindButtonPressed:  "ButtonPressed",
	KindButtonReleased: "ButtonReleased",
	KindButtonRepeated: "ButtonRepeated",
	KindButtonChanged:  "ButtonChanged",
	KindAxisChanged:    "AxisChanged",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Event is a single entry of the unified event stream.
//
// Button, Axis, Value and Code are meaningful only for the kinds that carry
// them; Code is always the native code the event originated from, so bespoke
// consumers can special-case unmapped hardware.
type Event struct {
	ID     GamepadID
	Kind   Kind
	Button Button
	Axis   Axis
	Value  float32
	Code   Code
	Time   time.Time
}

// NewConnected creates a connection event.
func NewConnected(id GamepadID, t time.Time) Event {
	return Event{ID: id, Kind: KindConnected, Time: t}
}

// NewDisconnected creates a disconnection event.
func NewDisconnected(id GamepadID, t time.Time) Event {
	return Event{ID: id, Kind: KindDisconnected, Time: t}
}

// NewButtonPressed creates a press event.
func NewButtonPressed(id GamepadID, btn Button, code Code, t time.Time) Event {
	return Event{ID: id, Kind: KindButtonPressed, Button: btn, Code: code, Time: t}
}

// NewButtonReleased creates a release event.
func NewButtonReleased(id GamepadID, btn Button, code Code, t time.Time) Event {
	return Event{ID: id, Kind: KindButtonReleased, Button: btn, Code: code, Time: t}
}

// NewButtonRepeated creates a synthesized repeat event.
func NewButtonRepeated(id GamepadID, btn Button, code Code, t time.Time) Event {
	return Event{ID: id, Kind: KindButtonRepeated, Button: btn, Code: code, Time: t}
}

// NewButtonChanged creates an analog button event.
func NewButtonChanged(id GamepadID, btn Button, value float32, code Code, t time.Time) Event {
	return Event{ID: id, Kind: KindButtonChanged, Button: btn, Value: value, Code: code, Time: t}
}

// NewAxisChanged creates an axis event.
func NewAxisChanged(id GamepadID, axis Axis, value float32, code Code, t time.Time) Event {
	return Event{ID: id, Kind: KindAxisChanged, Axis: axis, Value: value, Code: code, Time: t}
}

// NewDropped creates the replacement event filters use to discard another.
func NewDropped(id GamepadID, t time.Time) Event {
	return Event{ID: id, Kind: KindDropped, Time: t}
}

// IsDropped reports whether the event was discarded by a filter.
func (e Event) IsDropped() bool { return e.Kind == KindDropped }
