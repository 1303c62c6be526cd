// Package backend declares the capability contract the gamepad core consumes
// from a platform layer: device enumeration, a raw event stream, axis range
// metadata and force-feedback writes. The core never performs device I/O
// itself and never branches on platform identity; exactly one Backend
// implementation is selected at process start.
package backend

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/soar/padkit/event"
)

// DeviceSignature identifies one physical device model. UUID follows the
// SDL GUID layout so it can be matched against community mapping records.
type DeviceSignature struct {
	UUID    uuid.UUID
	Vendor  uint16
	Product uint16
	Name    string
}

// GUIDFromIDs builds an SDL-compatible GUID from the bus, vendor, product
// and version identifiers a driver reports. All fields are little-endian in
// the GUID byte layout, matching what the community database expects.
func GUIDFromIDs(bus, vendor, product, version uint16) uuid.UUID {
	var u uuid.UUID
	binary.LittleEndian.PutUint16(u[0:2], bus)
	binary.LittleEndian.PutUint16(u[4:6], vendor)
	binary.LittleEndian.PutUint16(u[8:10], product)
	binary.LittleEndian.PutUint16(u[12:14], version)
	return u
}

// GUIDString renders a GUID in the dashless 32-hex-digit form used by
// mapping records.
func GUIDString(u uuid.UUID) string {
	return hex.EncodeToString(u[:])
}

// ParseGUID accepts both the dashless form and the canonical UUID form.
func ParseGUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, errors.Wrap(err, "invalid device GUID")
	}
	return u, nil
}

// AxisInfo describes the native value range of one axis. A zero Deadzone
// means the backend has no opinion and the configured default applies.
type AxisInfo struct {
	Min      int32
	Max      int32
	Deadzone float32
	Inverted bool
}

// RawKind discriminates raw event variants coming off a backend.
type RawKind uint8

const (
	// RawConnected reports a device appearing. Signature must be complete.
	RawConnected RawKind = iota + 1
	// RawDisconnected reports a device vanishing.
	RawDisconnected
	// RawButtonPressed and RawButtonReleased report digital buttons.
	RawButtonPressed
	RawButtonReleased
	// RawButtonValue reports an analog button; Value is in native units of
	// the code's AxisInfo range.
	RawButtonValue
	// RawAxisValue reports an axis; Value is in native units.
	RawAxisValue
)

// RawEvent is a single platform event before normalization. Button and axis
// codes are separate namespaces; RawKind tells the core which table to
// resolve Code against.
type RawEvent struct {
	Signature DeviceSignature
	Kind      RawKind
	Code      event.Code
	Value     int32
	Time      time.Time
}

// Command is one force-feedback write: instantaneous magnitudes for the two
// conventional rumble motors.
type Command struct {
	Strong uint16
	Weak   uint16
}

// Backend is the minimal platform capability contract.
//
// Implementations deliver raw events on the Events channel from however many
// internal threads they like; the channel is the only crossing point, and it
// is closed when the backend shuts down. All other methods must be safe for
// concurrent use.
type Backend interface {
	// Enumerate lists devices already present. The core emits Connected
	// events for them during construction.
	Enumerate() []DeviceSignature

	// Events returns the raw event stream.
	Events() <-chan RawEvent

	// AxisInfo reports the native range of an axis code, false when the
	// backend has no metadata for it.
	AxisInfo(sig DeviceSignature, code event.Code) (AxisInfo, bool)

	// SupportsFF reports whether the device can rumble.
	SupportsFF(sig DeviceSignature) bool

	// WriteFF submits one rumble command. Errors are surfaced to the caller
	// but must not affect event delivery for other devices.
	WriteFF(sig DeviceSignature, cmd Command) error

	// Close releases platform resources and closes the event stream.
	Close() error
}

// Synthetic axis codes for hat switches. Backends that report hats as
// discrete direction bitmasks translate them onto these codes so mapping
// records like "dpup:h0.1" resolve uniformly.
const (
	hatCodeBase event.Code = 0xFFFF0000
)

// HatXCode returns the synthetic native code for the horizontal axis of hat n.
func HatXCode(hat uint8) event.Code {
	return hatCodeBase | event.Code(hat)<<1
}

// HatYCode returns the synthetic native code for the vertical axis of hat n.
func HatYCode(hat uint8) event.Code {
	return hatCodeBase | event.Code(hat)<<1 | 1
}
