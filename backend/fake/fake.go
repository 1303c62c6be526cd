// Package fake provides an in-memory Backend for tests: devices are
// connected and driven programmatically and force-feedback writes are
// recorded instead of reaching hardware.
package fake

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

// Backend implements backend.Backend. The zero value is not usable; use New.
type Backend struct {
	mu       sync.Mutex
	clk      clock.Clock
	events   chan backend.RawEvent
	present  []backend.DeviceSignature
	axisInfo map[infoKey]backend.AxisInfo
	noFF     map[backend.DeviceSignature]bool
	failFF   error
	writes   []Write
	closed   bool
}

type infoKey struct {
	sig  backend.DeviceSignature
	code event.Code
}

// Write is one recorded force-feedback command.
type Write struct {
	Sig backend.DeviceSignature
	Cmd backend.Command
}

// New returns an empty fake backend with the given event buffer size.
func New(buffer int) *Backend {
	return &Backend{
		clk:      clock.New(),
		events:   make(chan backend.RawEvent, buffer),
		axisInfo: make(map[infoKey]backend.AxisInfo),
		noFF:     make(map[backend.DeviceSignature]bool),
	}
}

// WithClock substitutes the clock used to stamp events, so tests can line
// raw timestamps up with a mock.
func (b *Backend) WithClock(c clock.Clock) *Backend {
	b.clk = c
	return b
}

// Signature builds a repeatable test device signature from a seed.
func Signature(seed uint16, name string) backend.DeviceSignature {
	return backend.DeviceSignature{
		UUID:    backend.GUIDFromIDs(3, seed, seed+1, 1),
		Vendor:  seed,
		Product: seed + 1,
		Name:    name,
	}
}

// AddPresent registers a device as already plugged in when Enumerate runs.
func (b *Backend) AddPresent(sig backend.DeviceSignature) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.present = append(b.present, sig)
}

// SetAxisInfo sets the native range reported for one axis code.
func (b *Backend) SetAxisInfo(sig backend.DeviceSignature, code event.Code, info backend.AxisInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.axisInfo[infoKey{sig, code}] = info
}

// SetNoFF marks a device as rumble-incapable.
func (b *Backend) SetNoFF(sig backend.DeviceSignature) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.noFF[sig] = true
}

// FailFF makes every WriteFF return err until cleared with nil.
func (b *Backend) FailFF(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failFF = err
}

// Connect delivers a connection event for sig.
func (b *Backend) Connect(sig backend.DeviceSignature) {
	b.send(backend.RawEvent{Signature: sig, Kind: backend.RawConnected, Time: b.clk.Now()})
}

// Disconnect delivers a disconnection event for sig.
func (b *Backend) Disconnect(sig backend.DeviceSignature) {
	b.send(backend.RawEvent{Signature: sig, Kind: backend.RawDisconnected, Time: b.clk.Now()})
}

// SendButton delivers a digital button edge.
func (b *Backend) SendButton(sig backend.DeviceSignature, code event.Code, pressed bool) {
	kind := backend.RawButtonReleased
	if pressed {
		kind = backend.RawButtonPressed
	}
	b.send(backend.RawEvent{Signature: sig, Kind: kind, Code: code, Time: b.clk.Now()})
}

// SendAxis delivers a native axis value.
func (b *Backend) SendAxis(sig backend.DeviceSignature, code event.Code, value int32) {
	b.send(backend.RawEvent{Signature: sig, Kind: backend.RawAxisValue, Code: code, Value: value, Time: b.clk.Now()})
}

// SendButtonValue delivers an analog button value.
func (b *Backend) SendButtonValue(sig backend.DeviceSignature, code event.Code, value int32) {
	b.send(backend.RawEvent{Signature: sig, Kind: backend.RawButtonValue, Code: code, Value: value, Time: b.clk.Now()})
}

func (b *Backend) send(ev backend.RawEvent) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}
	b.events <- ev
}

// Writes returns a copy of the recorded force-feedback commands.
func (b *Backend) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Write, len(b.writes))
	copy(out, b.writes)
	return out
}

// Enumerate implements backend.Backend.
func (b *Backend) Enumerate() []backend.DeviceSignature {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.DeviceSignature, len(b.present))
	copy(out, b.present)
	return out
}

// Events implements backend.Backend.
func (b *Backend) Events() <-chan backend.RawEvent { return b.events }

// AxisInfo implements backend.Backend.
func (b *Backend) AxisInfo(sig backend.DeviceSignature, code event.Code) (backend.AxisInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.axisInfo[infoKey{sig, code}]
	return info, ok
}

// SupportsFF implements backend.Backend.
func (b *Backend) SupportsFF(sig backend.DeviceSignature) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.noFF[sig]
}

// WriteFF implements backend.Backend.
func (b *Backend) WriteFF(sig backend.DeviceSignature, cmd backend.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.Wrap(backend.ErrDisconnected, "fake backend closed")
	}
	if b.failFF != nil {
		return b.failFF
	}
	b.writes = append(b.writes, Write{Sig: sig, Cmd: cmd})
	return nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.events)
	return nil
}
