// Package remote implements a Backend over a websocket connection to a
// gamepad bridge: a process that owns the physical devices and forwards raw
// events as JSON frames. This lets the core run apart from the machine the
// controllers are plugged into.
package remote

import (
	"encoding/json"
	"sync"

	"github.com/lxzan/gws"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

type deviceEntry struct {
	sig  backend.DeviceSignature
	ff   bool
	axes map[event.Code]backend.AxisInfo
}

// Backend implements backend.Backend over a websocket client connection.
type Backend struct {
	gws.BuiltinEventHandler

	logger *zap.SugaredLogger
	events chan backend.RawEvent

	mu      sync.Mutex
	socket  *gws.Conn
	devices map[string]*deviceEntry // keyed by dashless GUID
	closed  bool
}

// Dial connects to a bridge at addr (a ws:// URL) and starts reading
// frames. A nil logger disables logging.
func Dial(addr string, logger *zap.SugaredLogger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	b := &Backend{
		logger:  logger,
		events:  make(chan backend.RawEvent, 256),
		devices: make(map[string]*deviceEntry),
	}
	socket, _, err := gws.NewClient(b, &gws.ClientOption{Addr: addr})
	if err != nil {
		return nil, errors.Wrap(err, "dialing gamepad bridge")
	}
	b.socket = socket
	go socket.ReadLoop()
	return b, nil
}

// OnClose implements gws.Event. The raw stream ends with the connection.
func (b *Backend) OnClose(_ *gws.Conn, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if err != nil {
		b.logger.Warnw("bridge connection closed", "error", err)
	}
	close(b.events)
}

// OnMessage implements gws.Event.
func (b *Backend) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer func() {
		if err := message.Close(); err != nil {
			b.logger.Debugw("recycling message", "error", err)
		}
	}()

	frame, err := decodeFrame(message.Bytes())
	if err != nil {
		b.logger.Warnw("bad frame from bridge", "error", err)
		return
	}
	raw, err := frame.raw()
	if err != nil {
		b.logger.Warnw("bad frame from bridge", "error", err)
		return
	}

	b.mu.Lock()
	switch raw.Kind {
	case backend.RawConnected:
		b.devices[backend.GUIDString(raw.Signature.UUID)] = entryFromFrame(frame, raw.Signature)
	case backend.RawDisconnected:
		delete(b.devices, backend.GUIDString(raw.Signature.UUID))
	default:
		// Complete the partial signature from the device table.
		if d, ok := b.devices[backend.GUIDString(raw.Signature.UUID)]; ok {
			raw.Signature = d.sig
		}
	}
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	select {
	case b.events <- raw:
	default:
		b.logger.Warnw("event buffer full, dropping frame", "type", frame.Type)
	}
}

func entryFromFrame(f Frame, sig backend.DeviceSignature) *deviceEntry {
	e := &deviceEntry{
		sig:  sig,
		axes: make(map[event.Code]backend.AxisInfo),
	}
	if f.Device != nil {
		e.ff = f.Device.FF
		for _, a := range f.Device.Axes {
			e.axes[event.Code(a.Code)] = backend.AxisInfo{
				Min:      a.Min,
				Max:      a.Max,
				Deadzone: a.Deadzone,
				Inverted: a.Inverted,
			}
		}
	}
	return e
}

// Enumerate implements backend.Backend. The bridge announces devices with
// "connected" frames rather than a list, so this reports what has been seen
// so far.
func (b *Backend) Enumerate() []backend.DeviceSignature {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.DeviceSignature, 0, len(b.devices))
	for _, d := range b.devices {
		out = append(out, d.sig)
	}
	return out
}

// Events implements backend.Backend.
func (b *Backend) Events() <-chan backend.RawEvent { return b.events }

// AxisInfo implements backend.Backend.
func (b *Backend) AxisInfo(sig backend.DeviceSignature, code event.Code) (backend.AxisInfo, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[backend.GUIDString(sig.UUID)]
	if !ok {
		return backend.AxisInfo{}, false
	}
	info, ok := d.axes[code]
	return info, ok
}

// SupportsFF implements backend.Backend.
func (b *Backend) SupportsFF(sig backend.DeviceSignature) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.devices[backend.GUIDString(sig.UUID)]
	return ok && d.ff
}

// WriteFF implements backend.Backend by forwarding the command to the
// bridge.
func (b *Backend) WriteFF(sig backend.DeviceSignature, cmd backend.Command) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.Wrap(backend.ErrDisconnected, "bridge connection closed")
	}
	if d, ok := b.devices[backend.GUIDString(sig.UUID)]; !ok || !d.ff {
		b.mu.Unlock()
		return errors.Wrap(backend.ErrNotSupported, "device cannot rumble")
	}
	socket := b.socket
	b.mu.Unlock()

	data, err := json.Marshal(rumbleCommand{
		Type:   "rumble",
		GUID:   backend.GUIDString(sig.UUID),
		Strong: cmd.Strong,
		Weak:   cmd.Weak,
	})
	if err != nil {
		return errors.Wrap(err, "encoding rumble command")
	}
	return errors.Wrap(socket.WriteMessage(gws.OpcodeText, data), "writing rumble command")
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	socket := b.socket
	closed := b.closed
	b.mu.Unlock()
	if closed || socket == nil {
		return nil
	}
	socket.WriteClose(1000, nil)
	return nil
}
