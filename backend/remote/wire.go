package remote

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

// Frame is one server-to-client message of the remote gamepad protocol.
// Type selects the variant; unused fields are omitted on the wire.
type Frame struct {
	Type      string      `json:"type"` // "connected", "disconnected", "button", "axis"
	Seq       int64       `json:"seq"`
	Timestamp int64       `json:"timestamp"` // unix milliseconds
	GUID      string      `json:"guid,omitempty"`
	Device    *DeviceInfo `json:"device,omitempty"`
	Code      uint32      `json:"code,omitempty"`
	Value     int32       `json:"value,omitempty"`
	Pressed   bool        `json:"pressed,omitempty"`
	Analog    bool        `json:"analog,omitempty"`
}

// DeviceInfo describes a device in a "connected" frame, including the axis
// metadata the core needs for normalization.
type DeviceInfo struct {
	GUID    string      `json:"guid"`
	Vendor  uint16      `json:"vendor,omitempty"`
	Product uint16      `json:"product,omitempty"`
	Name    string      `json:"name"`
	FF      bool        `json:"ff"`
	Axes    []AxisRange `json:"axes,omitempty"`
}

// AxisRange is the native range of one axis code.
type AxisRange struct {
	Code     uint32  `json:"code"`
	Min      int32   `json:"min"`
	Max      int32   `json:"max"`
	Deadzone float32 `json:"deadzone,omitempty"`
	Inverted bool    `json:"inverted,omitempty"`
}

// rumbleCommand is the client-to-server force-feedback request.
type rumbleCommand struct {
	Type   string `json:"type"` // always "rumble"
	GUID   string `json:"guid"`
	Strong uint16 `json:"strong"`
	Weak   uint16 `json:"weak"`
}

func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, errors.Wrap(err, "decoding frame")
	}
	if f.Type == "" {
		return Frame{}, errors.New("frame has no type")
	}
	return f, nil
}

func (f Frame) time() time.Time {
	if f.Timestamp == 0 {
		return time.Now()
	}
	return time.UnixMilli(f.Timestamp)
}

// signature resolves the device a frame refers to: the embedded DeviceInfo
// for "connected" frames, the GUID field otherwise.
func (f Frame) signature() (backend.DeviceSignature, error) {
	if f.Device != nil {
		u, err := backend.ParseGUID(f.Device.GUID)
		if err != nil {
			return backend.DeviceSignature{}, err
		}
		return backend.DeviceSignature{
			UUID:    u,
			Vendor:  f.Device.Vendor,
			Product: f.Device.Product,
			Name:    f.Device.Name,
		}, nil
	}
	u, err := backend.ParseGUID(f.GUID)
	if err != nil {
		return backend.DeviceSignature{}, err
	}
	return backend.DeviceSignature{UUID: u}, nil
}

// raw converts a frame into the core's raw event form. The returned
// signature is partial for non-connection frames; the caller completes it
// from its device table.
func (f Frame) raw() (backend.RawEvent, error) {
	sig, err := f.signature()
	if err != nil {
		return backend.RawEvent{}, err
	}
	ev := backend.RawEvent{
		Signature: sig,
		Code:      event.Code(f.Code),
		Value:     f.Value,
		Time:      f.time(),
	}
	switch f.Type {
	case "connected":
		ev.Kind = backend.RawConnected
	case "disconnected":
		ev.Kind = backend.RawDisconnected
	case "button":
		switch {
		case f.Analog:
			ev.Kind = backend.RawButtonValue
		case f.Pressed:
			ev.Kind = backend.RawButtonPressed
		default:
			ev.Kind = backend.RawButtonReleased
		}
	case "axis":
		ev.Kind = backend.RawAxisValue
	default:
		return backend.RawEvent{}, errors.Errorf("unknown frame type %q", f.Type)
	}
	return ev, nil
}
