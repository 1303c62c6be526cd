package event

import "time"

// StateView is the read-only window filters get into the pipeline's gamepad
// table. The pipeline implements it; filters must not hold the returned
// state across calls.
type StateView interface {
	// ConnectedIDs lists the gamepads currently connected.
	ConnectedIDs() []GamepadID
	// State returns the cached state for a gamepad, false for IDs that were
	// never registered.
	State(id GamepadID) (*GamepadState, bool)
}

// Filter transforms events as they pass through the pipeline. A filter may
// return the event unchanged, rewrite it, or replace it with a Dropped event;
// it must never make an event vanish, since consumers rely on the stream
// length to drive their loops.
//
// Tick runs once per drain cycle even when no hardware event arrived, which
// lets filters synthesize events on their own clock. Synthesized events are
// fed back through the rest of the chain and update state like any other.
type Filter interface {
	FilterEvent(ev Event, states StateView) Event
	Tick(now time.Time, states StateView) []Event
}

// Jitter discards axis events whose value moved less than Threshold since
// the last accepted reading, keeping sensor noise out of the stream. Events
// returning exactly to zero always pass.
type Jitter struct {
	Threshold float32
}

// FilterEvent implements Filter.
func (j Jitter) FilterEvent(ev Event, states StateView) Event {
	if ev.Kind != KindAxisChanged || ev.Value == 0 {
		return ev
	}
	st, ok := states.State(ev.ID)
	if !ok {
		return ev
	}
	if d, ok := st.axes[ev.Code]; ok {
		if diff := ev.Value - d.value; diff < j.Threshold && diff > -j.Threshold {
			return NewDropped(ev.ID, ev.Time)
		}
	}
	return ev
}

// Tick implements Filter; Jitter synthesizes nothing.
func (j Jitter) Tick(time.Time, StateView) []Event { return nil }

// DropUnknown replaces events for controls without a mapping with Dropped
// events, for consumers that only care about semantic controls.
type DropUnknown struct{}

// FilterEvent implements Filter.
func (DropUnknown) FilterEvent(ev Event, _ StateView) Event {
	switch ev.Kind {
	case KindButtonPressed, KindButtonReleased, KindButtonRepeated, KindButtonChanged:
		if ev.Button == ButtonUnknown {
			return NewDropped(ev.ID, ev.Time)
		}
	case KindAxisChanged:
		if ev.Axis == AxisUnknown {
			return NewDropped(ev.ID, ev.Time)
		}
	}
	return ev
}

// Tick implements Filter.
func (DropUnknown) Tick(time.Time, StateView) []Event { return nil }

// Repeat synthesizes ButtonRepeated events for held buttons: the first one
// After the press, then one Every interval, without any new hardware input.
// The hold bookkeeping lives in ButtonData, so Repeat itself is stateless.
type Repeat struct {
	After time.Duration
	Every time.Duration
}

// NewRepeat returns a Repeat filter with the conventional 500ms delay and
// 30ms interval.
func NewRepeat() Repeat {
	return Repeat{After: 500 * time.Millisecond, Every: 30 * time.Millisecond}
}

// FilterEvent implements Filter; hardware events pass through untouched.
func (r Repeat) FilterEvent(ev Event, _ StateView) Event { return ev }

// Tick implements Filter. The synthesized event carries the timestamp the
// repeat was due, not the observation time, so cadence stays even under an
// irregular polling rate.
func (r Repeat) Tick(now time.Time, states StateView) []Event {
	var out []Event
	for _, id := range states.ConnectedIDs() {
		st, ok := states.State(id)
		if !ok {
			continue
		}
		st.EachButton(func(code Code, data ButtonData) bool {
			if !data.pressed {
				return true
			}
			held := now.Sub(data.ts)
			switch {
			case !data.repeating && held >= r.After:
				out = append(out, NewButtonRepeated(id, st.ButtonName(code), code, data.ts.Add(r.After)))
			case data.repeating && held >= r.Every:
				out = append(out, NewButtonRepeated(id, st.ButtonName(code), code, data.ts.Add(r.Every)))
			}
			return true
		})
	}
	return out
}
