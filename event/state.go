package event

import "time"

// ButtonData is the cached state of a single native button.
type ButtonData struct {
	pressed   bool
	repeating bool
	value     float32
	counter   uint64
	ts        time.Time
}

// IsPressed reports whether the button is held.
func (d ButtonData) IsPressed() bool { return d.pressed }

// IsRepeating reports whether the Repeat filter already fired for this hold.
func (d ButtonData) IsRepeating() bool { return d.repeating }

// Value returns the last analog reading of a pressure-reporting button, zero
// when the button only ever reported digitally.
func (d ButtonData) Value() float32 { return d.value }

// Counter returns the pipeline counter value when the state last changed.
func (d ButtonData) Counter() uint64 { return d.counter }

// Timestamp returns when the state last changed.
func (d ButtonData) Timestamp() time.Time { return d.ts }

// AxisData is the cached state of a single native axis.
type AxisData struct {
	value   float32
	counter uint64
	ts      time.Time
}

// Value returns the last reported normalized value.
func (d AxisData) Value() float32 { return d.value }

// Counter returns the pipeline counter value when the value last changed.
func (d AxisData) Counter() uint64 { return d.counter }

// Timestamp returns when the value last changed.
func (d AxisData) Timestamp() time.Time { return d.ts }

// GamepadState caches the most recent accepted event per control of one
// gamepad. State is keyed by native code; semantic lookups go through the
// code associations learned from the event stream, so a button that never
// generated an event simply reads as released.
//
// GamepadState is not safe for concurrent mutation; the pipeline owns all
// writes and performs them on the consumer's thread.
type GamepadState struct {
	buttons map[Code]ButtonData
	axes    map[Code]AxisData

	btnCode  map[Button]Code
	axisCode map[Axis]Code
	codeBtn  map[Code]Button
	codeAxis map[Code]Axis
}

// NewGamepadState returns an empty state: all buttons released, all axes at
// zero.
func NewGamepadState() *GamepadState {
	return &GamepadState{
		buttons:  make(map[Code]ButtonData),
		axes:     make(map[Code]AxisData),
		btnCode:  make(map[Button]Code),
		axisCode: make(map[Axis]Code),
		codeBtn:  make(map[Code]Button),
		codeAxis: make(map[Code]Axis),
	}
}

// Update applies an accepted event to the cached state, stamping it with the
// pipeline counter. Dropped, Connected and Disconnected events are no-ops.
func (s *GamepadState) Update(ev Event, counter uint64) {
	switch ev.Kind {
	case KindButtonPressed:
		d := s.buttons[ev.Code]
		d.pressed, d.repeating = true, false
		d.counter, d.ts = counter, ev.Time
		s.buttons[ev.Code] = d
		s.learnButton(ev.Button, ev.Code)
	case KindButtonReleased:
		d := s.buttons[ev.Code]
		d.pressed, d.repeating = false, false
		d.counter, d.ts = counter, ev.Time
		s.buttons[ev.Code] = d
		s.learnButton(ev.Button, ev.Code)
	case KindButtonRepeated:
		d := s.buttons[ev.Code]
		d.pressed, d.repeating = true, true
		d.counter, d.ts = counter, ev.Time
		s.buttons[ev.Code] = d
	case KindButtonChanged:
		d := s.buttons[ev.Code]
		d.value = ev.Value
		d.counter, d.ts = counter, ev.Time
		s.buttons[ev.Code] = d
		s.learnButton(ev.Button, ev.Code)
	case KindAxisChanged:
		s.axes[ev.Code] = AxisData{value: ev.Value, counter: counter, ts: ev.Time}
		s.learnAxis(ev.Axis, ev.Code)
	}
}

func (s *GamepadState) learnButton(btn Button, code Code) {
	if btn == ButtonUnknown {
		return
	}
	s.btnCode[btn] = code
	s.codeBtn[code] = btn
}

func (s *GamepadState) learnAxis(axis Axis, code Code) {
	if axis == AxisUnknown {
		return
	}
	s.axisCode[axis] = code
	s.codeAxis[code] = axis
}

// Reset discards all cached values and associations. Used when a device
// reconnects, since its physical state is unknown after the gap.
func (s *GamepadState) Reset() {
	*s = *NewGamepadState()
}

// IsPressed reports whether the given semantic button is held. Buttons with
// no recorded state read as released.
func (s *GamepadState) IsPressed(btn Button) bool {
	code, ok := s.btnCode[btn]
	if !ok {
		return false
	}
	return s.buttons[code].pressed
}

// IsPressedCode is IsPressed for a native code.
func (s *GamepadState) IsPressedCode(code Code) bool {
	return s.buttons[code].pressed
}

// Value returns the last value of the given semantic axis, or 0 when it has
// never reported.
func (s *GamepadState) Value(axis Axis) float32 {
	code, ok := s.axisCode[axis]
	if !ok {
		return 0
	}
	return s.axes[code].value
}

// ValueCode is Value for a native code.
func (s *GamepadState) ValueCode(code Code) float32 {
	return s.axes[code].value
}

// ButtonData returns the recorded state of a semantic button.
func (s *GamepadState) ButtonData(btn Button) (ButtonData, bool) {
	code, ok := s.btnCode[btn]
	if !ok {
		return ButtonData{}, false
	}
	d, ok := s.buttons[code]
	return d, ok
}

// AxisData returns the recorded state of a semantic axis.
func (s *GamepadState) AxisData(axis Axis) (AxisData, bool) {
	code, ok := s.axisCode[axis]
	if !ok {
		return AxisData{}, false
	}
	d, ok := s.axes[code]
	return d, ok
}

// ButtonCode returns the native code last seen for a semantic button.
func (s *GamepadState) ButtonCode(btn Button) (Code, bool) {
	code, ok := s.btnCode[btn]
	return code, ok
}

// AxisCode returns the native code last seen for a semantic axis.
func (s *GamepadState) AxisCode(axis Axis) (Code, bool) {
	code, ok := s.axisCode[axis]
	return code, ok
}

// ButtonName returns the semantic button learned for a native code.
func (s *GamepadState) ButtonName(code Code) Button {
	return s.codeBtn[code]
}

// EachButton calls fn for every native button with recorded state, stopping
// early when fn returns false.
func (s *GamepadState) EachButton(fn func(Code, ButtonData) bool) {
	for code, data := range s.buttons {
		if !fn(code, data) {
			return
		}
	}
}

// EachAxis calls fn for every native axis with recorded state, stopping
// early when fn returns false.
func (s *GamepadState) EachAxis(fn func(Code, AxisData) bool) {
	for code, data := range s.axes {
		if !fn(code, data) {
			return
		}
	}
}
