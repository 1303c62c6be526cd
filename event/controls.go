package event

// Button identifies a gamepad element whose state is represented by a bool.
//
// Names follow the common cross-platform layout: South is the lower action
// button (A on Xbox pads, Cross on DualShock), East the right one, and so on.
type Button uint16

const (
	// ButtonUnknown is the sentinel for elements without a mapping. Its
	// numeric value is fixed at zero so unmapped controls compare and sort
	// predictably.
	ButtonUnknown Button = iota

	// Action pad.
	ButtonSouth
	ButtonEast
	ButtonNorth
	ButtonWest
	ButtonC
	ButtonZ

	// Shoulder buttons and digital triggers.
	ButtonLeftTrigger
	ButtonLeftTrigger2
	ButtonRightTrigger
	ButtonRightTrigger2

	// Menu pad.
	ButtonSelect
	ButtonStart
	ButtonMode

	// Stick clicks.
	ButtonLeftThumb
	ButtonRightThumb

	// D-Pad.
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
)

// Axis identifies a gamepad element whose state is represented by a float.
type Axis uint16

const (
	// AxisUnknown is the sentinel for axes without a mapping, fixed at zero.
	AxisUnknown Axis = iota

	AxisLeftStickX
	AxisLeftStickY
	AxisLeftZ
	AxisRightStickX
	AxisRightStickY
	AxisRightZ
	AxisDPadX
	AxisDPadY
	AxisLeftTrigger
	AxisLeftTrigger2
	AxisRightTrigger
	AxisRightTrigger2
)

var buttonNames = map[Button]string{
	ButtonUnknown:       "Unknown",
	ButtonSouth:         "South",
	ButtonEast:          "East",
	ButtonNorth:         "North",
	ButtonWest:          "West",
	ButtonC:             "C",
	ButtonZ:             "Z",
	ButtonLeftTrigger:   "LeftTrigger",
	ButtonLeftTrigger2:  "LeftTrigger2",
	ButtonRightTrigger:  "RightTrigger",
	ButtonRightTrigger2: "RightTrigger2",
	ButtonSelect:        "Select",
	ButtonStart:         "Start",
	ButtonMode:          "Mode",
	ButtonLeftThumb:     "LeftThumb",
	ButtonRightThumb:    "RightThumb",
	ButtonDPadUp:        "DPadUp",
	ButtonDPadDown:      "DPadDown",
	ButtonDPadLeft:      "DPadLeft",
	ButtonDPadRight:     "DPadRight",
}

var axisNames = map[Axis]string{
	AxisUnknown:       "Unknown",
	AxisLeftStickX:    "LeftStickX",
	AxisLeftStickY:    "LeftStickY",
	AxisLeftZ:         "LeftZ",
	AxisRightStickX:   "RightStickX",
	AxisRightStickY:   "RightStickY",
	AxisRightZ:        "RightZ",
	AxisDPadX:         "DPadX",
	AxisDPadY:         "DPadY",
	AxisLeftTrigger:   "LeftTrigger",
	AxisLeftTrigger2:  "LeftTrigger2",
	AxisRightTrigger:  "RightTrigger",
	AxisRightTrigger2: "RightTrigger2",
}

func (b Button) String() string {
	if s, ok := buttonNames[b]; ok {
		return s
	}
	return "Unknown"
}

func (a Axis) String() string {
	if s, ok := axisNames[a]; ok {
		return s
	}
	return "Unknown"
}

// IsDPad reports whether the button belongs to the directional pad.
func (b Button) IsDPad() bool {
	switch b {
	case ButtonDPadUp, ButtonDPadDown, ButtonDPadLeft, ButtonDPadRight:
		return true
	}
	return false
}

// IsTrigger reports whether the button is one of the four trigger buttons.
func (b Button) IsTrigger() bool {
	switch b {
	case ButtonLeftTrigger, ButtonLeftTrigger2, ButtonRightTrigger, ButtonRightTrigger2:
		return true
	}
	return false
}

// IsStick reports whether the axis belongs to one of the two thumb sticks.
func (a Axis) IsStick() bool {
	switch a {
	case AxisLeftStickX, AxisLeftStickY, AxisRightStickX, AxisRightStickY:
		return true
	}
	return false
}

// IsTrigger reports whether the axis reports in the unidirectional [0, 1]
// range rather than [-1, 1].
func (a Axis) IsTrigger() bool {
	switch a {
	case AxisLeftTrigger, AxisLeftTrigger2, AxisRightTrigger, AxisRightTrigger2, AxisLeftZ, AxisRightZ:
		return true
	}
	return false
}

// PairedAxis returns the other axis of a two-dimensional stick, used for
// radial deadzone handling. ok is false for axes that stand alone.
func (a Axis) PairedAxis() (other Axis, ok bool) {
	switch a {
	case AxisLeftStickX:
		return AxisLeftStickY, true
	case AxisLeftStickY:
		return AxisLeftStickX, true
	case AxisRightStickX:
		return AxisRightStickY, true
	case AxisRightStickY:
		return AxisRightStickX, true
	case AxisDPadX:
		return AxisDPadY, true
	case AxisDPadY:
		return AxisDPadX, true
	}
	return AxisUnknown, false
}
