// Package mapping implements the community gamepad mapping format: parsing
// single records, serializing them back, and a priority-ordered database
// keyed by device GUID.
package mapping

import (
	"strings"

	"github.com/google/uuid"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

// Mapping is one parsed record: the translation tables from a device's
// native button and axis codes to semantic controls. Native button and axis
// codes are separate namespaces, so "b0" and "a0" never collide; cross-kind
// pairs like "dpup:-a1" or "leftx:b4" get their own tables keyed by the
// source namespace.
type Mapping struct {
	guid     uuid.UUID
	name     string
	platform string

	btns        map[event.Code]event.Button
	axes        map[event.Code]event.Axis
	btnFromAxis map[event.Code]event.Button
	axisFromBtn map[event.Code]event.Axis

	// Hat directions share a synthetic axis code per hat and axis; the sign
	// of the reported value picks the button.
	hatBtns map[event.Code]hatPair

	btnRev  map[event.Button]event.Code
	axisRev map[event.Axis]event.Code

	// Axes flagged with ~ in the record report inverted and get flipped
	// during normalization.
	inverted map[event.Code]bool

	entries []entry
}

type hatPair struct {
	neg event.Button
	pos event.Button
}

func newMapping(guid uuid.UUID, name string) *Mapping {
	return &Mapping{
		guid:        guid,
		name:        name,
		btns:        make(map[event.Code]event.Button),
		axes:        make(map[event.Code]event.Axis),
		btnFromAxis: make(map[event.Code]event.Button),
		axisFromBtn: make(map[event.Code]event.Axis),
		hatBtns:     make(map[event.Code]hatPair),
		btnRev:      make(map[event.Button]event.Code),
		axisRev:     make(map[event.Axis]event.Code),
		inverted:    make(map[event.Code]bool),
	}
}

// addEntry resolves one parsed pair into the translation tables. Entries the
// tables cannot represent (hats other than hat 0, Unknown semantics) are
// still recorded for serialization but add nothing to resolution.
func (m *Mapping) addEntry(e entry, target semantic, pos int) error {
	code := event.Code(e.index)
	switch e.kind {
	case entryButton:
		switch {
		case !target.isAxis && target.btn != event.ButtonUnknown:
			m.btns[code] = target.btn
			m.btnRev[target.btn] = code
		case target.isAxis && target.axis != event.AxisUnknown:
			m.axisFromBtn[code] = target.axis
		}
	case entryAxis:
		switch {
		case target.isAxis && target.axis != event.AxisUnknown:
			m.axes[code] = target.axis
			m.axisRev[target.axis] = code
		case !target.isAxis && target.btn != event.ButtonUnknown:
			m.btnFromAxis[code] = target.btn
		}
		if e.inverted {
			m.inverted[code] = true
		}
	case entryHat:
		if err := m.addHat(e, target, pos); err != nil {
			return err
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

// addHat folds a hat direction onto the synthetic dpad axis codes. Only hat 0
// maps cleanly onto a dpad; records targeting other hats are kept but
// unresolved.
func (m *Mapping) addHat(e entry, target semantic, pos int) error {
	if target.isAxis || e.hat != 0 {
		return nil
	}
	var (
		code     event.Code
		positive bool
	)
	// Direction bits follow the hat switch convention: 1 up, 2 right,
	// 4 down, 8 left. Up and left read as negative on the synthetic axes.
	switch e.direction {
	case 1:
		code = backend.HatYCode(uint8(e.hat))
	case 4:
		code, positive = backend.HatYCode(uint8(e.hat)), true
	case 8:
		code = backend.HatXCode(uint8(e.hat))
	case 2:
		code, positive = backend.HatXCode(uint8(e.hat)), true
	case 0:
		return nil
	default:
		return parseErr(ErrUnknownHatDirection, pos, e.key)
	}
	if !target.btn.IsDPad() {
		return nil
	}
	pair := m.hatBtns[code]
	if positive {
		pair.pos = target.btn
	} else {
		pair.neg = target.btn
	}
	m.hatBtns[code] = pair
	m.btnRev[target.btn] = code
	return nil
}

// UUID returns the device GUID of the record, nil for xinput records.
func (m *Mapping) UUID() uuid.UUID { return m.guid }

// Name returns the human-readable device name.
func (m *Mapping) Name() string { return m.name }

// Platform returns the value of the record's platform field, empty when
// absent.
func (m *Mapping) Platform() string { return m.platform }

// Button resolves a native button code, ButtonUnknown when unmapped.
func (m *Mapping) Button(code event.Code) event.Button { return m.btns[code] }

// Axis resolves a native axis code, AxisUnknown when unmapped.
func (m *Mapping) Axis(code event.Code) event.Axis { return m.axes[code] }

// ButtonFromAxis resolves a native axis code driving a semantic button, as
// in "lefttrigger:a2" on pads that report triggers as axes.
func (m *Mapping) ButtonFromAxis(code event.Code) event.Button {
	return m.btnFromAxis[code]
}

// HatButton resolves a synthetic hat axis code and value sign to a dpad
// button, ButtonUnknown when unmapped.
func (m *Mapping) HatButton(code event.Code, positive bool) event.Button {
	pair := m.hatBtns[code]
	if positive {
		return pair.pos
	}
	return pair.neg
}

// AxisFromButton resolves a native button code driving a semantic axis, as
// in "leftx:b4" on pads with digital sticks.
func (m *Mapping) AxisFromButton(code event.Code) event.Axis {
	return m.axisFromBtn[code]
}

// ButtonCode returns the native code bound to a semantic button.
func (m *Mapping) ButtonCode(btn event.Button) (event.Code, bool) {
	code, ok := m.btnRev[btn]
	return code, ok
}

// AxisCode returns the native code bound to a semantic axis.
func (m *Mapping) AxisCode(axis event.Axis) (event.Code, bool) {
	code, ok := m.axisRev[axis]
	return code, ok
}

// Inverted reports whether the record flags a native axis as inverted.
func (m *Mapping) Inverted(code event.Code) bool { return m.inverted[code] }

// Serialize renders the mapping back into record form. Parsing the result
// yields a mapping equivalent to this one; pair order is preserved from the
// original record.
func (m *Mapping) Serialize() string {
	var b strings.Builder
	if m.guid == uuid.Nil {
		b.WriteString("xinput")
	} else {
		b.WriteString(backend.GUIDString(m.guid))
	}
	b.WriteByte(',')
	b.WriteString(m.name)
	b.WriteByte(',')
	for _, e := range m.entries {
		b.WriteString(e.String())
		b.WriteByte(',')
	}
	if m.platform != "" {
		b.WriteString("platform:")
		b.WriteString(m.platform)
		b.WriteByte(',')
	}
	return b.String()
}
