package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/soar/padkit/event"
)

// ErrorKind classifies mapping parse failures.
type ErrorKind uint8

const (
	ErrInvalidGUID ErrorKind = iota + 1
	ErrInvalidPair
	ErrInvalidValue
	ErrUnknownName
	ErrUnknownHatDirection
	ErrDuplicateName
	ErrDisallowedName
	ErrUnexpectedEnd
)

var errorKindText = map[ErrorKind]string{
	ErrInvalidGUID:         "GUID is invalid",
	ErrInvalidPair:         "expected name:target pair",
	ErrInvalidValue:        "target is not valid",
	ErrUnknownName:         "unknown control name",
	ErrUnknownHatDirection: "hat direction is not 1, 2, 4 or 8",
	ErrDuplicateName:       "control name appears twice",
	ErrDisallowedName:      "control name not allowed in strict mode",
	ErrUnexpectedEnd:       "record does not have all required fields",
}

// ParseError reports a malformed mapping record, pointing at the offending
// token by byte offset into the line.
type ParseError struct {
	Kind  ErrorKind
	Pos   int
	Token string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%s at %d", errorKindText[e.Kind], e.Pos)
	}
	return fmt.Sprintf("%s at %d: %q", errorKindText[e.Kind], e.Pos, e.Token)
}

func parseErr(kind ErrorKind, pos int, token string) *ParseError {
	return &ParseError{Kind: kind, Pos: pos, Token: token}
}

// rangeHalf records the +/- qualifiers of half-axis targets. They are kept
// for serialization fidelity; resolution uses the full range.
type rangeHalf uint8

const (
	rangeFull rangeHalf = iota
	rangeUpper
	rangeLower
)

func (r rangeHalf) prefix() string {
	switch r {
	case rangeUpper:
		return "+"
	case rangeLower:
		return "-"
	}
	return ""
}

type entryKind uint8

const (
	entryButton entryKind = iota
	entryAxis
	entryHat
)

// entry is one name:target pair in parse order, preserved verbatim so a
// mapping can be serialized back to an equivalent record.
type entry struct {
	key       string
	outHalf   rangeHalf
	kind      entryKind
	index     uint16
	inHalf    rangeHalf
	inverted  bool
	hat       uint16
	direction uint16
}

func (e entry) String() string {
	var val string
	switch e.kind {
	case entryButton:
		val = "b" + strconv.Itoa(int(e.index))
	case entryAxis:
		val = e.inHalf.prefix() + "a" + strconv.Itoa(int(e.index))
		if e.inverted {
			val += "~"
		}
	case entryHat:
		val = fmt.Sprintf("h%d.%d", e.hat, e.direction)
	}
	return e.outHalf.prefix() + e.key + ":" + val
}

// semantic is the closed button-or-axis union a control name resolves to.
type semantic struct {
	isAxis bool
	btn    event.Button
	axis   event.Axis
}

func btnTarget(b event.Button) semantic { return semantic{btn: b} }
func axisTarget(a event.Axis) semantic  { return semantic{isAxis: true, axis: a} }

func (s semantic) isUnknown() bool {
	if s.isAxis {
		return s.axis == event.AxisUnknown
	}
	return s.btn == event.ButtonUnknown
}

// sdlNames resolves the community database's control identifiers. Names that
// have no portable equivalent (paddles, touchpad, misc) resolve to Unknown
// and are rejected in strict mode.
var sdlNames = map[string]semantic{
	"a":             btnTarget(event.ButtonSouth),
	"b":             btnTarget(event.ButtonEast),
	"x":             btnTarget(event.ButtonWest),
	"y":             btnTarget(event.ButtonNorth),
	"c":             btnTarget(event.ButtonC),
	"z":             btnTarget(event.ButtonZ),
	"back":          btnTarget(event.ButtonSelect),
	"start":         btnTarget(event.ButtonStart),
	"guide":         btnTarget(event.ButtonMode),
	"leftshoulder":  btnTarget(event.ButtonLeftTrigger),
	"rightshoulder": btnTarget(event.ButtonRightTrigger),
	"leftstick":     btnTarget(event.ButtonLeftThumb),
	"rightstick":    btnTarget(event.ButtonRightThumb),
	"dpup":          btnTarget(event.ButtonDPadUp),
	"dpdown":        btnTarget(event.ButtonDPadDown),
	"dpleft":        btnTarget(event.ButtonDPadLeft),
	"dpright":       btnTarget(event.ButtonDPadRight),
	"lefttrigger":   btnTarget(event.ButtonLeftTrigger2),
	"righttrigger":  btnTarget(event.ButtonRightTrigger2),
	"leftx":         axisTarget(event.AxisLeftStickX),
	"lefty":         axisTarget(event.AxisLeftStickY),
	"rightx":        axisTarget(event.AxisRightStickX),
	"righty":        axisTarget(event.AxisRightStickY),
	"leftz":         axisTarget(event.AxisLeftZ),
	"rightz":        axisTarget(event.AxisRightZ),
	"misc1":         btnTarget(event.ButtonUnknown),
	"paddle1":       btnTarget(event.ButtonUnknown),
	"paddle2":       btnTarget(event.ButtonUnknown),
	"paddle3":       btnTarget(event.ButtonUnknown),
	"paddle4":       btnTarget(event.ButtonUnknown),
	"touchpad":      btnTarget(event.ButtonUnknown),
}

// When a name appears as an axis target, triggers resolve to their axis
// variants instead of the digital buttons.
var axisOverrides = map[string]semantic{
	"lefttrigger":   axisTarget(event.AxisLeftTrigger2),
	"righttrigger":  axisTarget(event.AxisRightTrigger2),
	"leftshoulder":  axisTarget(event.AxisLeftTrigger),
	"rightshoulder": axisTarget(event.AxisRightTrigger),
}

// Parse parses one line of the community mapping format:
//
//	GUID,name,control:target,control:target,...
//
// The special GUID "xinput" resolves to the nil UUID. Targets are b<n> for
// buttons, a<n> with optional +/-/~ qualifiers for axes, and h<hat>.<dir>
// for hat switches. Pairs with an empty target are skipped, matching the
// tolerance the community database requires.
func Parse(line string) (*Mapping, error) {
	return parse(line, false)
}

// ParseStrict is Parse but rejects records that map controls to Unknown or
// to the LeftZ/RightZ axes, which are reported inconsistently across
// platforms.
func ParseStrict(line string) (*Mapping, error) {
	return parse(line, true)
}

func parse(line string, strict bool) (*Mapping, error) {
	line = strings.TrimRight(line, "\r\n")

	guidField, rest, ok := cutComma(line)
	if guidField == "" {
		return nil, parseErr(ErrInvalidGUID, 0, guidField)
	}
	var guid uuid.UUID
	if guidField != "xinput" {
		var err error
		if guid, err = uuid.Parse(guidField); err != nil {
			return nil, parseErr(ErrInvalidGUID, 0, guidField)
		}
	}
	if !ok {
		return nil, parseErr(ErrUnexpectedEnd, len(line), "")
	}

	pos := len(guidField) + 1
	name, rest, ok := cutComma(rest)
	if !ok {
		return nil, parseErr(ErrUnexpectedEnd, len(line), "")
	}
	pos += len(name) + 1

	m := newMapping(guid, name)
	seen := make(map[string]struct{})

	for rest != "" {
		pair, next, _ := cutComma(rest)
		pairPos := pos
		pos += len(pair) + 1
		rest = next

		if pair == "" {
			continue
		}
		if err := m.addPair(pair, pairPos, seen, strict); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func cutComma(s string) (head, tail string, found bool) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

func (m *Mapping) addPair(pair string, pos int, seen map[string]struct{}, strict bool) error {
	key, val, ok := strings.Cut(pair, ":")
	if !ok || key == "" {
		return parseErr(ErrInvalidPair, pos, pair)
	}
	if val == "" {
		// Tolerated: the community database contains stray empty targets.
		return nil
	}

	if key == "platform" {
		m.platform = val
		return nil
	}

	var e entry
	switch key[0] {
	case '+':
		e.outHalf = rangeUpper
		key = key[1:]
	case '-':
		e.outHalf = rangeLower
		key = key[1:]
	}
	e.key = key

	target, known := sdlNames[key]
	if !known {
		return parseErr(ErrUnknownName, pos, key)
	}
	if _, dup := seen[key]; dup {
		return parseErr(ErrDuplicateName, pos, key)
	}
	seen[key] = struct{}{}

	rest := val
	switch {
	case rest[0] == 'b':
		e.kind = entryButton
	case rest[0] == 'a', strings.HasPrefix(rest, "+a"), strings.HasPrefix(rest, "-a"):
		e.kind = entryAxis
		if rest[0] == '+' {
			e.inHalf = rangeUpper
			rest = rest[1:]
		} else if rest[0] == '-' {
			e.inHalf = rangeLower
			rest = rest[1:]
		}
		if strings.HasSuffix(rest, "~") {
			e.inverted = true
			rest = rest[:len(rest)-1]
		}
	case rest[0] == 'h':
		e.kind = entryHat
	default:
		return parseErr(ErrInvalidValue, pos, val)
	}

	if e.kind == entryHat {
		body := rest[1:]
		hatStr, dirStr, ok := strings.Cut(body, ".")
		if !ok {
			return parseErr(ErrInvalidValue, pos, val)
		}
		hat, err := strconv.ParseUint(hatStr, 10, 16)
		if err != nil {
			return parseErr(ErrInvalidValue, pos, val)
		}
		dir, err := strconv.ParseUint(dirStr, 10, 16)
		if err != nil {
			return parseErr(ErrInvalidValue, pos, val)
		}
		e.hat = uint16(hat)
		e.direction = uint16(dir)
	} else {
		idx, err := strconv.ParseUint(rest[1:], 10, 16)
		if err != nil {
			return parseErr(ErrInvalidValue, pos, val)
		}
		e.index = uint16(idx)
	}

	if e.kind == entryAxis {
		if override, ok := axisOverrides[key]; ok {
			target = override
		}
	}

	if strict {
		if target.isUnknown() {
			return parseErr(ErrDisallowedName, pos, key)
		}
		if target.isAxis && (target.axis == event.AxisLeftZ || target.axis == event.AxisRightZ) {
			return parseErr(ErrDisallowedName, pos, key)
		}
	}

	return m.addEntry(e, target, pos)
}
