package ff

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

// gainCutoff is the normalized magnitude below which a motor is treated as
// silent, so near-zero writes do not keep weak motors buzzing.
const gainCutoff = 0.05

// Target is the device surface the scheduler mixes into. The gamepad context
// implements it.
type Target interface {
	// IsConnected reports whether the gamepad currently has a device.
	IsConnected(id event.GamepadID) bool
	// SupportsFF reports whether the gamepad can rumble.
	SupportsFF(id event.GamepadID) bool
	// WriteFF submits motor magnitudes for one gamepad.
	WriteFF(id event.GamepadID, cmd backend.Command) error
}

// EffectID identifies an effect registered with a Scheduler.
type EffectID int

// Effect is a composite rumble source played on one or more gamepads.
type Effect struct {
	// Base holds the primitive sources mixed into this effect.
	Base []BaseEffect
	// Gamepads lists the targets. Every target must be connected and
	// FF-capable when the effect is added.
	Gamepads []event.GamepadID
	// Repeat bounds how many replay cycles run before the effect stops on
	// its own; zero repeats forever.
	Repeat uint32
}

// maxCycle is the longest base cycle, which paces Repeat accounting.
func (e Effect) maxCycle() Ticks {
	var max Ticks
	for _, b := range e.Base {
		if c := b.Replay.cycle(); c > max {
			max = c
		}
	}
	return max
}

type effectSlot struct {
	effect  Effect
	playing bool
	started time.Time
}

// Scheduler owns every registered effect and converts them into per-device
// motor writes. It has no thread of its own: the owner calls Update on its
// cadence, typically once per event drain.
type Scheduler struct {
	mu      sync.Mutex
	target  Target
	clock   clock.Clock
	logger  *zap.SugaredLogger
	gain    float32
	nextID  EffectID
	effects map[EffectID]*effectSlot
	last    map[event.GamepadID]backend.Command
}

// NewScheduler returns a scheduler writing into target. A nil logger
// disables logging.
func NewScheduler(target Target, c clock.Clock, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		target:  target,
		clock:   c,
		logger:  logger,
		gain:    1,
		effects: make(map[EffectID]*effectSlot),
		last:    make(map[event.GamepadID]backend.Command),
	}
}

// Add registers an effect. Every listed gamepad must be connected and
// support force feedback.
func (s *Scheduler) Add(e Effect) (EffectID, error) {
	if len(e.Gamepads) == 0 {
		return 0, errors.Wrap(backend.ErrInvalidID, "effect targets no gamepads")
	}
	for _, id := range e.Gamepads {
		if !s.target.IsConnected(id) {
			return 0, errors.Wrapf(backend.ErrDisconnected, "gamepad %d", id)
		}
		if !s.target.SupportsFF(id) {
			return 0, errors.Wrapf(backend.ErrNotSupported, "gamepad %d", id)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.effects[id] = &effectSlot{effect: e}
	return id, nil
}

// Play starts an effect from the beginning of its cycle.
func (s *Scheduler) Play(id EffectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.effects[id]
	if !ok {
		return errors.Wrapf(backend.ErrInvalidID, "effect %d", id)
	}
	connected := false
	for _, pad := range slot.effect.Gamepads {
		if s.target.IsConnected(pad) {
			connected = true
			break
		}
	}
	if !connected {
		return errors.Wrapf(backend.ErrDisconnected, "effect %d has no connected gamepad", id)
	}
	slot.playing = true
	slot.started = s.clock.Now()
	return nil
}

// Stop halts an effect; the next Update writes the resulting silence.
func (s *Scheduler) Stop(id EffectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.effects[id]
	if !ok {
		return errors.Wrapf(backend.ErrInvalidID, "effect %d", id)
	}
	slot.playing = false
	return nil
}

// Remove stops and unregisters an effect.
func (s *Scheduler) Remove(id EffectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.effects[id]; !ok {
		return errors.Wrapf(backend.ErrInvalidID, "effect %d", id)
	}
	delete(s.effects, id)
	return nil
}

// SetGain scales every write. Values are clamped to [0, 1].
func (s *Scheduler) SetGain(g float32) {
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	s.mu.Lock()
	s.gain = g
	s.mu.Unlock()
}

// Gain returns the current gain.
func (s *Scheduler) Gain() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}

// DropFor detaches a gamepad from every effect, used when its device
// disconnects. Effects left with no targets are removed.
func (s *Scheduler) DropFor(pad event.GamepadID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, slot := range s.effects {
		kept := slot.effect.Gamepads[:0]
		for _, g := range slot.effect.Gamepads {
			if g != pad {
				kept = append(kept, g)
			}
		}
		slot.effect.Gamepads = kept
		if len(kept) == 0 {
			delete(s.effects, id)
		}
	}
	delete(s.last, pad)
}

// Update mixes every playing effect and writes the per-device result.
// Writes are skipped while a device's mix is unchanged. Individual write
// failures are combined and returned; the remaining devices still get their
// update.
func (s *Scheduler) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	mix := make(map[event.GamepadID]Magnitude)

	for id, slot := range s.effects {
		if !slot.playing {
			continue
		}
		tick := Ticks(now.Sub(slot.started) / TickDuration)
		if r := slot.effect.Repeat; r != 0 {
			if cycle := slot.effect.maxCycle(); cycle == 0 || tick >= cycle*Ticks(r) {
				slot.playing = false
				s.logger.Debugw("effect finished", "effect", id)
				continue
			}
		}
		var m Magnitude
		for _, b := range slot.effect.Base {
			m = m.Add(b.at(tick))
		}
		for _, pad := range slot.effect.Gamepads {
			mix[pad] = mix[pad].Add(m)
		}
	}

	var errs error
	for pad, m := range mix {
		if !s.target.IsConnected(pad) {
			continue
		}
		cmd := s.applyGain(m)
		if s.last[pad] == cmd {
			continue
		}
		if err := s.target.WriteFF(pad, cmd); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "gamepad %d", pad))
			continue
		}
		s.last[pad] = cmd
	}

	// Devices that dropped out of the mix get an explicit stop.
	for pad, last := range s.last {
		if _, active := mix[pad]; active || last == (backend.Command{}) {
			continue
		}
		if !s.target.IsConnected(pad) {
			continue
		}
		if err := s.target.WriteFF(pad, backend.Command{}); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "gamepad %d", pad))
			continue
		}
		s.last[pad] = backend.Command{}
	}
	return errs
}

func (s *Scheduler) applyGain(m Magnitude) backend.Command {
	strong := float32(m.Strong) * s.gain
	weak := float32(m.Weak) * s.gain
	if strong/0xFFFF < gainCutoff {
		strong = 0
	}
	if weak/0xFFFF < gainCutoff {
		weak = 0
	}
	return backend.Command{Strong: uint16(strong), Weak: uint16(weak)}
}

// Rumble builds the common case: both motors at the given strengths for dur,
// once.
func Rumble(pads []event.GamepadID, strong, weak uint16, dur time.Duration) Effect {
	ticks := TicksFrom(dur)
	if ticks == 0 {
		ticks = 1
	}
	return Effect{
		Base: []BaseEffect{
			{Kind: Strong, Magnitude: strong, Replay: Replay{PlayFor: ticks}},
			{Kind: Weak, Magnitude: weak, Replay: Replay{PlayFor: ticks}},
		},
		Gamepads: pads,
		Repeat:   1,
	}
}
