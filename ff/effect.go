// Package ff implements force-feedback effects: time-sliced envelopes and
// replay windows composed into rumble commands, and a scheduler that mixes
// every playing effect into per-device motor magnitudes.
package ff

import "time"

// TickDuration is the scheduler's time slice. All effect timing is expressed
// in whole ticks.
const TickDuration = 50 * time.Millisecond

// Ticks measures effect time in scheduler slices.
type Ticks uint32

// TicksFrom converts a wall duration to ticks, truncating.
func TicksFrom(d time.Duration) Ticks {
	if d <= 0 {
		return 0
	}
	return Ticks(d / TickDuration)
}

// Duration converts ticks back to wall time.
func (t Ticks) Duration() time.Duration {
	return time.Duration(t) * TickDuration
}

// Magnitude is the instantaneous strength of the two conventional rumble
// motors.
type Magnitude struct {
	Strong uint16
	Weak   uint16
}

// Add sums two magnitudes, saturating at the motor maximum instead of
// wrapping.
func (m Magnitude) Add(o Magnitude) Magnitude {
	return Magnitude{
		Strong: satAdd(m.Strong, o.Strong),
		Weak:   satAdd(m.Weak, o.Weak),
	}
}

func satAdd(a, b uint16) uint16 {
	if s := a + b; s >= a {
		return s
	}
	return 0xFFFF
}

// Envelope shapes an effect's strength over its play window: a linear attack
// from AttackLevel to full, a sustain at full, then a linear fade to
// FadeLevel over the final FadeLength ticks.
type Envelope struct {
	AttackLength Ticks
	AttackLevel  float32
	FadeLength   Ticks
	FadeLevel    float32
}

// at returns the envelope gain for the given tick of a window dur ticks
// long. The zero Envelope is a constant 1.
func (e Envelope) at(tick, dur Ticks) float32 {
	if e.AttackLength != 0 && tick < e.AttackLength {
		return e.AttackLevel + float32(tick)*(1-e.AttackLevel)/float32(e.AttackLength)
	}
	if e.FadeLength != 0 && tick+e.FadeLength > dur {
		return 1 + float32(tick+e.FadeLength-dur)*(e.FadeLevel-1)/float32(e.FadeLength)
	}
	return 1
}

// Replay positions an effect's play window within its repeating cycle: After
// ticks of silence, PlayFor ticks of output, WithDelay ticks of trailing
// silence.
type Replay struct {
	After     Ticks
	PlayFor   Ticks
	WithDelay Ticks
}

// cycle is the full period of the window.
func (r Replay) cycle() Ticks {
	return r.After + r.PlayFor + r.WithDelay
}

// at maps an absolute tick since the effect started onto the play window,
// reporting whether the effect is audible and how far into the window it is.
func (r Replay) at(tick Ticks) (Ticks, bool) {
	cycle := r.cycle()
	if cycle == 0 {
		return 0, false
	}
	tick %= cycle
	if tick < r.After || tick >= r.After+r.PlayFor {
		return 0, false
	}
	return tick - r.After, true
}

// Kind selects which motor a base effect drives.
type Kind uint8

const (
	// Strong drives the low-frequency motor.
	Strong Kind = iota
	// Weak drives the high-frequency motor.
	Weak
)

// BaseEffect is one primitive rumble source: a single motor at a fixed
// magnitude, shaped by an envelope inside a replay window.
type BaseEffect struct {
	Kind      Kind
	Magnitude uint16
	Envelope  Envelope
	Replay    Replay
}

// at returns the effect's contribution at an absolute tick since start.
func (e BaseEffect) at(tick Ticks) Magnitude {
	local, playing := e.Replay.at(tick)
	if !playing {
		return Magnitude{}
	}
	v := float32(e.Magnitude) * e.Envelope.at(local, e.Replay.PlayFor)
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	switch e.Kind {
	case Strong:
		return Magnitude{Strong: uint16(v)}
	default:
		return Magnitude{Weak: uint16(v)}
	}
}
