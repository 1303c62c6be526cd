package gamepad

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/config"
	"github.com/soar/padkit/event"
	"github.com/soar/padkit/ff"
	"github.com/soar/padkit/mapping"
)

// Analog readings crossing these fractions of full travel synthesize
// digital press and release edges. The hysteresis gap keeps a trigger
// resting near the boundary from chattering.
const (
	pressThreshold   = 0.75
	releaseThreshold = 0.65
)

// pollInterval paces NextEventBlocking between drains so filter ticks keep
// running while no hardware events arrive.
const pollInterval = 10 * time.Millisecond

// Context is the entry point: it owns the gamepad slots, the mapping
// database, the filter chain and the force-feedback scheduler, and turns the
// backend's raw stream into the unified event stream.
//
// Draining (NextEvent, NextEventBlocking) must stay on a single goroutine;
// every other method is safe to call concurrently.
type Context struct {
	logger  *zap.SugaredLogger
	backend backend.Backend
	db      *mapping.Database
	opts    config.Options
	clk     clock.Clock
	sched   *ff.Scheduler

	mu         sync.RWMutex
	pads       arena
	filters    []event.Filter
	pending    []event.Event
	counter    uint64
	streamDone bool

	// droppedFF collects gamepads whose effects must be detached. The
	// scheduler locks after the pad table, so drops are flushed only once
	// mu is released.
	droppedFF []event.GamepadID
}

// New builds a Context over the given backend. Devices already present are
// allocated immediately; their Connected events are the first ones drained.
// A nil logger disables logging.
func New(b backend.Backend, opts config.Options, logger *zap.SugaredLogger) *Context {
	return newWithClock(b, opts, logger, clock.New())
}

func newWithClock(b backend.Backend, opts config.Options, logger *zap.SugaredLogger, clk clock.Clock) *Context {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	db := mapping.NewDatabase(logger)
	db.LoadBundled()
	if opts.Mappings != "" {
		n := db.InsertAll(opts.Mappings, mapping.SourceEnv)
		logger.Infow("loaded mapping overrides", "records", n)
	}

	c := &Context{
		logger:  logger,
		backend: b,
		db:      db,
		opts:    opts,
		clk:     clk,
	}
	if opts.DefaultFilters {
		c.filters = append(c.filters,
			event.Jitter{Threshold: opts.JitterThreshold},
			event.Repeat{After: opts.RepeatAfter, Every: opts.RepeatEvery},
		)
	}
	c.sched = ff.NewScheduler(ffTarget{c}, clk, logger)

	c.mu.Lock()
	for _, sig := range b.Enumerate() {
		c.handleConnect(sig, clk.Now())
	}
	c.mu.Unlock()
	return c
}

// PushFilter appends a filter to the chain. Filters run in insertion order,
// after the stock ones.
func (c *Context) PushFilter(f event.Filter) {
	c.mu.Lock()
	c.filters = append(c.filters, f)
	c.mu.Unlock()
}

// NextEvent returns the next event without blocking. ok is false when the
// stream is momentarily empty; each empty drain advances the cycle counter,
// runs the filter ticks and lets force feedback progress.
func (c *Context) NextEvent() (event.Event, bool) {
	c.mu.Lock()
	ev, ok := c.drainLocked()
	drops := c.droppedFF
	c.droppedFF = nil
	c.mu.Unlock()
	for _, id := range drops {
		c.sched.DropFor(id)
	}
	if !ok {
		if err := c.sched.Update(); err != nil {
			c.logger.Debugw("force feedback update", "error", err)
		}
	}
	return ev, ok
}

// NextEventBlocking waits for the next event until ctx is done. Arriving
// backend events wake the consumer immediately; a timer keeps filter ticks
// and force feedback on cadence in between. Returns false once ctx is done
// or the backend stream has ended and drained dry.
func (c *Context) NextEventBlocking(ctx context.Context) (event.Event, bool) {
	for {
		if ev, ok := c.NextEvent(); ok {
			return ev, true
		}
		c.mu.RLock()
		done := c.streamDone
		c.mu.RUnlock()
		if done {
			return event.Event{}, false
		}
		t := c.clk.Timer(pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return event.Event{}, false
		case raw, ok := <-c.backend.Events():
			t.Stop()
			c.mu.Lock()
			if ok {
				c.processRaw(raw)
			} else {
				c.streamDone = true
			}
			c.mu.Unlock()
		case <-t.C:
		}
	}
}

func (c *Context) drainLocked() (event.Event, bool) {
	if ev, ok := c.popLocked(); ok {
		return ev, true
	}

	if !c.streamDone {
	poll:
		for {
			select {
			case raw, ok := <-c.backend.Events():
				if !ok {
					c.streamDone = true
					break poll
				}
				c.processRaw(raw)
			default:
				break poll
			}
		}
	}
	if ev, ok := c.popLocked(); ok {
		return ev, true
	}

	now := c.clk.Now()
	view := padView{&c.pads}
	for _, f := range c.filters {
		for _, ev := range f.Tick(now, view) {
			c.admit(ev)
		}
	}
	if ev, ok := c.popLocked(); ok {
		return ev, true
	}

	c.counter++
	return event.Event{}, false
}

func (c *Context) popLocked() (event.Event, bool) {
	if len(c.pending) == 0 {
		return event.Event{}, false
	}
	ev := c.pending[0]
	c.pending = c.pending[1:]
	return ev, true
}

// admit runs one produced event through the filter chain, applies it to the
// slot state when it survives, and queues it. Dropped events stay in the
// queue so consumers still observe them.
func (c *Context) admit(ev event.Event) {
	view := padView{&c.pads}
	for _, f := range c.filters {
		ev = f.FilterEvent(ev, view)
	}
	if !ev.IsDropped() {
		if pad := c.pads.byID(ev.ID); pad != nil {
			pad.state.Update(ev, c.counter)
		}
	}
	if len(c.pending) >= c.opts.QueueSize && c.opts.QueueSize > 0 {
		c.logger.Warnw("event queue full, dropping oldest", "size", c.opts.QueueSize)
		c.pending = c.pending[1:]
	}
	c.pending = append(c.pending, ev)
}

func (c *Context) processRaw(raw backend.RawEvent) {
	switch raw.Kind {
	case backend.RawConnected:
		c.handleConnect(raw.Signature, raw.Time)
		return
	case backend.RawDisconnected:
		c.handleDisconnect(raw.Signature, raw.Time)
		return
	}

	pad := c.pads.bySignature(raw.Signature)
	if pad == nil {
		c.logger.Debugw("event for unknown device", "device", raw.Signature.Name)
		return
	}

	switch raw.Kind {
	case backend.RawButtonPressed, backend.RawButtonReleased:
		c.processButton(pad, raw)
	case backend.RawButtonValue:
		c.processButtonValue(pad, raw)
	case backend.RawAxisValue:
		c.processAxis(pad, raw)
	}
}

func (c *Context) handleConnect(sig backend.DeviceSignature, t time.Time) {
	pad, reused := c.pads.acquire(sig)
	if reused {
		pad.state.Reset()
		pad.analogEdges = make(map[event.Code]bool)
	}
	pad.status = StatusConnected
	pad.ffCapable = c.backend.SupportsFF(sig)
	if m, ok := c.db.Lookup(sig.UUID); ok {
		pad.mapping = m
	} else {
		pad.mapping = nil
		c.logger.Infow("no mapping record for device", "device", sig.Name,
			"guid", backend.GUIDString(sig.UUID))
	}
	c.admit(event.NewConnected(pad.id, t))
}

func (c *Context) handleDisconnect(sig backend.DeviceSignature, t time.Time) {
	pad := c.pads.bySignature(sig)
	if pad == nil {
		return
	}
	pad.status = StatusDisconnected
	c.droppedFF = append(c.droppedFF, pad.id)
	c.admit(event.NewDisconnected(pad.id, t))
}

func (c *Context) processButton(pad *Gamepad, raw backend.RawEvent) {
	var btn event.Button
	var axis event.Axis
	if pad.mapping != nil {
		btn = pad.mapping.Button(raw.Code)
		axis = pad.mapping.AxisFromButton(raw.Code)
	}
	pressed := raw.Kind == backend.RawButtonPressed
	if pressed {
		c.admit(event.NewButtonPressed(pad.id, btn, raw.Code, raw.Time))
	} else {
		c.admit(event.NewButtonReleased(pad.id, btn, raw.Code, raw.Time))
	}
	// Digital sources can also drive a semantic axis ("leftx:b4").
	if axis != event.AxisUnknown {
		var v float32
		if pressed {
			v = 1
		}
		c.admit(event.NewAxisChanged(pad.id, axis, v, raw.Code, raw.Time))
	}
}

func (c *Context) processButtonValue(pad *Gamepad, raw backend.RawEvent) {
	var btn event.Button
	if pad.mapping != nil {
		btn = pad.mapping.Button(raw.Code)
	}
	info, ok := c.backend.AxisInfo(pad.sig, raw.Code)
	v := normalizeButtonValue(info, ok, raw.Value)
	c.admit(event.NewButtonChanged(pad.id, btn, v, raw.Code, raw.Time))
	c.syntheticEdge(pad, btn, raw.Code, v, raw.Time)
}

// syntheticEdge turns analog travel into digital press and release edges
// with hysteresis.
func (c *Context) syntheticEdge(pad *Gamepad, btn event.Button, code event.Code, v float32, t time.Time) {
	pressed := pad.analogEdges[code]
	switch {
	case v >= pressThreshold && !pressed:
		pad.analogEdges[code] = true
		c.admit(event.NewButtonPressed(pad.id, btn, code, t))
	case v <= releaseThreshold && pressed:
		pad.analogEdges[code] = false
		c.admit(event.NewButtonReleased(pad.id, btn, code, t))
	}
}

func (c *Context) processAxis(pad *Gamepad, raw backend.RawEvent) {
	if raw.Code >= backend.HatXCode(0) {
		c.processHat(pad, raw)
		return
	}

	var axis event.Axis
	var btn event.Button
	inverted := false
	if pad.mapping != nil {
		axis = pad.mapping.Axis(raw.Code)
		btn = pad.mapping.ButtonFromAxis(raw.Code)
		inverted = pad.mapping.Inverted(raw.Code)
	}

	info, haveInfo := c.backend.AxisInfo(pad.sig, raw.Code)
	v := normalizeAxis(info, haveInfo, raw.Value, axis.IsTrigger())
	if inverted {
		// Triggers flip within their unidirectional range.
		if axis.IsTrigger() {
			v = 1 - v
		} else {
			v = -v
		}
	}

	dz := c.opts.DefaultDeadzone
	if haveInfo && info.Deadzone != 0 {
		dz = info.Deadzone
	}

	paired, hasPair := axis.PairedAxis()
	switch {
	case axis.IsStick() && hasPair:
		y := pad.state.Value(paired)
		nx, ny := applyDeadzone(v, y, dz)
		c.admit(event.NewAxisChanged(pad.id, axis, nx, raw.Code, raw.Time))
		if pairCode, ok := pad.state.AxisCode(paired); ok && ny != y {
			c.admit(event.NewAxisChanged(pad.id, paired, ny, pairCode, raw.Time))
		}
	case axis != event.AxisUnknown:
		c.admit(event.NewAxisChanged(pad.id, axis, applyDeadzoneScalar(v, dz), raw.Code, raw.Time))
	default:
		// Unmapped axes carry the raw value through unscaled, so bespoke
		// consumers can special-case hardware the database misses.
		c.admit(event.NewAxisChanged(pad.id, axis, float32(raw.Value), raw.Code, raw.Time))
	}

	// Analog sources can also drive a semantic button ("lefttrigger:a2").
	if btn != event.ButtonUnknown {
		v01 := v
		if !axis.IsTrigger() {
			v01 = (v + 1) / 2
		}
		c.admit(event.NewButtonChanged(pad.id, btn, v01, raw.Code, raw.Time))
		c.syntheticEdge(pad, btn, raw.Code, v01, raw.Time)
	}
}

// processHat resolves hat movement into dpad button edges. The sign of the
// value picks the direction; zero releases whatever direction was held on
// that hat axis.
func (c *Context) processHat(pad *Gamepad, raw backend.RawEvent) {
	if raw.Value == 0 {
		if pad.state.IsPressedCode(raw.Code) {
			btn := pad.state.ButtonName(raw.Code)
			c.admit(event.NewButtonReleased(pad.id, btn, raw.Code, raw.Time))
		}
		return
	}
	var btn event.Button
	if pad.mapping != nil {
		btn = pad.mapping.HatButton(raw.Code, raw.Value > 0)
	}
	// Flipping straight across releases the opposite direction first.
	if pad.state.IsPressedCode(raw.Code) {
		if prev := pad.state.ButtonName(raw.Code); prev != btn {
			c.admit(event.NewButtonReleased(pad.id, prev, raw.Code, raw.Time))
		}
	}
	c.admit(event.NewButtonPressed(pad.id, btn, raw.Code, raw.Time))
}

// padView adapts the arena to event.StateView without locking; it is only
// handed to filters while the Context lock is held.
type padView struct {
	pads *arena
}

func (v padView) ConnectedIDs() []event.GamepadID { return v.pads.connectedIDs() }

func (v padView) State(id event.GamepadID) (*event.GamepadState, bool) {
	pad := v.pads.byID(id)
	if pad == nil {
		return nil, false
	}
	return pad.state, true
}

// Gamepad returns the slot for an ID, false when it was never allocated.
// The record's own state accessors are only safe on the draining goroutine;
// cross-goroutine reads go through IsPressed and Value, which synchronize
// against in-flight updates.
func (c *Context) Gamepad(id event.GamepadID) (*Gamepad, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pad := c.pads.byID(id)
	return pad, pad != nil
}

// IsPressed reports whether a semantic button is held on a gamepad. Safe to
// call from any goroutine; unknown IDs read as released.
func (c *Context) IsPressed(id event.GamepadID, btn event.Button) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pad := c.pads.byID(id)
	return pad != nil && pad.state.IsPressed(btn)
}

// Value returns the last normalized value of a semantic axis on a gamepad.
// Safe to call from any goroutine; unknown IDs read as zero.
func (c *Context) Value(id event.GamepadID, axis event.Axis) float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pad := c.pads.byID(id)
	if pad == nil {
		return 0
	}
	return pad.state.Value(axis)
}

// Gamepads lists every allocated slot ID, including disconnected ones whose
// snapshots are still queryable.
func (c *Context) Gamepads() []event.GamepadID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pads.allIDs()
}

// ConnectedGamepads lists the IDs of currently connected gamepads.
func (c *Context) ConnectedGamepads() []event.GamepadID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pads.connectedIDs()
}

// Counter returns the drain cycle counter used to stamp state changes.
func (c *Context) Counter() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

// AddMapping inserts a user-supplied mapping record and rebinds any
// connected gamepad the record matches.
func (c *Context) AddMapping(line string) error {
	if err := c.db.Insert(line, mapping.SourceUser); err != nil {
		return errors.Wrap(err, "adding mapping")
	}
	m, err := mapping.Parse(line)
	if err != nil {
		return errors.Wrap(err, "adding mapping")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pad := range c.pads.pads {
		if pad.sig.UUID == m.UUID() {
			if eff, ok := c.db.Lookup(pad.sig.UUID); ok {
				pad.mapping = eff
			}
		}
	}
	return nil
}

// Close shuts the backend down. Events already received can still be
// drained.
func (c *Context) Close() error {
	return c.backend.Close()
}

// AddEffect registers a force-feedback effect.
func (c *Context) AddEffect(e ff.Effect) (ff.EffectID, error) {
	return c.sched.Add(e)
}

// PlayEffect starts a registered effect.
func (c *Context) PlayEffect(id ff.EffectID) error { return c.sched.Play(id) }

// StopEffect halts a registered effect.
func (c *Context) StopEffect(id ff.EffectID) error { return c.sched.Stop(id) }

// RemoveEffect unregisters an effect.
func (c *Context) RemoveEffect(id ff.EffectID) error { return c.sched.Remove(id) }

// SetGain scales all force-feedback output, clamped to [0, 1].
func (c *Context) SetGain(g float32) { c.sched.SetGain(g) }

// Rumble is the convenience path: both motors on one gamepad for dur.
func (c *Context) Rumble(id event.GamepadID, strong, weak uint16, dur time.Duration) (ff.EffectID, error) {
	eff, err := c.AddEffect(ff.Rumble([]event.GamepadID{id}, strong, weak, dur))
	if err != nil {
		return 0, err
	}
	if err := c.sched.Play(eff); err != nil {
		return 0, err
	}
	return eff, nil
}

// ffTarget adapts the Context to the scheduler's device surface.
type ffTarget struct {
	c *Context
}

func (t ffTarget) IsConnected(id event.GamepadID) bool {
	t.c.mu.RLock()
	defer t.c.mu.RUnlock()
	pad := t.c.pads.byID(id)
	return pad != nil && pad.IsConnected()
}

func (t ffTarget) SupportsFF(id event.GamepadID) bool {
	t.c.mu.RLock()
	defer t.c.mu.RUnlock()
	pad := t.c.pads.byID(id)
	return pad != nil && pad.ffCapable
}

func (t ffTarget) WriteFF(id event.GamepadID, cmd backend.Command) error {
	t.c.mu.RLock()
	pad := t.c.pads.byID(id)
	if pad == nil || !pad.IsConnected() {
		t.c.mu.RUnlock()
		return errors.Wrapf(backend.ErrDisconnected, "gamepad %d", id)
	}
	sig := pad.sig
	t.c.mu.RUnlock()
	return t.c.backend.WriteFF(sig, cmd)
}
