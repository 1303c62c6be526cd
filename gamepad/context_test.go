package gamepad

import (
	ctx "context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/backend/fake"
	"github.com/soar/padkit/config"
	"github.com/soar/padkit/event"
)

// rawOpts disables the stock filters and deadzone so values pass through
// untouched.
func rawOpts() config.Options {
	opts := config.Default()
	opts.DefaultFilters = false
	opts.DefaultDeadzone = 0
	return opts
}

type testRig struct {
	backend *fake.Backend
	clock   *clock.Mock
	ctx     *Context
}

func newRig(t *testing.T, opts config.Options) *testRig {
	t.Helper()
	mock := clock.NewMock()
	b := fake.New(64).WithClock(mock)
	c := newWithClock(b, opts, zaptest.NewLogger(t).Sugar(), mock)
	t.Cleanup(func() { test.That(t, c.Close(), test.ShouldBeNil) })
	return &testRig{backend: b, clock: mock, ctx: c}
}

// mappedSig registers a user mapping for a fresh fake signature and returns
// the signature.
func (r *testRig) mappedSig(t *testing.T, seed uint16, pairs string) backend.DeviceSignature {
	t.Helper()
	sig := fake.Signature(seed, "Test Pad")
	line := backend.GUIDString(sig.UUID) + ",Test Pad," + pairs
	test.That(t, r.ctx.AddMapping(line), test.ShouldBeNil)
	return sig
}

// drain pulls every queued event, failing the test when more than limit
// arrive.
func (r *testRig) drain(t *testing.T) []event.Event {
	t.Helper()
	var out []event.Event
	for i := 0; i < 100; i++ {
		ev, ok := r.ctx.NextEvent()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
	t.Fatal("event stream did not drain")
	return nil
}

func (r *testRig) connect(t *testing.T, sig backend.DeviceSignature) event.GamepadID {
	t.Helper()
	r.backend.Connect(sig)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindConnected)
	return evs[0].ID
}

func TestEnumeratedDevicesConnectFirst(t *testing.T) {
	mock := clock.NewMock()
	b := fake.New(64).WithClock(mock)
	sig := fake.Signature(0x10, "Plugged Pad")
	b.AddPresent(sig)

	c := newWithClock(b, rawOpts(), zaptest.NewLogger(t).Sugar(), mock)
	defer func() { test.That(t, c.Close(), test.ShouldBeNil) }()

	ev, ok := c.NextEvent()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ev.Kind, test.ShouldEqual, event.KindConnected)
	test.That(t, ev.ID, test.ShouldEqual, event.GamepadID(0))

	pad, ok := c.Gamepad(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pad.Name(), test.ShouldEqual, "Plugged Pad")
	test.That(t, pad.IsConnected(), test.ShouldBeTrue)
	test.That(t, c.ConnectedGamepads(), test.ShouldResemble, []event.GamepadID{0})
}

func TestMappedButtonAndAxis(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x20, "a:b0,leftx:a0,")
	r.backend.SetAxisInfo(sig, 0, backend.AxisInfo{Min: -32768, Max: 32767})
	id := r.connect(t, sig)

	r.backend.SendButton(sig, 0, true)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonPressed)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonSouth)
	test.That(t, evs[0].Code, test.ShouldEqual, event.Code(0))

	r.backend.SendAxis(sig, 0, 16384)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindAxisChanged)
	test.That(t, evs[0].Axis, test.ShouldEqual, event.AxisLeftStickX)
	test.That(t, float64(evs[0].Value), test.ShouldAlmostEqual, 0.5, 0.001)

	pad, _ := r.ctx.Gamepad(id)
	test.That(t, pad.IsPressed(event.ButtonSouth), test.ShouldBeTrue)
	test.That(t, float64(pad.Value(event.AxisLeftStickX)), test.ShouldAlmostEqual, 0.5, 0.001)

	// The synchronized query surface sees the same state.
	test.That(t, r.ctx.IsPressed(id, event.ButtonSouth), test.ShouldBeTrue)
	test.That(t, float64(r.ctx.Value(id, event.AxisLeftStickX)), test.ShouldAlmostEqual, 0.5, 0.001)
	test.That(t, r.ctx.IsPressed(99, event.ButtonSouth), test.ShouldBeFalse)
	test.That(t, r.ctx.Value(99, event.AxisLeftStickX), test.ShouldEqual, float32(0))
}

func TestUnmappedDeviceEmitsUnknown(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0x30, "Mystery Pad")
	r.connect(t, sig)

	r.backend.SendButton(sig, 7, true)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonUnknown)
	test.That(t, evs[0].Code, test.ShouldEqual, event.Code(7))
}

func TestUnmappedAxisPassesRawValue(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0x34, "Mystery Pad")
	r.connect(t, sig)

	r.backend.SendAxis(sig, 9, 5)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindAxisChanged)
	test.That(t, evs[0].Axis, test.ShouldEqual, event.AxisUnknown)
	test.That(t, evs[0].Code, test.ShouldEqual, event.Code(9))
	test.That(t, evs[0].Value, test.ShouldEqual, float32(5))
}

func TestReconnectReusesIDAndResetsState(t *testing.T) {
	r := newRig(t, rawOpts())
	sigA := r.mappedSig(t, 0x40, "a:b0,")
	sigB := fake.Signature(0x50, "Other Pad")

	idA := r.connect(t, sigA)
	idB := r.connect(t, sigB)
	test.That(t, idA, test.ShouldEqual, event.GamepadID(0))
	test.That(t, idB, test.ShouldEqual, event.GamepadID(1))

	r.backend.SendButton(sigA, 0, true)
	r.drain(t)
	pad, _ := r.ctx.Gamepad(idA)
	test.That(t, pad.IsPressed(event.ButtonSouth), test.ShouldBeTrue)

	r.backend.Disconnect(sigA)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindDisconnected)
	test.That(t, evs[0].ID, test.ShouldEqual, idA)

	// The snapshot survives the disconnect and the slot stays listed.
	test.That(t, pad.IsPressed(event.ButtonSouth), test.ShouldBeTrue)
	test.That(t, pad.IsConnected(), test.ShouldBeFalse)
	test.That(t, r.ctx.ConnectedGamepads(), test.ShouldResemble, []event.GamepadID{idB})
	test.That(t, r.ctx.Gamepads(), test.ShouldResemble, []event.GamepadID{idA, idB})

	// The same device gets its old ID back with a fresh state.
	reID := r.connect(t, sigA)
	test.That(t, reID, test.ShouldEqual, idA)
	test.That(t, pad.IsPressed(event.ButtonSouth), test.ShouldBeFalse)
	test.That(t, pad.IsConnected(), test.ShouldBeTrue)
}

func TestTriggerAxisRange(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x60, "righttrigger:a5,")
	r.backend.SetAxisInfo(sig, 5, backend.AxisInfo{Min: 0, Max: 255})
	r.connect(t, sig)

	r.backend.SendAxis(sig, 5, 255)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Axis, test.ShouldEqual, event.AxisRightTrigger2)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(1))

	r.backend.SendAxis(sig, 5, 0)
	evs = r.drain(t)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(0))
}

func TestInvertedAxis(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x68, "lefty:a1~,")
	r.backend.SetAxisInfo(sig, 1, backend.AxisInfo{Min: -32768, Max: 32767})
	r.connect(t, sig)

	r.backend.SendAxis(sig, 1, 16384)
	evs := r.drain(t)
	test.That(t, float64(evs[0].Value), test.ShouldAlmostEqual, -0.5, 0.001)
}

func TestInvertedTriggerAxis(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x6C, "righttrigger:a5~,")
	r.backend.SetAxisInfo(sig, 5, backend.AxisInfo{Min: 0, Max: 255})
	r.connect(t, sig)

	// Inversion stays within the trigger's unidirectional range.
	r.backend.SendAxis(sig, 5, 255)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Axis, test.ShouldEqual, event.AxisRightTrigger2)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(0))

	r.backend.SendAxis(sig, 5, 0)
	evs = r.drain(t)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(1))
}

func TestRadialDeadzone(t *testing.T) {
	opts := rawOpts()
	opts.DefaultDeadzone = 0.2
	r := newRig(t, opts)
	sig := r.mappedSig(t, 0x70, "leftx:a0,lefty:a1,")
	info := backend.AxisInfo{Min: -32768, Max: 32767}
	r.backend.SetAxisInfo(sig, 0, info)
	r.backend.SetAxisInfo(sig, 1, info)
	r.connect(t, sig)

	// Inside the deadzone collapses to zero.
	r.backend.SendAxis(sig, 0, 3277) // ~0.1
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(0))

	// Outside, the value is remapped from the deadzone edge.
	r.backend.SendAxis(sig, 0, 19661) // ~0.6
	evs = r.drain(t)
	test.That(t, float64(evs[0].Value), test.ShouldAlmostEqual, 0.5, 0.001)
}

func TestPairedAxisZeroing(t *testing.T) {
	opts := rawOpts()
	opts.DefaultDeadzone = 0.2
	r := newRig(t, opts)
	sig := r.mappedSig(t, 0x78, "leftx:a0,lefty:a1,")
	info := backend.AxisInfo{Min: -32768, Max: 32767}
	r.backend.SetAxisInfo(sig, 0, info)
	r.backend.SetAxisInfo(sig, 1, info)
	r.connect(t, sig)

	// Deflect Y past the deadzone so the stick has a remembered offset.
	r.backend.SendAxis(sig, 1, 9830) // ~0.3 raw, ~0.125 after remap
	r.drain(t)
	pad, _ := r.ctx.Gamepad(0)
	test.That(t, pad.Value(event.AxisLeftStickY), test.ShouldBeGreaterThan, float32(0))

	// A small X move pulls the whole stick inside the deadzone, so Y is
	// zeroed with its own event.
	r.backend.SendAxis(sig, 0, 3277) // ~0.1
	evs := r.drain(t)
	test.That(t, len(evs), test.ShouldEqual, 2)
	test.That(t, evs[0].Axis, test.ShouldEqual, event.AxisLeftStickX)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(0))
	test.That(t, evs[1].Axis, test.ShouldEqual, event.AxisLeftStickY)
	test.That(t, evs[1].Value, test.ShouldEqual, float32(0))
	test.That(t, pad.Value(event.AxisLeftStickY), test.ShouldEqual, float32(0))
}

func TestHatResolvesToDPad(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x80, "dpup:h0.1,dpdown:h0.4,dpleft:h0.8,dpright:h0.2,")
	r.connect(t, sig)

	yCode := backend.HatYCode(0)
	r.backend.SendAxis(sig, yCode, -1)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonPressed)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonDPadUp)

	// Flipping to the opposite direction releases the held one first.
	r.backend.SendAxis(sig, yCode, 1)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 2)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonReleased)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonDPadUp)
	test.That(t, evs[1].Kind, test.ShouldEqual, event.KindButtonPressed)
	test.That(t, evs[1].Button, test.ShouldEqual, event.ButtonDPadDown)

	r.backend.SendAxis(sig, yCode, 0)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonReleased)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonDPadDown)
}

func TestAnalogButtonEdges(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x90, "a:a2,")
	r.backend.SetAxisInfo(sig, 2, backend.AxisInfo{Min: 0, Max: 255})
	r.connect(t, sig)

	r.backend.SendAxis(sig, 2, 255)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 3)
	test.That(t, evs[1].Kind, test.ShouldEqual, event.KindButtonChanged)
	test.That(t, evs[1].Button, test.ShouldEqual, event.ButtonSouth)
	test.That(t, evs[1].Value, test.ShouldEqual, float32(1))
	test.That(t, evs[2].Kind, test.ShouldEqual, event.KindButtonPressed)
	test.That(t, evs[2].Button, test.ShouldEqual, event.ButtonSouth)

	// Releasing crosses the lower threshold.
	r.backend.SendAxis(sig, 2, 0)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 3)
	test.That(t, evs[2].Kind, test.ShouldEqual, event.KindButtonReleased)
}

func TestAnalogButtonValueEvents(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := r.mappedSig(t, 0x98, "a:b3,")
	r.backend.SetAxisInfo(sig, 3, backend.AxisInfo{Min: 0, Max: 255})
	r.connect(t, sig)

	r.backend.SendButtonValue(sig, 3, 255)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 2)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonChanged)
	test.That(t, evs[0].Value, test.ShouldEqual, float32(1))
	test.That(t, evs[1].Kind, test.ShouldEqual, event.KindButtonPressed)

	// Small travel changes the value without re-pressing.
	r.backend.SendButtonValue(sig, 3, 200)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonChanged)
}

func TestJitterFilterInPipeline(t *testing.T) {
	opts := config.Default()
	opts.DefaultDeadzone = 0
	r := newRig(t, opts)
	sig := r.mappedSig(t, 0xA0, "leftx:a0,")
	r.backend.SetAxisInfo(sig, 0, backend.AxisInfo{Min: -32768, Max: 32767})
	r.connect(t, sig)

	r.backend.SendAxis(sig, 0, 16384)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindAxisChanged)

	// A sub-threshold wiggle still arrives, rewritten to Dropped.
	r.backend.SendAxis(sig, 0, 16500)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].IsDropped(), test.ShouldBeTrue)

	pad, _ := r.ctx.Gamepad(0)
	test.That(t, float64(pad.Value(event.AxisLeftStickX)), test.ShouldAlmostEqual, 0.5, 0.001)
}

func TestRepeatSynthesizedWhileHeld(t *testing.T) {
	opts := config.Default()
	r := newRig(t, opts)
	sig := r.mappedSig(t, 0xB0, "a:b0,")
	r.connect(t, sig)

	r.backend.SendButton(sig, 0, true)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].Kind, test.ShouldEqual, event.KindButtonPressed)
	pressedAt := evs[0].Time

	// Nothing before the initial delay.
	r.clock.Add(400 * time.Millisecond)
	test.That(t, r.drain(t), test.ShouldBeEmpty)

	// Draining at +600ms catches up every due repeat: the initial one at
	// +500ms and the 30ms cadence after it.
	r.clock.Add(200 * time.Millisecond)
	evs = r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 4)
	for i, ev := range evs {
		test.That(t, ev.Kind, test.ShouldEqual, event.KindButtonRepeated)
		test.That(t, ev.Button, test.ShouldEqual, event.ButtonSouth)
		due := opts.RepeatAfter + time.Duration(i)*opts.RepeatEvery
		test.That(t, ev.Time, test.ShouldEqual, pressedAt.Add(due))
	}

	// Releasing stops the cadence.
	r.backend.SendButton(sig, 0, false)
	r.drain(t)
	r.clock.Add(time.Second)
	test.That(t, r.drain(t), test.ShouldBeEmpty)
}

func TestCustomFilter(t *testing.T) {
	r := newRig(t, rawOpts())
	r.ctx.PushFilter(event.DropUnknown{})
	sig := fake.Signature(0xC0, "Mystery Pad")
	r.connect(t, sig)

	r.backend.SendButton(sig, 9, true)
	evs := r.drain(t)
	test.That(t, evs, test.ShouldHaveLength, 1)
	test.That(t, evs[0].IsDropped(), test.ShouldBeTrue)
}

func TestAddMappingRebindsConnected(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0xD0, "Late Pad")
	r.connect(t, sig)

	r.backend.SendButton(sig, 0, true)
	evs := r.drain(t)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonUnknown)
	r.backend.SendButton(sig, 0, false)
	r.drain(t)

	line := backend.GUIDString(sig.UUID) + ",Late Pad,a:b0,"
	test.That(t, r.ctx.AddMapping(line), test.ShouldBeNil)

	r.backend.SendButton(sig, 0, true)
	evs = r.drain(t)
	test.That(t, evs[0].Button, test.ShouldEqual, event.ButtonSouth)

	pad, _ := r.ctx.Gamepad(0)
	test.That(t, pad.Name(), test.ShouldEqual, "Late Pad")
}

func TestAddMappingRejectsBadRecord(t *testing.T) {
	r := newRig(t, rawOpts())
	err := r.ctx.AddMapping("not a record")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCounterAdvancesOnEmptyDrains(t *testing.T) {
	r := newRig(t, rawOpts())
	start := r.ctx.Counter()
	r.drain(t)
	r.drain(t)
	test.That(t, r.ctx.Counter(), test.ShouldEqual, start+2)
}

func TestNextEventBlocking(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0xE0, "Pad")
	r.backend.Connect(sig)

	ev, ok := r.ctx.NextEventBlocking(ctx.Background())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ev.Kind, test.ShouldEqual, event.KindConnected)

	cancelled, cancel := ctx.WithCancel(ctx.Background())
	cancel()
	_, ok = r.ctx.NextEventBlocking(cancelled)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNextEventBlockingWakesOnBackendEvent(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0xE8, "Pad")

	// The mock clock never advances, so only the arriving backend event can
	// wake the consumer.
	go func() {
		time.Sleep(20 * time.Millisecond)
		r.backend.Connect(sig)
	}()
	ev, ok := r.ctx.NextEventBlocking(ctx.Background())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ev.Kind, test.ShouldEqual, event.KindConnected)
}

func TestNextEventBlockingEndsWithStream(t *testing.T) {
	r := newRig(t, rawOpts())
	test.That(t, r.ctx.Close(), test.ShouldBeNil)
	_, ok := r.ctx.NextEventBlocking(ctx.Background())
	test.That(t, ok, test.ShouldBeFalse)
}

func TestRumbleWritesThroughBackend(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0xF0, "Rumble Pad")
	id := r.connect(t, sig)

	effID, err := r.ctx.Rumble(id, 0x8000, 0x4000, time.Second)
	test.That(t, err, test.ShouldBeNil)

	// Force feedback progresses on empty drains.
	r.drain(t)
	writes := r.backend.Writes()
	test.That(t, writes, test.ShouldHaveLength, 1)
	test.That(t, writes[0].Sig, test.ShouldResemble, sig)
	test.That(t, writes[0].Cmd, test.ShouldResemble, backend.Command{Strong: 0x8000, Weak: 0x4000})

	test.That(t, r.ctx.StopEffect(effID), test.ShouldBeNil)
	r.drain(t)
	writes = r.backend.Writes()
	test.That(t, writes[len(writes)-1].Cmd, test.ShouldResemble, backend.Command{})
}

func TestRumbleRequiresCapableDevice(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0xF8, "Stiff Pad")
	r.backend.SetNoFF(sig)
	id := r.connect(t, sig)

	_, err := r.ctx.Rumble(id, 1, 1, time.Second)
	test.That(t, errors.Is(err, backend.ErrNotSupported), test.ShouldBeTrue)

	_, err = r.ctx.Rumble(99, 1, 1, time.Second)
	test.That(t, errors.Is(err, backend.ErrDisconnected), test.ShouldBeTrue)
}

func TestDisconnectDropsEffects(t *testing.T) {
	r := newRig(t, rawOpts())
	sig := fake.Signature(0x100, "Rumble Pad")
	id := r.connect(t, sig)

	effID, err := r.ctx.Rumble(id, 0x8000, 0, 10*time.Second)
	test.That(t, err, test.ShouldBeNil)

	r.backend.Disconnect(sig)
	r.drain(t)
	test.That(t, errors.Is(r.ctx.PlayEffect(effID), backend.ErrInvalidID), test.ShouldBeTrue)
}
