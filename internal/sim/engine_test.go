package sim

import (
	"context"
	"flight-control/internal/aircraft"
	"flight-control/internal/autopilot"
	"flight-control/internal/camera"
	"flight-control/internal/control"
	"flight-control/internal/flight"
	"flight-control/internal/geometry"
	"flight-control/internal/timeutil"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedPeriod = 20 * time.Millisecond

func newController(clock timeutil.Clock) *flight.Controller {
	log := zerolog.Nop()
	ac := aircraft.New(mgl64.Vec3{0, 1000, 0}, aircraft.StallCommand{Pitch: 1})
	ac.Kinematics = aircraft.Kinematics{LocalVelocity: mgl64.Vec3{0, 0, 100}, Velocity: mgl64.Vec3{0, 0, 100}}
	aimT := geometry.NewTransform(mgl64.Vec3{})
	return flight.New(flight.Config{AimDistance: 500, PointerSensitivity: 3, UseFixed: true}, flight.Parts{
		Aircraft: ac,
		Aim:      &aimT,
		Rig:      camera.NewRig(camera.Config{TrackingRate: 5, SwapRate: 5}),
		Viewport: camera.Viewport{FieldOfView: 60, Aspect: 16.0 / 9.0, Near: 0.3, Far: 5000},
		Arbiter: control.New(control.Config{Deadzone: 0.25, ThrottleStep: 0.01},
			autopilot.Law{Sensitivity: 5, AggressiveTurnAngle: 10}, log, nil),
		Clock: clock,
	}, log)
}

// startEngine runs an engine on a mock clock and waits until its tickers exist.
func startEngine(t *testing.T) (*Engine, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	e := New(Config{OriginLat: 32.0853, OriginLon: 34.7818, FrameHz: 60, FixedHz: 50, Clock: clock},
		newController(clock), zerolog.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	_, err := e.GetState(context.Background())
	require.NoError(t, err)
	return e, clock
}

func state(t *testing.T, e *Engine) Telemetry {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	st, err := e.GetState(ctx)
	require.NoError(t, err)
	return st
}

// settle submits a flaps toggle behind any queued commands and waits until it lands,
// so everything submitted before it has been applied.
func settle(t *testing.T, e *Engine) {
	t.Helper()
	want := !state(t, e).Flaps
	e.Submit(ToggleCommand{At: time.Now(), Surface: SurfaceFlaps})
	require.Eventually(t, func() bool { return state(t, e).Flaps == want }, time.Second, time.Millisecond)
}

func TestInitialSnapshot(t *testing.T) {
	e, _ := startEngine(t)
	st := state(t, e)

	_, err := uuid.Parse(st.Session)
	require.NoError(t, err)
	assert.Equal(t, e.Session(), st.Session)
	assert.Equal(t, 1000.0, st.Altitude)
	assert.Equal(t, mgl64.Vec3{0, 1000, 500}, st.Boresight)
	assert.Equal(t, mgl64.Vec3{0, 1000, 500}, st.AimPosition)
	assert.InDelta(t, 32.0853, st.Lat, 1e-12)
	assert.InDelta(t, 34.7818, st.Lon, 1e-12)
	assert.Equal(t, 0.0, st.HeadingDeg)
	assert.InDelta(t, 100, st.Speed, 1e-12)
}

func TestToggleCommands(t *testing.T) {
	e, _ := startEngine(t)
	e.Submit(ToggleCommand{At: time.Now(), Surface: SurfaceAirBrake})
	require.Eventually(t, func() bool { return state(t, e).AirBrake }, time.Second, time.Millisecond)
	assert.False(t, state(t, e).Flaps)
}

func TestAircraftIngest(t *testing.T) {
	e, _ := startEngine(t)
	pose := geometry.NewTransform(mgl64.Vec3{100, 1500, 0})
	pose.RotateWorld(geometry.Up, 90)
	e.Submit(AircraftCommand{At: time.Now(), Pose: pose, Kinematics: aircraft.Kinematics{
		LocalVelocity: mgl64.Vec3{0, 0, 80},
		LocalGForce:   mgl64.Vec3{0, 1.5, 0},
		AngleOfAttack: 4,
		Velocity:      mgl64.Vec3{80, 0, 0},
	}})

	require.Eventually(t, func() bool { return state(t, e).Altitude == 1500 }, time.Second, time.Millisecond)
	st := state(t, e)
	assert.InDelta(t, 90, st.HeadingDeg, 1e-9)
	assert.Equal(t, 1.5, st.GForce)
	assert.Equal(t, 4.0, st.AoA)
	assert.Greater(t, st.Lon, 34.7818)
}

func TestFixedTickPublishesThrottle(t *testing.T) {
	e, clock := startEngine(t)
	sub, unsub := e.Subscribe(context.Background())
	defer unsub()
	<-sub // initial snapshot

	e.Submit(ThrottleCommand{At: time.Now(), Event: control.ThrottleEvent{Value: 1, Phase: control.Started}})
	settle(t, e)

	clock.Advance(fixedPeriod)
	select {
	case st := <-sub:
		assert.InDelta(t, 0.01, st.Throttle, 1e-12)
		assert.Equal(t, 1, st.ThrottleDirection)
		assert.Equal(t, clock.Now(), st.TS)
		assert.Equal(t, [3]string{"autopilot", "autopilot", "autopilot"}, st.Sources)
	case <-time.After(time.Second):
		t.Fatal("no telemetry after fixed tick")
	}
}

func TestPointerDeltasAccumulateUntilFrame(t *testing.T) {
	e, clock := startEngine(t)
	e.Submit(PointerCommand{At: time.Now(), DX: 10})
	e.Submit(PointerCommand{At: time.Now(), DX: 5})
	settle(t, e)
	assert.Equal(t, mgl64.Vec3{0, 1000, 500}, state(t, e).AimPosition, "aim waits for the frame phase")

	clock.Advance(fixedPeriod)
	require.Eventually(t, func() bool { return state(t, e).AimPosition.X() > 0 }, time.Second, time.Millisecond)
	aim := state(t, e).AimPosition.Sub(mgl64.Vec3{0, 1000, 0})
	assert.InDelta(t, 45, geometry.Angle(geometry.Forward, aim), 1e-6)
}

func TestFreezeCommand(t *testing.T) {
	e, _ := startEngine(t)
	e.Submit(FreezeCommand{At: time.Now(), Phase: control.Started})
	require.Eventually(t, func() bool { return state(t, e).AimFrozen }, time.Second, time.Millisecond)
	assert.False(t, state(t, e).LastLock.IsZero())

	e.Submit(FreezeCommand{At: time.Now(), Phase: control.Canceled})
	require.Eventually(t, func() bool { return !state(t, e).AimFrozen }, time.Second, time.Millisecond)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	e, _ := startEngine(t)
	sub, unsub := e.Subscribe(context.Background())
	<-sub
	unsub()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSubmitNeverBlocks(t *testing.T) {
	e := New(Config{}, newController(nil), zerolog.Nop(), nil)
	for i := 0; i < 200; i++ {
		e.Submit(PointerCommand{DX: 1})
	}
	assert.Equal(t, int64(200-128), e.Dropped())
}

func TestGetStateHonoursContext(t *testing.T) {
	e := New(Config{}, newController(nil), zerolog.Nop(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.GetState(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
