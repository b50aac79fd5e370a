package control

import (
	"flight-control/internal/aim"
	"flight-control/internal/aircraft"
	"flight-control/internal/autopilot"
	"flight-control/internal/geometry"
	"flight-control/internal/timeutil"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type aimStub struct {
	frozen     bool
	offScreen  bool
	position   mgl64.Vec3
	lastLock   time.Time
	lastManual time.Time
}

func (s *aimStub) IsFrozen() bool                 { return s.frozen }
func (s *aimStub) CheckOffScreen() bool           { return s.offScreen }
func (s *aimStub) AimPosition() mgl64.Vec3        { return s.position }
func (s *aimStub) LastLockTime() time.Time        { return s.lastLock }
func (s *aimStub) LastManualInputTime() time.Time { return s.lastManual }

var (
	law  = autopilot.Law{Sensitivity: 5, AggressiveTurnAngle: 10}
	t0   = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	base = Config{Deadzone: DefaultDeadzone, ThrottleStep: DefaultThrottleStep, Sensitivity: [3]float64{1, 1, 1}}
)

func newArbiter(cfg Config) *Arbiter {
	return New(cfg, law, zerolog.Nop(), nil)
}

// aimRight places the aim point 45 degrees right of a level aircraft at the origin.
func aimRight() *aimStub {
	rad := mgl64.DegToRad(45)
	return &aimStub{position: mgl64.Vec3{math.Sin(rad), 0, math.Cos(rad)}.Mul(500)}
}

func TestParse(t *testing.T) {
	a, err := ParseAxis("Pitch")
	require.NoError(t, err)
	assert.Equal(t, Pitch, a)
	_, err = ParseAxis("throttle")
	assert.Error(t, err)

	p, err := ParsePhase("canceled")
	require.NoError(t, err)
	assert.Equal(t, Canceled, p)
	_, err = ParsePhase("performed")
	assert.Error(t, err)

	assert.Equal(t, "roll", Roll.String())
	assert.Equal(t, "changed", Changed.String())
}

func TestOverridePersistsUntilCanceled(t *testing.T) {
	for _, axis := range []Axis{Yaw, Pitch, Roll} {
		t.Run(axis.String(), func(t *testing.T) {
			a := newArbiter(base)

			assert.True(t, a.HandleAxis(AxisEvent{Axis: axis, Value: 0.2, Phase: Started}))
			assert.False(t, a.Override(axis).Active, "inside the deadzone")

			a.HandleAxis(AxisEvent{Axis: axis, Value: 0.26, Phase: Changed})
			assert.True(t, a.Override(axis).Active)

			a.HandleAxis(AxisEvent{Axis: axis, Value: 0, Phase: Changed})
			assert.True(t, a.Override(axis).Active, "decay below the deadzone keeps the override")
			assert.Equal(t, 0.0, a.Override(axis).Raw)

			assert.False(t, a.HandleAxis(AxisEvent{Axis: axis, Phase: Canceled}))
			assert.Equal(t, Override{}, a.Override(axis))
		})
	}
}

func TestDeadzoneIsExclusive(t *testing.T) {
	a := newArbiter(base)
	a.HandleAxis(AxisEvent{Axis: Yaw, Value: -0.25, Phase: Started})
	assert.False(t, a.Override(Yaw).Active)
	a.HandleAxis(AxisEvent{Axis: Yaw, Value: -0.2501, Phase: Changed})
	assert.True(t, a.Override(Yaw).Active)
}

func TestUnknownAxisIgnored(t *testing.T) {
	a := newArbiter(base)
	assert.False(t, a.HandleAxis(AxisEvent{Axis: Axis(7), Value: 1, Phase: Started}))
	assert.Equal(t, Override{}, a.Override(Axis(7)))
}

func TestStallForcesRecoveryAndAligns(t *testing.T) {
	a := newArbiter(base)
	a.HandleAxis(AxisEvent{Axis: Pitch, Value: -1, Phase: Started})

	var aligned []bool
	st := Stall{Active: true, Command: aircraft.StallCommand{Yaw: 0, Pitch: 1, Roll: 0.5}}
	cmd := a.Tick(geometry.NewTransform(mgl64.Vec3{}), st, aimRight(), func(force bool) {
		aligned = append(aligned, force)
	})

	assert.Equal(t, 0.0, cmd.Yaw)
	assert.Equal(t, 1.0, cmd.Pitch, "stall beats an active override")
	assert.Equal(t, 0.5, cmd.Roll)
	assert.Equal(t, [3]Source{SourceStall, SourceStall, SourceStall}, cmd.Sources)
	assert.Equal(t, []bool{true}, aligned)
}

func TestOverrideBeatsAutopilotPerAxis(t *testing.T) {
	a := newArbiter(Config{Deadzone: 0.25, Sensitivity: [3]float64{1, 0.5, 1}})
	a.HandleAxis(AxisEvent{Axis: Pitch, Value: 0.8, Phase: Started})

	cmd := a.Tick(geometry.NewTransform(mgl64.Vec3{}), Stall{}, aimRight(), nil)
	assert.Equal(t, 1.0, cmd.Yaw)
	assert.Equal(t, 0.4, cmd.Pitch)
	assert.Equal(t, 1.0, cmd.Roll)
	assert.Equal(t, [3]Source{SourceAutopilot, SourceOverride, SourceAutopilot}, cmd.Sources)
}

func TestOverrideIsClamped(t *testing.T) {
	a := newArbiter(Config{Deadzone: 0.25, Sensitivity: [3]float64{3, 1, 1}})
	a.HandleAxis(AxisEvent{Axis: Yaw, Value: -0.9, Phase: Started})
	cmd := a.Tick(geometry.NewTransform(mgl64.Vec3{}), Stall{}, nil, nil)
	assert.Equal(t, -1.0, cmd.Yaw)
}

func TestLockPolicySuppressesAutopilot(t *testing.T) {
	aim := aimRight()
	aim.frozen = true
	owner := geometry.NewTransform(mgl64.Vec3{})

	a := newArbiter(Config{Deadzone: 0.25, DisableAutopilotOnLock: true})
	cmd := a.Tick(owner, Stall{}, aim, nil)
	assert.Equal(t, 0.0, cmd.Yaw)
	assert.Equal(t, 0.0, cmd.Roll)
	assert.Equal(t, SourceNone, cmd.Sources[Yaw])

	// the same frozen aim without the policy still flies the law
	a = newArbiter(Config{Deadzone: 0.25})
	cmd = a.Tick(owner, Stall{}, aim, nil)
	assert.Equal(t, 1.0, cmd.Yaw)
}

type fixedOwner struct{ pose geometry.Transform }

func (o fixedOwner) Pose() geometry.Transform { return o.pose }

func TestLockPolicyStillLatchesOffScreen(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	owner := geometry.NewTransform(mgl64.Vec3{})
	onScreen := true
	aimT := geometry.NewTransform(mgl64.Vec3{})
	aimT.RotateWorld(geometry.Up, 30)
	tr := aim.New(aim.Config{
		Aim:      &aimT,
		Distance: 500,
		Owner:    fixedOwner{pose: owner},
		Projector: aim.ProjectorFunc(func(p mgl64.Vec3) mgl64.Vec3 {
			if onScreen {
				return mgl64.Vec3{0.5, 0.5, p.Len()}
			}
			return mgl64.Vec3{1.5, 0.5, p.Len()}
		}),
		Clock: clock,
	}, zerolog.Nop())

	a := newArbiter(Config{Deadzone: 0.25, DisableAutopilotOnLock: true})
	clock.Advance(time.Second)
	tr.SetFrozen(true)

	onScreen = false
	cmd := a.Tick(owner, Stall{}, tr, nil)
	assert.Equal(t, SourceNone, cmd.Sources[Yaw])
	assert.True(t, tr.HasGoneOffScreenDuringLock())

	// back in view before unlock; the excursion still counts
	onScreen = true
	a.Tick(owner, Stall{}, tr, nil)
	clock.Advance(time.Second)
	tr.NoteManualInput()
	tr.SetFrozen(false)

	assert.InDelta(t, 0, geometry.Angle(geometry.Forward, tr.Forward()), 1e-6)
}

func TestHoldOnSuppressKeepsLastCommand(t *testing.T) {
	aim := aimRight()
	owner := geometry.NewTransform(mgl64.Vec3{})
	a := newArbiter(Config{Deadzone: 0.25, DisableAutopilotOnLock: true, HoldOnSuppress: true})

	first := a.Tick(owner, Stall{}, aim, nil)
	require.Equal(t, 1.0, first.Yaw)

	aim.frozen = true
	aim.position = mgl64.Vec3{-500, 0, 0}
	held := a.Tick(owner, Stall{}, aim, nil)
	assert.Equal(t, first.Yaw, held.Yaw)
	assert.Equal(t, first.Roll, held.Roll)
	assert.Equal(t, SourceHold, held.Sources[Roll])
}

func TestOffScreenGating(t *testing.T) {
	owner := geometry.NewTransform(mgl64.Vec3{})

	t.Run("manual input before lock allows autopilot", func(t *testing.T) {
		aim := aimRight()
		aim.frozen, aim.offScreen = true, true
		aim.lastManual, aim.lastLock = t0, t0.Add(time.Second)
		cmd := newArbiter(base).Tick(owner, Stall{}, aim, nil)
		assert.Equal(t, SourceAutopilot, cmd.Sources[Yaw])
		assert.Equal(t, 1.0, cmd.Yaw)
	})

	t.Run("manual input after lock skips autopilot", func(t *testing.T) {
		aim := aimRight()
		aim.frozen, aim.offScreen = true, true
		aim.lastLock, aim.lastManual = t0, t0.Add(time.Second)
		cmd := newArbiter(base).Tick(owner, Stall{}, aim, nil)
		assert.Equal(t, SourceNone, cmd.Sources[Yaw])
		assert.Equal(t, 0.0, cmd.Yaw)
	})

	t.Run("equal timestamps skip autopilot", func(t *testing.T) {
		aim := aimRight()
		aim.frozen, aim.offScreen = true, true
		aim.lastLock, aim.lastManual = t0, t0
		cmd := newArbiter(base).Tick(owner, Stall{}, aim, nil)
		assert.Equal(t, 0.0, cmd.Yaw)
	})
}

func TestNoAimNeverRunsAutopilot(t *testing.T) {
	cmd := newArbiter(base).Tick(geometry.NewTransform(mgl64.Vec3{}), Stall{}, nil, nil)
	assert.Equal(t, Command{}, cmd)
}

func TestThrottleStepping(t *testing.T) {
	a := newArbiter(base)
	owner := geometry.NewTransform(mgl64.Vec3{})

	a.HandleThrottle(ThrottleEvent{Value: 1, Phase: Started})
	throttle := 0.0
	const n = 37
	for i := 0; i < n; i++ {
		throttle += a.Tick(owner, Stall{}, nil, nil).ThrottleDelta
	}
	assert.InDelta(t, 0.01*n, throttle, 1e-12)

	a.HandleThrottle(ThrottleEvent{Phase: Canceled})
	assert.Equal(t, 0.0, a.Tick(owner, Stall{}, nil, nil).ThrottleDelta)
}

func TestThrottleDirectionsAreExclusive(t *testing.T) {
	a := newArbiter(base)
	a.HandleThrottle(ThrottleEvent{Value: 1, Phase: Started})
	a.HandleThrottle(ThrottleEvent{Value: -1, Phase: Started})
	assert.Equal(t, -1, a.ThrottleDirection())

	cmd := a.Tick(geometry.NewTransform(mgl64.Vec3{}), Stall{}, nil, nil)
	assert.Equal(t, -DefaultThrottleStep, cmd.ThrottleDelta)

	a.HandleThrottle(ThrottleEvent{Value: 0, Phase: Changed})
	assert.Equal(t, 0, a.ThrottleDirection())
}

func TestThrottleIsNotClampedHere(t *testing.T) {
	a := newArbiter(Config{ThrottleStep: 0.5})
	a.HandleThrottle(ThrottleEvent{Value: 1, Phase: Started})
	throttle := 0.9
	throttle += a.Tick(geometry.NewTransform(mgl64.Vec3{}), Stall{}, nil, nil).ThrottleDelta
	assert.InDelta(t, 1.4, throttle, 1e-12)
}

func TestThrottleAppliesDuringStall(t *testing.T) {
	a := newArbiter(base)
	a.HandleThrottle(ThrottleEvent{Value: 1, Phase: Started})
	cmd := a.Tick(geometry.NewTransform(mgl64.Vec3{}), Stall{Active: true}, nil, nil)
	assert.Equal(t, DefaultThrottleStep, cmd.ThrottleDelta)
}
