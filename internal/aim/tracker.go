// Package aim maintains the world-space fly-to point steered by pointer input.
package aim

import (
	"flight-control/internal/geometry"
	"flight-control/internal/timeutil"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// Projector maps a world point to normalized viewport coordinates: x and y in [0, 1]
// when visible, z the depth in front of the viewer.
type Projector interface {
	WorldToViewport(p mgl64.Vec3) mgl64.Vec3
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(p mgl64.Vec3) mgl64.Vec3

func (f ProjectorFunc) WorldToViewport(p mgl64.Vec3) mgl64.Vec3 { return f(p) }

// Owner is the aircraft the aim point belongs to.
type Owner interface {
	Pose() geometry.Transform
}

type Config struct {
	// Aim is the initial aim transform. Nil means no aim transform is configured and
	// AimPosition falls back to the owner's forward axis.
	Aim       *geometry.Transform
	Distance  float64
	Owner     Owner
	Projector Projector
	Clock     timeutil.Clock
}

// Tracker owns the aim transform and its freeze (lock) state.
type Tracker struct {
	aim      geometry.Transform
	hasAim   bool
	distance float64

	owner     Owner
	projector Projector
	clock     timeutil.Clock
	log       zerolog.Logger

	frozen          bool
	frozenDir       mgl64.Vec3
	offScreen       bool
	lastLock        time.Time
	lastManualInput time.Time
}

func New(cfg Config, log zerolog.Logger) *Tracker {
	t := &Tracker{
		distance:  cfg.Distance,
		owner:     cfg.Owner,
		projector: cfg.Projector,
		clock:     cfg.Clock,
		log:       log.With().Str("component", "aim").Logger(),
	}
	if t.clock == nil {
		t.clock = timeutil.RealClock{}
	}
	if cfg.Aim != nil {
		t.aim = *cfg.Aim
		t.hasAim = true
	} else {
		t.log.Error().Msg("no aim transform configured, aim follows aircraft forward")
	}
	return t
}

// Rotate turns the aim transform by pointer deltas about the camera's world-space axes.
// Vertical input is inverted so that moving the pointer up raises the aim point.
func (t *Tracker) Rotate(dx, dy, sensitivity float64, camRight, camUp mgl64.Vec3) {
	if t.frozen || !t.hasAim {
		return
	}
	t.aim.RotateWorld(camRight, -dy*sensitivity)
	t.aim.RotateWorld(camUp, dx*sensitivity)
}

// Follow moves the aim transform origin, which rides on the camera rig.
func (t *Tracker) Follow(pos mgl64.Vec3) {
	t.aim.Position = pos
}

// SetFrozen locks or unlocks the aim point. Requests that do not change the state
// are ignored so the frozen direction is captured exactly once per lock.
func (t *Tracker) SetFrozen(frozen bool) {
	if frozen == t.frozen {
		return
	}
	if frozen {
		t.frozenDir = t.Forward()
		t.lastLock = t.clock.Now()
		t.offScreen = false
		t.frozen = true
		t.log.Debug().Time("at", t.lastLock).Msg("aim locked")
		return
	}

	// Evaluated while still frozen so the projection uses the frozen direction.
	lost := t.CheckOffScreen() || t.offScreen
	switch {
	case lost && t.lastManualInput.After(t.lastLock) && t.owner != nil:
		t.aim.SetForward(t.owner.Pose().Forward())
		t.log.Debug().Msg("aim unlocked off screen after manual input, snapped to aircraft forward")
	case t.hasAim && t.aim.Forward() != t.frozenDir:
		t.aim.SetForward(t.frozenDir)
	}
	t.frozen = false
	t.frozenDir = mgl64.Vec3{}
}

// Realign damps the aim orientation toward target at the given rate.
func (t *Tracker) Realign(target mgl64.Quat, rate, dt float64) {
	if !t.hasAim {
		return
	}
	t.aim.Rotation = geometry.Damp(t.aim.Rotation, target, rate, dt)
}

// NoteManualInput records that the operator just used a manual axis.
func (t *Tracker) NoteManualInput() {
	t.lastManualInput = t.clock.Now()
}

// AimPosition is the point the aircraft should fly toward.
func (t *Tracker) AimPosition() mgl64.Vec3 {
	if !t.hasAim {
		return t.ownerForward().Mul(t.distance)
	}
	dir := t.aim.Forward()
	if t.frozen {
		dir = t.frozenDir
	}
	return t.aim.Position.Add(dir.Mul(t.distance))
}

// CheckOffScreen reports whether the frozen aim point is outside the viewport or
// behind the viewer. It latches HasGoneOffScreenDuringLock. Always false when unlocked.
func (t *Tracker) CheckOffScreen() bool {
	if !t.frozen || t.projector == nil {
		return false
	}
	v := t.projector.WorldToViewport(t.AimPosition())
	if v.X() >= 0 && v.X() <= 1 && v.Y() >= 0 && v.Y() <= 1 && v.Z() > 0 {
		return false
	}
	if !t.offScreen {
		t.log.Debug().Msg("locked aim point left the viewport")
	}
	t.offScreen = true
	return true
}

func (t *Tracker) ownerForward() mgl64.Vec3 {
	if t.owner == nil {
		return geometry.Forward
	}
	return t.owner.Pose().Forward()
}

// Forward is the live aim direction (ignores the frozen direction).
func (t *Tracker) Forward() mgl64.Vec3 {
	if !t.hasAim {
		return t.ownerForward()
	}
	return t.aim.Forward()
}

func (t *Tracker) Transform() geometry.Transform    { return t.aim }
func (t *Tracker) Configured() bool                 { return t.hasAim }
func (t *Tracker) IsFrozen() bool                   { return t.frozen }
func (t *Tracker) HasGoneOffScreenDuringLock() bool { return t.offScreen }
func (t *Tracker) LastLockTime() time.Time          { return t.lastLock }
func (t *Tracker) LastManualInputTime() time.Time   { return t.lastManualInput }
