// Package flight composes aim tracking, the camera rig, stall detection and control
// arbitration into the two per-tick phases that drive one aircraft.
package flight

import (
	"flight-control/internal/aim"
	"flight-control/internal/aircraft"
	"flight-control/internal/camera"
	"flight-control/internal/control"
	"flight-control/internal/geometry"
	"flight-control/internal/metrics"
	"flight-control/internal/stall"
	"flight-control/internal/timeutil"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

type Config struct {
	AimDistance        float64
	PointerSensitivity float64
	// SwapRate realigns the aim during a stall when no camera rig is assigned; a rig
	// uses its own swap rate.
	SwapRate float64
	// UseFixed follows the aircraft in the fixed phase instead of the frame phase.
	UseFixed bool
}

// Parts are the collaborators of a Controller. Aircraft, Aim and Rig are optional;
// a missing one is reported once by New and its behavior degrades to a fallback.
type Parts struct {
	Aircraft *aircraft.Aircraft
	// Aim is the initial aim transform.
	Aim      *geometry.Transform
	Rig      *camera.Rig
	Viewport camera.Viewport
	Stall    *stall.Detector
	Arbiter  *control.Arbiter
	Clock    timeutil.Clock
	Metrics  *metrics.Instruments
}

type Controller struct {
	cfg      Config
	aircraft *aircraft.Aircraft
	aim      *aim.Tracker
	rig      *camera.Rig
	viewport camera.Viewport
	stall    *stall.Detector
	arbiter  *control.Arbiter
	metrics  *metrics.Instruments
	log      zerolog.Logger

	last control.Command
}

func New(cfg Config, p Parts, log zerolog.Logger) *Controller {
	l := log.With().Str("component", "flight").Logger()
	c := &Controller{
		cfg:      cfg,
		aircraft: p.Aircraft,
		rig:      p.Rig,
		viewport: p.Viewport,
		stall:    p.Stall,
		arbiter:  p.Arbiter,
		metrics:  p.Metrics,
		log:      l,
	}

	if c.aircraft == nil {
		l.Error().Msg("no aircraft assigned, control phases are disabled")
	}
	if c.rig == nil {
		l.Error().Msg("no camera rig assigned, camera updates are skipped")
	}
	if c.arbiter == nil {
		l.Error().Msg("no control arbiter assigned, commands are not produced")
	}

	ac := aim.Config{
		Aim:      p.Aim,
		Distance: cfg.AimDistance,
		Clock:    p.Clock,
	}
	if c.aircraft != nil {
		ac.Owner = c.aircraft
	}
	if c.rig != nil {
		ac.Projector = aim.ProjectorFunc(c.project)
	}
	c.aim = aim.New(ac, log)

	if c.aircraft != nil && c.rig != nil {
		c.rig.Reset(c.aircraft.Pose())
		c.aim.Follow(c.aircraft.Transform.Position)
	}
	return c
}

func (c *Controller) project(p mgl64.Vec3) mgl64.Vec3 {
	return c.viewport.WorldToViewport(c.rig.Camera(), p)
}

// Frame runs the variable-rate phase: follow (unless fixed), pointer aim, camera.
func (c *Controller) Frame(dt, dx, dy float64) {
	c.metrics.Tick("frame")
	if !c.cfg.UseFixed {
		c.follow()
	}
	if c.rig == nil || !c.aim.Configured() {
		return
	}
	cam := c.rig.Camera()
	c.aim.Rotate(dx, dy, c.cfg.PointerSensitivity, cam.Right(), cam.Up())
	c.rig.RotateToward(c.aim.Forward(), dt)
}

// Fixed runs the physics-aligned phase: follow (if fixed), stall detection, arbitration.
func (c *Controller) Fixed(dt float64) {
	c.metrics.Tick("fixed")
	if c.cfg.UseFixed {
		c.follow()
	}
	if c.aircraft == nil || c.arbiter == nil {
		return
	}

	if c.stall != nil {
		c.aircraft.IsInStall = c.stall.Evaluate(c.aircraft.Pose(), c.aircraft.Kinematics)
	}

	st := control.Stall{Active: c.aircraft.IsInStall, Command: c.aircraft.Stall}
	cmd := c.arbiter.Tick(c.aircraft.Pose(), st, c.aim, func(forceCamera bool) {
		c.ForceAlign(dt, forceCamera)
	})

	c.aircraft.Yaw = cmd.Yaw
	c.aircraft.Pitch = cmd.Pitch
	c.aircraft.Roll = cmd.Roll
	c.aircraft.Throttle += cmd.ThrottleDelta
	c.last = cmd
}

func (c *Controller) follow() {
	if c.aircraft == nil {
		return
	}
	pos := c.aircraft.Transform.Position
	if c.rig != nil {
		c.rig.FollowPosition(pos)
	}
	c.aim.Follow(pos)
}

// ForceAlign pulls the aim toward the aircraft orientation at the control-swap rate.
// Without a rig only the aim is realigned.
func (c *Controller) ForceAlign(dt float64, forceCamera bool) {
	if c.aircraft == nil {
		return
	}
	if c.rig == nil {
		c.aim.Realign(c.aircraft.Transform.Rotation, c.cfg.SwapRate, dt)
		return
	}
	c.rig.ForceAlign(c.aim, c.aircraft.Transform.Rotation, dt, forceCamera)
}

// HandleAxis feeds a manual axis event to the arbiter and stamps manual input time.
func (c *Controller) HandleAxis(ev control.AxisEvent) {
	if c.arbiter == nil {
		return
	}
	if c.arbiter.HandleAxis(ev) {
		c.aim.NoteManualInput()
	}
}

func (c *Controller) HandleThrottle(ev control.ThrottleEvent) {
	if c.arbiter == nil {
		return
	}
	c.arbiter.HandleThrottle(ev)
}

// ThrottleDirection reports the held throttle direction: +1, -1 or 0.
func (c *Controller) ThrottleDirection() int {
	if c.arbiter == nil {
		return 0
	}
	return c.arbiter.ThrottleDirection()
}

// HandleFreeze locks the aim on started/changed and unlocks it on canceled.
func (c *Controller) HandleFreeze(phase control.Phase) {
	c.aim.SetFrozen(phase.Active())
}

func (c *Controller) ToggleAirBrake() {
	if c.aircraft == nil {
		return
	}
	c.aircraft.AirBrakeDeployed = !c.aircraft.AirBrakeDeployed
}

func (c *Controller) ToggleFlaps() {
	if c.aircraft == nil {
		return
	}
	c.aircraft.FlapsDeployed = !c.aircraft.FlapsDeployed
}

// UpdateAircraft stores a pose and kinematics reading from the dynamics model.
func (c *Controller) UpdateAircraft(pose geometry.Transform, kin aircraft.Kinematics) {
	if c.aircraft == nil {
		return
	}
	c.aircraft.Update(pose, kin)
}

// Boresight is the aircraft forward axis projected out to the aim distance.
func (c *Controller) Boresight() mgl64.Vec3 {
	if c.aircraft == nil {
		fwd := geometry.Forward
		if c.rig != nil {
			fwd = c.rig.Transform().Forward()
		}
		return fwd.Mul(c.cfg.AimDistance)
	}
	pose := c.aircraft.Pose()
	return pose.Position.Add(pose.Forward().Mul(c.cfg.AimDistance))
}

func (c *Controller) AimPosition() mgl64.Vec3      { return c.aim.AimPosition() }
func (c *Controller) Aim() *aim.Tracker            { return c.aim }
func (c *Controller) Aircraft() *aircraft.Aircraft { return c.aircraft }
func (c *Controller) Rig() *camera.Rig             { return c.rig }
func (c *Controller) LastCommand() control.Command { return c.last }
