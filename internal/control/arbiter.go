// Package control arbitrates, per axis, between stall recovery, manual override and
// the autopilot law, and steps the throttle.
package control

import (
	"flight-control/internal/aircraft"
	"flight-control/internal/autopilot"
	"flight-control/internal/geometry"
	"flight-control/internal/metrics"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

const (
	DefaultDeadzone     = 0.25
	DefaultThrottleStep = 0.01
)

type Config struct {
	// Deadzone is the |raw| an axis reading must exceed to take the axis from the autopilot.
	Deadzone float64
	// Sensitivity scales each override, indexed by Axis.
	Sensitivity  [3]float64
	ThrottleStep float64

	// DisableAutopilotOnLock suppresses the autopilot while the aim is frozen.
	DisableAutopilotOnLock bool
	// HoldOnSuppress keeps the previous command on a suppressed axis instead of zeroing it.
	HoldOnSuppress bool
}

// Aim is the aim tracker state the arbiter reads.
type Aim interface {
	IsFrozen() bool
	CheckOffScreen() bool
	AimPosition() mgl64.Vec3
	LastLockTime() time.Time
	LastManualInputTime() time.Time
}

// AlignFunc force-realigns the aim to the aircraft orientation.
type AlignFunc func(forceCamera bool)

// Stall is the stall state for one tick.
type Stall struct {
	Active  bool
	Command aircraft.StallCommand
}

// Source names what produced an axis command.
type Source int

const (
	SourceNone Source = iota
	SourceStall
	SourceOverride
	SourceAutopilot
	SourceHold
)

var sourceNames = [...]string{"none", "stall", "override", "autopilot", "hold"}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return "unknown"
	}
	return sourceNames[s]
}

// Command is the per-tick output.
type Command struct {
	Yaw           float64
	Pitch         float64
	Roll          float64
	ThrottleDelta float64
	Sources       [3]Source
}

func (c *Command) set(a Axis, v float64) {
	switch a {
	case Yaw:
		c.Yaw = v
	case Pitch:
		c.Pitch = v
	case Roll:
		c.Roll = v
	}
}

// Axis returns the command value for a.
func (c Command) Axis(a Axis) float64 {
	switch a {
	case Yaw:
		return c.Yaw
	case Pitch:
		return c.Pitch
	default:
		return c.Roll
	}
}

// Arbiter owns override, throttle and last-command state.
type Arbiter struct {
	cfg Config
	law autopilot.Law

	overrides    [3]Override
	throttleUp   bool
	throttleDown bool
	last         [3]float64

	log     zerolog.Logger
	metrics *metrics.Instruments
}

func New(cfg Config, law autopilot.Law, log zerolog.Logger, m *metrics.Instruments) *Arbiter {
	if cfg.Sensitivity == ([3]float64{}) {
		cfg.Sensitivity = [3]float64{1, 1, 1}
	}
	return &Arbiter{
		cfg:     cfg,
		law:     law,
		log:     log.With().Str("component", "control").Logger(),
		metrics: m,
	}
}

// HandleAxis applies an axis event and reports whether it counts as manual input.
func (a *Arbiter) HandleAxis(ev AxisEvent) bool {
	if !ev.Axis.valid() {
		a.log.Warn().Int("axis", int(ev.Axis)).Msg("ignoring event for unknown axis")
		return false
	}
	o := &a.overrides[ev.Axis]
	if !ev.Phase.Active() {
		if o.Active {
			a.log.Debug().Stringer("axis", ev.Axis).Msg("override released")
		}
		*o = Override{}
		return false
	}
	o.Raw = ev.Value
	if !o.Active && math.Abs(ev.Value) > a.cfg.Deadzone {
		o.Active = true
		a.metrics.OverrideActivated(ev.Axis.String())
		a.log.Debug().Stringer("axis", ev.Axis).Float64("raw", ev.Value).Msg("override engaged")
	}
	return true
}

// HandleThrottle sets the throttle direction. Up and down never apply together.
func (a *Arbiter) HandleThrottle(ev ThrottleEvent) {
	a.throttleUp, a.throttleDown = false, false
	if !ev.Phase.Active() {
		return
	}
	switch {
	case ev.Value > 0:
		a.throttleUp = true
	case ev.Value < 0:
		a.throttleDown = true
	}
}

// Tick produces the command for one fixed step. owner is the aircraft pose; aim may be
// nil, in which case the autopilot never runs.
func (a *Arbiter) Tick(owner geometry.Transform, st Stall, aim Aim, align AlignFunc) Command {
	var cmd Command
	cmd.ThrottleDelta = a.throttleDelta()

	if st.Active {
		if align != nil {
			align(true)
		}
		cmd.Yaw, cmd.Pitch, cmd.Roll = st.Command.Yaw, st.Command.Pitch, st.Command.Roll
		cmd.Sources = [3]Source{SourceStall, SourceStall, SourceStall}
		a.remember(cmd)
		return cmd
	}

	var (
		auto    autopilot.Output
		allowed bool
	)
	if a.autopilotAllowed(aim) {
		auto = a.law.Compute(owner, aim.AimPosition())
		allowed = true
	}

	for axis := Yaw; axis <= Roll; axis++ {
		o := a.overrides[axis]
		switch {
		case o.Active:
			cmd.set(axis, geometry.Clamp(o.Raw*a.cfg.Sensitivity[axis], -1, 1))
			cmd.Sources[axis] = SourceOverride
		case allowed:
			cmd.set(axis, auto.Axis(int(axis)))
			cmd.Sources[axis] = SourceAutopilot
		case a.cfg.HoldOnSuppress:
			cmd.set(axis, a.last[axis])
			cmd.Sources[axis] = SourceHold
		default:
			cmd.Sources[axis] = SourceNone
		}
	}
	a.remember(cmd)
	return cmd
}

func (a *Arbiter) autopilotAllowed(aim Aim) bool {
	if aim == nil {
		return false
	}
	// Checked every tick so the tracker latches off-screen excursions during a lock
	// even when the lock policy suppresses the autopilot.
	offScreen := aim.CheckOffScreen()
	if a.cfg.DisableAutopilotOnLock && aim.IsFrozen() {
		return false
	}
	if offScreen {
		return aim.LastManualInputTime().Before(aim.LastLockTime())
	}
	return true
}

func (a *Arbiter) throttleDelta() float64 {
	switch {
	case a.throttleUp:
		return a.cfg.ThrottleStep
	case a.throttleDown:
		return -a.cfg.ThrottleStep
	}
	return 0
}

func (a *Arbiter) remember(cmd Command) {
	a.last = [3]float64{cmd.Yaw, cmd.Pitch, cmd.Roll}
}

// Override returns the override state for axis.
func (a *Arbiter) Override(axis Axis) Override {
	if !axis.valid() {
		return Override{}
	}
	return a.overrides[axis]
}

// ThrottleDirection returns +1, -1 or 0.
func (a *Arbiter) ThrottleDirection() int {
	switch {
	case a.throttleUp:
		return 1
	case a.throttleDown:
		return -1
	}
	return 0
}
