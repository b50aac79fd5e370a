package sim

import (
	"flight-control/internal/aircraft"
	"flight-control/internal/control"
	"flight-control/internal/geometry"
	"time"
)

type CommandType string

const (
	CmdAxis     CommandType = "axis"
	CmdPointer  CommandType = "pointer"
	CmdFreeze   CommandType = "freeze"
	CmdThrottle CommandType = "throttle"
	CmdToggle   CommandType = "toggle"
	CmdAircraft CommandType = "aircraft"
)

type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
}

type AxisCommand struct {
	At    time.Time
	Event control.AxisEvent
}

func (c AxisCommand) Type() CommandType     { return CmdAxis }
func (c AxisCommand) ReceivedAt() time.Time { return c.At }

// PointerCommand carries pointer deltas. Deltas accumulate until the next frame phase.
type PointerCommand struct {
	At time.Time
	DX float64
	DY float64
}

func (c PointerCommand) Type() CommandType     { return CmdPointer }
func (c PointerCommand) ReceivedAt() time.Time { return c.At }

type FreezeCommand struct {
	At    time.Time
	Phase control.Phase
}

func (c FreezeCommand) Type() CommandType     { return CmdFreeze }
func (c FreezeCommand) ReceivedAt() time.Time { return c.At }

type ThrottleCommand struct {
	At    time.Time
	Event control.ThrottleEvent
}

func (c ThrottleCommand) Type() CommandType     { return CmdThrottle }
func (c ThrottleCommand) ReceivedAt() time.Time { return c.At }

type Surface string

const (
	SurfaceAirBrake Surface = "airbrake"
	SurfaceFlaps    Surface = "flaps"
)

type ToggleCommand struct {
	At      time.Time
	Surface Surface
}

func (c ToggleCommand) Type() CommandType     { return CmdToggle }
func (c ToggleCommand) ReceivedAt() time.Time { return c.At }

// AircraftCommand is a pose and kinematics reading pushed by the flight-dynamics model.
type AircraftCommand struct {
	At         time.Time
	Pose       geometry.Transform
	Kinematics aircraft.Kinematics
}

func (c AircraftCommand) Type() CommandType     { return CmdAircraft }
func (c AircraftCommand) ReceivedAt() time.Time { return c.At }
