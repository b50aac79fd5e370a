package control

import (
	"fmt"
	"strings"
)

// Phase is the lifecycle stage of a discrete input event.
type Phase int

const (
	Started Phase = iota
	Changed
	Canceled
)

var phaseNames = [...]string{"started", "changed", "canceled"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Active reports whether the phase carries a live value.
func (p Phase) Active() bool { return p == Started || p == Changed }

// ParsePhase accepts the lower-case phase names used on the wire.
func ParsePhase(s string) (Phase, error) {
	for i, n := range phaseNames {
		if strings.EqualFold(s, n) {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown input phase %q", s)
}

// Axis identifies one of the three attitude controls.
type Axis int

const (
	Yaw Axis = iota
	Pitch
	Roll
)

var axisNames = [...]string{"yaw", "pitch", "roll"}

func (a Axis) String() string {
	if a < 0 || int(a) >= len(axisNames) {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

func (a Axis) valid() bool { return a >= Yaw && a <= Roll }

// ParseAxis accepts "yaw", "pitch" or "roll".
func ParseAxis(s string) (Axis, error) {
	for i, n := range axisNames {
		if strings.EqualFold(s, n) {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// AxisEvent is a raw operator reading for one axis.
type AxisEvent struct {
	Axis  Axis
	Value float64
	Phase Phase
}

// ThrottleEvent carries the throttle direction: positive is up, negative is down.
type ThrottleEvent struct {
	Value float64
	Phase Phase
}

// Override is the per-axis manual input state. Active latches once |Raw| exceeds the
// deadzone and only clears on a canceled event.
type Override struct {
	Raw    float64
	Active bool
}
