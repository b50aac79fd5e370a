// Package stall detects the aerodynamic stall condition that overrides all control
// logic while active.
package stall

import (
	"flight-control/internal/aircraft"
	"flight-control/internal/curve"
	"flight-control/internal/geometry"
	"flight-control/internal/metrics"

	"github.com/rs/zerolog"
)

// DefaultAltitudeCutoff is the altitude-curve value below which the aircraft is
// considered too low to be put into a stall.
const DefaultAltitudeCutoff = 0.25

type State int

const (
	Flying State = iota
	Stalled
)

func (s State) String() string {
	if s == Stalled {
		return "stalled"
	}
	return "flying"
}

type Config struct {
	// PitchCurve shapes the vertical component of the aircraft's up vector.
	PitchCurve curve.Curve
	// AltitudeCurve shapes world altitude.
	AltitudeCurve curve.Curve

	MinPitchEval   float64
	AltitudeCutoff float64

	// EntryVelocity is the forward speed at or below which a stall begins.
	EntryVelocity float64
	// ExitVelocity is the forward speed a stalled aircraft must exceed to recover.
	// It is expected to be above EntryVelocity.
	ExitVelocity float64
}

// Detector is a two-state machine evaluated once per fixed tick.
type Detector struct {
	cfg     Config
	state   State
	log     zerolog.Logger
	metrics *metrics.Instruments
}

func New(cfg Config, log zerolog.Logger, m *metrics.Instruments) *Detector {
	l := log.With().Str("component", "stall").Logger()
	if cfg.AltitudeCutoff == 0 {
		cfg.AltitudeCutoff = DefaultAltitudeCutoff
	}
	if cfg.ExitVelocity <= cfg.EntryVelocity {
		l.Warn().
			Float64("entry", cfg.EntryVelocity).
			Float64("exit", cfg.ExitVelocity).
			Msg("stall exit velocity does not exceed entry velocity, no hysteresis")
	}
	return &Detector{cfg: cfg, log: l, metrics: m}
}

// Evaluate advances the state machine from the current pose and kinematics and
// reports whether the aircraft is stalled.
//
// While flying, a stall begins when forward velocity is at or below the entry
// threshold and neither escape condition (pitch curve below MinPitchEval, altitude
// curve below AltitudeCutoff) holds. While stalled only velocity is checked, against
// the exit threshold.
func (d *Detector) Evaluate(pose geometry.Transform, kin aircraft.Kinematics) bool {
	stalled := d.state == Stalled

	threshold := d.cfg.EntryVelocity
	if stalled {
		threshold = d.cfg.ExitVelocity
	}
	velocityEval := kin.LocalVelocity.Z() > threshold

	var pitchEval, altitudeEval bool
	if !stalled {
		if d.cfg.PitchCurve != nil {
			pitchEval = d.cfg.PitchCurve.Evaluate(pose.Up().Y()) < d.cfg.MinPitchEval
		}
		if d.cfg.AltitudeCurve != nil {
			altitudeEval = d.cfg.AltitudeCurve.Evaluate(pose.Position.Y()) < d.cfg.AltitudeCutoff
		}
	}

	next := Flying
	if !(velocityEval || altitudeEval || pitchEval) {
		next = Stalled
	}
	if next != d.state {
		d.transition(next, kin)
	}
	return d.state == Stalled
}

func (d *Detector) transition(next State, kin aircraft.Kinematics) {
	d.log.Info().
		Stringer("from", d.state).
		Stringer("to", next).
		Float64("forwardVelocity", kin.LocalVelocity.Z()).
		Msg("stall state changed")
	if next == Stalled {
		d.metrics.StallEntered()
	} else {
		d.metrics.StallExited()
	}
	d.state = next
}

func (d *Detector) State() State    { return d.state }
func (d *Detector) IsInStall() bool { return d.state == Stalled }

// Reset returns the detector to Flying without logging a transition.
func (d *Detector) Reset() { d.state = Flying }
