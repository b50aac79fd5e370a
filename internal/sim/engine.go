// Package sim runs the flight controller as a single-goroutine actor: a frame phase and
// a fixed phase on two tickers, input commands applied between phases, and telemetry
// fanned out to subscribers after every fixed phase.
package sim

import (
	"context"
	"flight-control/internal/flight"
	"flight-control/internal/metrics"
	"flight-control/internal/timeutil"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type stateReq struct {
	reply chan Telemetry
}

type subscribeReq struct {
	ch chan Telemetry
}

type Engine struct {
	geo     GeoRef
	ctrl    *flight.Controller
	clock   timeutil.Clock
	session string
	log     zerolog.Logger
	metrics *metrics.Instruments
	dropped atomic.Int64

	// Actor channels
	cmdCh       chan Command
	stateReqCh  chan stateReq
	subscribeCh chan subscribeReq
	unsubCh     chan chan Telemetry

	frameHz float64
	fixedHz float64
}

type Config struct {
	OriginLat float64
	OriginLon float64
	FrameHz   float64
	FixedHz   float64

	Clock timeutil.Clock
}

func New(cfg Config, ctrl *flight.Controller, log zerolog.Logger, m *metrics.Instruments) *Engine {
	if cfg.FrameHz <= 0 {
		cfg.FrameHz = 60
	}
	if cfg.FixedHz <= 0 {
		cfg.FixedHz = 50
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	session := uuid.NewString()
	return &Engine{
		geo:         GeoRef{OriginLat: cfg.OriginLat, OriginLon: cfg.OriginLon},
		ctrl:        ctrl,
		clock:       cfg.Clock,
		session:     session,
		log:         log.With().Str("component", "engine").Str("session", session).Logger(),
		metrics:     m,
		cmdCh:       make(chan Command, 128),
		stateReqCh:  make(chan stateReq, 32),
		subscribeCh: make(chan subscribeReq, 32),
		unsubCh:     make(chan chan Telemetry, 32),
		frameHz:     cfg.FrameHz,
		fixedHz:     cfg.FixedHz,
	}
}

// Session identifies this engine run in telemetry.
func (e *Engine) Session() string { return e.session }

// Dropped is the number of commands rejected because the queue was full.
func (e *Engine) Dropped() int64 { return e.dropped.Load() }

// Submit queues cmd without blocking. A full queue drops the command.
func (e *Engine) Submit(cmd Command) {
	select {
	case e.cmdCh <- cmd:
	default:
		e.dropped.Add(1)
		e.metrics.CommandDropped(string(cmd.Type()))
		e.log.Warn().Str("command", string(cmd.Type())).Msg("command queue full, dropping")
	}
}

func (e *Engine) GetState(ctx context.Context) (Telemetry, error) {
	req := stateReq{reply: make(chan Telemetry, 1)}
	select {
	case e.stateReqCh <- req:
	case <-ctx.Done():
		return Telemetry{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return Telemetry{}, ctx.Err()
	}
}

func (e *Engine) Subscribe(ctx context.Context) (<-chan Telemetry, func()) {
	ch := make(chan Telemetry, 32)

	select {
	case e.subscribeCh <- subscribeReq{ch: ch}:
	case <-ctx.Done():
		close(ch)
		return ch, func() {}
	}

	unsub := func() {
		select {
		case e.unsubCh <- ch:
		default:
		}
	}
	return ch, unsub
}

func period(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

func (e *Engine) Run(ctx context.Context) error {
	// Actor-owned state
	now := e.clock.Now()
	lastFrame, lastFixed := now, now
	var dx, dy float64

	subs := map[chan Telemetry]struct{}{}

	publish := func(st Telemetry) {
		for ch := range subs {
			select {
			case ch <- st:
			default:
				// slow subscriber -> drop frame
			}
		}
	}

	frameTick := e.clock.NewTicker(period(e.frameHz))
	defer frameTick.Stop()
	fixedTick := e.clock.NewTicker(period(e.fixedHz))
	defer fixedTick.Stop()

	e.log.Info().Float64("frameHz", e.frameHz).Float64("fixedHz", e.fixedHz).Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			for ch := range subs {
				close(ch)
			}
			e.log.Info().Msg("engine stopped")
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			req.ch <- e.snapshot(now)

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case req := <-e.stateReqCh:
			req.reply <- e.snapshot(now)

		case cmd := <-e.cmdCh:
			if p, ok := cmd.(PointerCommand); ok {
				dx += p.DX
				dy += p.DY
				continue
			}
			e.apply(cmd)

		case t := <-frameTick.C():
			dt := t.Sub(lastFrame).Seconds()
			if dt <= 0 {
				dt = 1.0 / e.frameHz
			}
			lastFrame = t
			e.ctrl.Frame(dt, dx, dy)
			dx, dy = 0, 0

		case t := <-fixedTick.C():
			dt := t.Sub(lastFixed).Seconds()
			if dt <= 0 {
				dt = 1.0 / e.fixedHz
			}
			lastFixed = t
			now = t
			e.ctrl.Fixed(dt)
			publish(e.snapshot(now))
		}
	}
}

func (e *Engine) apply(cmd Command) {
	switch c := cmd.(type) {
	case AxisCommand:
		e.ctrl.HandleAxis(c.Event)
	case ThrottleCommand:
		e.ctrl.HandleThrottle(c.Event)
	case FreezeCommand:
		e.ctrl.HandleFreeze(c.Phase)
	case ToggleCommand:
		switch c.Surface {
		case SurfaceAirBrake:
			e.ctrl.ToggleAirBrake()
		case SurfaceFlaps:
			e.ctrl.ToggleFlaps()
		default:
			e.log.Warn().Str("surface", string(c.Surface)).Msg("unknown surface")
		}
	case AircraftCommand:
		e.ctrl.UpdateAircraft(c.Pose, c.Kinematics)
	default:
		e.log.Warn().Str("command", string(cmd.Type())).Msg("unhandled command")
	}
}

func (e *Engine) snapshot(ts time.Time) Telemetry {
	cmd := e.ctrl.LastCommand()
	tr := e.ctrl.Aim()
	st := Telemetry{
		Session:             e.session,
		TS:                  ts,
		AimPosition:         e.ctrl.AimPosition(),
		Boresight:           e.ctrl.Boresight(),
		AimFrozen:           tr.IsFrozen(),
		OffScreenDuringLock: tr.HasGoneOffScreenDuringLock(),
		LastLock:            tr.LastLockTime(),
		LastManualInput:     tr.LastManualInputTime(),
		ThrottleDirection:   e.ctrl.ThrottleDirection(),
	}
	for i, s := range cmd.Sources {
		st.Sources[i] = s.String()
	}

	ac := e.ctrl.Aircraft()
	if ac == nil {
		st.Yaw, st.Pitch, st.Roll = cmd.Yaw, cmd.Pitch, cmd.Roll
		return st
	}
	st.Yaw, st.Pitch, st.Roll = ac.Yaw, ac.Pitch, ac.Roll
	st.Throttle = ac.Throttle
	st.InStall = ac.IsInStall
	st.Speed = ac.Speed()
	st.Altitude = ac.Altitude()
	st.GForce = ac.LocalGForce.Y()
	st.AoA = ac.AngleOfAttack
	st.AirBrake = ac.AirBrakeDeployed
	st.Flaps = ac.FlapsDeployed
	st.HeadingDeg = HeadingDeg(ac.Transform.Forward())
	st.Lat, st.Lon, _ = e.geo.LocalToGeo(ac.Transform.Position)
	return st
}
