// Package metrics defines the OpenTelemetry instruments recorded by the control loop.
// Instruments come from the global meter provider and are no-ops until one is set.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "flight-control"

// Instruments groups the counters shared by the engine and the control components.
type Instruments struct {
	ticks        metric.Int64Counter
	stallEntries metric.Int64Counter
	stallExits   metric.Int64Counter
	overrides    metric.Int64Counter
	dropped      metric.Int64Counter
}

// New creates the instruments on m, or on the global meter when m is nil.
func New(m metric.Meter) (*Instruments, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}

	var (
		in  Instruments
		err error
	)
	in.ticks, err = m.Int64Counter("flight.ticks",
		metric.WithDescription("Control phases executed"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	in.stallEntries, err = m.Int64Counter("flight.stall.entries",
		metric.WithDescription("Transitions from flying to stalled"))
	if err != nil {
		return nil, fmt.Errorf("creating stall entry counter: %w", err)
	}
	in.stallExits, err = m.Int64Counter("flight.stall.exits",
		metric.WithDescription("Transitions from stalled to flying"))
	if err != nil {
		return nil, fmt.Errorf("creating stall exit counter: %w", err)
	}
	in.overrides, err = m.Int64Counter("flight.overrides.activated",
		metric.WithDescription("Manual overrides taking an axis from the autopilot"))
	if err != nil {
		return nil, fmt.Errorf("creating override counter: %w", err)
	}
	in.dropped, err = m.Int64Counter("flight.commands.dropped",
		metric.WithDescription("Input commands dropped because the engine queue was full"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return &in, nil
}

// The recorders below accept a nil receiver so components can run without metrics.

func (in *Instruments) Tick(phase string) {
	if in == nil {
		return
	}
	in.ticks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("phase", phase)))
}

func (in *Instruments) StallEntered() {
	if in == nil {
		return
	}
	in.stallEntries.Add(context.Background(), 1)
}

func (in *Instruments) StallExited() {
	if in == nil {
		return
	}
	in.stallExits.Add(context.Background(), 1)
}

func (in *Instruments) OverrideActivated(axis string) {
	if in == nil {
		return
	}
	in.overrides.Add(context.Background(), 1, metric.WithAttributes(attribute.String("axis", axis)))
}

func (in *Instruments) CommandDropped(kind string) {
	if in == nil {
		return
	}
	in.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", kind)))
}
