// Package curve provides tunable response curves: opaque float-to-float mappings
// that shape how a raw reading (pitch, altitude) feeds a threshold decision.
package curve

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Curve maps an input value to a response value.
type Curve interface {
	Evaluate(x float64) float64
}

// Func adapts an ordinary function to the Curve interface.
type Func func(x float64) float64

func (f Func) Evaluate(x float64) float64 { return f(x) }

// Identity returns its input unchanged.
var Identity Curve = Func(func(x float64) float64 { return x })

// Constant evaluates to the same value everywhere.
type Constant float64

func (c Constant) Evaluate(float64) float64 { return float64(c) }

// Keyframe is a single (time, value) control point.
type Keyframe struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// Keyframes is a piecewise-linear curve through its control points. Outside the
// keyed range the curve holds the first/last value.
type Keyframes struct {
	keys []Keyframe
	pl   interp.PiecewiseLinear
}

// New builds a curve from keys. Keys may be given in any order but their X values
// must be distinct. A single key yields a constant curve.
func New(keys []Keyframe) (Curve, error) {
	switch len(keys) {
	case 0:
		return nil, fmt.Errorf("curve needs at least one keyframe")
	case 1:
		return Constant(keys[0].Y), nil
	}

	sorted := make([]Keyframe, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, k := range sorted {
		if i > 0 && k.X == sorted[i-1].X {
			return nil, fmt.Errorf("duplicate keyframe at x=%g", k.X)
		}
		xs[i], ys[i] = k.X, k.Y
	}

	c := &Keyframes{keys: sorted}
	if err := c.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fitting curve: %w", err)
	}
	return c, nil
}

// MustNew is New for static curve definitions; it panics on invalid keys.
func MustNew(keys ...Keyframe) Curve {
	c, err := New(keys)
	if err != nil {
		panic(err)
	}
	return c
}

// Evaluate returns the interpolated value at x.
func (c *Keyframes) Evaluate(x float64) float64 {
	first, last := c.keys[0], c.keys[len(c.keys)-1]
	if x <= first.X {
		return first.Y
	}
	if x >= last.X {
		return last.Y
	}
	return c.pl.Predict(x)
}
