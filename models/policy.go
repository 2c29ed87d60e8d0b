package models

import (
	"github.com/DanielLSM/prob-mbrl/bnn"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Policy maps states to actions with a stochastic
// network whose outputs are affinely rescaled into the
// action range.
type Policy struct {
	Model   bnn.Net
	Density *DiagGaussianDensity

	// AngleDims lists state columns expanded to
	// (sin, cos) before the network input.
	AngleDims []int

	// Scale and Bias map the network output u into the
	// action range as Scale*u + Bias, per action column.
	Scale anyvec.Vector
	Bias  anyvec.Vector
}

// Forward computes actions for n state rows.
func (p *Policy) Forward(states anydiff.Res, n int,
	resample bool) anydiff.Res {
	in := ExpandAngles(states, n, p.AngleDims)
	out := p.Model.ApplyMask(in, n, resample)
	if p.Density != nil {
		out = p.Density.Sample(out, n, nil, nil, nil, resample)
	}
	out = anydiff.Mul(out, anydiff.NewConst(tileRows(p.Scale, n)))
	return anydiff.Add(out, anydiff.NewConst(tileRows(p.Bias, n)))
}

// Resample redraws the network masks and, when present,
// the density's held noise.
func (p *Policy) Resample() {
	p.Model.Resample()
	if p.Density != nil {
		p.Density.Resample()
	}
}

// Parameters returns the trainable parameters.
func (p *Policy) Parameters() []*anydiff.Var {
	return p.Model.Parameters()
}

// Controller returns a plain function suitable for driving
// an environment, evaluating the policy in eval mode on a
// single state row.
func (p *Policy) Controller(c anyvec.Creator) func(state []float64) []float64 {
	return func(state []float64) []float64 {
		in := anydiff.NewConst(anyvec.Make(c, state))
		out := p.Forward(in, 1, false)
		return c.Float64Slice(out.Output().Data())
	}
}
