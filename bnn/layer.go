// Package bnn provides stochastic neural network layers
// whose sampled dropout masks can be held fixed, resampled
// on demand, and penalized with the regularizers from the
// Bayesian interpretation of dropout.
package bnn

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// A Stochastic layer gates its input with sampled noise.
//
// The noise is held between applications, so that repeated
// forward passes evaluate the same sampled network. A held
// mask is regenerated when the input shape changes, or
// when Resample is called.
type Stochastic interface {
	anynet.Layer

	// ApplyMask is like Apply, but when resample is true a
	// transient mask is drawn for this call only, leaving
	// the held mask untouched.
	ApplyMask(in anydiff.Res, n int, resample bool) anydiff.Res

	// Resample redraws the held mask.
	Resample()

	// WeightsRegularizer penalizes the weights of the
	// affine layer gated by this layer.
	WeightsRegularizer(w *anydiff.Var) anydiff.Res

	// BiasesRegularizer penalizes the biases of the affine
	// layer gated by this layer.
	BiasesRegularizer(b *anydiff.Var) anydiff.Res
}

func bernoulli(c anyvec.Creator, p float64, n int) anyvec.Vector {
	data := make([]float64, n)
	for i := range data {
		if rand.Float64() < p {
			data[i] = 1
		}
	}
	return anyvec.Make(c, data)
}

func uniform(c anyvec.Creator, n int) anyvec.Vector {
	data := make([]float64, n)
	for i := range data {
		// Stay inside the open interval so that logit
		// transforms of the noise remain finite.
		data[i] = rand.Float64()*(1-2e-7) + 1e-7
	}
	return anyvec.Make(c, data)
}

// sigmoid computes 1/(1+exp(-x)) via the tanh identity.
func sigmoid(in anydiff.Res) anydiff.Res {
	c := in.Output().Creator()
	half := c.MakeNumeric(0.5)
	return anydiff.AddScalar(anydiff.Scale(anydiff.Tanh(anydiff.Scale(in, half)),
		half), half)
}

// logRes is an element-wise natural logarithm.
type logRes struct {
	In     anydiff.Res
	OutVec anyvec.Vector
}

func logarithm(in anydiff.Res) anydiff.Res {
	c := in.Output().Creator()
	data := c.Float64Slice(in.Output().Data())
	out := make([]float64, len(data))
	for i, x := range data {
		out[i] = math.Log(x)
	}
	return &logRes{In: in, OutVec: anyvec.Make(c, out)}
}

func (l *logRes) Output() anyvec.Vector {
	return l.OutVec
}

func (l *logRes) Vars() anydiff.VarSet {
	return l.In.Vars()
}

func (l *logRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	c := l.OutVec.Creator()
	uData := c.Float64Slice(u.Data())
	inData := c.Float64Slice(l.In.Output().Data())
	down := make([]float64, len(uData))
	for i, x := range uData {
		down[i] = x / inData[i]
	}
	l.In.Propagate(anyvec.Make(c, down), g)
}

func sumSquares(r anydiff.Res) anydiff.Res {
	sq := anydiff.Mul(r, r)
	return anydiff.SumCols(&anydiff.Matrix{
		Data: sq,
		Rows: 1,
		Cols: r.Output().Len(),
	})
}
