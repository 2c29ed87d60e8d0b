package models

import (
	"math"

	"github.com/DanielLSM/prob-mbrl/bnn"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Regressor wraps a stochastic network with dataset
// normalization statistics and an optional output density.
type Regressor struct {
	Model   bnn.Net
	Density *DiagGaussianDensity

	// AngleDims lists raw input columns holding angles,
	// which are expanded to (sin, cos) features.
	AngleDims []int

	// Dataset and statistics, set atomically by
	// SetDataset. Inputs are stored angle-expanded.
	NumIn  int
	NumOut int
	X, Y   anyvec.Vector

	MX, SX, ISX anyvec.Vector
	MY, SY, ISY anyvec.Vector
}

// SetDataset attaches a training set of rows inputs and
// targets and recomputes all normalization statistics.
func (r *Regressor) SetDataset(ins, outs anyvec.Vector, rows int) {
	c := ins.Creator()
	x := ExpandAngles(anydiff.NewConst(ins), rows, r.AngleDims).Output()
	r.NumIn = x.Len() / rows
	r.NumOut = outs.Len() / rows
	r.X = x
	r.Y = outs.Copy()
	r.MX, r.SX, r.ISX = colStats(c, x, rows, r.NumIn)
	r.MY, r.SY, r.ISY = colStats(c, r.Y, rows, r.NumOut)
}

// Rows returns the number of attached dataset rows.
func (r *Regressor) Rows() int {
	if r.X == nil {
		return 0
	}
	return r.X.Len() / r.NumIn
}

// Forward expands angles when the raw input width does not
// already match the expanded width, normalizes with the
// dataset statistics, and applies the network, returning
// raw network outputs.
func (r *Regressor) Forward(x anydiff.Res, n int, resample bool) anydiff.Res {
	if r.MX == nil {
		panic("regressor: no dataset attached")
	}
	c := x.Output().Creator()
	if x.Output().Len()/n != r.NumIn {
		x = ExpandAngles(x, n, r.AngleDims)
	}
	negMX := r.MX.Copy()
	negMX.Scale(c.MakeNumeric(-1))
	x = anydiff.AddRepeated(x, anydiff.NewConst(negMX))
	x = anydiff.Mul(x, anydiff.NewConst(tileRows(r.ISX, n)))
	return r.Model.ApplyMask(x, n, resample)
}

// PredictParams returns the output distribution's mean and
// standard deviation, de-normalized with the output
// statistics.
func (r *Regressor) PredictParams(x anydiff.Res, n int,
	resample bool) (mean, std anydiff.Res) {
	return r.Density.Params(r.Forward(x, n, resample), n, r.MY, r.SY)
}

// Sample returns de-normalized output samples. When noise
// is non-nil it supplies the measurement noise; otherwise
// the density's held noise is used. Without a density the
// raw network outputs are returned.
func (r *Regressor) Sample(x anydiff.Res, n int, resample bool,
	noise anyvec.Vector) anydiff.Res {
	outs := r.Forward(x, n, resample)
	if r.Density == nil {
		return outs
	}
	return r.Density.Sample(outs, n, r.MY, r.SY, noise, resample)
}

// Regularize computes the network's regularization
// penalty.
func (r *Regressor) Regularize(c anyvec.Creator) anydiff.Res {
	return r.Model.Regularize(c)
}

// Resample redraws the network masks and the output
// density's held noise.
func (r *Regressor) Resample() {
	r.Model.Resample()
	if r.Density != nil {
		r.Density.Resample()
	}
}

// Parameters returns the trainable parameters.
func (r *Regressor) Parameters() []*anydiff.Var {
	return r.Model.Parameters()
}

func colStats(c anyvec.Creator, data anyvec.Vector, rows,
	cols int) (mean, std, invStd anyvec.Vector) {
	d := c.Float64Slice(data.Data())
	m := make([]float64, cols)
	s := make([]float64, cols)
	is := make([]float64, cols)
	for col := 0; col < cols; col++ {
		var sum float64
		for r := 0; r < rows; r++ {
			sum += d[r*cols+col]
		}
		m[col] = sum / float64(rows)
		var sq float64
		for r := 0; r < rows; r++ {
			diff := d[r*cols+col] - m[col]
			sq += diff * diff
		}
		if rows > 1 {
			s[col] = math.Sqrt(sq / float64(rows-1))
		}
		if s[col] == 0 {
			// Degenerate columns pass through unscaled.
			s[col] = 1
		}
		is[col] = 1 / s[col]
	}
	return anyvec.Make(c, m), anyvec.Make(c, s), anyvec.Make(c, is)
}
