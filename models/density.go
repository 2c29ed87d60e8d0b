package models

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// DiagGaussianDensity interprets raw network outputs as
// the mean and log standard deviation of a diagonal
// Gaussian predictive distribution, one per batch row.
type DiagGaussianDensity struct {
	// Dim is the dimensionality of the distribution; raw
	// outputs must have 2*Dim columns per row.
	Dim int

	noise anyvec.Vector
}

// Params splits raw outputs into (mean, std). When outMean
// and outStd are non-nil, the results are de-normalized as
// mean*outStd + outMean and std*outStd.
func (d *DiagGaussianDensity) Params(outs anydiff.Res, n int,
	outMean, outStd anyvec.Vector) (mean, std anydiff.Res) {
	mean = sliceCols(outs, n, 2*d.Dim, 0, d.Dim)
	std = anydiff.Exp(sliceCols(outs, n, 2*d.Dim, d.Dim, 2*d.Dim))
	if outMean != nil && outStd != nil {
		mean = anydiff.Add(
			anydiff.Mul(mean, anydiff.NewConst(tileRows(outStd, n))),
			anydiff.NewConst(tileRows(outMean, n)),
		)
		std = anydiff.Mul(std, anydiff.NewConst(tileRows(outStd, n)))
	}
	return
}

// Sample draws one sample per row: mean + std*z. The noise
// z is the caller's measurement noise when non-nil;
// otherwise a held standard-normal draw is used, subject
// to the same shape and resample rules as stochastic
// layers.
func (d *DiagGaussianDensity) Sample(outs anydiff.Res, n int,
	outMean, outStd, noise anyvec.Vector, resample bool) anydiff.Res {
	mean, std := d.Params(outs, n, outMean, outStd)
	z := noise
	if z == nil {
		c := outs.Output().Creator()
		if d.noise == nil || d.noise.Len() != n*d.Dim {
			d.noise = normal(c, n*d.Dim)
		} else if resample {
			z = normal(c, n*d.Dim)
		}
		if z == nil {
			z = d.noise
		}
	}
	return anydiff.Add(mean, anydiff.Mul(std, anydiff.NewConst(z)))
}

// Resample redraws the held output noise, keeping its
// shape.
func (d *DiagGaussianDensity) Resample() {
	if d.noise != nil {
		d.noise = normal(d.noise.Creator(), d.noise.Len())
	}
}

// LogProb computes, for each row, the log density of the
// corresponding target row under the predicted Gaussian.
func (d *DiagGaussianDensity) LogProb(outs anydiff.Res, targets anyvec.Vector,
	n int) anydiff.Res {
	c := outs.Output().Creator()
	return anydiff.Pool(outs, func(outs anydiff.Res) anydiff.Res {
		mean := sliceCols(outs, n, 2*d.Dim, 0, d.Dim)
		logStd := sliceCols(outs, n, 2*d.Dim, d.Dim, 2*d.Dim)
		return anydiff.Pool(logStd, func(logStd anydiff.Res) anydiff.Res {
			invStd := anydiff.Exp(anydiff.Scale(logStd, c.MakeNumeric(-1)))
			diff := anydiff.Sub(anydiff.NewConst(targets), mean)
			z := anydiff.Mul(diff, invStd)
			return anydiff.Pool(z, func(z anydiff.Res) anydiff.Res {
				perDim := anydiff.Add(anydiff.Mul(z, z),
					anydiff.Scale(logStd, c.MakeNumeric(2)))
				rowSums := anydiff.SumCols(&anydiff.Matrix{
					Data: perDim,
					Rows: n,
					Cols: d.Dim,
				})
				return anydiff.AddScalar(
					anydiff.Scale(rowSums, c.MakeNumeric(-0.5)),
					c.MakeNumeric(-0.5*float64(d.Dim)*math.Log(2*math.Pi)),
				)
			})
		})
	})
}
