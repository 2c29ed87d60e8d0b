package probmbrl

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"gonum.org/v1/gonum/mat"
)

const mmJitter = 1e-6

// MomentMatch collapses a batch of n particle rows into a
// Gaussian and redraws n particles from it as
//
//	m + z*chol(S)
//
// where m and S are the empirical mean and covariance
// (with a small diagonal jitter), chol is the upper
// Cholesky factor, and z is standard normal noise. Both
// the mean and the covariance path carry gradients, so the
// redrawn particles remain differentiable with respect to
// the originals.
//
// When noise is non-nil it supplies z; otherwise fresh
// noise is drawn.
func MomentMatch(batch anydiff.Res, n int, noise anyvec.Vector) anydiff.Res {
	c := batch.Output().Creator()
	dim := batch.Output().Len() / n
	if noise == nil {
		noise = normalVec(c, n*dim)
	}
	return anydiff.Pool(batch, func(batch anydiff.Res) anydiff.Res {
		// Particle mean as a (1/n)-weighted row product.
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = 1 / float64(n)
		}
		mean := anydiff.MatMul(false, false, &anydiff.Matrix{
			Data: anydiff.NewConst(anyvec.Make(c, weights)),
			Rows: 1,
			Cols: n,
		}, &anydiff.Matrix{Data: batch, Rows: n, Cols: dim}).Data
		return anydiff.Pool(mean, func(mean anydiff.Res) anydiff.Res {
			negMean := anydiff.Scale(mean, c.MakeNumeric(-1))
			deltas := anydiff.AddRepeated(batch, negMean)
			return anydiff.Pool(deltas, func(deltas anydiff.Res) anydiff.Res {
				dm := &anydiff.Matrix{Data: deltas, Rows: n, Cols: dim}
				cov := anydiff.Scale(anydiff.MatMul(true, false, dm, dm).Data,
					c.MakeNumeric(1/float64(n)))
				cov = anydiff.Add(cov, anydiff.NewConst(jitterEye(c, dim)))
				chol := &anydiff.Matrix{
					Data: CholUpper(cov, dim),
					Rows: dim,
					Cols: dim,
				}
				zm := &anydiff.Matrix{
					Data: anydiff.NewConst(noise),
					Rows: n,
					Cols: dim,
				}
				spread := anydiff.MatMul(false, false, zm, chol).Data
				return anydiff.AddRepeated(spread, mean)
			})
		})
	})
}

// CholUpper computes the upper Cholesky factor U of a
// symmetric positive definite dim x dim matrix, so that
// U'*U reproduces the input. A factorization failure is
// fatal.
func CholUpper(in anydiff.Res, dim int) anydiff.Res {
	c := in.Output().Creator()
	data := c.Float64Slice(in.Output().Data())

	// Symmetrize to absorb round-off asymmetry.
	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, 0.5*(data[i*dim+j]+data[j*dim+i]))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		panic("moment matching: covariance is not positive definite")
	}
	var u mat.TriDense
	chol.UTo(&u)

	out := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out[i*dim+j] = u.At(i, j)
		}
	}
	return &cholUpperRes{
		In:     in,
		Dim:    dim,
		U:      &u,
		OutVec: anyvec.Make(c, out),
	}
}

type cholUpperRes struct {
	In     anydiff.Res
	Dim    int
	U      *mat.TriDense
	OutVec anyvec.Vector
}

func (c *cholUpperRes) Output() anyvec.Vector {
	return c.OutVec
}

func (c *cholUpperRes) Vars() anydiff.VarSet {
	return c.In.Vars()
}

func (c *cholUpperRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	dim := c.Dim
	cr := c.OutVec.Creator()
	uBar := mat.NewDense(dim, dim, cr.Float64Slice(u.Data()))

	// Standard Cholesky reverse-mode rule, phrased for the
	// upper factor U with A = U'*U.
	var p mat.Dense
	p.Mul(c.U, uBar.T())
	phi := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < i; j++ {
			phi.Set(i, j, p.At(i, j))
		}
		phi.Set(i, i, 0.5*p.At(i, i))
	}

	var z, w mat.Dense
	if err := z.Solve(c.U, phi); err != nil {
		panic("moment matching: singular Cholesky factor")
	}
	if err := w.Solve(c.U, z.T()); err != nil {
		panic("moment matching: singular Cholesky factor")
	}

	aBar := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			aBar[i*dim+j] = 0.5 * (w.At(i, j) + w.At(j, i))
		}
	}
	c.In.Propagate(anyvec.Make(cr, aBar), g)
}

func jitterEye(c anyvec.Creator, dim int) anyvec.Vector {
	data := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		data[i*dim+i] = mmJitter
	}
	return anyvec.Make(c, data)
}

func normalVec(c anyvec.Creator, n int) anyvec.Vector {
	v := c.MakeVector(n)
	anyvec.Rand(v, anyvec.Normal, nil)
	return v
}
