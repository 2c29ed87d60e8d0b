package models

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// TrainConfig configures maximum-likelihood training of a
// Regressor on its attached dataset.
type TrainConfig struct {
	// BatchSize is the number of rows per minibatch.
	// Zero means the whole dataset.
	BatchSize int

	// Iters is the number of gradient steps.
	Iters int

	StepSize    float64
	Transformer anysgd.Transformer

	// OnIteration, if non-nil, is called after every
	// step with the training loss.
	OnIteration func(iter int, loss float64)
}

// Train fits the regressor's network by minimizing the
// negative log-likelihood of minibatches plus the
// network's regularization penalty.
//
// The dropout masks are resampled every iteration so the
// regularizers see fresh noise.
func Train(r *Regressor, cfg *TrainConfig, rng *rand.Rand) {
	c := r.X.Creator()
	rows := r.Rows()
	batch := cfg.BatchSize
	if batch == 0 || batch > rows {
		batch = rows
	}
	xData := c.Float64Slice(r.X.Data())
	yData := normalizeRows(c, r.Y, r.MY, r.ISY, rows, r.NumOut)
	params := r.Parameters()

	for iter := 0; iter < cfg.Iters; iter++ {
		r.Resample()
		ins, outs := sampleBatch(c, xData, yData, rows, batch,
			r.NumIn, r.NumOut, rng)
		netOut := r.Forward(anydiff.NewConst(ins), batch, false)
		logProb := r.Density.LogProb(netOut, outs, batch)
		loss := anydiff.Scale(anydiff.SumCols(&anydiff.Matrix{
			Data: logProb,
			Rows: 1,
			Cols: batch,
		}), c.MakeNumeric(-1/float64(batch)))
		reg := anydiff.Scale(r.Regularize(c),
			c.MakeNumeric(1/float64(rows)))
		loss = anydiff.Add(loss, reg)

		grad := anydiff.NewGrad(params...)
		one := c.MakeVector(1)
		one.AddScalar(c.MakeNumeric(1))
		loss.Propagate(one, grad)

		g := grad
		if cfg.Transformer != nil {
			g = cfg.Transformer.Transform(grad)
		}
		g.Scale(c.MakeNumeric(-cfg.StepSize))
		g.AddToVars()

		if cfg.OnIteration != nil {
			lossVal := c.Float64Slice(loss.Output().Data())[0]
			cfg.OnIteration(iter, lossVal)
		}
	}
}

func sampleBatch(c anyvec.Creator, xData, yData []float64, rows,
	batch, inCols, outCols int, rng *rand.Rand) (ins,
	outs anyvec.Vector) {
	if batch == rows {
		return anyvec.Make(c, xData), anyvec.Make(c, yData)
	}
	xs := make([]float64, batch*inCols)
	ys := make([]float64, batch*outCols)
	for i := 0; i < batch; i++ {
		row := rng.Intn(rows)
		copy(xs[i*inCols:], xData[row*inCols:(row+1)*inCols])
		copy(ys[i*outCols:], yData[row*outCols:(row+1)*outCols])
	}
	return anyvec.Make(c, xs), anyvec.Make(c, ys)
}

func normalizeRows(c anyvec.Creator, data, mean,
	invStd anyvec.Vector, rows, cols int) []float64 {
	d := c.Float64Slice(data.Data())
	m := c.Float64Slice(mean.Data())
	is := c.Float64Slice(invStd.Data())
	out := make([]float64, len(d))
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			out[r*cols+col] = (d[r*cols+col] - m[col]) * is[col]
		}
	}
	return out
}
