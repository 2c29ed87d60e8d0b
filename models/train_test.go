package models

import (
	"math/rand"
	"testing"

	"github.com/DanielLSM/prob-mbrl/bnn"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestTrainLossDecreases(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	rng := rand.New(rand.NewSource(7))

	// A linear ground truth with mild noise.
	const rows = 200
	inData := make([]float64, rows*2)
	outData := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x, y := rng.NormFloat64(), rng.NormFloat64()
		inData[i*2] = x
		inData[i*2+1] = y
		outData[i] = 2*x - y + 0.01*rng.NormFloat64()
	}

	r := &Regressor{
		Model:   bnn.NewMLP(c, 2, 2, []int{32}, nil, anynet.Tanh),
		Density: &DiagGaussianDensity{Dim: 1},
	}
	r.SetDataset(anyvec.Make(c, inData), anyvec.Make(c, outData), rows)

	var losses []float64
	Train(r, &TrainConfig{
		Iters:       300,
		StepSize:    1e-2,
		Transformer: &anysgd.Adam{},
		OnIteration: func(iter int, loss float64) {
			losses = append(losses, loss)
		},
	}, rng)

	if len(losses) != 300 {
		t.Fatalf("expected 300 losses, got %d", len(losses))
	}
	first := mean(losses[:20])
	last := mean(losses[len(losses)-20:])
	if last >= first {
		t.Errorf("loss went from %f to %f without improving", first, last)
	}
}

func TestTrainMinibatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	rng := rand.New(rand.NewSource(3))

	r := &Regressor{
		Model: bnn.NewMLP(c, 1, 2, []int{8}, func(i int) bnn.Stochastic {
			return bnn.NewCDropout(c, 0.1, 0.1)
		}, anynet.Tanh),
		Density: &DiagGaussianDensity{Dim: 1},
	}
	ins := anyvec.Make(c, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	outs := anyvec.Make(c, []float64{0, 2, 4, 6, 8, 10, 12, 14})
	r.SetDataset(ins, outs, 8)

	var count int
	Train(r, &TrainConfig{
		BatchSize:   4,
		Iters:       10,
		StepSize:    1e-3,
		Transformer: &anysgd.Adam{},
		OnIteration: func(iter int, loss float64) {
			count++
		},
	}, rng)
	if count != 10 {
		t.Errorf("expected 10 iterations, got %d", count)
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
