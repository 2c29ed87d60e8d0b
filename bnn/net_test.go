package bnn

import (
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestNetResample(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	net := NewMLP(c, 3, 2, []int{16, 16}, func(i int) Stochastic {
		return NewBDropout(0.5)
	}, anynet.Tanh)
	in := anydiff.NewConst(ones(c, 6))

	out1 := net.Apply(in, 2).Output().Copy()
	out2 := net.Apply(in, 2).Output()
	if !vecsEqual(c, out1, out2) {
		t.Error("held masks should give repeatable outputs")
	}

	net.Resample()
	out3 := net.Apply(in, 2).Output()
	if vecsEqual(c, out1, out3) {
		t.Error("Resample did not change the network output")
	}
}

func TestNetRegularizePairing(t *testing.T) {
	c := anyvec64.DefaultCreator{}

	// No stochastic layers: zero penalty.
	plain := NewMLP(c, 3, 2, []int{8}, nil, anynet.Tanh)
	reg := c.Float64Slice(plain.Regularize(c).Output().Data())[0]
	if reg != 0 {
		t.Errorf("plain network penalty %f should be 0", reg)
	}

	// Each dropout layer pairs with the next affine layer.
	net := NewMLP(c, 3, 2, []int{8}, func(i int) Stochastic {
		return NewBDropout(0.5)
	}, anynet.Tanh)
	reg = c.Float64Slice(net.Regularize(c).Output().Data())[0]
	if reg <= 0 {
		t.Errorf("dropout network penalty %f should be positive", reg)
	}

	// A trailing stochastic layer has no affine layer to
	// gate and contributes nothing.
	trailing := Net{NewBDropout(0.5)}
	reg = c.Float64Slice(trailing.Regularize(c).Output().Data())[0]
	if reg != 0 {
		t.Errorf("unpaired dropout penalty %f should be 0", reg)
	}
}

func TestNetParameters(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	net := NewMLP(c, 3, 2, []int{8}, func(i int) Stochastic {
		return NewCDropout(c, 0.1, 0.1)
	}, anynet.Tanh)

	// Two affine layers contribute two weight and two bias
	// vectors; the concrete dropout adds its logit.
	params := net.Parameters()
	if len(params) != 5 {
		t.Errorf("expected 5 parameters, got %d", len(params))
	}
}
