package bnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/serializer"
)

func init() {
	var n Net
	serializer.RegisterTypedDeserializer(n.SerializerType(), DeserializeNet)
}

// A Net is a chain of layers, some of which may be
// Stochastic.
type Net []anynet.Layer

// DeserializeNet deserializes a Net.
func DeserializeNet(d []byte) (Net, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	res := make(Net, len(slice))
	for i, s := range slice {
		layer, ok := s.(anynet.Layer)
		if !ok {
			return nil, fmt.Errorf("deserialize Net: not a Layer: %T", s)
		}
		res[i] = layer
	}
	return res, nil
}

// NewMLP creates a fully-connected network. Each hidden
// layer is followed by the activation and, when drop is
// non-nil, the stochastic layer drop(i) gating the next
// affine layer.
func NewMLP(c anyvec.Creator, in, out int, hidden []int,
	drop func(i int) Stochastic, activation anynet.Layer) Net {
	var res Net
	last := in
	for i, h := range hidden {
		res = append(res, anynet.NewFC(c, last, h), activation)
		if drop != nil {
			if d := drop(i); d != nil {
				res = append(res, d)
			}
		}
		last = h
	}
	return append(res, anynet.NewFC(c, last, out))
}

// Apply applies the chain, reusing held masks.
func (n Net) Apply(in anydiff.Res, batch int) anydiff.Res {
	return n.ApplyMask(in, batch, false)
}

// ApplyMask applies the chain, forwarding the resample
// flag to every stochastic layer.
func (n Net) ApplyMask(in anydiff.Res, batch int, resample bool) anydiff.Res {
	for _, layer := range n {
		if s, ok := layer.(Stochastic); ok {
			in = s.ApplyMask(in, batch, resample)
		} else {
			in = layer.Apply(in, batch)
		}
	}
	return in
}

// Resample redraws the held mask of every stochastic
// layer.
func (n Net) Resample() {
	for _, layer := range n {
		if s, ok := layer.(Stochastic); ok {
			s.Resample()
		}
	}
}

// Regularize computes the total regularization penalty by
// pairing each stochastic layer with the first
// fully-connected layer after it in the chain. A
// stochastic layer with no following fully-connected layer
// contributes nothing.
func (n Net) Regularize(c anyvec.Creator) anydiff.Res {
	var sum anydiff.Res = anydiff.NewConst(c.MakeVector(1))
	for i, layer := range n {
		s, ok := layer.(Stochastic)
		if !ok {
			continue
		}
		for _, next := range n[i+1:] {
			if fc, ok := next.(*anynet.FC); ok {
				sum = anydiff.Add(sum, s.WeightsRegularizer(fc.Weights))
				sum = anydiff.Add(sum, s.BiasesRegularizer(fc.Biases))
				break
			}
		}
	}
	return sum
}

// Parameters returns the parameters of every layer which
// implements anynet.Parameterizer.
func (n Net) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, layer := range n {
		if p, ok := layer.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Net with the serializer package.
func (n Net) SerializerType() string {
	return "github.com/DanielLSM/prob-mbrl/bnn.Net"
}

// Serialize attempts to serialize the Net, failing if any
// layer is not a serializer.Serializer.
func (n Net) Serialize() ([]byte, error) {
	var slice []serializer.Serializer
	for _, layer := range n {
		s, ok := layer.(serializer.Serializer)
		if !ok {
			return nil, fmt.Errorf("serialize Net: not a Serializer: %T", layer)
		}
		slice = append(slice, s)
	}
	return serializer.SerializeSlice(slice)
}
