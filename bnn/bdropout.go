package bnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/serializer"
)

func init() {
	var b BDropout
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBDropout)
}

// BDropout is a binary dropout layer with the weight and
// bias regularizers derived in Gal & Ghahramani, "Dropout
// as a Bayesian Approximation" (2015).
//
// The held mask covers the full input batch, so every
// particle in a batch keeps its own sampled sub-network
// until the mask is redrawn.
//
// Unlike inverted dropout, kept activations are not scaled
// up by 1/(1-Rate).
type BDropout struct {
	// Rate is the drop probability; 1-Rate is the
	// probability of keeping an activation.
	Rate float64

	// RegScale scales the regularization penalties.
	RegScale float64

	mask anyvec.Vector
}

// NewBDropout creates a BDropout layer with the given drop
// rate and a regularizer scale of 1.
func NewBDropout(rate float64) *BDropout {
	return &BDropout{Rate: rate, RegScale: 1}
}

// DeserializeBDropout deserializes a BDropout.
func DeserializeBDropout(d []byte) (*BDropout, error) {
	var res BDropout
	if err := serializer.DeserializeAny(d, &res.Rate, &res.RegScale); err != nil {
		return nil, err
	}
	return &res, nil
}

// Apply applies the held mask to the input, drawing a new
// mask first if the input shape changed.
func (b *BDropout) Apply(in anydiff.Res, n int) anydiff.Res {
	return b.ApplyMask(in, n, false)
}

// ApplyMask applies the layer. When resample is true and
// the held mask already matches the input shape, a
// transient mask is drawn for this call only.
func (b *BDropout) ApplyMask(in anydiff.Res, n int, resample bool) anydiff.Res {
	c := in.Output().Creator()
	length := in.Output().Len()
	if b.mask == nil || b.mask.Len() != length {
		b.mask = bernoulli(c, 1-b.Rate, length)
	} else if resample {
		return anydiff.Mul(in, anydiff.NewConst(bernoulli(c, 1-b.Rate, length)))
	}
	return anydiff.Mul(in, anydiff.NewConst(b.mask))
}

// Resample redraws the held mask, keeping its shape.
func (b *BDropout) Resample() {
	if b.mask != nil {
		b.mask = bernoulli(b.mask.Creator(), 1-b.Rate, b.mask.Len())
	}
}

// WeightsRegularizer computes 0.5*RegScale^2*(1-Rate) times
// the squared norm of the weights.
func (b *BDropout) WeightsRegularizer(w *anydiff.Var) anydiff.Res {
	c := w.Vector.Creator()
	coeff := 0.5 * b.RegScale * b.RegScale * (1 - b.Rate)
	return anydiff.Scale(sumSquares(w), c.MakeNumeric(coeff))
}

// BiasesRegularizer computes 0.5*RegScale^2 times the
// squared norm of the biases.
func (b *BDropout) BiasesRegularizer(bs *anydiff.Var) anydiff.Res {
	c := bs.Vector.Creator()
	coeff := 0.5 * b.RegScale * b.RegScale
	return anydiff.Scale(sumSquares(bs), c.MakeNumeric(coeff))
}

// SerializerType returns the unique ID used to serialize
// a BDropout with the serializer package.
func (b *BDropout) SerializerType() string {
	return "github.com/DanielLSM/prob-mbrl/bnn.BDropout"
}

// Serialize serializes the layer.
func (b *BDropout) Serialize() ([]byte, error) {
	return serializer.SerializeAny(b.Rate, b.RegScale)
}
