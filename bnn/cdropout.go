package bnn

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/serializer"
)

func init() {
	var c CDropout
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCDropout)
}

// CDropout is a concrete dropout layer: the keep
// probability is a learned parameter, and masks are drawn
// with the Gumbel-sigmoid relaxation so that gradients
// flow into the dropout rate (Gal, Hron & Kendall,
// "Concrete Dropout", 2017).
type CDropout struct {
	// LogitP is the unconstrained logit of the keep
	// probability, a single learned value.
	LogitP *anydiff.Var

	// Temperature controls how sharply the relaxed masks
	// approach binary values.
	Temperature float64

	// RegScale scales the regularization penalties.
	RegScale float64

	// Eval reuses (and detaches) the last relaxed mask
	// instead of recomputing it on every application.
	Eval bool

	noise    anyvec.Vector
	concrete anydiff.Res
}

// NewCDropout creates a CDropout layer with the given
// initial drop rate and temperature, and a regularizer
// scale of 1.
func NewCDropout(c anyvec.Creator, rate, temperature float64) *CDropout {
	logit := -math.Log(1/(1-rate) - 1)
	return &CDropout{
		LogitP:      anydiff.NewVar(anyvec.Make(c, []float64{logit})),
		Temperature: temperature,
		RegScale:    1,
	}
}

// DeserializeCDropout deserializes a CDropout.
func DeserializeCDropout(d []byte) (*CDropout, error) {
	var logit *anyvecsave.S
	var temp, regScale float64
	if err := serializer.DeserializeAny(d, &logit, &temp, &regScale); err != nil {
		return nil, err
	}
	return &CDropout{
		LogitP:      anydiff.NewVar(logit.Vector),
		Temperature: temp,
		RegScale:    regScale,
	}, nil
}

// Apply applies the layer with its held base noise.
func (d *CDropout) Apply(in anydiff.Res, n int) anydiff.Res {
	return d.ApplyMask(in, n, false)
}

// ApplyMask applies the layer. When resample is true, a
// transient uniform draw replaces the held base noise for
// this call only. Outside of Eval mode the relaxed mask is
// recomputed on every call so that gradients reach LogitP.
func (d *CDropout) ApplyMask(in anydiff.Res, n int, resample bool) anydiff.Res {
	c := in.Output().Creator()
	length := in.Output().Len()
	if resample {
		transient := d.concreteMask(uniform(c, length))
		if d.Eval {
			return anydiff.Mul(in, anydiff.NewConst(transient.Output()))
		}
		return anydiff.Mul(in, transient)
	}
	if d.noise == nil || d.noise.Len() != length {
		d.noise = uniform(c, length)
		d.concrete = nil
	}
	if !d.Eval {
		d.concrete = d.concreteMask(d.noise)
		return anydiff.Mul(in, d.concrete)
	}
	if d.concrete == nil {
		d.concrete = d.concreteMask(d.noise)
	}
	return anydiff.Mul(in, anydiff.NewConst(d.concrete.Output()))
}

// Resample redraws the held base noise and the relaxed
// mask derived from it, keeping the shape.
func (d *CDropout) Resample() {
	if d.noise != nil {
		d.noise = uniform(d.noise.Creator(), d.noise.Len())
		d.concrete = d.concreteMask(d.noise)
	}
}

// KeepProb returns the current keep probability.
func (d *CDropout) KeepProb() float64 {
	c := d.LogitP.Vector.Creator()
	logit := c.Float64Slice(d.LogitP.Vector.Data())[0]
	return 1 / (1 + math.Exp(-logit))
}

// Parameters returns the learned logit keep probability.
func (d *CDropout) Parameters() []*anydiff.Var {
	return []*anydiff.Var{d.LogitP}
}

// WeightsRegularizer computes 0.5*RegScale^2*p times the
// squared weight norm, minus the binary entropy of p,
// where p is the learned keep probability.
func (d *CDropout) WeightsRegularizer(w *anydiff.Var) anydiff.Res {
	c := w.Vector.Creator()
	return anydiff.Pool(sigmoid(d.LogitP), func(p anydiff.Res) anydiff.Res {
		penalty := anydiff.Scale(anydiff.Mul(sumSquares(w), p),
			c.MakeNumeric(0.5*d.RegScale*d.RegScale))
		return anydiff.Sub(penalty, binaryEntropy(p))
	})
}

// BiasesRegularizer computes 0.5*RegScale^2 times the
// squared norm of the biases.
func (d *CDropout) BiasesRegularizer(bs *anydiff.Var) anydiff.Res {
	c := bs.Vector.Creator()
	coeff := 0.5 * d.RegScale * d.RegScale
	return anydiff.Scale(sumSquares(bs), c.MakeNumeric(coeff))
}

// SerializerType returns the unique ID used to serialize
// a CDropout with the serializer package.
func (d *CDropout) SerializerType() string {
	return "github.com/DanielLSM/prob-mbrl/bnn.CDropout"
}

// Serialize serializes the layer.
func (d *CDropout) Serialize() ([]byte, error) {
	return serializer.SerializeAny(&anyvecsave.S{Vector: d.LogitP.Vector},
		d.Temperature, d.RegScale)
}

func (d *CDropout) concreteMask(noise anyvec.Vector) anydiff.Res {
	c := noise.Creator()
	u := c.Float64Slice(noise.Data())
	logits := make([]float64, len(u))
	for i, x := range u {
		logits[i] = math.Log(x) - math.Log(1-x)
	}
	shifted := anydiff.AddRepeated(anydiff.NewConst(anyvec.Make(c, logits)),
		d.LogitP)
	return sigmoid(anydiff.Scale(shifted, c.MakeNumeric(1/d.Temperature)))
}

// binaryEntropy computes -p*log(p) - (1-p)*log(1-p).
func binaryEntropy(p anydiff.Res) anydiff.Res {
	c := p.Output().Creator()
	oneMinus := anydiff.AddScalar(anydiff.Scale(p, c.MakeNumeric(-1)),
		c.MakeNumeric(1))
	return anydiff.Pool(oneMinus, func(q anydiff.Res) anydiff.Res {
		ent := anydiff.Add(anydiff.Mul(p, logarithm(p)),
			anydiff.Mul(q, logarithm(q)))
		return anydiff.Scale(ent, c.MakeNumeric(-1))
	})
}
