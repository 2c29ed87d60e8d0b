package probmbrl

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// An InitialStateSource samples batches of initial
// particle states.
type InitialStateSource interface {
	SampleInitialStates(c anyvec.Creator, n int) anyvec.Vector
}

// MCPilco optimizes a policy by gradient descent through
// differentiable particle rollouts, the Monte-Carlo PILCO
// algorithm.
type MCPilco struct {
	// Params are the policy parameters to optimize.
	Params []*anydiff.Var

	Policy PolicyFunc
	Step   StepFunc

	// Resample redraws the dropout masks and held noise
	// of the policy and dynamics model.
	Resample func()

	// Horizon is the rollout length and Iters the number
	// of gradient steps.
	Horizon int
	Iters   int

	// Pegasus fixes the rollout noise and the dropout
	// masks across iterations, so that successive
	// rollouts differ only through the policy parameters.
	Pegasus  bool
	PoolSeed int64

	// MMStates and MMRewards enable per-step moment
	// matching of the particle states and rewards.
	MMStates  bool
	MMRewards bool

	// Maximize flips the loss sign so that rollout
	// rewards are ascended rather than descended.
	Maximize bool

	// ClipGrad, when positive, rescales gradients whose
	// norm exceeds it.
	ClipGrad float64

	StepSize    float64
	Transformer anysgd.Transformer

	// Source, when non-nil, redraws the initial particle
	// states every iteration.
	Source InitialStateSource

	// InitStateNoise perturbs the initial states by this
	// fraction of their per-column standard deviation.
	InitStateNoise float64

	// OnIteration, if non-nil, is called after every step
	// with the time-averaged rollout loss.
	OnIteration func(iter int, loss float64)
}

// Run performs the optimization, starting rollouts of n
// particles from initStates (n rows).
func (m *MCPilco) Run(initStates anyvec.Vector, n int) {
	c := initStates.Creator()
	dim := initStates.Len() / n

	// Masks stay fixed within a rollout; Resample redraws
	// them between iterations when not running pegasus.
	roller := &Roller{
		Policy:    m.Policy,
		Step:      m.Step,
		MMStates:  m.MMStates,
		MMRewards: m.MMRewards,
	}
	if m.Pegasus {
		roller.Noise = NewNoisePool(c, m.PoolSeed, m.Horizon+n, dim)
		if m.Resample != nil {
			m.Resample()
		}
	}

	for iter := 0; iter < m.Iters; iter++ {
		if !m.Pegasus && m.Resample != nil {
			m.Resample()
		}
		states := initStates
		if m.Source != nil {
			states = m.Source.SampleInitialStates(c, n)
		}
		states = m.perturb(c, states, n, dim)

		traj := roller.Rollout(states, n, m.Horizon)
		loss := anydiff.Scale(traj.RewardTotal,
			c.MakeNumeric(1/float64(m.Horizon)))
		if m.Maximize {
			loss = anydiff.Scale(loss, c.MakeNumeric(-1))
		}

		grad := anydiff.NewGrad(m.Params...)
		one := c.MakeVector(1)
		one.AddScalar(c.MakeNumeric(1))
		loss.Propagate(one, grad)

		if m.ClipGrad > 0 {
			clipGradNorm(c, grad, m.ClipGrad)
		}
		g := grad
		if m.Transformer != nil {
			g = m.Transformer.Transform(grad)
		}
		g.Scale(c.MakeNumeric(-m.StepSize))
		g.AddToVars()

		if m.OnIteration != nil {
			lossVal := c.Float64Slice(loss.Output().Data())[0]
			m.OnIteration(iter, lossVal)
		}
	}
}

// perturb adds InitStateNoise times the batch's per-column
// standard deviation of Gaussian noise to each state.
func (m *MCPilco) perturb(c anyvec.Creator, states anyvec.Vector,
	n, dim int) anyvec.Vector {
	if m.InitStateNoise == 0 {
		return states
	}
	data := c.Float64Slice(states.Data())
	std := make([]float64, dim)
	for col := 0; col < dim; col++ {
		var sum float64
		for row := 0; row < n; row++ {
			sum += data[row*dim+col]
		}
		mean := sum / float64(n)
		var sq float64
		for row := 0; row < n; row++ {
			diff := data[row*dim+col] - mean
			sq += diff * diff
		}
		std[col] = math.Sqrt(sq / float64(n))
	}
	noise := c.Float64Slice(normalVec(c, n*dim).Data())
	out := make([]float64, len(data))
	for row := 0; row < n; row++ {
		for col := 0; col < dim; col++ {
			i := row*dim + col
			out[i] = data[i] + m.InitStateNoise*std[col]*noise[i]
		}
	}
	return anyvec.Make(c, out)
}

// clipGradNorm rescales the gradient in place when its
// global norm exceeds bound.
func clipGradNorm(c anyvec.Creator, grad anydiff.Grad, bound float64) {
	var sqSum float64
	for _, v := range grad {
		for _, x := range c.Float64Slice(v.Data()) {
			sqSum += x * x
		}
	}
	norm := math.Sqrt(sqSum)
	if norm > bound {
		grad.Scale(c.MakeNumeric(bound / norm))
	}
}
