package probmbrl

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A PolicyFunc maps n state rows to n action rows.
type PolicyFunc func(states anydiff.Res, n int, resample bool) anydiff.Res

// A StepFunc advances n particle states by one transition,
// returning the next states and the n per-particle
// rewards. The noise vectors, when non-nil, supply the
// measurement noise.
type StepFunc func(states, actions anydiff.Res, n int, resample bool,
	stateNoise, rewardNoise anyvec.Vector) (next, rewards anydiff.Res)

// A TimeStep records the detached particle states,
// actions, and rewards at one rollout step.
type TimeStep struct {
	States  anyvec.Vector
	Actions anyvec.Vector
	Rewards anyvec.Vector
}

// A Trajectory is the result of a differentiable rollout.
type Trajectory struct {
	// Steps holds the detached per-step values, one entry
	// per rollout step.
	Steps []TimeStep

	// RewardTotal is the sum over steps of the mean
	// per-particle reward, differentiable with respect to
	// the policy parameters.
	RewardTotal anydiff.Res
}

// A Roller performs differentiable particle rollouts
// through a learned transition model.
type Roller struct {
	Policy PolicyFunc
	Step   StepFunc

	// ResampleModel and ResamplePolicy request transient
	// mask redraws at every step.
	ResampleModel  bool
	ResamplePolicy bool

	// MMStates and MMRewards enable moment matching of
	// the respective quantities after each step.
	MMStates  bool
	MMRewards bool

	// Noise, when non-nil, supplies all per-step noise
	// from a fixed pool indexed by step number. When nil,
	// fresh noise is drawn everywhere.
	Noise *NoisePool

	// NoiseOffset shifts the pool index of step 0.
	NoiseOffset int
}

// Rollout runs a rollout of the given number of steps from
// n particle state rows.
func (r *Roller) Rollout(states anyvec.Vector, n, steps int) *Trajectory {
	c := states.Creator()
	traj := &Trajectory{}
	total := r.step(anydiff.NewConst(states), n, 0, steps, traj)
	if total == nil {
		total = anydiff.NewConst(c.MakeVector(1))
	}
	traj.RewardTotal = total
	return traj
}

// step advances one step and recurses inside a pool of the
// next states, returning the accumulated reward total.
func (r *Roller) step(states anydiff.Res, n, i, steps int,
	traj *Trajectory) anydiff.Res {
	if i == steps {
		return nil
	}
	c := states.Output().Creator()
	actions := r.Policy(states, n, r.ResamplePolicy)
	return anydiff.Pool(actions, func(actions anydiff.Res) anydiff.Res {
		next, rewards := r.Step(states, actions, n, r.ResampleModel,
			r.noise(noiseStates, i, n), r.noise(noiseRewards, i, n))
		if r.MMStates {
			next = MomentMatch(next, n, r.noise(noiseMM, i, n))
		}
		if r.MMRewards {
			rewards = MomentMatch(rewards, n, r.noise(noiseMMRewards, i, n))
		}
		traj.Steps = append(traj.Steps, TimeStep{
			States:  states.Output().Copy(),
			Actions: actions.Output().Copy(),
			Rewards: rewards.Output().Copy(),
		})
		meanReward := anydiff.Scale(anydiff.SumCols(&anydiff.Matrix{
			Data: rewards,
			Rows: 1,
			Cols: n,
		}), c.MakeNumeric(1/float64(n)))
		return anydiff.Pool(next, func(next anydiff.Res) anydiff.Res {
			rest := r.step(next, n, i+1, steps, traj)
			if rest == nil {
				return meanReward
			}
			return anydiff.Add(meanReward, rest)
		})
	})
}

type noiseKind int

const (
	noiseMM noiseKind = iota
	noiseMMRewards
	noiseStates
	noiseRewards
)

// noise fetches a sliding window of pool rows for step i,
// or nil when no pool is attached so that fresh noise is
// drawn.
func (r *Roller) noise(kind noiseKind, i, n int) anyvec.Vector {
	if r.Noise == nil {
		return nil
	}
	idx := r.NoiseOffset + i
	switch kind {
	case noiseMM:
		return r.Noise.MM(idx, n)
	case noiseMMRewards:
		return r.Noise.MMRewards(idx, n)
	case noiseStates:
		return r.Noise.States(idx, n)
	default:
		return r.Noise.Rewards(idx, n)
	}
}
