package models

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A RewardFunc computes per-particle rewards from a batch
// of n state rows, producing an n-component result.
type RewardFunc func(states anydiff.Res, n int) anydiff.Res

// A DynamicsModel predicts state transitions and rewards.
//
// When Reward is nil the model is co-trained on rewards:
// the last target column is the reward and the remaining
// columns are the state (or state delta). Otherwise Reward
// is evaluated on the states preceding the transition.
type DynamicsModel struct {
	Regressor

	Reward RewardFunc

	// Observed reward bounds, tracked from the last
	// target column by SetDataset.
	MinReward float64
	MaxReward float64
}

// SetDataset attaches the transition dataset and records
// the reward range from the last target column.
func (d *DynamicsModel) SetDataset(ins, outs anyvec.Vector, rows int) {
	d.Regressor.SetDataset(ins, outs, rows)
	data := outs.Creator().Float64Slice(outs.Data())
	cols := d.NumOut
	d.MinReward = math.Inf(1)
	d.MaxReward = math.Inf(-1)
	for r := 0; r < rows; r++ {
		rew := data[r*cols+cols-1]
		d.MinReward = math.Min(d.MinReward, rew)
		d.MaxReward = math.Max(d.MaxReward, rew)
	}
}

// StateDims returns the number of raw state columns the
// model transitions over.
func (d *DynamicsModel) StateDims() int {
	if d.Reward == nil {
		return d.NumOut - 1
	}
	return d.NumOut
}

// Step advances n particle states by one transition.
//
// The states and actions are concatenated column-wise and
// fed through the regressor. When deltas is set the model
// output is added to the current states. The stateNoise
// and rewardNoise vectors, when non-nil, supply the
// measurement noise for the state and reward columns; a
// co-trained model interleaves them into a single draw.
func (d *DynamicsModel) Step(states, actions anydiff.Res, n int,
	resample, deltas bool, stateNoise,
	rewardNoise anyvec.Vector) (next, rewards anydiff.Res) {
	stateDims := d.StateDims()
	actDims := actions.Output().Len() / n
	in := concatCols(states, actions, n, stateDims, actDims)

	if d.Reward == nil {
		noise := interleaveNoise(states.Output().Creator(), n,
			stateDims, stateNoise, rewardNoise)
		outs := d.Sample(in, n, resample, noise)
		next = sliceCols(outs, n, stateDims+1, 0, stateDims)
		if deltas {
			next = anydiff.Add(states, next)
		}
		rewards = sliceCols(outs, n, stateDims+1, stateDims,
			stateDims+1)
		return next, rewards
	}

	rewards = d.Reward(states, n)
	next = d.Sample(in, n, resample, stateNoise)
	if deltas {
		next = anydiff.Add(states, next)
	}
	return next, rewards
}

// Predict returns the predicted output distribution for a
// single state-action pair.
func (d *DynamicsModel) Predict(state, action []float64,
	c anyvec.Creator) (mean, std []float64) {
	in := anydiff.NewConst(anyvec.Make(c,
		append(append([]float64{}, state...), action...)))
	m, s := d.PredictParams(in, 1, false)
	return c.Float64Slice(m.Output().Data()),
		c.Float64Slice(s.Output().Data())
}

// interleaveNoise builds the (stateDims+1)-column noise
// rows for a co-trained model, drawing fresh noise for any
// nil component.
func interleaveNoise(c anyvec.Creator, n, stateDims int,
	stateNoise, rewardNoise anyvec.Vector) anyvec.Vector {
	if stateNoise == nil && rewardNoise == nil {
		return nil
	}
	if stateNoise == nil {
		stateNoise = normal(c, n*stateDims)
	}
	if rewardNoise == nil {
		rewardNoise = normal(c, n)
	}
	sd := c.Float64Slice(stateNoise.Data())
	rd := c.Float64Slice(rewardNoise.Data())
	out := make([]float64, n*(stateDims+1))
	for i := 0; i < n; i++ {
		copy(out[i*(stateDims+1):], sd[i*stateDims:(i+1)*stateDims])
		out[i*(stateDims+1)+stateDims] = rd[i]
	}
	return anyvec.Make(c, out)
}
