package probmbrl

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

// linearWorld is a deterministic toy transition: the state
// decays and the action is added, with the reward being
// the negated squared first state column.
func linearWorld(states, actions anydiff.Res, n int, resample bool,
	stateNoise, rewardNoise anyvec.Vector) (anydiff.Res, anydiff.Res) {
	c := states.Output().Creator()
	next := anydiff.Add(anydiff.Scale(states, c.MakeNumeric(0.9)), actions)
	sq := anydiff.Mul(states, states)
	rewards := anydiff.Scale(anydiff.SumCols(&anydiff.Matrix{
		Data: sq,
		Rows: n,
		Cols: states.Output().Len() / n,
	}), c.MakeNumeric(-1))
	return next, rewards
}

func scaledPolicy(v *anydiff.Var) PolicyFunc {
	return func(states anydiff.Res, n int, resample bool) anydiff.Res {
		return anydiff.Mul(states, anydiff.AddRepeated(
			anydiff.NewConst(states.Output().Creator().
				MakeVector(states.Output().Len())), v))
	}
}

func TestRolloutRewardTotal(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	gain := anydiff.NewVar(anyvec.Make(c, []float64{0, 0}))

	roller := &Roller{
		Policy: scaledPolicy(gain),
		Step:   linearWorld,
	}
	init := anyvec.Make(c, []float64{
		1, 2,
		-1, 0,
	})
	traj := roller.Rollout(init, 2, 3)

	if len(traj.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(traj.Steps))
	}

	// With a zero policy the states decay by 0.9 each
	// step; rewards are the mean negated squared norms.
	var expected float64
	rows := [][]float64{{1, 2}, {-1, 0}}
	for step := 0; step < 3; step++ {
		var stepReward float64
		for _, row := range rows {
			stepReward -= row[0]*row[0] + row[1]*row[1]
		}
		expected += stepReward / 2
		for _, row := range rows {
			row[0] *= 0.9
			row[1] *= 0.9
		}
	}
	total := c.Float64Slice(traj.RewardTotal.Output().Data())[0]
	if math.Abs(total-expected) > 1e-9 {
		t.Errorf("reward total %f should be %f", total, expected)
	}
}

func TestRolloutGradient(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	gain := anydiff.NewVar(anyvec.Make(c, []float64{0.1, -0.2}))

	roller := &Roller{
		Policy: scaledPolicy(gain),
		Step:   linearWorld,
	}
	init := anyvec.Make(c, []float64{1, 2, -1, 0.5})

	objective := func(g []float64) float64 {
		gain.Vector.SetData(c.MakeNumericList(g))
		traj := roller.Rollout(init, 2, 4)
		return c.Float64Slice(traj.RewardTotal.Output().Data())[0]
	}
	base := append([]float64{}, c.Float64Slice(gain.Vector.Data())...)

	const eps = 1e-6
	expected := make([]float64, len(base))
	for i := range base {
		shifted := append([]float64{}, base...)
		shifted[i] += eps
		plus := objective(shifted)
		shifted[i] -= 2 * eps
		minus := objective(shifted)
		expected[i] = (plus - minus) / (2 * eps)
	}
	objective(base)

	traj := roller.Rollout(init, 2, 4)
	grad := anydiff.NewGrad(gain)
	oneVec := c.MakeVector(1)
	oneVec.AddScalar(c.MakeNumeric(1))
	traj.RewardTotal.Propagate(oneVec, grad)
	actual := c.Float64Slice(grad[gain].Data())

	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-4 {
			t.Errorf("gradient %d: got %f, expected %f", i, actual[i], x)
		}
	}
}

func TestRolloutFixedNoiseDeterminism(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	gain := anydiff.NewVar(anyvec.Make(c, []float64{0.1, 0.1}))

	noisyStep := func(states, actions anydiff.Res, n int, resample bool,
		stateNoise, rewardNoise anyvec.Vector) (anydiff.Res, anydiff.Res) {
		next, rewards := linearWorld(states, actions, n, resample,
			stateNoise, rewardNoise)
		next = anydiff.Add(next, anydiff.NewConst(stateNoise))
		return next, rewards
	}

	pool := NewNoisePool(c, 77, 6+4, 2)
	roller := &Roller{
		Policy:    scaledPolicy(gain),
		Step:      noisyStep,
		MMStates:  true,
		MMRewards: true,
		Noise:     pool,
	}
	init := anyvec.Make(c, []float64{1, 0, 0, 1, 0.5, 0.5, -1, 2})

	t1 := roller.Rollout(init, 4, 6)
	t2 := roller.Rollout(init, 4, 6)
	assertVecsEqual(t, c, t1.RewardTotal.Output(), t2.RewardTotal.Output())
	for i := range t1.Steps {
		assertVecsEqual(t, c, t1.Steps[i].States, t2.Steps[i].States)
		assertVecsEqual(t, c, t1.Steps[i].Actions, t2.Steps[i].Actions)
		assertVecsEqual(t, c, t1.Steps[i].Rewards, t2.Steps[i].Rewards)
	}
}

func TestRolloutDoesNotMutateInput(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	gain := anydiff.NewVar(anyvec.Make(c, []float64{0.3, 0.3}))

	roller := &Roller{
		Policy: scaledPolicy(gain),
		Step:   linearWorld,
	}
	init := anyvec.Make(c, []float64{1, 2, 3, 4})
	before := append([]float64{}, c.Float64Slice(init.Data())...)
	roller.Rollout(init, 2, 3)
	after := c.Float64Slice(init.Data())
	for i, x := range before {
		if after[i] != x {
			t.Fatalf("input entry %d changed from %f to %f", i, x, after[i])
		}
	}
}
