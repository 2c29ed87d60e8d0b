package probmbrl

import (
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Env is an instance of a control environment.
type Env interface {
	Reset() (observation anyvec.Vector, err error)
	Step(action anyvec.Vector) (observation anyvec.Vector,
		reward float64, done bool, err error)
}

// An Agent maps observations to actions.
type Agent func(observation anyvec.Vector) anyvec.Vector

// RunEpisode runs the agent in the environment for at most
// maxSteps steps and records the transitions.
//
// The recorded episode holds one more observation than
// actions, since the final observation is kept.
func RunEpisode(c anyvec.Creator, env Env, agent Agent,
	maxSteps int) (ep *Episode, err error) {
	defer essentials.AddCtxTo("run episode", &err)
	obs, err := env.Reset()
	if err != nil {
		return nil, err
	}
	var observations []anyvec.Vector
	var actions []anyvec.Vector
	var rewards []float64
	observations = append(observations, obs)
	for i := 0; i < maxSteps; i++ {
		action := agent(obs)
		var reward float64
		var done bool
		obs, reward, done, err = env.Step(action)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
		actions = append(actions, action)
		rewards = append(rewards, reward)
		if done {
			break
		}
	}
	return NewEpisode(c, observations, actions, rewards), nil
}

// RandomAgent returns an Agent that ignores observations
// and samples uniform actions in [low, high] per
// dimension, using the creator's uniform source.
func RandomAgent(c anyvec.Creator, low, high []float64) Agent {
	return func(obs anyvec.Vector) anyvec.Vector {
		v := c.MakeVector(len(low))
		anyvec.Rand(v, anyvec.Uniform, nil)
		data := c.Float64Slice(v.Data())
		for i, u := range data {
			data[i] = low[i] + u*(high[i]-low[i])
		}
		return anyvec.Make(c, data)
	}
}
