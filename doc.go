// Package probmbrl implements model-based reinforcement
// learning with Monte-Carlo probabilistic inference for
// learning control (deep PILCO).
//
// A probabilistic dynamics model is fit to recorded
// experience, and a policy is optimized by differentiating
// through particle rollouts of that model.
package probmbrl
