package probmbrl

// Rewards holds the per-timestep rewards for a batch of
// episodes.
type Rewards [][]float64

// EpisodeRewards collects the reward sequences of the
// recorded episodes.
func EpisodeRewards(eps []*Episode) Rewards {
	res := make(Rewards, len(eps))
	for i, ep := range eps {
		res[i] = append([]float64{}, ep.Rewards...)
	}
	return res
}

// Totals sums each episode's rewards.
func (r Rewards) Totals() []float64 {
	res := make([]float64, len(r))
	for i, seq := range r {
		for _, x := range seq {
			res[i] += x
		}
	}
	return res
}

// Mean computes the mean of the episode totals.
func (r Rewards) Mean() float64 {
	var sum float64
	for _, total := range r.Totals() {
		sum += total
	}
	return sum / float64(len(r))
}
