package probmbrl

import (
	"math/rand"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/lazyseq"
)

// An Episode is one recorded trajectory through an
// environment.
//
// The observation tape holds one more entry than the
// action tape and reward list, since the terminal
// observation is recorded.
type Episode struct {
	Observations lazyseq.Tape
	Actions      lazyseq.Tape
	Rewards      []float64
}

// NewEpisode records observations, actions, and rewards
// into tapes.
func NewEpisode(c anyvec.Creator, observations, actions []anyvec.Vector,
	rewards []float64) *Episode {
	return &Episode{
		Observations: recordTape(c, observations),
		Actions:      recordTape(c, actions),
		Rewards:      append([]float64{}, rewards...),
	}
}

// NumSteps returns the number of transitions in the
// episode.
func (e *Episode) NumSteps() int {
	return len(e.Rewards)
}

// Experience is the replay memory of recorded episodes
// used to fit dynamics models and to sample initial
// states.
type Experience struct {
	Creator  anyvec.Creator
	Episodes []*Episode

	// Rng, when non-nil, drives initial state sampling.
	Rng *rand.Rand
}

// Append adds an episode to the memory.
func (e *Experience) Append(ep *Episode) {
	e.Episodes = append(e.Episodes, ep)
}

// NumSteps counts the transitions across all episodes.
func (e *Experience) NumSteps() int {
	var count int
	for _, ep := range e.Episodes {
		count += ep.NumSteps()
	}
	return count
}

// SampleInitialStates draws n initial observations from
// random episodes, with replacement.
func (e *Experience) SampleInitialStates(c anyvec.Creator,
	n int) anyvec.Vector {
	if len(e.Episodes) == 0 {
		panic("experience: no episodes")
	}
	intn := rand.Intn
	if e.Rng != nil {
		intn = e.Rng.Intn
	}
	var parts []anyvec.Vector
	for i := 0; i < n; i++ {
		ep := e.Episodes[intn(len(e.Episodes))]
		for batch := range ep.Observations.ReadTape(0, 1) {
			parts = append(parts, batch.Packed.Copy())
		}
	}
	return c.Concat(parts...)
}

// DynamicsDataset flattens the episodes into transition
// rows for fitting a dynamics model.
//
// Inputs are observation-action concatenations. Targets
// are the next observations, or observation deltas when
// deltas is set, with the step reward appended as a final
// column when includeRewards is set.
func (e *Experience) DynamicsDataset(deltas,
	includeRewards bool) (ins, outs anyvec.Vector, rows int) {
	c := e.Creator
	var inData, outData []float64
	for _, ep := range e.Episodes {
		obs := tapeRows(c, ep.Observations)
		acts := tapeRows(c, ep.Actions)
		for t := 0; t < ep.NumSteps(); t++ {
			inData = append(inData, obs[t]...)
			inData = append(inData, acts[t]...)
			next := obs[t+1]
			if deltas {
				next = append([]float64{}, next...)
				for i, x := range obs[t] {
					next[i] -= x
				}
			}
			outData = append(outData, next...)
			if includeRewards {
				outData = append(outData, ep.Rewards[t])
			}
			rows++
		}
	}
	return anyvec.Make(c, inData), anyvec.Make(c, outData), rows
}

func recordTape(c anyvec.Creator, vecs []anyvec.Vector) lazyseq.Tape {
	tape, writer := lazyseq.ReferenceTape(c)
	for _, v := range vecs {
		writer <- &anyseq.Batch{
			Present: []bool{true},
			Packed:  v.Copy(),
		}
	}
	close(writer)
	return tape
}

func tapeRows(c anyvec.Creator, tape lazyseq.Tape) [][]float64 {
	var rows [][]float64
	for batch := range tape.ReadTape(0, -1) {
		rows = append(rows, c.Float64Slice(batch.Packed.Data()))
	}
	return rows
}
