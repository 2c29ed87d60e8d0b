package probmbrl

import (
	"math/rand"

	"github.com/unixpickle/anyvec"
)

// A NoisePool holds pre-generated standard normal draws so
// that repeated rollouts see identical randomness, the
// trick behind PEGASUS-style variance reduction.
//
// The pool holds three independent banks of rows: one for
// moment-matching draws, one for state measurement noise,
// and one for reward measurement noise. Indices wrap
// around modulo the pool size.
type NoisePool struct {
	rows int
	dim  int

	mm        anyvec.Vector
	mmRewards anyvec.Vector
	states    anyvec.Vector
	rewards   anyvec.Vector
}

// NewNoisePool generates a pool of rows noise rows of the
// given dimensionality, seeded deterministically.
func NewNoisePool(c anyvec.Creator, seed int64, rows, dim int) *NoisePool {
	rng := rand.New(rand.NewSource(seed))
	gen := func(n int) anyvec.Vector {
		data := make([]float64, n)
		for i := range data {
			data[i] = rng.NormFloat64()
		}
		return anyvec.Make(c, data)
	}
	return &NoisePool{
		rows:      rows,
		dim:       dim,
		mm:        gen(rows * dim),
		mmRewards: gen(rows),
		states:    gen(rows * dim),
		rewards:   gen(rows),
	}
}

// Rows returns the number of rows in each bank.
func (n *NoisePool) Rows() int {
	return n.rows
}

// Dim returns the state dimensionality of the pool.
func (n *NoisePool) Dim() int {
	return n.dim
}

// MM fetches count consecutive moment-matching noise rows
// starting at index i, wrapping modulo the pool size.
func (n *NoisePool) MM(i, count int) anyvec.Vector {
	return n.fetch(n.mm, n.dim, i, count)
}

// MMRewards fetches count consecutive reward
// moment-matching entries starting at index i, wrapping
// modulo the pool size.
func (n *NoisePool) MMRewards(i, count int) anyvec.Vector {
	return n.fetch(n.mmRewards, 1, i, count)
}

// States fetches count consecutive state noise rows
// starting at index i, wrapping modulo the pool size.
func (n *NoisePool) States(i, count int) anyvec.Vector {
	return n.fetch(n.states, n.dim, i, count)
}

// Rewards fetches count consecutive reward noise entries
// starting at index i, wrapping modulo the pool size.
func (n *NoisePool) Rewards(i, count int) anyvec.Vector {
	return n.fetch(n.rewards, 1, i, count)
}

func (n *NoisePool) fetch(bank anyvec.Vector, dim, i, count int) anyvec.Vector {
	c := bank.Creator()
	var parts []anyvec.Vector
	for count > 0 {
		start := ((i % n.rows) + n.rows) % n.rows
		take := count
		if start+take > n.rows {
			take = n.rows - start
		}
		parts = append(parts, bank.Slice(start*dim, (start+take)*dim))
		i += take
		count -= take
	}
	if len(parts) == 1 {
		return parts[0].Copy()
	}
	return c.Concat(parts...)
}
