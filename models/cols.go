// Package models provides probabilistic regressors,
// dynamics models, and policies built on stochastic
// networks, for use in particle-based model rollouts.
package models

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// sliceCols extracts columns [start, end) of an n-row
// matrix, differentiably, via a constant selection matrix.
func sliceCols(in anydiff.Res, rows, cols, start, end int) anydiff.Res {
	c := in.Output().Creator()
	width := end - start
	sel := make([]float64, cols*width)
	for i := start; i < end; i++ {
		sel[i*width+(i-start)] = 1
	}
	inMat := &anydiff.Matrix{Data: in, Rows: rows, Cols: cols}
	selMat := &anydiff.Matrix{
		Data: anydiff.NewConst(anyvec.Make(c, sel)),
		Rows: cols,
		Cols: width,
	}
	return anydiff.MatMul(false, false, inMat, selMat).Data
}

// concatCols horizontally concatenates two matrices with
// the same number of rows.
func concatCols(a, b anydiff.Res, rows, aCols, bCols int) anydiff.Res {
	c := a.Output().Creator()
	out := aCols + bCols
	padA := make([]float64, aCols*out)
	for i := 0; i < aCols; i++ {
		padA[i*out+i] = 1
	}
	padB := make([]float64, bCols*out)
	for i := 0; i < bCols; i++ {
		padB[i*out+aCols+i] = 1
	}
	aMat := &anydiff.Matrix{Data: a, Rows: rows, Cols: aCols}
	bMat := &anydiff.Matrix{Data: b, Rows: rows, Cols: bCols}
	ra := anydiff.MatMul(false, false, aMat, &anydiff.Matrix{
		Data: anydiff.NewConst(anyvec.Make(c, padA)),
		Rows: aCols,
		Cols: out,
	})
	rb := anydiff.MatMul(false, false, bMat, &anydiff.Matrix{
		Data: anydiff.NewConst(anyvec.Make(c, padB)),
		Rows: bCols,
		Cols: out,
	})
	return anydiff.Add(ra.Data, rb.Data)
}

// tileRows repeats a row vector for the given number of
// rows.
func tileRows(v anyvec.Vector, rows int) anyvec.Vector {
	out := v.Creator().MakeVector(v.Len() * rows)
	anyvec.AddRepeated(out, v)
	return out
}

func normal(c anyvec.Creator, n int) anyvec.Vector {
	v := c.MakeVector(n)
	anyvec.Rand(v, anyvec.Normal, nil)
	return v
}
