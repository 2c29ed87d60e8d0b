package models

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// ExpandAngles differentiably replaces angle-valued
// columns of an n-row batch with (sin, cos) features. The
// non-angle columns come first in the result, in their
// original order, followed by the sines and then the
// cosines of the angle columns.
func ExpandAngles(in anydiff.Res, rows int, angleDims []int) anydiff.Res {
	if len(angleDims) == 0 {
		return in
	}
	c := in.Output().Creator()
	inCols := in.Output().Len() / rows
	data := c.Float64Slice(in.Output().Data())
	isAngle := angleSet(angleDims)
	outCols := inCols + len(angleDims)
	out := make([]float64, rows*outCols)
	for r := 0; r < rows; r++ {
		row := data[r*inCols : (r+1)*inCols]
		oRow := out[r*outCols : (r+1)*outCols]
		idx := 0
		for col, x := range row {
			if !isAngle[col] {
				oRow[idx] = x
				idx++
			}
		}
		for i, d := range angleDims {
			oRow[idx+i] = math.Sin(row[d])
			oRow[idx+len(angleDims)+i] = math.Cos(row[d])
		}
	}
	return &expandAnglesRes{
		In:        in,
		Rows:      rows,
		InCols:    inCols,
		AngleDims: angleDims,
		OutVec:    anyvec.Make(c, out),
	}
}

type expandAnglesRes struct {
	In        anydiff.Res
	Rows      int
	InCols    int
	AngleDims []int
	OutVec    anyvec.Vector
}

func (e *expandAnglesRes) Output() anyvec.Vector {
	return e.OutVec
}

func (e *expandAnglesRes) Vars() anydiff.VarSet {
	return e.In.Vars()
}

func (e *expandAnglesRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	c := u.Creator()
	upstream := c.Float64Slice(u.Data())
	data := c.Float64Slice(e.In.Output().Data())
	isAngle := angleSet(e.AngleDims)
	outCols := e.InCols + len(e.AngleDims)
	down := make([]float64, e.Rows*e.InCols)
	for r := 0; r < e.Rows; r++ {
		row := data[r*e.InCols : (r+1)*e.InCols]
		uRow := upstream[r*outCols : (r+1)*outCols]
		dRow := down[r*e.InCols : (r+1)*e.InCols]
		idx := 0
		for col := range row {
			if !isAngle[col] {
				dRow[col] = uRow[idx]
				idx++
			}
		}
		for i, d := range e.AngleDims {
			x := row[d]
			dRow[d] += uRow[idx+i]*math.Cos(x) -
				uRow[idx+len(e.AngleDims)+i]*math.Sin(x)
		}
	}
	e.In.Propagate(anyvec.Make(c, down), g)
}

func angleSet(dims []int) map[int]bool {
	res := make(map[int]bool, len(dims))
	for _, d := range dims {
		res[d] = true
	}
	return res
}
