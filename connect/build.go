// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package connect

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/emer/dendrite/multiens"
	"github.com/emer/dendrite/solver"
	"gonum.org/v1/gonum/mat"
)

// build solves the weights of connection cn
func build(cn *Connection, sv solver.Solver, rng *rand.Rand) (*BuiltConnection, error) {
	np := len(cn.Pre)
	bc := &BuiltConnection{
		PreDimRanges:    make([][2]int, np),
		PreNeuronRanges: make([][2]int, np),
	}

	// sample each source
	pnts := make([]*mat.Dense, np)
	acts := make([]*mat.Dense, np)
	d0, n0 := 0, 0
	for i, p := range cn.Pre {
		d1 := d0 + p.Node.Dims()
		if cn.EvalPoints != nil {
			r, _ := cn.EvalPoints.Dims()
			pnts[i] = mat.DenseCopyOf(cn.EvalPoints.Slice(0, r, d0, d1))
		} else {
			pnts[i] = multiens.EvalPoints(p.Node, cn.NEvalPoints, rng)
		}
		acts[i] = multiens.Activities(p.Node, pnts[i])
		n1 := n0 + multiens.NNeurons(p.Node)
		bc.PreDimRanges[i] = [2]int{d0, d1}
		bc.PreNeuronRanges[i] = [2]int{n0, n1}
		d0, n0 = d1, n1
	}
	ns, _ := pnts[0].Dims()
	for i := 1; i < np; i++ {
		if r, _ := pnts[i].Dims(); r != ns {
			return nil, fmt.Errorf("%w: source 0 has %d points, source %d has %d", ErrEvalPointMismatch, ns, i, r)
		}
	}
	if ns == 0 {
		return nil, fmt.Errorf("no evaluation points")
	}
	bc.NSamples = ns
	nDims, nPre := d0, n0

	// concatenate points, activities and synapse types
	x := mat.NewDense(ns, nDims, nil)
	a := mat.NewDense(ns, nPre, nil)
	types := solver.SynapseTypes{Exc: make([]bool, 0, nPre), Inh: make([]bool, 0, nPre)}
	for i, p := range cn.Pre {
		dr, nr := bc.PreDimRanges[i], bc.PreNeuronRanges[i]
		x.Slice(0, ns, dr[0], dr[1]).(*mat.Dense).Copy(pnts[i])
		a.Slice(0, ns, nr[0], nr[1]).(*mat.Dense).Copy(acts[i])
		exc, inh := multiens.SynapseTypes(p.Node)
		for k := range exc {
			switch p.Sign {
			case Excitatory:
				types.Exc = append(types.Exc, true)
				types.Inh = append(types.Inh, false)
			case Inhibitory:
				types.Exc = append(types.Exc, false)
				types.Inh = append(types.Inh, true)
			default:
				types.Exc = append(types.Exc, exc[k])
				types.Inh = append(types.Inh, inh[k])
			}
		}
	}

	tgt, err := targets(cn, x)
	if err != nil {
		return nil, err
	}
	j, err := targetCurrents(cn, tgt)
	if err != nil {
		return nil, err
	}

	we, wi, err := sv.Solve(a, j, types, rng)
	if err != nil {
		return nil, err
	}

	nPost := cn.Post.NNeurons()
	wExc := mat.NewDense(nPost, nPre, nil)
	wExc.Copy(we.T())
	wInh := mat.NewDense(nPost, nPre, nil)
	wInh.Scale(-1, wi.T())
	bc.Weights = map[Sign]*mat.Dense{Excitatory: wExc, Inhibitory: wInh}
	return bc, nil
}

// targets computes the decoding targets for the points in the rows of x:
// the function output mapped through the transform
func targets(cn *Connection, x *mat.Dense) (*mat.Dense, error) {
	dt, ok := cn.Transform.(*Dense)
	if !ok {
		return nil, fmt.Errorf("%w, got %T", ErrNonDense, cn.Transform)
	}
	ns, nDims := x.Dims()
	y := x
	if cn.Function != nil {
		fd := cn.FuncDims
		if fd <= 0 {
			fd = nDims
		}
		y = mat.NewDense(ns, fd, nil)
		for s := 0; s < ns; s++ {
			v := cn.Function(x.RawRowView(s))
			if len(v) != fd {
				return nil, fmt.Errorf("function returned %d values, expected %d", len(v), fd)
			}
			y.SetRow(s, v)
		}
	}
	_, yd := y.Dims()
	od, err := dt.OutDims(yd)
	if err != nil {
		return nil, err
	}
	if od != cn.Post.Dims() {
		return nil, fmt.Errorf("transform output has %d dimensions, target population has %d", od, cn.Post.Dims())
	}
	return dt.Apply(y), nil
}

// targetCurrents maps target values to post neuron input currents,
// including the bias if it is decoded
func targetCurrents(cn *Connection, tgt *mat.Dense) (*mat.Dense, error) {
	gain, bias := cn.Post.Gain(), cn.Post.Bias()
	for i := range gain {
		if !isFinite(gain[i]) || !isFinite(bias[i]) {
			return nil, fmt.Errorf("%w: neuron %d gain: %g bias: %g", ErrNonFinite, i, gain[i], bias[i])
		}
	}
	j := &mat.Dense{}
	j.Mul(tgt, cn.Post.ScaledEncoders().T())
	if cn.DecodeBias {
		ns, _ := j.Dims()
		for s := 0; s < ns; s++ {
			row := j.RawRowView(s)
			for i := range row {
				row[i] += bias[i]
			}
		}
	}
	return j, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
