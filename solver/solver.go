// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package solver computes connection weights from pre-synaptic activities and
target post-synaptic currents.

A Solver returns separate excitatory and inhibitory weight matrices, both
nonnegative, such that

	A · We - A · Wi ≈ T

where A holds the activities of the pre-synaptic neurons (one sample per row)
and T the target currents of the post-synaptic neurons.  A pre-synaptic
neuron only gets nonzero excitatory (inhibitory) weights if its synapse type
allows it.
*/
package solver

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SynapseTypes are per pre-synaptic neuron flags for whether the neuron
// may form excitatory and inhibitory synapses
type SynapseTypes struct {
	Exc []bool
	Inh []bool
}

// Solver is a weight solving strategy
type Solver interface {
	// Solve returns the excitatory and inhibitory weights, both
	// NPre x NPost, for activities a (NSamples x NPre) and
	// targets (NSamples x NPost).
	Solve(a, targets *mat.Dense, types SynapseTypes, rng *rand.Rand) (we, wi *mat.Dense, err error)
}

// checkArgs validates the shapes and values of the solver arguments
func checkArgs(a, targets *mat.Dense, types SynapseTypes) error {
	ns, npre := a.Dims()
	nt, _ := targets.Dims()
	switch {
	case ns != nt:
		return fmt.Errorf("solver: %d activity samples vs. %d target samples", ns, nt)
	case len(types.Exc) != npre || len(types.Inh) != npre:
		return fmt.Errorf("solver: synapse types for %d, %d neurons, activities for %d", len(types.Exc), len(types.Inh), npre)
	case !finite(a):
		return fmt.Errorf("solver: non-finite activities")
	case !finite(targets):
		return fmt.Errorf("solver: non-finite targets")
	}
	return nil
}

func finite(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// regularization returns the Tikhonov term added to the diagonal of the
// Gram matrix: nsamples * (reg * max(a))^2
func regularization(a *mat.Dense, reg float64) float64 {
	ns, _ := a.Dims()
	sigma := reg * mat.Max(a)
	return float64(ns) * sigma * sigma
}

// LstsqL2 is an unconstrained L2-regularized least squares solver.
// The synapse types are ignored: positive weights are returned as
// excitatory and negative weights as inhibitory.
type LstsqL2 struct {

	// regularization relative to the maximum activity
	Reg float64 `def:"0.1"`
}

func (ls *LstsqL2) Defaults() {
	ls.Reg = 0.1
}

// Decoders returns the NPre x NPost least squares solution X of A · X ≈ T
func (ls *LstsqL2) Decoders(a, targets *mat.Dense) (*mat.Dense, error) {
	ns, npre := a.Dims()
	nt, npost := targets.Dims()
	if ns != nt {
		return nil, fmt.Errorf("solver.LstsqL2: %d activity samples vs. %d target samples", ns, nt)
	}
	if !finite(a) || !finite(targets) {
		return nil, fmt.Errorf("solver.LstsqL2: non-finite activities or targets")
	}
	gram := mat.NewSymDense(npre, nil)
	gram.SymOuterK(1, a.T())
	reg := regularization(a, ls.Reg)
	if reg == 0 {
		reg = 1e-12
	}
	for i := 0; i < npre; i++ {
		gram.SetSym(i, i, gram.At(i, i)+reg)
	}
	var ch mat.Cholesky
	if ok := ch.Factorize(gram); !ok {
		return nil, fmt.Errorf("solver.LstsqL2: Gram matrix is not positive definite")
	}
	rhs := mat.NewDense(npre, npost, nil)
	rhs.Mul(a.T(), targets)
	x := mat.NewDense(npre, npost, nil)
	if err := ch.SolveTo(x, rhs); err != nil {
		return nil, fmt.Errorf("solver.LstsqL2: %w", err)
	}
	return x, nil
}

func (ls *LstsqL2) Solve(a, targets *mat.Dense, types SynapseTypes, rng *rand.Rand) (we, wi *mat.Dense, err error) {
	if err := checkArgs(a, targets, types); err != nil {
		return nil, nil, err
	}
	x, err := ls.Decoders(a, targets)
	if err != nil {
		return nil, nil, err
	}
	r, c := x.Dims()
	we = mat.NewDense(r, c, nil)
	wi = mat.NewDense(r, c, nil)
	we.Apply(func(i, j int, v float64) float64 { return math.Max(v, 0) }, x)
	wi.Apply(func(i, j int, v float64) float64 { return math.Max(-v, 0) }, x)
	return we, wi, nil
}

// NonNegL2 is a sign-constrained L2-regularized least squares solver:
// every pre-synaptic neuron contributes one nonnegative excitatory weight
// column if it may form excitatory synapses, and one nonnegative inhibitory
// weight column if it may form inhibitory synapses.  The problem is
// solved for each post-synaptic neuron independently by projected
// Gauss-Seidel coordinate descent on the regularized normal equations.
type NonNegL2 struct {

	// regularization relative to the maximum activity
	Reg float64 `def:"0.1"`

	// maximum number of coordinate descent sweeps
	MaxIter int `def:"1000"`

	// stop when no weight changes by more than Tol times the largest weight in a sweep
	Tol float64 `def:"1e-4"`
}

func (nn *NonNegL2) Defaults() {
	nn.Reg = 0.1
	nn.MaxIter = 1000
	nn.Tol = 1e-4
}

func (nn *NonNegL2) Solve(a, targets *mat.Dense, types SynapseTypes, rng *rand.Rand) (we, wi *mat.Dense, err error) {
	if err := checkArgs(a, targets, types); err != nil {
		return nil, nil, err
	}
	ns, npre := a.Dims()
	_, npost := targets.Dims()

	// columns of the signed activity matrix: +a_i for excitatory, -a_i for
	// inhibitory synapses of pre neuron src[k]
	var src []int
	var sgn []float64
	for i := 0; i < npre; i++ {
		if types.Exc[i] {
			src = append(src, i)
			sgn = append(sgn, 1)
		}
		if types.Inh[i] {
			src = append(src, i)
			sgn = append(sgn, -1)
		}
	}
	we = mat.NewDense(npre, npost, nil)
	wi = mat.NewDense(npre, npost, nil)
	m := len(src)
	if m == 0 {
		return we, wi, nil
	}

	ap := mat.NewDense(ns, m, nil)
	for k := range src {
		col := mat.Col(nil, src[k], a)
		floats.Scale(sgn[k], col)
		ap.SetCol(k, col)
	}
	gram := mat.NewDense(m, m, nil)
	gram.Mul(ap.T(), ap)
	reg := regularization(a, nn.Reg)
	for k := 0; k < m; k++ {
		gram.Set(k, k, gram.At(k, k)+reg)
	}
	rhs := mat.NewDense(m, npost, nil)
	rhs.Mul(ap.T(), targets)

	// post neurons are independent, each writes its own column
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for j := 0; j < npost; j++ {
		j := j
		eg.Go(func() error {
			w := make([]float64, m)
			grad := make([]float64, m)
			if err := nn.solveOne(gram, mat.Col(nil, j, rhs), w, grad); err != nil {
				return fmt.Errorf("solver.NonNegL2: post neuron %d: %w", j, err)
			}
			for k, v := range w {
				if sgn[k] > 0 {
					we.Set(src[k], j, v)
				} else {
					wi.Set(src[k], j, v)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return we, wi, nil
}

// solveOne minimizes 1/2 wᵀ G w - bᵀ w subject to w >= 0, starting from 0.
// grad is scratch space.  The Gram matrix and b overflow for activities
// or targets too large to square, which is an error.
func (nn *NonNegL2) solveOne(gram *mat.Dense, b, w, grad []float64) error {
	for k := range w {
		if g := gram.At(k, k); math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("non-finite Gram matrix diagonal %g at %d", g, k)
		}
		if math.IsNaN(b[k]) || math.IsInf(b[k], 0) {
			return fmt.Errorf("non-finite correlation %g at %d", b[k], k)
		}
		w[k] = 0
		grad[k] = -b[k]
	}
	for it := 0; it < nn.MaxIter; it++ {
		maxDel := 0.0
		for k := range w {
			gk := gram.RawRowView(k)
			if !(gk[k] > 0) {
				continue
			}
			nw := math.Max(0, w[k]-grad[k]/gk[k])
			del := nw - w[k]
			if del == 0 {
				continue
			}
			w[k] = nw
			floats.AddScaled(grad, del, gk)
			maxDel = math.Max(maxDel, math.Abs(del))
		}
		if maxDel <= nn.Tol*floats.Max(w) {
			return nil
		}
	}
	return nil
}
