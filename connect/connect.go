// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package connect solves for the synaptic weights of connections from one or
more source population trees onto a target population.

Each source (Pre) is tagged as excitatory-only, inhibitory-only or mixed.
Solving a connection samples evaluation points from every source, computes
their activities, maps the points through the connection function and
transform to target currents of the post neurons, and hands activities,
targets and the per-neuron sign mask to a solver.Solver.  The resulting
excitatory and (negated) inhibitory weight matrices are cached per
connection in a Model; weights for an individual source are views into
the cached matrices.
*/
package connect

import (
	"errors"
	"fmt"

	"github.com/emer/dendrite/multiens"
	"github.com/goki/ki/kit"
	"gonum.org/v1/gonum/mat"
)

// Sign is the type of synapses a source may form on the target
type Sign int32

//go:generate stringer -type=Sign

var KiT_Sign = kit.Enums.AddEnum(SignN, kit.NotBitFlag, nil)

func (ev Sign) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Sign) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Excitatory sources only form excitatory synapses
	Excitatory Sign = iota

	// Inhibitory sources only form inhibitory synapses
	Inhibitory

	// Mixed sources use the synapse types of their populations
	Mixed

	SignN
)

var (
	// ErrEvalPointMismatch is returned when the sources of a connection
	// produce different numbers of evaluation points
	ErrEvalPointMismatch = errors.New("evaluation point count mismatch")

	// ErrNonDense is returned for transforms other than Dense
	ErrNonDense = errors.New("only dense transforms are supported")

	// ErrNonFinite is returned when the target population has non-finite
	// gain or bias, which would produce non-finite weights
	ErrNonFinite = errors.New("non-finite gain or bias in target population")
)

// BuildError is returned when a connection could not be solved.
// Nothing is cached for the connection in this case.
type BuildError struct {
	ID    ConnID
	Label string
	Err   error
}

func (be *BuildError) Error() string {
	return fmt.Sprintf("connect: building connection %d %q: %v", be.ID, be.Label, be.Err)
}

func (be *BuildError) Unwrap() error { return be.Err }

// Pre is one source of a connection
type Pre struct {
	Node *multiens.Node
	Sign Sign
}

// Target is the post population of a connection
type Target interface {
	// Dims returns the dimensionality of the represented value
	Dims() int

	// NNeurons returns the number of neurons
	NNeurons() int

	// ScaledEncoders returns the NNeurons x Dims encoders scaled by gain
	// and representational range, mapping values to input currents
	ScaledEncoders() *mat.Dense

	// Gain returns the per-neuron gains
	Gain() []float64

	// Bias returns the per-neuron bias currents
	Bias() []float64

	// DisableBias stops the constant injection of the bias current
	// into the neurons.  Must be idempotent.
	DisableBias()
}

// Transform is a linear map applied to the output of the connection function
type Transform interface {
	// OutDims returns the output dimensionality for in dimensional inputs,
	// or an error if the transform does not apply to them
	OutDims(in int) (int, error)
}

// Dense is a dense linear transform: the Out x In matrix M if set,
// otherwise Scalar times the identity.  The zero Dense is rejected by
// Connect: use an explicit M of zeros for an all-zero transform.
type Dense struct {
	Scalar float64
	M      *mat.Dense
}

func (dt *Dense) OutDims(in int) (int, error) {
	if dt.M == nil {
		return in, nil
	}
	r, c := dt.M.Dims()
	if c != in {
		return 0, fmt.Errorf("transform expects %d dimensional input, got %d", c, in)
	}
	return r, nil
}

// Apply maps the rows of y through the transform
func (dt *Dense) Apply(y *mat.Dense) *mat.Dense {
	out := &mat.Dense{}
	if dt.M == nil {
		out.Scale(dt.Scalar, y)
		return out
	}
	out.Mul(y, dt.M.T())
	return out
}

// Sparse is a sparse linear transform given as a list of nonzero entries.
// It can be described but not solved for.
type Sparse struct {
	Out, In int
	Indices [][2]int
	Values  []float64
}

func (st *Sparse) OutDims(in int) (int, error) {
	if st.In != in {
		return 0, fmt.Errorf("transform expects %d dimensional input, got %d", st.In, in)
	}
	return st.Out, nil
}

// Connection describes a connection to be solved.  Connections must not be
// modified after they are added to a Model.
type Connection struct {

	// name used in errors and reports
	Label string

	// sources, in order
	Pre []Pre

	// target population
	Post Target

	// optional function applied to the concatenated evaluation points of
	// all sources -- identity if nil
	Function func(x []float64) []float64

	// output dimensionality of Function -- 0 means same as its input
	FuncDims int

	// linear map from function output to the target's value space
	Transform Transform

	// whether the target bias current is part of the decoded target currents.
	// The target's own bias injection is disabled in this case.
	DecodeBias bool

	// number of evaluation points to draw from each source -- 0 uses the
	// natural number of points of the sources
	NEvalPoints int

	// optional explicit evaluation points, NSamples x PreDims: the columns
	// of each source are given by its dimension range.  Replaces sampling
	// from the sources, and NEvalPoints is ignored.
	EvalPoints *mat.Dense
}

// NewConnection returns a connection with an identity transform that
// decodes the bias of post
func NewConnection(label string, post Target, pre ...Pre) *Connection {
	return &Connection{
		Label:      label,
		Pre:        pre,
		Post:       post,
		Transform:  &Dense{Scalar: 1},
		DecodeBias: true,
	}
}

// PreDims returns the total dimensionality of all sources
func (cn *Connection) PreDims() int {
	d := 0
	for _, p := range cn.Pre {
		d += p.Node.Dims()
	}
	return d
}

// validate checks the structure of the connection, independent of any
// solving
func (cn *Connection) validate() error {
	if len(cn.Pre) == 0 {
		return fmt.Errorf("connection %q has no sources", cn.Label)
	}
	for i, p := range cn.Pre {
		if p.Node == nil {
			return fmt.Errorf("connection %q: source %d is nil", cn.Label, i)
		}
		if p.Sign < 0 || p.Sign >= SignN {
			return fmt.Errorf("connection %q: source %d has invalid sign %v", cn.Label, i, p.Sign)
		}
	}
	if cn.Post == nil {
		return fmt.Errorf("connection %q has no target", cn.Label)
	}
	if cn.Transform == nil {
		return fmt.Errorf("connection %q has no transform", cn.Label)
	}
	if dt, ok := cn.Transform.(*Dense); ok && dt.M == nil && dt.Scalar == 0 {
		return fmt.Errorf("connection %q: dense transform has neither Scalar nor M set", cn.Label)
	}
	if cn.EvalPoints != nil {
		r, c := cn.EvalPoints.Dims()
		if r == 0 {
			return fmt.Errorf("connection %q: no explicit evaluation points", cn.Label)
		}
		if pd := cn.PreDims(); c != pd {
			return fmt.Errorf("connection %q: explicit evaluation points have %d columns, sources have %d dimensions", cn.Label, c, pd)
		}
	}
	return nil
}

// BuiltConnection holds the solved weights of a connection
type BuiltConnection struct {

	// weights per sign, NPost x NPre where NPre is the total number of
	// neurons of all sources.  Inhibitory weights are <= 0.
	Weights map[Sign]*mat.Dense

	// column range of each source in the concatenated evaluation points
	PreDimRanges [][2]int

	// column range of each source in the weight matrices
	PreNeuronRanges [][2]int

	// number of evaluation points used for solving
	NSamples int
}

// PreWeights returns a view of the weights of source preIdx for the
// given sign, NPost x NNeurons(source)
func (bc *BuiltConnection) PreWeights(preIdx int, sign Sign) (mat.Matrix, error) {
	if preIdx < 0 || preIdx >= len(bc.PreNeuronRanges) {
		return nil, fmt.Errorf("connect: source index %d out of range, have %d sources", preIdx, len(bc.PreNeuronRanges))
	}
	w, ok := bc.Weights[sign]
	if !ok {
		return nil, fmt.Errorf("connect: no weights for sign %v", sign)
	}
	r, _ := w.Dims()
	nr := bc.PreNeuronRanges[preIdx]
	return w.Slice(0, r, nr[0], nr[1]), nil
}

// MemBytes returns the memory used by the weight matrices
func (bc *BuiltConnection) MemBytes() int {
	n := 0
	for _, w := range bc.Weights {
		r, c := w.Dims()
		n += 8 * r * c
	}
	return n
}
