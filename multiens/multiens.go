// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package multiens composes base populations into trees that act as a single
source population of a connection.

A Stack node concatenates the represented dimensions of its children: the
combined value is the concatenation of the children's values.  A Join node
concatenates the sample sets of its children, which must all represent the
same number of dimensions: any of the children may represent the value.
Leaf nodes wrap a single base Population.

Nodes are immutable once constructed.  Malformed trees are rejected at
construction time with a *ConstructionError.
*/
package multiens

import (
	"fmt"
	"math/rand"

	"github.com/goki/ki/kit"
	"gonum.org/v1/gonum/mat"
)

// Op is the operator of a population tree node
type Op int32

//go:generate stringer -type=Op

var KiT_Op = kit.Enums.AddEnum(OpN, kit.NotBitFlag, nil)

func (ev Op) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Op) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// None is a leaf wrapping a single base population
	None Op = iota

	// Stack concatenates the dimensions of the children
	Stack

	// Join concatenates the samples of the children
	Join

	OpN
)

// Population is a base population of neurons, e.g., an *ensemble.Ensemble
type Population interface {
	// Dims returns the dimensionality of the represented value
	Dims() int

	// NNeurons returns the number of neurons
	NNeurons() int

	// EvalPoints returns the native evaluation points, one per row.
	// The returned matrix must not be modified.
	EvalPoints() *mat.Dense

	// Activities returns the neuron activities for the points in the rows
	// of x, as a rows(x) x NNeurons matrix
	Activities(x mat.Matrix) *mat.Dense

	// SynapseTypes returns per-neuron flags for whether a neuron may form
	// excitatory and inhibitory synapses
	SynapseTypes() (exc, inh []bool)
}

// ConstructionError is returned for malformed population trees
type ConstructionError struct {
	Op  Op
	Msg string
}

func (ce *ConstructionError) Error() string {
	return fmt.Sprintf("multiens: invalid %v node: %s", ce.Op, ce.Msg)
}

// Node is a node in a population tree
type Node struct {
	op    Op
	kids  []*Node
	pop   Population
	ndims int
}

// Leaf returns a leaf node wrapping pop
func Leaf(pop Population) *Node {
	return &Node{op: None, pop: pop, ndims: pop.Dims()}
}

// NewStack returns a node concatenating the dimensions of the kids
func NewStack(kids ...*Node) (*Node, error) {
	if len(kids) == 0 {
		return nil, &ConstructionError{Op: Stack, Msg: "no children"}
	}
	nd := &Node{op: Stack, kids: append([]*Node(nil), kids...)}
	for _, kd := range kids {
		if kd == nil {
			return nil, &ConstructionError{Op: Stack, Msg: "nil child"}
		}
		nd.ndims += kd.ndims
	}
	return nd, nil
}

// NewJoin returns a node concatenating the samples of the kids,
// which must all have the same dimensionality
func NewJoin(kids ...*Node) (*Node, error) {
	if len(kids) == 0 {
		return nil, &ConstructionError{Op: Join, Msg: "no children"}
	}
	for i, kd := range kids {
		if kd == nil {
			return nil, &ConstructionError{Op: Join, Msg: "nil child"}
		}
		if kd.ndims != kids[0].ndims {
			return nil, &ConstructionError{Op: Join, Msg: fmt.Sprintf("child %d has %d dimensions, child 0 has %d", i, kd.ndims, kids[0].ndims)}
		}
	}
	return &Node{op: Join, kids: append([]*Node(nil), kids...), ndims: kids[0].ndims}, nil
}

func (nd *Node) Op() Op { return nd.op }

// Dims returns the dimensionality of the node's combined value
func (nd *Node) Dims() int { return nd.ndims }

// Kids returns the children of Stack and Join nodes
func (nd *Node) Kids() []*Node { return nd.kids }

// Pop returns the population of a leaf, nil otherwise
func (nd *Node) Pop() Population { return nd.pop }

func (nd *Node) String() string {
	if nd.op == None {
		return fmt.Sprintf("Leaf(%d)", nd.ndims)
	}
	s := nd.op.String() + "("
	for i, kd := range nd.kids {
		if i > 0 {
			s += ", "
		}
		s += kd.String()
	}
	return s + ")"
}

// ColumnRanges returns the column range [start, end) of each child in
// the node's point space: prefix sums of the dimensions for Stack, the
// full range for each child of a Join, and the full range for a leaf.
func ColumnRanges(nd *Node) [][2]int {
	if nd.op == None {
		return [][2]int{{0, nd.ndims}}
	}
	rngs := make([][2]int, len(nd.kids))
	d := 0
	for i, kd := range nd.kids {
		if nd.op == Stack {
			rngs[i] = [2]int{d, d + kd.ndims}
			d += kd.ndims
		} else {
			rngs[i] = [2]int{0, nd.ndims}
		}
	}
	return rngs
}

// LeafRange is a leaf population with its column range in the point
// space of the root of a tree
type LeafRange struct {
	Pop  Population
	Cols [2]int
}

// LeafRanges returns all leaves of the tree in order, with their column
// ranges.  Children of a Join share the parent's range.
func LeafRanges(nd *Node) []LeafRange {
	return leafRanges(nd, 0, nil)
}

func leafRanges(nd *Node, off int, lrs []LeafRange) []LeafRange {
	if nd.op == None {
		return append(lrs, LeafRange{Pop: nd.pop, Cols: [2]int{off, off + nd.ndims}})
	}
	for i, cr := range ColumnRanges(nd) {
		lrs = leafRanges(nd.kids[i], off+cr[0], lrs)
	}
	return lrs
}

// Leaves returns all leaf populations of the tree in order
func Leaves(nd *Node) []Population {
	lrs := LeafRanges(nd)
	pops := make([]Population, len(lrs))
	for i := range lrs {
		pops[i] = lrs[i].Pop
	}
	return pops
}

// NNeurons returns the total number of neurons of all leaves
func NNeurons(nd *Node) int {
	n := 0
	for _, pop := range Leaves(nd) {
		n += pop.NNeurons()
	}
	return n
}

// Activities returns the activities of all leaf neurons for the points
// in the rows of x, which must have Dims columns.  Each leaf is evaluated
// on its own column range, and the leaf activities are concatenated
// column-wise in leaf order.
func Activities(nd *Node, x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	if c != nd.ndims {
		panic(fmt.Sprintf("multiens.Activities: got %d dimensional points for %d dimensional node", c, nd.ndims))
	}
	if r == 0 {
		return &mat.Dense{}
	}
	xd, ok := x.(*mat.Dense)
	if !ok {
		xd = mat.DenseCopyOf(x)
	}
	acts := mat.NewDense(r, NNeurons(nd), nil)
	n0 := 0
	for _, lr := range LeafRanges(nd) {
		n1 := n0 + lr.Pop.NNeurons()
		xs := xd.Slice(0, r, lr.Cols[0], lr.Cols[1])
		acts.Slice(0, r, n0, n1).(*mat.Dense).Copy(lr.Pop.Activities(xs))
		n0 = n1
	}
	return acts
}

// SynapseTypes returns the concatenated synapse type flags of all leaves
func SynapseTypes(nd *Node) (exc, inh []bool) {
	for _, pop := range Leaves(nd) {
		e, i := pop.SynapseTypes()
		exc = append(exc, e...)
		inh = append(inh, i...)
	}
	return
}

// EvalPoints returns evaluation points for the node, one per row.
// If n > 0, exactly n points are returned; otherwise the number of points
// is the largest number of points of any child.
//
//   - Leaf: the population's own points, resampled with replacement to n
//     rows if n > 0.  The returned matrix must not be modified in this case.
//   - Stack: each child's points are written to its column range.  A child
//     with fewer points than needed contributes all of its points, followed
//     by points resampled with replacement.  A child with at least as many
//     points contributes a random subset.  Draws are independent per child.
//   - Join: the points of all children are pooled, and the required number
//     of points is drawn from the pool, with replacement only if more points
//     are needed than are available.
func EvalPoints(nd *Node, n int, rng *rand.Rand) *mat.Dense {
	if nd.op == None {
		pnts := nd.pop.EvalPoints()
		if n <= 0 {
			return pnts
		}
		return choice(pnts, n, true, rng)
	}

	kpnts := make([]*mat.Dense, len(nd.kids))
	maxN := 0
	for i, kd := range nd.kids {
		kpnts[i] = EvalPoints(kd, n, rng)
		if kr, _ := kpnts[i].Dims(); kr > maxN {
			maxN = kr
		}
	}
	if n <= 0 {
		n = maxN
	}

	if nd.op == Join {
		pr := 0
		for _, kp := range kpnts {
			kr, _ := kp.Dims()
			pr += kr
		}
		pool := mat.NewDense(pr, nd.ndims, nil)
		r0 := 0
		for _, kp := range kpnts {
			kr, _ := kp.Dims()
			pool.Slice(r0, r0+kr, 0, nd.ndims).(*mat.Dense).Copy(kp)
			r0 += kr
		}
		return choice(pool, n, n > pr, rng)
	}

	pnts := mat.NewDense(n, nd.ndims, nil)
	for i, cr := range ColumnRanges(nd) {
		kp := kpnts[i]
		kr, _ := kp.Dims()
		dst := pnts.Slice(0, n, cr[0], cr[1]).(*mat.Dense)
		if kr < n {
			dst.Slice(0, kr, 0, cr[1]-cr[0]).(*mat.Dense).Copy(kp)
			dst.Slice(kr, n, 0, cr[1]-cr[0]).(*mat.Dense).Copy(choice(kp, n-kr, true, rng))
		} else {
			dst.Copy(choice(kp, n, false, rng))
		}
	}
	return pnts
}

// choice draws n rows of a, with or without replacement
func choice(a *mat.Dense, n int, replace bool, rng *rand.Rand) *mat.Dense {
	r, c := a.Dims()
	if n <= 0 || r == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(n, c, nil)
	var perm []int
	if !replace {
		perm = rng.Perm(r)
	}
	for i := 0; i < n; i++ {
		src := 0
		if replace {
			src = rng.Intn(r)
		} else {
			src = perm[i]
		}
		out.SetRow(i, a.RawRowView(src))
	}
	return out
}
