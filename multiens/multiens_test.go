// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package multiens

import (
	"errors"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// testPop is a population whose points are tagged by id so that the
// origin of every row can be traced: point i, dim d = id*1000 + i + d/10.
// Neuron k responds with id*100 + k + the sum of the point.
type testPop struct {
	id   int
	dims int
	nn   int
	pnts *mat.Dense
	exc  []bool
	inh  []bool
}

func newTestPop(id, dims, npts, nn int, exc, inh bool) *testPop {
	tp := &testPop{id: id, dims: dims, nn: nn}
	tp.pnts = mat.NewDense(npts, dims, nil)
	for i := 0; i < npts; i++ {
		for d := 0; d < dims; d++ {
			tp.pnts.Set(i, d, float64(id*1000+i)+float64(d)/10)
		}
	}
	tp.exc = make([]bool, nn)
	tp.inh = make([]bool, nn)
	for k := 0; k < nn; k++ {
		tp.exc[k], tp.inh[k] = exc, inh
	}
	return tp
}

func (tp *testPop) Dims() int                       { return tp.dims }
func (tp *testPop) NNeurons() int                   { return tp.nn }
func (tp *testPop) EvalPoints() *mat.Dense          { return tp.pnts }
func (tp *testPop) SynapseTypes() (exc, inh []bool) { return tp.exc, tp.inh }

func (tp *testPop) Activities(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	if c != tp.dims {
		panic("testPop: wrong dims")
	}
	acts := mat.NewDense(r, tp.nn, nil)
	for i := 0; i < r; i++ {
		sum := floats.Sum(mat.Row(nil, i, x))
		for k := 0; k < tp.nn; k++ {
			acts.Set(i, k, float64(tp.id*100+k)+sum)
		}
	}
	return acts
}

// hasRow returns true if row is one of the rows of m
func hasRow(m *mat.Dense, row []float64) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		if floats.Equal(m.RawRowView(i), row) {
			return true
		}
	}
	return false
}

func rowsOf(t *testing.T, pnts *mat.Dense, cols [2]int, src *mat.Dense) {
	t.Helper()
	r, _ := pnts.Dims()
	for i := 0; i < r; i++ {
		row := mat.Row(nil, i, pnts.Slice(0, r, cols[0], cols[1]))
		if !hasRow(src, row) {
			t.Errorf("row %d: %v not in source points", i, row)
		}
	}
}

func TestColumnRanges(t *testing.T) {
	a := Leaf(newTestPop(1, 1, 5, 3, true, true))
	b := Leaf(newTestPop(2, 2, 5, 3, true, true))
	c := Leaf(newTestPop(3, 3, 5, 3, true, true))
	orders := [][]*Node{{a, b, c}, {c, b, a}, {b, a, c}, {b}}
	for _, kids := range orders {
		st, err := NewStack(kids...)
		if err != nil {
			t.Fatal(err)
		}
		d := 0
		for i, cr := range ColumnRanges(st) {
			if cr[0] != d || cr[1]-cr[0] != kids[i].Dims() {
				t.Errorf("%v: child %d range %v", st, i, cr)
			}
			d = cr[1]
		}
		if d != st.Dims() {
			t.Errorf("%v: ranges end at %d, dims: %d", st, d, st.Dims())
		}
	}
}

func TestStackEvalPoints(t *testing.T) {
	pa := newTestPop(1, 1, 5, 3, true, true)
	pb := newTestPop(2, 2, 8, 3, true, true)
	st, _ := NewStack(Leaf(pa), Leaf(pb))
	rng := rand.New(rand.NewSource(1))

	pnts := EvalPoints(st, 0, rng)
	if r, c := pnts.Dims(); r != 8 || c != 3 {
		t.Fatalf("stack points dims: %d x %d", r, c)
	}
	// the smaller child contributes all its points first
	for i := 0; i < 5; i++ {
		if pnts.At(i, 0) != pa.pnts.At(i, 0) {
			t.Errorf("row %d: %v vs %v", i, pnts.At(i, 0), pa.pnts.At(i, 0))
		}
	}
	rowsOf(t, pnts, [2]int{0, 1}, pa.pnts)
	rowsOf(t, pnts, [2]int{1, 3}, pb.pnts)

	// the larger child contributes a subset without repetitions
	seen := map[float64]bool{}
	for i := 0; i < 8; i++ {
		v := pnts.At(i, 1)
		if seen[v] {
			t.Errorf("row %d of the larger child drawn twice", i)
		}
		seen[v] = true
	}

	for _, n := range []int{1, 3, 5, 8, 20} {
		pnts := EvalPoints(st, n, rng)
		if r, _ := pnts.Dims(); r != n {
			t.Errorf("requested %d points, got %d", n, r)
		}
		rowsOf(t, pnts, [2]int{0, 1}, pa.pnts)
		rowsOf(t, pnts, [2]int{1, 3}, pb.pnts)
	}
}

func TestJoinEvalPoints(t *testing.T) {
	pa := newTestPop(1, 2, 5, 3, true, true)
	pb := newTestPop(2, 2, 8, 4, true, true)
	jn, err := NewJoin(Leaf(pa), Leaf(pb))
	if err != nil {
		t.Fatal(err)
	}
	if jn.Dims() != 2 {
		t.Errorf("join dims: %d", jn.Dims())
	}
	rng := rand.New(rand.NewSource(2))
	pnts := EvalPoints(jn, 0, rng)
	if r, _ := pnts.Dims(); r != 8 {
		t.Errorf("join of 5 and 8 points should draw 8 points, got %d", r)
	}
	for _, n := range []int{0, 1, 4, 8, 13, 100} {
		pnts := EvalPoints(jn, n, rng)
		r, _ := pnts.Dims()
		if n > 0 && r != n {
			t.Errorf("requested %d points, got %d", n, r)
		}
		for i := 0; i < r; i++ {
			row := pnts.RawRowView(i)
			if !hasRow(pa.pnts, row) && !hasRow(pb.pnts, row) {
				t.Errorf("join row %v is not a child row", row)
			}
		}
	}
}

func TestJoinConstructionError(t *testing.T) {
	a := Leaf(newTestPop(1, 1, 5, 3, true, true))
	b := Leaf(newTestPop(2, 2, 5, 3, true, true))
	_, err := NewJoin(a, b)
	var ce *ConstructionError
	if !errors.As(err, &ce) || ce.Op != Join {
		t.Errorf("expected a join construction error, got: %v", err)
	}
	if _, err := NewStack(); !errors.As(err, &ce) {
		t.Errorf("expected a construction error for an empty stack, got: %v", err)
	}
	if _, err := NewJoin(); !errors.As(err, &ce) {
		t.Errorf("expected a construction error for an empty join, got: %v", err)
	}
}

func TestNested(t *testing.T) {
	pa1 := newTestPop(1, 1, 6, 2, true, false)
	pa2 := newTestPop(2, 1, 4, 3, false, true)
	pb := newTestPop(3, 1, 5, 4, true, true)
	jn, _ := NewJoin(Leaf(pa1), Leaf(pa2))
	st, _ := NewStack(jn, Leaf(pb))
	if st.Dims() != 2 {
		t.Fatalf("dims: %d", st.Dims())
	}
	lrs := LeafRanges(st)
	want := [][2]int{{0, 1}, {0, 1}, {1, 2}}
	for i, lr := range lrs {
		if lr.Cols != want[i] {
			t.Errorf("leaf %d cols: %v want: %v", i, lr.Cols, want[i])
		}
	}
	if NNeurons(st) != 9 {
		t.Errorf("neurons: %d", NNeurons(st))
	}
	exc, inh := SynapseTypes(st)
	wantExc := []bool{true, true, false, false, false, true, true, true, true}
	wantInh := []bool{false, false, true, true, true, true, true, true, true}
	for i := range wantExc {
		if exc[i] != wantExc[i] || inh[i] != wantInh[i] {
			t.Errorf("synapse types %d: %v %v", i, exc[i], inh[i])
		}
	}

	rng := rand.New(rand.NewSource(3))
	pnts := EvalPoints(st, 0, rng)
	r, _ := pnts.Dims()
	if r != 6 {
		t.Errorf("points: %d", r)
	}
	acts := Activities(st, pnts)
	if ar, ac := acts.Dims(); ar != r || ac != 9 {
		t.Fatalf("activities dims: %d x %d", ar, ac)
	}
	for i := 0; i < r; i++ {
		x0, x1 := pnts.At(i, 0), pnts.At(i, 1)
		if acts.At(i, 1) != 101+x0 || acts.At(i, 2) != 200+x0 || acts.At(i, 8) != 303+x1 {
			t.Errorf("row %d activities: %v", i, acts.RawRowView(i))
		}
	}
}
