// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netsim

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/emer/dendrite/connect"
	"github.com/emer/dendrite/ensemble"
	"github.com/emer/dendrite/multiens"
	"gonum.org/v1/gonum/mat"
)

const (
	runDur  = 4.0
	runSkip = 1000
)

func newEns(t *testing.T, n, dims int, radius float64, seed int64, mod func(ep *ensemble.Params)) *ensemble.Ensemble {
	t.Helper()
	ep := &ensemble.Params{}
	ep.Defaults()
	ep.NNeurons = n
	ep.Dims = dims
	ep.Radius = radius
	if mod != nil {
		mod(ep)
	}
	en, err := ensemble.Build(ep, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return en
}

// runStack connects an excitatory and an inhibitory one dimensional
// population through a stack onto a two dimensional single-compartment
// population, drives them with smooth inputs scaled by radius and returns
// the relative rmse of the decoded output vs. fn.
func runStack(t *testing.T, mode Modes, preRadius, postRadius float64, fn func(x []float64) []float64) float64 {
	t.Helper()
	a := newEns(t, 101, 1, preRadius, 1, func(ep *ensemble.Params) { ep.PExc = 1 })
	b := newEns(t, 102, 1, preRadius, 2, func(ep *ensemble.Params) { ep.PInh = 1 })
	c := newEns(t, 100, 2, postRadius, 3, func(ep *ensemble.Params) { ep.Neuron.LIFDefaults() })
	st, err := multiens.NewStack(multiens.Leaf(a), multiens.Leaf(b))
	if err != nil {
		t.Fatal(err)
	}
	cn := connect.NewConnection("stack", c, connect.Pre{Node: st, Sign: connect.Mixed})
	if fn != nil {
		cn.Function = fn
		cn.FuncDims = 2
	}
	md := connect.NewModel(nil, 42)
	id, err := md.Connect(cn)
	if err != nil {
		t.Fatal(err)
	}

	input := func(tm float64) []float64 {
		return []float64{0.7 * preRadius * math.Sin(2*tm), 0.7 * preRadius * math.Cos(3*tm)}
	}
	nt, err := NewNetwork(md, id, c, input)
	if err != nil {
		t.Fatal(err)
	}
	nt.Mode = mode
	ts, out, err := nt.Run(runDur)
	if err != nil {
		t.Fatal(err)
	}
	if mode == SpikeMode {
		for k := range nt.ge {
			if nt.ge[k] < 0 || nt.gi[k] < 0 {
				t.Fatalf("neuron %d: negative conductance ge: %g gi: %g", k, nt.ge[k], nt.gi[k])
			}
		}
	}

	// excitatory and inhibitory contributions keep their signs at every point
	for _, tm := range ts[:200] {
		acts := multiens.Activities(st, mat.NewDense(1, 2, input(tm)))
		je, ji, err := md.Currents(id, [][]float64{acts.RawRowView(0)})
		if err != nil {
			t.Fatal(err)
		}
		for k := range je {
			if je[k] < 0 || ji[k] > 0 {
				t.Fatalf("t: %v neuron %d excitatory current %g inhibitory current %g", tm, k, je[k], ji[k])
			}
		}
	}

	expected := make([][]float64, len(ts))
	for i, tm := range ts {
		x := input(tm)
		if fn != nil {
			x = fn(x)
		}
		expected[i] = x
	}
	expected = nt.Synapse.FilterAll(expected, nt.Time.Dt)
	return RelativeRMSE(expected, out, runSkip)
}

func TestStackFunction(t *testing.T) {
	fn := func(x []float64) []float64 {
		return []float64{x[0] * x[0], (x[0] + x[1]) / 2}
	}
	for _, tc := range []struct {
		mode Modes
		max  float64
	}{{RateMode, 0.1}, {SpikeMode, 0.25}} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			rmse := runStack(t, tc.mode, 1, 1, fn)
			t.Logf("relative rmse: %v", rmse)
			if !(rmse < tc.max) {
				t.Errorf("relative rmse too large: %v", rmse)
			}
		})
	}
}

func TestRadiusInvariance(t *testing.T) {
	base := runStack(t, RateMode, 1, 1, nil)
	post := runStack(t, RateMode, 1, 2, nil)
	both := runStack(t, RateMode, 2, 2, nil)
	t.Logf("relative rmse: base: %v post radius: %v all radii: %v", base, post, both)
	for _, rmse := range []float64{base, post, both} {
		if !(rmse < 0.1) {
			t.Errorf("relative rmse too large: %v", rmse)
		}
	}
	if math.Abs(both-base) > 0.02 {
		t.Errorf("scaling all radii changed the error: %v vs %v", both, base)
	}
	// a larger target radius only costs the resolution of the target
	if math.Abs(post-base) > 0.05 {
		t.Errorf("scaling the target radius changed the error: %v vs %v", post, base)
	}
}

func TestSpikeModeReset(t *testing.T) {
	a := newEns(t, 30, 1, 1, 1, nil)
	c := newEns(t, 20, 1, 1, 2, func(ep *ensemble.Params) { ep.Neuron.LIFDefaults() })
	md := connect.NewModel(nil, 1)
	id, err := md.Connect(connect.NewConnection("a->c", c, connect.Pre{Node: multiens.Leaf(a), Sign: connect.Mixed}))
	if err != nil {
		t.Fatal(err)
	}
	nt, err := NewNetwork(md, id, c, func(tm float64) []float64 { return []float64{0.5} })
	if err != nil {
		t.Fatal(err)
	}
	nt.Mode = SpikeMode
	nt.Seed = 3
	run := func() int {
		nspk := 0
		for i := 0; i < 500; i++ {
			if _, err := nt.Step(); err != nil {
				t.Fatal(err)
			}
			for _, sp := range nt.spk {
				if sp > 0 {
					nspk++
				}
			}
		}
		return nspk
	}
	n1 := run()
	if n1 == 0 {
		t.Fatalf("no spikes")
	}
	nt.Reset()
	if n2 := run(); n2 != n1 {
		t.Errorf("spike counts after Reset: %d, want %d", n2, n1)
	}

	nt.Mode = ModesN
	if _, err := nt.Step(); err == nil {
		t.Errorf("expected error for invalid mode")
	}
}

func TestModesJSON(t *testing.T) {
	b, err := json.Marshal(SpikeMode)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"SpikeMode"` {
		t.Errorf("marshaled: %s", b)
	}
	var md Modes
	if err := json.Unmarshal(b, &md); err != nil || md != SpikeMode {
		t.Errorf("unmarshaled: %v %v", md, err)
	}
	if err := json.Unmarshal([]byte(`"Bogus"`), &md); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}

func TestLowpass(t *testing.T) {
	lp := &Lowpass{}
	lp.Defaults()
	x := []float64{1}
	var y []float64
	for i := 0; i < 100; i++ {
		y = lp.Filter(x, 0.001)
	}
	// step response after 100 msec = 1 tau
	if math.Abs(y[0]-(1-math.Exp(-1))) > 1e-9 {
		t.Errorf("step response: %v", y[0])
	}
	lp.Tau = 0
	if y = lp.Filter([]float64{3}, 0.001); y[0] != 3 {
		t.Errorf("zero tau should pass through: %v", y[0])
	}
}

func TestRelativeRMSE(t *testing.T) {
	exp := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	act := [][]float64{{5, 5}, {1.1, 0.9}, {1.1, 0.9}}
	if e := RelativeRMSE(exp, act, 1); math.Abs(e-0.1) > 1e-9 {
		t.Errorf("rmse: %v", e)
	}
	if e := RelativeRMSE(exp, exp, 0); e != 0 {
		t.Errorf("rmse of identical signals: %v", e)
	}
}

func TestTime(t *testing.T) {
	tm := NewTime()
	for i := 0; i < 1500; i++ {
		tm.CycleInc()
	}
	if math.Abs(tm.Time-1.5) > 1e-12 || tm.NCycles(2) != 2000 {
		t.Errorf("time: %v cycles: %d", tm.Time, tm.NCycles(2))
	}
	tm.Reset()
	if tm.Time != 0 || tm.Cycle != 0 || tm.CycleTot != 1500 {
		t.Errorf("reset: %+v", tm)
	}
}
