// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neuron

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/chewxy/math32"
)

// volTol is the voltage difference tolerance between the integrators:
// a few float32 epsilons at the magnitude of membrane potentials (~0.1 V)
const volTol = float32(4 * 1.1920929e-7 * 0.1)

// filteredNoise generates smooth random conductances: a lowpass filtered
// gaussian process around mean, with relative std dev sd, clipped at 0.
func filteredNoise(rnd *rand.Rand, nsteps, n int, dt, tau, mean, sd float64) [][]float32 {
	gs := make([][]float32, nsteps)
	x := make([]float64, n)
	a := dt / tau
	b := math.Sqrt(2*dt/tau) * sd
	for t := range gs {
		gs[t] = make([]float32, n)
		for i := range x {
			x[i] += -a*x[i] + b*rnd.NormFloat64()
			gs[t][i] = float32(math.Max(0, mean*(1+x[i])))
		}
	}
	return gs
}

func checkEquivalence(t *testing.T, name string, np *Params) {
	const (
		dt     = 1e-3
		nsteps = 12000
		n      = 4
	)
	rnd := rand.New(rand.NewSource(3198))
	ge := filteredNoise(rnd, nsteps, n, dt, 0.1, 150e-9, 0.6)
	gi := filteredNoise(rnd, nsteps, n, dt, 0.1, 20e-9, 0.6)

	ref := NewRefSim(np, dt, n, nil)
	fast := NewFastSim(np, dt, n, nil)
	outRef := make([]float32, n)
	outFast := make([]float32, n)
	nspikes := 0
	for st := 0; st < nsteps; st++ {
		ref.Step(outRef, ge[st], gi[st])
		fast.Step(outFast, ge[st], gi[st])
		for i := 0; i < n; i++ {
			if outRef[i] != outFast[i] {
				t.Fatalf("%s: step %d neuron %d: output ref: %v fast: %v", name, st, i, outRef[i], outFast[i])
			}
			if outRef[i] != 0 {
				nspikes++
			}
			rs, fs := ref.State(i), fast.State(i)
			if math32.Abs(rs.VSom-fs.VSom) > volTol || math32.Abs(rs.VDen-fs.VDen) > volTol || math32.Abs(rs.TRef-fs.TRef) > 1e-9 {
				t.Fatalf("%s: step %d neuron %d: state ref: %+v fast: %+v", name, st, i, rs, fs)
			}
		}
	}
	if nspikes == 0 {
		t.Errorf("%s: no spikes in %d steps -- input too weak to test anything", name, nsteps)
	}
}

func TestSimEquivalenceDefault(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	checkEquivalence(t, "default", np)
}

func TestSimEquivalenceAsymMembrane(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	np.Den.C = 0.5e-9
	np.Som.C = 2e-9
	np.Update()
	checkEquivalence(t, "asym membrane", np)
}

func TestSimEquivalenceAsymLeak(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	np.Den.GLeak = 20e-9
	np.Som.GLeak = 100e-9
	np.Update()
	checkEquivalence(t, "asym leak", np)
}

func TestSimEquivalenceLIF(t *testing.T) {
	np := &Params{}
	np.LIFDefaults()
	checkEquivalence(t, "lif", np)
}

func TestSimEquivalenceNoSpikePulse(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	np.Som.TauSpike = 0
	np.Update()
	checkEquivalence(t, "no spike pulse", np)
}

func TestRefractory(t *testing.T) {
	for _, backend := range []Backends{Ref, Fast} {
		np := &Params{}
		np.TwoCompDefaults()
		np.Backend = backend
		sim, err := np.NewSim(1e-3, 1, nil)
		if err != nil {
			t.Fatal(err)
		}
		out := []float32{0}
		ge := []float32{150e-9}
		gi := []float32{0}
		spiked := false
		for st := 0; st < 1000; st++ {
			sim.Step(out, ge, gi)
			if out[0] != 0 {
				spiked = true
				break
			}
		}
		if !spiked {
			t.Fatalf("%v: neuron never spiked", backend)
		}
		if out[0] != 1/float32(1e-3) {
			t.Errorf("%v: spike output should be 1/dt, got %v", backend, out[0])
		}
		st := sim.State(0)
		if !st.Refractory() || st.VSom != np.Som.VSpike {
			t.Errorf("%v: after spike expected spike pulse, got %+v", backend, st)
		}

		vDen := st.VDen
		sim.Step(out, ge, gi)
		st = sim.State(0)
		if out[0] != 0 {
			t.Errorf("%v: spiked while refractory", backend)
		}
		if st.VDen == vDen {
			t.Errorf("%v: dendrite should keep integrating while the soma is clamped", backend)
		}

		sim.Step(out, ge, gi)
		st = sim.State(0)
		if !st.Refractory() || st.VSom != np.Som.VReset {
			t.Errorf("%v: expected refractory reset, got %+v", backend, st)
		}

		sim.Step(out, ge, gi)
		sim.Step(out, ge, gi)
		st = sim.State(0)
		if st.Refractory() {
			t.Errorf("%v: refractory period should be over, got %+v", backend, st)
		}
	}
}

func TestLIFRate(t *testing.T) {
	const (
		dt  = 1e-3
		dur = 2.0
		gE  = 50e-9
	)
	np := &Params{}
	np.LIFDefaults()

	// closed form for a constant conductance: shifted resting potential
	// and membrane time constant
	gl := float64(np.GLeakTot)
	vinf := (gl*float64(np.Erev.L) + gE*float64(np.Erev.E)) / (gl + gE)
	tau := float64(np.CTot) / (gl + gE)
	isi := float64(np.TauRefSpike) + tau*math.Log((vinf-float64(np.Som.VReset))/(vinf-float64(np.Som.VTh)))
	corRate := 1 / isi

	for _, backend := range []Backends{Ref, Fast} {
		np.Backend = backend
		step, err := np.Compile(dt, 1, nil)
		if err != nil {
			t.Fatal(err)
		}
		out := []float32{0}
		nspk := 0
		nsteps := int(dur / dt)
		for st := 0; st < nsteps; st++ {
			step(out, []float32{gE}, []float32{0})
			if out[0] > 0 {
				nspk++
			}
		}
		rate := float64(nspk) / dur
		if math.Abs(rate-corRate)/corRate > 0.03 {
			t.Errorf("%v: rate %v vs closed form %v", backend, rate, corRate)
		}
	}
}

func TestNoInput(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	step, err := np.Compile(1e-3, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 3)
	zero := make([]float32, 3)
	inh := []float32{10e-9, 50e-9, 100e-9}
	for st := 0; st < 1000; st++ {
		step(out, zero, inh)
		for i := range out {
			if out[i] != 0 {
				t.Fatalf("neuron %d spiked without excitation", i)
			}
		}
	}
}

func TestTuning(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	tn := &Tuning{VSom: []float32{-60e-3, -55e-3}}
	sim, err := np.NewSim(1e-3, 3, tn)
	if err != nil {
		t.Fatal(err)
	}
	if sim.State(0).VSom != -60e-3 || sim.State(1).VSom != -55e-3 {
		t.Errorf("tuning not applied: %+v %+v", sim.State(0), sim.State(1))
	}
	if sim.State(2).VSom != np.Som.VReset || sim.State(0).VDen != np.Som.VReset {
		t.Errorf("missing tuning values should default to VReset")
	}
}

func TestCompileErrors(t *testing.T) {
	np := &Params{}
	np.TwoCompDefaults()
	if _, err := np.Compile(0, 10, nil); err == nil {
		t.Errorf("expected error for dt = 0")
	}
	bad := *np
	bad.Subsample = 0
	if _, err := bad.Compile(1e-3, 10, nil); err == nil {
		t.Errorf("expected error for Subsample = 0")
	}
	bad = *np
	bad.Den.GCouple = 0
	if _, err := bad.Compile(1e-3, 10, nil); err == nil {
		t.Errorf("expected error for TwoComp without coupling")
	}
	bad = *np
	bad.Som.VReset = bad.Som.VTh + 1e-3
	if _, err := bad.Compile(1e-3, 10, nil); err == nil {
		t.Errorf("expected error for VReset above VTh")
	}

	np.Backend = Ref
	sim, err := np.NewSim(1e-3, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sim.(*RefSim); !ok {
		t.Errorf("Ref backend should return a RefSim, got %T", sim)
	}
	np.Backend = Fast
	sim, _ = np.NewSim(1e-3, 2, nil)
	if _, ok := sim.(*FastSim); !ok {
		t.Errorf("Fast backend should return a FastSim, got %T", sim)
	}
}

func TestRateParams(t *testing.T) {
	np := &Params{}
	np.LIFDefaults()
	rp := np.RateParams()
	if math32.Abs(rp.TauRef-3e-3) > 1e-9 || math32.Abs(rp.TauRC-0.02) > 1e-9 {
		t.Errorf("rate params: %+v", rp)
	}
	if math32.Abs(rp.ITh-7.5e-10) > 1e-15 {
		t.Errorf("threshold current: %v", rp.ITh)
	}
}

func TestParamsJSON(t *testing.T) {
	np := &Params{}
	np.LIFDefaults()
	np.Backend = Ref
	b, err := json.Marshal(np)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"Comp":"OneComp"`) || !strings.Contains(string(b), `"Backend":"Ref"`) {
		t.Errorf("enums should be saved by name: %s", b)
	}
	rp := &Params{}
	if err := json.Unmarshal(b, rp); err != nil {
		t.Fatal(err)
	}
	rp.Update()
	if rp.Comp != OneComp || rp.Backend != Ref || rp.CTot != np.CTot {
		t.Errorf("loaded params: %+v", rp)
	}
	if err := json.Unmarshal([]byte(`{"Comp":"ThreeComp"}`), rp); err == nil {
		t.Errorf("expected error for unknown compartment count")
	}
}
