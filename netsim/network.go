// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package netsim is a minimal host for running solved connections: each source
of a connection is driven by an input signal, the target population receives
the currents through the solved weights, and its represented value is read
out by a decoding readout with a lowpass synapse.

Source populations always respond to their inputs with the closed-form
steady-state rates of their neurons.  The target population is run in one of
two Modes: in RateMode it responds with its steady-state rates as well, in
SpikeMode its neurons are integrated by the conductance-based neuron
simulator of its neuron parameters.  In SpikeMode the excitatory and
inhibitory currents of the connection drive separate conductances, and the
decoded spike trains are smoothed by the readout synapse.  The rate model
matches single-compartment neurons, so targets run in SpikeMode should use
OneComp neuron parameters.
*/
package netsim

import (
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/emer/dendrite/connect"
	"github.com/emer/dendrite/ensemble"
	"github.com/emer/dendrite/multiens"
	"github.com/emer/dendrite/neuron"
	"github.com/emer/dendrite/solver"
	"github.com/goki/ki/kit"
	"gonum.org/v1/gonum/mat"
)

// Modes are the ways of simulating the target population
type Modes int32

//go:generate stringer -type=Modes

var KiT_Modes = kit.Enums.AddEnum(ModesN, kit.NotBitFlag, nil)

func (ev Modes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Modes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// RateMode uses the closed-form steady-state rates of the target neurons
	RateMode Modes = iota

	// SpikeMode integrates the target neurons with the neuron simulator
	SpikeMode

	ModesN
)

// minimum driving force kept when converting currents to conductances
const vMargin = 5e-3

// Input returns the value represented by a source at time t
type Input func(t float64) []float64

// Network runs one solved connection onto a target ensemble
type Network struct {

	// timing state
	Time Time

	// model holding the connection
	Model *connect.Model

	// connection being run
	Conn connect.ConnID

	// input signal of each source of the connection
	Inputs []Input

	// target population
	Post *ensemble.Ensemble

	// readout decoders, NNeurons(Post) x Dims(Post)
	Decoders *mat.Dense

	// readout synapse
	Synapse Lowpass

	// how the target population is simulated
	Mode Modes

	// random seed for the initial voltages of the target neurons in SpikeMode
	Seed int64

	cn    *connect.Connection
	rates []float64
	dec   []float64

	np  neuron.Params
	sim neuron.Sim
	ge  []float32
	gi  []float32
	spk []float32
}

// NewNetwork solves connection id of md onto post and computes the readout
// decoders.  There must be one input per source of the connection.
func NewNetwork(md *connect.Model, id connect.ConnID, post *ensemble.Ensemble, inputs ...Input) (*Network, error) {
	cn := md.Connection(id)
	if cn == nil {
		return nil, fmt.Errorf("netsim.NewNetwork: invalid connection %d", id)
	}
	if len(inputs) != len(cn.Pre) {
		return nil, fmt.Errorf("netsim.NewNetwork: %d inputs for %d sources", len(inputs), len(cn.Pre))
	}
	if _, err := md.Solve(id); err != nil {
		return nil, err
	}
	nt := &Network{Model: md, Conn: id, Inputs: inputs, Post: post, cn: cn}
	nt.Time.Defaults()
	nt.Synapse.Defaults()

	ls := &solver.LstsqL2{}
	ls.Defaults()
	pnts := post.EvalPoints()
	dec, err := ls.Decoders(post.Activities(pnts), pnts)
	if err != nil {
		return nil, fmt.Errorf("netsim.NewNetwork: readout decoders: %w", err)
	}
	nt.Decoders = dec
	return nt, nil
}

// Reset resets the time, the readout state and the neuron state
func (nt *Network) Reset() {
	nt.Time.Reset()
	nt.Synapse.Reset()
	nt.sim = nil
}

// Step runs one cycle and returns the filtered decoded value of the target.
// The returned slice is overwritten by the next call.
func (nt *Network) Step() ([]float64, error) {
	if nt.Mode < 0 || nt.Mode >= ModesN {
		return nil, fmt.Errorf("netsim: invalid mode %v", nt.Mode)
	}
	t := nt.Time.Time
	acts := make([][]float64, len(nt.cn.Pre))
	for i, p := range nt.cn.Pre {
		x := nt.Inputs[i](t)
		if len(x) != p.Node.Dims() {
			return nil, fmt.Errorf("netsim: input %d has %d dimensions, source has %d", i, len(x), p.Node.Dims())
		}
		a := multiens.Activities(p.Node, mat.NewDense(1, len(x), x))
		acts[i] = a.RawRowView(0)
	}
	je, ji, err := nt.Model.Currents(nt.Conn, acts)
	if err != nil {
		return nil, err
	}
	if nt.Mode == SpikeMode {
		if err := nt.spikes(je, ji); err != nil {
			return nil, err
		}
	} else {
		for k := range je {
			je[k] += ji[k]
		}
		nt.rates = nt.Post.Rates(nt.rates, je)
	}

	if nt.dec == nil {
		_, d := nt.Decoders.Dims()
		nt.dec = make([]float64, d)
	}
	mat.NewVecDense(len(nt.dec), nt.dec).MulVec(nt.Decoders.T(), mat.NewVecDense(len(nt.rates), nt.rates))
	out := nt.Synapse.Filter(nt.dec, nt.Time.Dt)
	nt.Time.CycleInc()
	return out, nil
}

// Run runs for dur seconds and returns the times and the filtered decoded
// values of the target at each cycle
func (nt *Network) Run(dur float64) (ts []float64, out [][]float64, err error) {
	nc := nt.Time.NCycles(dur)
	ts = make([]float64, 0, nc)
	out = make([][]float64, 0, nc)
	for c := 0; c < nc; c++ {
		ts = append(ts, nt.Time.Time)
		y, err := nt.Step()
		if err != nil {
			return ts, out, err
		}
		out = append(out, append([]float64(nil), y...))
	}
	if nt.Post.BiasInjected() && nt.cn.DecodeBias {
		log.Printf("netsim: target of connection %q still has bias injected although the bias is decoded\n", nt.cn.Label)
	}
	return ts, out, nil
}

// initSim creates the simulator of the target neurons, with initial
// voltages drawn uniformly between reset and threshold
func (nt *Network) initSim() error {
	nt.np = nt.Post.Params.Neuron
	nt.np.Update()
	n := nt.Post.NNeurons()
	rng := rand.New(rand.NewSource(nt.Seed))
	tn := &neuron.Tuning{VSom: make([]float32, n), VDen: make([]float32, n)}
	lo, hi := nt.np.Som.VReset, nt.np.Som.VTh
	for i := range tn.VSom {
		tn.VSom[i] = lo + (hi-lo)*rng.Float32()
		tn.VDen[i] = tn.VSom[i]
	}
	sim, err := nt.np.NewSim(float32(nt.Time.Dt), n, tn)
	if err != nil {
		return fmt.Errorf("netsim: target neurons: %w", err)
	}
	nt.sim = sim
	nt.ge = make([]float32, n)
	nt.gi = make([]float32, n)
	nt.spk = make([]float32, n)
	nt.rates = make([]float64, n)
	return nil
}

// spikes advances the target neurons by one step and stores their spike
// output in rates.  The excitatory currents je (>= 0) and inhibitory
// currents ji (<= 0) are converted to conductances at the membrane voltage
// predicted for the middle of the step, so that the conductances inject
// the given currents.
func (nt *Network) spikes(je, ji []float64) error {
	if nt.sim == nil {
		if err := nt.initSim(); err != nil {
			return err
		}
	}
	np := &nt.np
	if nt.Post.BiasInjected() {
		for k, b := range nt.Post.Bias() {
			if b > 0 {
				je[k] += b
			} else {
				ji[k] += b
			}
		}
	}
	hdt := 0.5 * nt.Time.Dt
	eL, eE, eI := float64(np.Erev.L), float64(np.Erev.E), float64(np.Erev.I)
	for k := range je {
		st := nt.sim.State(k)
		v := float64(st.VDen)
		var dv float64
		if np.Comp == neuron.TwoComp {
			dv = ((eL-v)*float64(np.Den.GLeak) + (float64(st.VSom)-v)*float64(np.Den.GCouple) + je[k] + ji[k]) / float64(np.Den.C)
		} else {
			if st.Refractory() {
				v = float64(np.Som.VReset)
			}
			dv = ((eL-v)*float64(np.GLeakTot) + je[k] + ji[k]) / float64(np.CTot)
		}
		v = math.Min(math.Max(v+hdt*dv, eI+vMargin), eE-vMargin)
		nt.ge[k] = float32(je[k] / (eE - v))
		nt.gi[k] = float32(ji[k] / (eI - v))
	}
	nt.sim.Step(nt.spk, nt.ge, nt.gi)
	for k, sp := range nt.spk {
		nt.rates[k] = float64(sp)
	}
	return nil
}
