// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package neuron implements conductance-based leaky integrate-and-fire neurons
with one or two membrane compartments.

A two-compartment neuron has a dendritic compartment receiving excitatory and
inhibitory synaptic conductances, coupled to a somatic compartment that spikes.
Each simulation step of width dt is subdivided into Subsample forward Euler
substeps.  When the soma crosses VTh it is clamped to VSpike for TauSpike and
then to VReset for TauRef, while the dendrite keeps integrating.  The step
output is 1/dt if the neuron spiked during the step, else 0.

There are two integrators: RefSim is the straightforward reference form, and
FastSim is the performance-tuned form used by default.  Both produce the same
spike times and voltages.
*/
package neuron

// State holds the per-neuron simulation state
type State struct {

	// somatic membrane potential in Volts
	VSom float32

	// dendritic membrane potential in Volts -- equals VSom for OneComp
	VDen float32

	// remaining dead time after a spike in seconds -- the neuron is
	// refractory while > 0
	TRef float32
}

// Refractory returns true if the neuron is within its spike pulse
// or refractory period
func (st *State) Refractory() bool {
	return st.TRef > 0
}

// Tuning optionally specifies per-neuron initial voltages, e.g., to
// desynchronize a population.  Nil slices default to VReset.
type Tuning struct {
	VSom []float32
	VDen []float32
}

// StepFunc advances all neurons by one simulation step given the excitatory
// and inhibitory conductances, writing the spike rate (0 or 1/dt) of
// each neuron into out.
type StepFunc func(out, ge, gi []float32)

// Sim is implemented by both integrators
type Sim interface {
	// Step advances all neurons by one simulation step
	Step(out, ge, gi []float32)

	// NNeurons returns the number of simulated neurons
	NNeurons() int

	// State returns the state of neuron idx
	State(idx int) State
}

// initState returns the initial state of neuron idx given an optional tuning
func (np *Params) initState(tn *Tuning, idx int) State {
	st := State{VSom: np.Som.VReset, VDen: np.Som.VReset}
	if tn == nil {
		return st
	}
	if idx < len(tn.VSom) {
		st.VSom = tn.VSom[idx]
	}
	if idx < len(tn.VDen) {
		st.VDen = tn.VDen[idx]
	}
	if np.Comp == OneComp {
		st.VDen = st.VSom
	}
	return st
}
