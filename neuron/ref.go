// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neuron

// RefSim is the reference integrator: it follows the model equations
// directly, one neuron and one substep at a time.
type RefSim struct {
	Params  Params  `desc:"neuron parameters -- a copy taken at creation"`
	Dt      float32 `desc:"simulation step in seconds"`
	H       float32 `desc:"substep width Dt / Subsample"`
	Neurons []State `desc:"per-neuron state"`
}

// NewRefSim returns a reference integrator for n neurons
func NewRefSim(np *Params, dt float32, n int, tn *Tuning) *RefSim {
	rs := &RefSim{Params: *np, Dt: dt}
	rs.Params.Update()
	rs.H = dt / float32(rs.Params.Subsample)
	rs.Neurons = make([]State, n)
	for i := range rs.Neurons {
		rs.Neurons[i] = rs.Params.initState(tn, i)
	}
	return rs
}

func (rs *RefSim) NNeurons() int { return len(rs.Neurons) }

func (rs *RefSim) State(idx int) State { return rs.Neurons[idx] }

// Step advances all neurons by one simulation step
func (rs *RefSim) Step(out, ge, gi []float32) {
	for i := range rs.Neurons {
		out[i] = rs.StepNeuron(&rs.Neurons[i], ge[i], gi[i])
	}
}

// StepNeuron advances one neuron by one simulation step and returns
// its output rate for the step.
func (rs *RefSim) StepNeuron(nrn *State, ge, gi float32) float32 {
	np := &rs.Params
	h := rs.H
	var out float32
	for s := 0; s < np.Subsample; s++ {
		if np.Comp == TwoComp {
			dSom := np.Erev.Leak(nrn.VSom, np.Som.GLeak) + (nrn.VDen-nrn.VSom)*np.Den.GCouple
			dDen := np.Erev.Syn(nrn.VDen, np.Den.GLeak, ge, gi) + (nrn.VSom-nrn.VDen)*np.Den.GCouple
			nrn.VSom += h * dSom / np.Som.C
			nrn.VDen += h * dDen / np.Den.C
		} else {
			dv := np.Erev.Syn(nrn.VSom, np.GLeakTot, ge, gi)
			nrn.VSom += h * dv / np.CTot
		}

		if nrn.TRef > 0 {
			nrn.TRef -= h
			if nrn.TRef > np.Som.TauRef {
				nrn.VSom = np.Som.VSpike
			} else {
				nrn.VSom = np.Som.VReset
			}
		}

		if nrn.VSom > np.Som.VTh && nrn.TRef <= 0 {
			nrn.TRef = np.TauRefSpike
			nrn.VSom = np.VFire
			out = 1 / rs.Dt
		}

		if np.Comp == OneComp {
			nrn.VDen = nrn.VSom
		}
	}
	return out
}
