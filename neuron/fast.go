// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neuron

// FastSim is the performance-tuned integrator.  The state is stored as
// separate slices per variable, all parameters are loaded into locals once
// per step, and the compartment count is resolved once per step instead of
// once per substep.  Within the substep loop, the spike test is only done
// when the neuron is not refractory: Validate guarantees VReset <= VTh, so a
// neuron leaving the refractory period in a substep cannot spike in it.
// The arithmetic of each update is the same as in RefSim.
type FastSim struct {
	Params Params
	Dt     float32

	VSom []float32
	VDen []float32
	TRef []float32

	h     float32
	invDt float32
}

// NewFastSim returns a fast integrator for n neurons
func NewFastSim(np *Params, dt float32, n int, tn *Tuning) *FastSim {
	fs := &FastSim{Params: *np, Dt: dt}
	fs.Params.Update()
	fs.h = dt / float32(fs.Params.Subsample)
	fs.invDt = 1 / dt
	fs.VSom = make([]float32, n)
	fs.VDen = make([]float32, n)
	fs.TRef = make([]float32, n)
	for i := 0; i < n; i++ {
		st := fs.Params.initState(tn, i)
		fs.VSom[i], fs.VDen[i], fs.TRef[i] = st.VSom, st.VDen, st.TRef
	}
	return fs
}

func (fs *FastSim) NNeurons() int { return len(fs.VSom) }

func (fs *FastSim) State(idx int) State {
	return State{VSom: fs.VSom[idx], VDen: fs.VDen[idx], TRef: fs.TRef[idx]}
}

// Step advances all neurons by one simulation step
func (fs *FastSim) Step(out, ge, gi []float32) {
	if fs.Params.Comp == TwoComp {
		fs.stepTwoComp(out, ge, gi)
	} else {
		fs.stepOneComp(out, ge, gi)
	}
}

func (fs *FastSim) stepTwoComp(out, ge, gi []float32) {
	np := &fs.Params
	n := len(fs.VSom)
	vSom, vDen, tRef := fs.VSom[:n], fs.VDen[:n], fs.TRef[:n]
	out, ge, gi = out[:n], ge[:n], gi[:n]

	ss, h, invDt := np.Subsample, fs.h, fs.invDt
	eL, eE, eI := np.Erev.L, np.Erev.E, np.Erev.I
	gLs, gLd, gC := np.Som.GLeak, np.Den.GLeak, np.Den.GCouple
	cS, cD := np.Som.C, np.Den.C
	vTh, vReset, vSpike, vFire := np.Som.VTh, np.Som.VReset, np.Som.VSpike, np.VFire
	tauRef, tauRefSpike := np.Som.TauRef, np.TauRefSpike

	for i := 0; i < n; i++ {
		vs, vd, tr := vSom[i], vDen[i], tRef[i]
		gE, gI := ge[i], gi[i]
		var spk float32
		for s := 0; s < ss; s++ {
			dvs := (eL-vs)*gLs + (vd-vs)*gC
			dvd := (eL-vd)*gLd + (eE-vd)*gE + (eI-vd)*gI + (vs-vd)*gC
			vs += h * dvs / cS
			vd += h * dvd / cD
			if tr > 0 {
				tr -= h
				if tr > tauRef {
					vs = vSpike
				} else {
					vs = vReset
				}
			} else if vs > vTh {
				tr = tauRefSpike
				vs = vFire
				spk = invDt
			}
		}
		vSom[i], vDen[i], tRef[i] = vs, vd, tr
		out[i] = spk
	}
}

func (fs *FastSim) stepOneComp(out, ge, gi []float32) {
	np := &fs.Params
	n := len(fs.VSom)
	vSom, vDen, tRef := fs.VSom[:n], fs.VDen[:n], fs.TRef[:n]
	out, ge, gi = out[:n], ge[:n], gi[:n]

	ss, h, invDt := np.Subsample, fs.h, fs.invDt
	eL, eE, eI := np.Erev.L, np.Erev.E, np.Erev.I
	gL, c := np.GLeakTot, np.CTot
	vTh, vReset, vSpike, vFire := np.Som.VTh, np.Som.VReset, np.Som.VSpike, np.VFire
	tauRef, tauRefSpike := np.Som.TauRef, np.TauRefSpike

	for i := 0; i < n; i++ {
		v, tr := vSom[i], tRef[i]
		gE, gI := ge[i], gi[i]
		var spk float32
		for s := 0; s < ss; s++ {
			dv := (eL-v)*gL + (eE-v)*gE + (eI-v)*gI
			v += h * dv / c
			if tr > 0 {
				tr -= h
				if tr > tauRef {
					v = vSpike
				} else {
					v = vReset
				}
			} else if v > vTh {
				tr = tauRefSpike
				v = vFire
				spk = invDt
			}
		}
		vSom[i], vDen[i], tRef[i] = v, v, tr
		out[i] = spk
	}
}
