// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package chans provides the conductance channels used by the conductance-based
multi-compartment LIF neurons, based on the standard equivalent RC circuit
model of a membrane compartment (i.e., basic Ohms law equations).
Includes excitatory, inhibitory and leak channels.
*/
package chans

// Chans are ion channels used in computing the compartment currents.
// The same struct holds reversal potentials (in Volts) or conductances
// (in Siemens), depending on where it is used.
type Chans struct {
	E float32 `desc:"excitatory sodium (Na) AMPA channels activated by synaptic glutamate"`
	I float32 `desc:"inhibitory chloride (Cl-) channels activated by synaptic GABA"`
	L float32 `desc:"constant leak (potassium, K+) channels -- determines resting potential"`
}

// SetAll sets all the values
func (ch *Chans) SetAll(e, i, l float32) {
	ch.E, ch.I, ch.L = e, i, l
}

// SetFmOtherMinus sets all the values from other Chans minus given value
func (ch *Chans) SetFmOtherMinus(oth Chans, minus float32) {
	ch.E, ch.I, ch.L = oth.E-minus, oth.I-minus, oth.L-minus
}

// Leak returns the leak current into a compartment at voltage v with
// leak conductance gl, where ch holds reversal potentials.
func (ch *Chans) Leak(v, gl float32) float32 {
	return (ch.L - v) * gl
}

// Syn returns the leak plus synaptic current into a compartment at voltage v,
// for leak conductance gl and synaptic conductances ge, gi,
// where ch holds reversal potentials.
func (ch *Chans) Syn(v, gl, ge, gi float32) float32 {
	return (ch.L-v)*gl + (ch.E-v)*ge + (ch.I-v)*gi
}
