// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neuron

import (
	"fmt"

	"github.com/emer/dendrite/chans"
	"github.com/emer/dendrite/lif"
	"github.com/goki/ki/kit"
)

///////////////////////////////////////////////////////////////////////
//  params.go contains the physical parameters of the multi-compartment
//  conductance-based LIF neurons

// Comps selects the number of membrane compartments
type Comps int32

//go:generate stringer -type=Comps

var KiT_Comps = kit.Enums.AddEnum(CompsN, kit.NotBitFlag, nil)

func (ev Comps) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Comps) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// OneComp is a standard single-compartment LIF neuron: the dendritic and
	// somatic compartments are forced equal (infinite coupling).
	OneComp Comps = iota

	// TwoComp has separate somatic and dendritic compartments coupled by GCouple.
	// Synaptic conductances act on the dendrite only.
	TwoComp

	CompsN
)

// Backends selects the integrator implementation returned by Compile
type Backends int32

//go:generate stringer -type=Backends

var KiT_Backends = kit.Enums.AddEnum(BackendsN, kit.NotBitFlag, nil)

func (ev Backends) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *Backends) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Fast is the performance-tuned integrator (FastSim)
	Fast Backends = iota

	// Ref is the straightforward reference integrator (RefSim)
	Ref

	BackendsN
)

// SomParams are the somatic compartment parameters
type SomParams struct {
	C        float32 `def:"1e-9" min:"0" desc:"somatic membrane capacitance in Farad"`
	GLeak    float32 `def:"5e-8" min:"0" desc:"somatic leak conductance in Siemens"`
	TauRef   float32 `def:"0.002" min:"0" desc:"refractory period in seconds, following the spike pulse, during which the soma is clamped to VReset"`
	TauSpike float32 `def:"0.001" min:"0" desc:"spike pulse duration in seconds during which the soma is clamped to VSpike"`
	VTh      float32 `def:"-0.05" desc:"spike threshold voltage"`
	VReset   float32 `def:"-0.065" desc:"reset voltage after the spike pulse"`
	VSpike   float32 `def:"0.02" desc:"voltage of the soma during the spike pulse"`
}

func (sp *SomParams) Defaults() {
	sp.C = 1e-9
	sp.GLeak = 50e-9
	sp.TauRef = 2e-3
	sp.TauSpike = 1e-3
	sp.VTh = -50e-3
	sp.VReset = -65e-3
	sp.VSpike = 20e-3
}

// DenParams are the dendritic compartment parameters
type DenParams struct {
	C       float32 `def:"1e-9" min:"0" desc:"dendritic membrane capacitance in Farad"`
	GLeak   float32 `def:"5e-8" min:"0" desc:"dendritic leak conductance in Siemens"`
	GCouple float32 `def:"5e-8" min:"0" desc:"conductance coupling the dendritic and somatic compartments, in Siemens"`
}

func (dp *DenParams) Defaults() {
	dp.C = 1e-9
	dp.GLeak = 50e-9
	dp.GCouple = 50e-9
}

// Params are the complete physical parameters of a population of
// conductance-based LIF neurons with separate excitatory and inhibitory
// synaptic channels.
type Params struct {
	Comp      Comps       `desc:"number of compartments"`
	Backend   Backends    `desc:"which integrator Compile returns -- both produce the same results"`
	Som       SomParams   `view:"inline" desc:"somatic compartment"`
	Den       DenParams   `view:"inline" viewif:"Comp=TwoComp" desc:"dendritic compartment -- for OneComp, C and GLeak are added to the soma"`
	Erev      chans.Chans `view:"inline" desc:"[Defaults: .02, -.075, -.065] reversal potentials for each channel in Volts"`
	Subsample int         `def:"10" min:"1" desc:"number of Euler substeps per simulation step"`

	CTot        float32 `inactive:"+" view:"-" json:"-" desc:"Som.C + Den.C -- capacitance of the merged compartment for OneComp"`
	GLeakTot    float32 `inactive:"+" view:"-" json:"-" desc:"Som.GLeak + Den.GLeak -- leak of the merged compartment for OneComp"`
	TauRefSpike float32 `inactive:"+" view:"-" json:"-" desc:"Som.TauRef + Som.TauSpike -- total dead time after a spike"`
	VFire       float32 `inactive:"+" view:"-" json:"-" desc:"voltage the soma is set to on a spike: VSpike if TauSpike > 0, else VReset"`
}

// TwoCompDefaults sets the default two-compartment LIF parameters
func (np *Params) TwoCompDefaults() {
	np.Comp = TwoComp
	np.Backend = Fast
	np.Som.Defaults()
	np.Den.Defaults()
	np.Erev.SetAll(20e-3, -75e-3, -65e-3)
	np.Subsample = 10
	np.Update()
}

// LIFDefaults sets the default single-compartment LIF parameters.
// The dendritic capacitance and leak are zero so the merged compartment
// has exactly the somatic parameters.
func (np *Params) LIFDefaults() {
	np.TwoCompDefaults()
	np.Comp = OneComp
	np.Den.C = 0
	np.Den.GLeak = 0
	np.Den.GCouple = 0
	np.Update()
}

// Defaults sets the two-compartment defaults
func (np *Params) Defaults() {
	np.TwoCompDefaults()
}

// Update must be called after any changes to parameters
func (np *Params) Update() {
	np.CTot = np.Som.C + np.Den.C
	np.GLeakTot = np.Som.GLeak + np.Den.GLeak
	np.TauRefSpike = np.Som.TauRef + np.Som.TauSpike
	if np.Som.TauSpike > 0 {
		np.VFire = np.Som.VSpike
	} else {
		np.VFire = np.Som.VReset
	}
}

// Validate checks that the parameters describe a well-formed neuron
func (np *Params) Validate() error {
	switch {
	case np.Comp < 0 || np.Comp >= CompsN:
		return fmt.Errorf("neuron.Params: invalid compartment count %v", np.Comp)
	case np.Backend < 0 || np.Backend >= BackendsN:
		return fmt.Errorf("neuron.Params: invalid backend %v", np.Backend)
	case !(np.Som.C > 0) || !(np.Som.GLeak > 0):
		return fmt.Errorf("neuron.Params: somatic capacitance and leak must be > 0, got C: %g GLeak: %g", np.Som.C, np.Som.GLeak)
	case np.Som.TauRef < 0 || np.Som.TauSpike < 0:
		return fmt.Errorf("neuron.Params: refractory and spike durations must be >= 0")
	case np.Subsample < 1:
		return fmt.Errorf("neuron.Params: Subsample must be >= 1, got %d", np.Subsample)
	case np.Som.VReset > np.Som.VTh:
		return fmt.Errorf("neuron.Params: VReset %g must not exceed VTh %g", np.Som.VReset, np.Som.VTh)
	}
	if np.Comp == TwoComp {
		if !(np.Den.C > 0) || !(np.Den.GLeak > 0) || !(np.Den.GCouple > 0) {
			return fmt.Errorf("neuron.Params: dendritic capacitance, leak and coupling must be > 0 for TwoComp")
		}
	}
	return nil
}

// ThresholdCurrent returns the input current at which the neuron starts spiking
func (np *Params) ThresholdCurrent() float32 {
	return (np.Som.VTh - np.Erev.L) * np.Som.GLeak
}

// RateParams returns the closed-form rate model parameters of the soma,
// used for computing gain and bias analytically.
func (np *Params) RateParams() lif.RateParams {
	return lif.RateParams{
		TauRef: np.Som.TauSpike + np.Som.TauRef,
		TauRC:  np.Som.C / np.Som.GLeak,
		ITh:    np.ThresholdCurrent(),
	}
}
