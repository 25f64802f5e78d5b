// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package ensemble implements a population of neurons that jointly represents
a real-valued vector through distributed tuning curves.

Each neuron has a unit-length encoder, a gain and a bias.  Its activity for a
represented value x is the closed-form LIF rate of the input current

	J = gain * (x · e) / Radius + bias

Gain and bias are derived from per-neuron maximum rates and intercepts drawn
at Build time, or given explicitly.  Neurons can be restricted to forming only
excitatory or only inhibitory synapses on their targets.
*/
package ensemble

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/emer/dendrite/lif"
	"github.com/emer/dendrite/neuron"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Range is a closed interval of values drawn uniformly
type Range struct {
	Min float64
	Max float64
}

// Set sets the min and max
func (rr *Range) Set(mn, mx float64) {
	rr.Min, rr.Max = mn, mx
}

// Rand returns a uniform random value in the range
func (rr *Range) Rand(rng *rand.Rand) float64 {
	return rr.Min + rng.Float64()*(rr.Max-rr.Min)
}

// Params are the parameters of an ensemble
type Params struct {

	// number of neurons
	NNeurons int `min:"1"`

	// dimensionality of the represented value
	Dims int `min:"1"`

	// representational range: encoded values are expected to lie in the
	// ball of this radius
	Radius float64 `def:"1" min:"0"`

	// number of evaluation points drawn at Build time
	NEvalPoints int `def:"750" min:"1"`

	// range of maximum firing rates in Hz, reached at x · e = Radius
	MaxRates Range `def:"{100 200}"`

	// range of normalized intercepts at which neurons start firing
	Intercepts Range `def:"{-0.95 0.95}"`

	// fraction of neurons only forming excitatory synapses -- < 0 is unset.
	// If only one of PExc, PInh is set, the other is its complement.
	// If both are unset, all neurons form both kinds of synapses.
	PExc float64 `def:"-1"`

	// fraction of neurons only forming inhibitory synapses -- < 0 is unset
	PInh float64 `def:"-1"`

	// explicit per-neuron gain -- if set together with Bias, max rates
	// and intercepts are derived from them instead of drawn
	Gain []float64

	// explicit per-neuron bias current in Amperes
	Bias []float64

	// neuron model used to derive the rate function
	Neuron neuron.Params `view:"inline"`
}

func (ep *Params) Defaults() {
	ep.Radius = 1
	ep.NEvalPoints = 750
	ep.MaxRates.Set(100, 200)
	ep.Intercepts.Set(-0.95, 0.95)
	ep.PExc = -1
	ep.PInh = -1
	ep.Neuron.Defaults()
}

// Update must be called after any changes to parameters
func (ep *Params) Update() {
	ep.Neuron.Update()
}

// NSigned returns the number of excitatory-only and inhibitory-only neurons
func (ep *Params) NSigned() (nExc, nInh int, err error) {
	n := ep.NNeurons
	switch {
	case ep.PExc < 0 && ep.PInh < 0:
		return 0, 0, nil
	case ep.PInh < 0:
		nExc = int(math.Round(ep.PExc * float64(n)))
		nInh = n - nExc
	case ep.PExc < 0:
		nInh = int(math.Round(ep.PInh * float64(n)))
		nExc = n - nInh
	default:
		nExc = int(math.Round(ep.PExc * float64(n)))
		nInh = int(math.Round(ep.PInh * float64(n)))
	}
	if nExc < 0 || nInh < 0 || nExc+nInh > n {
		return 0, 0, fmt.Errorf("ensemble: invalid synapse type fractions PExc: %g PInh: %g", ep.PExc, ep.PInh)
	}
	return nExc, nInh, nil
}

// Ensemble is a built population.  All fields are set by Build and
// must not be modified afterwards.
type Ensemble struct {
	Params Params

	// unit-length encoders, NNeurons x Dims
	Encoders *mat.Dense

	// per-neuron gain
	GainV []float64

	// per-neuron bias current
	BiasV []float64

	// per-neuron maximum rates
	MaxRatesV []float64

	// per-neuron normalized intercepts
	InterceptsV []float64

	// evaluation points, NEvalPoints x Dims
	Points *mat.Dense

	// neurons that may form excitatory synapses
	Exc []bool

	// neurons that may form inhibitory synapses
	Inh []bool

	rate     lif.RateParams
	scaledEn *mat.Dense
	noBias   atomic.Bool
}

// Build constructs a new ensemble from the given parameters, drawing all
// random quantities from rng.
func Build(ep *Params, rng *rand.Rand) (*Ensemble, error) {
	en := &Ensemble{Params: *ep}
	p := &en.Params
	p.Update()
	if p.NNeurons < 1 || p.Dims < 1 {
		return nil, fmt.Errorf("ensemble.Build: need at least one neuron and one dimension, got %d, %d", p.NNeurons, p.Dims)
	}
	if !(p.Radius > 0) {
		return nil, fmt.Errorf("ensemble.Build: radius must be > 0, got %g", p.Radius)
	}
	if p.NEvalPoints < 1 {
		return nil, fmt.Errorf("ensemble.Build: need at least one evaluation point")
	}
	if err := p.Neuron.Validate(); err != nil {
		return nil, err
	}
	en.rate = p.Neuron.RateParams()
	n := p.NNeurons

	en.Encoders = mat.NewDense(n, p.Dims, nil)
	for i := 0; i < n; i++ {
		randSphere(en.Encoders.RawRowView(i), rng)
	}
	en.Points = mat.NewDense(p.NEvalPoints, p.Dims, nil)
	for i := 0; i < p.NEvalPoints; i++ {
		randBall(en.Points.RawRowView(i), p.Radius, rng)
	}

	if p.Gain != nil || p.Bias != nil {
		if len(p.Gain) != n || len(p.Bias) != n {
			return nil, fmt.Errorf("ensemble.Build: explicit gain and bias must both have %d values", n)
		}
		en.GainV = append([]float64(nil), p.Gain...)
		en.BiasV = append([]float64(nil), p.Bias...)
		// a warning only: non-finite intercepts are kept
		en.MaxRatesV, en.InterceptsV, _ = en.rate.MaxRatesIntercepts(en.GainV, en.BiasV)
	} else {
		en.MaxRatesV = make([]float64, n)
		en.InterceptsV = make([]float64, n)
		for i := 0; i < n; i++ {
			en.MaxRatesV[i] = p.MaxRates.Rand(rng)
			en.InterceptsV[i] = p.Intercepts.Rand(rng)
		}
		var err error
		en.GainV, en.BiasV, err = en.rate.GainBias(en.MaxRatesV, en.InterceptsV)
		if err != nil {
			return nil, fmt.Errorf("ensemble.Build: %w", err)
		}
	}

	if err := en.initSynapseTypes(rng); err != nil {
		return nil, err
	}

	en.scaledEn = mat.DenseCopyOf(en.Encoders)
	for i := 0; i < n; i++ {
		floats.Scale(en.GainV[i]/p.Radius, en.scaledEn.RawRowView(i))
	}
	return en, nil
}

func (en *Ensemble) initSynapseTypes(rng *rand.Rand) error {
	n := en.Params.NNeurons
	nExc, nInh, err := en.Params.NSigned()
	if err != nil {
		return err
	}
	en.Exc = make([]bool, n)
	en.Inh = make([]bool, n)
	if en.Params.PExc < 0 && en.Params.PInh < 0 {
		for i := range en.Exc {
			en.Exc[i], en.Inh[i] = true, true
		}
		return nil
	}
	for pi, i := range rng.Perm(n) {
		switch {
		case pi < nExc:
			en.Exc[i] = true
		case pi < nExc+nInh:
			en.Inh[i] = true
		default:
			en.Exc[i], en.Inh[i] = true, true
		}
	}
	return nil
}

// randSphere sets v to a uniformly distributed unit vector
func randSphere(v []float64, rng *rand.Rand) {
	for {
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		if nrm := floats.Norm(v, 2); nrm > 0 {
			floats.Scale(1/nrm, v)
			return
		}
	}
}

// randBall sets v to a point uniformly distributed in the ball of radius r
func randBall(v []float64, r float64, rng *rand.Rand) {
	randSphere(v, rng)
	floats.Scale(r*math.Pow(rng.Float64(), 1/float64(len(v))), v)
}

func (en *Ensemble) Dims() int     { return en.Params.Dims }
func (en *Ensemble) NNeurons() int { return en.Params.NNeurons }

// EvalPoints returns the evaluation points drawn at Build time.
// The returned matrix must not be modified.
func (en *Ensemble) EvalPoints() *mat.Dense { return en.Points }

// SynapseTypes returns per-neuron flags for whether a neuron may form
// excitatory and inhibitory synapses.
func (en *Ensemble) SynapseTypes() (exc, inh []bool) { return en.Exc, en.Inh }

// Gain returns the per-neuron gains
func (en *Ensemble) Gain() []float64 { return en.GainV }

// Bias returns the per-neuron bias currents
func (en *Ensemble) Bias() []float64 { return en.BiasV }

// ScaledEncoders returns the encoders scaled by gain / Radius, such that
// x · ScaledEncodersᵀ is the input current for value x without bias.
func (en *Ensemble) ScaledEncoders() *mat.Dense { return en.scaledEn }

// RateParams returns the rate function parameters of the neurons
func (en *Ensemble) RateParams() lif.RateParams { return en.rate }

// Activities returns the rates of all neurons for the values in the rows
// of x, as a len(x) x NNeurons matrix.  Activities always include the bias,
// which is part of the tuning of the population.
func (en *Ensemble) Activities(x mat.Matrix) *mat.Dense {
	r, c := x.Dims()
	if c != en.Params.Dims {
		panic(fmt.Sprintf("ensemble.Activities: got %d dimensional points, ensemble has %d dimensions", c, en.Params.Dims))
	}
	if r == 0 {
		return &mat.Dense{}
	}
	acts := mat.NewDense(r, en.Params.NNeurons, nil)
	acts.Mul(x, en.scaledEn.T())
	acts.Apply(func(i, j int, v float64) float64 {
		return en.rate.Rate(v + en.BiasV[j])
	}, acts)
	return acts
}

// BiasInjected returns true if the bias current is still added to the
// synaptic input current of the neurons
func (en *Ensemble) BiasInjected() bool { return !en.noBias.Load() }

// DisableBias stops injecting the bias current, because the bias is
// provided through the input weights.  It is safe to call more than once.
func (en *Ensemble) DisableBias() { en.noBias.Store(true) }

// InputCurrents adds the bias current to the input currents j in place
// if it is still injected, and returns j.
func (en *Ensemble) InputCurrents(j []float64) []float64 {
	if !en.BiasInjected() {
		return j
	}
	for i := range j {
		j[i] += en.BiasV[i]
	}
	return j
}

// Rates computes the neuron rates for input currents j into dst, which
// is allocated if nil.  The bias is added if it is still injected.
func (en *Ensemble) Rates(dst, j []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(j))
	}
	copy(dst, j)
	en.InputCurrents(dst)
	for i, v := range dst {
		dst[i] = en.rate.Rate(v)
	}
	return dst
}
