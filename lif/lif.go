// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package lif provides the closed-form steady-state firing rate of a leaky
integrate-and-fire neuron driven by a constant input current, and its inverse.

The rate function is used to tune populations analytically: given a desired
maximum firing rate and a normalized threshold intercept per neuron, GainBias
solves the two linear equations

	i_th  = gain * intercept + bias
	i_max = gain             + bias

where i_max is the current at which the neuron fires at its maximum rate, and
i_th is the threshold current implied by the leak parameters.

All currents are in Amperes and all rates in Hz.  Computations are in float64
since the results feed directly into the weight solvers.
*/
package lif

import (
	"errors"
	"fmt"
	"log"
	"math"
)

// ErrMaxRate is returned by GainBias when a requested maximum rate cannot be
// reached given the refractory period.
var ErrMaxRate = errors.New("lif: max rate must be below the inverse of the sum of the refractory and spike period")

// NumericWarning reports non-finite values produced by inverting gain and bias.
// It is a warning: the values are still returned and computation may continue.
type NumericWarning struct {
	What  string
	Count int
}

func (nw *NumericWarning) Error() string {
	return fmt.Sprintf("lif: %d non-finite values detected in %s; this probably means that gain was too small", nw.Count, nw.What)
}

// RateParams are the somatic parameters that determine the LIF rate function.
type RateParams struct {
	TauRef float32 `def:"0.003" desc:"total dead time after a spike: refractory period plus spike pulse duration, in seconds"`
	TauRC  float32 `def:"0.02" desc:"membrane time constant C / g_leak in seconds"`
	ITh    float32 `def:"7.5e-10" desc:"threshold current (v_th - E_leak) * g_leak in Amperes -- the current at which the neuron starts firing"`
}

func (rp *RateParams) Defaults() {
	rp.TauRef = 0.003
	rp.TauRC = 0.02
	rp.ITh = 7.5e-10
}

// MaxRate returns the maximally attainable firing rate 1 / TauRef,
// which is +Inf if there is no dead time.
func (rp *RateParams) MaxRate() float64 {
	if rp.TauRef <= 0 {
		return math.Inf(1)
	}
	return 1 / float64(rp.TauRef)
}

// RateNorm computes the rate for a normalized current x = J / ITh.
// Neurons are silent at or below x = 1.
func (rp *RateParams) RateNorm(x float64) float64 {
	if !(x > 1) {
		return 0
	}
	return 1 / (float64(rp.TauRef) + float64(rp.TauRC)*math.Log1p(1/(x-1)))
}

// RateNormInv is the inverse of RateNorm for positive rates; returns
// the threshold (1) for rates <= 0.
func (rp *RateParams) RateNormInv(a float64) float64 {
	if !(a > 0) {
		return 1
	}
	return -1 / math.Expm1((float64(rp.TauRef)-1/a)/float64(rp.TauRC))
}

// Rate returns the firing rate for input current j.
func (rp *RateParams) Rate(j float64) float64 {
	return rp.RateNorm(j / float64(rp.ITh))
}

// RateInv returns the input current producing the firing rate a.
func (rp *RateParams) RateInv(a float64) float64 {
	return rp.RateNormInv(a) * float64(rp.ITh)
}

// Rates computes the rates of neurons with given gain and bias for
// the encoded values x, i.e. Rate(gain * x + bias), into dst,
// which is allocated if nil.
func (rp *RateParams) Rates(dst, x, gain, bias []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(x))
	}
	for i := range x {
		dst[i] = rp.Rate(gain[i]*x[i] + bias[i])
	}
	return dst
}

// GainBias computes the gain and bias of each neuron such that it starts
// firing at its intercept and reaches its max rate at an encoded value of 1.
// Returns ErrMaxRate if any max rate exceeds the attainable maximum.
func (rp *RateParams) GainBias(maxRates, intercepts []float64) (gain, bias []float64, err error) {
	if len(maxRates) != len(intercepts) {
		return nil, nil, fmt.Errorf("lif.GainBias: %d max rates vs. %d intercepts", len(maxRates), len(intercepts))
	}
	mx := rp.MaxRate()
	for i, mr := range maxRates {
		if mr >= mx {
			return nil, nil, fmt.Errorf("%w (%0.3f), neuron %d requests %0.3f", ErrMaxRate, mx, i, mr)
		}
	}
	ith := float64(rp.ITh)
	gain = make([]float64, len(maxRates))
	bias = make([]float64, len(maxRates))
	for i, mr := range maxRates {
		imax := rp.RateInv(mr)
		gain[i] = (imax - ith) / (1 - intercepts[i])
		bias[i] = imax - gain[i]
	}
	return gain, bias, nil
}

// MaxRatesIntercepts inverts GainBias: the max rate is the rate at current
// gain + bias, and the intercept solves ith = gain * intercept + bias.
// Non-finite intercepts are logged and reported as a *NumericWarning,
// but the values are returned regardless.
func (rp *RateParams) MaxRatesIntercepts(gain, bias []float64) (maxRates, intercepts []float64, warn error) {
	ith := float64(rp.ITh)
	maxRates = make([]float64, len(gain))
	intercepts = make([]float64, len(gain))
	nbad := 0
	for i := range gain {
		maxRates[i] = rp.Rate(gain[i] + bias[i])
		intercepts[i] = (ith - bias[i]) / gain[i]
		if math.IsNaN(intercepts[i]) || math.IsInf(intercepts[i], 0) {
			nbad++
		}
	}
	if nbad > 0 {
		nw := &NumericWarning{What: "intercepts", Count: nbad}
		log.Println(nw)
		warn = nw
	}
	return
}
