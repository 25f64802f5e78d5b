// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netsim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Lowpass is a first-order lowpass filter, as used for synapses and readouts
type Lowpass struct {

	// filter time constant in seconds -- 0 passes the input through
	Tau float64 `def:"0.1" min:"0"`

	state []float64
}

func (lp *Lowpass) Defaults() {
	lp.Tau = 0.1
}

// Reset clears the filter state
func (lp *Lowpass) Reset() {
	lp.state = nil
}

// Filter advances the filter by dt with input x and returns the filtered
// values.  The returned slice is owned by the filter and is overwritten by
// the next call.
func (lp *Lowpass) Filter(x []float64, dt float64) []float64 {
	if len(lp.state) != len(x) {
		lp.state = make([]float64, len(x))
	}
	if lp.Tau <= 0 {
		copy(lp.state, x)
		return lp.state
	}
	a := math.Exp(-dt / lp.Tau)
	floats.Scale(a, lp.state)
	floats.AddScaled(lp.state, 1-a, x)
	return lp.state
}

// FilterAll filters a whole signal with a fresh state, returning a new signal
func (lp *Lowpass) FilterAll(sig [][]float64, dt float64) [][]float64 {
	flt := &Lowpass{Tau: lp.Tau}
	out := make([][]float64, len(sig))
	for i, x := range sig {
		out[i] = append([]float64(nil), flt.Filter(x, dt)...)
	}
	return out
}

// RelativeRMSE returns the root mean squared error between expected and
// actual, relative to the root mean square of expected, skipping the
// first skip samples
func RelativeRMSE(expected, actual [][]float64, skip int) float64 {
	var se, ss float64
	n := 0
	for i := range expected {
		ss += floats.Dot(expected[i], expected[i])
		if i < skip {
			continue
		}
		for d := range expected[i] {
			del := expected[i][d] - actual[i][d]
			se += del * del
			n++
		}
	}
	ntot := 0
	for i := range expected {
		ntot += len(expected[i])
	}
	if n == 0 || ss == 0 {
		return math.NaN()
	}
	return math.Sqrt(se/float64(n)) / math.Sqrt(ss/float64(ntot))
}
