// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netsim

// Time contains the timing state and parameters for running a network
type Time struct {

	// accumulated amount of time the network has been running,
	// in simulation-time (not real world time), in seconds.
	Time float64

	// cycle counter: number of steps since the last call to Reset
	Cycle int

	// total cycle count. this increments continuously, and is not reset
	// by Reset
	CycleTot int

	// amount of time to increment per cycle, in seconds
	Dt float64 `def:"0.001"`
}

// NewTime returns a new Time struct with default parameters
func NewTime() *Time {
	tm := &Time{}
	tm.Defaults()
	return tm
}

// Defaults sets default values
func (tm *Time) Defaults() {
	tm.Dt = 0.001
}

// Reset resets the time and the cycle counter back to zero
func (tm *Time) Reset() {
	tm.Time = 0
	tm.Cycle = 0
	if tm.Dt == 0 {
		tm.Defaults()
	}
}

// CycleInc increments at the cycle level
func (tm *Time) CycleInc() {
	tm.Cycle++
	tm.CycleTot++
	tm.Time = float64(tm.Cycle) * tm.Dt
}

// NCycles returns the number of cycles needed to run for dur seconds
func (tm *Time) NCycles(dur float64) int {
	return int(dur/tm.Dt + 0.5)
}
