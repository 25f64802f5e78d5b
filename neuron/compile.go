// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neuron

import "fmt"

// NewSim returns a new integrator for n neurons using the configured Backend
func (np *Params) NewSim(dt float32, n int, tn *Tuning) (Sim, error) {
	if err := np.Validate(); err != nil {
		return nil, err
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("neuron.NewSim: dt must be > 0, got %g", dt)
	}
	if n < 0 {
		return nil, fmt.Errorf("neuron.NewSim: negative neuron count %d", n)
	}
	if np.Backend == Ref {
		return NewRefSim(np, dt, n, tn), nil
	}
	return NewFastSim(np, dt, n, tn), nil
}

// Compile generates a step function simulating n neurons with time step dt.
// The simulator state is owned by the returned function; a new call to
// Compile is the only way to reset it.
func (np *Params) Compile(dt float32, n int, tn *Tuning) (StepFunc, error) {
	sim, err := np.NewSim(dt, n, tn)
	if err != nil {
		return nil, err
	}
	return sim.Step, nil
}
