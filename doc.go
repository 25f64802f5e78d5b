// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package dendrite is the overall repository for building networks of
populations of spiking neurons whose connections respect Dale's principle:
each presynaptic neuron forms only excitatory or only inhibitory synapses,
or both when explicitly allowed, and the weights that compute a desired
function are found by a sign-constrained least squares solver.

This top-level of the repository has no functional code -- everything is organized
into the following sub-repositories:

* chans: reversal potentials of the excitatory, inhibitory and leak channels,
and the current they drive for given conductances.

* lif: the closed-form rate of a leaky integrate-and-fire neuron and the
conversion between gain / bias and max rate / intercept tuning.

* neuron: conductance-based one and two compartment LIF neurons, with a
reference and a fast integrator that produce identical spike trains.

* ensemble: populations of neurons with random encoders, tuning, evaluation
points and per-neuron synapse types.

* multiens: stacking and joining of populations into virtual populations
that represent concatenated or shared values.

* solver: least squares solvers for the excitatory and inhibitory weights,
including the non-negative solver that enforces the synapse types.

* connect: connections between populations, solved lazily and cached per
model, with the weight and current accessors used by a simulator.

* netsim: a minimal host that runs a solved connection, with the target
population in rate or spiking mode, and decodes its represented value.

* examples: runnable programs -- examples/stackjoin solves and runs a
connection from a stack of joined populations.
*/
package dendrite
