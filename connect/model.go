// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package connect

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/c2h5oh/datasize"
	"github.com/emer/dendrite/solver"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/mat"
)

// ConnID is the handle of a connection in a Model
type ConnID int

// Model holds the connections of one model build and caches their solved
// weights.  Each connection is solved at most once: concurrent requests for
// the same connection wait for a single solve and share its result.
// Failed solves are not cached.
type Model struct {

	// solver used for all connections
	Solver solver.Solver

	// random seed -- the random numbers of each connection are derived
	// from Seed and its ID, independent of the order of solving
	Seed int64

	mu    sync.Mutex
	conns []*Connection
	built map[ConnID]*BuiltConnection
	sf    singleflight.Group

	// incremented by Reset: solves started before a Reset are not cached
	gen uint64
}

// NewModel returns a new model using the given solver, or a default
// NonNegL2 solver if nil
func NewModel(sv solver.Solver, seed int64) *Model {
	if sv == nil {
		nn := &solver.NonNegL2{}
		nn.Defaults()
		sv = nn
	}
	return &Model{Solver: sv, Seed: seed, built: make(map[ConnID]*BuiltConnection)}
}

// Connect adds a connection and returns its handle.  If the connection
// decodes the target bias, the bias injection of the target is disabled.
func (md *Model) Connect(cn *Connection) (ConnID, error) {
	if err := cn.validate(); err != nil {
		return -1, err
	}
	if cn.DecodeBias {
		cn.Post.DisableBias()
	}
	md.mu.Lock()
	defer md.mu.Unlock()
	md.conns = append(md.conns, cn)
	return ConnID(len(md.conns) - 1), nil
}

// NConns returns the number of connections
func (md *Model) NConns() int {
	md.mu.Lock()
	defer md.mu.Unlock()
	return len(md.conns)
}

// Connection returns the connection with the given handle, nil if invalid
func (md *Model) Connection(id ConnID) *Connection {
	md.mu.Lock()
	defer md.mu.Unlock()
	if id < 0 || int(id) >= len(md.conns) {
		return nil
	}
	return md.conns[id]
}

// Built returns the cached solution of a connection, if any
func (md *Model) Built(id ConnID) (*BuiltConnection, bool) {
	md.mu.Lock()
	defer md.mu.Unlock()
	bc, ok := md.built[id]
	return bc, ok
}

// Solve returns the solved weights of a connection, solving it first if it
// is not cached yet.  Errors in solving are returned as *BuildError.
func (md *Model) Solve(id ConnID) (*BuiltConnection, error) {
	if bc, ok := md.Built(id); ok {
		return bc, nil
	}
	cn := md.Connection(id)
	if cn == nil {
		return nil, fmt.Errorf("connect: invalid connection id %d", id)
	}
	md.mu.Lock()
	gen := md.gen
	md.mu.Unlock()
	key := strconv.FormatUint(gen, 10) + "/" + strconv.Itoa(int(id))
	v, err, _ := md.sf.Do(key, func() (interface{}, error) {
		// a concurrent call may have finished between the check and Do
		if bc, ok := md.Built(id); ok {
			return bc, nil
		}
		rng := rand.New(rand.NewSource(md.Seed + int64(id)))
		bc, err := build(cn, md.Solver, rng)
		if err != nil {
			return nil, &BuildError{ID: id, Label: cn.Label, Err: err}
		}
		md.mu.Lock()
		if md.gen == gen {
			md.built[id] = bc
		}
		md.mu.Unlock()
		return bc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*BuiltConnection), nil
}

// SolveAll solves all connections in parallel, returning the first error
func (md *Model) SolveAll(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < md.NConns(); i++ {
		id := ConnID(i)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := md.Solve(id)
			return err
		})
	}
	return eg.Wait()
}

// Weights returns a view of the weights of source preIdx of a connection for
// the given sign, NPost x NNeurons(source), solving the connection if needed
func (md *Model) Weights(id ConnID, preIdx int, sign Sign) (mat.Matrix, error) {
	bc, err := md.Solve(id)
	if err != nil {
		return nil, err
	}
	return bc.PreWeights(preIdx, sign)
}

// Currents returns the excitatory (>= 0) and inhibitory (<= 0) input currents
// of the post neurons of a connection for the given activities of the
// source neurons, one slice per source
func (md *Model) Currents(id ConnID, acts [][]float64) (exc, inh []float64, err error) {
	bc, err := md.Solve(id)
	if err != nil {
		return nil, nil, err
	}
	if len(acts) != len(bc.PreNeuronRanges) {
		return nil, nil, fmt.Errorf("connect.Currents: got activities for %d sources, connection has %d", len(acts), len(bc.PreNeuronRanges))
	}
	_, nPre := bc.Weights[Excitatory].Dims()
	a := make([]float64, 0, nPre)
	for i, nr := range bc.PreNeuronRanges {
		if len(acts[i]) != nr[1]-nr[0] {
			return nil, nil, fmt.Errorf("connect.Currents: source %d has %d neurons, got %d activities", i, nr[1]-nr[0], len(acts[i]))
		}
		a = append(a, acts[i]...)
	}
	av := mat.NewVecDense(nPre, a)
	var je, ji mat.VecDense
	je.MulVec(bc.Weights[Excitatory], av)
	ji.MulVec(bc.Weights[Inhibitory], av)
	return je.RawVector().Data, ji.RawVector().Data, nil
}

// Reset drops all cached solutions, e.g., when the model is rebuilt.
// Solves in progress still return their result but do not cache it.
func (md *Model) Reset() {
	md.mu.Lock()
	defer md.mu.Unlock()
	md.gen++
	md.built = make(map[ConnID]*BuiltConnection)
}

// SizeReport returns a string reporting the size of each solved connection
// and the total memory footprint of the weights
func (md *Model) SizeReport() string {
	md.mu.Lock()
	defer md.mu.Unlock()
	ids := make([]int, 0, len(md.built))
	for id := range md.built {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var b strings.Builder
	tot := 0
	for _, id := range ids {
		bc := md.built[ConnID(id)]
		r, c := bc.Weights[Excitatory].Dims()
		mem := bc.MemBytes()
		tot += mem
		fmt.Fprintf(&b, "%14s:\t Post: %d\t Pre: %d\t Samples: %d\t WtMem: %v\n", md.conns[id].Label, r, c, bc.NSamples, (datasize.ByteSize)(mem).HumanReadable())
	}
	fmt.Fprintf(&b, "\n%14s:\t Conns: %d / %d\t WtMem: %v\n", "Total", len(ids), len(md.conns), (datasize.ByteSize)(tot).HumanReadable())
	return b.String()
}

// LogSizeReport logs the SizeReport
func (md *Model) LogSizeReport() {
	log.Print(md.SizeReport())
}
