/*
Copyright 2026 The DB Router Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package session implements the session router: the per-client
// object that owns a session's Backends, current-master reference,
// session-command log, response-demultiplexing bookkeeping, and
// transaction/load-data sub-state machines.
//
// A Router is owned by exactly one worker goroutine for its lifetime;
// none of its methods are safe for concurrent use by more than one
// goroutine. Cross-session aggregates it publishes (go/vt/stats
// counters, the topology snapshot it reads) are safe for concurrent
// access on their own.
package session

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/backend"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/hintfilter"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/router"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/statement"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
	"github.com/gaodevops/dbrouter/go/vt/stats"
)

// WireCodec is the outbound transport this core calls into. The
// concrete implementation (framing, byte encoding) is out of scope;
// this core only ever calls the interface.
type WireCodec interface {
	ClientWrite(sessionID string, bytes []byte) error
	ClientError(sessionID string, code uint16, message string) error
}

// Router is the per-client session router.
type Router struct {
	ID    string
	codec WireCodec
	cfg   config.Service
	hint  *hintfilter.Filter // nil if no hint filter configured for this session

	backends      []*backend.Backend
	currentMaster topology.BackendRef
	targetNode    topology.BackendRef

	// masterName is the unique name of the backend currentMaster last
	// pointed at, kept even after that backend closes so a later
	// failover can be reported as "master changed from X to Y" rather
	// than a bare "no valid master".
	masterName string

	sescmdLog       []*statement.SessionCommand
	sescmdResponses map[uint64][]byte
	sescmdCount     uint64
	sentSescmd      uint64
	historyDisabled bool

	expectedResponses int64 // atomic

	txState  router.TxState
	loadData router.LoadDataState
	loadDataBytes int64

	haveTmpTables map[string]struct{}

	inconsistent *backend.InconsistentSet

	// retryStatement, if non-nil, is the last read statement dispatched
	// to a slave, kept around so a backend failure can retry it on
	// another slave when retry_failed_reads is set.
	retryStatement []byte

	// backendDispatches counts statements this router has sent to each
	// backend, indexed the same as backends. It feeds the
	// least-router-connections comparator; this router has no visibility
	// into connections other sessions hold open on the same server.
	backendDispatches []int64

	// awaitingSescmd marks, per backend, whether the reply currently in
	// flight belongs to a replayed session command rather than a
	// normally dispatched statement; HandleReply uses it to route the
	// reply to the demultiplexer instead of straight to the client.
	awaitingSescmd []bool

	// Counters below are relaxed atomics, approximate, for diagnostics
	// only.
	totalDiverted   int64
	totalUndiverted int64
	nMaster         int64
	nSlave          int64
	nQueries        int64
}

// New constructs a Router over backends, one per configured server.
// backends is owned by the Router from this point on.
func New(backends []*backend.Backend, cfg config.Service, codec WireCodec, hint *hintfilter.Filter) *Router {
	r := &Router{
		ID:              uuid.NewString(),
		codec:           codec,
		cfg:             cfg,
		hint:            hint,
		backends:        backends,
		currentMaster:   topology.NoBackend,
		targetNode:      topology.NoBackend,
		sescmdResponses: make(map[uint64][]byte),
		haveTmpTables:   make(map[string]struct{}),
		inconsistent:    backend.NewInconsistentSet(),
		backendDispatches: make([]int64, len(backends)),
		awaitingSescmd:    make([]bool, len(backends)),
	}
	for i, b := range backends {
		if b.Server.IsMaster() {
			r.currentMaster = topology.BackendRef(i)
			r.masterName = b.Server.UniqueName
			break
		}
	}
	return r
}

// CurrentMaster returns the backend believed to hold master role, or
// nil if none.
func (r *Router) CurrentMaster() *backend.Backend {
	if !r.currentMaster.IsSet() {
		return nil
	}
	return r.backends[r.currentMaster]
}

// TargetNode returns the pinned backend, or nil if unpinned.
func (r *Router) TargetNode() *backend.Backend {
	if !r.targetNode.IsSet() {
		return nil
	}
	return r.backends[r.targetNode]
}

// findMaster scans for any in-use backend currently holding master
// role, independent of currentMaster, so a failover can be detected
// even after currentMaster itself has been cleared by a close.
func (r *Router) findMaster() (*backend.Backend, bool) {
	for _, b := range r.backends {
		if b.InUse() && b.Server.IsMaster() {
			return b, true
		}
	}
	return nil, false
}

func (r *Router) backendIndex(b *backend.Backend) topology.BackendRef {
	for i, candidate := range r.backends {
		if candidate == b {
			return topology.BackendRef(i)
		}
	}
	return topology.NoBackend
}

func (r *Router) pinTo(b *backend.Backend) {
	r.targetNode = r.backendIndex(b)
}

func (r *Router) clearPin() {
	r.targetNode = topology.NoBackend
}

// recordDispatch updates the diagnostic dispatch counters and mirrors
// them into go/vt/stats. diverted is true when the statement carried at
// least one routing hint, whether or not the hint changed the target.
func (r *Router) recordDispatch(wasMaster, diverted bool) {
	atomic.AddInt64(&r.nQueries, 1)
	stats.NQueries.WithLabelValues(r.ID).Inc()
	if wasMaster {
		atomic.AddInt64(&r.nMaster, 1)
		stats.NMaster.WithLabelValues(r.ID).Inc()
	} else {
		atomic.AddInt64(&r.nSlave, 1)
		stats.NSlave.WithLabelValues(r.ID).Inc()
	}
	if diverted {
		atomic.AddInt64(&r.totalDiverted, 1)
		stats.TotalDiverted.WithLabelValues(r.ID).Inc()
	} else {
		atomic.AddInt64(&r.totalUndiverted, 1)
		stats.TotalUndiverted.WithLabelValues(r.ID).Inc()
	}
}

// Counters snapshots the session's diagnostic dispatch counters.
type Counters struct {
	TotalDiverted, TotalUndiverted, NMaster, NSlave, NQueries int64
}

func (r *Router) Counters() Counters {
	return Counters{
		TotalDiverted:   atomic.LoadInt64(&r.totalDiverted),
		TotalUndiverted: atomic.LoadInt64(&r.totalUndiverted),
		NMaster:         atomic.LoadInt64(&r.nMaster),
		NSlave:          atomic.LoadInt64(&r.nSlave),
		NQueries:        atomic.LoadInt64(&r.nQueries),
	}
}

// noteBackendUsed records a dispatch against backend idx for the
// least-router-connections comparator.
func (r *Router) noteBackendUsed(idx topology.BackendRef) {
	if idx.IsSet() {
		atomic.AddInt64(&r.backendDispatches[idx], 1)
	}
}

func (r *Router) routerConnections(idx topology.BackendRef) int64 {
	if !idx.IsSet() {
		return 0
	}
	return atomic.LoadInt64(&r.backendDispatches[idx])
}

func (r *Router) markAwaitingSescmd(idx topology.BackendRef) {
	if idx.IsSet() {
		r.awaitingSescmd[idx] = true
	}
}

func (r *Router) clearAwaitingSescmd(idx topology.BackendRef) {
	if idx.IsSet() {
		r.awaitingSescmd[idx] = false
	}
}

func (r *Router) isAwaitingSescmd(idx topology.BackendRef) bool {
	return idx.IsSet() && r.awaitingSescmd[idx]
}

func (r *Router) ExpectedResponses() int64 { return atomic.LoadInt64(&r.expectedResponses) }

func (r *Router) bumpExpected(delta int64) {
	atomic.AddInt64(&r.expectedResponses, delta)
}
