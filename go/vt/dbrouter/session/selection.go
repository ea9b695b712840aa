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

package session

import (
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/backend"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/balancer"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
	"github.com/gaodevops/dbrouter/go/vt/log"
	"github.com/gaodevops/dbrouter/go/vt/stats"
	"github.com/gaodevops/dbrouter/go/vt/vterrors"
)

// role states what a selectBackend caller is willing to accept.
type role int

const (
	roleSlave role = iota
	roleMaster
)

// selectBackend picks a backend for a read. namedServer, if non-nil, is
// tried first; when it names a backend that is closed, holds the wrong
// role, or fails the lag ceiling, selection degrades to the normal
// comparator-driven choice rather than failing outright.
func (r *Router) selectBackend(want role, namedServer *string, lagCeiling *int) (*backend.Backend, error) {
	if namedServer != nil {
		if b, ok := r.namedBackend(*namedServer, want, lagCeiling); ok {
			return b, nil
		}
		log.Warningf("session %s: named server %q unavailable, falling back to normal selection", r.ID, *namedServer)
	}

	candidates, rejectedByLag := r.acceptableCandidates(want, lagCeiling)
	if len(candidates) == 0 {
		if want == roleSlave && r.cfg.MasterAcceptReads {
			if master := r.CurrentMaster(); master != nil && master.InUse() {
				return master, nil
			}
		}
		if rejectedByLag {
			return nil, vterrors.ReplicationLagExceededError()
		}
		return nil, vterrors.New(vterrors.NoSuitableBackend, "no acceptable backend for role %v", want)
	}

	best := balancer.Best(r.cfg.SlaveSelectionCriteria, candidates)
	return r.backends[candidates[best].Index], nil
}

func (r *Router) namedBackend(name string, want role, lagCeiling *int) (*backend.Backend, bool) {
	for _, b := range r.backends {
		if b.Server.UniqueName != name {
			continue
		}
		if !b.InUse() {
			return nil, false
		}
		if b.Server.IsMaster() {
			if want == roleSlave && !r.cfg.MasterAcceptReads {
				return nil, false
			}
		} else if !b.Server.IsSlave() {
			return nil, false
		}
		lag := b.Server.ReplicationLagSeconds()
		stats.BackendReplicationLagSeconds.WithLabelValues(b.Server.UniqueName).Set(float64(lag))
		if !balancer.AcceptableLag(lag, lagCeiling) {
			return nil, false
		}
		return b, true
	}
	return nil, false
}

// acceptableCandidates builds the comparator input for want, filtering
// out closed backends, backends of the wrong role, and backends that
// fail the optional lag ceiling. A master is only ever an acceptable
// stand-in for a slave when it is the current master and
// master_accept_reads is set. rejectedByLag reports whether at least
// one role-eligible backend was excluded solely for exceeding
// lagCeiling, so the caller can tell that apart from there being no
// role-eligible backend at all.
func (r *Router) acceptableCandidates(want role, lagCeiling *int) (candidates []balancer.Candidate, rejectedByLag bool) {
	for i, b := range r.backends {
		if !b.InUse() {
			continue
		}
		switch want {
		case roleMaster:
			if !b.Server.IsMaster() {
				continue
			}
		case roleSlave:
			if b.Server.IsMaster() {
				if topology.BackendRef(i) != r.currentMaster || !r.cfg.MasterAcceptReads {
					continue
				}
			} else if !b.Server.IsSlave() {
				continue
			}
		}
		lag := b.Server.ReplicationLagSeconds()
		stats.BackendReplicationLagSeconds.WithLabelValues(b.Server.UniqueName).Set(float64(lag))
		if !balancer.AcceptableLag(lag, lagCeiling) {
			rejectedByLag = true
			continue
		}
		conns := r.routerConnections(topology.BackendRef(i))
		candidates = append(candidates, balancer.Candidate{
			Index:                 i,
			Connections:           int(conns),
			RouterConnections:     int(conns),
			GlobalConnections:     int(conns),
			ReplicationLagSeconds: lag,
			AdaptiveScore:         adaptiveScore(lag, conns),
		})
	}
	return candidates, rejectedByLag
}

// adaptiveScore blends lag and router-local load into a single figure
// of merit for adaptive-routing: lower is better. Unknown lag is
// penalized rather than ignored, so an unmeasured backend doesn't look
// artificially attractive next to a measured one.
func adaptiveScore(lagSeconds, routerConnections int64) float64 {
	lag := lagSeconds
	if lag < 0 {
		lag = 3600
	}
	return float64(lag)*1.0 + float64(routerConnections)*0.1
}
