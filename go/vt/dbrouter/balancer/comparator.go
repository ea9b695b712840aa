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

// Package balancer implements the slave_selection_criteria comparator
// as a small tagged enumeration plus a dispatch function rather than a
// dynamic method table per criterion.
package balancer

import "github.com/gaodevops/dbrouter/go/vt/config"

// Candidate is the subset of a backend's live stats the comparators
// need. The session package fills this in from its own bookkeeping and
// the topology snapshot; balancer never reaches into a Backend itself.
type Candidate struct {
	Index                 int // stable position in backends, used as the tie-break
	Connections           int
	RouterConnections     int
	GlobalConnections     int
	ReplicationLagSeconds int64 // topology.UnknownLag if unmeasured
	RoundTripMicros       int64
	// AdaptiveScore is a pre-blended figure of merit (lower is better)
	// computed by the caller for adaptive-routing; the comparator just
	// compares it.
	AdaptiveScore float64
}

// Compare reports whether a is strictly better than b under criterion.
// Ties are NOT broken here: the caller breaks ties by stable insertion
// order (Candidate.Index).
func Compare(criterion config.SlaveSelectionCriteria, a, b Candidate) bool {
	switch criterion {
	case config.LeastConnections:
		return a.Connections < b.Connections
	case config.LeastBehindMaster:
		return lagBetter(a.ReplicationLagSeconds, b.ReplicationLagSeconds)
	case config.LeastRouterConnections:
		return a.RouterConnections < b.RouterConnections
	case config.LeastGlobalConnections:
		return a.GlobalConnections < b.GlobalConnections
	case config.AdaptiveRouting:
		return a.AdaptiveScore < b.AdaptiveScore
	default:
		// Unknown criterion: preserve current order (first stays first).
		return false
	}
}

// lagBetter treats unknown lag as worse than any measured lag, since a
// backend whose staleness can't be bounded shouldn't look attractive
// to a comparator that is supposed to prefer freshness.
func lagBetter(a, b int64) bool {
	const unknown = -1
	if a == unknown && b == unknown {
		return false
	}
	if a == unknown {
		return false
	}
	if b == unknown {
		return true
	}
	return a < b
}

// Best returns the index (into candidates) of the best candidate under
// criterion, breaking ties by the lowest Candidate.Index. candidates
// must be non-empty.
func Best(criterion config.SlaveSelectionCriteria, candidates []Candidate) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if Compare(criterion, candidates[i], candidates[best]) {
			best = i
		} else if !Compare(criterion, candidates[best], candidates[i]) {
			// Tied: keep the lower stable index.
			if candidates[i].Index < candidates[best].Index {
				best = i
			}
		}
	}
	return best
}
