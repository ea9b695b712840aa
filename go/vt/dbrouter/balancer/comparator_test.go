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

package balancer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gaodevops/dbrouter/go/vt/config"
	"github.com/gaodevops/dbrouter/go/vt/dbrouter/topology"
)

func TestBestLeastConnections(t *testing.T) {
	candidates := []Candidate{
		{Index: 0, Connections: 5},
		{Index: 1, Connections: 2},
		{Index: 2, Connections: 9},
	}
	assert.Equal(t, 1, Best(config.LeastConnections, candidates))
}

func TestBestTieBreaksByStableIndex(t *testing.T) {
	candidates := []Candidate{
		{Index: 0, Connections: 3},
		{Index: 1, Connections: 3},
	}
	assert.Equal(t, 0, Best(config.LeastConnections, candidates))
}

func TestBestLeastBehindMasterPrefersKnownLag(t *testing.T) {
	candidates := []Candidate{
		{Index: 0, ReplicationLagSeconds: topology.UnknownLag},
		{Index: 1, ReplicationLagSeconds: 30},
	}
	assert.Equal(t, 1, Best(config.LeastBehindMaster, candidates))
}

func TestBestAdaptiveRouting(t *testing.T) {
	candidates := []Candidate{
		{Index: 0, AdaptiveScore: 0.8},
		{Index: 1, AdaptiveScore: 0.1},
	}
	assert.Equal(t, 1, Best(config.AdaptiveRouting, candidates))
}

func TestAcceptableLagNoCeiling(t *testing.T) {
	assert.True(t, AcceptableLag(9999, nil))
}

func TestAcceptableLagUnknownRejectedWhenCeilingSet(t *testing.T) {
	ceiling := 30
	assert.False(t, AcceptableLag(topology.UnknownLag, &ceiling))
}

func TestAcceptableLagWithinCeiling(t *testing.T) {
	ceiling := 30
	assert.True(t, AcceptableLag(10, &ceiling))
	assert.False(t, AcceptableLag(31, &ceiling))
}

func TestFilterAcceptableLagPreservesOrder(t *testing.T) {
	ceiling := 10
	candidates := []Candidate{
		{Index: 0, ReplicationLagSeconds: 5},
		{Index: 1, ReplicationLagSeconds: 50},
		{Index: 2, ReplicationLagSeconds: 8},
	}
	out := FilterAcceptableLag(candidates, &ceiling)
	assert.Equal(t, []int{0, 2}, []int{out[0].Index, out[1].Index})
}
